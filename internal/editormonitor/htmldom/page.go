// Package htmldom is a Document over a parsed HTML snapshot of the editor
// page. All reads and writes go through one mutex, so a page can be shared
// between the monitor loop and a renderer.
package htmldom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/upb/publish-guard/internal/editormonitor"
)

// Page is a parsed HTML document
type Page struct {
	mu   sync.Mutex
	root *html.Node
}

// Parse reads a full HTML document
func Parse(r io.Reader) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{root: root}, nil
}

// ParseString is Parse for in-memory markup
func ParseString(markup string) (*Page, error) {
	return Parse(strings.NewReader(markup))
}

// Query returns the first element matching selector in document order.
// An unsupported selector matches nothing.
func (p *Page) Query(sel string) editormonitor.Element {
	compiled, err := parseSelector(sel)
	if err != nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	n := compiled.first(p.root)
	if n == nil {
		return nil
	}
	return &Element{page: p, node: n}
}

// CreateElement returns a detached element owned by the page
func (p *Page) CreateElement(tag string) editormonitor.Element {
	tag = strings.ToLower(tag)
	return &Element{
		page: p,
		node: &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))},
	}
}

// Render serializes the current document
func (p *Page) Render() (string, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteTo implements io.WriterTo
func (p *Page) WriteTo(w io.Writer) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cw := &countingWriter{w: w}
	if err := html.Render(cw, p.root); err != nil {
		return cw.n, fmt.Errorf("render html: %w", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// Element is a node of a Page
type Element struct {
	page *Page
	node *html.Node
}

// Tag returns the element name
func (e *Element) Tag() string {
	return e.node.Data
}

// Attr returns the value of an attribute
func (e *Element) Attr(name string) (string, bool) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return attr(e.node, name)
}

// SetAttr sets or replaces an attribute
func (e *Element) SetAttr(name, value string) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	setAttr(e.node, name, value)
}

// RemoveAttr deletes an attribute if present
func (e *Element) RemoveAttr(name string) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	kept := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		kept = append(kept, a)
	}
	e.node.Attr = kept
}

// AddClass appends a class unless already present
func (e *Element) AddClass(class string) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	current, _ := attr(e.node, "class")
	if hasClass(current, class) {
		return
	}
	setAttr(e.node, "class", strings.TrimSpace(current+" "+class))
}

// SetInnerHTML replaces the children with the parsed markup
func (e *Element) SetInnerHTML(markup string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// InsertBefore places el immediately before e. el is moved when already
// attached elsewhere.
func (e *Element) InsertBefore(el editormonitor.Element) error {
	other, ok := el.(*Element)
	if !ok || other.page != e.page {
		return fmt.Errorf("insert before: element does not belong to this page")
	}
	if other.node == e.node {
		return fmt.Errorf("insert before: cannot insert an element before itself")
	}

	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	if e.node.Parent == nil {
		return fmt.Errorf("insert before: target element is detached")
	}
	if other.node.Parent != nil {
		other.node.Parent.RemoveChild(other.node)
	}
	e.node.Parent.InsertBefore(other.node, e.node)
	return nil
}

// Remove detaches the element; removing a detached element does nothing
func (e *Element) Remove() {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	if e.node.Parent != nil {
		e.node.Parent.RemoveChild(e.node)
	}
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}
