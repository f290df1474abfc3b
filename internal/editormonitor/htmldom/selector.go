package htmldom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// compound is one selector step such as div.notice#main
type compound struct {
	tag     string
	id      string
	classes []string
}

// selector is a descendant chain of compounds, outermost first
type selector []compound

func parseSelector(s string) (selector, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty selector")
	}
	sel := make(selector, 0, len(fields))
	for _, f := range fields {
		c, err := parseCompound(f)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", s, err)
		}
		sel = append(sel, c)
	}
	return sel, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	for i < len(s) && s[i] != '#' && s[i] != '.' {
		i++
	}
	c.tag = strings.ToLower(s[:i])

	for i < len(s) {
		kind := s[i]
		i++
		start := i
		for i < len(s) && s[i] != '#' && s[i] != '.' {
			i++
		}
		name := s[start:i]
		if name == "" {
			return compound{}, fmt.Errorf("empty name after %q", kind)
		}
		if kind == '#' {
			c.id = name
		} else {
			c.classes = append(c.classes, name)
		}
	}
	if c.tag == "" && c.id == "" && len(c.classes) == 0 {
		return compound{}, fmt.Errorf("empty compound")
	}
	return c, nil
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && c.tag != "*" && n.Data != c.tag {
		return false
	}
	if c.id != "" {
		if id, _ := attr(n, "id"); id != c.id {
			return false
		}
	}
	if len(c.classes) > 0 {
		have, _ := attr(n, "class")
		for _, want := range c.classes {
			if !hasClass(have, want) {
				return false
			}
		}
	}
	return true
}

func (s selector) matches(n *html.Node) bool {
	last := len(s) - 1
	if !s[last].matches(n) {
		return false
	}
	step := last - 1
	for p := n.Parent; p != nil && step >= 0; p = p.Parent {
		if s[step].matches(p) {
			step--
		}
	}
	return step < 0
}

// first walks the tree in document order
func (s selector) first(root *html.Node) *html.Node {
	if s.matches(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := s.first(c); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(list, class string) bool {
	for _, c := range strings.Fields(list) {
		if c == class {
			return true
		}
	}
	return false
}
