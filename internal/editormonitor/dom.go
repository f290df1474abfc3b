package editormonitor

// Document is the editor page the monitor inspects and decorates
type Document interface {
	// Query returns the first element matching selector, or nil
	Query(selector string) Element
	// CreateElement returns a new detached element
	CreateElement(tag string) Element
}

// Element is one node of a Document
type Element interface {
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)
	AddClass(class string)
	// SetInnerHTML replaces the children with the parsed markup
	SetInnerHTML(markup string) error
	// InsertBefore places el immediately before the receiver
	InsertBefore(el Element) error
	// Remove detaches the element from the document
	Remove()
}
