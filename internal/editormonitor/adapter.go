package editormonitor

// EditorAdapter locates the elements the monitor works with on one kind of
// editor page
type EditorAdapter interface {
	Name() string
	LocateImageElement(doc Document) Element
	LocatePublishControl(doc Document) Element
	LocateNoticeContainer(doc Document) Element
}

const blockEditorMarker = ".block-editor-writing-flow"

// BlockEditor is the block based editor
type BlockEditor struct{}

func (BlockEditor) Name() string { return "block" }

func (BlockEditor) LocateImageElement(doc Document) Element {
	return doc.Query(".editor-post-featured-image img")
}

func (BlockEditor) LocatePublishControl(doc Document) Element {
	return doc.Query(".editor-post-publish-panel__toggle")
}

func (BlockEditor) LocateNoticeContainer(doc Document) Element {
	return doc.Query(".components-notice-list")
}

// ClassicEditor is the form based editor
type ClassicEditor struct{}

func (ClassicEditor) Name() string { return "classic" }

func (ClassicEditor) LocateImageElement(doc Document) Element {
	return doc.Query("#postimagediv img")
}

func (ClassicEditor) LocatePublishControl(doc Document) Element {
	return doc.Query("#publish")
}

func (ClassicEditor) LocateNoticeContainer(doc Document) Element {
	return doc.Query("#post")
}

// DetectEditor picks the adapter for the page. The editor can switch while
// the page is open, so callers detect on every tick.
func DetectEditor(doc Document) EditorAdapter {
	if doc.Query(blockEditorMarker) != nil {
		return BlockEditor{}
	}
	return ClassicEditor{}
}
