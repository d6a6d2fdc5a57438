package model

// Handle identifies a node within one rendering of the document. It is only
// meaningful to the document backend that produced it, and only until that
// backend starts a new rendering generation.
type Handle struct {
	Gen   uint64 `json:"gen"   yaml:"gen"`
	Index int    `json:"index" yaml:"index"`
}

// Element is a point-in-time snapshot of a node in the rendered document.
type Element struct {
	Handle  Handle            `json:"h"           yaml:"h"`
	Tag     string            `json:"tag"         yaml:"tag"`
	Text    string            `json:"t,omitempty" yaml:"t,omitempty"` // textContent
	Attrs   map[string]string `json:"a,omitempty" yaml:"a,omitempty"`
	Bounds  [4]int            `json:"b"           yaml:"b"` // [x, y, width, height] in viewport pixels
	Visible bool              `json:"v"           yaml:"v"`
}

// Attr returns the named attribute, or "" when absent.
func (e Element) Attr(name string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}
