package platform

import (
	"context"
	"errors"

	"github.com/mj1618/list-import/internal/model"
)

// ErrStaleHandle is returned when a handle from an earlier rendering
// generation is used, or its node has left the document.
var ErrStaleHandle = errors.New("element handle is stale")

// Document queries the rendered element tree. Implementations return fresh
// snapshots on every call and never cache across calls.
type Document interface {
	// QueryAll returns every node matching the CSS selector, in document order.
	QueryAll(ctx context.Context, selector string) ([]model.Element, error)

	// QueryWithin returns the descendants of parent matching the selector.
	QueryWithin(ctx context.Context, parent model.Handle, selector string) ([]model.Element, error)
}

// Inputter simulates user pointer input.
type Inputter interface {
	// Bounds scrolls the node into view and returns its current
	// [x, y, width, height] box in viewport coordinates.
	Bounds(ctx context.Context, h model.Handle) (Bounds, error)

	// Click presses and releases the primary button at a viewport point.
	Click(ctx context.Context, x, y int) error
}

// ValueSetter changes form field state the way a typing user would.
type ValueSetter interface {
	// Focus moves keyboard focus to the node.
	Focus(ctx context.Context, h model.Handle) error

	// SetValue assigns value so that both the displayed value and any
	// framework-tracked state observe the change, then emits input/change.
	SetValue(ctx context.Context, h model.Handle, value string) error
}

// Navigator loads a URL in the current page.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Screenshotter captures the visible viewport.
type Screenshotter interface {
	CaptureViewport(ctx context.Context) (Screenshot, error)
}

// Screenshot is a PNG capture plus the viewport size in CSS pixels, so that
// element bounds can be mapped onto image pixels.
type Screenshot struct {
	PNG    []byte
	Width  int
	Height int
}
