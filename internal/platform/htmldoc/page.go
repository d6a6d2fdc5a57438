// Package htmldoc is a static document backend built on goquery. It serves
// offline descriptor checks against saved pages and gives tests a
// deterministic stand-in for a live browser tab.
//
// Layout is synthetic: an element with a data-bounds="x,y,w,h" attribute
// uses that box; every other element gets its own full-width row, stacked
// in document order, so each element is individually clickable.
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/platform"
	"golang.org/x/net/html"
)

const (
	rowHeight      = 20
	rowWidth       = 400
	viewportWidth  = 800
	viewportHeight = 600
)

// Event records one interaction with the page.
type Event struct {
	Kind   string // click, focus, set-value, navigate
	Target *model.Element
	Value  string
	X, Y   int
}

// Page is an in-memory rendered document.
type Page struct {
	mu      sync.Mutex
	doc     *goquery.Document
	gen     uint64
	nodes   []*html.Node // handle registry for the current generation
	order   []*html.Node // all element nodes in document order
	index   map[*html.Node]int
	focused *html.Node
	url     string
	events  []Event

	// BeforeQuery runs before every QueryAll. Tests use it to advance
	// simulated rendering.
	BeforeQuery func()
	// OnClick runs after a click lands on an element.
	OnClick func(el model.Element)
	// OnInput runs after a field value is set.
	OnInput func(el model.Element, value string)
	// OnNavigate runs after Navigate.
	OnNavigate func(url string)
}

// New parses html into a Page.
func New(src string) (*Page, error) {
	p := &Page{}
	if err := p.SetHTML(src); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads a Page from an HTML file.
func Load(path string) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return New(string(data))
}

// SetHTML replaces the document, as a client-side re-render would. Every
// handle issued before the call becomes stale.
func (p *Page) SetHTML(src string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc = doc
	p.gen++
	p.nodes = nil
	p.focused = nil
	p.order = p.order[:0]
	p.index = make(map[*html.Node]int)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.index[n] = len(p.order)
			p.order = append(p.order, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return nil
}

// HTML returns the current document markup.
func (p *Page) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, _ := p.doc.Html()
	return out
}

// Events returns a copy of the recorded interactions.
func (p *Page) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// URL returns the last navigated URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// QueryAll implements platform.Document. Each call starts a new handle
// generation.
func (p *Page) QueryAll(ctx context.Context, selector string) ([]model.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hook := p.BeforeQuery; hook != nil {
		hook()
	}
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.nodes = nil
	return p.register(p.doc.Find(selector).Nodes), nil
}

// QueryWithin implements platform.Document.
func (p *Page) QueryWithin(ctx context.Context, parent model.Handle, selector string) ([]model.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.resolve(parent)
	if err != nil {
		return nil, err
	}
	return p.register(p.doc.FindNodes(n).Find(selector).Nodes), nil
}

// Bounds implements platform.Inputter.
func (p *Page) Bounds(ctx context.Context, h model.Handle) (platform.Bounds, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.resolve(h)
	if err != nil {
		return platform.Bounds{}, err
	}
	b := p.layout(n)
	return platform.Bounds{X: b[0], Y: b[1], Width: b[2], Height: b[3]}, nil
}

// Click implements platform.Inputter. A click on empty space is recorded
// but is not an error, as in a browser.
func (p *Page) Click(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	all := make([]model.Element, 0, len(p.order))
	for _, n := range p.order {
		all = append(all, p.snapshot(n, model.Handle{}))
	}
	ev := Event{Kind: "click", X: x, Y: y}
	hit, ok := model.HitTest(all, x, y)
	if ok {
		ev.Target = &hit
	}
	p.events = append(p.events, ev)
	hook := p.OnClick
	p.mu.Unlock()

	if ok && hook != nil {
		hook(hit)
	}
	return nil
}

// Focus implements platform.ValueSetter.
func (p *Page) Focus(ctx context.Context, h model.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.resolve(h)
	if err != nil {
		return err
	}
	p.focused = n
	el := p.snapshot(n, h)
	p.events = append(p.events, Event{Kind: "focus", Target: &el})
	return nil
}

// Focused returns the element holding focus, if any.
func (p *Page) Focused() (model.Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.focused == nil {
		return model.Element{}, false
	}
	return p.snapshot(p.focused, model.Handle{}), true
}

// SetValue implements platform.ValueSetter.
func (p *Page) SetValue(ctx context.Context, h model.Handle, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	n, err := p.resolve(h)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	setAttr(n, "value", value)
	el := p.snapshot(n, h)
	p.events = append(p.events, Event{Kind: "set-value", Target: &el, Value: value})
	hook := p.OnInput
	p.mu.Unlock()

	if hook != nil {
		hook(el, value)
	}
	return nil
}

// Navigate implements platform.Navigator.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.url = url
	p.events = append(p.events, Event{Kind: "navigate", Value: url})
	hook := p.OnNavigate
	p.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	return nil
}

// CaptureViewport implements platform.Screenshotter with a blank canvas of
// the synthetic viewport size.
func (p *Page) CaptureViewport(ctx context.Context) (platform.Screenshot, error) {
	img := image.NewRGBA(image.Rect(0, 0, viewportWidth, viewportHeight))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return platform.Screenshot{}, fmt.Errorf("encode png: %w", err)
	}
	return platform.Screenshot{PNG: buf.Bytes(), Width: viewportWidth, Height: viewportHeight}, nil
}

// Provider exposes the page through the platform interfaces.
func (p *Page) Provider() *platform.Provider {
	return &platform.Provider{
		Document:      p,
		Inputter:      p,
		ValueSetter:   p,
		Navigator:     p,
		Screenshotter: p,
	}
}

// register assigns handles in the current generation. Caller holds p.mu.
func (p *Page) register(nodes []*html.Node) []model.Element {
	out := make([]model.Element, 0, len(nodes))
	for _, n := range nodes {
		h := model.Handle{Gen: p.gen, Index: len(p.nodes)}
		p.nodes = append(p.nodes, n)
		out = append(out, p.snapshot(n, h))
	}
	return out
}

// resolve maps a handle back to its node. Caller holds p.mu.
func (p *Page) resolve(h model.Handle) (*html.Node, error) {
	if h.Gen != p.gen || h.Index < 0 || h.Index >= len(p.nodes) {
		return nil, platform.ErrStaleHandle
	}
	return p.nodes[h.Index], nil
}

func (p *Page) snapshot(n *html.Node, h model.Handle) model.Element {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	visible := isVisible(n)
	el := model.Element{
		Handle:  h,
		Tag:     n.Data,
		Text:    p.doc.FindNodes(n).Text(),
		Attrs:   attrs,
		Visible: visible,
	}
	if visible {
		el.Bounds = p.layout(n)
	}
	return el
}

func (p *Page) layout(n *html.Node) [4]int {
	if !isVisible(n) {
		return [4]int{}
	}
	for _, a := range n.Attr {
		if a.Key == "data-bounds" {
			if b, err := platform.ParseBBox(a.Val); err == nil {
				return b.Array()
			}
		}
	}
	return [4]int{0, p.index[n] * rowHeight, rowWidth, rowHeight}
}

// isVisible mirrors offsetParent semantics: a node is laid out unless it or
// an ancestor is hidden or has display:none.
func isVisible(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if cur.Data == "input" && attr(cur, "type") == "hidden" {
			return false
		}
		for _, a := range cur.Attr {
			switch a.Key {
			case "hidden":
				return false
			case "style":
				style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
				if strings.Contains(style, "display:none") {
					return false
				}
			}
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
