// Package listapp simulates the list-membership screens of a social app on
// top of an htmldoc page. Views re-render on clicks and field input, and
// search results can lag behind the query to mimic asynchronous rendering.
package listapp

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/platform/htmldoc"
)

// Selectors describe the simulated markup, one set per role.
var Selectors = struct {
	EditList, Pivot, Suggested, Search   model.Descriptors
	Entry, Link, AddButton, RemoveButton model.Descriptors
}{
	EditList:     model.Descriptors{model.Contains("a span", "Edit List")},
	Pivot:        model.Descriptors{model.CSS(`[data-testid="pivot"] > div`)},
	Suggested:    model.Descriptors{model.CSS(`a[href*="suggested"]`), model.Contains("div", "Suggested")},
	Search:       model.Descriptors{model.CSS(`input[aria-label*="Search"]`), model.CSS(`#layers input`)},
	Entry:        model.Descriptors{model.CSS(`[data-testid="UserCell"]`)},
	Link:         model.Descriptors{model.CSS(`a[href]`)},
	AddButton:    model.Descriptors{model.CSS(`button[aria-label="Add"]`), model.HasDescendant("button", "span", "Add")},
	RemoveButton: model.Descriptors{model.CSS(`button[aria-label="Remove"]`), model.HasDescendant("button", "span", "Remove")},
}

// View is the screen currently rendered.
type View string

const (
	ViewList      View = "list"
	ViewEdit      View = "edit"
	ViewSuggested View = "suggested"
)

// Options shape the simulated application.
type Options struct {
	// Accounts are the identifiers search can find. Lookup ignores case;
	// results show the stored spelling.
	Accounts []string
	// Members start out already in the list.
	Members []string
	// ShowPivot renders the optional pivot control on the edit view.
	ShowPivot bool
	// NoEditLink hides the Edit List link so navigation fails.
	NoEditLink bool
	// FailAdd lists accounts whose add click is silently ignored.
	FailAdd []string
	// NoControls lists accounts rendered without add or remove controls.
	NoControls []string
	// ResultLag is the number of document queries a new search takes to
	// render. Until then the previous results stay on screen.
	ResultLag int
	// AddLag is the number of document queries an add takes to show up.
	AddLag int
	// StartView is the screen rendered first; the list view by default.
	StartView View
	// KeepStaleResults leaves the previous results on screen when the
	// field is cleared, so a new search briefly shows another account.
	KeepStaleResults bool
}

// App is a running simulation bound to one page.
type App struct {
	Page *htmldoc.Page

	mu         sync.Mutex
	opts       Options
	accounts   map[string]string // lower-case -> display spelling
	members    map[string]bool
	failAdd    map[string]bool
	noControls map[string]bool
	view       View
	pivoted    bool
	query      string // what the field holds
	shown      string // query whose results are rendered
	resultWait int
	pending    []pendingAdd
	adds       map[string]int
	searches   []string

	// OnSearch runs after each non-empty query is typed.
	OnSearch func(query string)
}

type pendingAdd struct {
	account string
	wait    int
}

// New renders the list view and wires the page hooks.
func New(opts Options) (*App, error) {
	a := &App{
		opts:       opts,
		accounts:   make(map[string]string),
		members:    make(map[string]bool),
		failAdd:    lowerSet(opts.FailAdd),
		noControls: lowerSet(opts.NoControls),
		adds:       make(map[string]int),
		view:       ViewList,
	}
	if opts.StartView != "" {
		a.view = opts.StartView
	}
	for _, acct := range opts.Accounts {
		a.accounts[strings.ToLower(acct)] = acct
	}
	for _, m := range opts.Members {
		a.members[strings.ToLower(m)] = true
	}
	page, err := htmldoc.New(a.render())
	if err != nil {
		return nil, err
	}
	a.Page = page
	page.BeforeQuery = a.tick
	page.OnClick = a.click
	page.OnInput = a.input
	page.OnNavigate = a.navigate
	return a, nil
}

// View returns the current screen.
func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// Members returns the list members, sorted.
func (a *App) Members() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for m := range a.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// AddClicks reports how many times the add control of account was pressed.
func (a *App) AddClicks(account string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.adds[strings.ToLower(account)]
}

// Searches returns every non-empty query typed, in order.
func (a *App) Searches() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.searches...)
}

// Pivoted reports whether the pivot control was pressed.
func (a *App) Pivoted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pivoted
}

func (a *App) tick() {
	a.mu.Lock()
	changed := false
	if a.shown != a.query {
		if a.resultWait <= 0 {
			a.shown = a.query
			changed = true
		} else {
			a.resultWait--
		}
	}
	kept := a.pending[:0]
	for _, p := range a.pending {
		if p.wait <= 0 {
			a.members[p.account] = true
			changed = true
			continue
		}
		p.wait--
		kept = append(kept, p)
	}
	a.pending = kept
	a.mu.Unlock()
	if changed {
		a.rerender()
	}
}

func (a *App) click(el model.Element) {
	a.mu.Lock()
	switch el.Attr("data-sim") {
	case "edit":
		a.view = ViewEdit
	case "pivot":
		a.pivoted = true
	case "suggested":
		if a.view == ViewEdit {
			a.view = ViewSuggested
		}
	case "add":
		acct := strings.ToLower(el.Attr("data-account"))
		a.adds[acct]++
		if !a.failAdd[acct] {
			a.pending = append(a.pending, pendingAdd{account: acct, wait: a.opts.AddLag})
		}
	case "remove":
		delete(a.members, strings.ToLower(el.Attr("data-account")))
	default:
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()
	a.rerender()
}

// input records the query. The field node itself is left in place and the
// results re-render on a later query, as a client-side framework would.
func (a *App) input(el model.Element, value string) {
	if el.Attr("data-sim") != "search" {
		return
	}
	a.mu.Lock()
	if value == "" {
		if !a.opts.KeepStaleResults {
			a.query = ""
			a.resultWait = 0
		}
		a.mu.Unlock()
		return
	}
	a.query = value
	a.resultWait = a.opts.ResultLag
	a.searches = append(a.searches, value)
	hook := a.OnSearch
	a.mu.Unlock()
	if hook != nil {
		hook(value)
	}
}

func (a *App) navigate(string) {
	a.mu.Lock()
	a.view = ViewList
	a.query, a.shown = "", ""
	a.mu.Unlock()
	a.rerender()
}

func (a *App) rerender() {
	a.mu.Lock()
	src := a.render()
	a.mu.Unlock()
	if err := a.Page.SetHTML(src); err != nil {
		panic(fmt.Sprintf("listapp: render: %v", err))
	}
}

// render builds the markup for the current state. Caller holds a.mu, except
// during construction.
func (a *App) render() string {
	var b strings.Builder
	b.WriteString("<html><body><main>\n")
	b.WriteString(`<h2>Launch list</h2>` + "\n")
	switch a.view {
	case ViewList:
		if !a.opts.NoEditLink {
			b.WriteString(`<a href="/i/lists/1/info" data-sim="edit"><span data-sim="edit">Edit List</span></a>` + "\n")
		}
	case ViewEdit:
		if a.opts.ShowPivot {
			b.WriteString(`<div data-testid="pivot"><div data-sim="pivot">Manage members</div></div>` + "\n")
		}
		b.WriteString(`<nav><a href="/i/lists/1/members">Members</a>` +
			`<a href="/i/lists/1/members/suggested" data-sim="suggested">Suggested</a></nav>` + "\n")
	case ViewSuggested:
		fmt.Fprintf(&b, `<div id="layers"><input aria-label="Search query" placeholder="Search people" data-sim="search" value="%s"></div>`+"\n",
			html.EscapeString(a.query))
		b.WriteString(`<section aria-label="Results">` + "\n")
		if acct, ok := a.accounts[strings.ToLower(a.shown)]; ok {
			a.renderEntry(&b, acct)
		}
		b.WriteString("</section>\n")
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

func (a *App) renderEntry(b *strings.Builder, acct string) {
	key := strings.ToLower(acct)
	esc := html.EscapeString(acct)
	fmt.Fprintf(b, `<div data-testid="UserCell"><a href="/%s"><span>%s</span></a>`, esc, esc)
	switch {
	case a.noControls[key]:
	case a.members[key]:
		fmt.Fprintf(b, `<button aria-label="Remove" data-sim="remove" data-account="%s"><span>Remove</span></button>`, esc)
	default:
		fmt.Fprintf(b, `<button aria-label="Add" data-sim="add" data-account="%s"><span>Add</span></button>`, esc)
	}
	b.WriteString("</div>\n")
}

func lowerSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[strings.ToLower(it)] = true
	}
	return m
}
