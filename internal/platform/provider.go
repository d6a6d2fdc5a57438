package platform

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Provider bundles the backends for one browser session.
type Provider struct {
	Document      Document
	Inputter      Inputter
	ValueSetter   ValueSetter
	Navigator     Navigator     // optional
	Screenshotter Screenshotter // optional

	closeFn func() error
}

// SetCloser registers the function Close runs. Backends call it once.
func (p *Provider) SetCloser(fn func() error) {
	p.closeFn = fn
}

// Close releases the backend session.
func (p *Provider) Close() error {
	if p == nil || p.closeFn == nil {
		return nil
	}
	return p.closeFn()
}

// Options configures backend construction. Backends ignore fields that do
// not apply to them.
type Options struct {
	RemoteURL    string // attach to a running browser's DevTools endpoint
	ExecPath     string // browser binary to launch
	UserDataDir  string // persistent profile directory
	Headless     bool
	WindowWidth  int
	WindowHeight int
	HTMLPath     string // static HTML file (htmldoc backend)
	Logger       *zap.Logger
}

// NewProviderFunc constructs a Provider for one backend.
type NewProviderFunc func(opts Options) (*Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]NewProviderFunc{}
)

// Register makes a backend available under name. Backends call it from init().
func Register(name string, fn NewProviderFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider returns a Provider from the named backend.
func NewProvider(name string, opts Options) (*Provider, error) {
	registryMu.RLock()
	fn, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %v)", name, Backends())
	}
	return fn(opts)
}
