package htmldoc

import (
	"fmt"

	"github.com/mj1618/list-import/internal/platform"
)

func init() {
	platform.Register("static", func(opts platform.Options) (*platform.Provider, error) {
		if opts.HTMLPath == "" {
			return nil, fmt.Errorf("static backend requires an HTML file (--html)")
		}
		page, err := Load(opts.HTMLPath)
		if err != nil {
			return nil, err
		}
		return page.Provider(), nil
	})
}
