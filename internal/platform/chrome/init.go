package chrome

import "github.com/mj1618/list-import/internal/platform"

func init() {
	platform.Register("chrome", func(opts platform.Options) (*platform.Provider, error) {
		b, err := New(opts)
		if err != nil {
			return nil, err
		}
		return b.Provider(), nil
	})
}
