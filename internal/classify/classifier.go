// Package classify decides, from the currently rendered search results,
// whether one identifier can be added, is already present, or cannot be
// determined.
package classify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mj1618/list-import/internal/locator"
	"github.com/mj1618/list-import/internal/model"
	"go.uber.org/zap"
)

// State is the membership state of one identifier.
type State int

const (
	Indeterminate State = iota
	Addable
	AlreadyPresent
)

func (s State) String() string {
	switch s {
	case Addable:
		return "addable"
	case AlreadyPresent:
		return "already-present"
	default:
		return "indeterminate"
	}
}

// MarshalText renders the state by name in YAML and JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is one classification. Button is the control matching State and
// is zero for Indeterminate.
type Result struct {
	State  State         `yaml:"state"            json:"state"`
	Entry  model.Element `yaml:"entry,omitempty"  json:"entry"`
	Button model.Element `yaml:"button,omitempty" json:"button"`
}

// Selectors are the descriptors the classifier reads. IdentityLink,
// AddControl and RemoveControl are evaluated inside a result entry.
type Selectors struct {
	Entries       model.Descriptors
	IdentityLink  model.Descriptors
	AddControl    model.Descriptors
	RemoveControl model.Descriptors
}

// Validate rejects empty descriptor sets.
func (s Selectors) Validate() error {
	for _, f := range []struct {
		name  string
		descs model.Descriptors
	}{
		{"entries", s.Entries},
		{"identity link", s.IdentityLink},
		{"add control", s.AddControl},
		{"remove control", s.RemoveControl},
	} {
		if err := f.descs.Validate(); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

// Classifier reads result entries through a Locator.
type Classifier struct {
	loc    *locator.Locator
	sel    Selectors
	logger *zap.Logger
}

// New returns a Classifier.
func New(loc *locator.Locator, sel Selectors, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{loc: loc, sel: sel, logger: logger.With(zap.String("component", "classify"))}
}

// Classify polls the first visible result entry until it belongs to id and
// exposes an add or remove control. A result left over from an earlier
// search never matches, so the poll simply continues past it.
//
// If a matching entry was seen but never showed either control, the result
// is Indeterminate with a nil error. If no matching entry appeared at all,
// the error is a *locator.TimeoutError for the entry descriptors.
func (c *Classifier) Classify(ctx context.Context, id string, timeout time.Duration) (Result, error) {
	var (
		res  Result
		seen bool
	)
	err := c.loc.Poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		entry, ok, err := c.matchingEntry(ctx, id)
		if err != nil || !ok {
			return false, err
		}
		seen = true
		res = Result{State: Indeterminate, Entry: entry}

		if btn, ok, err := c.loc.ProbeWithin(ctx, entry.Handle, c.sel.AddControl); err != nil {
			return false, err
		} else if ok {
			res.State, res.Button = Addable, btn
			return true, nil
		}
		if btn, ok, err := c.loc.ProbeWithin(ctx, entry.Handle, c.sel.RemoveControl); err != nil {
			return false, err
		} else if ok {
			res.State, res.Button = AlreadyPresent, btn
			return true, nil
		}
		return false, nil
	})
	if err == nil {
		c.logger.Debug("classified", zap.String("id", id), zap.Stringer("state", res.State))
		return res, nil
	}
	var te *locator.TimeoutError
	if !errors.As(err, &te) {
		return Result{}, err
	}
	if seen {
		c.logger.Debug("no control on matching entry", zap.String("id", id))
		return Result{State: Indeterminate, Entry: res.Entry}, nil
	}
	te.Descriptors = c.sel.Entries
	return Result{}, te
}

// VerifyTransition polls until the entry for id exposes the remove
// control. Running out of time is reported as false, not as an error.
func (c *Classifier) VerifyTransition(ctx context.Context, id string, timeout time.Duration) bool {
	err := c.loc.Poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		entry, ok, err := c.matchingEntry(ctx, id)
		if err != nil || !ok {
			return false, err
		}
		_, ok, err = c.loc.ProbeWithin(ctx, entry.Handle, c.sel.RemoveControl)
		return ok, err
	})
	if err != nil {
		c.logger.Debug("transition not observed", zap.String("id", id), zap.Error(err))
		return false
	}
	return true
}

// matchingEntry returns the first visible result entry if its identity
// link names id.
func (c *Classifier) matchingEntry(ctx context.Context, id string) (model.Element, bool, error) {
	entry, ok, err := c.loc.Probe(ctx, c.sel.Entries)
	if err != nil || !ok {
		return model.Element{}, false, err
	}
	link, ok, err := c.loc.ProbeWithin(ctx, entry.Handle, c.sel.IdentityLink)
	if err != nil || !ok {
		return model.Element{}, false, err
	}
	got := IdentifierFromLink(link.Attr("href"))
	if !strings.EqualFold(got, id) {
		c.logger.Debug("entry belongs to another identifier", zap.String("want", id), zap.String("got", got))
		return model.Element{}, false, nil
	}
	return entry, true, nil
}

// IdentifierFromLink extracts the account identifier from a profile link:
// the last non-empty path segment of href.
func IdentifierFromLink(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	return segs[len(segs)-1]
}
