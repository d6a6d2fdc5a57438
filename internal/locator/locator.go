// Package locator finds transient elements in an asynchronously rendered
// document by polling an ordered set of descriptors until one yields a
// visible match.
package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/platform"
	"go.uber.org/zap"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 100 * time.Millisecond

// ErrTimeout matches every *TimeoutError.
var ErrTimeout = errors.New("locate timeout")

// TimeoutError reports that no descriptor produced a visible match in time.
type TimeoutError struct {
	Descriptors model.Descriptors
	Timeout     time.Duration
	LastErr     error // last document error seen while polling, if any
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("no visible element for [%s] within %s", e.Descriptors, e.Timeout)
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.LastErr)
	}
	return msg
}

// Is makes errors.Is(err, ErrTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Unwrap exposes the last document error.
func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// Locator polls a Document. It holds no element state between calls.
type Locator struct {
	doc      platform.Document
	interval time.Duration
	logger   *zap.Logger
}

// New returns a Locator polling doc every interval.
func New(doc platform.Document, interval time.Duration, logger *zap.Logger) *Locator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{doc: doc, interval: interval, logger: logger.With(zap.String("component", "locator"))}
}

// Locate polls until a descriptor yields a visible element or timeout
// elapses. Descriptors are tried in order on every pass; the first visible
// match of the first matching descriptor wins.
func (l *Locator) Locate(ctx context.Context, descs model.Descriptors, timeout time.Duration) (model.Element, error) {
	var found model.Element
	err := l.Poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		el, ok, err := l.Probe(ctx, descs)
		if err != nil {
			return false, err
		}
		if ok {
			found = el
		}
		return ok, nil
	})
	if err != nil {
		var te *TimeoutError
		if errors.As(err, &te) {
			te.Descriptors = descs
		}
		l.logger.Debug("locate failed", zap.Stringer("descriptors", descs), zap.Error(err))
		return model.Element{}, err
	}
	return found, nil
}

// Probe makes a single pass over descs without waiting.
func (l *Locator) Probe(ctx context.Context, descs model.Descriptors) (model.Element, bool, error) {
	var lastErr error
	for _, d := range descs {
		matches, err := l.Match(ctx, d)
		if err != nil {
			if ctx.Err() != nil {
				return model.Element{}, false, ctx.Err()
			}
			lastErr = err
			continue
		}
		if len(matches) > 0 {
			return matches[0], true, nil
		}
	}
	return model.Element{}, false, lastErr
}

// Match returns every visible node matching d anywhere in the document.
func (l *Locator) Match(ctx context.Context, d model.Descriptor) ([]model.Element, error) {
	base, err := l.doc.QueryAll(ctx, d.Selector)
	if err != nil {
		return nil, err
	}
	return l.refine(ctx, base, d)
}

// MatchWithin returns every visible descendant of parent matching d.
func (l *Locator) MatchWithin(ctx context.Context, parent model.Handle, d model.Descriptor) ([]model.Element, error) {
	base, err := l.doc.QueryWithin(ctx, parent, d.Selector)
	if err != nil {
		return nil, err
	}
	return l.refine(ctx, base, d)
}

// ProbeWithin returns the first visible descendant of parent matching any
// of descs, trying them in order.
func (l *Locator) ProbeWithin(ctx context.Context, parent model.Handle, descs model.Descriptors) (model.Element, bool, error) {
	for _, d := range descs {
		matches, err := l.MatchWithin(ctx, parent, d)
		if err != nil {
			return model.Element{}, false, err
		}
		if len(matches) > 0 {
			return matches[0], true, nil
		}
	}
	return model.Element{}, false, nil
}

// refine applies the visibility, text and descendant filters of d.
func (l *Locator) refine(ctx context.Context, base []model.Element, d model.Descriptor) ([]model.Element, error) {
	candidates := model.FilterByText(model.FilterVisible(base), d.Text)
	if d.Has == "" {
		return candidates, nil
	}
	var out []model.Element
	for _, el := range candidates {
		kids, err := l.doc.QueryWithin(ctx, el.Handle, d.Has)
		if err != nil {
			return nil, err
		}
		if len(kids) > 0 {
			out = append(out, el)
		}
	}
	return out, nil
}

// Poll calls check every interval until it reports done, ctx ends, or
// timeout elapses. check always runs at least once. Errors from check are
// retried; the last one is attached to the resulting *TimeoutError.
func (l *Locator) Poll(ctx context.Context, timeout time.Duration, check func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		done, err := check(ctx)
		if done {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			lastErr = err
		}
		if !time.Now().Before(deadline) {
			return &TimeoutError{Timeout: timeout, LastErr: lastErr}
		}
		wait := l.interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
