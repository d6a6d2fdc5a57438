// Package dispatch performs user-originated interactions on located
// elements. Effects are only observable through later renders, so callers
// re-poll instead of trusting any immediate state.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/platform"
	"go.uber.org/zap"
)

// Offset is a point relative to an element's top-left corner.
type Offset struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Dispatcher turns element handles into pointer and field input.
type Dispatcher struct {
	inputter   platform.Inputter
	setter     platform.ValueSetter
	clearPause time.Duration
	logger     *zap.Logger
}

// New returns a Dispatcher. clearPause separates the clear and set halves
// of SetFieldValue.
func New(inputter platform.Inputter, setter platform.ValueSetter, clearPause time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		inputter:   inputter,
		setter:     setter,
		clearPause: clearPause,
		logger:     logger.With(zap.String("component", "dispatch")),
	}
}

// Activate clicks el at offset from the top-left of its current box. The
// box is re-read first because the element may have moved since it was
// located. An offset falling outside the box is replaced by the box centre.
func (d *Dispatcher) Activate(ctx context.Context, el model.Element, off Offset) error {
	box, err := d.inputter.Bounds(ctx, el.Handle)
	if err != nil {
		return fmt.Errorf("activate %s: %w", el.Tag, err)
	}
	if box.Empty() {
		return fmt.Errorf("activate %s: element has no layout box", el.Tag)
	}
	x, y := ClickPoint(box, off)
	d.logger.Debug("activate", zap.String("tag", el.Tag), zap.Int("x", x), zap.Int("y", y))
	if err := d.inputter.Click(ctx, x, y); err != nil {
		return fmt.Errorf("activate %s: %w", el.Tag, err)
	}
	return nil
}

// ClickPoint returns the viewport point Activate presses for box and off.
func ClickPoint(box platform.Bounds, off Offset) (int, int) {
	x, y := box.X+off.X, box.Y+off.Y
	if off.X < 0 || off.X >= box.Width {
		x = box.X + box.Width/2
	}
	if off.Y < 0 || off.Y >= box.Height {
		y = box.Y + box.Height/2
	}
	return x, y
}

// SetFieldValue focuses the field, clears it, pauses, then sets text. The
// two-step write makes consumers that diff against the previous value see
// a change even when text equals the stale value.
func (d *Dispatcher) SetFieldValue(ctx context.Context, field model.Element, text string) error {
	if err := d.setter.Focus(ctx, field.Handle); err != nil {
		return fmt.Errorf("focus field: %w", err)
	}
	if err := d.setter.SetValue(ctx, field.Handle, ""); err != nil {
		return fmt.Errorf("clear field: %w", err)
	}
	if d.clearPause > 0 {
		t := time.NewTimer(d.clearPause)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := d.setter.SetValue(ctx, field.Handle, text); err != nil {
		return fmt.Errorf("set field: %w", err)
	}
	d.logger.Debug("field set", zap.String("value", text))
	return nil
}

// Focus moves keyboard focus to el.
func (d *Dispatcher) Focus(ctx context.Context, el model.Element) error {
	if err := d.setter.Focus(ctx, el.Handle); err != nil {
		return fmt.Errorf("focus %s: %w", el.Tag, err)
	}
	return nil
}
