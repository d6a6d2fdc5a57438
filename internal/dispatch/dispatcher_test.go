package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/platform"
	"github.com/mj1618/list-import/internal/platform/htmldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClickPoint(t *testing.T) {
	box := platform.Bounds{X: 100, Y: 50, Width: 60, Height: 30}
	tests := []struct {
		name   string
		off    Offset
		wx, wy int
	}{
		{"inside", Offset{X: 8, Y: 6}, 108, 56},
		{"x beyond width", Offset{X: 80, Y: 6}, 130, 56},
		{"y beyond height", Offset{X: 8, Y: 40}, 108, 65},
		{"negative", Offset{X: -1, Y: -1}, 130, 65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := ClickPoint(box, tt.off)
			if x != tt.wx || y != tt.wy {
				t.Errorf("got (%d, %d), want (%d, %d)", x, y, tt.wx, tt.wy)
			}
		})
	}
}

const form = `<html><body>
<input aria-label="Search" data-bounds="10,10,200,30">
<button aria-label="Add" data-bounds="300,10,50,30">Add</button>
</body></html>`

func TestActivate_ClicksAtOffset(t *testing.T) {
	p, err := htmldoc.New(form)
	require.NoError(t, err)
	ctx := context.Background()

	var clicked []string
	p.OnClick = func(el model.Element) { clicked = append(clicked, el.Attr("aria-label")) }

	buttons, err := p.QueryAll(ctx, "button")
	require.NoError(t, err)

	d := New(p, p, 0, nil)
	require.NoError(t, d.Activate(ctx, buttons[0], Offset{X: 8, Y: 6}))

	assert.Equal(t, []string{"Add"}, clicked)
	events := p.Events()
	require.Len(t, events, 1)
	assert.Equal(t, 308, events[0].X)
	assert.Equal(t, 16, events[0].Y)
}

func TestActivate_StaleHandle(t *testing.T) {
	p, err := htmldoc.New(form)
	require.NoError(t, err)
	ctx := context.Background()

	buttons, err := p.QueryAll(ctx, "button")
	require.NoError(t, err)
	require.NoError(t, p.SetHTML(form))

	err = New(p, p, 0, nil).Activate(ctx, buttons[0], Offset{})
	assert.True(t, errors.Is(err, platform.ErrStaleHandle), "got %v", err)
	assert.Empty(t, p.Events())
}

func TestSetFieldValue_ClearsThenSets(t *testing.T) {
	p, err := htmldoc.New(form)
	require.NoError(t, err)
	ctx := context.Background()

	var values []string
	var stamps []time.Time
	p.OnInput = func(el model.Element, value string) {
		values = append(values, value)
		stamps = append(stamps, time.Now())
	}

	inputs, err := p.QueryAll(ctx, "input")
	require.NoError(t, err)

	d := New(p, p, 15*time.Millisecond, nil)
	require.NoError(t, d.SetFieldValue(ctx, inputs[0], "alice"))

	assert.Equal(t, []string{"", "alice"}, values)
	require.Len(t, stamps, 2)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 15*time.Millisecond)

	focused, ok := p.Focused()
	require.True(t, ok)
	assert.Equal(t, "Search", focused.Attr("aria-label"))
}

func TestSetFieldValue_CancelDuringPause(t *testing.T) {
	p, err := htmldoc.New(form)
	require.NoError(t, err)
	inputs, err := p.QueryAll(context.Background(), "input")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err = New(p, p, time.Second, nil).SetFieldValue(ctx, inputs[0], "alice")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
