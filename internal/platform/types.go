package platform

import (
	"fmt"
	"strconv"
	"strings"
)

// Bounds represents a viewport rectangle.
type Bounds struct {
	X, Y, Width, Height int
}

// Array returns the bounds in the [x, y, w, h] layout used by model.Element.
func (b Bounds) Array() [4]int {
	return [4]int{b.X, b.Y, b.Width, b.Height}
}

// Empty reports whether the box has no area.
func (b Bounds) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// ParseBBox parses a "x,y,w,h" string into a Bounds.
func ParseBBox(s string) (*Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid bbox %q: expected x,y,w,h", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		vals[i] = v
	}
	return &Bounds{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}
