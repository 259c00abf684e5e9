package grid

import (
	"fmt"
	"math"
	"slices"
)

// Column widths used when neither the state nor the column has one.
const (
	DefaultColumnWidth = 150
	MinColumnWidth     = 40
)

// GestureKind identifies a pointer-driven column gesture.
type GestureKind int

const (
	GestureNone GestureKind = iota
	GestureResize
	GestureReorder
)

func (k GestureKind) String() string {
	switch k {
	case GestureResize:
		return "resize"
	case GestureReorder:
		return "reorder"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k GestureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *GestureKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "none":
		*k = GestureNone
	case "resize":
		*k = GestureResize
	case "reorder":
		*k = GestureReorder
	default:
		return fmt.Errorf("%w: unknown gesture %q", ErrInvalidConfig, b)
	}
	return nil
}

// Gesture is the in-flight column drag of one table. A table holds at most
// one; the zero value means no gesture.
//
// Resize gestures track the pointer's x position against the width the
// column had when the drag began. Reorder gestures track the visual
// position the column would be dropped at.
type Gesture struct {
	Kind   GestureKind `json:"kind"`
	Column int         `json:"columnIndex"`

	StartX     float64 `json:"startX,omitempty"`
	StartWidth int     `json:"startWidth,omitempty"`
	Width      int     `json:"width,omitempty"`

	From   int `json:"from,omitempty"`
	Target int `json:"target,omitempty"`
}

// Active reports whether a gesture is in flight.
func (g Gesture) Active() bool { return g.Kind != GestureNone }

// resizeTo returns the width for pointer position x, never below MinColumnWidth.
func (g Gesture) resizeTo(x float64) int {
	w := g.StartWidth + int(math.Round(x-g.StartX))
	return max(w, MinColumnWidth)
}

// moveColumn returns order with the entry at visual position from moved to
// position to. Positions are clamped to the slice.
func moveColumn(order []int, from, to int) []int {
	out := slices.Clone(order)
	if len(out) == 0 {
		return out
	}
	from = min(max(from, 0), len(out)-1)
	to = min(max(to, 0), len(out)-1)
	if from == to {
		return out
	}
	col := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, col)
}

// isPermutation reports whether order holds every index in [0, n) exactly once.
func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, c := range order {
		if c < 0 || c >= n || seen[c] {
			return false
		}
		seen[c] = true
	}
	return true
}
