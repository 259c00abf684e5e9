package grid

import "math"

// Range is a half-open interval [Start, End) of row indices.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of rows in the range.
func (r Range) Len() int { return r.End - r.Start }

// VisibleRange returns the rows to materialize in a scrolling viewport,
// padded by buffer rows on both sides. The result always satisfies
// 0 <= Start <= End <= total. A non-positive row height yields an empty range.
func VisibleRange(total int, offset, viewport, rowHeight float64, buffer int) Range {
	if total <= 0 || rowHeight <= 0 {
		return Range{}
	}
	offset = max(offset, 0)
	viewport = max(viewport, 0)
	buffer = max(buffer, 0)

	start := max(0, int(math.Floor(offset/rowHeight))-buffer)
	end := min(total, int(math.Ceil((offset+viewport)/rowHeight))+buffer)
	if start > total {
		start = total
	}
	if end < start {
		end = start
	}
	return Range{Start: start, End: end}
}

// ScrollHeight is the height of the full scrollable body.
func ScrollHeight(total int, rowHeight float64) float64 {
	if total <= 0 || rowHeight <= 0 {
		return 0
	}
	return float64(total) * rowHeight
}

// OffsetTop is the vertical position of the first materialized row.
func OffsetTop(r Range, rowHeight float64) float64 {
	if rowHeight <= 0 {
		return 0
	}
	return float64(r.Start) * rowHeight
}
