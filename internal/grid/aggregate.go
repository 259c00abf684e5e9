package grid

import "math"

// Aggregate summarizes one numeric column over the filtered rows.
// Cells that do not parse as numbers are skipped and counted in Skipped.
type Aggregate struct {
	Column  int     `json:"columnIndex"`
	Count   int     `json:"count"`
	Skipped int     `json:"skipped"`
	Sum     float64 `json:"sum"`
	Avg     float64 `json:"avg"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// AggregateColumn computes the summary of column col over rows.
func AggregateColumn(rows []Row, col int) Aggregate {
	a := Aggregate{Column: col, Min: math.Inf(1), Max: math.Inf(-1)}
	for _, r := range rows {
		v, ok := cellAt(r, col).Float()
		if !ok {
			a.Skipped++
			continue
		}
		a.Count++
		a.Sum += v
		a.Min = min(a.Min, v)
		a.Max = max(a.Max, v)
	}
	if a.Count == 0 {
		a.Min, a.Max = 0, 0
		return a
	}
	a.Avg = a.Sum / float64(a.Count)
	return a
}

// Aggregations summarizes every number and money column over the filtered
// rows, in original column order. In server mode only the loaded page is
// summarized.
func (t *Table) Aggregations() []Aggregate {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Aggregate
	for i, c := range t.columns {
		if c.Type == TypeNumber || c.Type == TypeMoney {
			out = append(out, AggregateColumn(t.filtered, i))
		}
	}
	return out
}
