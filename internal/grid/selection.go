package grid

import (
	"fmt"
	"slices"
)

// SelectionMode controls how many rows may be selected.
type SelectionMode int

const (
	SelectMultiple SelectionMode = iota
	SelectSingle
	SelectDisabled
)

var selectionModeNames = []string{"multiple", "single", "none"}

func (m SelectionMode) String() string {
	if m >= 0 && int(m) < len(selectionModeNames) {
		return selectionModeNames[m]
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m SelectionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string means multiple.
func (m *SelectionMode) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*m = SelectMultiple
		return nil
	}
	i := slices.Index(selectionModeNames, string(b))
	if i < 0 {
		return fmt.Errorf("%w: unknown selection mode %q", ErrInvalidConfig, b)
	}
	*m = SelectionMode(i)
	return nil
}

// TriState is the select-all checkbox state.
type TriState string

const (
	TriNone TriState = "none"
	TriSome TriState = "some"
	TriAll  TriState = "all"
)

// Selection tracks selected row identifiers. The zero value is an empty
// multi-selection. Selection is not safe for concurrent use; Table guards it.
type Selection struct {
	mode  SelectionMode
	ids   map[string]struct{}
	order []string // insertion order, for stable output
}

// NewSelection returns an empty selection in the given mode.
func NewSelection(mode SelectionMode) *Selection {
	return &Selection{mode: mode}
}

// Mode returns the selection mode.
func (s *Selection) Mode() SelectionMode { return s.mode }

// IsSelected reports whether id is selected.
func (s *Selection) IsSelected(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids in the order they were selected.
func (s *Selection) IDs() []string {
	return slices.Clone(s.order)
}

// Toggle flips id's membership and reports whether it is now selected.
// In single mode selecting id evicts any previous member. Disabled
// selections never change.
func (s *Selection) Toggle(id string) bool {
	if s.mode == SelectDisabled {
		return false
	}
	if s.IsSelected(id) {
		s.remove(id)
		return false
	}
	if s.mode == SelectSingle {
		s.DeselectAll()
	}
	s.add(id)
	return true
}

// SelectAll selects every id in visible. In single mode only the first
// visible id is kept.
func (s *Selection) SelectAll(visible []string) {
	switch s.mode {
	case SelectDisabled:
		return
	case SelectSingle:
		s.DeselectAll()
		if len(visible) > 0 {
			s.add(visible[0])
		}
		return
	}
	for _, id := range visible {
		s.add(id)
	}
}

// DeselectAll empties the selection.
func (s *Selection) DeselectAll() {
	clear(s.ids)
	s.order = s.order[:0]
}

// Deselect removes id and reports whether it was selected.
func (s *Selection) Deselect(id string) bool {
	if !s.IsSelected(id) {
		return false
	}
	s.remove(id)
	return true
}

// TriState reports how many of the visible ids are selected. Selected ids
// that are not visible do not count.
func (s *Selection) TriState(visible []string) TriState {
	if len(visible) == 0 || len(s.ids) == 0 {
		return TriNone
	}
	n := 0
	for _, id := range visible {
		if s.IsSelected(id) {
			n++
		}
	}
	switch {
	case n == 0:
		return TriNone
	case n == len(visible):
		return TriAll
	default:
		return TriSome
	}
}

// Retain drops every selected id for which keep returns false and reports
// whether anything was dropped.
func (s *Selection) Retain(keep func(id string) bool) bool {
	before := len(s.order)
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		if keep(id) {
			return false
		}
		delete(s.ids, id)
		return true
	})
	return len(s.order) != before
}

func (s *Selection) add(id string) {
	if s.IsSelected(id) {
		return
	}
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Selection) remove(id string) {
	delete(s.ids, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}
