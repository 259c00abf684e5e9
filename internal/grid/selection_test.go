package grid

import (
	"reflect"
	"testing"
)

func TestSelection_TriState(t *testing.T) {
	visible := []string{"1", "2", "3"}

	s := NewSelection(SelectMultiple)
	if got := s.TriState(visible); got != TriNone {
		t.Errorf("empty TriState = %v, want %v", got, TriNone)
	}

	s.Toggle("2")
	if got := s.TriState(visible); got != TriSome {
		t.Errorf("one selected TriState = %v, want %v", got, TriSome)
	}

	s.SelectAll(visible)
	if got := s.TriState(visible); got != TriAll {
		t.Errorf("all selected TriState = %v, want %v", got, TriAll)
	}

	s.DeselectAll()
	if got := s.TriState(visible); got != TriNone {
		t.Errorf("after DeselectAll TriState = %v, want %v", got, TriNone)
	}
}

func TestSelection_HiddenRowsDoNotCount(t *testing.T) {
	s := NewSelection(SelectMultiple)
	s.SelectAll([]string{"1", "2", "3"})

	// Row 3 filtered out: still selected, but tri-state only sees 1 and 2.
	if got := s.TriState([]string{"1", "2"}); got != TriAll {
		t.Errorf("TriState = %v, want %v", got, TriAll)
	}
	if !s.IsSelected("3") {
		t.Error("hidden row 3 lost its selection")
	}
	if got := s.TriState([]string{"4"}); got != TriNone {
		t.Errorf("TriState over unselected = %v, want %v", got, TriNone)
	}
	if got := s.TriState(nil); got != TriNone {
		t.Errorf("TriState over nothing = %v, want %v", got, TriNone)
	}
}

func TestSelection_SingleMode(t *testing.T) {
	s := NewSelection(SelectSingle)

	s.Toggle("1")
	s.Toggle("2")
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("IDs = %v, want [2]", got)
	}

	s.SelectAll([]string{"5", "6", "7"})
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"5"}) {
		t.Errorf("after SelectAll IDs = %v, want [5]", got)
	}

	if s.Toggle("5") {
		t.Error("Toggle of selected row reported selected")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestSelection_Disabled(t *testing.T) {
	s := NewSelection(SelectDisabled)
	s.Toggle("1")
	s.SelectAll([]string{"1", "2"})
	if s.Len() != 0 {
		t.Errorf("disabled selection holds %d ids, want 0", s.Len())
	}
}

func TestSelection_ZeroValue(t *testing.T) {
	var s Selection
	if !s.Toggle("a") {
		t.Fatal("Toggle on zero Selection did not select")
	}
	if !s.IsSelected("a") {
		t.Error("IsSelected(a) = false, want true")
	}
}

func TestSelection_Retain(t *testing.T) {
	s := NewSelection(SelectMultiple)
	s.SelectAll([]string{"1", "2", "3"})

	dropped := s.Retain(func(id string) bool { return id != "2" })
	if !dropped {
		t.Error("Retain reported nothing dropped")
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Errorf("IDs = %v, want [1 3]", got)
	}
	if s.Retain(func(string) bool { return true }) {
		t.Error("Retain keeping everything reported a drop")
	}
}
