package grid

import (
	"reflect"
	"testing"

	"golang.org/x/text/language"
)

func TestSortRows_CaseInsensitiveScenario(t *testing.T) {
	cols, rows := people()

	got := names(SortRows(rows, []SortCriterion{{Column: 1, Direction: Asc}}, cols))
	want := []string{"ann", "Bob", "Cara"}
	if !equalStrings(got, want) {
		t.Errorf("SortRows(name asc) = %v, want %v", got, want)
	}

	got = names(SortRows(rows, []SortCriterion{{Column: 1, Direction: Desc}}, cols))
	want = []string{"Cara", "Bob", "ann"}
	if !equalStrings(got, want) {
		t.Errorf("SortRows(name desc) = %v, want %v", got, want)
	}
}

func TestSortRows_NumericWhenBothParse(t *testing.T) {
	cols := []Column{NewColumn("Qty", TypeString), NewColumn("Label", TypeString)}
	rows := []Row{Strings("10", "a"), Strings("9", "b"), Strings("$1,000", "c"), Strings("x", "d")}

	got := SortRows(rows, []SortCriterion{{Column: 0, Direction: Asc}}, cols)
	var order []string
	for _, r := range got {
		order = append(order, r[1].Text())
	}
	// Numbers compare numerically; "x" falls back to text against each of them.
	want := []string{"b", "a", "c", "d"}
	if !equalStrings(order, want) {
		t.Errorf("SortRows numeric = %v, want %v", order, want)
	}
}

func TestSortRows_NullsFirst(t *testing.T) {
	cols := []Column{NewColumn("N", TypeNumber)}
	rows := []Row{Values(2), {Null()}, Values(1)}

	asc := SortRows(rows, []SortCriterion{{Column: 0, Direction: Asc}}, cols)
	if !asc[0][0].IsNull() {
		t.Errorf("asc first = %v, want null", asc[0][0])
	}

	desc := SortRows(rows, []SortCriterion{{Column: 0, Direction: Desc}}, cols)
	if !desc[2][0].IsNull() {
		t.Errorf("desc last = %v, want null", desc[2][0])
	}
}

func TestSortRows_Stable(t *testing.T) {
	cols := []Column{NewColumn("Group", TypeString), NewColumn("Seq", TypeNumber)}
	rows := []Row{Values("a", 1), Values("A", 2), Values("a", 3), Values("A", 4)}

	got := SortRows(rows, []SortCriterion{{Column: 0, Direction: Desc}}, cols)
	for i, r := range got {
		if seq, _ := r[1].Float(); int(seq) != i+1 {
			t.Fatalf("row %d has seq %v, want input order preserved", i, seq)
		}
	}
}

func TestSortRows_MultiKey(t *testing.T) {
	cols := []Column{NewColumn("Group", TypeString), NewColumn("N", TypeNumber)}
	rows := []Row{Values("A", 2), Values("B", 1), Values("A", 1), Values("B", 3)}

	got := SortRows(rows, []SortCriterion{
		{Column: 0, Direction: Asc},
		{Column: 1, Direction: Desc},
	}, cols)

	want := []Row{Values("A", 2), Values("A", 1), Values("B", 3), Values("B", 1)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortRows multi-key = %v, want %v", got, want)
	}
}

func TestSortRows_DateColumnsChronological(t *testing.T) {
	cols := []Column{NewColumn("When", TypeDate)}
	rows := []Row{Strings("Jan 2, 2024"), Strings("2023-12-31"), Strings("12/30/2023")}

	got := SortRows(rows, []SortCriterion{{Column: 0, Direction: Asc}}, cols)
	want := []string{"12/30/2023", "2023-12-31", "Jan 2, 2024"}
	var order []string
	for _, r := range got {
		order = append(order, r[0].Text())
	}
	if !equalStrings(order, want) {
		t.Errorf("SortRows(date) = %v, want %v", order, want)
	}
}

func TestSortRows_DoesNotMutateInput(t *testing.T) {
	cols, rows := people()
	before := names(rows)

	_ = SortRows(rows, []SortCriterion{{Column: 1, Direction: Asc}}, cols)
	if !equalStrings(names(rows), before) {
		t.Errorf("input rows changed to %v", names(rows))
	}
}

func TestSortRows_IgnoresUnknownColumns(t *testing.T) {
	cols, rows := people()

	got := names(SortRows(rows, []SortCriterion{{Column: 9, Direction: Asc}}, cols))
	if !equalStrings(got, names(rows)) {
		t.Errorf("SortRows(unknown column) = %v, want input order", got)
	}
}

func TestSortRowsIn_Locale(t *testing.T) {
	cols := []Column{NewColumn("Word", TypeString)}
	rows := []Row{Strings("zebra"), Strings("Äpfel"), Strings("apple")}

	got := SortRowsIn(language.German, rows, []SortCriterion{{Column: 0, Direction: Asc}}, cols)
	if got[2][0].Text() != "zebra" {
		t.Errorf("SortRowsIn(de) last = %q, want zebra", got[2][0].Text())
	}
}

func TestNextSort(t *testing.T) {
	a := SortCriterion{Column: 0, Direction: Asc}
	bDesc := SortCriterion{Column: 1, Direction: Desc}

	tests := []struct {
		name     string
		criteria []SortCriterion
		col      int
		mod      Modifier
		want     []SortCriterion
	}{
		{"unsorted column becomes primary", nil, 0, ModNone, []SortCriterion{a}},
		{"primary toggles", []SortCriterion{a}, 0, ModNone, []SortCriterion{{Column: 0, Direction: Desc}}},
		{"primary toggle drops tie-breakers", []SortCriterion{a, bDesc}, 0, ModNone, []SortCriterion{{Column: 0, Direction: Desc}}},
		{"secondary replaces all", []SortCriterion{a, bDesc}, 1, ModNone, []SortCriterion{{Column: 1, Direction: Asc}}},
		{"shift appends", []SortCriterion{a}, 1, ModShift, []SortCriterion{a, {Column: 1, Direction: Asc}}},
		{"shift toggles in place", []SortCriterion{a, bDesc}, 1, ModShift, []SortCriterion{a, {Column: 1, Direction: Asc}}},
		{"ctrl removes", []SortCriterion{a, bDesc}, 0, ModCtrl, []SortCriterion{bDesc}},
		{"ctrl on unsorted is no-op", []SortCriterion{a}, 2, ModCtrl, []SortCriterion{a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]SortCriterion(nil), tt.criteria...)
			got := NextSort(tt.criteria, tt.col, tt.mod)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NextSort = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(in, tt.criteria) {
				t.Errorf("NextSort modified its input: %v", tt.criteria)
			}
		})
	}
}

func TestModifier_UnmarshalText(t *testing.T) {
	tests := map[string]Modifier{"": ModNone, "shift": ModShift, "ctrl": ModCtrl, "meta": ModCtrl, "cmd": ModCtrl}
	for in, want := range tests {
		var m Modifier
		if err := m.UnmarshalText([]byte(in)); err != nil {
			t.Fatalf("UnmarshalText(%q) error: %v", in, err)
		}
		if m != want {
			t.Errorf("UnmarshalText(%q) = %v, want %v", in, m, want)
		}
	}

	var m Modifier
	if err := m.UnmarshalText([]byte("alt")); err == nil {
		t.Error("UnmarshalText(alt) succeeded, want error")
	}
}
