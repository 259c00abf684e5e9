package grid

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"42", 42, true},
		{" -3.5 ", -3.5, true},
		{"$1,200.50", 1200.5, true},
		{"€99", 99, true},
		{"(12.00)", -12, true},
		{"1e3", 1000, true},
		{".5", 0.5, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1e999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("ParseNumber(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-01-15", "2024-01-15T22:10:00Z", "Jan 15, 2024", "1/15/2024"} {
		got, ok := ParseDate(in)
		if !ok {
			t.Errorf("ParseDate(%q) failed", in)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "   ", "tomorrow-ish"} {
		if _, ok := ParseDate(in); ok {
			t.Errorf("ParseDate(%q) succeeded, want failure", in)
		}
	}
}

func TestCell_Accessors(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	moment := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cell     Cell
		text     string
		num      float64
		numOK    bool
		nullWant bool
	}{
		{"null", Null(), "", 0, false, true},
		{"string number", Str("1,000"), "1,000", 1000, true, false},
		{"number", Num(2.5), "2.5", 2.5, true, false},
		{"integer", CellOf(7), "7", 7, true, false},
		{"bool", Bool(true), "true", 0, false, false},
		{"date", Time(day), "2024-03-01", 0, false, false},
		{"timestamp", Time(moment), "2024-03-01T09:30:00Z", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cell.Text(); got != tt.text {
				t.Errorf("Text = %q, want %q", got, tt.text)
			}
			n, ok := tt.cell.Float()
			if ok != tt.numOK || n != tt.num {
				t.Errorf("Float = %v, %v, want %v, %v", n, ok, tt.num, tt.numOK)
			}
			if got := tt.cell.IsNull(); got != tt.nullWant {
				t.Errorf("IsNull = %v, want %v", got, tt.nullWant)
			}
		})
	}
}

func TestCell_JSON(t *testing.T) {
	var r Row
	if err := json.Unmarshal([]byte(`[1, "ann", null, true]`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := Row{Num(1), Str("ann"), Null(), Bool(true)}
	for i := range want {
		if !r[i].Equal(want[i]) {
			t.Errorf("cell %d = %v, want %v", i, r[i], want[i])
		}
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `[1,"ann",null,true]` {
		t.Errorf("Marshal = %s", out)
	}

	if err := json.Unmarshal([]byte(`[{"a":1}]`), &r); !errors.Is(err, ErrRowShape) {
		t.Errorf("Unmarshal(object cell) error = %v, want %v", err, ErrRowShape)
	}
}
