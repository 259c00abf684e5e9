package grid

import (
	"testing"
	"time"
)

func TestFormatter_Format(t *testing.T) {
	f := FormatterFor("en-US")

	tests := []struct {
		name string
		cell Cell
		dt   DataType
		want string
	}{
		{"number grouping", Num(1234.5), TypeNumber, "1,234.5"},
		{"number from text", Str("2500"), TypeNumber, "2,500"},
		{"money", Num(1234.5), TypeMoney, "$1,234.50"},
		{"negative money", Num(-3), TypeMoney, "-$3.00"},
		{"date", Str("2024-01-15T10:00:00Z"), TypeDate, "2024-01-15"},
		{"datetime", Time(time.Date(2024, 1, 15, 10, 5, 0, 0, time.UTC)), TypeDateTime, "2024-01-15 10:05"},
		{"bool yes", Bool(true), TypeBoolean, "Yes"},
		{"bool text", Str("false"), TypeBoolean, "No"},
		{"mail passthrough", Str("a@b.co"), TypeMail, "a@b.co"},
		{"unparseable number falls back", Str("n/a"), TypeNumber, "n/a"},
		{"null", Null(), TypeMoney, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Format(tt.cell, tt.dt); got != tt.want {
				t.Errorf("Format(%v, %s) = %q, want %q", tt.cell, tt.dt, got, tt.want)
			}
		})
	}
}

func TestFormatterFor_Memoized(t *testing.T) {
	if FormatterFor("de-DE") != FormatterFor("de-DE") {
		t.Error("FormatterFor returned different formatters for one locale")
	}
	if got := FormatterFor("de-DE").Number(1234.5, NumberOptions{MaxFractionDigits: 2}); got != "1.234,5" {
		t.Errorf("de-DE Number = %q, want %q", got, "1.234,5")
	}
}

func TestFormatterFor_UnknownLocale(t *testing.T) {
	f := FormatterFor("not a locale!")
	if got := f.Number(1000, NumberOptions{}); got != "1,000" {
		t.Errorf("fallback Number = %q, want %q", got, "1,000")
	}
}
