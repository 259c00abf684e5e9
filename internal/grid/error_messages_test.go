package grid

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"nil", nil, ""},
		{"wrapped invalid column", fmt.Errorf("sorting: %w", ErrInvalidColumn), "GRID001"},
		{"row shape", fmt.Errorf("row 3: %w", ErrRowShape), "CFG003"},
		{"duplicate id", ErrDuplicateRowID, "CFG004"},
		{"closed", ErrClosed, "GRID015"},
		{"unknown", errors.New("boom"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.code {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got, tt.code)
			}
		})
	}
}

func TestMapError_EverySentinelMapped(t *testing.T) {
	for _, m := range errorMappings {
		if m.msg.Message == "" || m.msg.Code == "" {
			t.Errorf("mapping for %v is incomplete: %+v", m.target, m.msg)
		}
		if got := MapError(m.target); got != m.msg {
			t.Errorf("MapError(%v) = %+v, want %+v", m.target, got, m.msg)
		}
	}
}
