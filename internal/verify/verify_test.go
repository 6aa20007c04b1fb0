package verify

import "testing"

func TestConsistency(t *testing.T) {
	tests := []struct {
		name     string
		computed string
		wantOK   bool
	}{
		{"plain decimal", "15.00", true},
		{"negative", "-3200000", true},
		{"integer", "0", true},
		{"garbage", "NaN-ish", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := Consistency("GROSS_MARGIN", tt.computed, nil)
			if check.OK != tt.wantOK {
				t.Errorf("OK: want %v, got %v", tt.wantOK, check.OK)
			}
			if check.Tolerance != DefaultTolerance {
				t.Errorf("tolerance: want %s, got %s", DefaultTolerance, check.Tolerance)
			}
		})
	}
}
