package parser

import "testing"

func TestParseMonto(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1000", 1000, false},
		{"0", 0, false},
		{"-500", -500, false},
		{"1.234.567", 1234567, false},
		{"1.234", 1234, false},
		{"123", 123, false},
		{"1234,5", 1234.5, false},
		{"1.234.567,89", 1234567.89, false},
		{" 1000 ", 1000, false},
		{"", 0, true},
		{"   ", 0, true},
		{"no disponible", 0, true},
		{"1,234.56", 0, true},   // US-style grouping
		{"12.34", 0, true},      // dot groups must be 3 digits
		{"1.2345", 0, true},     // malformed grouping
		{"$1000", 0, true},      // currency sign
		{"1 000", 0, true},      // space separator
		{"1e6", 0, true},        // scientific notation
		{"1000,", 0, true},      // trailing comma
		{"--5", 0, true},
		{"1.234,5,6", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMonto(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseMonto(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMonto(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseMonto(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
