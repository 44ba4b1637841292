package utils

import (
	"errors"
	"testing"
)

func TestParseNonNegative(t *testing.T) {
	cases := []struct {
		s       string
		def     int
		want    int
		wantErr bool
	}{
		// empty -> default
		{"", 0, 0, false},
		{"   ", 7, 7, false},
		// valid ints
		{"42", 0, 42, false},
		{"0", 9, 0, false},
		{"0012", 99, 12, false},
		{" 100 ", 0, 100, false},
		// rejected
		{"-1", 0, 0, true},
		{"x", 5, 0, true},
		{"1.5", 0, 0, true},
		// overflow
		{"999999999999999999999999", 0, 0, true},
	}

	for _, tc := range cases {
		got, err := ParseNonNegative(tc.s, tc.def)
		if tc.wantErr {
			if !errors.Is(err, ErrNotNonNegative) {
				t.Fatalf("ParseNonNegative(%q) err = %v; want ErrNotNonNegative", tc.s, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseNonNegative(%q, %d) = (%d, %v); want %d", tc.s, tc.def, got, err, tc.want)
		}
	}
}
