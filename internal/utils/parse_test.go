package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s       string
		def     int
		want    int
		wantErr bool
	}{
		// empty -> default
		{"", 10, 10, false},
		{"   ", 3, 3, false},
		// valid ints
		{"42", 0, 42, false},
		{"-13", 1, -13, false},
		{"0012", 99, 12, false},
		// invalid -> error (no trim)
		{"x", 5, 0, true},
		{" 42", 7, 0, true},
		{"1.5", 7, 0, true},
		// overflow -> error
		{"999999999999999999999999", -1, 0, true},
	}

	for _, tc := range cases {
		got, err := AtoiDefault(tc.s, tc.def)
		if (err != nil) != tc.wantErr {
			t.Fatalf("AtoiDefault(%q, %d) err = %v; wantErr %v", tc.s, tc.def, err, tc.wantErr)
		}
		if !tc.wantErr && got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestParseID(t *testing.T) {
	good := map[string]uint{"0": 0, "1": 1, "42": 42, "007": 7}
	for in, want := range good {
		got, err := ParseID(in)
		if err != nil || got != want {
			t.Fatalf("ParseID(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"", "-1", "+1", "abc", "1e3", "99999999999999999999999"} {
		if _, err := ParseID(in); err == nil {
			t.Fatalf("ParseID(%q) expected error", in)
		}
	}
}
