package callout

import "testing"

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{2_500_000, "2.5M"},
		{1_000_000, "1.0M"},
		{45_300, "45.3K"},
		{1_000, "1.0K"},
		{999, "999"},
		{42.7, "43"},
		{1, "1"},
		{0.5, "0.50"},
		{0, "0.00"},
	}
	for _, c := range cases {
		if got := FormatNumber(c.in); got != c.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRawValuePreservesPrecision(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{14.01, "14.01"},
		{1234567.89, "1234567.89"},
		{100, "100"},
	}
	for _, c := range cases {
		if got := rawValue(c.in); got != c.want {
			t.Errorf("rawValue(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
