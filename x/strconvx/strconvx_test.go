package strconvx

import "testing"

func TestItoa(t *testing.T) {
	for v, want := range map[int]string{0: "0", 7: "7", -3: "-3", 180: "180", 6336: "6336"} {
		if got := Itoa(v); got != want {
			t.Fatalf("Itoa(%d) = %q, want %q", v, got, want)
		}
	}
}

func TestLeadingInt(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"90", 90},
		{"  45", 45},
		{"+12", 12},
		{"-3", -3},
		{"-", 0},
		{"12ab", 12},
		{"1 2", 1},
		{"999", 999},
		{"99999999999", maxInt32},
		{"-99999999999", minInt32},
	}
	for _, c := range cases {
		if got := LeadingInt(c.in); got != c.want {
			t.Fatalf("LeadingInt(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
