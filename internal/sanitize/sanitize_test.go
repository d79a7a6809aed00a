package sanitize

import (
	"strings"
	"testing"
)

func TestSegment_IllegalCharacters(t *testing.T) {
	got := Segment(`a\b/c:d*e?f"g<h>i|j`)
	want := "a_b_c_d_e_f_g_h_i_j"
	if got != want {
		t.Errorf("Segment = %q, want %q", got, want)
	}
}

func TestSegment_NewlinesBecomeUnderscores(t *testing.T) {
	got := Segment("line\none\rtwo")
	if strings.ContainsAny(got, "\n\r") {
		t.Errorf("output still contains newline characters: %q", got)
	}
}

func TestSegment_RemovesOnlyFirstWhitespace(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Getting Started", "GettingStarted"},
		{"A B C", "AB C"},
		{" leading", "leading"},
		{"NoSpaces", "NoSpaces"},
		{"tab\there now", "tabhere now"},
	}
	for _, c := range cases {
		if got := Segment(c.in); got != c.want {
			t.Errorf("Segment(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSegment_Deterministic(t *testing.T) {
	in := `Weird: Title / With * Every? "Char" <here> | and space`
	first := Segment(in)
	for range 5 {
		if got := Segment(in); got != first {
			t.Fatalf("Segment not deterministic: %q vs %q", got, first)
		}
	}
	if strings.ContainsAny(first, "\\/:*?\"<>|\n\r") {
		t.Errorf("illegal characters survived: %q", first)
	}
}

func TestSegment_Empty(t *testing.T) {
	if got := Segment(""); got != "" {
		t.Errorf("Segment(\"\") = %q, want empty", got)
	}
}
