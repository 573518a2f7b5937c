package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/scaled"
)

func TestParseDimen(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want scaled.Scaled
	}{
		{"12pt", 12 * pt},
		{"12", 12 * pt},
		{"-3pt", -3 * pt},
		{"0.5pt", pt / 2},
		{"1in", 4736286},
		{"1pc", 12 * pt},
		{"65536sp", pt},
		{".25pt", pt / 4},
	} {
		got, err := ParseDimen(tc.in)
		if err != nil {
			t.Fatalf("ParseDimen(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseDimen(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "pt", "12furlong", "20000pt"} {
		if _, err := ParseDimen(bad); !errors.Is(err, ErrBadLength) {
			t.Errorf("ParseDimen(%q) err = %v", bad, err)
		}
	}
}

func TestParseGlue(t *testing.T) {
	g, err := ParseGlue("12pt plus 1fil minus 2pt")
	if err != nil {
		t.Fatalf("ParseGlue: %v", err)
	}
	if g.Width != 12*pt || g.Stretch != pt || g.StretchOrder != node.Fil || g.Shrink != 2*pt || g.ShrinkOrder != node.Normal {
		t.Fatalf("glue = %+v", g)
	}
	g, err = ParseGlue("0pt minus 1fill")
	if err != nil {
		t.Fatalf("ParseGlue: %v", err)
	}
	if g.Stretch != 0 || g.Shrink != pt || g.ShrinkOrder != node.Fill {
		t.Fatalf("glue = %+v", g)
	}
	for _, bad := range []string{"", "1pt plus", "1pt minus 2pt plus 3pt", "1pt extra 2pt"} {
		if _, err := ParseGlue(bad); !errors.Is(err, ErrBadLength) {
			t.Errorf("ParseGlue(%q) err = %v", bad, err)
		}
	}
}

func TestToMM(t *testing.T) {
	if got := ToMM(7227 * pt / 100); math.Abs(got-25.4) > 1e-5 {
		t.Fatalf("1in = %gmm", got)
	}
	if diff := math.Abs(PtToMm*MmToPt - 1); diff > 1e-12 {
		t.Fatalf("conversion constants disagree by %g", diff)
	}
}
