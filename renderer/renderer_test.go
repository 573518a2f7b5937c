package renderer

import (
	"testing"

	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/scaled"
)

const pt = scaled.Unity

type glyph struct {
	c    rune
	x, y scaled.Scaled
}

type rule struct{ x, y, w, h scaled.Scaled }

type recorder struct {
	glyphs []glyph
	rules  []rule
}

func (r *recorder) Glyph(_ int, c rune, x, y scaled.Scaled) {
	r.glyphs = append(r.glyphs, glyph{c, x, y})
}

func (r *recorder) Rule(x, y, w, h scaled.Scaled) {
	r.rules = append(r.rules, rule{x, y, w, h})
}

func TestStretchedLine(t *testing.T) {
	line := node.NewHList()
	line.Width, line.Height = 100*pt, 10*pt
	line.List = node.Chain(
		node.NewChar(0, 'a', 10*pt, 10*pt, 0),
		node.NewGlue(node.NewSpec(0, 10*pt, node.Normal, 0, node.Normal)),
		node.NewChar(0, 'b', 10*pt, 10*pt, 0),
	)
	line.GlueSign, line.GlueOrder, line.GlueSet = node.SignStretching, node.Normal, 8
	var r recorder
	Walk(line, &r)
	want := []glyph{{'a', 0, 10 * pt}, {'b', 90 * pt, 10 * pt}}
	if len(r.glyphs) != len(want) {
		t.Fatalf("glyphs = %v", r.glyphs)
	}
	for i := range want {
		if r.glyphs[i] != want[i] {
			t.Errorf("glyph %d = %v, want %v", i, r.glyphs[i], want[i])
		}
	}
}

func TestShrunkGlueRoundsCumulatively(t *testing.T) {
	line := node.NewHList()
	line.Width = 3 * pt
	var nodes []node.Node
	for i := 0; i < 3; i++ {
		nodes = append(nodes,
			node.NewGlue(node.NewSpec(2*pt, 0, node.Normal, 1, node.Normal)),
			node.NewChar(0, 'x', 0, 0, 0))
	}
	line.List = node.Chain(nodes...)
	line.GlueSign, line.GlueOrder, line.GlueSet = node.SignShrinking, node.Normal, 0.5
	var r recorder
	Walk(line, &r)
	// Each glue shrinks by half a scaled point; the rounding is carried.
	want := []scaled.Scaled{2*pt - 1, 4*pt - 1, 6*pt - 2}
	for i, g := range r.glyphs {
		if g.x != want[i] {
			t.Errorf("glyph %d at %d, want %d", i, g.x, want[i])
		}
	}
}

func TestRulesInVList(t *testing.T) {
	rl := node.NewRule()
	rl.Height, rl.Depth = 2*pt, 0
	inner := node.NewHList()
	inner.Width, inner.Height, inner.Depth, inner.Shift = 20*pt, 5*pt, pt, 3*pt
	short := node.NewRule()
	short.Width = 4 * pt
	inner.List = short
	pg := node.NewVList()
	pg.Width, pg.Height = 50*pt, 30*pt
	pg.List = node.Chain(node.NewKern(10*pt), rl, inner)
	var r recorder
	Walk(pg, &r)
	want := []rule{
		{0, 10 * pt, 50 * pt, 2 * pt},
		{3 * pt, 12 * pt, 4 * pt, 6 * pt},
	}
	if len(r.rules) != len(want) {
		t.Fatalf("rules = %v", r.rules)
	}
	for i := range want {
		if r.rules[i] != want[i] {
			t.Errorf("rule %d = %v, want %v", i, r.rules[i], want[i])
		}
	}
}

func TestBoxLeaders(t *testing.T) {
	dot := node.NewHList()
	dot.Width, dot.Height = 4*pt, pt
	dot.List = node.NewChar(0, '.', 4*pt, pt, 0)
	tests := []struct {
		name    string
		subtype node.GlueSubtype
		want    []scaled.Scaled
	}{
		{"aligned", node.ALeaders, []scaled.Scaled{0, 4 * pt, 8 * pt}},
		// The leftover space includes the ten scaled points of slack.
		{"centered", node.CLeaders, []scaled.Scaled{pt + 5, 5*pt + 5, 9*pt + 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := node.NewParamGlue(node.NewSpec(14*pt, 0, node.Normal, 0, node.Normal), tt.subtype)
			g.Leader = node.CopyList(dot)
			line := node.NewHList()
			line.Width, line.Height = 14*pt, pt
			line.List = g
			var r recorder
			Walk(line, &r)
			if len(r.glyphs) != len(tt.want) {
				t.Fatalf("glyphs = %v", r.glyphs)
			}
			for i, x := range tt.want {
				if got := r.glyphs[i].x; got != x {
					t.Errorf("dot %d at %s, want %s", i, got, x)
				}
			}
		})
	}
}
