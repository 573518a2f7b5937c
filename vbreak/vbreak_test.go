package vbreak

import (
	"errors"
	"testing"

	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/pack"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
)

const pt = scaled.Unity

func box(h, d scaled.Scaled) *node.Box {
	b := node.NewHList()
	b.Width = 50 * pt
	b.Height = h
	b.Depth = d
	return b
}

func glue(w scaled.Scaled) *node.Glue {
	return node.NewGlue(node.NewSpec(w, 0, node.Normal, 0, node.Normal))
}

func TestVertBreakExactFit(t *testing.T) {
	g1, g2, g3, g4 := glue(2*pt), glue(2*pt), glue(2*pt), glue(2*pt)
	list := node.Chain(box(10*pt, 0), g1, box(10*pt, 0), g2, box(10*pt, 0), g3, box(10*pt, 0), g4, box(10*pt, 0))
	brk, err := VertBreak(list, 34*pt, 2*pt)
	if err != nil {
		t.Fatalf("VertBreak: %v", err)
	}
	if brk.Node != g3 {
		t.Fatalf("break at %v, want the third glue", brk.Node)
	}
	if brk.HeightPlusDepth != 34*pt || brk.Cost != 0 {
		t.Fatalf("height %s cost %d", brk.HeightPlusDepth, brk.Cost)
	}
}

func TestVertBreakForced(t *testing.T) {
	pen := node.NewPenalty(scaled.EjectPenalty)
	list := node.Chain(box(10*pt, 0), pen, box(10*pt, 0))
	brk, err := VertBreak(list, 100*pt, 0)
	if err != nil {
		t.Fatalf("VertBreak: %v", err)
	}
	if brk.Node != pen || brk.Cost != scaled.EjectPenalty {
		t.Fatalf("got %+v", brk)
	}
}

func TestVertBreakAtEnd(t *testing.T) {
	list := node.Chain(box(10*pt, 0), glue(2*pt), box(10*pt, 3*pt))
	brk, err := VertBreak(list, 100*pt, 5*pt)
	if err != nil {
		t.Fatalf("VertBreak: %v", err)
	}
	if brk.Node != nil {
		t.Fatalf("break at %v, want end of list", brk.Node)
	}
	if brk.HeightPlusDepth != 25*pt {
		t.Fatalf("height plus depth = %s", brk.HeightPlusDepth)
	}
}

func TestVertBreakInfiniteShrink(t *testing.T) {
	list := node.Chain(box(10*pt, 0), node.NewGlue(node.NewSpec(0, 0, node.Normal, pt, node.Fil)), box(10*pt, 0))
	if _, err := VertBreak(list, 15*pt, 0); !errors.Is(err, ErrInfiniteShrink) {
		t.Fatalf("err = %v", err)
	}
}

func TestVSplitReportsInfiniteShrink(t *testing.T) {
	p := params.New()
	rec := &diag.Recorder{}
	s := &Splitter{Params: p, Packer: pack.New(p, rec)}
	bad := node.NewGlue(node.NewSpec(0, 0, node.Normal, pt, node.Fil))
	v, _, err := s.Packer.Vpack(node.Chain(box(10*pt, 0), bad, box(10*pt, 0)), pack.Natural, pack.Additional, scaled.MaxDimen)
	if err != nil {
		t.Fatalf("Vpack: %v", err)
	}
	p.SetBox(7, v)
	if _, _, err := s.VSplit(7, 15*pt); !errors.Is(err, ErrInfiniteShrink) {
		t.Fatalf("err = %v", err)
	}
	if n := rec.Count(diag.InfiniteShrink); n != 1 {
		t.Fatalf("infinite shrink events = %d, want 1", n)
	}
}

func TestCost(t *testing.T) {
	tests := []struct {
		b, pi, want int
	}{
		{0, 0, 0},
		{100, 50, 150},
		{scaled.InfBad, 0, scaled.Deplorable},
		{scaled.AwfulBad, -50, scaled.AwfulBad},
		{500, scaled.EjectPenalty, scaled.EjectPenalty},
	}
	for _, tt := range tests {
		if got := Cost(tt.b, tt.pi); got != tt.want {
			t.Errorf("Cost(%d, %d) = %d, want %d", tt.b, tt.pi, got, tt.want)
		}
	}
}

func TestPrunePageTop(t *testing.T) {
	m := &node.Mark{Text: "m"}
	b := box(4*pt, 0)
	tail := glue(pt)
	list := node.Chain(glue(5*pt), node.NewPenalty(0), m, node.NewKern(pt), b, tail)
	got, err := PrunePageTop(list, node.NewSpec(10*pt, 0, node.Normal, 0, node.Normal))
	if err != nil {
		t.Fatalf("PrunePageTop: %v", err)
	}
	nodes := node.Slice(got)
	if len(nodes) != 4 || nodes[0] != m || nodes[2] != b || nodes[3] != tail {
		t.Fatalf("pruned list = %s", node.Dump(got))
	}
	g, ok := nodes[1].(*node.Glue)
	if !ok || g.Subtype != node.SplitTopSkipGlue || g.Spec.Width != 6*pt {
		t.Fatalf("split top glue = %v", nodes[1])
	}
}

func TestPrunePageTopTallBox(t *testing.T) {
	got, err := PrunePageTop(box(12*pt, 0), node.NewSpec(10*pt, 0, node.Normal, 0, node.Normal))
	if err != nil {
		t.Fatalf("PrunePageTop: %v", err)
	}
	if g := got.(*node.Glue); g.Spec.Width != 0 {
		t.Fatalf("split top glue = %s", g.Spec.Width)
	}
}

func newSplitter() *Splitter {
	p := params.New()
	return &Splitter{Params: p, Packer: pack.New(p, nil)}
}

func TestVSplit(t *testing.T) {
	s := newSplitter()
	m1 := &node.Mark{Text: "m1"}
	list := node.Chain(
		box(10*pt, 0), glue(2*pt), &node.Mark{Text: "m0"}, box(10*pt, 0),
		glue(2*pt), m1, box(10*pt, 0), glue(2*pt), box(10*pt, 0),
	)
	v, _, err := s.Packer.Vpack(list, pack.Natural, pack.Additional, scaled.MaxDimen)
	if err != nil {
		t.Fatalf("Vpack: %v", err)
	}
	s.Params.SetBox(100, v)

	out, marks, err := s.VSplit(100, 22*pt)
	if err != nil {
		t.Fatalf("VSplit: %v", err)
	}
	if out.Height != 22*pt || node.Len(out.List) != 4 {
		t.Fatalf("split off %s", node.Dump(out))
	}
	if !marks.Found || marks.First != "m0" || marks.Bot != "m0" {
		t.Fatalf("marks = %+v", marks)
	}
	rest := s.Params.Box(100)
	if rest == nil || rest.List != m1 {
		t.Fatalf("remainder does not start with the next mark")
	}
	// \splittopskip 10pt less the 10pt box leaves no glue width.
	if rest.Height != 22*pt {
		t.Fatalf("remainder height = %s", rest.Height)
	}
}

func TestVSplitWholeBox(t *testing.T) {
	s := newSplitter()
	v, _, _ := s.Packer.Vpack(node.Chain(box(10*pt, 0), glue(2*pt), box(10*pt, 0)), pack.Natural, pack.Additional, scaled.MaxDimen)
	s.Params.SetBox(1, v)
	out, _, err := s.VSplit(1, 100*pt)
	if err != nil {
		t.Fatalf("VSplit: %v", err)
	}
	if out.Height != 100*pt || s.Params.Box(1) != nil {
		t.Fatalf("whole box not taken")
	}
}

func TestVSplitVoidAndHBox(t *testing.T) {
	s := newSplitter()
	if out, _, err := s.VSplit(5, 10*pt); out != nil || err != nil {
		t.Fatalf("void box: %v %v", out, err)
	}
	s.Params.SetBox(6, node.NewHList())
	if _, _, err := s.VSplit(6, 10*pt); !errors.Is(err, ErrNotVBox) {
		t.Fatalf("err = %v", err)
	}
}
