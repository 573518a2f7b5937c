package page

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
)

const pt = scaled.Unity

func box(h scaled.Scaled) *node.Box {
	b := node.NewHList()
	b.Width = 100 * pt
	b.Height = h
	return b
}

type shipped struct {
	pages []*node.Box
}

func (s *shipped) Ship(_ context.Context, page *node.Box) error {
	s.pages = append(s.pages, page)
	return nil
}

func newBuilder(out OutputRoutine) (*Builder, *shipped, *node.Pool) {
	p := params.New()
	p.SetDimen(params.VSize, 30*pt)
	pool := node.NewPool(0)
	s := &shipped{}
	return New(p, nil, pool, out, s, nil), s, pool
}

func TestExactPageGoal(t *testing.T) {
	rec := &diag.Recorder{}
	b, s, _ := newBuilder(nil)
	b.Reporter = rec
	b.Params.SetInt(params.TracingPages, 1)
	b1, b2, b3, b4 := box(10*pt), box(10*pt), box(10*pt), box(10*pt)
	p3 := node.NewPenalty(0)
	b.Contributions().Append(node.Chain(b1, node.NewPenalty(0), b2, node.NewPenalty(0), b3, p3, b4, node.NewPenalty(0)))
	if err := b.BuildPage(context.Background()); err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if len(s.pages) != 1 {
		t.Fatalf("shipped %d pages, want 1", len(s.pages))
	}
	page := s.pages[0]
	if page.Height != 30*pt {
		t.Fatalf("page height %s, want 30.0", page.Height)
	}
	if page.GlueSign != node.SignNormal {
		t.Errorf("page glue sign %v, want normal", page.GlueSign)
	}
	if last := node.Last(page.List); last != b3 {
		t.Fatalf("page ends with %v, want the third box", last)
	}
	if got := b.Params.Int(params.OutputPenalty); got != 0 {
		t.Errorf("outputpenalty %d, want 0", got)
	}
	if p3.Penalty != scaled.InfPenalty {
		t.Errorf("break penalty left at %d", p3.Penalty)
	}
	found := false
	for _, e := range rec.Events {
		if strings.Contains(e.Message, "t=30.0 g=30.0 b=0 p=0 c=0#") {
			found = true
		}
	}
	if !found {
		t.Errorf("no zero-cost break traced in %d events", len(rec.Events))
	}
	// The fourth box starts the next page.
	if b.Contents() != BoxThere || b.Total() != 10*pt {
		t.Fatalf("next page contents %v total %s", b.Contents(), b.Total())
	}
	if err := b.Finish(context.Background()); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if b.Pages() != 2 || len(s.pages) != 2 {
		t.Fatalf("pages %d, shipped %d, want 2", b.Pages(), len(s.pages))
	}
	if b.Contributions().Head != nil || b.Contents() != Empty {
		t.Errorf("material left after Finish")
	}
}

func TestTopSkip(t *testing.T) {
	for _, tc := range []struct {
		name  string
		first scaled.Scaled
		want  scaled.Scaled
	}{
		{"short", 4 * pt, 6 * pt},
		{"tall", 12 * pt, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b, s, _ := newBuilder(nil)
			b.Contributions().Append(node.Chain(box(tc.first), node.NewPenalty(scaled.EjectPenalty)))
			if err := b.BuildPage(context.Background()); err != nil {
				t.Fatalf("BuildPage: %v", err)
			}
			if len(s.pages) != 1 {
				t.Fatalf("shipped %d pages", len(s.pages))
			}
			g, ok := s.pages[0].List.(*node.Glue)
			if !ok || g.Subtype != node.TopSkipGlue {
				t.Fatalf("page starts with %v, want topskip glue", s.pages[0].List)
			}
			if g.Spec.Width != tc.want {
				t.Errorf("topskip %s, want %s", g.Spec.Width, tc.want)
			}
		})
	}
}

func TestDiscardablesAtPageTop(t *testing.T) {
	b, _, _ := newBuilder(nil)
	first := box(10 * pt)
	b.Contributions().Append(node.Chain(node.NewGlue(node.FilGlue), node.NewKern(5*pt), node.NewPenalty(-50), first))
	if err := b.BuildPage(context.Background()); err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if g, ok := b.page.Head.(*node.Glue); !ok || g.Subtype != node.TopSkipGlue {
		t.Fatalf("page starts with %v", b.page.Head)
	}
	if b.page.Head.Next() != first {
		t.Fatalf("discardable items survived at the top of the page")
	}
}

func TestOutputRoutine(t *testing.T) {
	extra := box(7 * pt)
	var calls int
	out := OutputFunc(func(ctx context.Context, o *Output) error {
		calls++
		if o.Penalty != 0 {
			t.Errorf("output penalty %d, want 0", o.Penalty)
		}
		o.Params().SetDimen(params.VSize, 500*pt)
		page := o.Page()
		if page == nil || page.Height != 30*pt {
			t.Fatalf("box255 = %v", page)
		}
		o.Contribute(extra)
		return o.Ship(ctx, page)
	})
	b, s, _ := newBuilder(out)
	b.Contributions().Append(node.Chain(box(10*pt), node.NewPenalty(0), box(10*pt), node.NewPenalty(0),
		box(10*pt), node.NewPenalty(0), box(10*pt), node.NewPenalty(0)))
	if err := b.BuildPage(context.Background()); err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if calls != 1 || len(s.pages) != 1 || b.Pages() != 1 {
		t.Fatalf("calls %d, shipped %d, pages %d", calls, len(s.pages), b.Pages())
	}
	if got := b.Params.Dimen(params.VSize); got != 30*pt {
		t.Errorf("vsize %s leaked out of the output routine", got)
	}
	if b.Params.Box(PageBox) != nil {
		t.Errorf("box255 not void")
	}
	// Material from the output routine goes ahead of the rest.
	if b.page.Head.Next() != extra {
		t.Fatalf("page continues with %v, want the output material", b.page.Head.Next())
	}
	if b.Total() != 20*pt {
		t.Errorf("total %s, want 20.0", b.Total())
	}
}

func TestOutputLeavesBox255(t *testing.T) {
	b, _, _ := newBuilder(OutputFunc(func(context.Context, *Output) error { return nil }))
	b.Contributions().Append(node.Chain(box(10*pt), node.NewPenalty(scaled.EjectPenalty)))
	err := b.BuildPage(context.Background())
	if !errors.Is(err, ErrBox255NotVoid) {
		t.Fatalf("err = %v, want ErrBox255NotVoid", err)
	}
}

func TestBox255AlreadySet(t *testing.T) {
	b, _, pool := newBuilder(nil)
	setupClass(b.Params, 100)
	b.Params.SetBox(PageBox, node.NewVList())
	b.Contributions().Append(node.Chain(box(10*pt), insertion(100, 5*pt)))
	if err := b.BuildPage(context.Background()); err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if pool.InUse() != node.PageInsSize {
		t.Fatalf("arena in use %d, want one insertion record", pool.InUse())
	}
	b.Contributions().Append(node.NewPenalty(scaled.EjectPenalty))
	if err := b.BuildPage(context.Background()); !errors.Is(err, ErrBox255NotVoid) {
		t.Fatalf("err = %v, want ErrBox255NotVoid", err)
	}
	if pool.InUse() != 0 {
		t.Errorf("arena in use %d after the error", pool.InUse())
	}
}

func TestDeadCycles(t *testing.T) {
	calls := 0
	b, _, _ := newBuilder(OutputFunc(func(_ context.Context, o *Output) error {
		calls++
		node.Flush(o.Page())
		return nil
	}))
	b.Params.SetInt(params.MaxDeadCycles, 3)
	b.Contributions().Append(box(10 * pt))
	err := b.Finish(context.Background())
	if !errors.Is(err, ErrOutputLoop) {
		t.Fatalf("err = %v, want ErrOutputLoop", err)
	}
	if calls != 3 {
		t.Errorf("output routine ran %d times, want 3", calls)
	}
}

func TestMarks(t *testing.T) {
	type marks struct{ top, first, bot string }
	str := func(s *string) string {
		if s == nil {
			return "<nil>"
		}
		return *s
	}
	var got []marks
	b, _, _ := newBuilder(OutputFunc(func(ctx context.Context, o *Output) error {
		top, first, bot := o.Marks()
		got = append(got, marks{str(top), str(first), str(bot)})
		return o.Ship(ctx, o.Page())
	}))
	eject := func() node.Node { return node.NewPenalty(scaled.EjectPenalty) }
	b.Contributions().Append(node.Chain(
		&node.Mark{Text: "a"}, box(10*pt), node.NewPenalty(0), &node.Mark{Text: "b"}, box(10*pt), eject(),
		&node.Mark{Text: "c"}, box(10*pt), eject(),
		box(10*pt), eject(),
	))
	if err := b.BuildPage(context.Background()); err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	want := []marks{
		{"<nil>", "a", "b"},
		{"b", "c", "c"},
		{"c", "c", "c"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d pages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("page %d marks %+v, want %+v", i+1, got[i], want[i])
		}
	}
}

func insertion(class int, heights ...scaled.Scaled) *node.Ins {
	var l node.List
	var total scaled.Scaled
	for i, h := range heights {
		if i > 0 {
			l.Append(node.NewGlue(node.NewSpec(2*pt, 0, node.Normal, 0, node.Normal)))
			total += 2 * pt
		}
		l.Append(box(h))
		total += h
	}
	return &node.Ins{Class: class, Height: total, List: l.Head}
}

func setupClass(p *params.Store, n int) {
	p.SetCount(n, 1000)
	p.SetDimenReg(n, 1000*pt)
}

func TestInsertFits(t *testing.T) {
	b, s, pool := newBuilder(nil)
	setupClass(b.Params, 100)
	b.Params.SetSkip(100, node.NewSpec(3*pt, 0, node.Normal, 0, node.Normal))
	ins := insertion(100, 5*pt)
	b.Contributions().Append(node.Chain(box(10*pt), ins))
	if err := b.BuildPage(context.Background()); err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if b.Goal() != 22*pt {
		t.Fatalf("goal %s, want 22.0", b.Goal())
	}
	if pool.InUse() != node.PageInsSize {
		t.Fatalf("arena in use %d", pool.InUse())
	}
	b.Contributions().Append(node.NewPenalty(scaled.EjectPenalty))
	if err := b.BuildPage(context.Background()); err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if len(s.pages) != 1 {
		t.Fatalf("shipped %d pages", len(s.pages))
	}
	for n := s.pages[0].List; n != nil; n = n.Next() {
		if _, ok := n.(*node.Ins); ok {
			t.Fatalf("insertion left on the page")
		}
	}
	got := b.Params.Box(100)
	if got == nil || got.Height != 5*pt {
		t.Fatalf("box100 = %v", got)
	}
	if pool.InUse() != 0 {
		t.Errorf("arena in use %d after the page", pool.InUse())
	}
}

func TestInsertSplit(t *testing.T) {
	b, s, _ := newBuilder(nil)
	setupClass(b.Params, 100)
	ins := insertion(100, 8*pt, 8*pt, 8*pt, 8*pt)
	if ins.Height != 38*pt {
		t.Fatalf("insertion height %s", ins.Height)
	}
	b.Contributions().Append(node.Chain(box(10*pt), ins, node.NewPenalty(scaled.EjectPenalty)))
	if err := b.BuildPage(context.Background()); err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if len(s.pages) != 1 {
		t.Fatalf("shipped %d pages", len(s.pages))
	}
	split := b.Params.Box(100)
	if split == nil || split.Height != 18*pt {
		t.Fatalf("box100 = %v, want 18pt high", split)
	}
	held, ok := b.page.Head.(*node.Ins)
	if !ok || held != ins {
		t.Fatalf("next page starts with %v, want the held insertion", b.page.Head)
	}
	if held.Height != 20*pt {
		t.Fatalf("remainder %s, want 20.0", held.Height)
	}
	if split.Height+held.Height != 38*pt {
		t.Errorf("split %s + remainder %s != 38.0", split.Height, held.Height)
	}
	if g, ok := held.List.(*node.Glue); !ok || g.Subtype != node.SplitTopSkipGlue {
		t.Errorf("remainder starts with %v, want splittopskip", held.List)
	}
	// The held remainder still counts against the next page.
	if b.insertPenalties != 1 {
		t.Errorf("insert penalties %d, want 1", b.insertPenalties)
	}
}

func TestHoldingInserts(t *testing.T) {
	b, s, _ := newBuilder(nil)
	setupClass(b.Params, 100)
	b.Params.SetInt(params.HoldingInserts, 1)
	ins := insertion(100, 5*pt)
	b.Contributions().Append(node.Chain(box(10*pt), ins, node.NewPenalty(scaled.EjectPenalty)))
	if err := b.BuildPage(context.Background()); err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if len(s.pages) != 1 {
		t.Fatalf("shipped %d pages", len(s.pages))
	}
	found := false
	for n := s.pages[0].List; n != nil; n = n.Next() {
		if n == ins {
			found = true
		}
	}
	if !found {
		t.Errorf("held insertion missing from the page")
	}
	if b.Params.Box(100) != nil {
		t.Errorf("box100 filled while inserts are held")
	}
}

func TestInfiniteShrink(t *testing.T) {
	b, _, _ := newBuilder(nil)
	rec := &diag.Recorder{}
	b.Reporter = rec
	bad := node.NewGlue(node.NewSpec(0, 0, node.Normal, pt, node.Fil))
	b.Contributions().Append(node.Chain(box(10*pt), bad, box(10*pt)))
	if err := b.BuildPage(context.Background()); !errors.Is(err, ErrInfiniteShrink) {
		t.Fatalf("err = %v, want ErrInfiniteShrink", err)
	}
	if n := rec.Count(diag.InfiniteShrink); n != 1 {
		t.Fatalf("infinite shrink events = %d, want 1", n)
	}
}

func TestConfusion(t *testing.T) {
	b, _, _ := newBuilder(nil)
	b.Contributions().Append(node.NewChar(0, 'x', pt, pt, 0))
	if err := b.BuildPage(context.Background()); !errors.Is(err, ErrConfusion) {
		t.Fatalf("err = %v, want ErrConfusion", err)
	}
}

func TestCancelled(t *testing.T) {
	b, _, _ := newBuilder(nil)
	b.Contributions().Append(box(10 * pt))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.BuildPage(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
