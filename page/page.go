// Package page implements the page builder: material contributed to the
// main vertical list is moved onto the current page one node at a time,
// the best page break seen so far is remembered, and when no better break
// can follow the page is packed into \box255 and handed to the output
// routine.
package page

import (
	"context"
	"errors"
	"fmt"

	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/pack"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
	"github.com/ByLCY/quire/vbreak"
)

// PageBox is the register that receives each finished page.
const PageBox = 255

var (
	// ErrOutputLoop means the output routine ran too many times without
	// shipping a page.
	ErrOutputLoop = errors.New("page: output loop")
	// ErrBox255NotVoid means \box255 was not empty when a page was cut, or
	// the output routine left material in it.
	ErrBox255NotVoid = errors.New("page: \\box255 is not void")
	// ErrInfiniteShrink means glue on the current page, or an insertion
	// skip, can shrink infinitely.
	ErrInfiniteShrink = errors.New("page: infinite glue shrinkage found on current page")
	// ErrInsertHBox means insertion material was directed at an hbox.
	ErrInsertHBox = errors.New("page: insertions can only be added to a vbox")
	// ErrConfusion reports a node that cannot reach the page builder.
	ErrConfusion = errors.New("page: this can't happen")
)

// Contents tells what the current page holds.
type Contents int

const (
	Empty Contents = iota
	InsertsOnly
	BoxThere
)

// Shipper receives finished pages.
type Shipper interface {
	Ship(ctx context.Context, page *node.Box) error
}

// ShipperFunc adapts a function to Shipper.
type ShipperFunc func(ctx context.Context, page *node.Box) error

// Ship calls f.
func (f ShipperFunc) Ship(ctx context.Context, page *node.Box) error { return f(ctx, page) }

// OutputRoutine is invoked with \box255 holding the page. It must empty
// \box255, usually by shipping it.
type OutputRoutine interface {
	Output(ctx context.Context, out *Output) error
}

// OutputFunc adapts a function to OutputRoutine.
type OutputFunc func(ctx context.Context, out *Output) error

// Output calls f.
func (f OutputFunc) Output(ctx context.Context, out *Output) error { return f(ctx, out) }

// insRecord tracks one insertion class on the current page.
type insRecord struct {
	class   int
	splitUp bool
	// height is the natural height plus depth of \box n and the material
	// of this class accepted so far.
	height scaled.Scaled
	// lastIns is the last insertion of this class on the page; bestIns
	// its value at the best page break.
	lastIns *node.Ins
	bestIns *node.Ins
	// brokenIns was split at brokenPtr.
	brokenIns *node.Ins
	brokenPtr node.Node

	queue node.List
}

// Builder is the page builder. Contributions are appended to the list
// returned by Contributions and moved onto pages by BuildPage.
type Builder struct {
	Params   *params.Store
	Packer   *pack.Packer
	Arena    node.Arena
	Output   OutputRoutine
	Shipper  Shipper
	Reporter diag.Reporter

	contrib node.VList
	page    node.List

	contents Contents
	goal     scaled.Scaled
	total    scaled.Scaled
	depth    scaled.Scaled
	maxDepth scaled.Scaled
	// soFar holds the page stretch by order in 1..4 and shrink in 5.
	soFar vbreak.Heights

	best      node.Node
	bestSize  scaled.Scaled
	leastCost int

	lastGlue        *node.GlueSpec
	lastPenalty     int
	lastKern        scaled.Scaled
	insertPenalties int
	inserts         []*insRecord

	outputActive bool
	deadCycles   int
	pages        int

	topMark, firstMark, botMark *string
}

// New returns a page builder. With a nil output routine pages are shipped
// as soon as they are cut.
func New(p *params.Store, pk *pack.Packer, a node.Arena, out OutputRoutine, ship Shipper, r diag.Reporter) *Builder {
	if r == nil {
		r = diag.Discard
	}
	if pk == nil {
		pk = pack.New(p, r)
	}
	if a == nil {
		a = node.NewPool(0)
	}
	b := &Builder{Params: p, Packer: pk, Arena: a, Output: out, Shipper: ship, Reporter: r}
	b.contrib.PrevDepth = node.IgnoreDepth
	b.leastCost = scaled.AwfulBad
	return b
}

// Contributions returns the list that feeds the page builder: the main
// vertical list of the document.
func (b *Builder) Contributions() *node.VList { return &b.contrib }

// Contents reports what the current page holds.
func (b *Builder) Contents() Contents { return b.contents }

// Goal and Total return \pagegoal and \pagetotal.
func (b *Builder) Goal() scaled.Scaled  { return b.goal }
func (b *Builder) Total() scaled.Scaled { return b.total }

// Pages returns the number of pages shipped.
func (b *Builder) Pages() int { return b.pages }

// LastGlue, LastPenalty and LastKern describe the most recent node moved
// from the contribution list. LastGlue is nil unless that node was glue.
func (b *Builder) LastGlue() *node.GlueSpec { return b.lastGlue }
func (b *Builder) LastPenalty() int         { return b.lastPenalty }
func (b *Builder) LastKern() scaled.Scaled  { return b.lastKern }

// Marks returns the top, first and bottom marks of the last page cut; nil
// means no mark.
func (b *Builder) Marks() (top, first, bot *string) { return b.topMark, b.firstMark, b.botMark }

func (b *Builder) trace(format string, args ...any) {
	if b.Params.Int(params.TracingPages) > 0 {
		diag.Tracef(b.Reporter, diag.TracePage, format, args...)
	}
}

// freeze fixes \vsize and \maxdepth for the page being started.
func (b *Builder) freeze(c Contents) {
	b.contents = c
	b.goal = b.Params.Dimen(params.VSize)
	b.maxDepth = b.Params.Dimen(params.MaxDepth)
	b.total = 0
	b.depth = 0
	b.soFar = vbreak.Heights{}
	b.leastCost = scaled.AwfulBad
	b.trace("%% goal height=%s, max depth=%s", b.goal, b.maxDepth)
}

func (b *Builder) setLast(p node.Node) {
	if b.lastGlue != nil {
		b.lastGlue.Release()
		b.lastGlue = nil
	}
	b.lastPenalty = 0
	b.lastKern = 0
	switch q := p.(type) {
	case *node.Glue:
		b.lastGlue = q.Spec.AddRef()
	case *node.Penalty:
		b.lastPenalty = q.Penalty
	case *node.Kern:
		b.lastKern = q.Width
	}
}

// BuildPage moves the contribution list onto the current page, firing the
// output routine whenever a page is complete. It returns at once while the
// output routine is active.
func (b *Builder) BuildPage(ctx context.Context) (err error) {
	if b.contrib.Head == nil || b.outputActive {
		return nil
	}
	defer func() {
		if err != nil {
			b.freeInserts()
		}
	}()
	for b.contrib.Head != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := b.contrib.Head
		b.setLast(p)

		var pi int
		switch q := p.(type) {
		case *node.Box, *node.Rule:
			if b.contents < BoxThere {
				if b.contents == Empty {
					b.freeze(BoxThere)
				} else {
					b.contents = BoxThere
				}
				b.contrib.Push(b.topSkip(p))
				continue
			}
			h, d := dims(p)
			b.total += b.depth + h
			b.depth = d
			b.contribute(p)
			continue
		case *node.Whatsit, *node.Mark:
			b.contribute(p)
			continue
		case *node.Ins:
			if err := b.insert(q); err != nil {
				return err
			}
			b.contribute(p)
			continue
		case *node.Glue:
			if b.contents < BoxThere {
				b.discard(p)
				continue
			}
			if !node.NonDiscardable(b.page.Tail) {
				if err := b.updateHeights(p); err != nil {
					return err
				}
				b.contribute(p)
				continue
			}
		case *node.Kern:
			if b.contents < BoxThere {
				b.discard(p)
				continue
			}
			next := q.Next()
			if next == nil {
				// Whether the kern is a breakpoint depends on what follows.
				return nil
			}
			if _, ok := next.(*node.Glue); !ok {
				if err := b.updateHeights(p); err != nil {
					return err
				}
				b.contribute(p)
				continue
			}
		case *node.Penalty:
			if b.contents < BoxThere {
				b.discard(p)
				continue
			}
			pi = q.Penalty
		default:
			return fmt.Errorf("%w: %s node on the main vertical list", ErrConfusion, p.Type())
		}

		if pi < scaled.InfPenalty {
			c := b.cost(pi)
			if c <= b.leastCost {
				b.best = p
				b.bestSize = b.goal
				b.leastCost = c
				for _, r := range b.inserts {
					r.bestIns = r.lastIns
				}
			}
			if c == scaled.AwfulBad || pi <= scaled.EjectPenalty {
				if err := b.fireUp(ctx, p); err != nil {
					return err
				}
				continue
			}
		}
		if _, ok := p.(*node.Penalty); !ok {
			if err := b.updateHeights(p); err != nil {
				return err
			}
		}
		b.contribute(p)
	}
	b.contrib.Tail = nil
	return nil
}

// cost returns the cost of breaking the current page at a breakpoint with
// penalty pi.
func (b *Builder) cost(pi int) int {
	bad := b.soFar.Badness(b.total, b.goal)
	var c int
	switch {
	case bad >= scaled.AwfulBad:
		c = bad
	case pi <= scaled.EjectPenalty:
		c = pi
	case bad < scaled.InfBad:
		c = bad + pi + b.insertPenalties
	default:
		c = scaled.Deplorable
	}
	if b.insertPenalties >= 10000 {
		c = scaled.AwfulBad
	}
	if b.Params.Int(params.TracingPages) > 0 {
		bs, cs := "*", "*"
		if bad < scaled.AwfulBad {
			bs = fmt.Sprint(bad)
		}
		if c < scaled.AwfulBad {
			cs = fmt.Sprint(c)
		}
		mark := ""
		if c <= b.leastCost {
			mark = "#"
		}
		b.trace("%% t=%s g=%s b=%s p=%d c=%s%s", b.total, b.goal, bs, pi, cs, mark)
	}
	return c
}

func dims(n node.Node) (h, d scaled.Scaled) {
	switch q := n.(type) {
	case *node.Box:
		return q.Height, q.Depth
	case *node.Rule:
		return q.Height, q.Depth
	}
	return 0, 0
}

// topSkip returns \topskip glue reduced by the height of the first box.
func (b *Builder) topSkip(first node.Node) *node.Glue {
	spec := b.Params.Glue(params.TopSkip).Clone()
	h, _ := dims(first)
	if spec.Width > h {
		spec.Width -= h
	} else {
		spec.Width = 0
	}
	return node.NewParamGlue(spec, node.TopSkipGlue)
}

// updateHeights adds the glue or kern p to the page totals.
func (b *Builder) updateHeights(p node.Node) error {
	var w scaled.Scaled
	switch q := p.(type) {
	case *node.Kern:
		w = q.Width
	case *node.Glue:
		if q.Spec.ShrinkOrder != node.Normal && q.Spec.Shrink != 0 {
			return diag.ReportShrink(b.Reporter, true, ErrInfiniteShrink)
		}
		b.soFar.AddGlue(q.Spec)
		w = q.Spec.Width
	}
	b.total += b.depth + w
	b.depth = 0
	return nil
}

// contribute moves the head of the contribution list to the page.
func (b *Builder) contribute(p node.Node) {
	if b.depth > b.maxDepth {
		b.total += b.depth - b.maxDepth
		b.depth = b.maxDepth
	}
	b.contrib.Head = p.Next()
	p.SetNext(nil)
	b.page.Append(p)
}

// discard drops the head of the contribution list.
func (b *Builder) discard(p node.Node) {
	b.contrib.Head = p.Next()
	p.SetNext(nil)
	node.Flush(p)
}

// insert accounts for insertion p on the current page, splitting it when
// the whole of it does not fit.
func (b *Builder) insert(p *node.Ins) error {
	if b.contents == Empty {
		b.freeze(InsertsOnly)
	}
	n := p.Class
	r, err := b.record(n)
	if err != nil {
		return err
	}
	if r.splitUp {
		b.insertPenalties += p.FloatCost
		return nil
	}
	r.lastIns = p
	count := b.Params.Count(n)
	limit := b.Params.DimenReg(n)
	delta := b.goal - b.total - b.depth + b.soFar[5]
	h, err := scaleByCount(p.Height, count)
	if err != nil {
		return err
	}
	if (h <= 0 || h <= delta) && p.Height+r.height <= limit {
		b.goal -= h
		r.height += p.Height
		return nil
	}

	// Split the insertion.
	var w scaled.Scaled
	if count <= 0 {
		w = scaled.MaxDimen
	} else {
		w = b.goal - b.total - b.depth
		if count != 1000 {
			q, _, err := scaled.XOverN(w, count)
			if err != nil {
				return err
			}
			w = q * 1000
		}
	}
	if w > limit-r.height {
		w = limit - r.height
	}
	brk, err := vbreak.VertBreak(p.List, w, p.Depth)
	if err != nil {
		err = fmt.Errorf("insert %d: %w", n, err)
		if errors.Is(err, vbreak.ErrInfiniteShrink) {
			diag.ReportShrink(b.Reporter, true, err)
		}
		return err
	}
	r.height += brk.HeightPlusDepth
	b.trace("%% split%d to %s,%s p=%d", n, w, brk.HeightPlusDepth, breakPenalty(brk.Node))
	hd, err := scaleByCount(brk.HeightPlusDepth, count)
	if err != nil {
		return err
	}
	b.goal -= hd
	r.splitUp = true
	r.brokenPtr = brk.Node
	r.brokenIns = p
	if brk.Node == nil {
		b.insertPenalties += scaled.EjectPenalty
	} else if pen, ok := brk.Node.(*node.Penalty); ok {
		b.insertPenalties += pen.Penalty
	}
	return nil
}

func breakPenalty(n node.Node) int {
	switch q := n.(type) {
	case nil:
		return scaled.EjectPenalty
	case *node.Penalty:
		return q.Penalty
	}
	return 0
}

// scaleByCount returns h scaled by \count n / 1000.
func scaleByCount(h scaled.Scaled, count int) (scaled.Scaled, error) {
	if count == 1000 {
		return h, nil
	}
	q, _, err := scaled.XOverN(h, 1000)
	if err != nil {
		return 0, err
	}
	return q * scaled.Scaled(count), nil
}

// record returns the insertion record of class n, creating it and charging
// \box n and \skip n against the page goal on first use.
func (b *Builder) record(n int) (*insRecord, error) {
	i := 0
	for i < len(b.inserts) && b.inserts[i].class < n {
		i++
	}
	if i < len(b.inserts) && b.inserts[i].class == n {
		return b.inserts[i], nil
	}
	box := b.Params.Box(n)
	if box != nil && !box.IsVertical() {
		return nil, fmt.Errorf("%w (box %d)", ErrInsertHBox, n)
	}
	skip := b.Params.Skip(n)
	if skip.ShrinkOrder != node.Normal && skip.Shrink != 0 {
		return nil, diag.ReportShrink(b.Reporter, true, fmt.Errorf("%w: \\skip%d", ErrInfiniteShrink, n))
	}
	if err := b.Arena.Alloc(node.PageInsSize); err != nil {
		return nil, err
	}
	r := &insRecord{class: n}
	if box != nil {
		r.height = box.Height + box.Depth
	}
	h, err := scaleByCount(r.height, b.Params.Count(n))
	if err != nil {
		b.Arena.Free(node.PageInsSize)
		return nil, err
	}
	b.goal -= h + skip.Width
	b.soFar.AddGlue(skip)
	b.inserts = append(b.inserts, nil)
	copy(b.inserts[i+1:], b.inserts[i:])
	b.inserts[i] = r
	return r, nil
}

// freeInserts returns the insertion records of the current page to the
// arena.
func (b *Builder) freeInserts() {
	for range b.inserts {
		b.Arena.Free(node.PageInsSize)
	}
	b.inserts = nil
}

// Finish flushes the document: while anything is left on the page or the
// contribution list, an empty box, \vfill and a forcing penalty are
// contributed and the page builder is run.
func (b *Builder) Finish(ctx context.Context) error {
	for b.page.Head != nil || b.contrib.Head != nil || b.deadCycles != 0 {
		box := node.NewHList()
		box.Width = b.Params.Dimen(params.HSize)
		b.contrib.Append(box)
		b.contrib.Append(node.NewGlue(node.FillGlue))
		b.contrib.Append(node.NewPenalty(-(1 << 30)))
		if err := b.BuildPage(ctx); err != nil {
			return err
		}
	}
	return nil
}
