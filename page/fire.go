package page

import (
	"context"
	"fmt"

	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/pack"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
	"github.com/ByLCY/quire/vbreak"
)

// Output is the view of the page builder given to an output routine.
type Output struct {
	b *Builder
	// Penalty is \outputpenalty: the penalty at the chosen break, or
	// 10000 when the page did not end at a penalty.
	Penalty int
	vlist   node.VList
}

// Params returns the parameter store. Assignments made by the output
// routine are undone when it returns.
func (o *Output) Params() *params.Store { return o.b.Params }

// Page removes and returns \box255.
func (o *Output) Page() *node.Box { return o.b.Params.TakeBox(PageBox) }

// Insert removes and returns the box collecting insertion class n.
func (o *Output) Insert(n int) *node.Box { return o.b.Params.TakeBox(n) }

// Marks returns the top, first and bottom marks of the page.
func (o *Output) Marks() (top, first, bot *string) { return o.b.Marks() }

// Ship sends a finished page to the shipper.
func (o *Output) Ship(ctx context.Context, page *node.Box) error { return o.b.ship(ctx, page) }

// Contribute appends material that goes back onto the contribution list,
// ahead of anything that was already waiting there.
func (o *Output) Contribute(n node.Node) { o.vlist.Append(n) }

func (b *Builder) ship(ctx context.Context, page *node.Box) error {
	b.deadCycles = 0
	b.pages++
	if b.Shipper == nil {
		node.Flush(page)
		return nil
	}
	return b.Shipper.Ship(ctx, page)
}

// pushFront puts the chain head..tail in front of the contribution list.
func (b *Builder) pushFront(head, tail node.Node) {
	if head == nil {
		return
	}
	if b.contrib.Head == nil {
		b.contrib.Tail = tail
	}
	tail.SetNext(b.contrib.Head)
	b.contrib.Head = head
}

func copyText(s string) *string { return &s }

// fireUp cuts the current page at the best break, packs it into \box255,
// fills the insertion boxes and runs the output routine. c is the
// breakpoint that triggered the cut; it is still on the contribution list.
func (b *Builder) fireUp(ctx context.Context, c node.Node) error {
	p := b.Params
	if pen, ok := b.best.(*node.Penalty); ok {
		p.SetIntGlobal(params.OutputPenalty, pen.Penalty)
		pen.Penalty = scaled.InfPenalty
	} else {
		p.SetIntGlobal(params.OutputPenalty, scaled.InfPenalty)
	}
	if b.botMark != nil {
		b.topMark = b.botMark
		b.firstMark = nil
	}
	best := b.best
	if c == best {
		best = nil
	}
	if p.Box(PageBox) != nil {
		return ErrBox255NotVoid
	}
	b.insertPenalties = 0
	holding := p.Int(params.HoldingInserts) > 0
	if !holding {
		for _, r := range b.inserts {
			if r.bestIns == nil {
				continue
			}
			box := p.Box(r.class)
			if box == nil {
				box = node.NewVList()
			} else if !box.IsVertical() {
				return fmt.Errorf("%w (box %d)", ErrInsertHBox, r.class)
			}
			r.queue.Reset(box.List)
			box.List = nil
		}
	}

	var held node.List
	var prev node.Node
	q := b.page.Head
	for q != best {
		next := q.Next()
		switch t := q.(type) {
		case *node.Ins:
			if holding {
				break
			}
			wait, err := b.placeInsert(t)
			if err != nil {
				return err
			}
			if prev == nil {
				b.page.Head = next
			} else {
				prev.SetNext(next)
			}
			t.SetNext(nil)
			if wait {
				held.Append(t)
				b.insertPenalties++
			} else if t.SplitTop != nil {
				t.SplitTop.Release()
			}
			q = next
			continue
		case *node.Mark:
			if b.firstMark == nil {
				b.firstMark = copyText(t.Text)
			}
			b.botMark = copyText(t.Text)
		}
		prev = q
		q = next
	}

	// Everything from the break on goes back to the contributions.
	if q != nil {
		tail := prev
		if tail == nil {
			b.page.Head = nil
		} else {
			tail.SetNext(nil)
		}
		b.pushFront(q, node.Last(q))
	}
	pk := b.Packer.WithVThresholds(scaled.InfBad, scaled.MaxDimen)
	box, _, err := pk.Vpack(b.page.Head, b.bestSize, pack.Exactly, b.maxDepth)
	if err != nil {
		return err
	}
	p.PutBox(PageBox, box)
	b.trace("%% page %d cut at %s", b.pages+1, b.bestSize)

	b.startNewPage()
	if !held.Empty() {
		b.page = held
	}
	b.freeInserts()
	if b.topMark != nil && b.firstMark == nil {
		b.firstMark = b.topMark
	}

	if b.Output != nil {
		if limit := p.Int(params.MaxDeadCycles); b.deadCycles >= limit {
			return fmt.Errorf("%w: %d consecutive dead cycles", ErrOutputLoop, limit)
		}
		b.deadCycles++
		return b.runOutput(ctx)
	}
	// Default output: held-over insertions go back to the contributions
	// and the page is shipped.
	if b.page.Head != nil {
		b.pushFront(b.page.Head, b.page.Tail)
		b.page = node.List{}
	}
	return b.ship(ctx, p.TakeBox(PageBox))
}

func (b *Builder) startNewPage() {
	b.contents = Empty
	b.page = node.List{}
	if b.lastGlue != nil {
		b.lastGlue.Release()
		b.lastGlue = nil
	}
	b.lastPenalty = 0
	b.lastKern = 0
	b.depth = 0
	b.maxDepth = 0
	b.best = nil
}

// placeInsert moves the material of insertion t into its class box, or
// splits it at the chosen place. It reports whether t keeps a remainder
// that must wait for the next page.
func (b *Builder) placeInsert(t *node.Ins) (bool, error) {
	var r *insRecord
	for _, rec := range b.inserts {
		if rec.class == t.Class {
			r = rec
			break
		}
	}
	if r == nil || r.bestIns == nil {
		return true, nil
	}
	wait := false
	if r.bestIns != t {
		r.queue.Append(t.List)
		t.List = nil
		return false, nil
	}
	if r.splitUp && r.brokenIns == t && r.brokenPtr != nil {
		var prev node.Node
		for q := t.List; q != r.brokenPtr; q = q.Next() {
			prev = q
		}
		if prev != nil {
			prev.SetNext(nil)
			r.queue.Append(t.List)
		}
		split := b.Params.Glue(params.SplitTopSkip)
		if t.SplitTop != nil {
			split = t.SplitTop
		}
		rest, err := vbreak.PrunePageTop(r.brokenPtr, split)
		if err != nil {
			return false, err
		}
		t.List = rest
		if rest != nil {
			box, _, err := b.Packer.Vpack(rest, pack.Natural, pack.Additional, scaled.MaxDimen)
			if err != nil {
				return false, err
			}
			t.Height = box.Height + box.Depth
			box.List = nil
			wait = true
		}
	} else {
		r.queue.Append(t.List)
		t.List = nil
	}
	r.bestIns = nil
	box, _, err := b.Packer.Vpack(r.queue.Take(), pack.Natural, pack.Additional, scaled.MaxDimen)
	if err != nil {
		return false, err
	}
	b.Params.PutBox(r.class, box)
	return wait, nil
}

// runOutput invokes the output routine inside a group and then puts the
// material it returned, after any held-over insertions, in front of the
// contribution list.
func (b *Builder) runOutput(ctx context.Context) error {
	p := b.Params
	b.outputActive = true
	defer func() { b.outputActive = false }()
	if err := p.Begin(); err != nil {
		return err
	}
	out := &Output{b: b, Penalty: p.Int(params.OutputPenalty)}
	out.vlist.PrevDepth = node.IgnoreDepth
	err := b.Output.Output(ctx, out)
	if endErr := p.End(); err == nil {
		err = endErr
	}
	b.insertPenalties = 0
	if err != nil {
		return fmt.Errorf("output routine: %w", err)
	}
	if p.Box(PageBox) != nil {
		return fmt.Errorf("%w: output routine didn't use all of \\box255", ErrBox255NotVoid)
	}
	b.page.Append(out.vlist.Take())
	if b.page.Head != nil {
		b.pushFront(b.page.Head, node.Last(b.page.Head))
		b.page = node.List{}
	}
	return nil
}
