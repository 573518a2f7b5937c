package linebreak

import (
	"fmt"

	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/pack"
	"github.com/ByLCY/quire/params"
)

// postLineBreak cuts the paragraph at the breakpoints reachable from
// bestBet, packs each line and appends it to the vertical list.
func (s *state) postLineBreak() error {
	// Reverse the chain of passive nodes into forward order.
	var cur *passive
	for q := s.bestBet.brk; q != nil; {
		r := q
		q = q.prevBreak
		r.nextBreak = cur
		cur = r
	}
	p := s.Params
	rest := s.list
	s.list = nil
	curLine := 1
	for cur != nil {
		q := cur.curBreak
		discBreak, postDiscBreak := false, false
		appendRightSkip := true
		switch t := q.(type) {
		case nil:
			q = node.Last(rest)
		case *node.Glue:
			node.Flush(t.Leader)
			t.Leader = nil
			t.SetSpec(p.Glue(params.RightSkip))
			t.Subtype = node.RightSkipGlue
			appendRightSkip = false
		case *node.Disc:
			var err error
			q, postDiscBreak, err = takeDisc(t)
			if err != nil {
				return err
			}
			discBreak = true
		case *node.Math:
			t.Width = 0
		case *node.Kern:
			t.Width = 0
		}
		if appendRightSkip {
			g := node.NewParamGlue(p.Glue(params.RightSkip), node.RightSkipGlue)
			g.SetNext(q.Next())
			q.SetNext(g)
			q = g
		}

		// Detach the line and put \leftskip at its left.
		line := rest
		rest = q.Next()
		q.SetNext(nil)
		if ls := p.Glue(params.LeftSkip); ls != node.ZeroGlue {
			g := node.NewParamGlue(ls, node.LeftSkipGlue)
			g.SetNext(line)
			line = g
		}

		width, indent := s.lineShape(curLine)
		var adjust node.List
		box, _ := s.Packer.Hpack(line, width, pack.Exactly, &adjust)
		box.Shift = indent
		s.Packer.AppendToVList(s.vlist, box)
		s.vlist.Append(adjust.Take())

		if curLine+1 != s.bestLine {
			pen := p.Int(params.InterLinePenalty)
			if curLine == 1 {
				pen += p.Int(params.ClubPenalty)
			}
			if curLine+2 == s.bestLine {
				pen += s.finalWidowPenalty
			}
			if discBreak {
				pen += p.Int(params.BrokenPenalty)
			}
			if pen != 0 {
				s.vlist.Append(node.NewPenalty(pen))
			}
		}

		curLine++
		cur = cur.nextBreak
		if cur != nil && !postDiscBreak {
			rest = pruneLineStart(rest, cur.curBreak)
		}
	}
	if curLine != s.bestLine || rest != nil {
		return fmt.Errorf("%w: built %d lines of %d", ErrBreakingConfusion, curLine-1, s.bestLine-1)
	}
	return nil
}

// takeDisc turns a chosen discretionary into compulsory material: the
// replaced nodes are dropped, the pre-break list ends this line and the
// post-break list starts the next. It returns the last node of the line
// and whether post-break material was transplanted.
func takeDisc(d *node.Disc) (node.Node, bool, error) {
	var r node.Node
	if d.ReplaceCount == 0 {
		r = d.Next()
	} else {
		r = node.Node(d)
		for t := d.ReplaceCount; t > 1; t-- {
			r = r.Next()
		}
		last := r.Next()
		if last == nil {
			return nil, false, fmt.Errorf("%w: discretionary replaces past the paragraph", ErrBreakingConfusion)
		}
		r = last.Next()
		last.SetNext(nil)
		node.Flush(d.Next())
		d.ReplaceCount = 0
	}
	post := false
	if d.Post != nil {
		node.Last(d.Post).SetNext(r)
		r = d.Post
		d.Post = nil
		post = true
	}
	var q node.Node = d
	if d.Pre != nil {
		d.SetNext(d.Pre)
		q = node.Last(d.Pre)
		d.Pre = nil
	}
	q.SetNext(r)
	return q, post, nil
}

// pruneLineStart drops the glue, kerns, math nodes and penalties that
// would otherwise start the next line, stopping at the next breakpoint.
func pruneLineStart(rest, nextBreak node.Node) node.Node {
	var last node.Node
	q := rest
	for q != nil && q != nextBreak {
		if node.NonDiscardable(q) {
			break
		}
		if k, ok := q.(*node.Kern); ok && k.Subtype != node.KernExplicit {
			break
		}
		last = q
		q = q.Next()
	}
	if last == nil {
		return rest
	}
	last.SetNext(nil)
	node.Flush(rest)
	return q
}
