// Package vbreak finds the best place to break a vertical list, removes
// discardable material from the top of a continuation, and splits boxes
// with \vsplit.
package vbreak

import (
	"errors"
	"fmt"

	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/pack"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
)

var (
	// ErrInfiniteShrink means glue in a list being split can shrink
	// infinitely.
	ErrInfiniteShrink = errors.New("vbreak: infinite glue shrinkage found in box being split")
	// ErrNotVBox is returned when \vsplit is applied to an hbox.
	ErrNotVBox = errors.New("vbreak: \\vsplit needs a \\vbox")
	// ErrConfusion reports a node that cannot appear in a vertical list.
	ErrConfusion = errors.New("vbreak: this can't happen")
)

// Heights accumulates the height of a vertical list: index 0 is the
// natural height, 1..4 the stretch by order, 5 the shrink.
type Heights [6]scaled.Scaled

// AddGlue adds the elasticity of g.
func (h *Heights) AddGlue(g *node.GlueSpec) {
	h[1+int(g.StretchOrder)] += g.Stretch
	h[5] += g.Shrink
}

// Badness returns the badness of setting material with natural height
// cur to height goal.
func (h *Heights) Badness(cur, goal scaled.Scaled) int {
	switch {
	case cur < goal:
		if h[2] != 0 || h[3] != 0 || h[4] != 0 {
			return 0
		}
		return scaled.Badness(goal-cur, h[1])
	case cur-goal > h[5]:
		return scaled.AwfulBad
	default:
		return scaled.Badness(cur-goal, h[5])
	}
}

// Cost combines badness b with the penalty pi of a breakpoint. Forced
// breaks cost pi; costs for infinitely bad breaks saturate at Deplorable.
func Cost(b, pi int) int {
	switch {
	case b >= scaled.AwfulBad:
		return b
	case pi <= scaled.EjectPenalty:
		return pi
	case b < scaled.InfBad:
		return b + pi
	default:
		return scaled.Deplorable
	}
}

// Break is the result of VertBreak.
type Break struct {
	// Node is the best breakpoint, or nil to break after the whole list.
	Node node.Node
	// HeightPlusDepth is the height plus depth of the material before it.
	HeightPlusDepth scaled.Scaled
	Cost            int
}

// VertBreak finds the least-cost place to break list so that the material
// before the break has height h and depth at most d.
func VertBreak(list node.Node, h, d scaled.Scaled) (Break, error) {
	best := Break{Cost: scaled.AwfulBad}
	var active Heights
	var prevDp scaled.Scaled
	prevP := list // an initial glue node is not a legal breakpoint
	p := list
	for {
		var pi int
		legal := true
		heights := false
		if p == nil {
			pi = scaled.EjectPenalty
		} else {
			switch q := p.(type) {
			case *node.Box:
				active[0] += prevDp + q.Height
				prevDp = q.Depth
				legal = false
			case *node.Rule:
				active[0] += prevDp + q.Height
				prevDp = q.Depth
				legal = false
			case *node.Whatsit, *node.Mark, *node.Ins:
				legal = false
			case *node.Glue:
				heights = true
				legal = node.NonDiscardable(prevP)
			case *node.Kern:
				heights = true
				_, glueNext := q.Next().(*node.Glue)
				legal = glueNext
			case *node.Penalty:
				pi = q.Penalty
			default:
				return Break{}, fmt.Errorf("%w: %s node in vertical list", ErrConfusion, p.Type())
			}
		}
		if legal && pi < scaled.InfPenalty {
			c := Cost(active.Badness(active[0], h), pi)
			if c <= best.Cost {
				best = Break{Node: p, HeightPlusDepth: active[0] + prevDp, Cost: c}
			}
			if c == scaled.AwfulBad || pi <= scaled.EjectPenalty {
				return best, nil
			}
		}
		if heights {
			switch q := p.(type) {
			case *node.Kern:
				active[0] += prevDp + q.Width
			case *node.Glue:
				if q.Spec.ShrinkOrder != node.Normal && q.Spec.Shrink != 0 {
					return Break{}, ErrInfiniteShrink
				}
				active.AddGlue(q.Spec)
				active[0] += prevDp + q.Spec.Width
			}
			prevDp = 0
		}
		if prevDp > d {
			active[0] += prevDp - d
			prevDp = d
		}
		prevP = p
		p = p.Next()
	}
}

// PrunePageTop removes the glue, kerns and penalties at the top of list
// and puts glue derived from splitTop before its first box or rule.
func PrunePageTop(list node.Node, splitTop *node.GlueSpec) (node.Node, error) {
	var out node.List
	p := list
	for p != nil {
		next := p.Next()
		switch q := p.(type) {
		case *node.Box, *node.Rule:
			spec := splitTop.Clone()
			h := height(q)
			if spec.Width > h {
				spec.Width -= h
			} else {
				spec.Width = 0
			}
			out.Append(node.NewParamGlue(spec, node.SplitTopSkipGlue))
			out.Append(p)
			return out.Head, nil
		case *node.Whatsit, *node.Mark, *node.Ins:
			p.SetNext(nil)
			out.Append(p)
		case *node.Glue, *node.Kern, *node.Penalty:
			p.SetNext(nil)
			node.Flush(p)
		default:
			return nil, fmt.Errorf("%w: %s node while pruning", ErrConfusion, p.Type())
		}
		p = next
	}
	return out.Head, nil
}

func height(n node.Node) scaled.Scaled {
	switch q := n.(type) {
	case *node.Box:
		return q.Height
	case *node.Rule:
		return q.Height
	}
	return 0
}

// Marks holds the first and last mark texts found in a piece of a list.
type Marks struct {
	First string
	Bot   string
	Found bool
}

func (m *Marks) add(text string) {
	if !m.Found {
		m.First = text
		m.Found = true
	}
	m.Bot = text
}

// Splitter implements \vsplit on the box registers of a parameter store.
type Splitter struct {
	Params *params.Store
	Packer *pack.Packer
}

// VSplit removes material of height h from the top of \box n and returns
// it packed in a vbox, together with the marks it contained. The rest,
// pruned and repacked at its natural size, stays in \box n. A void box
// gives a nil result.
func (s *Splitter) VSplit(n int, h scaled.Scaled) (*node.Box, Marks, error) {
	var marks Marks
	v := s.Params.Box(n)
	if v == nil {
		return nil, marks, nil
	}
	if !v.IsVertical() {
		return nil, marks, fmt.Errorf("%w (box %d)", ErrNotVBox, n)
	}
	maxDepth := s.Params.Dimen(params.SplitMaxDepth)
	brk, err := VertBreak(v.List, h, maxDepth)
	if err != nil {
		if errors.Is(err, ErrInfiniteShrink) {
			diag.ReportShrink(s.Packer.Reporter, true, err)
		}
		return nil, marks, err
	}
	q := brk.Node
	p := v.List
	if p == q {
		p = nil
	} else {
		for r := p; ; r = r.Next() {
			if m, ok := r.(*node.Mark); ok {
				marks.add(m.Text)
			}
			if r.Next() == q {
				r.SetNext(nil)
				break
			}
		}
	}
	v.List = nil
	rest, err := PrunePageTop(q, s.Params.Glue(params.SplitTopSkip))
	if err != nil {
		return nil, marks, err
	}
	if rest == nil {
		s.Params.SetBox(n, nil)
	} else {
		box, _, err := s.Packer.Vpack(rest, pack.Natural, pack.Additional, scaled.MaxDimen)
		if err != nil {
			return nil, marks, err
		}
		s.Params.SetBox(n, box)
	}
	out, _, err := s.Packer.Vpack(p, h, pack.Exactly, maxDepth)
	if err != nil {
		return nil, marks, err
	}
	return out, marks, nil
}
