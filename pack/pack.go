// Package pack turns node lists into boxes of a given size, setting the
// glue of each box and reporting boxes that are underfull, loose, tight or
// overfull.
package pack

import (
	"errors"
	"fmt"

	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
)

// Mode tells how the size argument of Hpack and Vpack is interpreted.
type Mode int

const (
	// Exactly packs to the given size.
	Exactly Mode = iota
	// Additional packs to the natural size plus the given amount.
	Additional
)

// Natural is the (0, Additional) spec: pack to the natural size.
const Natural scaled.Scaled = 0

// OverfullBadness is the badness reported for a box shrunk past its limit.
const OverfullBadness = 1000000

// ErrCharInVList means a character node appeared in a vertical list.
var ErrCharInVList = errors.New("pack: character node in vertical list")

// Totals accumulates the natural size and elasticity of a list.
type Totals struct {
	Natural scaled.Scaled
	Stretch [4]scaled.Scaled
	Shrink  [4]scaled.Scaled
}

// AddGlue adds the contribution of spec.
func (t *Totals) AddGlue(spec *node.GlueSpec) {
	t.Natural += spec.Width
	t.Stretch[spec.StretchOrder] += spec.Stretch
	t.Shrink[spec.ShrinkOrder] += spec.Shrink
}

// StretchOrder returns the highest order with non-zero stretch.
func (t *Totals) StretchOrder() node.Order { return highest(&t.Stretch) }

// ShrinkOrder returns the highest order with non-zero shrink.
func (t *Totals) ShrinkOrder() node.Order { return highest(&t.Shrink) }

func highest(v *[4]scaled.Scaled) node.Order {
	switch {
	case v[node.Filll] != 0:
		return node.Filll
	case v[node.Fill] != 0:
		return node.Fill
	case v[node.Fil] != 0:
		return node.Fil
	default:
		return node.Normal
	}
}

// Packer packs lists against the badness and fuzz thresholds of a store.
type Packer struct {
	Params   *params.Store
	Reporter diag.Reporter

	vOverride *threshold
}

type threshold struct {
	badness int
	fuzz    scaled.Scaled
}

// New returns a packer reading thresholds from p and reporting to r.
func New(p *params.Store, r diag.Reporter) *Packer {
	if r == nil {
		r = diag.Discard
	}
	return &Packer{Params: p, Reporter: r}
}

// WithVThresholds returns a packer whose vertical badness and fuzz
// thresholds are replaced, leaving the store untouched.
func (pk *Packer) WithVThresholds(badness int, fuzz scaled.Scaled) *Packer {
	c := *pk
	c.vOverride = &threshold{badness: badness, fuzz: fuzz}
	return &c
}

func (pk *Packer) hThreshold() threshold {
	return threshold{badness: pk.Params.Int(params.HBadness), fuzz: pk.Params.Dimen(params.HFuzz)}
}

func (pk *Packer) vThreshold() threshold {
	if pk.vOverride != nil {
		return *pk.vOverride
	}
	return threshold{badness: pk.Params.Int(params.VBadness), fuzz: pk.Params.Dimen(params.VFuzz)}
}

// Hpack packs list into an hbox of width w (or natural width plus w when m
// is Additional) and returns the box with the badness of its glue setting.
// When adjust is not nil, inserts, marks and vadjust material found at the
// outer level of list are moved onto it instead of staying in the box.
func (pk *Packer) Hpack(list node.Node, w scaled.Scaled, m Mode, adjust *node.List) (*node.Box, int) {
	r := node.NewHList()
	r.List = list
	var h, d scaled.Scaled
	var t Totals
	var prev node.Node
	for p := list; p != nil; {
		switch q := p.(type) {
		case *node.Char:
			t.Natural += q.Width
			h = max(h, q.Height)
			d = max(d, q.Depth)
		case *node.Ligature:
			t.Natural += q.Width
			h = max(h, q.Height)
			d = max(d, q.Depth)
		case *node.Box:
			t.Natural += q.Width
			h = max(h, q.Height-q.Shift)
			d = max(d, q.Depth+q.Shift)
		case *node.Rule:
			t.Natural += q.Width
			h = max(h, q.Height)
			d = max(d, q.Depth)
		case *node.Ins, *node.Mark, *node.Adjust:
			if adjust != nil {
				next := p.Next()
				if prev == nil {
					r.List = next
				} else {
					prev.SetNext(next)
				}
				p.SetNext(nil)
				if a, ok := p.(*node.Adjust); ok {
					adjust.Append(a.List)
					a.List = nil
				} else {
					adjust.Append(p)
				}
				p = next
				continue
			}
		case *node.Glue:
			t.AddGlue(q.Spec)
			if q.Subtype >= node.ALeaders && q.Leader != nil {
				lh, ld := leaderSize(q.Leader)
				h = max(h, lh)
				d = max(d, ld)
			}
		case *node.Kern:
			t.Natural += q.Width
		case *node.Math:
			t.Natural += q.Width
		}
		prev = p
		p = p.Next()
	}
	r.Height = h
	r.Depth = d
	if m == Additional {
		w += t.Natural
	}
	r.Width = w
	b := pk.setGlue(r, w-t.Natural, &t, pk.hThreshold(), false)
	return r, b
}

func leaderSize(n node.Node) (h, d scaled.Scaled) {
	switch l := n.(type) {
	case *node.Box:
		return l.Height, l.Depth
	case *node.Rule:
		return l.Height, l.Depth
	}
	return 0, 0
}

// Vpack packs list into a vbox of height h (or natural height plus h when
// m is Additional). The depth of the box is limited to maxDepth; any excess
// depth is moved into the height.
func (pk *Packer) Vpack(list node.Node, h scaled.Scaled, m Mode, maxDepth scaled.Scaled) (*node.Box, int, error) {
	r := node.NewVList()
	r.List = list
	var w, d scaled.Scaled
	var t Totals
	for p := list; p != nil; p = p.Next() {
		switch q := p.(type) {
		case *node.Char:
			return nil, 0, fmt.Errorf("%w: %c", ErrCharInVList, q.Code)
		case *node.Box:
			t.Natural += d + q.Height
			d = q.Depth
			w = max(w, q.Width+q.Shift)
		case *node.Rule:
			t.Natural += d + q.Height
			d = q.Depth
			w = max(w, q.Width)
		case *node.Glue:
			t.Natural += d
			d = 0
			t.AddGlue(q.Spec)
			if q.Subtype >= node.ALeaders && q.Leader != nil {
				w = max(w, leaderWidth(q.Leader))
			}
		case *node.Kern:
			t.Natural += d + q.Width
			d = 0
		}
	}
	r.Width = w
	if d > maxDepth {
		t.Natural += d - maxDepth
		r.Depth = maxDepth
	} else {
		r.Depth = d
	}
	if m == Additional {
		h += t.Natural
	}
	r.Height = h
	b := pk.setGlue(r, h-t.Natural, &t, pk.vThreshold(), true)
	return r, b, nil
}

func leaderWidth(n node.Node) scaled.Scaled {
	switch l := n.(type) {
	case *node.Box:
		return l.Width
	case *node.Rule:
		return l.Width
	}
	return 0
}

// setGlue fixes the glue of r for the given excess (target minus natural
// size) and reports the resulting condition. It returns the badness.
func (pk *Packer) setGlue(r *node.Box, x scaled.Scaled, t *Totals, th threshold, vertical bool) int {
	r.GlueSign = node.SignNormal
	r.GlueOrder = node.Normal
	r.GlueSet = 0
	switch {
	case x == 0:
		return 0
	case x > 0:
		o := t.StretchOrder()
		r.GlueOrder = o
		r.GlueSign = node.SignStretching
		if t.Stretch[o] != 0 {
			r.GlueSet = float64(x) / float64(t.Stretch[o])
		} else {
			r.GlueSign = node.SignNormal
		}
		if o != node.Normal {
			return 0
		}
		b := scaled.Badness(x, t.Stretch[node.Normal])
		if r.List != nil && b > th.badness {
			kind := diag.Loose
			if b > 100 {
				kind = diag.Underfull
			}
			pk.Reporter.Report(diag.Event{Kind: kind, Vertical: vertical, Badness: b, Box: r})
		}
		return b
	default:
		o := t.ShrinkOrder()
		r.GlueOrder = o
		r.GlueSign = node.SignShrinking
		if t.Shrink[o] != 0 {
			r.GlueSet = float64(-x) / float64(t.Shrink[o])
		} else {
			r.GlueSign = node.SignNormal
		}
		if o != node.Normal {
			return 0
		}
		if t.Shrink[node.Normal] < -x && r.List != nil {
			r.GlueSet = 1
			excess := -x - t.Shrink[node.Normal]
			if excess > th.fuzz || th.badness < 100 {
				pk.Reporter.Report(diag.Event{Kind: diag.Overfull, Vertical: vertical, Badness: OverfullBadness, Excess: excess, Box: r})
			}
			return OverfullBadness
		}
		b := scaled.Badness(-x, t.Shrink[node.Normal])
		if r.List != nil && b > th.badness {
			pk.Reporter.Report(diag.Event{Kind: diag.Tight, Vertical: vertical, Badness: b, Box: r})
		}
		return b
	}
}

// AppendToVList appends box b to v, preceded by \baselineskip glue adjusted
// for the depth of the previous box, or \lineskip glue when the two boxes
// would come closer than \lineskiplimit.
func (pk *Packer) AppendToVList(v *node.VList, b *node.Box) {
	if v.PrevDepth > node.IgnoreDepth {
		base := pk.Params.Glue(params.BaselineSkip)
		d := base.Width - v.PrevDepth - b.Height
		var g *node.Glue
		if d < pk.Params.Dimen(params.LineSkipLimit) {
			g = node.NewParamGlue(pk.Params.Glue(params.LineSkip), node.LineSkipGlue)
		} else {
			spec := base.Clone()
			spec.Width = d
			g = node.NewParamGlue(spec, node.BaselineSkipGlue)
		}
		v.Append(g)
	}
	v.Append(b)
	v.PrevDepth = b.Depth
}
