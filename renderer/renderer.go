// Package renderer positions the contents of shipped pages. Walk visits
// every glyph and rule of a page box with its absolute position, the way
// TeX's ship_out does, and leaves the drawing to a Painter.
package renderer

import (
	"math"

	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/page"
	"github.com/ByLCY/quire/scaled"
)

// Renderer turns shipped pages into a document. Bytes finishes the
// document; no page may be shipped after it.
type Renderer interface {
	page.Shipper
	Bytes() ([]byte, error)
}

// Painter draws what Walk finds. Coordinates are in scaled points from the
// top-left corner of the page box, growing right and down.
type Painter interface {
	// Glyph draws character c of font at the given baseline position.
	Glyph(font int, c rune, x, y scaled.Scaled)
	// Rule fills the rectangle whose top-left corner is (x, y).
	Rule(x, y, w, h scaled.Scaled)
}

// billion bounds the glue multiplications.
const billion = 1e9

// Walk paints the page box p.
func Walk(p *node.Box, pt Painter) {
	w := &walker{paint: pt, v: p.Height}
	w.out(p)
}

type walker struct {
	paint Painter
	h, v  scaled.Scaled
}

func (w *walker) out(b *node.Box) {
	if b.IsVertical() {
		w.vlistOut(b)
	} else {
		w.hlistOut(b)
	}
}

func vet(g float64) float64 {
	switch {
	case g > billion:
		return billion
	case g < -billion:
		return -billion
	}
	return g
}

// glueSetter accumulates the stretch or shrink used so far in a box so that
// rounding errors do not add up along the list.
type glueSetter struct {
	box     *node.Box
	curG    scaled.Scaled
	curGlue float64
}

// width returns the set size of glue g.
func (s *glueSetter) width(g *node.GlueSpec) scaled.Scaled {
	size := g.Width - s.curG
	switch s.box.GlueSign {
	case node.SignStretching:
		if g.StretchOrder == s.box.GlueOrder {
			s.curGlue += float64(g.Stretch)
			s.curG = scaled.Scaled(math.Round(vet(s.box.GlueSet * s.curGlue)))
		}
	case node.SignShrinking:
		if g.ShrinkOrder == s.box.GlueOrder {
			s.curGlue -= float64(g.Shrink)
			s.curG = scaled.Scaled(math.Round(vet(s.box.GlueSet * s.curGlue)))
		}
	}
	return size + s.curG
}

func (w *walker) hlistOut(b *node.Box) {
	base := w.v
	left := w.h
	set := glueSetter{box: b}
	for p := b.List; p != nil; p = p.Next() {
		switch q := p.(type) {
		case *node.Char:
			w.paint.Glyph(q.Font, q.Code, w.h, base)
			w.h += q.Width
		case *node.Ligature:
			w.paint.Glyph(q.Font, q.Code, w.h, base)
			w.h += q.Width
		case *node.Box:
			if q.List != nil {
				edge := w.h
				w.v = base + q.Shift
				w.out(q)
				w.h = edge
				w.v = base
			}
			w.h += q.Width
		case *node.Rule:
			ht, dp := q.Height, q.Depth
			if ht == node.Running {
				ht = b.Height
			}
			if dp == node.Running {
				dp = b.Depth
			}
			w.hRule(q.Width, ht+dp, base+dp)
		case *node.Glue:
			size := set.width(q.Spec)
			if q.IsLeaders() {
				w.hLeaders(q, size, left, base, b)
				continue
			}
			w.h += size
		case *node.Kern:
			w.h += q.Width
		case *node.Math:
			w.h += q.Width
		}
	}
}

// hRule paints a rule of width wd and total height ht whose bottom is at
// y, then moves right.
func (w *walker) hRule(wd, ht, y scaled.Scaled) {
	if ht > 0 && wd > 0 {
		w.paint.Rule(w.h, y-ht, wd, ht)
	}
	w.h += wd
}

func (w *walker) hLeaders(g *node.Glue, size, left, base scaled.Scaled, b *node.Box) {
	switch l := g.Leader.(type) {
	case *node.Rule:
		ht, dp := l.Height, l.Depth
		if ht == node.Running {
			ht = b.Height
		}
		if dp == node.Running {
			dp = b.Depth
		}
		w.hRule(size, ht+dp, base+dp)
		return
	case *node.Box:
		lw := l.Width
		if lw <= 0 || size <= 0 {
			w.h += size
			return
		}
		size += 10 // compensate for floating-point rounding
		edge := w.h + size
		var lx scaled.Scaled
		switch g.Subtype {
		case node.ALeaders:
			save := w.h
			w.h = left + lw*((w.h-left)/lw)
			if w.h < save {
				w.h += lw
			}
		default:
			lq := size / lw
			lr := size % lw
			if g.Subtype == node.CLeaders {
				w.h += lr / 2
			} else {
				lx = lr / (lq + 1)
				w.h += (lr - (lq-1)*lx) / 2
			}
		}
		for w.h+lw <= edge {
			save := w.h
			w.v = base + l.Shift
			w.out(l)
			w.v = base
			w.h = save + lw + lx
		}
		w.h = edge - 10
	default:
		w.h += size
	}
}

func (w *walker) vlistOut(b *node.Box) {
	left := w.h
	w.v -= b.Height
	top := w.v
	set := glueSetter{box: b}
	for p := b.List; p != nil; p = p.Next() {
		switch q := p.(type) {
		case *node.Box:
			if q.List == nil {
				w.v += q.Height + q.Depth
				continue
			}
			w.v += q.Height
			save := w.v
			w.h = left + q.Shift
			w.out(q)
			w.v = save + q.Depth
			w.h = left
		case *node.Rule:
			wd := q.Width
			if wd == node.Running {
				wd = b.Width
			}
			w.vRule(wd, q.Height+q.Depth)
		case *node.Glue:
			size := set.width(q.Spec)
			if q.IsLeaders() {
				w.vLeaders(q, size, top, left, b)
				continue
			}
			w.v += size
		case *node.Kern:
			w.v += q.Width
		}
	}
}

// vRule paints a rule of width wd and total height ht below the current
// position and moves down.
func (w *walker) vRule(wd, ht scaled.Scaled) {
	w.v += ht
	if ht > 0 && wd > 0 {
		w.paint.Rule(w.h, w.v-ht, wd, ht)
	}
}

func (w *walker) vLeaders(g *node.Glue, size, top, left scaled.Scaled, b *node.Box) {
	switch l := g.Leader.(type) {
	case *node.Rule:
		wd := l.Width
		if wd == node.Running {
			wd = b.Width
		}
		w.vRule(wd, size)
	case *node.Box:
		lh := l.Height + l.Depth
		if lh <= 0 || size <= 0 {
			w.v += size
			return
		}
		size += 10
		edge := w.v + size
		var lx scaled.Scaled
		switch g.Subtype {
		case node.ALeaders:
			save := w.v
			w.v = top + lh*((w.v-top)/lh)
			if w.v < save {
				w.v += lh
			}
		default:
			lq := size / lh
			lr := size % lh
			if g.Subtype == node.CLeaders {
				w.v += lr / 2
			} else {
				lx = lr / (lq + 1)
				w.v += (lr - (lq-1)*lx) / 2
			}
		}
		for w.v+lh <= edge {
			w.h = left + l.Shift
			w.v += l.Height
			save := w.v
			w.out(l)
			w.h = left
			w.v = save - l.Height + lh + lx
		}
		w.v = edge - 10
	default:
		w.v += size
	}
}
