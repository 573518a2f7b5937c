// Package linebreak chooses the breakpoints of a paragraph with the
// Knuth-Plass optimal fit method and packs the resulting lines into boxes
// on the enclosing vertical list.
package linebreak

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/hyph"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/pack"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
)

var (
	// ErrInfiniteShrink means \leftskip, \rightskip or glue inside the
	// paragraph can shrink infinitely.
	ErrInfiniteShrink = errors.New("linebreak: infinite glue shrinkage found in a paragraph")
	// ErrBreakingConfusion reports a broken internal invariant.
	ErrBreakingConfusion = errors.New("linebreak: this can't happen (line breaking)")
)

// interruptEvery is how many nodes are scanned between context checks.
const interruptEvery = 64

// maxLine stands for max_halfword in line number comparisons.
const maxLine = math.MaxInt32

// Breaker holds the collaborators of the line breaker. The zero Arena and
// Hyphenator are allowed: scratch records are then not accounted and words
// are never hyphenated.
type Breaker struct {
	Params     *params.Store
	Packer     *pack.Packer
	Arena      node.Arena
	Hyphenator hyph.Engine
	Reporter   diag.Reporter
}

// New returns a breaker reading p and packing lines with pk.
func New(p *params.Store, pk *pack.Packer, a node.Arena, h hyph.Engine, r diag.Reporter) *Breaker {
	if r == nil {
		r = diag.Discard
	}
	if pk == nil {
		pk = pack.New(p, r)
	}
	return &Breaker{Params: p, Packer: pk, Arena: a, Hyphenator: h, Reporter: r}
}

// Result describes a finished paragraph.
type Result struct {
	// Lines is the number of line boxes appended.
	Lines int
	// Pass is 1 for the pretolerance pass, 2 for the tolerance pass and 3
	// for the emergency pass.
	Pass int
}

// LineBreak breaks the horizontal list into lines and appends them to v,
// together with interline glue, interline penalties and any material
// migrated out of the lines. The list is consumed. finalWidowPenalty is
// charged for a break before the last line.
func (b *Breaker) LineBreak(ctx context.Context, list node.Node, v *node.VList, finalWidowPenalty int) (Result, error) {
	if list == nil {
		return Result{}, nil
	}
	s := &state{
		Breaker:           b,
		ctx:               ctx,
		finalWidowPenalty: finalWidowPenalty,
		vlist:             v,
		arena:             b.Arena,
	}
	if s.arena == nil {
		s.arena = nopArena{}
	}
	s.list = s.finishParagraph(list)
	if err := s.setup(); err != nil {
		node.Flush(s.list)
		return Result{}, err
	}
	if err := s.run(); err != nil {
		return Result{}, err
	}
	return Result{Lines: s.bestLine - 1, Pass: s.passNo}, nil
}

type nopArena struct{}

func (nopArena) Alloc(int) error { return nil }
func (nopArena) Free(int)        {}

// widths indexes: 0 natural width, 1..4 stretch by order, 5 shrink.
type widths [6]scaled.Scaled

func (w *widths) add(d *widths) {
	for k := range w {
		w[k] += d[k]
	}
}

func (w *widths) sub(d *widths) {
	for k := range w {
		w[k] -= d[k]
	}
}

func (w *widths) addGlue(g *node.GlueSpec) {
	w[0] += g.Width
	w[1+int(g.StretchOrder)] += g.Stretch
	w[5] += g.Shrink
}

func (w *widths) subGlue(g *node.GlueSpec) {
	w[0] -= g.Width
	w[1+int(g.StretchOrder)] -= g.Stretch
	w[5] -= g.Shrink
}

type fitness int

const (
	veryLoose fitness = iota
	loose
	decent
	tight
)

func (f fitness) String() string {
	return [...]string{"very loose", "loose", "decent", "tight"}[f]
}

// active is an entry of the active list: either a feasible breakpoint that
// may still start a line, or a delta record holding the width difference
// between its neighbours.
type active struct {
	next  *active
	delta bool
	d     widths

	fitness    fitness
	hyphenated bool
	brk        *passive
	line       int
	demerits   int
}

// passive is a breakpoint that has been chosen as the end of some line.
type passive struct {
	link      *passive
	curBreak  node.Node
	prevBreak *passive
	nextBreak *passive
	serial    int
}

type state struct {
	*Breaker
	ctx               context.Context
	finalWidowPenalty int
	arena             node.Arena
	vlist             *node.VList
	list              node.Node

	head    *active
	passive *passive
	serial  int
	passNo  int

	background  widths
	activeWidth widths
	breakWidth  widths
	discWidth   scaled.Scaled

	minimalDemerits [4]int
	minimumDemerits int
	bestPlace       [4]*passive
	bestPlLine      [4]int

	threshold  int
	secondPass bool
	finalPass  bool

	easyLine        int
	lastSpecialLine int
	firstWidth      scaled.Scaled
	firstIndent     scaled.Scaled
	secondWidth     scaled.Scaled
	secondIndent    scaled.Scaled
	shape           []params.ShapeLine

	curP            node.Node
	bestBet         *active
	bestLine        int
	fewestDemerits  int
	actualLooseness int
	looseness       int
	scanned         int
}

// finishParagraph drops trailing glue and appends \penalty10000 and
// \parfillskip.
func (s *state) finishParagraph(list node.Node) node.Node {
	var prev node.Node
	tail := list
	for tail.Next() != nil {
		prev = tail
		tail = tail.Next()
	}
	pen := node.NewPenalty(scaled.InfPenalty)
	if g, ok := tail.(*node.Glue); ok {
		node.Flush(g)
		if prev == nil {
			list = pen
		} else {
			prev.SetNext(pen)
		}
	} else {
		tail.SetNext(pen)
	}
	pen.SetNext(node.NewParamGlue(s.Params.Glue(params.ParFillSkip), node.ParFillSkipGlue))
	return list
}

func infiniteShrink(g *node.GlueSpec) bool {
	return g.ShrinkOrder != node.Normal && g.Shrink != 0
}

// setup computes the background width and the line width parameters.
func (s *state) setup() error {
	p := s.Params
	ls, rs := p.Glue(params.LeftSkip), p.Glue(params.RightSkip)
	if infiniteShrink(ls) {
		return diag.ReportShrink(s.Reporter, false, fmt.Errorf("%w: \\leftskip", ErrInfiniteShrink))
	}
	if infiniteShrink(rs) {
		return diag.ReportShrink(s.Reporter, false, fmt.Errorf("%w: \\rightskip", ErrInfiniteShrink))
	}
	s.background.addGlue(ls)
	s.background.addGlue(rs)

	hsize := p.Dimen(params.HSize)
	s.shape = p.ParShape()
	switch {
	case len(s.shape) > 0:
		n := len(s.shape)
		s.lastSpecialLine = n - 1
		s.secondIndent = s.shape[n-1].Indent
		s.secondWidth = s.shape[n-1].Width
	case p.Dimen(params.HangIndent) == 0:
		s.lastSpecialLine = 0
		s.secondWidth = hsize
		s.secondIndent = 0
	default:
		hi, ha := p.Dimen(params.HangIndent), p.Int(params.HangAfter)
		s.lastSpecialLine = abs(ha)
		var indent scaled.Scaled
		if hi >= 0 {
			indent = hi
		}
		if ha < 0 {
			s.firstWidth = hsize - scaled.Scaled(abs(int(hi)))
			s.firstIndent = indent
			s.secondWidth = hsize
			s.secondIndent = 0
		} else {
			s.firstWidth = hsize
			s.firstIndent = 0
			s.secondWidth = hsize - scaled.Scaled(abs(int(hi)))
			s.secondIndent = indent
		}
	}
	s.looseness = p.Int(params.Looseness)
	if s.looseness == 0 {
		s.easyLine = s.lastSpecialLine
	} else {
		s.easyLine = maxLine
	}
	return nil
}

// lineWidth returns the width of line l, which is at most easyLine.
func (s *state) lineWidth(l int) scaled.Scaled {
	switch {
	case l > s.lastSpecialLine:
		return s.secondWidth
	case len(s.shape) == 0:
		return s.firstWidth
	default:
		return s.shape[l-1].Width
	}
}

func (s *state) lineShape(l int) (width, indent scaled.Scaled) {
	switch {
	case l > s.lastSpecialLine:
		return s.secondWidth, s.secondIndent
	case len(s.shape) == 0:
		return s.firstWidth, s.firstIndent
	default:
		return s.shape[l-1].Width, s.shape[l-1].Indent
	}
}

// run tries the passes in turn and then builds the lines.
func (s *state) run() error {
	p := s.Params
	emergency := p.Dimen(params.EmergencyStretch)
	s.threshold = p.Int(params.Pretolerance)
	if s.threshold >= 0 {
		s.passNo = 1
	} else {
		s.threshold = p.Int(params.Tolerance)
		s.secondPass = true
		s.finalPass = emergency <= 0
		s.passNo = 2
	}
	for {
		s.threshold = min(s.threshold, scaled.InfBad)
		done, err := s.linePass()
		if err != nil {
			s.cleanup()
			return err
		}
		if done {
			break
		}
		s.cleanup()
		if !s.secondPass {
			s.threshold = p.Int(params.Tolerance)
			s.secondPass = true
			s.finalPass = emergency <= 0
		} else {
			s.background[1] += emergency
			s.finalPass = true
		}
		s.passNo++
	}
	err := s.postLineBreak()
	s.cleanup()
	return err
}

func (s *state) trace(format string, args ...any) {
	if s.Params.Int(params.TracingParagraphs) > 0 {
		diag.Tracef(s.Reporter, diag.TraceParagraph, format, args...)
	}
}

// linePass runs one pass over the paragraph. It reports whether a
// satisfactory set of breakpoints was found.
func (s *state) linePass() (bool, error) {
	if err := s.ctx.Err(); err != nil {
		return false, err
	}
	switch s.passNo {
	case 1:
		s.trace("@firstpass")
	case 2:
		s.trace("@secondpass")
	default:
		s.trace("@emergencypass")
	}
	s.head = &active{line: maxLine}
	s.head.next = s.head
	s.passive = nil
	s.serial = 0
	s.minimumDemerits = scaled.AwfulBad
	for i := range s.minimalDemerits {
		s.minimalDemerits[i] = scaled.AwfulBad
	}
	first, err := s.newActive()
	if err != nil {
		return false, err
	}
	first.fitness = decent
	first.line = 1
	first.next = s.head
	s.head.next = first
	s.activeWidth = s.background

	autoBreaking := true
	s.curP = s.list
	prevP := s.curP
	for s.curP != nil && s.head.next != s.head {
		s.scanned++
		if s.scanned%interruptEvery == 0 {
			if err := s.ctx.Err(); err != nil {
				return false, err
			}
		}
		cur := s.curP
		switch q := cur.(type) {
		case *node.Char:
			s.activeWidth[0] += q.Width
		case *node.Ligature:
			s.activeWidth[0] += q.Width
		case *node.Box:
			s.activeWidth[0] += q.Width
		case *node.Rule:
			s.activeWidth[0] += q.Width
		case *node.Whatsit, *node.Mark, *node.Ins, *node.Adjust:
		case *node.Glue:
			if autoBreaking && (node.NonDiscardable(prevP) || isImplicitKern(prevP)) {
				if err := s.tryBreak(0, false); err != nil {
					return false, err
				}
			}
			if infiniteShrink(q.Spec) {
				return false, diag.ReportShrink(s.Reporter, false, fmt.Errorf("%w: glue %s", ErrInfiniteShrink, q.Spec.Width))
			}
			s.activeWidth.addGlue(q.Spec)
			if s.secondPass && autoBreaking && s.Hyphenator != nil {
				s.hyphenateFollowing(q)
			}
		case *node.Kern:
			if q.Subtype == node.KernExplicit {
				if err := s.kernBreak(autoBreaking); err != nil {
					return false, err
				}
			}
			s.activeWidth[0] += q.Width
		case *node.Math:
			autoBreaking = q.Subtype == node.MathAfter
			if err := s.kernBreak(autoBreaking); err != nil {
				return false, err
			}
			s.activeWidth[0] += q.Width
		case *node.Penalty:
			if err := s.tryBreak(q.Penalty, false); err != nil {
				return false, err
			}
		case *node.Disc:
			next, err := s.scanDisc(q)
			if err != nil {
				return false, err
			}
			prevP = q
			s.curP = next
			continue
		default:
			return false, fmt.Errorf("%w: %s node in paragraph", ErrBreakingConfusion, cur.Type())
		}
		prevP = cur
		s.curP = cur.Next()
	}
	if s.curP != nil {
		return false, nil
	}
	if err := s.tryBreak(scaled.EjectPenalty, true); err != nil {
		return false, err
	}
	if s.head.next == s.head {
		return false, nil
	}
	s.findBest()
	if s.looseness == 0 {
		return true, nil
	}
	s.findLoosest()
	return s.actualLooseness == s.looseness || s.finalPass, nil
}

func isImplicitKern(n node.Node) bool {
	k, ok := n.(*node.Kern)
	return ok && k.Subtype != node.KernExplicit
}

// kernBreak is the break test shared by explicit kerns and math nodes: a
// break is legal when glue follows.
func (s *state) kernBreak(autoBreaking bool) error {
	next := s.curP.Next()
	if next == nil || !autoBreaking {
		return nil
	}
	if _, ok := next.(*node.Glue); ok {
		return s.tryBreak(0, false)
	}
	return nil
}

// scanDisc tries the break at a discretionary and advances past the nodes
// it replaces.
func (s *state) scanDisc(d *node.Disc) (node.Node, error) {
	s.discWidth = 0
	if d.Pre == nil {
		if err := s.tryBreak(s.Params.Int(params.ExHyphenPenalty), true); err != nil {
			return nil, err
		}
	} else {
		for p := d.Pre; p != nil; p = p.Next() {
			w, err := discNodeWidth(p)
			if err != nil {
				return nil, err
			}
			s.discWidth += w
		}
		s.activeWidth[0] += s.discWidth
		if err := s.tryBreak(s.Params.Int(params.HyphenPenalty), true); err != nil {
			return nil, err
		}
		s.activeWidth[0] -= s.discWidth
	}
	p := d.Next()
	for r := d.ReplaceCount; r > 0 && p != nil; r-- {
		w, err := discNodeWidth(p)
		if err != nil {
			return nil, err
		}
		s.activeWidth[0] += w
		p = p.Next()
	}
	return p, nil
}

// discNodeWidth returns the width of a node allowed in discretionary
// material.
func discNodeWidth(n node.Node) (scaled.Scaled, error) {
	switch q := n.(type) {
	case *node.Char:
		return q.Width, nil
	case *node.Ligature:
		return q.Width, nil
	case *node.Box:
		return q.Width, nil
	case *node.Rule:
		return q.Width, nil
	case *node.Kern:
		return q.Width, nil
	}
	return 0, fmt.Errorf("%w: %s node in discretionary", ErrBreakingConfusion, n.Type())
}

// findBest selects the active node with the fewest total demerits.
func (s *state) findBest() {
	s.fewestDemerits = math.MaxInt
	for r := s.head.next; r != s.head; r = r.next {
		if !r.delta && r.demerits < s.fewestDemerits {
			s.fewestDemerits = r.demerits
			s.bestBet = r
		}
	}
	s.bestLine = s.bestBet.line
}

// findLoosest moves bestBet towards the requested looseness.
func (s *state) findLoosest() {
	s.actualLooseness = 0
	for r := s.head.next; r != s.head; r = r.next {
		if r.delta {
			continue
		}
		diff := r.line - s.bestLine
		switch {
		case (diff < s.actualLooseness && s.looseness <= diff) ||
			(diff > s.actualLooseness && s.looseness >= diff):
			s.bestBet = r
			s.actualLooseness = diff
			s.fewestDemerits = r.demerits
		case diff == s.actualLooseness && r.demerits < s.fewestDemerits:
			s.bestBet = r
			s.fewestDemerits = r.demerits
		}
	}
	s.bestLine = s.bestBet.line
}

func (s *state) newActive() (*active, error) {
	if err := s.arena.Alloc(node.ActiveSize); err != nil {
		return nil, err
	}
	return &active{}, nil
}

func (s *state) newDelta() (*active, error) {
	if err := s.arena.Alloc(node.DeltaSize); err != nil {
		return nil, err
	}
	return &active{delta: true}, nil
}

func (s *state) free(r *active) {
	if r.delta {
		s.arena.Free(node.DeltaSize)
	} else {
		s.arena.Free(node.ActiveSize)
	}
}

// cleanup returns every active, delta and passive record to the arena.
func (s *state) cleanup() {
	if s.head != nil {
		for r := s.head.next; r != s.head; {
			next := r.next
			s.free(r)
			r = next
		}
		s.head.next = s.head
	}
	for p := s.passive; p != nil; p = p.link {
		s.arena.Free(node.PassiveSize)
	}
	s.passive = nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
