// Package params is the parameter store read by the typesetting core:
// integer, dimension and glue parameters, the count/dimen/skip/box
// registers, and the paragraph shape. Assignments are local to the current
// group and undone when the group ends.
package params

import (
	"errors"
	"fmt"

	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/scaled"
)

// Int names an integer parameter.
type Int int

const (
	Pretolerance Int = iota
	Tolerance
	LinePenalty
	HyphenPenalty
	ExHyphenPenalty
	ClubPenalty
	WidowPenalty
	DisplayWidowPenalty
	BrokenPenalty
	InterLinePenalty
	DoubleHyphenDemerits
	FinalHyphenDemerits
	AdjDemerits
	Looseness
	HBadness
	VBadness
	MaxDeadCycles
	HangAfter
	HoldingInserts
	LeftHyphenMin
	RightHyphenMin
	UcHyph
	Language
	TracingParagraphs
	TracingPages
	TracingOnline
	OutputPenalty
	FloatingPenalty
	numInts
)

// Dimen names a dimension parameter.
type Dimen int

const (
	HSize Dimen = iota
	VSize
	MaxDepth
	SplitMaxDepth
	BoxMaxDepth
	HangIndent
	EmergencyStretch
	HFuzz
	VFuzz
	LineSkipLimit
	ParIndent
	numDimens
)

// Glue names a glue parameter.
type Glue int

const (
	LineSkip Glue = iota
	BaselineSkip
	ParSkip
	LeftSkip
	RightSkip
	TopSkip
	SplitTopSkip
	ParFillSkip
	numGlues
)

// Registers holds the number of count/dimen/skip/box registers.
const Registers = 256

// MaxGroupDepth bounds nested groups.
const MaxGroupDepth = 255

var (
	// ErrGroupUnderflow is returned by End without a matching Begin.
	ErrGroupUnderflow = errors.New("params: too many group ends")
	// ErrSaveStackOverflow is returned when groups nest too deeply.
	ErrSaveStackOverflow = errors.New("params: grouping levels exceeded")
)

// ShapeLine is one line of a paragraph shape.
type ShapeLine struct {
	Indent scaled.Scaled
	Width  scaled.Scaled
}

type slot struct {
	kind  byte
	index int
}

const (
	kindInt byte = iota
	kindDimen
	kindGlue
	kindCount
	kindDimenReg
	kindSkip
	kindBox
	kindShape
	kindLc
)

// Store is the explicit configuration object handed to the core.
type Store struct {
	ints   [numInts]int
	dimens [numDimens]scaled.Scaled
	glues  [numGlues]*node.GlueSpec

	counts   [Registers]int
	dimenReg [Registers]scaled.Scaled
	skips    [Registers]*node.GlueSpec
	boxes    [Registers]*node.Box

	parShape []ShapeLine
	lcCodes  map[rune]rune

	// frames records, per open group, the values overwritten inside it.
	frames []map[slot]any
}

// New returns a store initialised with the plain format's defaults.
func New() *Store {
	s := &Store{lcCodes: map[rune]rune{}}
	for i := range s.glues {
		s.glues[i] = node.ZeroGlue.AddRef()
	}
	for i := range s.skips {
		s.skips[i] = node.ZeroGlue.AddRef()
	}
	pt := scaled.Unity
	s.ints[Pretolerance] = 100
	s.ints[Tolerance] = 200
	s.ints[LinePenalty] = 10
	s.ints[HyphenPenalty] = 50
	s.ints[ExHyphenPenalty] = 50
	s.ints[ClubPenalty] = 150
	s.ints[WidowPenalty] = 150
	s.ints[DisplayWidowPenalty] = 50
	s.ints[BrokenPenalty] = 100
	s.ints[DoubleHyphenDemerits] = 10000
	s.ints[FinalHyphenDemerits] = 5000
	s.ints[AdjDemerits] = 10000
	s.ints[HBadness] = 1000
	s.ints[VBadness] = 1000
	s.ints[MaxDeadCycles] = 25
	s.ints[HangAfter] = 1
	s.ints[LeftHyphenMin] = 2
	s.ints[RightHyphenMin] = 3
	s.ints[UcHyph] = 1
	s.ints[OutputPenalty] = scaled.InfPenalty

	s.dimens[HSize] = 30785863 // 6.5in
	s.dimens[VSize] = 42152922 // 8.9in
	s.dimens[MaxDepth] = 4 * pt
	s.dimens[SplitMaxDepth] = scaled.MaxDimen
	s.dimens[BoxMaxDepth] = scaled.MaxDimen
	s.dimens[HFuzz] = pt / 10
	s.dimens[VFuzz] = pt / 10
	s.dimens[ParIndent] = 20 * pt

	s.SetGlue(BaselineSkip, node.NewSpec(12*pt, 0, node.Normal, 0, node.Normal))
	s.SetGlue(LineSkip, node.NewSpec(pt, 0, node.Normal, 0, node.Normal))
	s.SetGlue(ParSkip, node.NewSpec(0, pt, node.Normal, 0, node.Normal))
	s.SetGlue(TopSkip, node.NewSpec(10*pt, 0, node.Normal, 0, node.Normal))
	s.SetGlue(SplitTopSkip, node.NewSpec(10*pt, 0, node.Normal, 0, node.Normal))
	s.SetGlue(ParFillSkip, node.FilGlue)

	for c := 'a'; c <= 'z'; c++ {
		s.lcCodes[c] = c
		s.lcCodes[c-'a'+'A'] = c
	}
	return s
}

// Level returns the current group nesting depth.
func (s *Store) Level() int { return len(s.frames) }

// Begin opens a group.
func (s *Store) Begin() error {
	if len(s.frames) >= MaxGroupDepth {
		return fmt.Errorf("%w (%d)", ErrSaveStackOverflow, MaxGroupDepth)
	}
	s.frames = append(s.frames, nil)
	return nil
}

// End closes the innermost group, restoring every value assigned in it.
func (s *Store) End() error {
	if len(s.frames) == 0 {
		return ErrGroupUnderflow
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	for k, old := range top {
		s.restore(k, old)
	}
	return nil
}

// save records old as the value of k to restore at the end of the current
// group. It reports false when nothing was recorded: outside any group, or
// when k was already assigned in this group.
func (s *Store) save(k slot, old any) bool {
	if len(s.frames) == 0 {
		return false
	}
	top := s.frames[len(s.frames)-1]
	if top == nil {
		top = map[slot]any{}
		s.frames[len(s.frames)-1] = top
	}
	if _, ok := top[k]; ok {
		return false
	}
	top[k] = old
	return true
}

func (s *Store) restore(k slot, old any) {
	switch k.kind {
	case kindInt:
		s.ints[k.index] = old.(int)
	case kindDimen:
		s.dimens[k.index] = old.(scaled.Scaled)
	case kindGlue:
		s.glues[k.index].Release()
		s.glues[k.index] = old.(*node.GlueSpec)
	case kindCount:
		s.counts[k.index] = old.(int)
	case kindDimenReg:
		s.dimenReg[k.index] = old.(scaled.Scaled)
	case kindSkip:
		s.skips[k.index].Release()
		s.skips[k.index] = old.(*node.GlueSpec)
	case kindBox:
		s.boxes[k.index] = old.(*node.Box)
	case kindShape:
		s.parShape = old.([]ShapeLine)
	case kindLc:
		c := rune(k.index)
		if v := old.(rune); v == 0 {
			delete(s.lcCodes, c)
		} else {
			s.lcCodes[c] = v
		}
	}
}

// Int returns an integer parameter.
func (s *Store) Int(p Int) int { return s.ints[p] }

// SetInt assigns an integer parameter in the current group.
func (s *Store) SetInt(p Int, v int) {
	s.save(slot{kindInt, int(p)}, s.ints[p])
	s.ints[p] = v
}

// SetIntGlobal assigns an integer parameter so that the value survives
// the end of every open group.
func (s *Store) SetIntGlobal(p Int, v int) {
	k := slot{kindInt, int(p)}
	for _, f := range s.frames {
		delete(f, k)
	}
	s.ints[p] = v
}

// Dimen returns a dimension parameter.
func (s *Store) Dimen(p Dimen) scaled.Scaled { return s.dimens[p] }

// SetDimen assigns a dimension parameter in the current group.
func (s *Store) SetDimen(p Dimen, v scaled.Scaled) {
	s.save(slot{kindDimen, int(p)}, s.dimens[p])
	s.dimens[p] = v
}

// Glue returns a glue parameter. The spec is shared and must not be changed.
func (s *Store) Glue(p Glue) *node.GlueSpec { return s.glues[p] }

// SetGlue assigns a glue parameter in the current group.
func (s *Store) SetGlue(p Glue, spec *node.GlueSpec) {
	spec.AddRef()
	// A value that is not kept for restoring loses its reference here.
	if !s.save(slot{kindGlue, int(p)}, s.glues[p]) {
		s.glues[p].Release()
	}
	s.glues[p] = spec
}

// Count returns \count n.
func (s *Store) Count(n int) int { return s.counts[n] }

// SetCount assigns \count n.
func (s *Store) SetCount(n, v int) {
	s.save(slot{kindCount, n}, s.counts[n])
	s.counts[n] = v
}

// DimenReg returns \dimen n.
func (s *Store) DimenReg(n int) scaled.Scaled { return s.dimenReg[n] }

// SetDimenReg assigns \dimen n.
func (s *Store) SetDimenReg(n int, v scaled.Scaled) {
	s.save(slot{kindDimenReg, n}, s.dimenReg[n])
	s.dimenReg[n] = v
}

// Skip returns \skip n.
func (s *Store) Skip(n int) *node.GlueSpec { return s.skips[n] }

// SetSkip assigns \skip n.
func (s *Store) SetSkip(n int, spec *node.GlueSpec) {
	spec.AddRef()
	// A value that is not kept for restoring loses its reference here.
	if !s.save(slot{kindSkip, n}, s.skips[n]) {
		s.skips[n].Release()
	}
	s.skips[n] = spec
}

// Box returns \box n without removing it.
func (s *Store) Box(n int) *node.Box { return s.boxes[n] }

// SetBox assigns \box n in the current group; nil makes it void.
func (s *Store) SetBox(n int, b *node.Box) {
	s.save(slot{kindBox, n}, s.boxes[n])
	s.boxes[n] = b
}

// PutBox stores b in \box n without recording the old value in the
// current group. The page builder fills \box255 and the insertion boxes
// this way.
func (s *Store) PutBox(n int, b *node.Box) { s.boxes[n] = b }

// TakeBox removes and returns \box n, leaving it void. As with \box n in
// TeX the register stays void when the current group ends.
func (s *Store) TakeBox(n int) *node.Box {
	b := s.boxes[n]
	s.boxes[n] = nil
	return b
}

// ParShape returns the current paragraph shape, nil when none is set.
func (s *Store) ParShape() []ShapeLine { return s.parShape }

// SetParShape assigns the paragraph shape.
func (s *Store) SetParShape(lines []ShapeLine) {
	s.save(slot{kindShape, 0}, s.parShape)
	s.parShape = lines
}

// LcCode returns the lower-case code of c, zero for non-letters.
func (s *Store) LcCode(c rune) rune { return s.lcCodes[c] }

// SetLcCode assigns the lower-case code of c.
func (s *Store) SetLcCode(c, lc rune) {
	s.save(slot{kindLc, int(c)}, s.lcCodes[c])
	if lc == 0 {
		delete(s.lcCodes, c)
		return
	}
	s.lcCodes[c] = lc
}
