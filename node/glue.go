package node

import "github.com/ByLCY/quire/scaled"

// Order is the infinity order of stretch or shrink.
type Order uint8

const (
	Normal Order = iota
	Fil
	Fill
	Filll
)

func (o Order) String() string {
	switch o {
	case Fil:
		return "fil"
	case Fill:
		return "fill"
	case Filll:
		return "filll"
	default:
		return ""
	}
}

// GlueSpec holds the natural width and elasticity of glue. Specs are shared
// between glue nodes and counted; a spec referenced from more than one place
// must be cloned before it is changed.
type GlueSpec struct {
	Width        scaled.Scaled
	Stretch      scaled.Scaled
	Shrink       scaled.Scaled
	StretchOrder Order
	ShrinkOrder  Order
	refs         int
}

// Predefined specs. They hold a permanent reference and are never changed.
var (
	ZeroGlue   = &GlueSpec{refs: 1}
	FilGlue    = &GlueSpec{Stretch: scaled.Unity, StretchOrder: Fil, refs: 1}
	FillGlue   = &GlueSpec{Stretch: scaled.Unity, StretchOrder: Fill, refs: 1}
	SSGlue     = &GlueSpec{Stretch: scaled.Unity, StretchOrder: Fil, Shrink: scaled.Unity, ShrinkOrder: Fil, refs: 1}
	FilNegGlue = &GlueSpec{Stretch: -scaled.Unity, StretchOrder: Fil, refs: 1}
)

// NewSpec returns an unshared spec.
func NewSpec(width, stretch scaled.Scaled, so Order, shrink scaled.Scaled, ho Order) *GlueSpec {
	return &GlueSpec{Width: width, Stretch: stretch, StretchOrder: so, Shrink: shrink, ShrinkOrder: ho}
}

// Refs returns the number of references held on g.
func (g *GlueSpec) Refs() int { return g.refs }

// AddRef records one more reference to g and returns it.
func (g *GlueSpec) AddRef() *GlueSpec {
	g.refs++
	return g
}

// Release drops one reference. The count never goes below zero.
func (g *GlueSpec) Release() {
	if g.refs > 0 {
		g.refs--
	}
}

// Shared reports whether changing g in place would be visible elsewhere.
func (g *GlueSpec) Shared() bool { return g.refs > 1 }

// Clone returns an unreferenced copy of g.
func (g *GlueSpec) Clone() *GlueSpec {
	c := *g
	c.refs = 0
	return &c
}

// IsZero reports whether g is zero width without stretch or shrink.
func (g *GlueSpec) IsZero() bool {
	return g.Width == 0 && g.Stretch == 0 && g.Shrink == 0
}

// GlueSubtype names the parameter a glue node came from, or its leader kind.
type GlueSubtype uint8

const (
	GlueNormal GlueSubtype = iota
	LineSkipGlue
	BaselineSkipGlue
	ParSkipGlue
	AboveDisplaySkipGlue
	BelowDisplaySkipGlue
	AboveDisplayShortSkipGlue
	BelowDisplayShortSkipGlue
	LeftSkipGlue
	RightSkipGlue
	TopSkipGlue
	SplitTopSkipGlue
	TabSkipGlue
	SpaceSkipGlue
	XSpaceSkipGlue
	ParFillSkipGlue
	CondMathGlue GlueSubtype = 98
	MuGlue       GlueSubtype = 99
	ALeaders     GlueSubtype = 100
	CLeaders     GlueSubtype = 101
	XLeaders     GlueSubtype = 102
)

var glueParamNames = map[GlueSubtype]string{
	LineSkipGlue:              "lineskip",
	BaselineSkipGlue:          "baselineskip",
	ParSkipGlue:               "parskip",
	AboveDisplaySkipGlue:      "abovedisplayskip",
	BelowDisplaySkipGlue:      "belowdisplayskip",
	AboveDisplayShortSkipGlue: "abovedisplayshortskip",
	BelowDisplayShortSkipGlue: "belowdisplayshortskip",
	LeftSkipGlue:              "leftskip",
	RightSkipGlue:             "rightskip",
	TopSkipGlue:               "topskip",
	SplitTopSkipGlue:          "splittopskip",
	TabSkipGlue:               "tabskip",
	SpaceSkipGlue:             "spaceskip",
	XSpaceSkipGlue:            "xspaceskip",
	ParFillSkipGlue:           "parfillskip",
}

// Glue is elastic space.
type Glue struct {
	link
	Subtype GlueSubtype
	Spec    *GlueSpec
	// Leader is the box or rule repeated by leaders; nil for plain glue.
	Leader Node
}

func (*Glue) Type() Type { return GlueNode }

// NewGlue returns a glue node referencing spec.
func NewGlue(spec *GlueSpec) *Glue {
	return &Glue{Spec: spec.AddRef()}
}

// NewParamGlue returns glue that came from the named parameter.
func NewParamGlue(spec *GlueSpec, subtype GlueSubtype) *Glue {
	g := NewGlue(spec)
	g.Subtype = subtype
	return g
}

// SetSpec replaces the spec of g, moving the reference.
func (g *Glue) SetSpec(spec *GlueSpec) {
	if g.Spec != nil {
		g.Spec.Release()
	}
	g.Spec = spec.AddRef()
}

// IsLeaders reports whether g is a leader glue.
func (g *Glue) IsLeaders() bool { return g.Subtype >= ALeaders && g.Leader != nil }
