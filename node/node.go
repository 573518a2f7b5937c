// Package node defines the typeset material consumed and produced by the
// breaking and packaging routines: characters, boxes, rules, glue, kerns,
// penalties, discretionaries and the other members of horizontal and
// vertical lists.
//
// Lists are singly linked through Next. A node belongs to exactly one list
// at a time; moving material between lists relinks it and never copies it.
package node

import "github.com/ByLCY/quire/scaled"

// Type identifies the variant of a node. The order matters: every type
// below MathNode is non-discardable and may precede a glue break.
type Type uint8

const (
	CharNode Type = iota
	HListNode
	VListNode
	RuleNode
	InsNode
	MarkNode
	AdjustNode
	LigatureNode
	DiscNode
	WhatsitNode
	MathNode
	GlueNode
	KernNode
	PenaltyNode
)

var typeNames = [...]string{
	CharNode:     "char",
	HListNode:    "hlist",
	VListNode:    "vlist",
	RuleNode:     "rule",
	InsNode:      "ins",
	MarkNode:     "mark",
	AdjustNode:   "adjust",
	LigatureNode: "ligature",
	DiscNode:     "disc",
	WhatsitNode:  "whatsit",
	MathNode:     "math",
	GlueNode:     "glue",
	KernNode:     "kern",
	PenaltyNode:  "penalty",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Node is any member of a horizontal or vertical list.
type Node interface {
	Type() Type
	Next() Node
	SetNext(Node)
}

type link struct {
	next Node
}

// Next returns the following node or nil at the end of the list.
func (l *link) Next() Node { return l.next }

// SetNext relinks the following node.
func (l *link) SetNext(n Node) { l.next = n }

// NonDiscardable reports whether n survives at the start of a line or page.
// Glue that follows such a node is a legal breakpoint.
func NonDiscardable(n Node) bool {
	return n != nil && n.Type() < MathNode
}

// Running marks a rule dimension that is taken from the enclosing box.
const Running scaled.Scaled = -(1 << 30)

// Char is a single glyph. Its metrics are resolved by the list builder when
// the node is created.
type Char struct {
	link
	Font   int
	Code   rune
	Width  scaled.Scaled
	Height scaled.Scaled
	Depth  scaled.Scaled
}

func (*Char) Type() Type { return CharNode }

// NewChar returns a character node with the given metrics.
func NewChar(font int, code rune, width, height, depth scaled.Scaled) *Char {
	return &Char{Font: font, Code: code, Width: width, Height: height, Depth: depth}
}

// GlueSign tells whether the glue inside a box is stretched or shrunk.
type GlueSign uint8

const (
	SignNormal GlueSign = iota
	SignStretching
	SignShrinking
)

// Box is an hlist or vlist node.
type Box struct {
	link
	typ       Type
	Width     scaled.Scaled
	Height    scaled.Scaled
	Depth     scaled.Scaled
	Shift     scaled.Scaled
	List      Node
	GlueSign  GlueSign
	GlueOrder Order
	GlueSet   float64
}

func (b *Box) Type() Type { return b.typ }

// NewHList returns an empty horizontal box.
func NewHList() *Box { return &Box{typ: HListNode} }

// NewVList returns an empty vertical box.
func NewVList() *Box { return &Box{typ: VListNode} }

// IsVertical reports whether b is a vlist.
func (b *Box) IsVertical() bool { return b.typ == VListNode }

// Rule is a solid black rectangle.
type Rule struct {
	link
	Width  scaled.Scaled
	Height scaled.Scaled
	Depth  scaled.Scaled
}

func (*Rule) Type() Type { return RuleNode }

// NewRule returns a rule whose dimensions are all running.
func NewRule() *Rule {
	return &Rule{Width: Running, Height: Running, Depth: Running}
}

// Ins is floating material of one insertion class.
type Ins struct {
	link
	Class int
	// Height is the natural height plus depth of List.
	Height scaled.Scaled
	// Depth holds the split_max_depth in force when the insert was made.
	Depth     scaled.Scaled
	FloatCost int
	SplitTop  *GlueSpec
	List      Node
}

func (*Ins) Type() Type { return InsNode }

// Mark carries a token list that the output routine can retrieve.
type Mark struct {
	link
	Text string
}

func (*Mark) Type() Type { return MarkNode }

// Adjust is vertical material lifted out of a line into the enclosing list.
type Adjust struct {
	link
	List Node
}

func (*Adjust) Type() Type { return AdjustNode }

// Ligature is a glyph that stands for the characters in Components.
type Ligature struct {
	link
	Font       int
	Code       rune
	Width      scaled.Scaled
	Height     scaled.Scaled
	Depth      scaled.Scaled
	Components Node
	// LeftBoundary and RightBoundary mark ligatures formed with an
	// implicit boundary character.
	LeftBoundary  bool
	RightBoundary bool
}

func (*Ligature) Type() Type { return LigatureNode }

// AsChar returns a character node with the ligature's font, code and metrics.
func (l *Ligature) AsChar() *Char {
	return NewChar(l.Font, l.Code, l.Width, l.Height, l.Depth)
}

// Disc is a discretionary break.
type Disc struct {
	link
	Pre  Node
	Post Node
	// ReplaceCount following nodes are dropped when the break is taken.
	ReplaceCount int
}

func (*Disc) Type() Type { return DiscNode }

// Whatsit is opaque material passed through untouched.
type Whatsit struct {
	link
	Payload any
}

func (*Whatsit) Type() Type { return WhatsitNode }

// MathSubtype distinguishes the two ends of an inline formula.
type MathSubtype uint8

const (
	MathBefore MathSubtype = iota
	MathAfter
)

// Math is a math-on or math-off boundary with its math surround.
type Math struct {
	link
	Subtype MathSubtype
	Width   scaled.Scaled
}

func (*Math) Type() Type { return MathNode }

// KernSubtype records where a kern came from.
type KernSubtype uint8

const (
	KernNormal KernSubtype = iota
	KernExplicit
	KernAccent
	KernMu
)

// Kern is a fixed space.
type Kern struct {
	link
	Subtype KernSubtype
	Width   scaled.Scaled
}

func (*Kern) Type() Type { return KernNode }

// NewKern returns a normal kern of width w.
func NewKern(w scaled.Scaled) *Kern { return &Kern{Width: w} }

// Penalty is a breakpoint with an associated cost.
type Penalty struct {
	link
	Penalty int
}

func (*Penalty) Type() Type { return PenaltyNode }

// NewPenalty returns a penalty node.
func NewPenalty(p int) *Penalty { return &Penalty{Penalty: p} }
