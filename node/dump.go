package node

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/ByLCY/quire/scaled"
)

// Dump renders a chain in the indented, one-node-per-line format used by
// box tracing. Nested lists are prefixed by one more '.'.
func Dump(n Node) string {
	var b strings.Builder
	dumpList(&b, n, "")
	return b.String()
}

// Digest returns the BLAKE3 hash of Dump(n), hex encoded. Two lists with
// the same digest typeset identically.
func Digest(n Node) string {
	sum := blake3.Sum256([]byte(Dump(n)))
	return hex.EncodeToString(sum[:])
}

func dumpList(b *strings.Builder, n Node, indent string) {
	for ; n != nil; n = n.Next() {
		b.WriteString(indent)
		dumpNode(b, n, indent)
		b.WriteByte('\n')
	}
}

func dumpNode(b *strings.Builder, n Node, indent string) {
	switch t := n.(type) {
	case *Char:
		fmt.Fprintf(b, "\\font%d %c", t.Font, t.Code)
	case *Box:
		if t.IsVertical() {
			b.WriteString("\\vbox")
		} else {
			b.WriteString("\\hbox")
		}
		fmt.Fprintf(b, "(%s+%s)x%s", t.Height, t.Depth, t.Width)
		if t.GlueSign != SignNormal && t.GlueSet != 0 {
			b.WriteString(", glue set ")
			if t.GlueSign == SignShrinking {
				b.WriteString("- ")
			}
			b.WriteString(strconv.FormatFloat(t.GlueSet, 'f', 5, 64))
			b.WriteString(t.GlueOrder.String())
		}
		if t.Shift != 0 {
			fmt.Fprintf(b, ", shifted %s", t.Shift)
		}
		b.WriteByte('\n')
		dumpList(b, t.List, indent+".")
		trimNewline(b)
	case *Rule:
		fmt.Fprintf(b, "\\rule(%s+%s)x%s", ruleDimen(t.Height), ruleDimen(t.Depth), ruleDimen(t.Width))
	case *Ins:
		fmt.Fprintf(b, "\\insert%d, natural size %s; split(%s,%s); float cost %d\n",
			t.Class, t.Height, specString(t.SplitTop), t.Depth, t.FloatCost)
		dumpList(b, t.List, indent+".")
		trimNewline(b)
	case *Mark:
		fmt.Fprintf(b, "\\mark{%s}", t.Text)
	case *Adjust:
		b.WriteString("\\vadjust\n")
		dumpList(b, t.List, indent+".")
		trimNewline(b)
	case *Ligature:
		fmt.Fprintf(b, "\\font%d %c (ligature ", t.Font, t.Code)
		for c := t.Components; c != nil; c = c.Next() {
			if ch, ok := c.(*Char); ok {
				b.WriteRune(ch.Code)
			}
		}
		b.WriteByte(')')
	case *Disc:
		b.WriteString("\\discretionary")
		if t.ReplaceCount > 0 {
			fmt.Fprintf(b, " replacing %d", t.ReplaceCount)
		}
		if t.Pre != nil || t.Post != nil {
			b.WriteByte('\n')
			dumpList(b, t.Pre, indent+".")
			dumpList(b, t.Post, indent+"|")
			trimNewline(b)
		}
	case *Whatsit:
		fmt.Fprintf(b, "\\whatsit %v", t.Payload)
	case *Math:
		if t.Subtype == MathBefore {
			b.WriteString("\\mathon")
		} else {
			b.WriteString("\\mathoff")
		}
		if t.Width != 0 {
			fmt.Fprintf(b, ", surrounded %s", t.Width)
		}
	case *Glue:
		switch {
		case t.Subtype >= ALeaders && t.Leader != nil:
			prefix := map[GlueSubtype]string{ALeaders: "", CLeaders: "c", XLeaders: "x"}[t.Subtype]
			fmt.Fprintf(b, "\\%sleaders %s\n", prefix, specString(t.Spec))
			dumpList(b, t.Leader, indent+".")
			trimNewline(b)
			return
		case t.Subtype != GlueNormal && t.Subtype < CondMathGlue:
			fmt.Fprintf(b, "\\glue(\\%s) %s", glueParamNames[t.Subtype], specString(t.Spec))
		default:
			fmt.Fprintf(b, "\\glue %s", specString(t.Spec))
		}
	case *Kern:
		switch t.Subtype {
		case KernExplicit:
			fmt.Fprintf(b, "\\kern %s", t.Width)
		case KernAccent:
			fmt.Fprintf(b, "\\kern %s (for accent)", t.Width)
		default:
			fmt.Fprintf(b, "\\kern%s", t.Width)
		}
	case *Penalty:
		fmt.Fprintf(b, "\\penalty %d", t.Penalty)
	default:
		b.WriteString("?")
	}
}

func trimNewline(b *strings.Builder) {
	s := b.String()
	if strings.HasSuffix(s, "\n") {
		b.Reset()
		b.WriteString(s[:len(s)-1])
	}
}

func ruleDimen(d scaled.Scaled) string {
	if d == Running {
		return "*"
	}
	return d.String()
}

func specString(g *GlueSpec) string {
	if g == nil {
		return "0.0"
	}
	s := g.Width.String()
	if g.Stretch != 0 {
		s += " plus " + g.Stretch.String() + g.StretchOrder.String()
	}
	if g.Shrink != 0 {
		s += " minus " + g.Shrink.String() + g.ShrinkOrder.String()
	}
	return s
}
