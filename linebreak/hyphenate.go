package linebreak

import (
	"github.com/ByLCY/quire/hyph"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/params"
)

// maxWordLength bounds the letters handed to the hyphenator.
const maxWordLength = 63

func normMin(h int) int {
	switch {
	case h <= 0:
		return 1
	case h >= maxWordLength:
		return maxWordLength
	}
	return h
}

// hyphenateFollowing looks at the word after glue g and, when it is a run
// of letters in one font followed by material that permits hyphenation,
// passes it to the hyphenator. Ligatures of non-letters before the word are
// skipped. Words containing ligatures or implicit kerns are left alone.
func (s *state) hyphenateFollowing(g *node.Glue) {
	p := s.Params
	n := g.Next()
	var first *node.Char
	for first == nil {
		switch q := n.(type) {
		case *node.Char:
			lc := p.LcCode(q.Code)
			if lc == 0 {
				break
			}
			if lc != q.Code && p.Int(params.UcHyph) <= 0 {
				return
			}
			first = q
			continue
		case *node.Ligature:
			// A ligature that starts with a letter starts the word.
			if c, ok := q.Components.(*node.Char); ok && p.LcCode(c.Code) != 0 {
				return
			}
		case *node.Kern:
			if q.Subtype != node.KernNormal {
				return
			}
		case *node.Whatsit:
		default:
			return
		}
		n = n.Next()
	}

	w := &hyph.Word{
		Font:     first.Font,
		LeftMin:  normMin(p.Int(params.LeftHyphenMin)),
		RightMin: normMin(p.Int(params.RightHyphenMin)),
	}
	if w.LeftMin+w.RightMin > maxWordLength {
		return
	}
	for ; n != nil; n = n.Next() {
		c, ok := n.(*node.Char)
		if !ok || c.Font != w.Font {
			break
		}
		lc := p.LcCode(c.Code)
		if lc == 0 || len(w.Letters) == maxWordLength {
			break
		}
		w.Letters = append(w.Letters, lc)
		w.Chars = append(w.Chars, c)
	}
	if len(w.Letters) < w.LeftMin+w.RightMin || !wordEnds(n) {
		return
	}
	s.Hyphenator.Hyphenate(w)
}

// wordEnds reports whether the nodes after a word allow it to be
// hyphenated: trailing punctuation may follow, then glue, a penalty, an
// explicit kern or material that takes no space.
func wordEnds(n node.Node) bool {
	for ; n != nil; n = n.Next() {
		switch q := n.(type) {
		case *node.Char, *node.Ligature:
		case *node.Kern:
			if q.Subtype != node.KernNormal {
				return true
			}
		case *node.Whatsit, *node.Glue, *node.Penalty, *node.Ins, *node.Adjust, *node.Mark:
			return true
		default:
			return false
		}
	}
	return true
}
