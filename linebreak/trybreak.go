package linebreak

import (
	"strconv"

	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
)

// tryBreak considers a break at s.curP with penalty pi. It walks the active
// list once, recording the best way to reach this breakpoint from each
// fitness class and creating new active nodes whenever a group of equal
// line numbers ends. Nodes that can no longer start a feasible line are
// deactivated.
func (s *state) tryBreak(pi int, hyphenated bool) error {
	if abs(pi) >= scaled.InfPenalty {
		if pi > 0 {
			return nil
		}
		pi = scaled.EjectPenalty
	}
	noBreakYet := true
	prevR := s.head
	var prevPrevR *active
	oldL := 0
	cur := s.activeWidth
	var lineWidth scaled.Scaled

	for {
		r := prevR.next
		if r.delta {
			cur.add(&r.d)
			prevPrevR = prevR
			prevR = r
			continue
		}

		l := r.line
		if l > oldL {
			if s.minimumDemerits < scaled.AwfulBad && (oldL != s.easyLine || r == s.head) {
				if noBreakYet {
					noBreakYet = false
					if err := s.computeBreakWidth(hyphenated); err != nil {
						return err
					}
				}
				// Insert a delta node to prepare for breaks at curP.
				switch {
				case prevR.delta:
					for k := range prevR.d {
						prevR.d[k] = prevR.d[k] - cur[k] + s.breakWidth[k]
					}
				case prevR == s.head:
					s.activeWidth = s.breakWidth
				default:
					q, err := s.newDelta()
					if err != nil {
						return err
					}
					for k := range q.d {
						q.d[k] = s.breakWidth[k] - cur[k]
					}
					q.next = r
					prevR.next = q
					prevPrevR = prevR
					prevR = q
				}
				adj := abs(s.Params.Int(params.AdjDemerits))
				if adj >= scaled.AwfulBad-s.minimumDemerits {
					s.minimumDemerits = scaled.AwfulBad - 1
				} else {
					s.minimumDemerits += adj
				}
				for fc := veryLoose; fc <= tight; fc++ {
					if s.minimalDemerits[fc] <= s.minimumDemerits {
						q, err := s.newBreak(fc, hyphenated)
						if err != nil {
							return err
						}
						q.next = r
						prevR.next = q
						prevR = q
					}
					s.minimalDemerits[fc] = scaled.AwfulBad
				}
				s.minimumDemerits = scaled.AwfulBad
				// Insert a delta node to prepare for the next active node.
				if r != s.head {
					q, err := s.newDelta()
					if err != nil {
						return err
					}
					for k := range q.d {
						q.d[k] = cur[k] - s.breakWidth[k]
					}
					q.next = r
					prevR.next = q
					prevPrevR = prevR
					prevR = q
				}
			}
			if r == s.head {
				return nil
			}
			if l > s.easyLine {
				lineWidth = s.secondWidth
				oldL = maxLine - 1
			} else {
				oldL = l
				lineWidth = s.lineWidth(l)
			}
		}

		artificial := false
		var b int
		var fc fitness
		shortfall := lineWidth - cur[0]
		if shortfall > 0 {
			if cur[2] != 0 || cur[3] != 0 || cur[4] != 0 {
				b, fc = 0, decent
			} else {
				b = scaled.Badness(shortfall, cur[1])
				switch {
				case b > 99:
					fc = veryLoose
				case b > 12:
					fc = loose
				default:
					fc = decent
				}
			}
		} else {
			if -shortfall > cur[5] {
				b = scaled.InfBad + 1
			} else {
				b = scaled.Badness(-shortfall, cur[5])
			}
			if b > 12 {
				fc = tight
			} else {
				fc = decent
			}
		}

		var stays, record bool
		if b > scaled.InfBad || pi == scaled.EjectPenalty {
			// r cannot start a line that reaches past this point.
			record = true
			if s.finalPass && s.minimumDemerits == scaled.AwfulBad && r.next == s.head && prevR == s.head {
				artificial = true
			} else if b > s.threshold {
				record = false
			}
		} else {
			prevR = r
			if b > s.threshold {
				continue
			}
			record = true
			stays = true
		}

		if record {
			s.recordFeasible(r, b, pi, fc, hyphenated, artificial)
		}
		if stays {
			continue
		}

		// Deactivate r, merging the delta nodes around it.
		prevR.next = r.next
		s.free(r)
		if prevR == s.head {
			r = s.head.next
			if r.delta {
				s.activeWidth.add(&r.d)
				cur = s.activeWidth
				s.head.next = r.next
				s.free(r)
			}
		} else if prevR.delta {
			r = prevR.next
			if r == s.head {
				cur.sub(&prevR.d)
				prevPrevR.next = s.head
				s.free(prevR)
				prevR = prevPrevR
			} else if r.delta {
				cur.add(&r.d)
				prevR.d.add(&r.d)
				prevR.next = r.next
				s.free(r)
			}
		}
	}
}

// recordFeasible computes the demerits of a line from r to curP and keeps
// them when they are the best seen for fitness class fc.
func (s *state) recordFeasible(r *active, b, pi int, fc fitness, hyphenated, artificial bool) {
	p := s.Params
	d := 0
	if !artificial {
		d = p.Int(params.LinePenalty) + b
		if abs(d) >= 10000 {
			d = 100000000
		} else {
			d *= d
		}
		if pi != 0 {
			if pi > 0 {
				d += pi * pi
			} else if pi > scaled.EjectPenalty {
				d -= pi * pi
			}
		}
		if hyphenated && r.hyphenated {
			if s.curP != nil {
				d += p.Int(params.DoubleHyphenDemerits)
			} else {
				d += p.Int(params.FinalHyphenDemerits)
			}
		}
		if abs(int(fc)-int(r.fitness)) > 1 {
			d += p.Int(params.AdjDemerits)
		}
	}
	if p.Int(params.TracingParagraphs) > 0 {
		from := 0
		if r.brk != nil {
			from = r.brk.serial
		}
		bs := "*"
		if b <= scaled.InfBad {
			bs = strconv.Itoa(b)
		}
		ds := "*"
		if !artificial {
			ds = strconv.Itoa(d)
		}
		s.trace("@ via @@%d b=%s p=%d d=%s", from, bs, pi, ds)
	}
	d += r.demerits
	if d <= s.minimalDemerits[fc] {
		s.minimalDemerits[fc] = d
		s.bestPlace[fc] = r.brk
		s.bestPlLine[fc] = r.line
		if d < s.minimumDemerits {
			s.minimumDemerits = d
		}
	}
}

// newBreak allocates the passive and active records for the best break in
// class fc ending at curP.
func (s *state) newBreak(fc fitness, hyphenated bool) (*active, error) {
	if err := s.arena.Alloc(node.PassiveSize); err != nil {
		return nil, err
	}
	s.serial++
	p := &passive{
		link:      s.passive,
		curBreak:  s.curP,
		prevBreak: s.bestPlace[fc],
		serial:    s.serial,
	}
	s.passive = p
	q, err := s.newActive()
	if err != nil {
		return nil, err
	}
	q.brk = p
	q.line = s.bestPlLine[fc] + 1
	q.fitness = fc
	q.hyphenated = hyphenated
	q.demerits = s.minimalDemerits[fc]
	if s.Params.Int(params.TracingParagraphs) > 0 {
		prev := 0
		if p.prevBreak != nil {
			prev = p.prevBreak.serial
		}
		h := ""
		if hyphenated {
			h = "-"
		}
		s.trace("@@%d: line %d.%d%s t=%d -> @@%d", p.serial, q.line-1, int(fc), h, q.demerits, prev)
	}
	return q, nil
}

// computeBreakWidth sets breakWidth to the background minus the material
// that disappears when the line breaks at curP.
func (s *state) computeBreakWidth(hyphenated bool) error {
	s.breakWidth = s.background
	p := s.curP
	if d, ok := p.(*node.Disc); ok && hyphenated {
		v := node.Node(d)
		for t := d.ReplaceCount; t > 0; t-- {
			v = v.Next()
			w, err := discNodeWidth(v)
			if err != nil {
				return err
			}
			s.breakWidth[0] -= w
		}
		for q := d.Post; q != nil; q = q.Next() {
			w, err := discNodeWidth(q)
			if err != nil {
				return err
			}
			s.breakWidth[0] += w
		}
		s.breakWidth[0] += s.discWidth
		if d.Post != nil {
			return nil
		}
		p = v.Next()
	}
	for ; p != nil; p = p.Next() {
		switch q := p.(type) {
		case *node.Glue:
			s.breakWidth.subGlue(q.Spec)
		case *node.Penalty:
		case *node.Math:
			s.breakWidth[0] -= q.Width
		case *node.Kern:
			if q.Subtype != node.KernExplicit {
				return nil
			}
			s.breakWidth[0] -= q.Width
		default:
			return nil
		}
	}
	return nil
}
