// Package scaled implements the fixed-point arithmetic used throughout the
// typesetting core. A Scaled value counts units of 2^-16 pt ("sp").
package scaled

import (
	"errors"
	"strconv"
	"strings"
)

// Scaled is a dimension measured in scaled points.
type Scaled int

const (
	// Unity is 1pt.
	Unity Scaled = 1 << 16
	// Two is 2pt, used when rounding decimal fractions.
	Two Scaled = 1 << 17
	// MaxDimen is the largest legal dimension, just under 16384pt.
	MaxDimen Scaled = 1<<30 - 1
)

const (
	// InfBad is the badness of an infinitely bad box.
	InfBad = 10000
	// InfPenalty is the penalty sentinel for "never break here".
	InfPenalty = InfBad
	// EjectPenalty forces a break.
	EjectPenalty = -InfPenalty
	// AwfulBad is larger than any feasible cost.
	AwfulBad = 1<<30 - 1
	// Deplorable is the cost of a page break that is just barely acceptable.
	Deplorable = 100000
)

const (
	maxNxPlusY      = 1<<30 - 1
	maxMultIntegers = 1<<31 - 1
)

// ErrArithOverflow is returned when a result falls outside the legal range.
var ErrArithOverflow = errors.New("arithmetic overflow")

// MultAndAdd returns n*x+y, failing when |n*x+y| would exceed max.
func MultAndAdd(n int, x, y, max Scaled) (Scaled, error) {
	if n < 0 {
		x = -x
		n = -n
	}
	if n == 0 {
		return y, nil
	}
	nn := Scaled(n)
	if x <= (max-y)/nn && -x <= (max+y)/nn {
		return nn*x + y, nil
	}
	return 0, ErrArithOverflow
}

// NxPlusY computes n*x+y with the 2^30 dimension cap.
func NxPlusY(n int, x, y Scaled) (Scaled, error) {
	return MultAndAdd(n, x, y, maxNxPlusY)
}

// MultIntegers multiplies two integers with the 2^31-1 cap.
func MultIntegers(n, x int) (int, error) {
	v, err := MultAndAdd(n, Scaled(x), 0, maxMultIntegers)
	return int(v), err
}

// XOverN divides x by n. The remainder carries the sign of the original x
// (after normalising a negative divisor), not of the truncated quotient.
func XOverN(x Scaled, n int) (q, rem Scaled, err error) {
	if n == 0 {
		return 0, x, ErrArithOverflow
	}
	negative := false
	if n < 0 {
		x = -x
		n = -n
		negative = true
	}
	nn := Scaled(n)
	if x >= 0 {
		q, rem = x/nn, x%nn
	} else {
		q, rem = -((-x) / nn), -((-x) % nn)
	}
	if negative {
		rem = -rem
	}
	return q, rem, nil
}

// XnOverD computes x*n/d for 0 <= n, d <= 2^16, splitting x into
// 32768*hi+lo so that no intermediate product exceeds 2^31.
func XnOverD(x Scaled, n, d int) (q, rem Scaled, err error) {
	if d <= 0 {
		return 0, 0, ErrArithOverflow
	}
	positive := x >= 0
	if !positive {
		x = -x
	}
	t := int(x%0x8000) * n
	u := int(x/0x8000)*n + t/0x8000
	v := (u%d)*0x8000 + t%0x8000
	if u/d >= 0x8000 {
		return 0, 0, ErrArithOverflow
	}
	u = 0x8000*(u/d) + v/d
	if positive {
		return Scaled(u), Scaled(v % d), nil
	}
	return -Scaled(u), -Scaled(v % d), nil
}

// Badness approximates 100*(t/s)^3 using the integer-only formula whose
// thresholds downstream demerit values depend on.
func Badness(t, s Scaled) int {
	if t == 0 {
		return 0
	}
	if s <= 0 {
		return InfBad
	}
	var r Scaled
	switch {
	case t <= 7230584:
		r = (t * 297) / s
	case s >= 1663497:
		r = t / (s / 297)
	default:
		r = t
	}
	if r > 1290 {
		return InfBad
	}
	return int((r*r*r + 0x20000) / 0x40000)
}

// RoundDecimals turns the decimal digits of a fraction into scaled units,
// rounded to the nearest sp.
func RoundDecimals(digits []int) Scaled {
	var a Scaled
	for k := len(digits) - 1; k >= 0; k-- {
		a = (a + Scaled(digits[k])*Two) / 10
	}
	return (a + 1) / 2
}

// String prints s in points with the shortest decimal that reads back to
// the same value, e.g. "3.33333pt" without the unit suffix.
func (s Scaled) String() string {
	var b strings.Builder
	if s < 0 {
		b.WriteByte('-')
		s = -s
	}
	b.WriteString(strconv.Itoa(int(s / Unity)))
	b.WriteByte('.')
	s = 10*(s%Unity) + 5
	delta := Scaled(10)
	for {
		if delta > Unity {
			s += 0x8000 - 50000
		}
		b.WriteByte(byte('0' + s/Unity))
		s = 10 * (s % Unity)
		delta *= 10
		if s <= delta {
			break
		}
	}
	return b.String()
}
