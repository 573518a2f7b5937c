package layout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/scaled"
)

// This file parses the lengths written in quire sources.

// Conversion constants between TeX points and millimetres.
const (
	PtToMm = 25.4 / 72.27
	MmToPt = 72.27 / 25.4
)

// ErrBadLength is returned for a malformed dimension or glue.
var ErrBadLength = errors.New("layout: malformed length")

// ToMM converts scaled points to millimetres.
func ToMM(s scaled.Scaled) float64 { return float64(s) / float64(scaled.Unity) * PtToMm }

// Dimen is a length that marshals to JSON as TeX prints it ("12.0pt").
type Dimen scaled.Scaled

// MarshalJSON implements json.Marshaler.
func (d Dimen) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, scaled.Scaled(d).String()+"pt"), nil
}

// quantity is a signed decimal number with its unit, "-1.25cm".
type quantity struct {
	negative bool
	whole    int
	digits   []int
	unit     string
}

func parseQuantity(s string) (quantity, error) {
	var q quantity
	v := strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(v, "-") {
		q.negative = true
		v = v[1:]
	} else {
		v = strings.TrimPrefix(v, "+")
	}
	i := 0
	for i < len(v) && v[i] >= '0' && v[i] <= '9' {
		if q.whole < 1<<20 {
			q.whole = q.whole*10 + int(v[i]-'0')
		}
		i++
	}
	intDigits := i
	if i < len(v) && (v[i] == '.' || v[i] == ',') {
		i++
		for i < len(v) && v[i] >= '0' && v[i] <= '9' {
			if len(q.digits) < 17 {
				q.digits = append(q.digits, int(v[i]-'0'))
			}
			i++
		}
	}
	if intDigits == 0 && len(q.digits) == 0 {
		return q, fmt.Errorf("%w: %q", ErrBadLength, s)
	}
	q.unit = strings.TrimSpace(v[i:])
	return q, nil
}

func (q quantity) sign(v scaled.Scaled) scaled.Scaled {
	if q.negative {
		return -v
	}
	return v
}

// ParseDimen parses a dimension such as "12pt", "-1.5cm" or "0.4pt".
// A bare number is taken in points.
func ParseDimen(s string) (scaled.Scaled, error) {
	q, err := parseQuantity(s)
	if err != nil {
		return 0, err
	}
	if q.unit == "" {
		q.unit = "pt"
	}
	v, err := scaled.FromUnit(q.whole, scaled.RoundDecimals(q.digits), q.unit)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrBadLength, s, err)
	}
	return q.sign(v), nil
}

// parseStretch parses a dimension or an infinite "1fil", "2fill", "-1filll".
func parseStretch(s string) (scaled.Scaled, node.Order, error) {
	q, err := parseQuantity(s)
	if err != nil {
		return 0, node.Normal, err
	}
	order := node.Normal
	switch q.unit {
	case "fil":
		order = node.Fil
	case "fill":
		order = node.Fill
	case "filll":
		order = node.Filll
	default:
		v, err := ParseDimen(s)
		return v, node.Normal, err
	}
	if q.whole >= 1<<14 {
		return 0, node.Normal, fmt.Errorf("%w: %q: infinite glue too large", ErrBadLength, s)
	}
	v := scaled.Scaled(q.whole)*scaled.Unity + scaled.RoundDecimals(q.digits)
	return q.sign(v), order, nil
}

// ParseGlue parses "12pt plus 1fil minus 2pt"; the plus and minus parts
// are optional.
func ParseGlue(s string) (*node.GlueSpec, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty glue", ErrBadLength)
	}
	width, err := ParseDimen(fields[0])
	if err != nil {
		return nil, err
	}
	spec := node.NewSpec(width, 0, node.Normal, 0, node.Normal)
	rest := fields[1:]
	for _, part := range []string{"plus", "minus"} {
		if len(rest) < 2 || !strings.EqualFold(rest[0], part) {
			continue
		}
		v, order, err := parseStretch(rest[1])
		if err != nil {
			return nil, err
		}
		if part == "plus" {
			spec.Stretch, spec.StretchOrder = v, order
		} else {
			spec.Shrink, spec.ShrinkOrder = v, order
		}
		rest = rest[2:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing %q in %q", ErrBadLength, strings.Join(rest, " "), s)
	}
	return spec, nil
}
