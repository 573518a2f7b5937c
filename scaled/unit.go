package scaled

import "fmt"

// unitRatio holds num/denom such that 1 unit = num/denom pt.
var unitRatio = map[string][2]int{
	"pt": {1, 1},
	"in": {7227, 100},
	"pc": {12, 1},
	"cm": {7227, 254},
	"mm": {7227, 2540},
	"bp": {7227, 7200},
	"dd": {1238, 1157},
	"cc": {14856, 1157},
}

// FromUnit converts an integer part and a fractional part (already in sp,
// 0 <= frac < Unity) given in unit into scaled points. The unit "sp"
// takes the integer part literally and ignores frac.
func FromUnit(whole int, frac Scaled, unit string) (Scaled, error) {
	if unit == "sp" {
		if whole > int(MaxDimen) {
			return 0, fmt.Errorf("dimension too large: %dsp: %w", whole, ErrArithOverflow)
		}
		return Scaled(whole), nil
	}
	ratio, ok := unitRatio[unit]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
	v := Scaled(whole)
	f := frac
	if ratio[0] != 1 || ratio[1] != 1 {
		q, rem, err := XnOverD(v, ratio[0], ratio[1])
		if err != nil {
			return 0, err
		}
		f = (Scaled(ratio[0])*f + Unity*rem) / Scaled(ratio[1])
		v = q + f/Unity
		f %= Unity
	}
	if v >= 1<<14 {
		return 0, fmt.Errorf("dimension too large: %d%s: %w", whole, unit, ErrArithOverflow)
	}
	return v*Unity + f, nil
}
