package domain

import (
	"math/big"
	"strings"
)

// Fraction is an exact ownership share in "numerator/denominator" notation.
// Registry data expresses shares as strings like "4/8" or "61/4651"; summing
// eighteen of them in float64 accumulates rounding error, so all arithmetic
// stays rational and floats are derived only for display.
type Fraction struct {
	r big.Rat
}

// ParseFraction parses an ownership fraction string. ok is false for
// malformed input (non-numeric, empty, zero denominator, negative value):
// upstream ownership data is inconsistent and a bad fraction means
// "unspecified", never a failure. "0/5" is a specified zero share.
func ParseFraction(s string) (Fraction, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Fraction{}, false
	}
	var r big.Rat
	if _, ok := r.SetString(s); !ok {
		return Fraction{}, false
	}
	if r.Sign() < 0 {
		return Fraction{}, false
	}
	return Fraction{r: r}, true
}

// Decimal converts to float64 for display only.
func (f Fraction) Decimal() float64 {
	v, _ := f.r.Float64()
	return v
}

// Add returns the exact sum of two fractions.
func (f Fraction) Add(other Fraction) Fraction {
	var sum Fraction
	sum.r.Add(&f.r, &other.r)
	return sum
}

// Cmp compares exact values: -1 if f < other, 0 if equal, +1 if f > other.
func (f Fraction) Cmp(other Fraction) int {
	return f.r.Cmp(&other.r)
}

func (f Fraction) IsZero() bool {
	return f.r.Sign() == 0
}

// String renders the reduced form, e.g. "4/8" parses and prints as "1/2".
func (f Fraction) String() string {
	return f.r.RatString()
}

// Rat exposes a copy of the underlying rational.
func (f Fraction) Rat() *big.Rat {
	var r big.Rat
	r.Set(&f.r)
	return &r
}
