// Package fixedpoint implements scaled-integer arithmetic for $FIN amounts.
// Amounts carry 9 fractional digits (spec precision) as an int64 scaled by
// Scale. Multiplication goes through math/big so that chained reward-formula
// products never silently overflow before they are saturated.
package fixedpoint

import (
	"fmt"
	"math"
	"math/big"
)

// Scale is 10^9: one $FIN unit is Scale raw ticks.
const Scale int64 = 1_000_000_000

// Amount is a $FIN-denominated value, scaled by Scale.
type Amount int64

// Zero is the additive identity.
const Zero Amount = 0

// FromFloat converts a float64 $FIN value to Amount, rounding to the nearest
// tick. Only used at the boundary (config defaults, test fixtures) — no
// formula in internal/app does arithmetic in float64.
func FromFloat(f float64) Amount {
	return Amount(math.Round(f * float64(Scale)))
}

// Float returns the value as a float64, for display/logging only.
func (a Amount) Float() float64 {
	return float64(a) / float64(Scale)
}

// String renders the amount with up to 9 fractional digits, trimmed.
func (a Amount) String() string {
	whole := int64(a) / Scale
	frac := int64(a) % Scale
	if frac < 0 {
		frac = -frac
	}
	s := fmt.Sprintf("%d.%09d", whole, frac)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a-b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// IsNegative reports whether the amount is below zero — callers use this to
// enforce the pending-balance-must-never-go-negative invariant.
func (a Amount) IsNegative() bool { return a < 0 }

// MulRatio multiplies an Amount by a rational multiplier num/den (den > 0),
// using big.Int internally so the intermediate product never overflows
// int64 regardless of how large num/den are before reduction.
func (a Amount) MulRatio(num, den int64) Amount {
	if den == 0 {
		return a
	}
	prod := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(num))
	prod.Quo(prod, big.NewInt(den))
	return Amount(prod.Int64())
}

// Ratio is a fixed-point multiplier represented as a ratio of scaled
// integers (Num/Den, both scaled by Scale, so Ratio(1.0) == {Scale, Scale}).
// Chaining multipliers as ratios instead of float64 keeps every step of a
// reward formula reproducible bit-for-bit across read and write paths.
type Ratio struct {
	Num int64
	Den int64
}

// One is the multiplicative identity.
var One = Ratio{Num: Scale, Den: Scale}

// FromFloatRatio builds a Ratio from a float64 multiplier, quantized to
// Scale precision.
func FromFloatRatio(f float64) Ratio {
	return Ratio{Num: int64(math.Round(f * float64(Scale))), Den: Scale}
}

// Mul composes two ratios.
func (r Ratio) Mul(o Ratio) Ratio {
	num := new(big.Int).Mul(big.NewInt(r.Num), big.NewInt(o.Num))
	den := new(big.Int).Mul(big.NewInt(r.Den), big.NewInt(o.Den))
	// Renormalize against Den=Scale to keep the ratio from growing without
	// bound across a long multiplier chain (mining rate composes 9 of them).
	num.Mul(num, big.NewInt(Scale))
	num.Quo(num, den)
	return Ratio{Num: num.Int64(), Den: Scale}
}

// Float returns the ratio as a float64, for display/logging only.
func (r Ratio) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Apply multiplies an Amount by the ratio.
func (a Amount) Apply(r Ratio) Amount {
	return a.MulRatio(r.Num, r.Den)
}

// Saturate clamps a ratio's value to at most ceiling (e.g. the mining rate's
// product_ceiling or the effect registry's effect_ceiling_per_axis).
func (r Ratio) Saturate(ceiling float64) Ratio {
	cap := FromFloatRatio(ceiling)
	if r.Float() > cap.Float() {
		return cap
	}
	return r
}

// ExpNeg computes exp(-k*x) as a Ratio, used by the two regression factors
// (mining-on-cumulative-earned, RP-on-network-size) and the XP engine's
// level_progression_factor. math.Exp is evaluated once in float64 and then
// quantized to Scale precision so every caller composes it the same way a
// table lookup would.
func ExpNeg(k, x float64) Ratio {
	return FromFloatRatio(math.Exp(-k * x))
}
