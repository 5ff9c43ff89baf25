package lending

import "math/bits"

// Scale is the fixed-point denominator for every rational quantity in the
// engine: APY, the liquidation index, and all intermediate ratios are
// integers expressed in units of 1/Scale.
const Scale uint64 = 1_000_000

// APY bounds, in Scale units (so ApyMax is 30%).
const (
	ApyMin uint64 = 0
	ApyMax uint64 = 300_000
)

const hoursPerYear uint64 = 8_760

const basisPointsDenominator uint64 = 10_000

// saturatingSub returns a-b, floored at zero instead of wrapping. Every
// reserve and weight decrement in this engine goes through this helper so a
// stale or adversarial touch can never underflow a uint64.
func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

// saturatingSubU32 is saturatingSub for card POWER, which is carried as
// uint32 throughout the rest of the repository.
func saturatingSubU32(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}

// mulDiv computes a*b/d using a 128-bit intermediate product so the engine
// never silently wraps on the products that dominate its arithmetic (POWER
// amounts up to 2^32 multiplied by bps or Scale factors up to 10^6).
func mulDiv(a, b, d uint64) uint64 {
	if d == 0 {
		return 0
	}
	hi, lo := bits.Mul64(a, b)
	if hi == 0 {
		return lo / d
	}
	if hi >= d {
		// The quotient does not fit in 64 bits; saturate rather than let
		// bits.Div64 panic on a pathological combination of inputs.
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, d)
	return q
}

// bps applies a basis-point fraction (0-10000) to an amount.
func bps(amount uint64, basisPointsValue uint32) uint64 {
	return mulDiv(amount, uint64(basisPointsValue), basisPointsDenominator)
}

// percent applies a whole-percent fraction (0-100) to an amount. HawAi's
// share of each terry mint is denominated in percent, not basis points.
func percent(amount uint64, pct uint32) uint64 {
	return mulDiv(amount, uint64(pct), 100)
}

// clampApy enforces the engine's published APY domain regardless of what an
// intermediate computation produced; §4.1 requires this even though the
// formula is constructed to land in range for realistic inputs.
func clampApy(apy uint64) uint64 {
	if apy < ApyMin {
		return ApyMin
	}
	if apy > ApyMax {
		return ApyMax
	}
	return apy
}
