package lending

import "errors"

// errArithmeticDomain is raised whenever apy*tMax would reach or exceed
// Scale, the hard precondition reserveRequired and maxBorrow both depend on.
var errArithmeticDomain = errors.New("lending: apy * t_max must be < scale")

// alphaT returns apy*tMaxHours/Scale together with whether it stayed inside
// the engine's valid domain (< Scale). Every reserve computation starts
// here; a borrow whose alphaT reaches Scale would make reserveRequired
// divide by zero or go negative, so callers must reject it up front.
func alphaT(apy, tMaxHours uint64) (uint64, bool) {
	at := mulDiv(apy, tMaxHours, Scale)
	return at, at < Scale
}

// interestOverDuration annualizes principal at apy over h hours.
func interestOverDuration(principal, apy, hours uint64) uint64 {
	if principal == 0 || apy == 0 || hours == 0 {
		return 0
	}
	return mulDiv(mulDiv(principal, apy, Scale), hours, hoursPerYear)
}

// reserveRequired returns the smallest reserve R such that the borrowed
// principal P can absorb apy*tMax interest out of reserve alone:
// R = P * alphaT / (Scale - alphaT).
func reserveRequired(principal, apy, tMaxHours uint64) (uint64, error) {
	at, ok := alphaT(apy, tMaxHours)
	if !ok {
		return 0, errArithmeticDomain
	}
	return mulDiv(principal, at, Scale-at), nil
}

// maxBorrow returns the largest principal a collateral of power C can
// support given the current apy, tMax, borrow fee and safety buffer.
func maxBorrow(collateral, apy, tMaxHours uint64, feeBps, bufferBps uint32) (uint64, error) {
	at, ok := alphaT(apy, tMaxHours)
	if !ok {
		return 0, errArithmeticDomain
	}
	buffer := bps(collateral, bufferBps)
	available := saturatingSub(collateral, buffer)
	factor := Scale - at
	denominator := mulDiv(Scale, basisPointsDenominator+uint64(feeBps), basisPointsDenominator)
	return mulDiv(available, factor, denominator), nil
}
