package lending

// touch reconciles a single borrowing against the pool's current
// liquidation index. It is called at every read of a borrowing that needs
// fresh state, and unconditionally inside repay. Returns the haircut applied
// and whether the loan was fully liquidated.
//
//	h = (L - b.LastLiquidationIndex) * b.Weight / Scale
//	b.LastLiquidationIndex = L
//	b.Reserve = saturating_sub(b.Reserve, h)
//	b.Weight = b.Reserve
func touch(b *Borrowing, liquidationIndex uint64) (haircut uint64, liquidated bool) {
	delta := saturatingSub(liquidationIndex, b.LastLiquidationIndex)
	haircut = mulDiv(delta, b.Weight, Scale)
	b.LastLiquidationIndex = liquidationIndex
	b.Reserve = saturatingSub(b.Reserve, haircut)
	b.Weight = b.Reserve
	return haircut, b.Reserve == 0
}

// advanceIndex grows the pool's liquidation index by deficit/total_weight
// and returns the delta actually applied; the new index is left in
// pool.LiquidationIndex. A
// zero total_weight means there is nobody left to absorb the loss, so the
// index does not move — the deficit is simply unrecoverable this round.
func advanceIndex(pool *PoolState, deficit uint64) (delta uint64) {
	if deficit == 0 || pool.TotalWeight == 0 {
		return 0
	}
	delta = mulDiv(deficit, Scale, pool.TotalWeight)
	pool.LiquidationIndex += delta
	return delta
}
