package ledger

import "math/big"

// ReconcileAdminBalances derives the per-event admin fee delta for each pool
// side from the previously stored admin balances and freshly read on-chain
// balances. A current balance below the stored one means the balance was
// reset out of band (a claim via direct call); the entire current value is
// then taken as the delta, so the fee never goes negative. The current
// balances are returned verbatim as the next stored balances.
func ReconcileAdminBalances(prevIBT, prevPT, curIBT, curPT *big.Int) (ibtFee, ptFee, newIBT, newPT *big.Int) {
	ibtFee = reconcileSide(prevIBT, curIBT)
	ptFee = reconcileSide(prevPT, curPT)
	newIBT = new(big.Int).Set(curIBT)
	newPT = new(big.Int).Set(curPT)
	return ibtFee, ptFee, newIBT, newPT
}

func reconcileSide(prev, cur *big.Int) *big.Int {
	if cur.Cmp(prev) < 0 {
		return new(big.Int).Set(cur)
	}
	return new(big.Int).Sub(cur, prev)
}
