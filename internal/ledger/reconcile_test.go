package ledger

import (
	"math/big"
	"testing"
)

func TestReconcileAdminBalancesDelta(t *testing.T) {
	ibtFee, ptFee, newIBT, newPT := ReconcileAdminBalances(
		big.NewInt(100), big.NewInt(50),
		big.NewInt(130), big.NewInt(50),
	)
	if ibtFee.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("ibt fee mismatch: %s", ibtFee)
	}
	if ptFee.Sign() != 0 {
		t.Fatalf("pt fee mismatch: %s", ptFee)
	}
	if newIBT.Cmp(big.NewInt(130)) != 0 || newPT.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("balance carry mismatch: %s %s", newIBT, newPT)
	}
}

func TestReconcileAdminBalancesReset(t *testing.T) {
	// A balance below the stored one means an out-of-band claim zeroed it;
	// the whole current value is the delta, never a negative fee.
	ibtFee, ptFee, newIBT, newPT := ReconcileAdminBalances(
		big.NewInt(500), big.NewInt(700),
		big.NewInt(20), big.NewInt(700),
	)
	if ibtFee.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("reset fee mismatch: %s", ibtFee)
	}
	if ptFee.Sign() != 0 {
		t.Fatalf("pt fee mismatch: %s", ptFee)
	}
	if newIBT.Cmp(big.NewInt(20)) != 0 || newPT.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("balance carry mismatch: %s %s", newIBT, newPT)
	}
}

func TestReconcileAdminBalancesDoesNotAliasInputs(t *testing.T) {
	cur := big.NewInt(130)
	_, _, newIBT, _ := ReconcileAdminBalances(big.NewInt(0), big.NewInt(0), cur, big.NewInt(0))
	newIBT.SetInt64(1)
	if cur.Int64() != 130 {
		t.Fatalf("current balance aliased")
	}
}
