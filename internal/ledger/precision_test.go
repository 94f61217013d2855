package ledger

import (
	"math/big"
	"testing"
)

func TestRescaleUp(t *testing.T) {
	got := Rescale(big.NewInt(3000000), FeesPrecision, 18)
	want, _ := new(big.Int).SetString("300000000000000", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("rescale up mismatch: %s", got)
	}
}

func TestRescaleDownTruncates(t *testing.T) {
	got := Rescale(big.NewInt(19_999), 4, 2)
	if got.Cmp(big.NewInt(199)) != 0 {
		t.Fatalf("rescale down mismatch: %s", got)
	}

	// truncation is toward zero, not flooring
	got = Rescale(big.NewInt(-19_999), 4, 2)
	if got.Cmp(big.NewInt(-199)) != 0 {
		t.Fatalf("negative rescale mismatch: %s", got)
	}
}

func TestRescaleSamePrecisionCopies(t *testing.T) {
	in := big.NewInt(42)
	out := Rescale(in, 6, 6)
	if out.Cmp(in) != 0 {
		t.Fatalf("value mismatch: %s", out)
	}
	out.SetInt64(7)
	if in.Int64() != 42 {
		t.Fatalf("input aliased by output")
	}
}
