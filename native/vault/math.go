package vault

import (
	"math/big"
	"math/bits"

	"github.com/holiman/uint256"
)

// u128Bound is the first value that no longer fits the 128-bit wire fields.
var u128Bound = new(big.Int).Lsh(big.NewInt(1), 128)

func checkedAddU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

func checkedSubU64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrMathOverflow
	}
	return diff, nil
}

// mulDivFloor computes floor(amount * num / den) with the intermediate
// product held in 256 bits. The result must fit a u64.
func mulDivFloor(amount, num, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrMathOverflow
	}
	product := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(num))
	quotient := new(uint256.Int).Div(product, uint256.NewInt(den))
	if !quotient.IsUint64() {
		return 0, ErrMathOverflow
	}
	return quotient.Uint64(), nil
}

// mulDivCeil computes ceil(amount * num / den). Used for withdrawal share
// burns so assets removed are never under-charged in shares.
func mulDivCeil(amount, num, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrMathOverflow
	}
	product := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(num))
	denom := uint256.NewInt(den)
	quotient, remainder := new(uint256.Int).DivMod(product, denom, new(uint256.Int))
	if !remainder.IsZero() {
		quotient.AddUint64(quotient, 1)
	}
	if !quotient.IsUint64() {
		return 0, ErrMathOverflow
	}
	return quotient.Uint64(), nil
}

// bpsShare computes floor(amount * bps / 10000).
func bpsShare(amount uint64, bps uint16) uint64 {
	product := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(uint64(bps)))
	return new(uint256.Int).Div(product, uint256.NewInt(MaxBps)).Uint64()
}

// pointsDelta evaluates the accrual chain
// shares x multiplierBps x baseRate x elapsed / PointsScale in 256-bit
// arithmetic. The widest possible product is ~205 bits, so the chain cannot
// wrap inside uint256.
func pointsDelta(shares uint64, multiplierBps uint16, baseRate uint64, elapsed int64) *uint256.Int {
	if shares == 0 || multiplierBps == 0 || baseRate == 0 || elapsed <= 0 {
		return uint256.NewInt(0)
	}
	product := new(uint256.Int).Mul(uint256.NewInt(shares), uint256.NewInt(uint64(multiplierBps)))
	product.Mul(product, uint256.NewInt(baseRate))
	product.Mul(product, uint256.NewInt(uint64(elapsed)))
	return product.Div(product, uint256.NewInt(PointsScale))
}

// addPoints adds delta into a 128-bit points accumulator, surfacing
// ErrMathOverflow when the sum leaves the u128 range.
func addPoints(acc *big.Int, delta *uint256.Int) (*big.Int, error) {
	if acc == nil {
		acc = big.NewInt(0)
	}
	sum := new(big.Int).Add(acc, delta.ToBig())
	if sum.Cmp(u128Bound) >= 0 {
		return nil, ErrMathOverflow
	}
	return sum, nil
}

// addPointsU64 is addPoints for plain u64 increments (referral bonuses).
func addPointsU64(acc *big.Int, delta uint64) (*big.Int, error) {
	return addPoints(acc, uint256.NewInt(delta))
}
