package vault

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"yieldvault/crypto"
)

func TestResolveInviterTransitions(t *testing.T) {
	alice := makeAddr(1)
	bob := makeAddr(2)
	mallory := makeAddr(3)
	none := crypto.Address{}

	cases := []struct {
		name              string
		current, proposed crypto.Address
		want              crypto.Address
		locked            bool
		err               error
	}{
		{name: "no inviter supplied stays unset", current: none, proposed: none, want: none},
		{name: "first inviter locks", current: none, proposed: alice, want: alice, locked: true},
		{name: "same inviter is a no-op", current: alice, proposed: alice, want: alice},
		{name: "omitted inviter after lock is a no-op", current: alice, proposed: none, want: alice},
		{name: "different inviter rejected", current: alice, proposed: mallory, err: ErrInviterLocked},
		{name: "self referral rejected", current: none, proposed: bob, err: ErrInvalidInviter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := bob
			got, locked, err := resolveInviter(tc.current, tc.proposed, user)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("err = %v, want %v", err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("inviter = %s, want %s", got, tc.want)
			}
			if locked != tc.locked {
				t.Fatalf("locked = %v, want %v", locked, tc.locked)
			}
		})
	}
}

func TestPointsDeltaScaling(t *testing.T) {
	// One full day at full multiplier collapses to shares * baseRate.
	delta := pointsDelta(1_000_000, MaxBps, 10, DayInSeconds)
	if !delta.Eq(uint256.NewInt(10_000_000)) {
		t.Fatalf("one-day delta = %s, want 10000000", delta)
	}

	// Half multiplier halves the accrual.
	delta = pointsDelta(1_000_000, MaxBps/2, 10, DayInSeconds)
	if !delta.Eq(uint256.NewInt(5_000_000)) {
		t.Fatalf("half-multiplier delta = %s, want 5000000", delta)
	}

	// A sub-second window with tiny balances floors to zero here; the
	// minimum-accrual rule lives in accruePoints, not the raw formula.
	delta = pointsDelta(1, 1, 1, 1)
	if !delta.IsZero() {
		t.Fatalf("dust delta = %s, want 0", delta)
	}

	if !pointsDelta(0, MaxBps, 10, DayInSeconds).IsZero() {
		t.Fatal("zero shares must accrue nothing")
	}
	if !pointsDelta(1_000_000, MaxBps, 10, -5).IsZero() {
		t.Fatal("negative elapsed must accrue nothing")
	}
}

func TestPointsDeltaWideOperandsDoNotWrap(t *testing.T) {
	const maxU64 = ^uint64(0)
	delta := pointsDelta(maxU64, MaxBps, maxU64, 1<<40)
	// floor(2^64-1 * 10^4 * (2^64-1) * 2^40 / 864000000)
	want, overflow := uint256.FromBig(func() *big.Int {
		p := new(big.Int).Mul(new(big.Int).SetUint64(maxU64), big.NewInt(MaxBps))
		p.Mul(p, new(big.Int).SetUint64(maxU64))
		p.Mul(p, new(big.Int).Lsh(big.NewInt(1), 40))
		return p.Div(p, new(big.Int).SetUint64(PointsScale))
	}())
	if overflow {
		t.Fatal("expected product to fit 256 bits")
	}
	if !delta.Eq(want) {
		t.Fatalf("wide delta = %s, want %s", delta, want)
	}
}

func TestAddPointsOverflowGuard(t *testing.T) {
	nearMax := new(big.Int).Sub(u128Bound, big.NewInt(10))
	sum, err := addPoints(nearMax, uint256.NewInt(9))
	if err != nil {
		t.Fatalf("in-range add: %v", err)
	}
	want := new(big.Int).Sub(u128Bound, big.NewInt(1))
	if sum.Cmp(want) != 0 {
		t.Fatalf("sum = %s, want %s", sum, want)
	}

	if _, err := addPoints(nearMax, uint256.NewInt(10)); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("expected ErrMathOverflow at the u128 boundary, got %v", err)
	}
	if _, err := addPointsU64(nearMax, 11); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("expected ErrMathOverflow from u64 add, got %v", err)
	}
}

func TestAccruePointsUpdatesTimestampWithoutBalance(t *testing.T) {
	v := &Vault{BasePointsRate: 10}
	pool := &AssetPool{TotalShares: 0, PointsMultiplierBps: MaxBps}
	pos := &UserPosition{Shares: 0, CumulativePoints: big.NewInt(0), LastPointsTs: 100}

	if err := accruePoints(v, pool, pos, 500); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if pos.LastPointsTs != 500 {
		t.Fatalf("lastPointsTs = %d, want 500", pos.LastPointsTs)
	}
	if pos.CumulativePoints.Sign() != 0 {
		t.Fatalf("idle position accrued %s points", pos.CumulativePoints)
	}
}

func TestAccruePointsFloorsActiveWindowAtOne(t *testing.T) {
	v := &Vault{BasePointsRate: 0}
	pool := &AssetPool{TotalShares: 10, PointsMultiplierBps: 1}
	pos := &UserPosition{Shares: 10, CumulativePoints: big.NewInt(0), LastPointsTs: 0}

	if err := accruePoints(v, pool, pos, 1); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if pos.CumulativePoints.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("floored accrual = %s, want 1", pos.CumulativePoints)
	}
}

func TestMulDivRounding(t *testing.T) {
	floor, err := mulDivFloor(1_000_000, 8_000_000, 9_000_000)
	if err != nil {
		t.Fatalf("floor: %v", err)
	}
	if floor != 888_888 {
		t.Fatalf("floor = %d, want 888888", floor)
	}

	ceil, err := mulDivCeil(1_000_000, 8_000_000, 9_000_000)
	if err != nil {
		t.Fatalf("ceil: %v", err)
	}
	if ceil != 888_889 {
		t.Fatalf("ceil = %d, want 888889", ceil)
	}

	exact, err := mulDivCeil(4, 6, 8)
	if err != nil {
		t.Fatalf("exact ceil: %v", err)
	}
	if exact != 3 {
		t.Fatalf("exact ceil = %d, want 3", exact)
	}

	const maxU64 = ^uint64(0)
	if _, err := mulDivFloor(maxU64, maxU64, 1); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("expected ErrMathOverflow for u64 overflow, got %v", err)
	}
	if _, err := mulDivFloor(1, 1, 0); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("expected ErrMathOverflow for zero denominator, got %v", err)
	}
}

func TestBpsShare(t *testing.T) {
	if got := bpsShare(3_000_000, 500); got != 150_000 {
		t.Fatalf("5%% of 3000000 = %d, want 150000", got)
	}
	if got := bpsShare(100, 10_000); got != 100 {
		t.Fatalf("full bps share = %d, want 100", got)
	}
	if got := bpsShare(1, 500); got != 0 {
		t.Fatalf("dust bonus = %d, want 0", got)
	}
}

func TestCheckedU64Arithmetic(t *testing.T) {
	const maxU64 = ^uint64(0)
	if _, err := checkedAddU64(maxU64, 1); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("expected add overflow, got %v", err)
	}
	if _, err := checkedSubU64(0, 1); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("expected sub underflow, got %v", err)
	}
	sum, err := checkedAddU64(maxU64-1, 1)
	if err != nil || sum != maxU64 {
		t.Fatalf("add = %d, %v", sum, err)
	}
}
