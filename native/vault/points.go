package vault

import (
	"math/big"

	"yieldvault/crypto"
)

// accruePoints folds the time-weighted points earned since the last accrual
// into the position, using the share balance as it stood before the current
// operation. The accrual timestamp always advances to now, even when no
// points are earned.
func accruePoints(v *Vault, pool *AssetPool, pos *UserPosition, now int64) error {
	if pos == nil {
		return nil
	}
	if pos.CumulativePoints == nil {
		pos.CumulativePoints = big.NewInt(0)
	}
	if pos.Shares == 0 || pool == nil || pool.TotalShares == 0 {
		pos.LastPointsTs = now
		return nil
	}
	elapsed := now - pos.LastPointsTs
	if elapsed <= 0 {
		pos.LastPointsTs = now
		return nil
	}
	delta := pointsDelta(pos.Shares, pool.PointsMultiplierBps, v.BasePointsRate, elapsed)
	if delta.IsZero() {
		// An active position never accrues nothing over a positive window.
		delta.SetUint64(1)
	}
	updated, err := addPoints(pos.CumulativePoints, delta)
	if err != nil {
		return err
	}
	pos.CumulativePoints = updated
	pos.LastPointsTs = now
	return nil
}

// resolveInviter applies the one-time locking transition Unset -> Locked.
// It returns the resulting inviter binding and whether the lock fired during
// this call. Supplying no inviter is always a no-op; re-supplying the locked
// inviter is permitted; any other transition out of Locked is rejected.
func resolveInviter(current, proposed, user crypto.Address) (crypto.Address, bool, error) {
	if proposed.IsZero() {
		return current, false, nil
	}
	if proposed.Equal(user) {
		return current, false, ErrInvalidInviter
	}
	if current.IsZero() {
		return proposed, true, nil
	}
	if current.Equal(proposed) {
		return current, false, nil
	}
	return current, false, ErrInviterLocked
}
