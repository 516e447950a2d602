package vault

const (
	// MaxBps is the basis point denominator, 10000 bps = 100%.
	MaxBps = 10_000

	// DayInSeconds anchors the points rate to a per-day cadence.
	DayInSeconds = 86_400

	// PointsScale is the fixed-point divisor applied to the points accrual
	// product chain (shares x bps multiplier x base rate x elapsed seconds).
	PointsScale = uint64(DayInSeconds) * uint64(MaxBps)

	// DefaultReferralBonusBps is the share of a deposit credited to the
	// locked inviter as bonus points (5%).
	DefaultReferralBonusBps uint16 = 500
)
