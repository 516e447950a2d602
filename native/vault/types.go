package vault

import (
	"encoding/hex"
	"math/big"

	"yieldvault/crypto"
)

// ID uniquely identifies a vault entity. IDs are content-addressed: any
// external caller can reproduce them from the namespace tag and parent
// identifiers without querying the node.
type ID [32]byte

// Hex renders the identifier as lowercase hex.
func (id ID) Hex() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool { return id == ID{} }

// ParseID decodes a 64-character hex identifier.
func ParseID(s string) (ID, error) {
	var id ID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, err
	}
	if len(raw) != len(id) {
		return ID{}, ErrInvalidID
	}
	copy(id[:], raw)
	return id, nil
}

// Vault is the top-level configuration owned by a single authority.
type Vault struct {
	// Authority owns all administrative operations on the vault.
	Authority crypto.Address
	// BasePointsRate is the scaled points-per-share-per-second rate applied
	// to every pool in the vault.
	BasePointsRate uint64
	// Paused halts deposits and withdrawals across all pools.
	Paused bool
}

// AssetPool tracks the share and underlying totals for one registered asset.
type AssetPool struct {
	// Vault references the owning vault.
	Vault ID
	// Asset identifies the underlying fungible asset.
	Asset crypto.Address
	// Custody is the ledger identity holding the pool's deposited funds.
	Custody crypto.Address
	// TotalUnderlying is the pool-wide deposited balance including harvested
	// yield.
	TotalUnderlying uint64
	// TotalShares is the pool-wide issued share supply.
	TotalShares uint64
	// PointsMultiplierBps scales the vault base rate for this asset,
	// expressed in basis points.
	PointsMultiplierBps uint16
}

// SharePriceRat returns totalUnderlying/totalShares as a pair for callers
// that want to display the share price. A fresh pool reports 1/1.
func (p *AssetPool) SharePriceRat() (uint64, uint64) {
	if p == nil || p.TotalShares == 0 {
		return 1, 1
	}
	return p.TotalUnderlying, p.TotalShares
}

// UserPosition is the per-(pool, user) share balance and points meter.
type UserPosition struct {
	Pool ID
	User crypto.Address
	// Shares is the user's slice of the pool share supply.
	Shares uint64
	// CumulativePoints accumulates accrued loyalty points. Bounded to 128
	// bits on the wire; monotonically non-decreasing.
	CumulativePoints *big.Int
	// LastPointsTs is the unix timestamp of the last accrual.
	LastPointsTs int64
}

// ReferralRecord is the per-(vault, user) referral state. The inviter field
// transitions from unset to locked exactly once.
type ReferralRecord struct {
	Vault ID
	User  crypto.Address
	// Inviter is the locked inviter identity, zero while unset.
	Inviter crypto.Address
	// PointsFromInvites accumulates bonus points earned from invitees.
	// Bounded to 128 bits on the wire.
	PointsFromInvites *big.Int
}

// InviterLocked reports whether the one-time inviter binding has fired.
func (r *ReferralRecord) InviterLocked() bool {
	return r != nil && !r.Inviter.IsZero()
}

// Strategy is a registered yield source for a pool. WeightBps is allocation
// metadata for off-chain policy; harvests carry explicit amounts.
type Strategy struct {
	Pool       ID
	StrategyID uint8
	// Authority is the keeper identity allowed to submit harvests.
	Authority crypto.Address
	// WeightBps is the pool allocation weight in basis points.
	WeightBps uint16
	// LastHarvestTs is the unix timestamp of the most recent harvest.
	LastHarvestTs int64
}

// DepositParams carries the arguments and caller-supplied account bindings
// for a deposit. ReferralAccount must match the derived referral record
// identifier for (vault, user); InviterAccount is required exactly when an
// inviter is locked by the end of referral resolution.
type DepositParams struct {
	Pool   ID
	User   crypto.Address
	Amount uint64
	// Inviter is the proposed inviter identity; zero means none supplied.
	Inviter crypto.Address
	// ReferralAccount is the caller-derived referral record ID for the user.
	ReferralAccount ID
	// InviterAccount is the caller-derived referral record ID for the
	// inviter, nil when no inviter is involved.
	InviterAccount *ID
}
