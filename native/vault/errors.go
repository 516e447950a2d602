package vault

import "errors"

var (
	ErrUnauthorized             = errors.New("vault: unauthorized")
	ErrInvalidMultiplier        = errors.New("vault: invalid multiplier")
	ErrInvalidAmount            = errors.New("vault: invalid amount")
	ErrMathOverflow             = errors.New("vault: math overflow")
	ErrVaultPaused              = errors.New("vault: vault is paused")
	ErrZeroShares               = errors.New("vault: deposit rounds to zero shares")
	ErrInsufficientShares       = errors.New("vault: insufficient shares")
	ErrInvalidInviter           = errors.New("vault: invalid inviter")
	ErrInviterLocked            = errors.New("vault: inviter already set")
	ErrInviterAccountMissing    = errors.New("vault: missing inviter record")
	ErrUnexpectedInviterAccount = errors.New("vault: unexpected inviter account")
	ErrInvalidReferralAccount   = errors.New("vault: referral record derivation mismatch")
	ErrAccountSerialization     = errors.New("vault: failed to serialize account data")

	ErrVaultExists      = errors.New("vault: vault already exists")
	ErrVaultNotFound    = errors.New("vault: vault not found")
	ErrPoolExists       = errors.New("vault: asset pool already exists")
	ErrPoolNotFound     = errors.New("vault: asset pool not found")
	ErrStrategyExists   = errors.New("vault: strategy already exists")
	ErrStrategyNotFound = errors.New("vault: strategy not found")
	ErrInvalidID        = errors.New("vault: invalid identifier")
)
