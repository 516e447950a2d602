package events

import (
	"encoding/hex"
	"strconv"

	"yieldvault/core/types"
	"yieldvault/crypto"
)

const (
	TypeVaultDeposited          = "vault.deposited"
	TypeVaultWithdrawn          = "vault.withdrawn"
	TypeVaultHarvested          = "vault.harvested"
	TypeVaultTokenRegistered    = "vault.token_registered"
	TypeVaultStrategyRegistered = "vault.strategy_registered"
)

// VaultDeposited is emitted after a deposit mints shares against a pool.
type VaultDeposited struct {
	User   crypto.Address
	Asset  crypto.Address
	Amount uint64
	Shares uint64
}

func (VaultDeposited) EventType() string { return TypeVaultDeposited }

func (e VaultDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultDeposited,
		Attributes: map[string]string{
			"user":   e.User.String(),
			"asset":  e.Asset.String(),
			"amount": strconv.FormatUint(e.Amount, 10),
			"shares": strconv.FormatUint(e.Shares, 10),
		},
	}
}

// VaultWithdrawn is emitted after a withdrawal burns shares from a pool.
type VaultWithdrawn struct {
	User   crypto.Address
	Asset  crypto.Address
	Amount uint64
	Shares uint64
}

func (VaultWithdrawn) EventType() string { return TypeVaultWithdrawn }

func (e VaultWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultWithdrawn,
		Attributes: map[string]string{
			"user":   e.User.String(),
			"asset":  e.Asset.String(),
			"amount": strconv.FormatUint(e.Amount, 10),
			"shares": strconv.FormatUint(e.Shares, 10),
		},
	}
}

// VaultHarvested is emitted when strategy yield is folded into a pool.
type VaultHarvested struct {
	Strategy [32]byte
	Asset    crypto.Address
	Yield    uint64
}

func (VaultHarvested) EventType() string { return TypeVaultHarvested }

func (e VaultHarvested) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultHarvested,
		Attributes: map[string]string{
			"strategy": hex.EncodeToString(e.Strategy[:]),
			"asset":    e.Asset.String(),
			"yield":    strconv.FormatUint(e.Yield, 10),
		},
	}
}

// VaultTokenRegistered is emitted when a new asset pool is bound to a vault.
type VaultTokenRegistered struct {
	Asset         crypto.Address
	MultiplierBps uint16
}

func (VaultTokenRegistered) EventType() string { return TypeVaultTokenRegistered }

func (e VaultTokenRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultTokenRegistered,
		Attributes: map[string]string{
			"asset":         e.Asset.String(),
			"multiplierBps": strconv.FormatUint(uint64(e.MultiplierBps), 10),
		},
	}
}

// VaultStrategyRegistered is emitted when a yield strategy joins a pool.
type VaultStrategyRegistered struct {
	Asset     crypto.Address
	Strategy  [32]byte
	WeightBps uint16
}

func (VaultStrategyRegistered) EventType() string { return TypeVaultStrategyRegistered }

func (e VaultStrategyRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultStrategyRegistered,
		Attributes: map[string]string{
			"asset":     e.Asset.String(),
			"strategy":  hex.EncodeToString(e.Strategy[:]),
			"weightBps": strconv.FormatUint(uint64(e.WeightBps), 10),
		},
	}
}
