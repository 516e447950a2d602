package vault

import (
	"errors"
	"math/big"
	"time"

	"yieldvault/core/events"
	"yieldvault/crypto"
)

var (
	errNilState  = errors.New("vault engine: state not configured")
	errNilLedger = errors.New("vault engine: token ledger not configured")
)

// engineState describes the persistence the engine needs from the host. A
// Get returns (nil, nil) when the entity does not exist; every mutation made
// through Put must land atomically with the rest of the operation.
type engineState interface {
	VaultGet(id ID) (*Vault, error)
	VaultPut(id ID, v *Vault) error
	PoolGet(id ID) (*AssetPool, error)
	PoolPut(id ID, pool *AssetPool) error
	PositionGet(poolID ID, user crypto.Address) (*UserPosition, error)
	PositionPut(pos *UserPosition) error
	ReferralGet(vaultID ID, user crypto.Address) (*ReferralRecord, error)
	ReferralPut(rec *ReferralRecord) error
	StrategyGet(poolID ID, strategyID uint8) (*Strategy, error)
	StrategyPut(s *Strategy) error
	StrategiesByPool(poolID ID) ([]*Strategy, error)
}

// TokenLedger is the external collaborator that moves the underlying asset
// between ledger identities. The engine never inspects balances; it only
// requests transfers and treats failures as terminal for the operation.
type TokenLedger interface {
	Transfer(asset, from, to crypto.Address, amount uint64) error
}

// Engine orchestrates the share-accounting, points-accrual and
// harvest-distribution state transitions.
type Engine struct {
	state            engineState
	ledger           TokenLedger
	emitter          events.Emitter
	nowFn            func() int64
	referralBonusBps uint16
}

// NewEngine constructs an engine with a no-op emitter and the default
// referral bonus. The host wires state and ledger before use.
func NewEngine() *Engine {
	return &Engine{
		emitter:          events.NoopEmitter{},
		nowFn:            func() int64 { return time.Now().Unix() },
		referralBonusBps: DefaultReferralBonusBps,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the engine to the asset-transfer collaborator.
func (e *Engine) SetLedger(ledger TokenLedger) { e.ledger = ledger }

// SetEmitter configures the event sink. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source; tests use it for deterministic
// accrual windows.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetReferralBonusBps overrides the inviter bonus fraction. Values above
// 10000 bps are clamped.
func (e *Engine) SetReferralBonusBps(bps uint16) {
	if bps > MaxBps {
		bps = MaxBps
	}
	e.referralBonusBps = bps
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// InitializeVault creates the vault owned by the calling authority. The
// caller becomes the authority; a second initialization at the same derived
// address fails.
func (e *Engine) InitializeVault(authority crypto.Address, basePointsRate uint64) (ID, error) {
	if e == nil || e.state == nil {
		return ID{}, errNilState
	}
	if authority.IsZero() {
		return ID{}, ErrUnauthorized
	}
	id := DeriveVaultID(authority)
	existing, err := e.state.VaultGet(id)
	if err != nil {
		return ID{}, err
	}
	if existing != nil {
		return ID{}, ErrVaultExists
	}
	v := &Vault{Authority: authority, BasePointsRate: basePointsRate}
	if err := e.state.VaultPut(id, v); err != nil {
		return ID{}, err
	}
	return id, nil
}

// UpdateVaultParams replaces the base points rate and paused flag. The new
// rate applies to subsequent accruals only.
func (e *Engine) UpdateVaultParams(caller crypto.Address, vaultID ID, newBaseRate uint64, paused bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	v, err := e.requireVault(vaultID)
	if err != nil {
		return err
	}
	if !v.Authority.Equal(caller) {
		return ErrUnauthorized
	}
	v.BasePointsRate = newBaseRate
	v.Paused = paused
	return e.state.VaultPut(vaultID, v)
}

// RegisterToken binds an asset to the vault, creating its empty pool and
// custody binding. Authority only.
func (e *Engine) RegisterToken(caller crypto.Address, vaultID ID, asset crypto.Address, multiplierBps uint16) (ID, error) {
	if e == nil || e.state == nil {
		return ID{}, errNilState
	}
	v, err := e.requireVault(vaultID)
	if err != nil {
		return ID{}, err
	}
	if !v.Authority.Equal(caller) {
		return ID{}, ErrUnauthorized
	}
	if multiplierBps == 0 || multiplierBps > MaxBps {
		return ID{}, ErrInvalidMultiplier
	}
	if asset.IsZero() {
		return ID{}, ErrInvalidID
	}
	poolID := DerivePoolID(vaultID, asset)
	existing, err := e.state.PoolGet(poolID)
	if err != nil {
		return ID{}, err
	}
	if existing != nil {
		return ID{}, ErrPoolExists
	}
	pool := &AssetPool{
		Vault:               vaultID,
		Asset:               asset,
		Custody:             DeriveCustodyAddress(vaultID),
		PointsMultiplierBps: multiplierBps,
	}
	if err := e.state.PoolPut(poolID, pool); err != nil {
		return ID{}, err
	}
	e.emit(events.VaultTokenRegistered{Asset: asset, MultiplierBps: multiplierBps})
	return poolID, nil
}

// RegisterStrategy records a yield strategy for the pool. The keeper
// identity (defaulting to the vault authority) gains the harvest capability.
// The pool-wide weight budget of 10000 bps is enforced here.
func (e *Engine) RegisterStrategy(caller crypto.Address, poolID ID, strategyID uint8, weightBps uint16, keeper crypto.Address) (ID, error) {
	if e == nil || e.state == nil {
		return ID{}, errNilState
	}
	pool, err := e.requirePool(poolID)
	if err != nil {
		return ID{}, err
	}
	v, err := e.requireVault(pool.Vault)
	if err != nil {
		return ID{}, err
	}
	if !v.Authority.Equal(caller) {
		return ID{}, ErrUnauthorized
	}
	if weightBps > MaxBps {
		return ID{}, ErrInvalidMultiplier
	}
	existing, err := e.state.StrategyGet(poolID, strategyID)
	if err != nil {
		return ID{}, err
	}
	if existing != nil {
		return ID{}, ErrStrategyExists
	}
	registered, err := e.state.StrategiesByPool(poolID)
	if err != nil {
		return ID{}, err
	}
	total := uint64(weightBps)
	for _, s := range registered {
		total += uint64(s.WeightBps)
	}
	if total > MaxBps {
		return ID{}, ErrInvalidMultiplier
	}
	if keeper.IsZero() {
		keeper = v.Authority
	}
	strategy := &Strategy{
		Pool:          poolID,
		StrategyID:    strategyID,
		Authority:     keeper,
		WeightBps:     weightBps,
		LastHarvestTs: e.now(),
	}
	if err := e.state.StrategyPut(strategy); err != nil {
		return ID{}, err
	}
	id := DeriveStrategyID(poolID, strategyID)
	e.emit(events.VaultStrategyRegistered{Asset: pool.Asset, Strategy: id, WeightBps: weightBps})
	return id, nil
}

// Deposit converts an underlying amount into pool shares for the user,
// accruing points on the stale balance first and resolving the one-time
// referral binding. Returns the minted share count.
func (e *Engine) Deposit(p DepositParams) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if e.ledger == nil {
		return 0, errNilLedger
	}
	if p.Amount == 0 {
		return 0, ErrInvalidAmount
	}
	if p.User.IsZero() {
		return 0, ErrUnauthorized
	}
	pool, err := e.requirePool(p.Pool)
	if err != nil {
		return 0, err
	}
	v, err := e.requireVault(pool.Vault)
	if err != nil {
		return 0, err
	}
	if v.Paused {
		return 0, ErrVaultPaused
	}

	if p.ReferralAccount != DeriveReferralID(pool.Vault, p.User) {
		return 0, ErrInvalidReferralAccount
	}
	record, err := e.state.ReferralGet(pool.Vault, p.User)
	if err != nil {
		return 0, err
	}
	if record == nil {
		record = &ReferralRecord{Vault: pool.Vault, User: p.User, PointsFromInvites: big.NewInt(0)}
	}
	inviter, _, err := resolveInviter(record.Inviter, p.Inviter, p.User)
	if err != nil {
		return 0, err
	}
	record.Inviter = inviter

	// The inviter record binding must be consistent before any funds move.
	var inviterRecord *ReferralRecord
	if record.InviterLocked() {
		if p.InviterAccount == nil {
			return 0, ErrInviterAccountMissing
		}
		if *p.InviterAccount != DeriveReferralID(pool.Vault, record.Inviter) {
			return 0, ErrInvalidInviter
		}
		inviterRecord, err = e.state.ReferralGet(pool.Vault, record.Inviter)
		if err != nil {
			return 0, err
		}
		if inviterRecord == nil {
			inviterRecord = &ReferralRecord{Vault: pool.Vault, User: record.Inviter, PointsFromInvites: big.NewInt(0)}
		}
	} else if p.InviterAccount != nil {
		return 0, ErrUnexpectedInviterAccount
	}

	now := e.now()
	pos, err := e.state.PositionGet(p.Pool, p.User)
	if err != nil {
		return 0, err
	}
	if pos == nil {
		pos = &UserPosition{Pool: p.Pool, User: p.User, CumulativePoints: big.NewInt(0), LastPointsTs: now}
	}
	// Accrue on the pre-deposit balance before shares change.
	if err := accruePoints(v, pool, pos, now); err != nil {
		return 0, err
	}

	var shares uint64
	if pool.TotalShares == 0 || pool.TotalUnderlying == 0 {
		shares = p.Amount
	} else {
		shares, err = mulDivFloor(p.Amount, pool.TotalShares, pool.TotalUnderlying)
		if err != nil {
			return 0, err
		}
	}
	if shares == 0 {
		return 0, ErrZeroShares
	}

	if err := e.ledger.Transfer(pool.Asset, p.User, pool.Custody, p.Amount); err != nil {
		return 0, err
	}

	if pool.TotalUnderlying, err = checkedAddU64(pool.TotalUnderlying, p.Amount); err != nil {
		return 0, err
	}
	if pool.TotalShares, err = checkedAddU64(pool.TotalShares, shares); err != nil {
		return 0, err
	}
	if pos.Shares, err = checkedAddU64(pos.Shares, shares); err != nil {
		return 0, err
	}

	if inviterRecord != nil {
		bonus := bpsShare(p.Amount, e.referralBonusBps)
		if inviterRecord.PointsFromInvites, err = addPointsU64(inviterRecord.PointsFromInvites, bonus); err != nil {
			return 0, err
		}
		if err := e.state.ReferralPut(inviterRecord); err != nil {
			return 0, err
		}
	}

	if err := e.state.ReferralPut(record); err != nil {
		return 0, err
	}
	if err := e.state.PositionPut(pos); err != nil {
		return 0, err
	}
	if err := e.state.PoolPut(p.Pool, pool); err != nil {
		return 0, err
	}

	e.emit(events.VaultDeposited{User: p.User, Asset: pool.Asset, Amount: p.Amount, Shares: shares})
	return shares, nil
}

// Withdraw burns the share-equivalent of the requested underlying amount and
// releases it from custody. Share burns round up so assets removed are never
// under-charged. Returns the underlying actually returned, which exceeds the
// request only when the final burn sweeps residual rounding dust out of an
// emptied pool.
func (e *Engine) Withdraw(user crypto.Address, poolID ID, amount uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if e.ledger == nil {
		return 0, errNilLedger
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	pool, err := e.requirePool(poolID)
	if err != nil {
		return 0, err
	}
	v, err := e.requireVault(pool.Vault)
	if err != nil {
		return 0, err
	}
	if v.Paused {
		return 0, ErrVaultPaused
	}
	pos, err := e.state.PositionGet(poolID, user)
	if err != nil {
		return 0, err
	}
	if pos == nil || pos.Shares == 0 {
		return 0, ErrInsufficientShares
	}
	if pool.TotalUnderlying == 0 || amount > pool.TotalUnderlying {
		return 0, ErrInvalidAmount
	}

	now := e.now()
	// Accrue on the pre-withdrawal balance before shares change.
	if err := accruePoints(v, pool, pos, now); err != nil {
		return 0, err
	}

	sharesToBurn, err := mulDivCeil(amount, pool.TotalShares, pool.TotalUnderlying)
	if err != nil {
		return 0, err
	}
	if sharesToBurn == 0 {
		return 0, ErrZeroShares
	}
	if sharesToBurn > pos.Shares {
		return 0, ErrInsufficientShares
	}

	payout := amount
	remainingShares, err := checkedSubU64(pool.TotalShares, sharesToBurn)
	if err != nil {
		return 0, err
	}
	remainingUnderlying, err := checkedSubU64(pool.TotalUnderlying, amount)
	if err != nil {
		return 0, err
	}
	if remainingShares == 0 && remainingUnderlying > 0 {
		// The final burn sweeps rounding dust so an empty share supply
		// never strands underlying.
		payout, err = checkedAddU64(payout, remainingUnderlying)
		if err != nil {
			return 0, err
		}
		remainingUnderlying = 0
	}

	if err := e.ledger.Transfer(pool.Asset, pool.Custody, user, payout); err != nil {
		return 0, err
	}

	pool.TotalShares = remainingShares
	pool.TotalUnderlying = remainingUnderlying
	if pos.Shares, err = checkedSubU64(pos.Shares, sharesToBurn); err != nil {
		return 0, err
	}

	if err := e.state.PositionPut(pos); err != nil {
		return 0, err
	}
	if err := e.state.PoolPut(poolID, pool); err != nil {
		return 0, err
	}

	e.emit(events.VaultWithdrawn{User: user, Asset: pool.Asset, Amount: payout, Shares: sharesToBurn})
	return payout, nil
}

// Harvest folds realized strategy yield into the pool's underlying total
// without minting shares, which is what raises the share price. Callable by
// the strategy keeper or the vault authority.
func (e *Engine) Harvest(keeper crypto.Address, poolID ID, strategyID uint8, yieldAmount uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if yieldAmount == 0 {
		return ErrInvalidAmount
	}
	pool, err := e.requirePool(poolID)
	if err != nil {
		return err
	}
	v, err := e.requireVault(pool.Vault)
	if err != nil {
		return err
	}
	strategy, err := e.state.StrategyGet(poolID, strategyID)
	if err != nil {
		return err
	}
	if strategy == nil {
		return ErrStrategyNotFound
	}
	if !strategy.Authority.Equal(keeper) && !v.Authority.Equal(keeper) {
		return ErrUnauthorized
	}
	if pool.TotalShares == 0 {
		// Yield into an empty pool would strand underlying with no shares
		// outstanding to own it.
		return ErrInvalidAmount
	}

	if err := e.ledger.Transfer(pool.Asset, keeper, pool.Custody, yieldAmount); err != nil {
		return err
	}
	if pool.TotalUnderlying, err = checkedAddU64(pool.TotalUnderlying, yieldAmount); err != nil {
		return err
	}
	strategy.LastHarvestTs = e.now()

	if err := e.state.StrategyPut(strategy); err != nil {
		return err
	}
	if err := e.state.PoolPut(poolID, pool); err != nil {
		return err
	}

	e.emit(events.VaultHarvested{Strategy: DeriveStrategyID(poolID, strategyID), Asset: pool.Asset, Yield: yieldAmount})
	return nil
}

// VaultInfo returns the stored vault, ErrVaultNotFound when absent.
func (e *Engine) VaultInfo(vaultID ID) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.requireVault(vaultID)
}

// Pool returns the stored pool, ErrPoolNotFound when absent.
func (e *Engine) Pool(poolID ID) (*AssetPool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.requirePool(poolID)
}

// Position returns the stored user position; a missing position reads as an
// empty one.
func (e *Engine) Position(poolID ID, user crypto.Address) (*UserPosition, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pos, err := e.state.PositionGet(poolID, user)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		pos = &UserPosition{Pool: poolID, User: user, CumulativePoints: big.NewInt(0)}
	}
	return pos, nil
}

// Referral returns the stored referral record; a missing record reads as an
// unlocked one.
func (e *Engine) Referral(vaultID ID, user crypto.Address) (*ReferralRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	rec, err := e.state.ReferralGet(vaultID, user)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &ReferralRecord{Vault: vaultID, User: user, PointsFromInvites: big.NewInt(0)}
	}
	return rec, nil
}

// Strategies lists the registered strategies for a pool.
func (e *Engine) Strategies(poolID ID) ([]*Strategy, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.StrategiesByPool(poolID)
}

func (e *Engine) requireVault(id ID) (*Vault, error) {
	v, err := e.state.VaultGet(id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVaultNotFound
	}
	return v, nil
}

func (e *Engine) requirePool(id ID) (*AssetPool, error) {
	pool, err := e.state.PoolGet(id)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}
