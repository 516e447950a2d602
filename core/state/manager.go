package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"yieldvault/crypto"
	"yieldvault/native/vault"
	"yieldvault/storage"
)

// ErrInsufficientFunds is returned when a ledger transfer exceeds the
// sender's balance.
var ErrInsufficientFunds = errors.New("state: insufficient funds")

// Manager owns the persisted vault state and the fungible-asset ledger. All
// mutations run through Execute, which stages every write in an overlay and
// commits the batch atomically, so a failed operation leaves no partial
// state behind. Execute calls are serialized; reads through View run against
// the committed store.
type Manager struct {
	db storage.Database
	mu sync.Mutex
}

// NewManager creates a state manager on top of the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Execute runs fn inside a staged transaction and commits its writes
// atomically when fn succeeds. Any error from fn discards the overlay.
func (m *Manager) Execute(fn func(txn *Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn := newTxn(m.db)
	if err := fn(txn); err != nil {
		return err
	}
	ops := txn.ops()
	if len(ops) == 0 {
		return nil
	}
	return m.db.Write(ops)
}

// View runs fn against a read-only snapshot of the committed store. Writes
// staged by fn are discarded.
func (m *Manager) View(fn func(txn *Txn) error) error {
	return fn(newTxn(m.db))
}

// PoolVault resolves the owning vault of a pool, for callers that only hold
// the pool identifier.
func (m *Manager) PoolVault(poolID vault.ID) (vault.ID, error) {
	var vaultID vault.ID
	err := m.View(func(txn *Txn) error {
		pool, err := txn.PoolGet(poolID)
		if err != nil {
			return err
		}
		if pool == nil {
			return vault.ErrPoolNotFound
		}
		vaultID = pool.Vault
		return nil
	})
	return vaultID, err
}

// Mint credits freshly issued underlying to a holder. Used for genesis
// funding and test fixtures.
func (m *Manager) Mint(asset, to crypto.Address, amount uint64) error {
	return m.Execute(func(txn *Txn) error {
		return txn.Mint(asset, to, amount)
	})
}

// Balance reads a holder's committed ledger balance.
func (m *Manager) Balance(asset, holder crypto.Address) (uint64, error) {
	var balance uint64
	err := m.View(func(txn *Txn) error {
		var err error
		balance, err = txn.Balance(asset, holder)
		return err
	})
	return balance, err
}

// Txn is a staged view over the store. Reads see staged writes before
// committed data; writes stay in the overlay until the manager commits them.
// It carries both the vault entity state and the token ledger so a single
// operation's record updates and fund movements commit together.
type Txn struct {
	db     storage.Database
	staged map[string][]byte
	order  []string
}

func newTxn(db storage.Database) *Txn {
	return &Txn{db: db, staged: make(map[string][]byte)}
}

func (t *Txn) read(key []byte) ([]byte, error) {
	if value, ok := t.staged[string(key)]; ok {
		return value, nil
	}
	value, err := t.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	return value, err
}

func (t *Txn) stage(key, value []byte) {
	k := string(key)
	if _, ok := t.staged[k]; !ok {
		t.order = append(t.order, k)
	}
	t.staged[k] = value
}

func (t *Txn) ops() []storage.BatchOp {
	ops := make([]storage.BatchOp, 0, len(t.order))
	for _, k := range t.order {
		ops = append(ops, storage.BatchOp{Key: []byte(k), Value: t.staged[k]})
	}
	return ops
}

// VaultGet loads a vault record, nil when absent.
func (t *Txn) VaultGet(id vault.ID) (*vault.Vault, error) {
	data, err := t.read(prefixedKey(vaultPrefix, id[:]))
	if err != nil || data == nil {
		return nil, err
	}
	v := new(vault.Vault)
	if err := v.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return v, nil
}

// VaultPut stages a vault record write.
func (t *Txn) VaultPut(id vault.ID, v *vault.Vault) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	t.stage(prefixedKey(vaultPrefix, id[:]), data)
	return nil
}

// PoolGet loads a pool record, nil when absent.
func (t *Txn) PoolGet(id vault.ID) (*vault.AssetPool, error) {
	data, err := t.read(prefixedKey(poolPrefix, id[:]))
	if err != nil || data == nil {
		return nil, err
	}
	pool := new(vault.AssetPool)
	if err := pool.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return pool, nil
}

// PoolPut stages a pool record write.
func (t *Txn) PoolPut(id vault.ID, pool *vault.AssetPool) error {
	data, err := pool.MarshalBinary()
	if err != nil {
		return err
	}
	t.stage(prefixedKey(poolPrefix, id[:]), data)
	return nil
}

// PositionGet loads a user position, nil when absent. The pool and user key
// fields are populated from the lookup arguments.
func (t *Txn) PositionGet(poolID vault.ID, user crypto.Address) (*vault.UserPosition, error) {
	id := vault.DerivePositionID(poolID, user)
	data, err := t.read(prefixedKey(positionPrefix, id[:]))
	if err != nil || data == nil {
		return nil, err
	}
	pos := new(vault.UserPosition)
	if err := pos.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	pos.Pool = poolID
	pos.User = user
	return pos, nil
}

// PositionPut stages a position write under its derived identifier.
func (t *Txn) PositionPut(pos *vault.UserPosition) error {
	data, err := pos.MarshalBinary()
	if err != nil {
		return err
	}
	id := vault.DerivePositionID(pos.Pool, pos.User)
	t.stage(prefixedKey(positionPrefix, id[:]), data)
	return nil
}

// ReferralGet loads a referral record, nil when absent.
func (t *Txn) ReferralGet(vaultID vault.ID, user crypto.Address) (*vault.ReferralRecord, error) {
	id := vault.DeriveReferralID(vaultID, user)
	data, err := t.read(prefixedKey(referralPrefix, id[:]))
	if err != nil || data == nil {
		return nil, err
	}
	rec := new(vault.ReferralRecord)
	if err := rec.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	rec.Vault = vaultID
	rec.User = user
	return rec, nil
}

// ReferralPut stages a referral record write under its derived identifier.
func (t *Txn) ReferralPut(rec *vault.ReferralRecord) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	id := vault.DeriveReferralID(rec.Vault, rec.User)
	t.stage(prefixedKey(referralPrefix, id[:]), data)
	return nil
}

// StrategyGet loads a strategy record, nil when absent.
func (t *Txn) StrategyGet(poolID vault.ID, strategyID uint8) (*vault.Strategy, error) {
	id := vault.DeriveStrategyID(poolID, strategyID)
	data, err := t.read(prefixedKey(strategyPrefix, id[:]))
	if err != nil || data == nil {
		return nil, err
	}
	strat := new(vault.Strategy)
	if err := strat.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	strat.Pool = poolID
	strat.StrategyID = strategyID
	return strat, nil
}

// StrategyPut stages a strategy write and maintains the per-pool index used
// for listing.
func (t *Txn) StrategyPut(strat *vault.Strategy) error {
	data, err := strat.MarshalBinary()
	if err != nil {
		return err
	}
	indexKey := prefixedKey(strategyIxPrefix, strat.Pool[:])
	index, err := t.read(indexKey)
	if err != nil {
		return err
	}
	known := false
	for _, sid := range index {
		if sid == strat.StrategyID {
			known = true
			break
		}
	}
	if !known {
		t.stage(indexKey, append(append([]byte(nil), index...), strat.StrategyID))
	}
	id := vault.DeriveStrategyID(strat.Pool, strat.StrategyID)
	t.stage(prefixedKey(strategyPrefix, id[:]), data)
	return nil
}

// StrategiesByPool lists a pool's strategies in registration order.
func (t *Txn) StrategiesByPool(poolID vault.ID) ([]*vault.Strategy, error) {
	index, err := t.read(prefixedKey(strategyIxPrefix, poolID[:]))
	if err != nil {
		return nil, err
	}
	out := make([]*vault.Strategy, 0, len(index))
	for _, sid := range index {
		strat, err := t.StrategyGet(poolID, sid)
		if err != nil {
			return nil, err
		}
		if strat == nil {
			return nil, fmt.Errorf("strategy index references missing record %d", sid)
		}
		out = append(out, strat)
	}
	return out, nil
}

func balanceKey(asset, holder crypto.Address) []byte {
	return prefixedKey(balancePrefix, asset.Bytes(), holder.Bytes())
}

// Balance reads a holder's ledger balance through the overlay.
func (t *Txn) Balance(asset, holder crypto.Address) (uint64, error) {
	data, err := t.read(balanceKey(asset, holder))
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("malformed balance record of %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (t *Txn) setBalance(asset, holder crypto.Address, amount uint64) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, amount)
	t.stage(balanceKey(asset, holder), buf)
}

// Transfer moves underlying between ledger identities. A transfer beyond
// the sender's balance fails without staging anything.
func (t *Txn) Transfer(asset, from, to crypto.Address, amount uint64) error {
	if amount == 0 || from.Equal(to) {
		return nil
	}
	fromBalance, err := t.Balance(asset, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, fromBalance, amount)
	}
	toBalance, err := t.Balance(asset, to)
	if err != nil {
		return err
	}
	sum := toBalance + amount
	if sum < toBalance {
		return vault.ErrMathOverflow
	}
	t.setBalance(asset, from, fromBalance-amount)
	t.setBalance(asset, to, sum)
	return nil
}

// Mint credits freshly issued underlying to a holder.
func (t *Txn) Mint(asset, to crypto.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	balance, err := t.Balance(asset, to)
	if err != nil {
		return err
	}
	sum := balance + amount
	if sum < balance {
		return vault.ErrMathOverflow
	}
	t.setBalance(asset, to, sum)
	return nil
}
