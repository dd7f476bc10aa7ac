package bank

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"intentnet/core/types"
)

var (
	// ErrInsufficientBalance is returned when a transfer or reserve exceeds
	// the free balance.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	// ErrInsufficientReserved is returned when an unreserve exceeds the
	// reserved balance.
	ErrInsufficientReserved = errors.New("bank: insufficient reserved balance")
)

type balanceKey struct {
	owner types.Address
	asset types.AssetID
}

// Ledger tracks free and reserved balances per (owner, asset). Reserved
// balances back open intents; settlement releases them via Unreserve before
// moving funds. The zero value is not usable, construct with NewLedger.
//
// A Ledger guards itself with a mutex so read-only callers (solvers, RPC) can
// run concurrently with the sequential block transition. Snapshot returns a
// detached deep copy used by the executor for all-or-nothing batches.
type Ledger struct {
	mu       sync.RWMutex
	free     map[balanceKey]*big.Int
	reserved map[balanceKey]*big.Int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		free:     make(map[balanceKey]*big.Int),
		reserved: make(map[balanceKey]*big.Int),
	}
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// BalanceOf returns the free balance for (owner, asset).
func (l *Ledger) BalanceOf(owner types.Address, asset types.AssetID) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneAmount(l.free[balanceKey{owner, asset}])
}

// ReservedOf returns the reserved balance for (owner, asset).
func (l *Ledger) ReservedOf(owner types.Address, asset types.AssetID) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneAmount(l.reserved[balanceKey{owner, asset}])
}

// Mint credits amount to the owner's free balance. Used for genesis funding
// and tests.
func (l *Ledger) Mint(owner types.Address, asset types.AssetID, amount *big.Int) error {
	if err := types.CheckAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := balanceKey{owner, asset}
	next, err := types.CheckedAdd(cloneAmount(l.free[key]), amount)
	if err != nil {
		return err
	}
	l.free[key] = next
	return nil
}

// Transfer moves amount of asset from one free balance to another.
func (l *Ledger) Transfer(from, to types.Address, asset types.AssetID, amount *big.Int) error {
	if err := types.CheckAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fromKey := balanceKey{from, asset}
	balance := cloneAmount(l.free[fromKey])
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s of %s, need %s", ErrInsufficientBalance, from, balance, asset, amount)
	}
	toKey := balanceKey{to, asset}
	credited, err := types.CheckedAdd(cloneAmount(l.free[toKey]), amount)
	if err != nil {
		return err
	}
	l.free[fromKey] = balance.Sub(balance, amount)
	l.free[toKey] = credited
	return nil
}

// Reserve moves amount from the owner's free balance into escrow.
func (l *Ledger) Reserve(owner types.Address, asset types.AssetID, amount *big.Int) error {
	if err := types.CheckAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := balanceKey{owner, asset}
	balance := cloneAmount(l.free[key])
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s of %s, need %s", ErrInsufficientBalance, owner, balance, asset, amount)
	}
	held, err := types.CheckedAdd(cloneAmount(l.reserved[key]), amount)
	if err != nil {
		return err
	}
	l.free[key] = balance.Sub(balance, amount)
	l.reserved[key] = held
	return nil
}

// Unreserve releases exactly amount from escrow back to the free balance.
func (l *Ledger) Unreserve(owner types.Address, asset types.AssetID, amount *big.Int) error {
	if err := types.CheckAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := balanceKey{owner, asset}
	held := cloneAmount(l.reserved[key])
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s of %s reserved, need %s", ErrInsufficientReserved, owner, held, asset, amount)
	}
	freed, err := types.CheckedAdd(cloneAmount(l.free[key]), amount)
	if err != nil {
		return err
	}
	l.reserved[key] = held.Sub(held, amount)
	l.free[key] = freed
	return nil
}

// Snapshot returns a detached deep copy of the ledger. Mutations on the copy
// do not affect the original until Restore installs them.
func (l *Ledger) Snapshot() *Ledger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap := NewLedger()
	for k, v := range l.free {
		snap.free[k] = cloneAmount(v)
	}
	for k, v := range l.reserved {
		snap.reserved[k] = cloneAmount(v)
	}
	return snap
}

// Restore replaces the ledger's contents with those of the snapshot. The
// block transition calls this to commit an executed batch.
func (l *Ledger) Restore(snap *Ledger) {
	if snap == nil {
		return
	}
	snap.mu.RLock()
	free := make(map[balanceKey]*big.Int, len(snap.free))
	reserved := make(map[balanceKey]*big.Int, len(snap.reserved))
	for k, v := range snap.free {
		free[k] = cloneAmount(v)
	}
	for k, v := range snap.reserved {
		reserved[k] = cloneAmount(v)
	}
	snap.mu.RUnlock()

	l.mu.Lock()
	l.free = free
	l.reserved = reserved
	l.mu.Unlock()
}

// Holding is a balance line reported by Holdings.
type Holding struct {
	Owner    types.Address
	Asset    types.AssetID
	Free     *big.Int
	Reserved *big.Int
}

// Holdings lists every non-zero balance line, ordered deterministically.
// Intended for debugging endpoints and tests.
func (l *Ledger) Holdings() []Holding {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[balanceKey]struct{}, len(l.free)+len(l.reserved))
	for k := range l.free {
		seen[k] = struct{}{}
	}
	for k := range l.reserved {
		seen[k] = struct{}{}
	}
	out := make([]Holding, 0, len(seen))
	for k := range seen {
		free := cloneAmount(l.free[k])
		held := cloneAmount(l.reserved[k])
		if free.Sign() == 0 && held.Sign() == 0 {
			continue
		}
		out = append(out, Holding{Owner: k.owner, Asset: k.asset, Free: free, Reserved: held})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return string(out[i].Owner[:]) < string(out[j].Owner[:])
		}
		return out[i].Asset < out[j].Asset
	})
	return out
}
