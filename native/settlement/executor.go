package settlement

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"intentnet/core/types"
	"intentnet/native/bank"
	"intentnet/native/venues"
)

var (
	errNilLedger   = errors.New("settlement executor: ledger not configured")
	errNilRegistry = errors.New("settlement executor: venue registry not configured")
	errNilResolver = errors.New("settlement executor: intent resolver not configured")
)

const holdingSeed = "intentnet/settlement/holding"

// HoldingAccount returns the transient account that collects escrowed funds
// and pays them out within one settlement. Derived from a fixed module seed
// so it can never collide with a user key.
func HoldingAccount() types.Address {
	return types.BytesToAddress(ethcrypto.Keccak256([]byte(holdingSeed))[12:])
}

// IntentResolver applies post-execution bookkeeping to the intent inventory.
type IntentResolver interface {
	Resolve(resolved types.ResolvedIntent) error
	ClearExpired(now int64) (int, error)
}

// Executor runs a validated solution's instruction batch atomically. All
// instructions are applied to a ledger snapshot; only if every one succeeds
// is the snapshot committed, after which the resolved intents are reduced or
// finalized and expired intents swept.
type Executor struct {
	ledger   *bank.Ledger
	registry *venues.Registry
	resolver IntentResolver
	holding  types.Address
	nowFn    func() int64
}

// NewExecutor creates an executor over the live ledger and venue registry.
func NewExecutor(ledger *bank.Ledger, registry *venues.Registry, resolver IntentResolver, now func() int64) *Executor {
	return &Executor{
		ledger:   ledger,
		registry: registry,
		resolver: resolver,
		holding:  HoldingAccount(),
		nowFn:    now,
	}
}

func (e *Executor) ready() error {
	if e == nil || e.ledger == nil {
		return errNilLedger
	}
	if e.registry == nil {
		return errNilRegistry
	}
	if e.resolver == nil {
		return errNilResolver
	}
	return nil
}

// Execute applies the solution. Invoked only on solutions that already
// passed validation; escrow equality is still re-checked here rather than
// trusting the verifier blindly. On any instruction failure the snapshot is
// discarded and no state changes.
func (e *Executor) Execute(solution *types.Solution) error {
	if err := e.ready(); err != nil {
		return err
	}

	snap := e.ledger.Snapshot()
	registry := e.registry.WithLedger(snap)

	for _, instruction := range solution.Instructions {
		if err := e.apply(snap, registry, instruction); err != nil {
			return err
		}
	}

	e.ledger.Restore(snap)

	for _, resolved := range solution.ResolvedIntents {
		if err := e.resolver.Resolve(resolved); err != nil {
			return fmt.Errorf("resolve intent %s: %w", resolved.IntentID, err)
		}
	}
	if _, err := e.resolver.ClearExpired(e.nowFn()); err != nil {
		return fmt.Errorf("clear expired intents: %w", err)
	}
	return nil
}

func (e *Executor) apply(snap *bank.Ledger, registry *venues.Registry, instruction types.Instruction) error {
	switch instruction.Kind {
	case types.InstructionTransferIn:
		if err := snap.Unreserve(instruction.Who, instruction.Asset, instruction.Amount); err != nil {
			return fmt.Errorf("%w: %s/%s: %v", ErrInsufficientReservedBalance, instruction.Who, instruction.Asset, err)
		}
		return snap.Transfer(instruction.Who, e.holding, instruction.Asset, instruction.Amount)
	case types.InstructionTransferOut:
		return snap.Transfer(e.holding, instruction.Who, instruction.Asset, instruction.Amount)
	case types.InstructionSwapExactIn:
		return e.swapExactIn(registry, instruction)
	case types.InstructionSwapExactOut:
		return e.swapExactOut(registry, instruction)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownInstruction, instruction.Kind)
	}
}

// swapExactIn sells hop by hop; intermediate hops carry no limit, the final
// proceeds must reach the instruction's AmountOut.
func (e *Executor) swapExactIn(registry *venues.Registry, instruction types.Instruction) error {
	if len(instruction.Route) == 0 {
		return fmt.Errorf("%w: swap without route", venues.ErrPairNotSupported)
	}
	current := new(big.Int).Set(instruction.AmountIn)
	for i, hop := range instruction.Route {
		adapter, err := registry.Get(hop.Venue)
		if err != nil {
			return err
		}
		var limit *big.Int
		if i == len(instruction.Route)-1 {
			limit = instruction.AmountOut
		}
		out, err := adapter.ExecuteSell(e.holding, hop.AssetIn, hop.AssetOut, current, limit)
		if err != nil {
			return err
		}
		current = out
	}
	return nil
}

// swapExactOut works the route backwards to size each hop, then buys forward
// under per-hop cost limits; the total paid may not exceed AmountIn.
func (e *Executor) swapExactOut(registry *venues.Registry, instruction types.Instruction) error {
	if len(instruction.Route) == 0 {
		return fmt.Errorf("%w: swap without route", venues.ErrPairNotSupported)
	}
	hops := instruction.Route
	needed := make([]*big.Int, len(hops)+1)
	needed[len(hops)] = new(big.Int).Set(instruction.AmountOut)
	for i := len(hops) - 1; i >= 0; i-- {
		adapter, err := registry.Get(hops[i].Venue)
		if err != nil {
			return err
		}
		in, err := adapter.InGivenOut(hops[i].AssetIn, hops[i].AssetOut, needed[i+1])
		if err != nil {
			return err
		}
		needed[i] = in
	}
	if needed[0].Cmp(instruction.AmountIn) > 0 {
		return fmt.Errorf("%w: route costs %s, limit %s", venues.ErrLimitExceeded, needed[0], instruction.AmountIn)
	}
	for i, hop := range hops {
		adapter, err := registry.Get(hop.Venue)
		if err != nil {
			return err
		}
		if _, err := adapter.ExecuteBuy(e.holding, hop.AssetIn, hop.AssetOut, needed[i+1], needed[i]); err != nil {
			return err
		}
	}
	return nil
}
