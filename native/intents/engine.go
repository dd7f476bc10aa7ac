package intents

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"intentnet/core/events"
	"intentnet/core/types"
)

var (
	errNilState       = errors.New("intents engine: state not configured")
	errNilLedger      = errors.New("intents engine: ledger not configured")
	ErrIntentNotFound = errors.New("intents engine: intent not found")
	ErrNotOwner       = errors.New("intents engine: caller does not own intent")
	ErrInvalidIntent  = errors.New("intents engine: invalid intent")
	ErrExpired        = errors.New("intents engine: deadline already passed")
)

type engineState interface {
	IntentPut(*types.Intent) error
	IntentGet(types.IntentID) (*types.Intent, bool)
	IntentRemove(types.IntentID) error
	IntentIterate(func(*types.Intent) bool) error
	NextSequence() (uint64, error)
}

type escrowLedger interface {
	Reserve(owner types.Address, asset types.AssetID, amount *big.Int) error
	Unreserve(owner types.Address, asset types.AssetID, amount *big.Int) error
}

// Engine owns the inventory of open intents and their escrowed funds. Funds
// are reserved at submission, released piecemeal as settlements fill the
// intent, and returned in full when the intent is cancelled or expires.
type Engine struct {
	state   engineState
	ledger  escrowLedger
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates an intents engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the escrow ledger.
func (e *Engine) SetLedger(ledger escrowLedger) { e.ledger = ledger }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

// Submit validates a new intent, escrows AmountIn from the owner's balance
// (the exact sell amount for ExactIn, the payment ceiling for ExactOut) and
// stores it under a deadline-ordered identifier.
func (e *Engine) Submit(owner types.Address, assetIn, assetOut types.AssetID, amountIn, amountOut *big.Int, swapType types.SwapType, partial bool, deadline int64) (types.IntentID, error) {
	if err := e.ready(); err != nil {
		return types.IntentID{}, err
	}
	if owner.IsZero() {
		return types.IntentID{}, fmt.Errorf("%w: zero owner", ErrInvalidIntent)
	}
	if assetIn == assetOut {
		return types.IntentID{}, fmt.Errorf("%w: identical assets", ErrInvalidIntent)
	}
	if err := types.CheckAmount(amountIn); err != nil {
		return types.IntentID{}, fmt.Errorf("%w: amount in: %v", ErrInvalidIntent, err)
	}
	if err := types.CheckAmount(amountOut); err != nil {
		return types.IntentID{}, fmt.Errorf("%w: amount out: %v", ErrInvalidIntent, err)
	}
	if amountIn.Sign() == 0 || amountOut.Sign() == 0 {
		return types.IntentID{}, fmt.Errorf("%w: zero amount", ErrInvalidIntent)
	}
	if deadline <= e.nowFn() {
		return types.IntentID{}, ErrExpired
	}

	seq, err := e.state.NextSequence()
	if err != nil {
		return types.IntentID{}, err
	}
	intent := &types.Intent{
		ID:        types.NewIntentID(deadline, seq),
		Owner:     owner,
		AssetIn:   assetIn,
		AssetOut:  assetOut,
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: new(big.Int).Set(amountOut),
		SwapType:  swapType,
		Partial:   partial,
		Deadline:  deadline,
	}

	if err := e.ledger.Reserve(owner, assetIn, intent.AmountIn); err != nil {
		return types.IntentID{}, err
	}
	if err := e.state.IntentPut(intent); err != nil {
		// keep escrow consistent with stored intents
		_ = e.ledger.Unreserve(owner, assetIn, intent.AmountIn)
		return types.IntentID{}, err
	}

	e.emit(events.IntentCreated{
		ID:       intent.ID,
		Owner:    owner,
		AssetIn:  assetIn,
		AssetOut: assetOut,
		AmountIn: intent.AmountIn,
		Deadline: deadline,
	})
	return intent.ID, nil
}

// Get returns the stored intent for id.
func (e *Engine) Get(id types.IntentID) (*types.Intent, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	intent, ok := e.state.IntentGet(id)
	if !ok {
		return nil, false
	}
	return intent.Clone(), true
}

// Valid returns every intent whose deadline is still in the future, sorted by
// deadline. This is the snapshot solvers run against.
func (e *Engine) Valid(now int64) []*types.Intent {
	if e == nil || e.state == nil {
		return nil
	}
	var out []*types.Intent
	_ = e.state.IntentIterate(func(intent *types.Intent) bool {
		if !intent.Expired(now) {
			out = append(out, intent.Clone())
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Deadline != out[j].Deadline {
			return out[i].Deadline < out[j].Deadline
		}
		return out[i].ID.Sequence < out[j].ID.Sequence
	})
	return out
}

// Cancel removes an open intent and returns its remaining escrow to the
// owner. Only the owner may cancel.
func (e *Engine) Cancel(id types.IntentID, caller types.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	intent, ok := e.state.IntentGet(id)
	if !ok {
		return ErrIntentNotFound
	}
	if intent.Owner != caller {
		return ErrNotOwner
	}
	if err := e.ledger.Unreserve(intent.Owner, intent.AssetIn, intent.AmountIn); err != nil {
		return err
	}
	if err := e.state.IntentRemove(id); err != nil {
		return err
	}
	e.emit(events.IntentCancelled{ID: id, Owner: intent.Owner})
	return nil
}

// Resolve applies a settled fill to the stored intent. A fill that reaches
// the intent's full AmountOut finalizes it: the record is removed and any
// escrow beyond the amount actually paid (an ExactOut intent may pay less
// than its ceiling) is returned. A partial fill shrinks the remaining
// amounts and keeps the remainder escrowed for future batches; the filled
// portion's escrow has already been released by the TransferIn instruction.
func (e *Engine) Resolve(resolved types.ResolvedIntent) error {
	if err := e.ready(); err != nil {
		return err
	}
	intent, ok := e.state.IntentGet(resolved.IntentID)
	if !ok {
		return ErrIntentNotFound
	}

	fullyResolved := resolved.AmountOut != nil && resolved.AmountOut.Cmp(intent.AmountOut) == 0
	if !fullyResolved && !intent.Partial {
		// The verifier enforces this; re-checked so state can never be
		// corrupted by a caller skipping validation.
		return fmt.Errorf("%w: non-partial intent %s resolved partially", ErrInvalidIntent, intent.ID)
	}

	if fullyResolved {
		leftover, err := types.CheckedSub(intent.AmountIn, resolved.AmountIn)
		if err != nil {
			return err
		}
		if leftover.Sign() > 0 {
			if err := e.ledger.Unreserve(intent.Owner, intent.AssetIn, leftover); err != nil {
				return err
			}
		}
		if err := e.state.IntentRemove(intent.ID); err != nil {
			return err
		}
		e.emit(events.IntentResolved{
			ID:        intent.ID,
			AmountIn:  resolved.AmountIn,
			AmountOut: resolved.AmountOut,
			Remaining: big.NewInt(0),
		})
		return nil
	}

	remainingIn, err := types.CheckedSub(intent.AmountIn, resolved.AmountIn)
	if err != nil {
		return err
	}
	remainingOut, err := types.CheckedSub(intent.AmountOut, resolved.AmountOut)
	if err != nil {
		return err
	}
	if remainingIn.Sign() == 0 || remainingOut.Sign() == 0 {
		return fmt.Errorf("%w: partial fill leaves empty remainder on %s", ErrInvalidIntent, intent.ID)
	}

	next := intent.Clone()
	next.AmountIn = remainingIn
	next.AmountOut = remainingOut
	next.Partial = true
	if err := e.state.IntentPut(next); err != nil {
		return err
	}
	e.emit(events.IntentResolved{
		ID:        intent.ID,
		AmountIn:  resolved.AmountIn,
		AmountOut: resolved.AmountOut,
		Remaining: remainingIn,
	})
	return nil
}

// ClearExpired removes every intent past its deadline and returns the
// escrowed funds. Returns the number of intents removed.
func (e *Engine) ClearExpired(now int64) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	var expired []*types.Intent
	_ = e.state.IntentIterate(func(intent *types.Intent) bool {
		if intent.Expired(now) {
			expired = append(expired, intent.Clone())
		}
		return true
	})
	for _, intent := range expired {
		if err := e.ledger.Unreserve(intent.Owner, intent.AssetIn, intent.AmountIn); err != nil {
			return 0, err
		}
		if err := e.state.IntentRemove(intent.ID); err != nil {
			return 0, err
		}
		e.emit(events.IntentExpired{ID: intent.ID, Owner: intent.Owner})
	}
	return len(expired), nil
}
