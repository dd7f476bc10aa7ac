package auction

import (
	"errors"
	"fmt"
	"sync"

	"intentnet/core/events"
	"intentnet/core/types"
)

var (
	// ErrStaleBlock is returned when a submission targets a block other than
	// the current one.
	ErrStaleBlock = errors.New("auction: stale block")
	// ErrEmptySolution is returned when a submission resolves no intents.
	ErrEmptySolution = errors.New("auction: empty solution")
	// ErrScoreNotImproved is returned when a submission does not strictly
	// beat the slot's current score. Ties never win.
	ErrScoreNotImproved = errors.New("auction: score not improved")
)

// Winner is the submission currently holding the slot.
type Winner struct {
	Who   types.Address
	Score uint64
}

// Slot is the per-block single-winner register: a compare-and-set cell with
// a strictly-greater comparator, reset at every block boundary. It is the
// sole synchronization point between otherwise-independent solver processes.
type Slot struct {
	mu      sync.Mutex
	block   uint64
	winner  *Winner
	emitter events.Emitter
}

// NewSlot creates a slot register starting at the given block.
func NewSlot(block uint64) *Slot {
	return &Slot{block: block, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (s *Slot) SetEmitter(emitter events.Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// Block returns the block the slot currently accepts submissions for.
func (s *Slot) Block() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.block
}

// Winner returns the current slot holder, if any.
func (s *Slot) Winner() (Winner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.winner == nil {
		return Winner{}, false
	}
	return *s.winner, true
}

// Submit offers a scored solution for the given block. The submission is
// rejected unless it targets the current block, resolves at least one intent
// and strictly beats the held score. On acceptance the slot is overwritten
// with (who, score).
func (s *Slot) Submit(who types.Address, resolvedCount int, score uint64, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if block != s.block {
		return fmt.Errorf("%w: submitted for %d, current %d", ErrStaleBlock, block, s.block)
	}
	if resolvedCount == 0 {
		return ErrEmptySolution
	}
	if s.winner != nil && score <= s.winner.Score {
		return fmt.Errorf("%w: %d does not beat %d", ErrScoreNotImproved, score, s.winner.Score)
	}

	s.winner = &Winner{Who: who, Score: score}
	s.emitter.Emit(events.AuctionAccepted{Who: who, Score: score, Block: block})
	return nil
}

// Finalize clears the slot unconditionally, whether or not it was written
// this block, and advances to the next block.
func (s *Slot) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winner = nil
	s.block++
}
