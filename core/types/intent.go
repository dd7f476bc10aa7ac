package types

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// SwapType selects which side of an intent is fixed.
type SwapType uint8

const (
	// SwapTypeExactIn fixes the amount sold; AmountOut is the minimum acceptable proceeds.
	SwapTypeExactIn SwapType = iota
	// SwapTypeExactOut fixes the amount bought; AmountIn is the maximum acceptable payment.
	SwapTypeExactOut
)

func (s SwapType) String() string {
	switch s {
	case SwapTypeExactIn:
		return "exactIn"
	case SwapTypeExactOut:
		return "exactOut"
	default:
		return fmt.Sprintf("swapType(%d)", uint8(s))
	}
}

// IntentID identifies an intent. The deadline occupies the high bits so that
// identifiers iterate in deadline order when used as storage keys.
type IntentID struct {
	Deadline int64
	Sequence uint64
}

// NewIntentID packs a deadline and an incremental sequence number.
func NewIntentID(deadline int64, sequence uint64) IntentID {
	return IntentID{Deadline: deadline, Sequence: sequence}
}

// Bytes returns the 16-byte big-endian storage encoding.
func (id IntentID) Bytes() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], uint64(id.Deadline))
	binary.BigEndian.PutUint64(buf[8:], id.Sequence)
	return buf
}

// IntentIDFromBytes decodes the 16-byte encoding produced by Bytes.
func IntentIDFromBytes(b []byte) (IntentID, error) {
	if len(b) != 16 {
		return IntentID{}, fmt.Errorf("intent id: expected 16 bytes, got %d", len(b))
	}
	return IntentID{
		Deadline: int64(binary.BigEndian.Uint64(b[:8])),
		Sequence: binary.BigEndian.Uint64(b[8:]),
	}, nil
}

func (id IntentID) String() string {
	return fmt.Sprintf("%d-%d", id.Deadline, id.Sequence)
}

// ParseIntentID decodes the "deadline-sequence" form produced by String.
func ParseIntentID(s string) (IntentID, error) {
	var id IntentID
	if _, err := fmt.Sscanf(s, "%d-%d", &id.Deadline, &id.Sequence); err != nil {
		return IntentID{}, fmt.Errorf("parse intent id %q: %w", s, err)
	}
	return id, nil
}

// Intent is a user's escrow-backed request to swap AssetIn for AssetOut.
// AmountIn and AmountOut carry both the requested size and the limit price
// boundary: for ExactIn, AmountOut is the minimum acceptable proceeds; for
// ExactOut, AmountIn is the ceiling on what the owner will pay.
type Intent struct {
	ID        IntentID
	Owner     Address
	AssetIn   AssetID
	AssetOut  AssetID
	AmountIn  *big.Int
	AmountOut *big.Int
	SwapType  SwapType
	Partial   bool
	Deadline  int64
}

// Clone returns a deep copy of the intent.
func (i *Intent) Clone() *Intent {
	if i == nil {
		return nil
	}
	clone := *i
	if i.AmountIn != nil {
		clone.AmountIn = new(big.Int).Set(i.AmountIn)
	}
	if i.AmountOut != nil {
		clone.AmountOut = new(big.Int).Set(i.AmountOut)
	}
	return &clone
}

// Expired reports whether the intent's deadline has passed at the supplied
// unix timestamp.
func (i *Intent) Expired(now int64) bool {
	return i.Deadline <= now
}

// ResolvedIntent is a solver's claim of how much of an intent was filled.
// It only exists inside a Solution.
type ResolvedIntent struct {
	IntentID  IntentID
	AmountIn  *big.Int
	AmountOut *big.Int
}

// Clone returns a deep copy of the resolved intent.
func (r ResolvedIntent) Clone() ResolvedIntent {
	clone := r
	if r.AmountIn != nil {
		clone.AmountIn = new(big.Int).Set(r.AmountIn)
	}
	if r.AmountOut != nil {
		clone.AmountOut = new(big.Int).Set(r.AmountOut)
	}
	return clone
}
