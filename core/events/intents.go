package events

import (
	"math/big"
	"strconv"

	"intentnet/core/types"
)

const (
	TypeIntentCreated   = "intents.created"
	TypeIntentCancelled = "intents.cancelled"
	TypeIntentExpired   = "intents.expired"
	TypeIntentResolved  = "intents.resolved"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// IntentCreated is emitted when a new intent is accepted and its funds
// escrowed.
type IntentCreated struct {
	ID       types.IntentID
	Owner    types.Address
	AssetIn  types.AssetID
	AssetOut types.AssetID
	AmountIn *big.Int
	Deadline int64
}

func (IntentCreated) EventType() string { return TypeIntentCreated }

func (e IntentCreated) Attributes() map[string]string {
	return map[string]string{
		"id":       e.ID.String(),
		"owner":    e.Owner.String(),
		"assetIn":  e.AssetIn.String(),
		"assetOut": e.AssetOut.String(),
		"amountIn": formatAmount(e.AmountIn),
		"deadline": strconv.FormatInt(e.Deadline, 10),
	}
}

// IntentCancelled is emitted when the owner withdraws an open intent.
type IntentCancelled struct {
	ID    types.IntentID
	Owner types.Address
}

func (IntentCancelled) EventType() string { return TypeIntentCancelled }

func (e IntentCancelled) Attributes() map[string]string {
	return map[string]string{
		"id":    e.ID.String(),
		"owner": e.Owner.String(),
	}
}

// IntentExpired is emitted when deadline cleanup releases an intent's escrow.
type IntentExpired struct {
	ID    types.IntentID
	Owner types.Address
}

func (IntentExpired) EventType() string { return TypeIntentExpired }

func (e IntentExpired) Attributes() map[string]string {
	return map[string]string{
		"id":    e.ID.String(),
		"owner": e.Owner.String(),
	}
}

// IntentResolved is emitted after settlement reduces or removes an intent.
type IntentResolved struct {
	ID        types.IntentID
	AmountIn  *big.Int
	AmountOut *big.Int
	Remaining *big.Int
}

func (IntentResolved) EventType() string { return TypeIntentResolved }

func (e IntentResolved) Attributes() map[string]string {
	return map[string]string{
		"id":        e.ID.String(),
		"amountIn":  formatAmount(e.AmountIn),
		"amountOut": formatAmount(e.AmountOut),
		"remaining": formatAmount(e.Remaining),
	}
}
