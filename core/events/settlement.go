package events

import (
	"strconv"

	"intentnet/core/types"
)

const (
	TypeAuctionAccepted   = "auction.accepted"
	TypeSolutionExecuted  = "settlement.executed"
	TypeSolutionDiscarded = "settlement.discarded"
)

// AuctionAccepted is emitted when a submission takes over the block's
// solution slot.
type AuctionAccepted struct {
	Who   types.Address
	Score uint64
	Block uint64
}

func (AuctionAccepted) EventType() string { return TypeAuctionAccepted }

func (e AuctionAccepted) Attributes() map[string]string {
	return map[string]string{
		"who":   e.Who.String(),
		"score": strconv.FormatUint(e.Score, 10),
		"block": strconv.FormatUint(e.Block, 10),
	}
}

// SolutionExecuted is emitted after the winning solution's instruction batch
// commits.
type SolutionExecuted struct {
	Who       types.Address
	Block     uint64
	Score     uint64
	Intents   int
	Transfers int
	Swaps     int
}

func (SolutionExecuted) EventType() string { return TypeSolutionExecuted }

func (e SolutionExecuted) Attributes() map[string]string {
	return map[string]string{
		"who":       e.Who.String(),
		"block":     strconv.FormatUint(e.Block, 10),
		"score":     strconv.FormatUint(e.Score, 10),
		"intents":   strconv.Itoa(e.Intents),
		"transfers": strconv.Itoa(e.Transfers),
		"swaps":     strconv.Itoa(e.Swaps),
	}
}

// SolutionDiscarded is emitted when a winning candidate fails execution and
// its state changes are rolled back.
type SolutionDiscarded struct {
	Who    types.Address
	Block  uint64
	Reason string
}

func (SolutionDiscarded) EventType() string { return TypeSolutionDiscarded }

func (e SolutionDiscarded) Attributes() map[string]string {
	return map[string]string{
		"who":    e.Who.String(),
		"block":  strconv.FormatUint(e.Block, 10),
		"reason": e.Reason,
	}
}
