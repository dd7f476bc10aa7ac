package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"intentnet/core/types"
)

// Amounts travel as decimal strings so 256-bit values survive JSON numeric
// precision limits.

type submitIntentRequest struct {
	Owner     string `json:"owner"`
	AssetIn   uint32 `json:"assetIn"`
	AssetOut  uint32 `json:"assetOut"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
	SwapType  string `json:"swapType"`
	Partial   bool   `json:"partial"`
	Deadline  int64  `json:"deadline"`
}

type cancelIntentRequest struct {
	Owner string `json:"owner"`
}

type intentPayload struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	AssetIn   uint32 `json:"assetIn"`
	AssetOut  uint32 `json:"assetOut"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
	SwapType  string `json:"swapType"`
	Partial   bool   `json:"partial"`
	Deadline  int64  `json:"deadline"`
}

type resolvedIntentPayload struct {
	IntentID  string `json:"intentId"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
}

type routeHopPayload struct {
	Venue    string `json:"venue"`
	AssetIn  uint32 `json:"assetIn"`
	AssetOut uint32 `json:"assetOut"`
}

type instructionPayload struct {
	Kind      string            `json:"kind"`
	Who       string            `json:"who,omitempty"`
	Asset     uint32            `json:"asset,omitempty"`
	Amount    string            `json:"amount,omitempty"`
	AssetIn   uint32            `json:"assetIn,omitempty"`
	AssetOut  uint32            `json:"assetOut,omitempty"`
	AmountIn  string            `json:"amountIn,omitempty"`
	AmountOut string            `json:"amountOut,omitempty"`
	Route     []routeHopPayload `json:"route,omitempty"`
}

type submitSolutionRequest struct {
	Who          string                  `json:"who"`
	Resolved     []resolvedIntentPayload `json:"resolved"`
	Instructions []instructionPayload    `json:"instructions"`
	Score        uint64                  `json:"score"`
	CostEstimate uint64                  `json:"costEstimate"`
}

type auctionPayload struct {
	Block  uint64 `json:"block"`
	Winner string `json:"winner,omitempty"`
	Score  uint64 `json:"score,omitempty"`
}

type balancePayload struct {
	Owner    string `json:"owner"`
	Asset    uint32 `json:"asset"`
	Free     string `json:"free"`
	Reserved string `json:"reserved"`
}

type errorPayload struct {
	Error string `json:"error"`
}

const (
	kindTransferIn   = "transferIn"
	kindTransferOut  = "transferOut"
	kindSwapExactIn  = "swapExactIn"
	kindSwapExactOut = "swapExactOut"

	swapTypeExactIn  = "exactIn"
	swapTypeExactOut = "exactOut"
)

func parseAmount(field, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("%s: %q is not a decimal amount", field, value)
	}
	if err := types.CheckAmount(amount); err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return amount, nil
}

func parseSwapType(value string) (types.SwapType, error) {
	switch value {
	case swapTypeExactIn:
		return types.SwapTypeExactIn, nil
	case swapTypeExactOut:
		return types.SwapTypeExactOut, nil
	default:
		return 0, fmt.Errorf("swapType: unknown value %q", value)
	}
}

func formatSwapType(t types.SwapType) string {
	if t == types.SwapTypeExactOut {
		return swapTypeExactOut
	}
	return swapTypeExactIn
}

func intentToPayload(intent *types.Intent) intentPayload {
	return intentPayload{
		ID:        intent.ID.String(),
		Owner:     intent.Owner.String(),
		AssetIn:   uint32(intent.AssetIn),
		AssetOut:  uint32(intent.AssetOut),
		AmountIn:  intent.AmountIn.String(),
		AmountOut: intent.AmountOut.String(),
		SwapType:  formatSwapType(intent.SwapType),
		Partial:   intent.Partial,
		Deadline:  intent.Deadline,
	}
}

func (p submitSolutionRequest) toSolution() (types.Address, *types.Solution, error) {
	who, err := types.ParseAddress(p.Who)
	if err != nil {
		return types.Address{}, nil, fmt.Errorf("who: %w", err)
	}
	solution := &types.Solution{
		Score:        p.Score,
		CostEstimate: p.CostEstimate,
	}
	for i, r := range p.Resolved {
		id, err := types.ParseIntentID(r.IntentID)
		if err != nil {
			return types.Address{}, nil, fmt.Errorf("resolved[%d]: %w", i, err)
		}
		amountIn, err := parseAmount(fmt.Sprintf("resolved[%d].amountIn", i), r.AmountIn)
		if err != nil {
			return types.Address{}, nil, err
		}
		amountOut, err := parseAmount(fmt.Sprintf("resolved[%d].amountOut", i), r.AmountOut)
		if err != nil {
			return types.Address{}, nil, err
		}
		solution.ResolvedIntents = append(solution.ResolvedIntents, types.ResolvedIntent{
			IntentID:  id,
			AmountIn:  amountIn,
			AmountOut: amountOut,
		})
	}
	for i, instr := range p.Instructions {
		decoded, err := instr.toInstruction(i)
		if err != nil {
			return types.Address{}, nil, err
		}
		solution.Instructions = append(solution.Instructions, decoded)
	}
	return who, solution, nil
}

func (p instructionPayload) toInstruction(index int) (types.Instruction, error) {
	switch p.Kind {
	case kindTransferIn, kindTransferOut:
		who, err := types.ParseAddress(p.Who)
		if err != nil {
			return types.Instruction{}, fmt.Errorf("instructions[%d].who: %w", index, err)
		}
		amount, err := parseAmount(fmt.Sprintf("instructions[%d].amount", index), p.Amount)
		if err != nil {
			return types.Instruction{}, err
		}
		if p.Kind == kindTransferIn {
			return types.TransferIn(who, types.AssetID(p.Asset), amount), nil
		}
		return types.TransferOut(who, types.AssetID(p.Asset), amount), nil
	case kindSwapExactIn, kindSwapExactOut:
		amountIn, err := parseAmount(fmt.Sprintf("instructions[%d].amountIn", index), p.AmountIn)
		if err != nil {
			return types.Instruction{}, err
		}
		amountOut, err := parseAmount(fmt.Sprintf("instructions[%d].amountOut", index), p.AmountOut)
		if err != nil {
			return types.Instruction{}, err
		}
		route := make([]types.RouteHop, 0, len(p.Route))
		for _, hop := range p.Route {
			route = append(route, types.RouteHop{
				Venue:    hop.Venue,
				AssetIn:  types.AssetID(hop.AssetIn),
				AssetOut: types.AssetID(hop.AssetOut),
			})
		}
		if p.Kind == kindSwapExactIn {
			return types.SwapExactIn(types.AssetID(p.AssetIn), types.AssetID(p.AssetOut), amountIn, amountOut, route), nil
		}
		return types.SwapExactOut(types.AssetID(p.AssetIn), types.AssetID(p.AssetOut), amountIn, amountOut, route), nil
	default:
		return types.Instruction{}, fmt.Errorf("instructions[%d].kind: unknown value %q", index, p.Kind)
	}
}
