package types

import "math/big"

// InstructionKind discriminates the closed set of settlement instructions.
// Both the verifier and the executor switch exhaustively on this kind, so a
// new variant forces both call sites to be updated.
type InstructionKind uint8

const (
	InstructionTransferIn InstructionKind = iota
	InstructionTransferOut
	InstructionSwapExactIn
	InstructionSwapExactOut
)

func (k InstructionKind) String() string {
	switch k {
	case InstructionTransferIn:
		return "transferIn"
	case InstructionTransferOut:
		return "transferOut"
	case InstructionSwapExactIn:
		return "swapExactIn"
	case InstructionSwapExactOut:
		return "swapExactOut"
	default:
		return "unknown"
	}
}

// RouteHop is one venue leg of a swap route.
type RouteHop struct {
	Venue    string
	AssetIn  AssetID
	AssetOut AssetID
}

// Instruction is one step of a settlement batch. Exactly one group of fields
// is populated depending on Kind: Who/Asset/Amount for transfers,
// AssetIn/AssetOut/AmountIn/AmountOut/Route for swaps. A swap instruction
// uses the opposite side's amount as a tight slippage limit at execution.
type Instruction struct {
	Kind InstructionKind

	// Transfer fields.
	Who    Address
	Asset  AssetID
	Amount *big.Int

	// Swap fields.
	AssetIn   AssetID
	AssetOut  AssetID
	AmountIn  *big.Int
	AmountOut *big.Int
	Route     []RouteHop
}

// TransferIn releases escrow from who and moves it to the holding account.
func TransferIn(who Address, asset AssetID, amount *big.Int) Instruction {
	return Instruction{Kind: InstructionTransferIn, Who: who, Asset: asset, Amount: amount}
}

// TransferOut pays out of the holding account to who.
func TransferOut(who Address, asset AssetID, amount *big.Int) Instruction {
	return Instruction{Kind: InstructionTransferOut, Who: who, Asset: asset, Amount: amount}
}

// SwapExactIn sells amountIn of assetIn for at least amountOut of assetOut.
func SwapExactIn(assetIn, assetOut AssetID, amountIn, amountOut *big.Int, route []RouteHop) Instruction {
	return Instruction{
		Kind:     InstructionSwapExactIn,
		AssetIn:  assetIn,
		AssetOut: assetOut,
		AmountIn: amountIn, AmountOut: amountOut,
		Route: route,
	}
}

// SwapExactOut buys amountOut of assetOut for at most amountIn of assetIn.
func SwapExactOut(assetIn, assetOut AssetID, amountIn, amountOut *big.Int, route []RouteHop) Instruction {
	return Instruction{
		Kind:     InstructionSwapExactOut,
		AssetIn:  assetIn,
		AssetOut: assetOut,
		AmountIn: amountIn, AmountOut: amountOut,
		Route: route,
	}
}

// Clone returns a deep copy of the instruction.
func (in Instruction) Clone() Instruction {
	clone := in
	if in.Amount != nil {
		clone.Amount = new(big.Int).Set(in.Amount)
	}
	if in.AmountIn != nil {
		clone.AmountIn = new(big.Int).Set(in.AmountIn)
	}
	if in.AmountOut != nil {
		clone.AmountOut = new(big.Int).Set(in.AmountOut)
	}
	if in.Route != nil {
		clone.Route = append([]RouteHop(nil), in.Route...)
	}
	return clone
}
