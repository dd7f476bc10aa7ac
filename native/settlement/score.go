package settlement

import (
	"fmt"
	"math/big"
	"sort"

	"intentnet/core/types"
	"intentnet/native/venues"
)

// Scoring constants. Every resolved intent contributes one unit of hub asset
// to the score; matched amounts are converted to hub terms and the total is
// scaled down to absorb rounding noise.
const (
	scoreIntentBonus = 1_000_000_000_000
	scoreScaleDown   = 1_000_000
)

// Cost weights per instruction kind. The estimate is a deterministic, pure
// function of the instruction list used for relative weighing of batches.
const (
	costTransfer = 1
	costSwapHop  = 5
)

// MatchedAmount is the overlap of buy and sell flow for one asset within a
// batch.
type MatchedAmount struct {
	Asset  types.AssetID
	Amount *big.Int
}

// MatchAmounts computes, per asset, the minimum of total resolved inflow and
// total resolved outflow. Only this matched overlap counts toward the score:
// it measures value actually settled between intents.
func MatchAmounts(amountsIn, amountsOut map[types.AssetID]*big.Int) []MatchedAmount {
	assets := make([]types.AssetID, 0, len(amountsIn))
	for asset := range amountsIn {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })

	matched := make([]MatchedAmount, 0, len(assets))
	for _, asset := range assets {
		in := amountsIn[asset]
		out, ok := amountsOut[asset]
		if !ok {
			continue
		}
		amount := in
		if out.Cmp(in) < 0 {
			amount = out
		}
		if amount.Sign() > 0 {
			matched = append(matched, MatchedAmount{Asset: asset, Amount: new(big.Int).Set(amount)})
		}
	}
	return matched
}

// Score derives the solution score from the number of resolved intents and
// the matched amounts, converting each matched amount into hub-asset terms.
// The result is monotonically comparable across solutions for one block.
func Score(resolvedCount int, matched []MatchedAmount, prices venues.PriceProvider) (uint64, error) {
	hubAmount := new(big.Int).Mul(big.NewInt(int64(resolvedCount)), big.NewInt(scoreIntentBonus))

	for _, m := range matched {
		num, den, err := prices.HubPrice(m.Asset)
		if err != nil {
			return 0, err
		}
		converted, err := types.MulDiv(m.Amount, num, den)
		if err != nil {
			return 0, err
		}
		hubAmount.Add(hubAmount, converted)
	}

	hubAmount.Quo(hubAmount, big.NewInt(scoreScaleDown))
	if !hubAmount.IsUint64() {
		return 0, fmt.Errorf("score: %w", types.ErrArithmeticOverflow)
	}
	return hubAmount.Uint64(), nil
}

// EstimateCost weighs an instruction list by kind and route length.
func EstimateCost(instructions []types.Instruction) uint64 {
	var cost uint64
	for _, in := range instructions {
		switch in.Kind {
		case types.InstructionTransferIn, types.InstructionTransferOut:
			cost += costTransfer
		case types.InstructionSwapExactIn, types.InstructionSwapExactOut:
			hops := len(in.Route)
			if hops == 0 {
				hops = 1
			}
			cost += costSwapHop * uint64(hops)
		}
	}
	return cost
}
