package settlement

import (
	"fmt"
	"math/big"

	"intentnet/core/types"
	"intentnet/native/venues"
)

// IntentSource is the read-only view of the intent inventory the verifier
// resolves claims against.
type IntentSource interface {
	Get(id types.IntentID) (*types.Intent, bool)
}

// Verifier independently re-checks every claim in a submitted solution. It
// never trusts the solver's arithmetic: limits, transfer sums and the score
// are all re-derived from the stored intents and the price provider.
// Validation mutates nothing and is safe to run repeatedly and concurrently.
type Verifier struct {
	intents IntentSource
	prices  venues.PriceProvider
}

// NewVerifier creates a verifier over the given intent inventory and price
// source.
func NewVerifier(intents IntentSource, prices venues.PriceProvider) *Verifier {
	return &Verifier{intents: intents, prices: prices}
}

type accountAssetKey struct {
	owner types.Address
	asset types.AssetID
}

// ratioTolerance bounds how much better than the requested ratio a genuine
// partial fill may be: realized - expected must not exceed 1/1000.
var ratioToleranceDen = big.NewInt(1000)

// checkResolutionRatio enforces the limit-respect rule. Exact matches on
// either side require exact equality on the other; a genuine partial fill
// must realize at least the requested ratio and at most 0.1% above it, which
// keeps partial fills aligned with the order's intended proportion.
func checkResolutionRatio(intent *types.Intent, resolved types.ResolvedIntent) error {
	amountIn := intent.AmountIn
	amountOut := intent.AmountOut
	resolvedIn := resolved.AmountIn
	resolvedOut := resolved.AmountOut

	if err := types.CheckAmount(resolvedIn); err != nil {
		return fmt.Errorf("%w: intent %s: %v", ErrIncorrectIntentAmountResolution, intent.ID, err)
	}
	if err := types.CheckAmount(resolvedOut); err != nil {
		return fmt.Errorf("%w: intent %s: %v", ErrIncorrectIntentAmountResolution, intent.ID, err)
	}

	if resolvedIn.Cmp(amountIn) == 0 {
		if resolvedOut.Cmp(amountOut) != 0 {
			return fmt.Errorf("%w: intent %s: full amount in requires exact amount out", ErrIncorrectIntentAmountResolution, intent.ID)
		}
		return nil
	}
	if resolvedOut.Cmp(amountOut) == 0 {
		if resolvedIn.Cmp(amountIn) != 0 {
			return fmt.Errorf("%w: intent %s: full amount out requires exact amount in", ErrIncorrectIntentAmountResolution, intent.ID)
		}
		return nil
	}

	if resolvedIn.Sign() == 0 {
		return fmt.Errorf("%w: intent %s: zero resolved amount in", ErrIncorrectIntentAmountResolution, intent.ID)
	}

	// realized = resolvedOut/resolvedIn, expected = amountOut/amountIn.
	// Compared by cross-multiplication to stay in integer arithmetic.
	realized := new(big.Int).Mul(resolvedOut, amountIn)
	expected := new(big.Int).Mul(amountOut, resolvedIn)
	if realized.Cmp(expected) < 0 {
		return fmt.Errorf("%w: intent %s: realized ratio below requested", ErrIncorrectIntentAmountResolution, intent.ID)
	}
	// realized - expected <= 1/1000, scaled by resolvedIn*amountIn.
	diff := new(big.Int).Sub(realized, expected)
	diff.Mul(diff, ratioToleranceDen)
	bound := new(big.Int).Mul(resolvedIn, amountIn)
	if diff.Cmp(bound) > 0 {
		return fmt.Errorf("%w: intent %s: realized ratio too far above requested", ErrIncorrectIntentAmountResolution, intent.ID)
	}
	return nil
}

// checkFillPolicy enforces the swap-type and partial-fill constraints on the
// resolved size.
func checkFillPolicy(intent *types.Intent, resolved types.ResolvedIntent) error {
	switch intent.SwapType {
	case types.SwapTypeExactIn:
		if intent.Partial {
			if resolved.AmountIn.Cmp(intent.AmountIn) > 0 {
				return fmt.Errorf("%w: intent %s: partial fill exceeds amount in", ErrIncorrectIntentAmountResolution, intent.ID)
			}
		} else {
			if resolved.AmountIn.Cmp(intent.AmountIn) != 0 {
				return fmt.Errorf("%w: intent %s: exact-in intent must resolve full amount in", ErrIncorrectIntentAmountResolution, intent.ID)
			}
			if resolved.AmountOut.Cmp(intent.AmountOut) < 0 {
				return fmt.Errorf("%w: intent %s: proceeds below limit", ErrIncorrectIntentAmountResolution, intent.ID)
			}
		}
	case types.SwapTypeExactOut:
		if intent.Partial {
			if resolved.AmountOut.Cmp(intent.AmountOut) > 0 {
				return fmt.Errorf("%w: intent %s: partial fill exceeds amount out", ErrIncorrectIntentAmountResolution, intent.ID)
			}
		} else {
			if resolved.AmountOut.Cmp(intent.AmountOut) != 0 {
				return fmt.Errorf("%w: intent %s: exact-out intent must resolve full amount out", ErrIncorrectIntentAmountResolution, intent.ID)
			}
		}
		// Never pay more than the stated ceiling, partial or not.
		if resolved.AmountIn.Cmp(intent.AmountIn) > 0 {
			return fmt.Errorf("%w: intent %s: payment exceeds ceiling", ErrIncorrectIntentAmountResolution, intent.ID)
		}
	default:
		return fmt.Errorf("%w: intent %s: unknown swap type %d", ErrIncorrectIntentAmountResolution, intent.ID, intent.SwapType)
	}
	return nil
}

// Validate re-derives every claim in the solution: resolution validity per
// intent, transfer-instruction conservation per (owner, asset), and the
// score. Swap instructions are accepted structurally here; their numeric
// correctness is enforced by the venue at execution time and by the
// conservation check across the batch.
func (v *Verifier) Validate(solution *types.Solution) error {
	accIn := make(map[accountAssetKey]*big.Int)
	accOut := make(map[accountAssetKey]*big.Int)
	assetIn := make(map[types.AssetID]*big.Int)
	assetOut := make(map[types.AssetID]*big.Int)

	accumulate := func(m map[accountAssetKey]*big.Int, key accountAssetKey, amount *big.Int) {
		if existing, ok := m[key]; ok {
			existing.Add(existing, amount)
			return
		}
		m[key] = new(big.Int).Set(amount)
	}
	accumulateAsset := func(m map[types.AssetID]*big.Int, asset types.AssetID, amount *big.Int) {
		if existing, ok := m[asset]; ok {
			existing.Add(existing, amount)
			return
		}
		m[asset] = new(big.Int).Set(amount)
	}

	for _, resolved := range solution.ResolvedIntents {
		intent, ok := v.intents.Get(resolved.IntentID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrIntentNotFound, resolved.IntentID)
		}
		if err := checkResolutionRatio(intent, resolved); err != nil {
			return err
		}
		if err := checkFillPolicy(intent, resolved); err != nil {
			return err
		}

		accumulate(accIn, accountAssetKey{intent.Owner, intent.AssetIn}, resolved.AmountIn)
		accumulate(accOut, accountAssetKey{intent.Owner, intent.AssetOut}, resolved.AmountOut)
		accumulateAsset(assetIn, intent.AssetIn, resolved.AmountIn)
		accumulateAsset(assetOut, intent.AssetOut, resolved.AmountOut)
	}

	seenIn := make(map[accountAssetKey]struct{})
	seenOut := make(map[accountAssetKey]struct{})
	for _, instruction := range solution.Instructions {
		switch instruction.Kind {
		case types.InstructionTransferIn:
			key := accountAssetKey{instruction.Who, instruction.Asset}
			if _, dup := seenIn[key]; dup {
				return fmt.Errorf("%w: duplicate transfer in %s/%s", ErrIncorrectTransferInstruction, instruction.Who, instruction.Asset)
			}
			seenIn[key] = struct{}{}
			claimed := accIn[key]
			if claimed == nil || instruction.Amount == nil || claimed.Cmp(instruction.Amount) != 0 {
				return fmt.Errorf("%w: transfer in %s/%s", ErrIncorrectTransferInstruction, instruction.Who, instruction.Asset)
			}
		case types.InstructionTransferOut:
			key := accountAssetKey{instruction.Who, instruction.Asset}
			if _, dup := seenOut[key]; dup {
				return fmt.Errorf("%w: duplicate transfer out %s/%s", ErrIncorrectTransferInstruction, instruction.Who, instruction.Asset)
			}
			seenOut[key] = struct{}{}
			claimed := accOut[key]
			if claimed == nil || instruction.Amount == nil || claimed.Cmp(instruction.Amount) != 0 {
				return fmt.Errorf("%w: transfer out %s/%s", ErrIncorrectTransferInstruction, instruction.Who, instruction.Asset)
			}
		case types.InstructionSwapExactIn, types.InstructionSwapExactOut:
			// Structurally accepted; the venue enforces amounts at execution.
		default:
			return fmt.Errorf("%w: %d", ErrUnknownInstruction, instruction.Kind)
		}
	}
	// Every resolved amount must actually be transferred: missing
	// instructions are as invalid as mismatched ones.
	for key := range accIn {
		if _, ok := seenIn[key]; !ok {
			return fmt.Errorf("%w: missing transfer in %s/%s", ErrIncorrectTransferInstruction, key.owner, key.asset)
		}
	}
	for key := range accOut {
		if _, ok := seenOut[key]; !ok {
			return fmt.Errorf("%w: missing transfer out %s/%s", ErrIncorrectTransferInstruction, key.owner, key.asset)
		}
	}

	matched := MatchAmounts(assetIn, assetOut)
	derived, err := Score(len(solution.ResolvedIntents), matched, v.prices)
	if err != nil {
		return err
	}
	if derived != solution.Score {
		return fmt.Errorf("%w: submitted %d, derived %d", ErrScoreMismatch, solution.Score, derived)
	}
	return nil
}

// Cost returns the deterministic weight estimate for the solution's
// instruction list.
func (v *Verifier) Cost(solution *types.Solution) uint64 {
	return EstimateCost(solution.Instructions)
}
