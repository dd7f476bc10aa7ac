package solver

import (
	"math/big"

	"intentnet/core/types"
)

type pairDirection struct {
	assetIn  types.AssetID
	assetOut types.AssetID
	swapType types.SwapType
}

func (p pairDirection) reverse() pairDirection {
	reversed := types.SwapTypeExactIn
	if p.swapType == types.SwapTypeExactIn {
		reversed = types.SwapTypeExactOut
	}
	return pairDirection{assetIn: p.assetIn, assetOut: p.assetOut, swapType: reversed}
}

// execPrice is a resolved execution ratio amountOut/amountIn kept as a
// rational.
type execPrice struct {
	num *big.Int // amount out
	den *big.Int // amount in
}

// withinTolerance reports whether |a - b| <= b * toleranceBps / 10000,
// compared by cross-multiplication.
func withinTolerance(a, b execPrice, toleranceBps int64) bool {
	// a - b as (a.num*b.den - b.num*a.den) / (a.den*b.den)
	lhs := new(big.Int).Mul(a.num, b.den)
	rhs := new(big.Int).Mul(b.num, a.den)
	diff := new(big.Int).Sub(lhs, rhs)
	if diff.Sign() < 0 {
		diff.Neg(diff)
	}
	diff.Mul(diff, big.NewInt(10_000))
	bound := new(big.Int).Mul(rhs, big.NewInt(toleranceBps))
	return diff.Cmp(bound) <= 0
}

// priceConsistency tracks one execution price per (asset pair, swap type)
// and rejects resolutions that disagree with the established price for their
// own direction or, within a wider band, with the reverse direction's price.
type priceConsistency struct {
	prices        map[pairDirection]execPrice
	sameTolBps    int64
	reverseTolBps int64
}

func newPriceConsistency(sameTolBps, reverseTolBps int64) *priceConsistency {
	return &priceConsistency{
		prices:        make(map[pairDirection]execPrice),
		sameTolBps:    sameTolBps,
		reverseTolBps: reverseTolBps,
	}
}

// admit checks the resolution's ratio against established prices. The first
// resolution for a direction sets its execution price; later ones must agree
// within the same-direction tolerance. A direction whose reverse already has
// a price must also sit within the reverse tolerance, otherwise opposing
// flows in one batch would settle at irreconcilable rates.
func (c *priceConsistency) admit(intent *types.Intent, amountIn, amountOut *big.Int) bool {
	key := pairDirection{assetIn: intent.AssetIn, assetOut: intent.AssetOut, swapType: intent.SwapType}
	price := execPrice{num: amountOut, den: amountIn}

	if established, ok := c.prices[key]; ok {
		if !withinTolerance(price, established, c.sameTolBps) {
			return false
		}
		return true
	}
	if reversed, ok := c.prices[key.reverse()]; ok {
		if !withinTolerance(price, reversed, c.reverseTolBps) {
			return false
		}
	}
	c.prices[key] = price
	return true
}
