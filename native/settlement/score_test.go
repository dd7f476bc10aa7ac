package settlement

import (
	"fmt"
	"math/big"
	"testing"

	"intentnet/core/types"
)

// fixedPrices is a map-backed price provider for tests.
type fixedPrices map[types.AssetID][2]int64

func (p fixedPrices) HubPrice(asset types.AssetID) (*big.Int, *big.Int, error) {
	pair, ok := p[asset]
	if !ok {
		return nil, nil, fmt.Errorf("no price for %s", asset)
	}
	return big.NewInt(pair[0]), big.NewInt(pair[1]), nil
}

func TestMatchAmountsTakesPerAssetMinimum(t *testing.T) {
	in := map[types.AssetID]*big.Int{
		1: big.NewInt(100),
		2: big.NewInt(50),
	}
	out := map[types.AssetID]*big.Int{
		1: big.NewInt(70),
		3: big.NewInt(10),
	}
	matched := MatchAmounts(in, out)
	if len(matched) != 1 {
		t.Fatalf("matched = %+v, want one entry", matched)
	}
	if matched[0].Asset != 1 || matched[0].Amount.Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("matched = %+v, want asset 1 amount 70", matched[0])
	}
}

func TestScoreCombinesBonusAndMatchedValue(t *testing.T) {
	prices := fixedPrices{
		1: {1, 1},
		2: {2, 1},
	}
	matched := []MatchedAmount{
		{Asset: 1, Amount: big.NewInt(4_000_000)},
		{Asset: 2, Amount: big.NewInt(2_000_000)},
	}
	score, err := Score(2, matched, prices)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	// 2 intents * 1e12 bonus + 4e6 + 2e6*2, scaled down by 1e6.
	if score != 2_000_008 {
		t.Fatalf("score = %d, want 2000008", score)
	}
}

func TestScoreFailsOnUnpricedAsset(t *testing.T) {
	matched := []MatchedAmount{{Asset: 9, Amount: big.NewInt(1)}}
	if _, err := Score(1, matched, fixedPrices{}); err == nil {
		t.Fatal("score succeeded without a price")
	}
}

func TestEstimateCostWeighsKindsAndHops(t *testing.T) {
	who := types.BytesToAddress([]byte{0x01})
	instructions := []types.Instruction{
		types.TransferIn(who, 1, big.NewInt(1)),
		types.TransferOut(who, 2, big.NewInt(1)),
		types.SwapExactIn(1, 2, big.NewInt(1), big.NewInt(1), []types.RouteHop{
			{Venue: "a", AssetIn: 1, AssetOut: 0},
			{Venue: "b", AssetIn: 0, AssetOut: 2},
		}),
	}
	if got := EstimateCost(instructions); got != 12 {
		t.Fatalf("cost = %d, want 12", got)
	}
}
