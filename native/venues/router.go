package venues

import (
	"fmt"
	"math/big"

	"intentnet/core/types"
)

// Quote is a priced route between two assets.
type Quote struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	Route     []types.RouteHop
}

// Router prices residual intent flow across registered venues. It considers
// the direct pair and a single hop through the hub asset and returns the
// cheapest feasible route. Venues that error on a candidate leg are skipped,
// not fatal.
type Router struct {
	registry *Registry
	hubAsset types.AssetID
}

// NewRouter creates a router over the registry with the given hub asset.
func NewRouter(registry *Registry, hubAsset types.AssetID) *Router {
	return &Router{registry: registry, hubAsset: hubAsset}
}

func (r *Router) bestDirectOut(assetIn, assetOut types.AssetID, amountIn *big.Int) (*big.Int, string) {
	var bestOut *big.Int
	var bestVenue string
	for _, adapter := range r.registry.ForPair(assetIn, assetOut) {
		out, err := adapter.OutGivenIn(assetIn, assetOut, amountIn)
		if err != nil {
			continue
		}
		if bestOut == nil || out.Cmp(bestOut) > 0 {
			bestOut = out
			bestVenue = adapter.ID()
		}
	}
	return bestOut, bestVenue
}

func (r *Router) bestDirectIn(assetIn, assetOut types.AssetID, amountOut *big.Int) (*big.Int, string) {
	var bestIn *big.Int
	var bestVenue string
	for _, adapter := range r.registry.ForPair(assetIn, assetOut) {
		in, err := adapter.InGivenOut(assetIn, assetOut, amountOut)
		if err != nil {
			continue
		}
		if bestIn == nil || in.Cmp(bestIn) < 0 {
			bestIn = in
			bestVenue = adapter.ID()
		}
	}
	return bestIn, bestVenue
}

// QuoteOutGivenIn prices selling amountIn of assetIn for assetOut.
func (r *Router) QuoteOutGivenIn(assetIn, assetOut types.AssetID, amountIn *big.Int) (*Quote, error) {
	if err := types.CheckAmount(amountIn); err != nil {
		return nil, err
	}

	bestOut, bestVenue := r.bestDirectOut(assetIn, assetOut, amountIn)
	best := (*Quote)(nil)
	if bestOut != nil {
		best = &Quote{
			AmountIn:  new(big.Int).Set(amountIn),
			AmountOut: bestOut,
			Route:     []types.RouteHop{{Venue: bestVenue, AssetIn: assetIn, AssetOut: assetOut}},
		}
	}

	if assetIn != r.hubAsset && assetOut != r.hubAsset {
		hubOut, firstVenue := r.bestDirectOut(assetIn, r.hubAsset, amountIn)
		if hubOut != nil && hubOut.Sign() > 0 {
			finalOut, secondVenue := r.bestDirectOut(r.hubAsset, assetOut, hubOut)
			if finalOut != nil && (best == nil || finalOut.Cmp(best.AmountOut) > 0) {
				best = &Quote{
					AmountIn:  new(big.Int).Set(amountIn),
					AmountOut: finalOut,
					Route: []types.RouteHop{
						{Venue: firstVenue, AssetIn: assetIn, AssetOut: r.hubAsset},
						{Venue: secondVenue, AssetIn: r.hubAsset, AssetOut: assetOut},
					},
				}
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no route %s -> %s", ErrPairNotSupported, assetIn, assetOut)
	}
	return best, nil
}

// QuoteInGivenOut prices buying amountOut of assetOut with assetIn.
func (r *Router) QuoteInGivenOut(assetIn, assetOut types.AssetID, amountOut *big.Int) (*Quote, error) {
	if err := types.CheckAmount(amountOut); err != nil {
		return nil, err
	}

	bestIn, bestVenue := r.bestDirectIn(assetIn, assetOut, amountOut)
	best := (*Quote)(nil)
	if bestIn != nil {
		best = &Quote{
			AmountIn:  bestIn,
			AmountOut: new(big.Int).Set(amountOut),
			Route:     []types.RouteHop{{Venue: bestVenue, AssetIn: assetIn, AssetOut: assetOut}},
		}
	}

	if assetIn != r.hubAsset && assetOut != r.hubAsset {
		hubIn, secondVenue := r.bestDirectIn(r.hubAsset, assetOut, amountOut)
		if hubIn != nil && hubIn.Sign() > 0 {
			firstIn, firstVenue := r.bestDirectIn(assetIn, r.hubAsset, hubIn)
			if firstIn != nil && (best == nil || firstIn.Cmp(best.AmountIn) < 0) {
				best = &Quote{
					AmountIn:  firstIn,
					AmountOut: new(big.Int).Set(amountOut),
					Route: []types.RouteHop{
						{Venue: firstVenue, AssetIn: assetIn, AssetOut: r.hubAsset},
						{Venue: secondVenue, AssetIn: r.hubAsset, AssetOut: assetOut},
					},
				}
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no route %s -> %s", ErrPairNotSupported, assetIn, assetOut)
	}
	return best, nil
}
