package venues

import (
	"errors"
	"fmt"
	"math/big"

	"intentnet/core/types"
)

// ErrMissingPrice is returned when no venue can price an asset against the
// hub asset.
var ErrMissingPrice = errors.New("venues: missing price")

// PriceProvider supplies a spot price of an asset expressed in hub-asset
// terms, as a rational numerator/denominator pair. Both the solver and the
// verifier score solutions through this interface so neither trusts the
// other's arithmetic.
type PriceProvider interface {
	HubPrice(asset types.AssetID) (num, den *big.Int, err error)
}

// SpotPriceProvider derives hub prices from venue reserves: the price of an
// asset is the ratio of hub reserve to asset reserve on the deepest venue
// quoting the pair.
type SpotPriceProvider struct {
	registry *Registry
	hubAsset types.AssetID
}

// NewSpotPriceProvider creates a provider over the registry.
func NewSpotPriceProvider(registry *Registry, hubAsset types.AssetID) *SpotPriceProvider {
	return &SpotPriceProvider{registry: registry, hubAsset: hubAsset}
}

// HubPrice implements PriceProvider.
func (p *SpotPriceProvider) HubPrice(asset types.AssetID) (*big.Int, *big.Int, error) {
	if asset == p.hubAsset {
		return big.NewInt(1), big.NewInt(1), nil
	}
	var bestHub, bestAsset *big.Int
	for _, adapter := range p.registry.ForPair(asset, p.hubAsset) {
		hubReserve, err := adapter.LiquidityDepth(asset, p.hubAsset)
		if err != nil {
			continue
		}
		assetReserve, err := adapter.LiquidityDepth(p.hubAsset, asset)
		if err != nil {
			continue
		}
		if hubReserve.Sign() == 0 || assetReserve.Sign() == 0 {
			continue
		}
		if bestAsset == nil || assetReserve.Cmp(bestAsset) > 0 {
			bestHub, bestAsset = hubReserve, assetReserve
		}
	}
	if bestHub == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingPrice, asset)
	}
	return bestHub, bestAsset, nil
}
