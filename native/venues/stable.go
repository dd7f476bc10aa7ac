package venues

import (
	"fmt"
	"math/big"

	"intentnet/core/types"
)

// StableVenue quotes like-kind assets near parity with a flat spread, the
// shape of a heavily-amplified stable pool around its balance point. Quotes
// degrade to an error rather than a curve once a trade would consume more
// than half of the outgoing reserve.
type StableVenue struct {
	id        string
	account   types.Address
	assets    map[types.AssetID]struct{}
	spreadBps uint64
	ledger    Ledger
}

// NewStableVenue creates a stable venue over the given basket of assets.
func NewStableVenue(id string, account types.Address, assets []types.AssetID, spreadBps uint64, ledger Ledger) *StableVenue {
	set := make(map[types.AssetID]struct{}, len(assets))
	for _, a := range assets {
		set[a] = struct{}{}
	}
	return &StableVenue{id: id, account: account, assets: set, spreadBps: spreadBps, ledger: ledger}
}

func (p *StableVenue) ID() string { return p.id }

// Account returns the pool's ledger address.
func (p *StableVenue) Account() types.Address { return p.account }

func (p *StableVenue) SupportsPair(a, b types.AssetID) bool {
	if a == b {
		return false
	}
	_, okA := p.assets[a]
	_, okB := p.assets[b]
	return okA && okB
}

func (p *StableVenue) WithLedger(ledger Ledger) Adapter {
	clone := *p
	clone.ledger = ledger
	return &clone
}

func (p *StableVenue) checkPair(a, b types.AssetID) error {
	if !p.SupportsPair(a, b) {
		return fmt.Errorf("%w: %s: %s/%s", ErrPairNotSupported, p.id, a, b)
	}
	return nil
}

func (p *StableVenue) checkDepth(assetOut types.AssetID, amountOut *big.Int) error {
	reserve := p.ledger.BalanceOf(p.account, assetOut)
	half := new(big.Int).Rsh(reserve, 1)
	if amountOut.Cmp(half) > 0 {
		return fmt.Errorf("%w: %s can release at most %s of %s", ErrInsufficientLiquidity, p.id, half, assetOut)
	}
	return nil
}

func (p *StableVenue) OutGivenIn(assetIn, assetOut types.AssetID, amountIn *big.Int) (*big.Int, error) {
	if err := p.checkPair(assetIn, assetOut); err != nil {
		return nil, err
	}
	out, err := types.MulDiv(amountIn, new(big.Int).SetUint64(10_000-p.spreadBps), bpsDenominator)
	if err != nil {
		return nil, err
	}
	if err := p.checkDepth(assetOut, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *StableVenue) InGivenOut(assetIn, assetOut types.AssetID, amountOut *big.Int) (*big.Int, error) {
	if err := p.checkPair(assetIn, assetOut); err != nil {
		return nil, err
	}
	if err := p.checkDepth(assetOut, amountOut); err != nil {
		return nil, err
	}
	in, err := types.MulDiv(amountOut, bpsDenominator, new(big.Int).SetUint64(10_000-p.spreadBps))
	if err != nil {
		return nil, err
	}
	return types.CheckedAdd(in, big.NewInt(1))
}

func (p *StableVenue) LiquidityDepth(a, b types.AssetID) (*big.Int, error) {
	if err := p.checkPair(a, b); err != nil {
		return nil, err
	}
	return p.ledger.BalanceOf(p.account, b), nil
}

func (p *StableVenue) ExecuteSell(identity types.Address, assetIn, assetOut types.AssetID, amountIn, minAmountOut *big.Int) (*big.Int, error) {
	out, err := p.OutGivenIn(assetIn, assetOut, amountIn)
	if err != nil {
		return nil, err
	}
	if minAmountOut != nil && out.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("%w: %s sell yields %s, limit %s", ErrLimitExceeded, p.id, out, minAmountOut)
	}
	if err := p.ledger.Transfer(identity, p.account, assetIn, amountIn); err != nil {
		return nil, err
	}
	if err := p.ledger.Transfer(p.account, identity, assetOut, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *StableVenue) ExecuteBuy(identity types.Address, assetIn, assetOut types.AssetID, amountOut, maxAmountIn *big.Int) (*big.Int, error) {
	in, err := p.InGivenOut(assetIn, assetOut, amountOut)
	if err != nil {
		return nil, err
	}
	if maxAmountIn != nil && in.Cmp(maxAmountIn) > 0 {
		return nil, fmt.Errorf("%w: %s buy costs %s, limit %s", ErrLimitExceeded, p.id, in, maxAmountIn)
	}
	if err := p.ledger.Transfer(identity, p.account, assetIn, in); err != nil {
		return nil, err
	}
	if err := p.ledger.Transfer(p.account, identity, assetOut, amountOut); err != nil {
		return nil, err
	}
	return in, nil
}
