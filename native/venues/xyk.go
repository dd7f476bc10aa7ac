package venues

import (
	"fmt"
	"math/big"

	"intentnet/core/types"
)

// ConstantProduct is a two-asset x*y=k venue. Reserves are the pool
// account's ledger balances; the trade fee is charged on the input side in
// basis points.
type ConstantProduct struct {
	id      string
	account types.Address
	assetA  types.AssetID
	assetB  types.AssetID
	feeBps  uint64
	ledger  Ledger
}

// NewConstantProduct creates a constant-product venue over the given pair.
func NewConstantProduct(id string, account types.Address, assetA, assetB types.AssetID, feeBps uint64, ledger Ledger) *ConstantProduct {
	return &ConstantProduct{id: id, account: account, assetA: assetA, assetB: assetB, feeBps: feeBps, ledger: ledger}
}

func (p *ConstantProduct) ID() string { return p.id }

// Account returns the pool's ledger address. Reserves are funded by minting
// to this address at genesis.
func (p *ConstantProduct) Account() types.Address { return p.account }

func (p *ConstantProduct) SupportsPair(a, b types.AssetID) bool {
	return (a == p.assetA && b == p.assetB) || (a == p.assetB && b == p.assetA)
}

func (p *ConstantProduct) WithLedger(ledger Ledger) Adapter {
	clone := *p
	clone.ledger = ledger
	return &clone
}

func (p *ConstantProduct) reserves(assetIn, assetOut types.AssetID) (*big.Int, *big.Int, error) {
	if !p.SupportsPair(assetIn, assetOut) {
		return nil, nil, fmt.Errorf("%w: %s: %s/%s", ErrPairNotSupported, p.id, assetIn, assetOut)
	}
	return p.ledger.BalanceOf(p.account, assetIn), p.ledger.BalanceOf(p.account, assetOut), nil
}

var bpsDenominator = big.NewInt(10_000)

// OutGivenIn returns reserveOut*netIn/(reserveIn+netIn) where netIn is the
// input after the trade fee.
func (p *ConstantProduct) OutGivenIn(assetIn, assetOut types.AssetID, amountIn *big.Int) (*big.Int, error) {
	reserveIn, reserveOut, err := p.reserves(assetIn, assetOut)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s has empty reserves", ErrInsufficientLiquidity, p.id)
	}
	netIn, err := types.MulDiv(amountIn, new(big.Int).SetUint64(10_000-p.feeBps), bpsDenominator)
	if err != nil {
		return nil, err
	}
	denominator, err := types.CheckedAdd(reserveIn, netIn)
	if err != nil {
		return nil, err
	}
	return types.MulDiv(reserveOut, netIn, denominator)
}

// InGivenOut returns reserveIn*amountOut/(reserveOut-amountOut)+1 grossed up
// by the trade fee.
func (p *ConstantProduct) InGivenOut(assetIn, assetOut types.AssetID, amountOut *big.Int) (*big.Int, error) {
	reserveIn, reserveOut, err := p.reserves(assetIn, assetOut)
	if err != nil {
		return nil, err
	}
	if reserveOut.Cmp(amountOut) <= 0 {
		return nil, fmt.Errorf("%w: %s cannot supply %s of %s", ErrInsufficientLiquidity, p.id, amountOut, assetOut)
	}
	denominator, err := types.CheckedSub(reserveOut, amountOut)
	if err != nil {
		return nil, err
	}
	base, err := types.MulDiv(reserveIn, amountOut, denominator)
	if err != nil {
		return nil, err
	}
	base, err = types.CheckedAdd(base, big.NewInt(1))
	if err != nil {
		return nil, err
	}
	fee, err := types.MulDiv(base, new(big.Int).SetUint64(p.feeBps), bpsDenominator)
	if err != nil {
		return nil, err
	}
	return types.CheckedAdd(base, fee)
}

func (p *ConstantProduct) LiquidityDepth(a, b types.AssetID) (*big.Int, error) {
	if !p.SupportsPair(a, b) {
		return nil, fmt.Errorf("%w: %s: %s/%s", ErrPairNotSupported, p.id, a, b)
	}
	return p.ledger.BalanceOf(p.account, b), nil
}

func (p *ConstantProduct) ExecuteSell(identity types.Address, assetIn, assetOut types.AssetID, amountIn, minAmountOut *big.Int) (*big.Int, error) {
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

func (p *ConstantProduct) ExecuteBuy(identity types.Address, assetIn, assetOut types.AssetID, amountOut, maxAmountIn *big.Int) (*big.Int, error) {
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
