package venues

import (
	"errors"
	"math/big"

	"intentnet/core/types"
)

var (
	// ErrPairNotSupported is returned when a venue cannot quote the asset pair.
	ErrPairNotSupported = errors.New("venues: pair not supported")
	// ErrInsufficientLiquidity is returned when a trade would exhaust a reserve.
	ErrInsufficientLiquidity = errors.New("venues: insufficient liquidity")
	// ErrLimitExceeded is returned when a quoted trade violates the caller's limit.
	ErrLimitExceeded = errors.New("venues: limit exceeded")
	// ErrVenueNotFound is returned by the registry for unknown venue ids.
	ErrVenueNotFound = errors.New("venues: venue not found")
)

// Ledger is the balance surface venues trade against. Venue reserves are the
// venue account's ledger balances, so a ledger snapshot captures venue state
// along with user balances.
type Ledger interface {
	BalanceOf(owner types.Address, asset types.AssetID) *big.Int
	Transfer(from, to types.Address, asset types.AssetID, amount *big.Int) error
}

// Adapter is the uniform capability interface over heterogeneous liquidity
// venues. Solver and verifier depend only on the quoting half; the executor
// additionally drives ExecuteSell/ExecuteBuy under the holding account's
// identity.
type Adapter interface {
	ID() string
	SupportsPair(a, b types.AssetID) bool

	// OutGivenIn quotes proceeds for selling amountIn, net of fees.
	OutGivenIn(assetIn, assetOut types.AssetID, amountIn *big.Int) (*big.Int, error)
	// InGivenOut quotes the payment needed to buy amountOut, gross of fees.
	InGivenOut(assetIn, assetOut types.AssetID, amountOut *big.Int) (*big.Int, error)
	// LiquidityDepth reports the reserve of b available against a.
	LiquidityDepth(a, b types.AssetID) (*big.Int, error)

	// ExecuteSell sells exactly amountIn, failing if proceeds fall below
	// minAmountOut. Returns the amount bought.
	ExecuteSell(identity types.Address, assetIn, assetOut types.AssetID, amountIn, minAmountOut *big.Int) (*big.Int, error)
	// ExecuteBuy buys exactly amountOut, failing if the cost exceeds
	// maxAmountIn. Returns the amount paid.
	ExecuteBuy(identity types.Address, assetIn, assetOut types.AssetID, amountOut, maxAmountIn *big.Int) (*big.Int, error)

	// WithLedger rebinds the adapter to another ledger view. The executor
	// uses this to run venue legs against a snapshot.
	WithLedger(ledger Ledger) Adapter
}
