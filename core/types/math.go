package types

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// ErrArithmeticOverflow is returned when monetary math leaves the supported
// 256-bit unsigned domain. Silent truncation is never acceptable for balances.
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

var maxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// CheckAmount validates that v is a usable monetary amount: non-nil,
// non-negative and within the 256-bit domain.
func CheckAmount(v *big.Int) error {
	if v == nil || v.Sign() < 0 || v.Cmp(maxBalance) > 0 {
		return ErrArithmeticOverflow
	}
	return nil
}

// CheckedAdd returns a+b or ErrArithmeticOverflow.
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	if err := CheckAmount(a); err != nil {
		return nil, err
	}
	if err := CheckAmount(b); err != nil {
		return nil, err
	}
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(maxBalance) > 0 {
		return nil, ErrArithmeticOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b, failing when the result would be negative.
func CheckedSub(a, b *big.Int) (*big.Int, error) {
	if err := CheckAmount(a); err != nil {
		return nil, err
	}
	if err := CheckAmount(b); err != nil {
		return nil, err
	}
	if a.Cmp(b) < 0 {
		return nil, ErrArithmeticOverflow
	}
	return new(big.Int).Sub(a, b), nil
}

// MulDiv computes a*n/d rounded down, failing on a zero divisor or a result
// outside the 256-bit domain.
func MulDiv(a, n, d *big.Int) (*big.Int, error) {
	if err := CheckAmount(a); err != nil {
		return nil, err
	}
	if err := CheckAmount(n); err != nil {
		return nil, err
	}
	if d == nil || d.Sign() <= 0 {
		return nil, ErrArithmeticOverflow
	}
	out := new(big.Int).Mul(a, n)
	out.Quo(out, d)
	if out.Cmp(maxBalance) > 0 {
		return nil, ErrArithmeticOverflow
	}
	return out, nil
}

// ToUint256 converts a checked amount into a fixed-width word for storage
// encodings.
func ToUint256(v *big.Int) (*uint256.Int, error) {
	if err := CheckAmount(v); err != nil {
		return nil, err
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return out, nil
}
