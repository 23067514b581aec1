package campaign

import (
	"math/big"

	"github.com/holiman/uint256"
)

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 || v.Cmp(MaxBalance) > 0 {
		return nil, ErrArithmeticOverflow
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return out, nil
}

func fromUint256(v *uint256.Int) (*big.Int, error) {
	out := v.ToBig()
	if out.Cmp(MaxBalance) > 0 {
		return nil, ErrArithmeticOverflow
	}
	return out, nil
}

// checkedMul returns amount * count, failing once the product leaves the
// ledger's balance range.
func checkedMul(amount *big.Int, count uint64) (*big.Int, error) {
	a, err := toUint256(amount)
	if err != nil {
		return nil, err
	}
	product, overflow := new(uint256.Int).MulOverflow(a, uint256.NewInt(count))
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return fromUint256(product)
}

func checkedAdd(x, y *big.Int) (*big.Int, error) {
	a, err := toUint256(x)
	if err != nil {
		return nil, err
	}
	b, err := toUint256(y)
	if err != nil {
		return nil, err
	}
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return fromUint256(sum)
}
