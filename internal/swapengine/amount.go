package swapengine

import (
	"fmt"

	"github.com/holiman/uint256"
)

// maxDecimalExponent keeps 10^exp below 2^128.
const maxDecimalExponent = 38

// DecimalFactor returns 10^exponent, the scale from whole token units to base
// units.
func DecimalFactor(exponent uint8) (*uint256.Int, error) {
	if exponent > maxDecimalExponent {
		return nil, fmt.Errorf("decimal exponent %d exceeds %d", exponent, maxDecimalExponent)
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(exponent))), nil
}

// CalculateSwapAmount returns floor(valueReceived * percentage / 100) scaled
// by decimalFactor. The result always fits in 128 bits and is never zero.
func CalculateSwapAmount(valueReceived int64, percentage int, decimalFactor *uint256.Int) (*uint256.Int, error) {
	if valueReceived <= 0 {
		return nil, invalidAmount("value_received", "must be greater than zero")
	}
	if percentage < 1 || percentage > 100 {
		return nil, invalidAmount("percentage", fmt.Sprintf("%d is outside 1..100", percentage))
	}
	if decimalFactor == nil || decimalFactor.IsZero() {
		return nil, invalidAmount("decimal_factor", "must be greater than zero")
	}

	// int64 max * 100 stays far below 2^256
	share := new(uint256.Int).Mul(uint256.NewInt(uint64(valueReceived)), uint256.NewInt(uint64(percentage)))
	share.Div(share, uint256.NewInt(100))
	if share.IsZero() {
		return nil, invalidAmount("swap_amount", "rounds down to zero")
	}

	amount, overflow := new(uint256.Int).MulOverflow(share, decimalFactor)
	if overflow || amount.BitLen() > 128 {
		return nil, invalidAmount("swap_amount", "exceeds 128 bits")
	}
	return amount, nil
}
