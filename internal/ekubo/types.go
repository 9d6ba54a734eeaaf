// Package ekubo encodes swap requests for the Ekubo core contract.
//
// Every struct is serialised field by field in declaration order at its
// native width, with no padding and no length prefix: the contract knows the
// layout statically. SwapData always encodes to SwapDataLen felts.
package ekubo

import (
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"

	"github.com/autoswappr/autoswappr-backend/internal/constants"
)

// Encoded sizes in felts.
const (
	PoolKeyLen        = 5
	I129Len           = 2
	SwapParametersLen = I129Len + 1 + 2 + 1
	SwapDataLen       = SwapParametersLen + PoolKeyLen + 1
)

var (
	poolFee        = mustDecimal(constants.EkuboPoolFee)
	sqrtRatioLimit = mustDecimal(constants.EkuboSqrtRatioLimit)
)

// PoolKey identifies a liquidity pool.
type PoolKey struct {
	Token0      felt.Felt
	Token1      felt.Felt
	Fee         uint256.Int // u128
	TickSpacing uint256.Int // u128
	Extension   felt.Felt
}

// NewPoolKey builds the key of the single pool tier auto-swaps trade against.
func NewPoolKey(token0, token1 *felt.Felt) PoolKey {
	return PoolKey{
		Token0:      *token0,
		Token1:      *token1,
		Fee:         *poolFee,
		TickSpacing: *uint256.NewInt(constants.EkuboTickSpacing),
	}
}

// I129 is a signed-magnitude integer: Sign set means negative.
type I129 struct {
	Mag  uint256.Int // u128
	Sign bool
}

func NewI129(mag *uint256.Int, negative bool) I129 {
	return I129{Mag: *mag, Sign: negative}
}

// SwapParameters describes one swap leg.
type SwapParameters struct {
	Amount         I129
	IsToken1       bool
	SqrtRatioLimit uint256.Int // u256
	SkipAhead      uint256.Int // u128
}

// NewSwapParameters fills the ratio limit and skip-ahead with the fixed
// protocol values.
func NewSwapParameters(amount I129, isToken1 bool) SwapParameters {
	return SwapParameters{
		Amount:         amount,
		IsToken1:       isToken1,
		SqrtRatioLimit: *sqrtRatioLimit,
		SkipAhead:      *uint256.NewInt(constants.EkuboSkipAhead),
	}
}

// SwapData is the complete argument of the swap entry point.
type SwapData struct {
	Params  SwapParameters
	PoolKey PoolKey
	Caller  felt.Felt
}

func NewSwapData(params SwapParameters, key PoolKey, caller *felt.Felt) SwapData {
	return SwapData{Params: params, PoolKey: key, Caller: *caller}
}

func mustDecimal(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(fmt.Sprintf("ekubo: bad constant %q: %v", s, err))
	}
	return v
}
