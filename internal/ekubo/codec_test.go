package ekubo

import (
	"math/rand/v2"
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

func mustAddr(t *testing.T, s string) *felt.Felt {
	t.Helper()
	f, err := starknet.ParseAddress(s)
	require.NoError(t, err)
	return f
}

func sampleSwapData(t *testing.T) SwapData {
	t.Helper()
	token0 := mustAddr(t, "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
	token1 := mustAddr(t, "0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8")
	caller := mustAddr(t, "0xabc")
	params := NewSwapParameters(NewI129(uint256.NewInt(700000), false), false)
	return NewSwapData(params, NewPoolKey(token0, token1), caller)
}

func TestSwapDataLayout(t *testing.T) {
	d := sampleSwapData(t)
	out, err := d.Encode()
	require.NoError(t, err)
	require.Len(t, out, SwapDataLen)
	assert.Equal(t, 12, SwapDataLen)

	want := []string{
		"0xaae60",             // mag = 700000
		"0x0",                 // sign
		"0x0",                 // is_token1
		"0x1000003f7f1380b75", // sqrt_ratio_limit.low
		"0x0",                 // sqrt_ratio_limit.high
		"0x0",                 // skip_ahead
		"0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7",
		"0x53c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8",
		"0x20c49ba5e353f80000000000000000", // fee
		"0x3e8",                            // tick_spacing
		"0x0",                              // extension
		"0xabc",                            // caller
	}
	assert.Equal(t, want, starknet.HexFelts(out))
}

func TestSwapDataRoundTrip(t *testing.T) {
	d := sampleSwapData(t)
	out, err := d.Encode()
	require.NoError(t, err)

	extra := starknet.FeltFromUint64(42)
	got, rest, err := DecodeSwapData(append(out, extra))
	require.NoError(t, err)
	assert.Equal(t, d, got)
	require.Len(t, rest, 1)
	assert.True(t, rest[0].Equal(extra))
}

func TestEncodeDeterministic(t *testing.T) {
	d := sampleSwapData(t)
	a, err := d.Encode()
	require.NoError(t, err)
	b, err := d.Encode()
	require.NoError(t, err)
	assert.Equal(t, starknet.HexFelts(a), starknet.HexFelts(b))
}

func TestI129RoundTrip(t *testing.T) {
	cases := []I129{
		NewI129(uint256.NewInt(0), false),
		NewI129(uint256.NewInt(1), true),
		NewI129(new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1), true),
	}
	for _, c := range cases {
		out, err := c.Encode()
		require.NoError(t, err)
		require.Len(t, out, I129Len)

		got, rest, err := DecodeI129(out)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, c, got)
	}
}

func TestPoolKeyRoundTrip(t *testing.T) {
	k := NewPoolKey(starknet.FeltFromUint64(1), starknet.FeltFromUint64(2))
	out, err := k.Encode()
	require.NoError(t, err)
	require.Len(t, out, PoolKeyLen)

	got, rest, err := DecodePoolKey(out)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, k, got)
}

func TestSwapParametersRoundTrip(t *testing.T) {
	p := NewSwapParameters(NewI129(uint256.NewInt(5), true), true)
	p.SqrtRatioLimit = *new(uint256.Int).Lsh(uint256.NewInt(3), 200)

	out, err := p.Encode()
	require.NoError(t, err)
	require.Len(t, out, SwapParametersLen)

	got, _, err := DecodeSwapParameters(out)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

// randomCodec draws field values across the full width of each type.
type randomCodec struct{ r *rand.Rand }

func (g randomCodec) felt() felt.Felt {
	b := make([]byte, 31) // 248 bits, always below the field prime
	for i := range b {
		b[i] = byte(g.r.UintN(256))
	}
	return *new(felt.Felt).SetBytes(b)
}

func (g randomCodec) u128() uint256.Int {
	switch g.r.IntN(8) {
	case 0:
		return uint256.Int{}
	case 1:
		return uint256.Int{^uint64(0), ^uint64(0), 0, 0}
	}
	return uint256.Int{g.r.Uint64(), g.r.Uint64(), 0, 0}
}

func (g randomCodec) u256() uint256.Int {
	switch g.r.IntN(8) {
	case 0:
		return uint256.Int{}
	case 1:
		return uint256.Int{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}
	}
	return uint256.Int{g.r.Uint64(), g.r.Uint64(), g.r.Uint64(), g.r.Uint64()}
}

func (g randomCodec) i129() I129 {
	return I129{Mag: g.u128(), Sign: g.r.IntN(2) == 1}
}

func (g randomCodec) poolKey() PoolKey {
	return PoolKey{
		Token0:      g.felt(),
		Token1:      g.felt(),
		Fee:         g.u128(),
		TickSpacing: g.u128(),
		Extension:   g.felt(),
	}
}

func (g randomCodec) swapParameters() SwapParameters {
	return SwapParameters{
		Amount:         g.i129(),
		IsToken1:       g.r.IntN(2) == 1,
		SqrtRatioLimit: g.u256(),
		SkipAhead:      g.u128(),
	}
}

func (g randomCodec) swapData() SwapData {
	return SwapData{Params: g.swapParameters(), PoolKey: g.poolKey(), Caller: g.felt()}
}

func TestRandomRoundTrip(t *testing.T) {
	g := randomCodec{r: rand.New(rand.NewPCG(1, 2))}
	tail := starknet.FeltFromUint64(7)

	for i := 0; i < 500; i++ {
		a := g.i129()
		out, err := a.Encode()
		require.NoError(t, err)
		gotA, rest, err := DecodeI129(append(out, tail))
		require.NoError(t, err)
		require.Equal(t, a, gotA)
		require.Len(t, rest, 1)

		k := g.poolKey()
		out, err = k.Encode()
		require.NoError(t, err)
		require.Len(t, out, PoolKeyLen)
		gotK, rest, err := DecodePoolKey(append(out, tail))
		require.NoError(t, err)
		require.Equal(t, k, gotK)
		require.Len(t, rest, 1)

		p := g.swapParameters()
		out, err = p.Encode()
		require.NoError(t, err)
		require.Len(t, out, SwapParametersLen)
		gotP, rest, err := DecodeSwapParameters(append(out, tail))
		require.NoError(t, err)
		require.Equal(t, p, gotP)
		require.Len(t, rest, 1)

		d := g.swapData()
		out, err = d.Encode()
		require.NoError(t, err)
		require.Len(t, out, SwapDataLen)
		again, err := d.Encode()
		require.NoError(t, err)
		require.Equal(t, starknet.HexFelts(out), starknet.HexFelts(again))
		gotD, rest, err := DecodeSwapData(append(out, tail))
		require.NoError(t, err)
		require.Equal(t, d, gotD)
		require.Len(t, rest, 1)
	}
}

func TestEncodeOverflow(t *testing.T) {
	d := sampleSwapData(t)
	d.Params.Amount.Mag = *new(uint256.Int).Lsh(uint256.NewInt(1), 128)

	out, err := d.Encode()
	assert.Nil(t, out)
	require.ErrorIs(t, err, starknet.ErrEncodingOverflow)

	var encErr *starknet.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "params.amount.mag", encErr.Field)

	k := NewPoolKey(starknet.FeltFromUint64(1), starknet.FeltFromUint64(2))
	k.TickSpacing = *new(uint256.Int).Lsh(uint256.NewInt(1), 130)
	_, err = k.Encode()
	assert.ErrorIs(t, err, starknet.ErrEncodingOverflow)
}

func TestDecodeShortInput(t *testing.T) {
	d := sampleSwapData(t)
	out, err := d.Encode()
	require.NoError(t, err)

	_, _, err = DecodeSwapData(out[:SwapDataLen-1])
	assert.ErrorIs(t, err, starknet.ErrShortInput)
}

func TestDecodeRejectsBadBool(t *testing.T) {
	_, _, err := DecodeI129([]*felt.Felt{starknet.FeltFromUint64(1), starknet.FeltFromUint64(2)})
	assert.ErrorIs(t, err, starknet.ErrInvalidBool)
}

func TestDecodeRejectsWideU128(t *testing.T) {
	wide, err := starknet.FeltFromUint256(new(uint256.Int).Lsh(uint256.NewInt(1), 129))
	require.NoError(t, err)

	_, _, err = DecodeI129([]*felt.Felt{wide, starknet.FeltFromUint64(0)})
	assert.ErrorIs(t, err, starknet.ErrEncodingOverflow)
}
