package avnu

import (
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

func sampleSwap() *Swap {
	return &Swap{
		From:                   TokenFrom{Address: *starknet.FeltFromUint64(0x11), Amount: *uint256.NewInt(1000)},
		To:                     TokenTo{Address: *starknet.FeltFromUint64(0x22), Amount: *uint256.NewInt(990), MinAmount: *uint256.NewInt(980)},
		Beneficiary:            *starknet.FeltFromUint64(0x33),
		IntegratorFeeBps:       *uint256.NewInt(15),
		IntegratorFeeRecipient: *starknet.FeltFromUint64(0x44),
		Routes: []Route{
			{
				TokenFrom: *starknet.FeltFromUint64(0x11),
				TokenTo:   *starknet.FeltFromUint64(0x22),
				Exchange:  *starknet.FeltFromUint64(0x55),
				Percent:   *uint256.NewInt(60),
				AdditionalParams: []*felt.Felt{
					starknet.FeltFromUint64(7),
					starknet.FeltFromUint64(8),
				},
			},
			{
				TokenFrom:        *starknet.FeltFromUint64(0x11),
				TokenTo:          *starknet.FeltFromUint64(0x22),
				Exchange:         *starknet.FeltFromUint64(0x66),
				Percent:          *uint256.NewInt(40),
				AdditionalParams: []*felt.Felt{},
			},
		},
	}
}

func TestEncodeLayout(t *testing.T) {
	out, err := sampleSwap().Encode()
	require.NoError(t, err)

	want := []string{
		"0x11", "0x3e8", "0x22", "0x3de", "0x3d4", "0x33", "0xf", "0x44", "0x2",
		"0x11", "0x22", "0x55", "0x3c", "0x2", "0x7", "0x8",
		"0x11", "0x22", "0x66", "0x28", "0x0",
	}
	assert.Equal(t, want, starknet.HexFelts(out))
}

func TestRoundTrip(t *testing.T) {
	s := sampleSwap()
	out, err := s.Encode()
	require.NoError(t, err)

	got, err := DecodeSwap(out)
	require.NoError(t, err)
	assert.Equal(t, s.From, got.From)
	assert.Equal(t, s.To, got.To)
	assert.Equal(t, s.Beneficiary, got.Beneficiary)
	require.Len(t, got.Routes, 2)
	for i := range s.Routes {
		assert.Equal(t, s.Routes[i].Exchange, got.Routes[i].Exchange)
		assert.Equal(t, s.Routes[i].Percent, got.Routes[i].Percent)
		assert.Equal(t, starknet.HexFelts(s.Routes[i].AdditionalParams), starknet.HexFelts(got.Routes[i].AdditionalParams))
	}
}

func TestValidateRoutes(t *testing.T) {
	s := sampleSwap()
	s.Routes = nil
	_, err := s.Encode()
	assert.ErrorIs(t, err, ErrInvalidRoute)

	s = sampleSwap()
	s.Routes[1].Percent = *uint256.NewInt(0)
	_, err = s.Encode()
	assert.ErrorIs(t, err, ErrInvalidRoute)

	s = sampleSwap()
	s.Routes[0].Percent = *uint256.NewInt(101)
	_, err = s.Encode()
	assert.ErrorIs(t, err, ErrInvalidRoute)
}

func TestEncodeAmountOverflow(t *testing.T) {
	s := sampleSwap()
	s.To.MinAmount = *new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	_, err := s.Encode()
	require.ErrorIs(t, err, starknet.ErrEncodingOverflow)

	var encErr *starknet.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "min_amount_to", encErr.Field)
}

func TestDecodeTrailing(t *testing.T) {
	out, err := sampleSwap().Encode()
	require.NoError(t, err)

	_, err = DecodeSwap(append(out, starknet.FeltFromUint64(1)))
	assert.Error(t, err)

	_, err = DecodeSwap(out[:len(out)-1])
	assert.ErrorIs(t, err, starknet.ErrShortInput)
}
