package wallet

import (
	"math/big"
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

func TestPublicKeyOfOneIsGenerator(t *testing.T) {
	s, err := NewStarkSigner("0x1")
	require.NoError(t, err)
	assert.Equal(t, "0x1ef15c18599971b7beced415a40f0c7deacfd9b0d1819e03d723d8bc943cfca", s.PublicKey().String())
}

func TestNewStarkSignerRejectsBadKeys(t *testing.T) {
	for _, k := range []string{"", "0x", "zz", "0x0"} {
		_, err := NewStarkSigner(k)
		assert.Error(t, err, "key %q", k)
	}
	// the curve order itself is out of range
	_, err := NewStarkSigner("0x800000000000010ffffffffffffffffb781126dcae7b2321e66a241adc64d2f")
	assert.Error(t, err)
}

func TestSignVerify(t *testing.T) {
	s, err := NewStarkSigner(testPrivateKey)
	require.NoError(t, err)

	hash := starknet.FeltFromUint64(0xdeadbeef)
	r, sv, err := s.Sign(hash)
	require.NoError(t, err)

	bound := new(big.Int).Lsh(big.NewInt(1), 251)
	assert.Negative(t, r.BigInt(new(big.Int)).Cmp(bound))
	assert.Negative(t, sv.BigInt(new(big.Int)).Cmp(bound))
	assert.True(t, s.Verify(hash, r, sv))
	assert.False(t, s.Verify(starknet.FeltFromUint64(0xdeadbef0), r, sv))
}

func TestEncodeBound(t *testing.T) {
	b, err := encodeBound(l1GasName, ResourceBound{MaxAmount: 0x186a0, MaxPricePerUnit: *uint256.NewInt(0x5af3107a4000)})
	require.NoError(t, err)
	assert.Equal(t, "0x4c315f47415300000000000186a0000000000000000000005af3107a4000", b.String())

	_, err = encodeBound(l2GasName, ResourceBound{MaxPricePerUnit: *new(uint256.Int).Lsh(uint256.NewInt(1), 128)})
	assert.Error(t, err)
}

func TestInvokeHashCoversEveryField(t *testing.T) {
	base := func() *InvokeV3 {
		return &InvokeV3{
			SenderAddress: starknet.FeltFromUint64(0x1),
			Calldata:      []*felt.Felt{starknet.FeltFromUint64(1), starknet.FeltFromUint64(2)},
			Nonce:         starknet.FeltFromUint64(0),
			ChainID:       starknet.MustShortString("SN_MAIN"),
		}
	}
	h0, err := base().Hash()
	require.NoError(t, err)

	again, err := base().Hash()
	require.NoError(t, err)
	assert.True(t, h0.Equal(again))

	mutations := map[string]func(tx *InvokeV3){
		"nonce":    func(tx *InvokeV3) { tx.Nonce = starknet.FeltFromUint64(1) },
		"chain":    func(tx *InvokeV3) { tx.ChainID = starknet.MustShortString("SN_SEPOLIA") },
		"calldata": func(tx *InvokeV3) { tx.Calldata = tx.Calldata[:1] },
		"tip":      func(tx *InvokeV3) { tx.Tip = 1 },
		"l2 gas":   func(tx *InvokeV3) { tx.ResourceBounds.L2Gas.MaxAmount = 1 },
		"da mode":  func(tx *InvokeV3) { tx.FeeDAMode = 1 },
	}
	for name, mutate := range mutations {
		tx := base()
		mutate(tx)
		h, err := tx.Hash()
		require.NoError(t, err)
		assert.False(t, h.Equal(h0), "hash ignores %s", name)
	}
}
