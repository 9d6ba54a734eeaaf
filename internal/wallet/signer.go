package wallet

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/NethermindEth/juno/core/felt"
	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/ecdsa"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fr"
)

// maxSignAttempts bounds the retries for a signature component landing at or
// above 2^251, which the account contract rejects.
const maxSignAttempts = 8

var signatureBound = new(big.Int).Lsh(big.NewInt(1), 251)

// StarkSigner signs transaction hashes with a Stark-curve private key. The
// scalar never leaves this struct.
type StarkSigner struct {
	key    ecdsa.PrivateKey
	pubKey *felt.Felt
}

// NewStarkSigner parses a 0x-prefixed hex private key.
func NewStarkSigner(hexKey string) (*StarkSigner, error) {
	s := strings.TrimSpace(hexKey)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	k, ok := new(big.Int).SetString(s, 16)
	if !ok || s == "" {
		return nil, fmt.Errorf("wallet: private key is not hex")
	}
	if k.Sign() <= 0 || k.Cmp(fr.Modulus()) >= 0 {
		return nil, fmt.Errorf("wallet: private key out of range")
	}
	return newStarkSigner(k)
}

func newStarkSigner(k *big.Int) (*StarkSigner, error) {
	_, g := starkcurve.Generators()
	var pub starkcurve.G1Affine
	pub.ScalarMultiplication(&g, k)

	pk := ecdsa.PublicKey{A: pub}
	buf := make([]byte, 0, 64)
	buf = append(buf, pk.Bytes()...)
	buf = append(buf, k.FillBytes(make([]byte, fr.Bytes))...)

	signer := &StarkSigner{}
	if _, err := signer.key.SetBytes(buf); err != nil {
		return nil, fmt.Errorf("wallet: load private key: %w", err)
	}
	signer.pubKey = new(felt.Felt).SetBigInt(pub.X.BigInt(new(big.Int)))
	return signer, nil
}

// PublicKey returns the x coordinate of the public point, the form account
// contracts store.
func (s *StarkSigner) PublicKey() *felt.Felt {
	return new(felt.Felt).Set(s.pubKey)
}

// Sign returns the (r, s) signature of hash.
func (s *StarkSigner) Sign(hash *felt.Felt) (*felt.Felt, *felt.Felt, error) {
	msg := hashBytes(hash)
	for i := 0; i < maxSignAttempts; i++ {
		sigBin, err := s.key.Sign(msg, nil)
		if err != nil {
			return nil, nil, err
		}
		var sig ecdsa.Signature
		if _, err := sig.SetBytes(sigBin); err != nil {
			return nil, nil, err
		}
		r := new(big.Int).SetBytes(sig.R[:])
		sv := new(big.Int).SetBytes(sig.S[:])
		if r.Cmp(signatureBound) >= 0 || sv.Cmp(signatureBound) >= 0 {
			continue
		}
		return new(felt.Felt).SetBigInt(r), new(felt.Felt).SetBigInt(sv), nil
	}
	return nil, nil, fmt.Errorf("no valid signature after %d attempts", maxSignAttempts)
}

// Verify checks (r, s) against hash with this signer's public point.
func (s *StarkSigner) Verify(hash, r, sv *felt.Felt) bool {
	var sig ecdsa.Signature
	r.BigInt(new(big.Int)).FillBytes(sig.R[:])
	sv.BigInt(new(big.Int)).FillBytes(sig.S[:])
	ok, err := s.key.PublicKey.Verify(sig.Bytes(), hashBytes(hash), nil)
	return err == nil && ok
}

func hashBytes(hash *felt.Felt) []byte {
	return hash.BigInt(new(big.Int)).FillBytes(make([]byte, 32))
}
