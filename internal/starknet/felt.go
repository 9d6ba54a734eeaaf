// Package starknet holds the field-element plumbing shared by the codecs and
// the account: address parsing, selectors, fixed-width serialisation and calls.
package starknet

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrFeltOverflow   = errors.New("value does not fit in a field element")
)

var (
	// Modulus is the Starknet prime 2^251 + 17*2^192 + 1.
	Modulus = new(big.Int).Add(
		new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 251), new(big.Int).Lsh(big.NewInt(17), 192)),
		big.NewInt(1),
	)
	// addressBound is the exclusive upper bound of a contract address.
	addressBound = new(big.Int).Lsh(big.NewInt(1), 251)
)

// ParseAddress parses a 0x-prefixed hex contract address of at most 64 digits.
func ParseAddress(s string) (*felt.Felt, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 || len(s) > 66 || (s[:2] != "0x" && s[:2] != "0X") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	digits := s[2:]
	for _, c := range digits {
		if !isHexDigit(c) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok || v.Cmp(addressBound) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return new(felt.Felt).SetBigInt(v), nil
}

// IsAddress reports whether s parses as a contract address.
func IsAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// NormalizeAddress returns the canonical 0x + 64 digit lowercase form of s.
func NormalizeAddress(s string) (string, error) {
	f, err := ParseAddress(s)
	if err != nil {
		return "", err
	}
	return PaddedHex(f), nil
}

// PaddedHex formats f as 0x followed by 64 lowercase hex digits.
func PaddedHex(f *felt.Felt) string {
	return fmt.Sprintf("0x%064x", f.BigInt(new(big.Int)))
}

// FeltFromUint64 returns v as a field element.
func FeltFromUint64(v uint64) *felt.Felt {
	return new(felt.Felt).SetUint64(v)
}

// FeltFromBig converts v, failing if it is negative or not below the modulus.
func FeltFromBig(v *big.Int) (*felt.Felt, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(Modulus) >= 0 {
		return nil, ErrFeltOverflow
	}
	return new(felt.Felt).SetBigInt(v), nil
}

// FeltFromUint256 converts v, failing if it is not below the modulus.
func FeltFromUint256(v *uint256.Int) (*felt.Felt, error) {
	if v == nil {
		return nil, ErrFeltOverflow
	}
	return FeltFromBig(v.ToBig())
}

// FeltFromHex parses a 0x-prefixed hex string into a field element.
func FeltFromHex(s string) (*felt.Felt, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("invalid felt hex %q", s)
	}
	v, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return nil, fmt.Errorf("invalid felt hex %q", s)
	}
	return FeltFromBig(v)
}

// FeltToUint256 widens f into a 256-bit integer.
func FeltToUint256(f *felt.Felt) *uint256.Int {
	v, _ := uint256.FromBig(f.BigInt(new(big.Int)))
	return v
}

// ShortString encodes an ASCII string of at most 31 bytes as a field element,
// the way chain ids and transaction prefixes are encoded.
func ShortString(s string) (*felt.Felt, error) {
	if len(s) > 31 {
		return nil, fmt.Errorf("short string %q longer than 31 bytes", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return nil, fmt.Errorf("short string %q is not ascii", s)
		}
	}
	return new(felt.Felt).SetBytes([]byte(s)), nil
}

// MustShortString is ShortString for compile-time constants.
func MustShortString(s string) *felt.Felt {
	f, err := ShortString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// HexFelts formats a felt slice for JSON-RPC payloads.
func HexFelts(fs []*felt.Felt) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
