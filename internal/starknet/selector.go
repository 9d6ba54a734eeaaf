package starknet

import (
	"sync"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	selectorMu    sync.RWMutex
	selectorCache = map[string]*felt.Felt{}
)

// Keccak is starknet_keccak: keccak256 truncated to its low 250 bits.
func Keccak(data []byte) *felt.Felt {
	h := crypto.Keccak256(data)
	h[0] &= 0x03
	return new(felt.Felt).SetBytes(h)
}

// Selector returns the entry point selector for a function name.
func Selector(name string) *felt.Felt {
	selectorMu.RLock()
	s, ok := selectorCache[name]
	selectorMu.RUnlock()
	if ok {
		return new(felt.Felt).Set(s)
	}

	s = Keccak([]byte(name))
	selectorMu.Lock()
	selectorCache[name] = s
	selectorMu.Unlock()
	return new(felt.Felt).Set(s)
}
