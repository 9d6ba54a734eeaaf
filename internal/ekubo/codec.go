package ekubo

import (
	"fmt"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

func (k PoolKey) encodeTo(w *starknet.Writer, prefix string) {
	w.Felt(prefix+"token0", &k.Token0)
	w.Felt(prefix+"token1", &k.Token1)
	w.U128(prefix+"fee", &k.Fee)
	w.U128(prefix+"tick_spacing", &k.TickSpacing)
	w.Felt(prefix+"extension", &k.Extension)
}

func (a I129) encodeTo(w *starknet.Writer, prefix string) {
	w.U128(prefix+"mag", &a.Mag)
	w.Bool(prefix+"sign", a.Sign)
}

func (p SwapParameters) encodeTo(w *starknet.Writer, prefix string) {
	p.Amount.encodeTo(w, prefix+"amount.")
	w.Bool(prefix+"is_token1", p.IsToken1)
	w.U256(prefix+"sqrt_ratio_limit", &p.SqrtRatioLimit)
	w.U128(prefix+"skip_ahead", &p.SkipAhead)
}

func (d SwapData) encodeTo(w *starknet.Writer, prefix string) {
	d.Params.encodeTo(w, prefix+"params.")
	d.PoolKey.encodeTo(w, prefix+"pool_key.")
	w.Felt(prefix+"caller", &d.Caller)
}

// Encode serialises the pool key.
func (k PoolKey) Encode() ([]*felt.Felt, error) {
	w := starknet.NewWriter(PoolKeyLen)
	k.encodeTo(w, "")
	return w.Result()
}

// Encode serialises the signed amount.
func (a I129) Encode() ([]*felt.Felt, error) {
	w := starknet.NewWriter(I129Len)
	a.encodeTo(w, "")
	return w.Result()
}

// Encode serialises the swap parameters.
func (p SwapParameters) Encode() ([]*felt.Felt, error) {
	w := starknet.NewWriter(SwapParametersLen)
	p.encodeTo(w, "")
	return w.Result()
}

// Encode serialises the full swap payload.
func (d SwapData) Encode() ([]*felt.Felt, error) {
	w := starknet.NewWriter(SwapDataLen)
	d.encodeTo(w, "")
	return w.Result()
}

func decodePoolKey(r *starknet.Reader, prefix string) PoolKey {
	return PoolKey{
		Token0:      r.Felt(prefix + "token0"),
		Token1:      r.Felt(prefix + "token1"),
		Fee:         r.U128(prefix + "fee"),
		TickSpacing: r.U128(prefix + "tick_spacing"),
		Extension:   r.Felt(prefix + "extension"),
	}
}

func decodeI129(r *starknet.Reader, prefix string) I129 {
	return I129{
		Mag:  r.U128(prefix + "mag"),
		Sign: r.Bool(prefix + "sign"),
	}
}

func decodeSwapParameters(r *starknet.Reader, prefix string) SwapParameters {
	return SwapParameters{
		Amount:         decodeI129(r, prefix+"amount."),
		IsToken1:       r.Bool(prefix + "is_token1"),
		SqrtRatioLimit: r.U256(prefix + "sqrt_ratio_limit"),
		SkipAhead:      r.U128(prefix + "skip_ahead"),
	}
}

func decodeSwapData(r *starknet.Reader, prefix string) SwapData {
	return SwapData{
		Params:  decodeSwapParameters(r, prefix+"params."),
		PoolKey: decodePoolKey(r, prefix+"pool_key."),
		Caller:  r.Felt(prefix + "caller"),
	}
}

// DecodePoolKey reads a PoolKey and returns the unread remainder.
func DecodePoolKey(in []*felt.Felt) (PoolKey, []*felt.Felt, error) {
	r := starknet.NewReader(in)
	k := decodePoolKey(r, "")
	if err := r.Err(); err != nil {
		return PoolKey{}, nil, err
	}
	return k, r.Rest(), nil
}

// DecodeI129 reads an I129 and returns the unread remainder.
func DecodeI129(in []*felt.Felt) (I129, []*felt.Felt, error) {
	r := starknet.NewReader(in)
	a := decodeI129(r, "")
	if err := r.Err(); err != nil {
		return I129{}, nil, err
	}
	return a, r.Rest(), nil
}

// DecodeSwapParameters reads SwapParameters and returns the unread remainder.
func DecodeSwapParameters(in []*felt.Felt) (SwapParameters, []*felt.Felt, error) {
	r := starknet.NewReader(in)
	p := decodeSwapParameters(r, "")
	if err := r.Err(); err != nil {
		return SwapParameters{}, nil, err
	}
	return p, r.Rest(), nil
}

// DecodeSwapData reads SwapData and returns the unread remainder.
func DecodeSwapData(in []*felt.Felt) (SwapData, []*felt.Felt, error) {
	r := starknet.NewReader(in)
	d := decodeSwapData(r, "")
	if err := r.Err(); err != nil {
		return SwapData{}, nil, err
	}
	return d, r.Rest(), nil
}

// String renders the payload for logs.
func (d SwapData) String() string {
	return fmt.Sprintf("swap %s%s of %s->%s caller=%s",
		signPrefix(d.Params.Amount.Sign), d.Params.Amount.Mag.ToBig(),
		d.PoolKey.Token0.String(), d.PoolKey.Token1.String(), d.Caller.String())
}

func signPrefix(negative bool) string {
	if negative {
		return "-"
	}
	return ""
}
