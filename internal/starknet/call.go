package starknet

import (
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
)

// Call is a single contract invocation inside a multicall.
type Call struct {
	To       *felt.Felt
	Selector *felt.Felt
	Calldata []*felt.Felt
}

// NewCall builds a call to the named entry point.
func NewCall(to *felt.Felt, entrypoint string, calldata []*felt.Felt) Call {
	return Call{To: to, Selector: Selector(entrypoint), Calldata: calldata}
}

// EncodeMulticall lays out calls for a Cairo 1 account's __execute__:
// [n_calls, (to, selector, len(calldata), calldata...)...].
func EncodeMulticall(calls []Call) ([]*felt.Felt, error) {
	size := 1
	for _, c := range calls {
		size += 3 + len(c.Calldata)
	}
	w := NewWriter(size)
	w.Len("calls", len(calls))
	for i, c := range calls {
		field := fmt.Sprintf("calls[%d]", i)
		w.Felt(field+".to", c.To)
		w.Felt(field+".selector", c.Selector)
		w.Len(field+".calldata_len", len(c.Calldata))
		w.Felts(field+".calldata", c.Calldata)
	}
	return w.Result()
}

// DecodeMulticall is the inverse of EncodeMulticall.
func DecodeMulticall(in []*felt.Felt) ([]Call, error) {
	r := NewReader(in)
	n := r.Len("calls")
	calls := make([]Call, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		field := fmt.Sprintf("calls[%d]", i)
		to := r.Felt(field + ".to")
		sel := r.Felt(field + ".selector")
		m := r.Len(field + ".calldata_len")
		data := make([]*felt.Felt, 0, m)
		for j := 0; j < m; j++ {
			f := r.Felt(field + ".calldata")
			data = append(data, &f)
		}
		calls = append(calls, Call{To: &to, Selector: &sel, Calldata: data})
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if len(r.Rest()) != 0 {
		return nil, fmt.Errorf("decode calls: %d trailing felts", len(r.Rest()))
	}
	return calls, nil
}
