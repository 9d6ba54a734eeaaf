// Package avnu encodes routed swaps for the aggregator-style exchange entry
// point. Route selection happens elsewhere; this package only lays the routes
// out in calldata.
package avnu

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"

	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

// headerLen is the number of felts before the route list, including its
// length prefix.
const headerLen = 9

var ErrInvalidRoute = errors.New("invalid route")

// Route is one leg of a routed swap. Percent is the share of the input sent
// through this leg.
type Route struct {
	TokenFrom        felt.Felt
	TokenTo          felt.Felt
	Exchange         felt.Felt
	Percent          uint256.Int // u128
	AdditionalParams []*felt.Felt
}

type TokenFrom struct {
	Address felt.Felt
	Amount  uint256.Int // u128
}

type TokenTo struct {
	Address   felt.Felt
	Amount    uint256.Int // u128
	MinAmount uint256.Int // u128
}

// Swap is the full argument list of the routed swap entry point.
type Swap struct {
	From                   TokenFrom
	To                     TokenTo
	Beneficiary            felt.Felt
	IntegratorFeeBps       uint256.Int // u128
	IntegratorFeeRecipient felt.Felt
	Routes                 []Route
}

// Validate checks the route list before encoding.
func (s *Swap) Validate() error {
	if len(s.Routes) == 0 {
		return fmt.Errorf("%w: no routes", ErrInvalidRoute)
	}
	for i := range s.Routes {
		p := &s.Routes[i].Percent
		if p.IsZero() || p.GtUint64(100) {
			return fmt.Errorf("%w: routes[%d] percent %s not in 1..100", ErrInvalidRoute, i, p.Dec())
		}
	}
	return nil
}

// Encode lays the swap out as
// [token_from, amount_from, token_to, amount_to, min_amount_to, beneficiary,
// integrator_fee_bps, integrator_fee_recipient, n_routes, routes...].
func (s *Swap) Encode() ([]*felt.Felt, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	size := headerLen
	for _, r := range s.Routes {
		size += 5 + len(r.AdditionalParams)
	}

	w := starknet.NewWriter(size)
	w.Felt("token_from", &s.From.Address)
	w.U128("amount_from", &s.From.Amount)
	w.Felt("token_to", &s.To.Address)
	w.U128("amount_to", &s.To.Amount)
	w.U128("min_amount_to", &s.To.MinAmount)
	w.Felt("beneficiary", &s.Beneficiary)
	w.U128("integrator_fee_bps", &s.IntegratorFeeBps)
	w.Felt("integrator_fee_recipient", &s.IntegratorFeeRecipient)
	w.Len("routes", len(s.Routes))
	for i := range s.Routes {
		r := &s.Routes[i]
		field := fmt.Sprintf("routes[%d]", i)
		w.Felt(field+".token_from", &r.TokenFrom)
		w.Felt(field+".token_to", &r.TokenTo)
		w.Felt(field+".exchange", &r.Exchange)
		w.U128(field+".percent", &r.Percent)
		w.Len(field+".additional_params_len", len(r.AdditionalParams))
		w.Felts(field+".additional_params", r.AdditionalParams)
	}
	return w.Result()
}

// DecodeSwap is the inverse of Encode. Trailing felts are an error.
func DecodeSwap(in []*felt.Felt) (*Swap, error) {
	r := starknet.NewReader(in)
	s := &Swap{
		From: TokenFrom{
			Address: r.Felt("token_from"),
			Amount:  r.U128("amount_from"),
		},
	}
	s.To.Address = r.Felt("token_to")
	s.To.Amount = r.U128("amount_to")
	s.To.MinAmount = r.U128("min_amount_to")
	s.Beneficiary = r.Felt("beneficiary")
	s.IntegratorFeeBps = r.U128("integrator_fee_bps")
	s.IntegratorFeeRecipient = r.Felt("integrator_fee_recipient")

	n := r.Len("routes")
	s.Routes = make([]Route, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		field := fmt.Sprintf("routes[%d]", i)
		route := Route{
			TokenFrom: r.Felt(field + ".token_from"),
			TokenTo:   r.Felt(field + ".token_to"),
			Exchange:  r.Felt(field + ".exchange"),
			Percent:   r.U128(field + ".percent"),
		}
		m := r.Len(field + ".additional_params_len")
		route.AdditionalParams = make([]*felt.Felt, 0, m)
		for j := 0; j < m; j++ {
			f := r.Felt(field + ".additional_params")
			route.AdditionalParams = append(route.AdditionalParams, &f)
		}
		s.Routes = append(s.Routes, route)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if rest := r.Rest(); len(rest) != 0 {
		return nil, fmt.Errorf("decode routed swap: %d trailing felts", len(rest))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
