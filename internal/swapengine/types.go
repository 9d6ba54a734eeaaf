package swapengine

import (
	"fmt"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"

	"github.com/autoswappr/autoswappr-backend/internal/avnu"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

// AutoSwapRequest is an incoming transfer to a subscribed wallet.
type AutoSwapRequest struct {
	Wallet string `json:"to"`    // the receiving, subscribed wallet
	Value  int64  `json:"value"` // whole units of the source token

	// FromToken selects the preference; empty takes the first one.
	FromToken string `json:"from_token,omitempty"`
}

// Validate checks the request before any lookup.
func (r *AutoSwapRequest) Validate() error {
	if !starknet.IsAddress(r.Wallet) {
		return invalidAddress("to", "not a starknet address")
	}
	if r.Value <= 0 {
		return invalidAmount("value", "must be greater than zero")
	}
	if r.FromToken != "" && !starknet.IsAddress(r.FromToken) {
		return invalidToken("from_token", "not a starknet address")
	}
	return nil
}

// AutoSwapResult is returned once the bundle has been accepted by the node.
type AutoSwapResult struct {
	ExecutionID string        `json:"execution_id"`
	TxHash      string        `json:"tx_hash"`
	SwapAmount  string        `json:"swap_amount"` // base units
	FromToken   string        `json:"from_token"`
	ToToken     string        `json:"to_token"`
	Percentage  int           `json:"percentage"`
	Message     string        `json:"message"`
	Duration    time.Duration `json:"-"`
}

// PlannedCall is a Call rendered as hex strings.
type PlannedCall struct {
	To       string   `json:"to"`
	Selector string   `json:"selector"`
	Calldata []string `json:"calldata"`
}

// Plan is everything AutoSwap would submit, without submitting it.
type Plan struct {
	Wallet     string        `json:"wallet"`
	FromToken  string        `json:"from_token"`
	ToToken    string        `json:"to_token"`
	Percentage int           `json:"percentage"`
	SwapAmount string        `json:"swap_amount"`
	Calls      []PlannedCall `json:"calls"`

	bundle CallBundle
}

// Bundle returns the composed calls.
func (p *Plan) Bundle() CallBundle { return p.bundle }

func describeCalls(bundle CallBundle) []PlannedCall {
	out := make([]PlannedCall, len(bundle))
	for i, c := range bundle {
		out[i] = PlannedCall{
			To:       starknet.PaddedHex(c.To),
			Selector: c.Selector.String(),
			Calldata: starknet.HexFelts(c.Calldata),
		}
	}
	return out
}

// RouteRequest is one caller-chosen leg of a routed swap.
type RouteRequest struct {
	TokenFrom        string   `json:"token_from"`
	TokenTo          string   `json:"token_to"`
	Exchange         string   `json:"exchange"`
	Percent          uint64   `json:"percent"`
	AdditionalParams []string `json:"additional_params,omitempty"`
}

// RoutedSwapRequest asks for a swap through supplied routes. Amounts are
// decimal strings in base units.
type RoutedSwapRequest struct {
	TokenFrom              string         `json:"token_from"`
	AmountFrom             string         `json:"amount_from"`
	TokenTo                string         `json:"token_to"`
	AmountTo               string         `json:"amount_to"`
	MinAmountTo            string         `json:"min_amount_to"`
	Beneficiary            string         `json:"beneficiary,omitempty"`
	IntegratorFeeBps       uint64         `json:"integrator_fee_bps"`
	IntegratorFeeRecipient string         `json:"integrator_fee_recipient,omitempty"`
	Routes                 []RouteRequest `json:"routes"`
}

// Parse converts the request to the codec's form. An empty beneficiary
// becomes defaultBeneficiary.
func (r *RoutedSwapRequest) Parse(defaultBeneficiary *felt.Felt) (*avnu.Swap, error) {
	from, to, err := parseTokenPair(r.TokenFrom, r.TokenTo)
	if err != nil {
		return nil, err
	}

	s := &avnu.Swap{
		From: avnu.TokenFrom{Address: *from},
		To:   avnu.TokenTo{Address: *to},
	}
	if err := parseAmount("amount_from", r.AmountFrom, &s.From.Amount, true); err != nil {
		return nil, err
	}
	if err := parseAmount("amount_to", r.AmountTo, &s.To.Amount, false); err != nil {
		return nil, err
	}
	if err := parseAmount("min_amount_to", r.MinAmountTo, &s.To.MinAmount, false); err != nil {
		return nil, err
	}
	if r.IntegratorFeeBps > 10_000 {
		return nil, invalidAmount("integrator_fee_bps", "exceeds 10000")
	}
	s.IntegratorFeeBps.SetUint64(r.IntegratorFeeBps)

	if err := parseOptionalAddress("beneficiary", r.Beneficiary, defaultBeneficiary, &s.Beneficiary); err != nil {
		return nil, err
	}
	if err := parseOptionalAddress("integrator_fee_recipient", r.IntegratorFeeRecipient, new(felt.Felt), &s.IntegratorFeeRecipient); err != nil {
		return nil, err
	}

	if len(r.Routes) == 0 {
		return nil, invalidToken("routes", "at least one route is required")
	}
	s.Routes = make([]avnu.Route, len(r.Routes))
	for i, rr := range r.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		legFrom, legTo, err := parseTokenPair(rr.TokenFrom, rr.TokenTo)
		if err != nil {
			return nil, invalidToken(field, err.Error())
		}
		exchange, err := starknet.ParseAddress(rr.Exchange)
		if err != nil {
			return nil, invalidAddress(field+".exchange", err.Error())
		}
		if rr.Percent == 0 || rr.Percent > 100 {
			return nil, invalidAmount(field+".percent", "must be within 1..100")
		}

		extra := make([]*felt.Felt, len(rr.AdditionalParams))
		for j, p := range rr.AdditionalParams {
			if extra[j], err = starknet.FeltFromHex(p); err != nil {
				return nil, invalidAmount(fmt.Sprintf("%s.additional_params[%d]", field, j), err.Error())
			}
		}

		s.Routes[i] = avnu.Route{
			TokenFrom:        *legFrom,
			TokenTo:          *legTo,
			Exchange:         *exchange,
			AdditionalParams: extra,
		}
		s.Routes[i].Percent.SetUint64(rr.Percent)
	}
	if err := s.Validate(); err != nil {
		return nil, invalidAmount("routes", err.Error())
	}
	return s, nil
}

func parseAmount(field, s string, dst *uint256.Int, positive bool) error {
	if s == "" {
		return invalidAmount(field, "missing")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return invalidAmount(field, "not a decimal integer")
	}
	if v.BitLen() > 128 {
		return invalidAmount(field, "exceeds 128 bits")
	}
	if positive && v.IsZero() {
		return invalidAmount(field, "must be greater than zero")
	}
	dst.Set(v)
	return nil
}

func parseOptionalAddress(field, s string, def *felt.Felt, dst *felt.Felt) error {
	if s == "" {
		if def == nil {
			return invalidAddress(field, "missing")
		}
		dst.Set(def)
		return nil
	}
	addr, err := starknet.ParseAddress(s)
	if err != nil {
		return invalidAddress(field, err.Error())
	}
	dst.Set(addr)
	return nil
}
