package swapengine

import (
	"fmt"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"

	"github.com/autoswappr/autoswappr-backend/internal/avnu"
	"github.com/autoswappr/autoswappr-backend/internal/constants"
	"github.com/autoswappr/autoswappr-backend/internal/ekubo"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

// CallBundle is an ordered list of calls submitted as one transaction.
type CallBundle []starknet.Call

// Composer turns a swap amount into the fund movement and swap calls.
type Composer struct {
	amm *felt.Felt
}

// NewComposer binds the composer to the AMM (or exchange) contract that
// receives the funds and executes the swap.
func NewComposer(ammContract string) (*Composer, error) {
	amm, err := starknet.ParseAddress(ammContract)
	if err != nil {
		return nil, invalidAddress("amm_contract", err.Error())
	}
	return &Composer{amm: amm}, nil
}

// AMMContract returns the contract the bundles target.
func (c *Composer) AMMContract() *felt.Felt { return new(felt.Felt).Set(c.amm) }

func parseTokenPair(tokenFrom, tokenTo string) (*felt.Felt, *felt.Felt, error) {
	from, err := starknet.ParseAddress(tokenFrom)
	if err != nil {
		return nil, nil, invalidToken("token_from", err.Error())
	}
	to, err := starknet.ParseAddress(tokenTo)
	if err != nil {
		return nil, nil, invalidToken("token_to", err.Error())
	}
	if from.Equal(to) {
		return nil, nil, invalidToken("token_to", "equals token_from")
	}
	return from, to, nil
}

// Compose builds [transfer(token_from -> amm), swap(amm, SwapData)]. The swap
// sells exactly swapAmount of token_from, bounded by the fixed sqrt ratio
// limit.
func (c *Composer) Compose(tokenFrom, tokenTo string, swapAmount *uint256.Int, caller *felt.Felt) (CallBundle, error) {
	from, to, err := parseTokenPair(tokenFrom, tokenTo)
	if err != nil {
		return nil, err
	}
	if swapAmount == nil || swapAmount.IsZero() {
		return nil, invalidAmount("swap_amount", "must be greater than zero")
	}
	if caller == nil {
		return nil, invalidAddress("caller", "missing")
	}

	key := ekubo.NewPoolKey(from, to)
	params := ekubo.NewSwapParameters(ekubo.NewI129(swapAmount, false), false)
	swapData, err := ekubo.NewSwapData(params, key, caller).Encode()
	if err != nil {
		return nil, fmt.Errorf("encode swap data: %w", err)
	}

	w := starknet.NewWriter(3)
	w.Felt("recipient", c.amm)
	w.U256("amount", swapAmount)
	transfer, err := w.Result()
	if err != nil {
		return nil, fmt.Errorf("encode transfer: %w", err)
	}

	return CallBundle{
		starknet.NewCall(from, constants.EntrypointTransfer, transfer),
		starknet.NewCall(c.amm, constants.EntrypointSwap, swapData),
	}, nil
}

// ComposeRouted builds [approve(token_from, exchange), anvu_swap(exchange, ...)]
// for a routed swap whose legs were chosen by the caller.
func (c *Composer) ComposeRouted(s *avnu.Swap) (CallBundle, error) {
	if s == nil {
		return nil, invalidAmount("swap", "missing")
	}
	if s.From.Address.Equal(&s.To.Address) {
		return nil, invalidToken("token_to", "equals token_from")
	}
	if s.From.Amount.IsZero() {
		return nil, invalidAmount("amount_from", "must be greater than zero")
	}
	if s.To.MinAmount.Gt(&s.To.Amount) {
		return nil, invalidAmount("min_amount_to", "exceeds amount_to")
	}

	swapData, err := s.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode routed swap: %w", err)
	}

	w := starknet.NewWriter(3)
	w.Felt("spender", c.amm)
	w.U256("amount", &s.From.Amount)
	approve, err := w.Result()
	if err != nil {
		return nil, fmt.Errorf("encode approve: %w", err)
	}

	from := s.From.Address
	return CallBundle{
		starknet.NewCall(&from, constants.EntrypointApprove, approve),
		starknet.NewCall(c.amm, constants.EntrypointRoutedSwap, swapData),
	}, nil
}
