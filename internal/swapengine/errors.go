package swapengine

import (
	"errors"
	"fmt"

	"github.com/autoswappr/autoswappr-backend/internal/starknet"
	"github.com/autoswappr/autoswappr-backend/internal/wallet"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNotFound means there is nothing to do for the wallet. It is a
	// neutral outcome, not a failure.
	ErrNotFound = errors.New("no active subscription")

	// ErrDisabled is returned while the auto-swap kill switch is off.
	ErrDisabled = errors.New("auto-swap disabled")

	// ErrEncodingOverflow is a defect: the calculator bounds every value the
	// composer encodes.
	ErrEncodingOverflow = starknet.ErrEncodingOverflow

	ErrSigning   = wallet.ErrSigning
	ErrTransport = wallet.ErrTransport
	ErrRejected  = wallet.ErrRejected
)

// ValidationError reports a bad caller input. Err is one of ErrInvalidAmount,
// ErrInvalidToken or ErrInvalidAddress.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalidAmount(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, Err: ErrInvalidAmount}
}

func invalidToken(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, Err: ErrInvalidToken}
}

func invalidAddress(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, Err: ErrInvalidAddress}
}

type ProviderErrorKind int

const (
	ProviderSigning ProviderErrorKind = iota + 1
	ProviderTransport
	ProviderRejected
)

func (k ProviderErrorKind) String() string {
	switch k {
	case ProviderSigning:
		return "signing"
	case ProviderTransport:
		return "transport"
	case ProviderRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ProviderError is a failure of the signer or the node during submission.
// Whether the chain saw the transaction is unknown for transport failures.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s error: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classifyProviderError maps an account error onto a ProviderError kind.
// Encoding errors are passed through untouched.
func classifyProviderError(err error) error {
	var encErr *starknet.EncodingError
	switch {
	case errors.As(err, &encErr):
		return err
	case errors.Is(err, wallet.ErrSigning):
		return &ProviderError{Kind: ProviderSigning, Err: err}
	case errors.Is(err, wallet.ErrRejected):
		return &ProviderError{Kind: ProviderRejected, Err: err}
	default:
		return &ProviderError{Kind: ProviderTransport, Err: err}
	}
}
