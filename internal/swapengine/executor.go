package swapengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

// Account signs and submits a multicall. wallet.Wallet implements it.
type Account interface {
	Address() *felt.Felt
	ChainID() *felt.Felt
	Execute(ctx context.Context, calls []starknet.Call) (*felt.Felt, error)
}

// Submission is the receipt of an accepted bundle. The transaction is
// pending; acceptance by the node says nothing about on-chain success.
type Submission struct {
	TxHash      *felt.Felt
	SubmittedAt time.Time
	Calls       int
}

// Executor submits a CallBundle as one transaction through the account's
// __execute__ entry point. Either every call takes effect or none does; the
// executor never rolls back, retries or resubmits.
type Executor struct {
	account Account
	logger  *logrus.Logger
}

func NewExecutor(account Account, logger *logrus.Logger) (*Executor, error) {
	if account == nil {
		return nil, errors.New("account is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Executor{account: account, logger: logger}, nil
}

// Account returns the account bundles are submitted from.
func (e *Executor) Account() Account { return e.account }

// Execute submits the bundle exactly once. Failures come back as
// *ProviderError, or as an encoding error when the bundle itself is malformed.
func (e *Executor) Execute(ctx context.Context, bundle CallBundle) (*Submission, error) {
	if len(bundle) == 0 {
		return nil, errors.New("empty call bundle")
	}

	start := time.Now()
	hash, err := e.account.Execute(ctx, bundle)
	if err != nil {
		typed := classifyProviderError(err)
		var pErr *ProviderError
		if !errors.As(typed, &pErr) {
			// encoding failures are logged by the caller
			return nil, typed
		}
		e.logger.WithFields(logrus.Fields{
			"account": starknet.PaddedHex(e.account.Address()),
			"calls":   len(bundle),
			"error":   err.Error(),
		}).Error("Transaction submission failed")
		return nil, typed
	}
	if hash == nil {
		return nil, &ProviderError{Kind: ProviderTransport, Err: fmt.Errorf("node returned no transaction hash")}
	}

	e.logger.WithFields(logrus.Fields{
		"account": starknet.PaddedHex(e.account.Address()),
		"tx_hash": hash.String(),
		"calls":   len(bundle),
		"took":    time.Since(start).String(),
	}).Info("Transaction submitted")

	return &Submission{TxHash: hash, SubmittedAt: time.Now(), Calls: len(bundle)}, nil
}
