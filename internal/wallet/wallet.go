// Package wallet is the Starknet account the swap engine submits through. It
// owns the signing key, allocates nonces and broadcasts signed INVOKE v3
// transactions.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/constants"
	projectrpc "github.com/autoswappr/autoswappr-backend/internal/rpc"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

var (
	ErrSigning   = errors.New("signing failed")
	ErrTransport = errors.New("provider unreachable")
	ErrRejected  = errors.New("transaction rejected")
)

// RejectionError is a JSON-RPC error returned for a submitted transaction.
type RejectionError struct {
	Code    int
	Message string
	Data    string
}

func (e *RejectionError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("transaction rejected (%d): %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("transaction rejected (%d): %s", e.Code, e.Message)
}

func (e *RejectionError) Unwrap() error { return ErrRejected }

type WalletConfig struct {
	RPCURL       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	PrivateKey     string // 0x-prefixed hex scalar
	AccountAddress string
	ChainID        string // short string such as SN_MAIN, or a hex felt

	ResourceBounds ResourceBounds
	Logger         *logrus.Logger
}

type Wallet struct {
	cfg     WalletConfig
	rpc     *projectrpc.Client
	signer  *StarkSigner
	address *felt.Felt
	chainID *felt.Felt
	logger  *logrus.Logger

	mu    sync.Mutex
	nonce *felt.Felt // next nonce to use; nil means refetch
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("wallet: RPCURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 1 * time.Second
	}
	if cfg.ChainID == "" {
		cfg.ChainID = constants.ChainIDMainnet
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("wallet: PrivateKey is required")
	}

	signer, err := NewStarkSigner(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	address, err := starknet.ParseAddress(cfg.AccountAddress)
	if err != nil {
		return nil, fmt.Errorf("wallet: AccountAddress: %w", err)
	}

	chainID, err := parseChainID(cfg.ChainID)
	if err != nil {
		return nil, err
	}

	rpcClient := projectrpc.NewClient(projectrpc.ClientConfig{
		BaseURL:      cfg.RPCURL,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       cfg.Logger,
	})

	return &Wallet{
		cfg:     cfg,
		rpc:     rpcClient,
		signer:  signer,
		address: address,
		chainID: chainID,
		logger:  cfg.Logger,
	}, nil
}

func parseChainID(s string) (*felt.Felt, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		f, err := starknet.FeltFromHex(s)
		if err != nil {
			return nil, fmt.Errorf("wallet: ChainID: %w", err)
		}
		return f, nil
	}
	f, err := starknet.ShortString(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: ChainID: %w", err)
	}
	return f, nil
}

func (w *Wallet) Address() *felt.Felt     { return new(felt.Felt).Set(w.address) }
func (w *Wallet) ChainID() *felt.Felt     { return new(felt.Felt).Set(w.chainID) }
func (w *Wallet) PublicKey() *felt.Felt   { return w.signer.PublicKey() }
func (w *Wallet) RPC() *projectrpc.Client { return w.rpc }
func (w *Wallet) Close() error            { return nil }

// VerifyChain checks that the node serves the configured chain.
func (w *Wallet) VerifyChain(ctx context.Context) error {
	id, err := w.rpc.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: starknet_chainId: %v", ErrTransport, err)
	}
	got, err := starknet.FeltFromHex(id)
	if err != nil {
		return fmt.Errorf("starknet_chainId returned %q: %w", id, err)
	}
	if !got.Equal(w.chainID) {
		return fmt.Errorf("wallet: node chain id %s does not match configured %s", got, w.chainID)
	}
	return nil
}

// nonceLocked returns the next nonce, fetching it at the pending block when
// the cache is empty. Callers hold w.mu.
func (w *Wallet) nonceLocked(ctx context.Context) (*felt.Felt, error) {
	if w.nonce != nil {
		return w.nonce, nil
	}
	raw, err := w.rpc.GetNonce(ctx, constants.BlockTagPending, w.address.String())
	if err != nil {
		var rpcErr *projectrpc.RPCError
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w: starknet_getNonce: %v", ErrRejected, err)
		}
		return nil, fmt.Errorf("%w: starknet_getNonce: %v", ErrTransport, err)
	}
	nonce, err := starknet.FeltFromHex(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: starknet_getNonce returned %q", ErrTransport, raw)
	}
	w.nonce = nonce
	return nonce, nil
}

// Execute signs calls as one multicall transaction and submits it once. The
// account contract runs the calls in order and reverts all of them if any
// fails. The returned hash is the one acknowledged by the node.
func (w *Wallet) Execute(ctx context.Context, calls []starknet.Call) (*felt.Felt, error) {
	calldata, err := starknet.EncodeMulticall(calls)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	nonce, err := w.nonceLocked(ctx)
	if err != nil {
		return nil, err
	}

	tx := &InvokeV3{
		SenderAddress:  w.address,
		Calldata:       calldata,
		Nonce:          nonce,
		ChainID:        w.chainID,
		ResourceBounds: w.cfg.ResourceBounds,
		NonceDAMode:    DAModeL1,
		FeeDAMode:      DAModeL1,
	}

	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	r, s, err := w.signer.Sign(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	res, err := w.rpc.AddInvokeTransaction(ctx, tx.toRPC([]*felt.Felt{r, s}))
	if err != nil {
		// the node may have seen the transaction; resync before the next use
		w.nonce = nil
		var rpcErr *projectrpc.RPCError
		if errors.As(err, &rpcErr) {
			return nil, &RejectionError{Code: rpcErr.Code, Message: rpcErr.Message, Data: string(rpcErr.Data)}
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	w.nonce = new(felt.Felt).Add(nonce, starknet.FeltFromUint64(1))

	txHash, err := starknet.FeltFromHex(res.TransactionHash)
	if err != nil {
		w.logger.WithField("transaction_hash", res.TransactionHash).Warn("node returned a malformed transaction hash")
		return hash, nil
	}
	if !txHash.Equal(hash) {
		w.logger.WithFields(logrus.Fields{
			"local":  hash.String(),
			"remote": txHash.String(),
		}).Warn("transaction hash mismatch")
	}
	return txHash, nil
}

// TransactionStatus reports the finality of a submitted transaction.
func (w *Wallet) TransactionStatus(ctx context.Context, hash *felt.Felt) (*projectrpc.TransactionStatus, error) {
	return w.rpc.GetTransactionStatus(ctx, hash.String())
}
