package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is an HTTP client with retry and timeout support for a Starknet
// JSON-RPC node
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger
}

// ClientConfig holds configuration for the RPC client
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// NewClient creates a new RPC client with retry support
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      cfg.BaseURL,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}
}

// Call makes a JSON-RPC call with retry logic. Only use it for idempotent
// methods: a request whose response was lost is sent again.
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	return c.call(ctx, method, params, result, c.maxRetries)
}

// CallOnce makes a JSON-RPC call with a single attempt. Transaction
// submission goes through here so a transaction is never broadcast twice.
func (c *Client) CallOnce(ctx context.Context, method string, params interface{}, result interface{}) error {
	return c.call(ctx, method, params, result, 0)
}

func (c *Client) call(ctx context.Context, method string, params interface{}, result interface{}, maxRetries int) error {
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"method":  method,
			}).Debug("retrying RPC call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2 // exponential backoff
		}

		resp, err := c.doRequest(ctx, data)
		if err != nil {
			lastErr = err
			continue
		}

		if err := json.Unmarshal(resp, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}

		return nil
	}

	if maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// ChainID returns the chain id of the node as a hex felt
func (c *Client) ChainID(ctx context.Context) (string, error) {
	var result FeltResponse
	if err := c.Call(ctx, "starknet_chainId", []interface{}{}, &result); err != nil {
		return "", err
	}

	if result.Error != nil {
		return "", result.Error
	}

	return result.Result, nil
}

// GetNonce returns the nonce of an account at the given block tag
func (c *Client) GetNonce(ctx context.Context, blockTag, address string) (string, error) {
	params := []interface{}{blockTag, address}

	var result FeltResponse
	if err := c.Call(ctx, "starknet_getNonce", params, &result); err != nil {
		return "", err
	}

	if result.Error != nil {
		return "", result.Error
	}

	return result.Result, nil
}

// CallContract runs a read-only entry point and returns its felts
func (c *Client) CallContract(ctx context.Context, call FunctionCall, blockTag string) ([]string, error) {
	if call.Calldata == nil {
		call.Calldata = []string{}
	}
	params := []interface{}{call, blockTag}

	var result FeltsResponse
	if err := c.Call(ctx, "starknet_call", params, &result); err != nil {
		return nil, err
	}

	if result.Error != nil {
		return nil, result.Error
	}

	return result.Result, nil
}

// AddInvokeTransaction broadcasts a signed transaction. It is never retried.
func (c *Client) AddInvokeTransaction(ctx context.Context, tx InvokeTransactionV3) (*AddInvokeResult, error) {
	params := map[string]interface{}{"invoke_transaction": tx}

	var result AddInvokeResponse
	if err := c.CallOnce(ctx, "starknet_addInvokeTransaction", params, &result); err != nil {
		return nil, err
	}

	if result.Error != nil {
		return nil, result.Error
	}
	if result.Result == nil {
		return nil, fmt.Errorf("empty starknet_addInvokeTransaction result")
	}

	return result.Result, nil
}

// GetTransactionStatus fetches the finality and execution status of a transaction
func (c *Client) GetTransactionStatus(ctx context.Context, hash string) (*TransactionStatus, error) {
	params := []interface{}{hash}

	var result TransactionStatusResponse
	if err := c.Call(ctx, "starknet_getTransactionStatus", params, &result); err != nil {
		return nil, err
	}

	if result.Error != nil {
		return nil, result.Error
	}
	if result.Result == nil {
		return nil, fmt.Errorf("empty starknet_getTransactionStatus result")
	}

	return result.Result, nil
}
