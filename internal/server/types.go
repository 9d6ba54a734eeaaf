package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/autoswappr/autoswappr-backend/internal/models"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode and validation only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK       bool              `json:"ok"`
	Services map[string]string `json:"services,omitempty"` // per dependency: "ok" or "down"
}

// MessageResponse carries a plain outcome message
type MessageResponse struct {
	Message string `json:"message"`
}

// PriceResponse represents token price information
type PriceResponse struct {
	Token string          `json:"token"` // Token symbol (uppercase)
	Price decimal.Decimal `json:"price"` // USD price
}

// AllowanceResponse is an ERC-20 allowance in base units
type AllowanceResponse struct {
	Token     string `json:"token"`
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance string `json:"allowance"`
}

// TransactionStatusResponse reports the finality of a submitted transaction
type TransactionStatusResponse struct {
	TxHash          string `json:"tx_hash"`
	FinalityStatus  string `json:"finality_status"`
	ExecutionStatus string `json:"execution_status,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
}

// SubscribeRequest creates or replaces a wallet's subscription. FromTokens and
// Percentages are parallel lists.
type SubscribeRequest struct {
	WalletAddress string   `json:"wallet_address"`
	ToToken       string   `json:"to_token"`
	FromTokens    []string `json:"from_token"`
	Percentages   []int    `json:"percentage"`
}

// SubscriptionsResponse is one page of a wallet's preferences
type SubscriptionsResponse struct {
	Items      []models.SubscriptionEntry `json:"items"`
	NextCursor *time.Time                 `json:"next_cursor,omitempty"`
}

// UnsubscribeRequest removes one source token from a subscription
type UnsubscribeRequest struct {
	WalletAddress string `json:"wallet_address"`
	FromToken     string `json:"from_token"`
}

// UpdatePercentageRequest changes the share swapped for one source token
type UpdatePercentageRequest struct {
	WalletAddress string `json:"wallet_address"`
	FromToken     string `json:"from_token"`
	Percentage    int    `json:"percentage"`
}

// LogTransactionRequest appends one row to the activity log. Amounts are
// decimal strings.
type LogTransactionRequest struct {
	WalletAddress string `json:"wallet_address"`
	FromToken     string `json:"from_token"`
	ToToken       string `json:"to_token"`
	Percentage    int    `json:"percentage"`
	AmountFrom    string `json:"amount_from"`
	AmountTo      string `json:"amount_to"`
	TxHash        string `json:"tx_hash,omitempty"`
}

// ActivityResponse is one page of the activity log
type ActivityResponse struct {
	Items      []models.ActivityLog `json:"items"`
	NextCursor *time.Time           `json:"next_cursor,omitempty"`
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}
