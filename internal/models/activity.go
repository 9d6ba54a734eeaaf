package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityLog is one row of a wallet's swap history.
type ActivityLog struct {
	WalletAddress string          `json:"wallet_address"`
	FromToken     string          `json:"from_token"`
	ToToken       string          `json:"to_token"`
	Percentage    int             `json:"percentage"`
	AmountFrom    decimal.Decimal `json:"amount_from"`
	AmountTo      decimal.Decimal `json:"amount_to"`
	TxHash        string          `json:"tx_hash,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ActivityFilter narrows an activity log query. Empty fields match anything.
type ActivityFilter struct {
	WalletAddress string
	FromToken     string
	ToToken       string
	AmountTo      *decimal.Decimal
	Cursor        *time.Time // return rows strictly older than this
	Limit         int
}
