package models

import "time"

// SwapEvent is broadcast and archived for every submitted auto-swap.
type SwapEvent struct {
	ExecutionID string    `json:"execution_id"`
	TxHash      string    `json:"tx_hash"`
	Timestamp   time.Time `json:"timestamp"`
	Wallet      string    `json:"wallet"`
	FromToken   string    `json:"from_token"`
	ToToken     string    `json:"to_token"`
	Pair        string    `json:"pair"`
	Amount      string    `json:"amount"` // raw base units, decimal
	Percentage  int       `json:"percentage"`
	Routed      bool      `json:"routed"`
	DurationMS  int64     `json:"duration_ms"`
}
