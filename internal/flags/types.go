package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// Runtime switches read by the swap engine.
const (
	// KeyAutoSwapEnabled is the kill switch for every submission.
	KeyAutoSwapEnabled = "autoswap.enabled"
	// KeyRoutedEnabled gates the routed swap variant.
	KeyRoutedEnabled = "autoswap.routed"
)

// Defaults apply while a known switch has never been written.
var Defaults = map[string]bool{
	KeyAutoSwapEnabled: true,
	KeyRoutedEnabled:   false,
}

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	Default   bool      `json:"default,omitempty"` // not stored, value from Defaults
}
