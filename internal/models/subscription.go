package models

import "time"

// Subscription is a wallet's standing auto-swap preference.
type Subscription struct {
	WalletAddress string       `json:"wallet_address"`
	ToToken       string       `json:"to_token"`
	IsActive      bool         `json:"is_active"`
	Preferences   []Preference `json:"preferences"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Preference is the share of one source token that gets swapped on receipt.
type Preference struct {
	FromToken  string `json:"from_token"`
	Percentage int    `json:"percentage"`
}

// Preference returns the preference for fromToken, or the first one when
// fromToken is empty.
func (s *Subscription) Preference(fromToken string) (Preference, bool) {
	if len(s.Preferences) == 0 {
		return Preference{}, false
	}
	if fromToken == "" {
		return s.Preferences[0], true
	}
	for _, p := range s.Preferences {
		if p.FromToken == fromToken {
			return p, true
		}
	}
	return Preference{}, false
}

// SubscriptionEntry is one preference row joined with its subscription, the
// unit the subscription listing pages over.
type SubscriptionEntry struct {
	FromToken  string    `json:"from_token"`
	ToToken    string    `json:"to_token"`
	Percentage int       `json:"percentage"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
