package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/constants"
	"github.com/autoswappr/autoswappr-backend/internal/models"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

func (h *Handlers) badRequest(c echo.Context, msg string, details map[string]any) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: http.StatusBadRequest, Details: details})
}

// address normalizes a starknet address field or reports why it is invalid
func address(field, value string) (string, map[string]any) {
	addr, err := starknet.NormalizeAddress(value)
	if err != nil {
		return "", map[string]any{field: "must be a starknet address"}
	}
	return addr, nil
}

// cursorParam parses an optional RFC3339 cursor
func cursorParam(c echo.Context) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam("cursor"))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Subscribe creates or replaces a wallet's subscription
func (h *Handlers) Subscribe(c echo.Context) error {
	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	wallet, details := address("wallet_address", req.WalletAddress)
	if details != nil {
		return h.badRequest(c, "invalid wallet address", details)
	}
	toToken, details := address("to_token", req.ToToken)
	if details != nil {
		return h.badRequest(c, "invalid to_token", details)
	}
	if len(req.FromTokens) == 0 || len(req.FromTokens) != len(req.Percentages) {
		return h.badRequest(c, "invalid preferences", map[string]any{
			"from_token": "must be non-empty and match percentage in length",
		})
	}

	sub := &models.Subscription{
		WalletAddress: wallet,
		ToToken:       toToken,
		IsActive:      true,
		Preferences:   make([]models.Preference, 0, len(req.FromTokens)),
	}
	seen := make(map[string]bool, len(req.FromTokens))
	for i, raw := range req.FromTokens {
		from, details := address("from_token", raw)
		if details != nil {
			return h.badRequest(c, "invalid from_token", details)
		}
		if from == toToken {
			return h.badRequest(c, "invalid from_token", map[string]any{"from_token": "equals to_token"})
		}
		if seen[from] {
			return h.badRequest(c, "invalid from_token", map[string]any{"from_token": "duplicate " + from})
		}
		seen[from] = true

		p := req.Percentages[i]
		if p < 1 || p > 100 {
			return h.badRequest(c, "invalid percentage", map[string]any{"percentage": "min 1 max 100"})
		}
		sub.Preferences = append(sub.Preferences, models.Preference{FromToken: from, Percentage: p})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.DB.UpsertSubscription(ctx, sub); err != nil {
		h.log().WithError(err).WithField("wallet", wallet).Error("Failed to save subscription")
		return h.err(c, http.StatusInternalServerError, "failed to save subscription", map[string]any{"err": err.Error()})
	}

	h.log().WithFields(logrus.Fields{
		"wallet":      wallet,
		"to_token":    toToken,
		"preferences": len(sub.Preferences),
	}).Info("Subscription saved")
	return c.JSON(http.StatusCreated, sub)
}

// Subscriptions lists a wallet's preferences, newest first, one page per call
func (h *Handlers) Subscriptions(c echo.Context) error {
	wallet, details := address("wallet_address", c.QueryParam("wallet_address"))
	if details != nil {
		return h.badRequest(c, "invalid wallet address", details)
	}
	cursor, err := cursorParam(c)
	if err != nil {
		return h.badRequest(c, "invalid cursor", map[string]any{"cursor": "must be RFC3339"})
	}
	before := time.Now().UTC()
	if cursor != nil {
		before = *cursor
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.DB.ListSubscriptionEntries(ctx, wallet, before, constants.PageSize)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list subscriptions", map[string]any{"err": err.Error()})
	}

	resp := SubscriptionsResponse{Items: items}
	if resp.Items == nil {
		resp.Items = []models.SubscriptionEntry{}
	}
	if len(items) == constants.PageSize {
		next := items[len(items)-1].CreatedAt
		resp.NextCursor = &next
	}
	return c.JSON(http.StatusOK, resp)
}

// Unsubscribe removes one source token from a wallet's subscription
func (h *Handlers) Unsubscribe(c echo.Context) error {
	var req UnsubscribeRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	wallet, details := address("wallet_address", req.WalletAddress)
	if details != nil {
		return h.badRequest(c, "invalid wallet address", details)
	}
	from, details := address("from_token", req.FromToken)
	if details != nil {
		return h.badRequest(c, "invalid from_token", details)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.DB.DeletePreference(ctx, wallet, from)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to unsubscribe", map[string]any{"err": err.Error()})
	}
	if !ok {
		return h.err(c, http.StatusNotFound, "subscription not found", nil)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Unsubscribed successfully"})
}

// UpdatePercentage changes the share of one source token. A full 100 is
// rejected here; subscribe again to swap everything.
func (h *Handlers) UpdatePercentage(c echo.Context) error {
	var req UpdatePercentageRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	wallet, details := address("wallet_address", req.WalletAddress)
	if details != nil {
		return h.badRequest(c, "invalid wallet address", details)
	}
	from, details := address("from_token", req.FromToken)
	if details != nil {
		return h.badRequest(c, "invalid from_token", details)
	}
	if req.Percentage <= 0 || req.Percentage >= 100 {
		return h.badRequest(c, "invalid percentage", map[string]any{"percentage": "min 1 max 99"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.DB.UpdatePercentage(ctx, wallet, from, req.Percentage)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update percentage", map[string]any{"err": err.Error()})
	}
	if !ok {
		return h.err(c, http.StatusNotFound, "subscription not found", nil)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Percentage updated successfully"})
}

// LogTransaction appends a row to the activity log
func (h *Handlers) LogTransaction(c echo.Context) error {
	var req LogTransactionRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	entry := &models.ActivityLog{Percentage: req.Percentage, CreatedAt: time.Now().UTC()}
	var details map[string]any
	if entry.WalletAddress, details = address("wallet_address", req.WalletAddress); details != nil {
		return h.badRequest(c, "invalid wallet address", details)
	}
	if entry.FromToken, details = address("from_token", req.FromToken); details != nil {
		return h.badRequest(c, "invalid from_token", details)
	}
	if entry.ToToken, details = address("to_token", req.ToToken); details != nil {
		return h.badRequest(c, "invalid to_token", details)
	}
	if req.Percentage < 1 || req.Percentage > 100 {
		return h.badRequest(c, "invalid percentage", map[string]any{"percentage": "min 1 max 100"})
	}

	var err error
	if entry.AmountFrom, err = nonNegative(req.AmountFrom); err != nil {
		return h.badRequest(c, "invalid amount_from", map[string]any{"amount_from": err.Error()})
	}
	if entry.AmountTo, err = nonNegative(req.AmountTo); err != nil {
		return h.badRequest(c, "invalid amount_to", map[string]any{"amount_to": err.Error()})
	}
	if req.TxHash != "" {
		hash, err := starknet.FeltFromHex(req.TxHash)
		if err != nil {
			return h.badRequest(c, "invalid tx_hash", map[string]any{"tx_hash": "must be a hex felt"})
		}
		entry.TxHash = starknet.PaddedHex(hash)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.DB.LogActivity(ctx, entry); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to log transaction", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusCreated, MessageResponse{Message: "Transaction logged successfully"})
}

// LogRetrieval returns the filtered activity log, one page per call
func (h *Handlers) LogRetrieval(c echo.Context) error {
	filter := models.ActivityFilter{Limit: constants.PageSize}

	for name, dst := range map[string]*string{
		"wallet_address": &filter.WalletAddress,
		"from_token":     &filter.FromToken,
		"to_token":       &filter.ToToken,
	} {
		raw := strings.TrimSpace(c.QueryParam(name))
		if raw == "" {
			continue
		}
		v, details := address(name, raw)
		if details != nil {
			return h.badRequest(c, "invalid "+name, details)
		}
		*dst = v
	}
	if raw := strings.TrimSpace(c.QueryParam("amount_to")); raw != "" {
		amt, err := nonNegative(raw)
		if err != nil {
			return h.badRequest(c, "invalid amount_to", map[string]any{"amount_to": err.Error()})
		}
		filter.AmountTo = &amt
	}
	cursor, err := cursorParam(c)
	if err != nil {
		return h.badRequest(c, "invalid cursor", map[string]any{"cursor": "must be RFC3339"})
	}
	filter.Cursor = cursor

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.DB.ListActivity(ctx, filter)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to retrieve logs", map[string]any{"err": err.Error()})
	}

	resp := ActivityResponse{Items: items}
	if resp.Items == nil {
		resp.Items = []models.ActivityLog{}
	}
	if len(items) == constants.PageSize {
		next := items[len(items)-1].CreatedAt
		resp.NextCursor = &next
	}
	return c.JSON(http.StatusOK, resp)
}

var errNegative = errors.New("must not be negative")

func nonNegative(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, errors.New("must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Decimal{}, errNegative
	}
	return d, nil
}
