package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/autoswappr/autoswappr-backend/internal/swapengine"
)

// AutoSwap swaps the subscribed share of an incoming transfer
func (h *Handlers) AutoSwap(c echo.Context) error {
	var req swapengine.AutoSwapRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	res, err := h.Swaps.AutoSwap(c.Request().Context(), req)
	if err != nil {
		return h.swapError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RoutedSwap swaps through caller-supplied routes from the service account
func (h *Handlers) RoutedSwap(c echo.Context) error {
	var req swapengine.RoutedSwapRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	res, err := h.Swaps.RoutedSwap(c.Request().Context(), req)
	if err != nil {
		return h.swapError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// swapError maps an engine outcome onto the response envelope. Nothing to
// swap is not an error for the caller.
func (h *Handlers) swapError(c echo.Context, err error) error {
	var vErr *swapengine.ValidationError
	var pErr *swapengine.ProviderError
	switch {
	case errors.As(err, &vErr):
		return h.badRequest(c, vErr.Err.Error(), map[string]any{vErr.Field: vErr.Reason})
	case errors.Is(err, swapengine.ErrNotFound):
		return c.JSON(http.StatusOK, MessageResponse{Message: "No active subscription for this wallet, nothing to swap"})
	case errors.Is(err, swapengine.ErrDisabled):
		return h.err(c, http.StatusServiceUnavailable, "auto-swap is disabled", nil)
	case errors.As(err, &pErr):
		code := http.StatusBadGateway
		if pErr.Kind == swapengine.ProviderSigning {
			code = http.StatusInternalServerError
		}
		return h.err(c, code, fmt.Sprintf("transaction %s failed", pErr.Kind), map[string]any{"err": err.Error()})
	default:
		h.log().WithError(err).Error("Swap failed")
		return h.err(c, http.StatusInternalServerError, "swap failed", map[string]any{"err": err.Error()})
	}
}

// StreamSwaps relays executed swaps as server-sent events until the client
// goes away
func (h *Handlers) StreamSwaps(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.Cache.SubscribeSwaps(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to subscribe", map[string]any{"err": err.Error()})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	h.log().WithField("remote", c.RealIP()).Debug("Swap stream opened")
	for {
		select {
		case <-ctx.Done():
			h.log().WithField("remote", c.RealIP()).Debug("Swap stream closed")
			return nil
		case <-keepAlive.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.log().WithError(err).WithFields(logrus.Fields{"execution_id": ev.ExecutionID}).Warn("Failed to encode swap event")
				continue
			}
			if _, err := fmt.Fprintf(res, "event: swap\ndata: %s\n\n", data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
