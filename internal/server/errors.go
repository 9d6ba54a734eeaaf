package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSONErrorHandler returns an HTTP error handler that keeps every error,
// including echo's own 401/404/429, in the ErrorResponse format
func JSONErrorHandler(devMode bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			resp := ErrorResponse{Error: http.StatusText(he.Code), Code: he.Code}
			if devMode && he.Message != nil {
				resp.Details = he.Message
			}
			_ = c.JSON(he.Code, resp)
			return
		}

		if errors.Is(err, context.DeadlineExceeded) {
			_ = c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: "request timed out",
				Code:  http.StatusServiceUnavailable,
			})
			return
		}

		resp := ErrorResponse{Error: "internal server error", Code: http.StatusInternalServerError}
		if devMode {
			resp.Details = err.Error()
		}
		_ = c.JSON(http.StatusInternalServerError, resp)
	}
}
