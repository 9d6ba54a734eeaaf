package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	requestTimeout = 15 * time.Second
	streamPath     = "/v1/swaps/stream"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = JSONErrorHandler(cfg.DevMode)

	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: newRequestID,
	}))
	e.Use(requestLogger(h.log()))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, "X-API-Key", echo.HeaderXRequestID},
		MaxAge:       600,
	}))
	// The stream outlives any request deadline.
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Skipper: func(c echo.Context) bool { return c.Path() == streamPath },
		Timeout: requestTimeout,
	}))
	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	// Optional API key authentication, health stays open for probes
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Skipper:   func(c echo.Context) bool { return c.Path() == "/v1/health" },
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/swaps/recent", h.RecentSwaps)
	v1.GET("/swaps/stream", h.StreamSwaps)
	v1.GET("/prices/:token", h.Price)
	v1.GET("/allowance", h.Allowance)
	v1.GET("/transactions/:hash", h.TransactionStatus)

	// Subscriptions and the activity log
	v1.POST("/subscriptions", h.Subscribe)
	v1.GET("/subscriptions", h.Subscriptions)
	v1.POST("/unsubscribe", h.Unsubscribe)
	v1.POST("/update-percentage", h.UpdatePercentage)
	v1.POST("/log_transaction", h.LogTransaction)
	v1.GET("/log_retrieval", h.LogRetrieval)

	// Swap submission is rate limited per client IP
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.swapRate()),
		Burst:     cfg.swapBurst(),
		ExpiresIn: 3 * time.Minute,
	}))
	v1.POST("/auto-swap", h.AutoSwap, limiter)
	v1.POST("/routed-swap", h.RoutedSwap, limiter)

	// Feature flags CRUD endpoints
	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.PUT("/:key", h.FlagsUpdate)
	flagGroup.DELETE("/:key", h.FlagsDelete)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// requestLogger writes one logrus line per request
func requestLogger(logger *logrus.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
			})
			switch {
			case v.Error != nil:
				entry.WithError(v.Error).Warn("Request failed")
			case v.Status >= http.StatusInternalServerError:
				entry.Warn("Request failed")
			case strings.HasSuffix(v.URI, "/health"):
				entry.Debug("Request")
			default:
				entry.Info("Request")
			}
			return nil
		},
	})
}
