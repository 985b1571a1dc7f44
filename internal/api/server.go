package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"liquidityDesk/internal/metrics"
	"liquidityDesk/internal/model"
	"liquidityDesk/internal/position"
	"liquidityDesk/internal/quote"
	"liquidityDesk/internal/token"
	"liquidityDesk/internal/v3math"
)

// ErrPoolReadsDisabled is returned when a request names a pool but the server
// was started without chain access.
var ErrPoolReadsDisabled = errors.New("pool reads are not configured")

// inputError marks a malformed request field.
type inputError struct{ err error }

func (e inputError) Error() string { return e.err.Error() }
func (e inputError) Unwrap() error { return e.err }

func badInput(err error) error { return inputError{err: err} }

// ResponseError represents the error response body.
type ResponseError struct {
	Message string `json:"message"`
}

// QuoteService resolves one quote.
type QuoteService interface {
	Quote(ctx context.Context, req quote.Request) (quote.Quote, error)
}

// TokenResolver loads token metadata by address.
type TokenResolver interface {
	Token(ctx context.Context, addr common.Address) (token.Token, error)
}

// PoolSource reads pool metadata and live state.
type PoolSource interface {
	Meta(ctx context.Context, pool common.Address) (model.PoolRef, error)
	State(ctx context.Context, pool common.Address) (position.PoolState, error)
}

// NewServer builds an echo instance with instrumentation and the system routes.
func NewServer(logger *zap.Logger) *echo.Echo {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(InstrumentMiddleware)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		logger.Warn("http request failed", zap.String("path", c.Path()), zap.Error(err))
		e.DefaultHTTPErrorHandler(err, c)
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}

// InstrumentMiddleware counts requests by route and status code.
func InstrumentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)

		code := c.Response().Status
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			code = httpErr.Code
		} else if err != nil {
			code = http.StatusInternalServerError
		}
		endpoint := c.Path()
		if endpoint == "" {
			endpoint = "unknown"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request().Method, endpoint, strconv.Itoa(code)).Inc()
		return err
	}
}

func getStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, new(inputError)):
		return http.StatusBadRequest
	case errors.Is(err, ErrPoolReadsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, quote.ErrQuoteUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, v3math.ErrArithmetic),
		errors.Is(err, v3math.ErrDegenerateRange),
		errors.Is(err, v3math.ErrTickOutOfBounds),
		errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, quote.ErrEmptyAmount),
		errors.Is(err, position.ErrNothingSupplied):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c echo.Context, err error) error {
	return c.JSON(getStatusCode(err), ResponseError{Message: err.Error()})
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
}
