package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"liquidityDesk/internal/position"
	"liquidityDesk/internal/rangepolicy"
	"liquidityDesk/internal/token"
	"liquidityDesk/internal/v3math"
)

// PoolTokens resolves the pool's immutable parameters and both tokens.
func PoolTokens(ctx context.Context, pools PoolSource, tokens TokenResolver, pool common.Address) (int, token.Token, token.Token, error) {
	meta, err := pools.Meta(ctx, pool)
	if err != nil {
		return 0, token.Token{}, token.Token{}, fmt.Errorf("pool meta: %w", err)
	}
	token0, err := tokens.Token(ctx, common.HexToAddress(meta.Token0))
	if err != nil {
		return 0, token.Token{}, token.Token{}, fmt.Errorf("token0: %w", err)
	}
	token1, err := tokens.Token(ctx, common.HexToAddress(meta.Token1))
	if err != nil {
		return 0, token.Token{}, token.Token{}, fmt.Errorf("token1: %w", err)
	}
	return int(meta.TickSpacing), token0, token1, nil
}

// PoolRangeReport reads the live tick and price of pool and builds the range
// picker report around it.
func PoolRangeReport(ctx context.Context, policy rangepolicy.Policy, pools PoolSource, tokens TokenResolver, pool common.Address) (rangepolicy.Report, error) {
	spacing, token0, token1, err := PoolTokens(ctx, pools, tokens, pool)
	if err != nil {
		return rangepolicy.Report{}, err
	}
	state, err := pools.State(ctx, pool)
	if err != nil {
		return rangepolicy.Report{}, fmt.Errorf("pool state: %w", err)
	}
	price, err := v3math.SqrtPriceX96ToPrice(state.SqrtPriceX96, token0.Decimals, token1.Decimals)
	if err != nil {
		return rangepolicy.Report{}, fmt.Errorf("pool price: %w", err)
	}
	return policy.Report(state.Tick, spacing, price, token0.Decimals, token1.Decimals)
}

// RangeBounds are optional explicit ticks plus the policy that fills the
// unset ones.
type RangeBounds struct {
	Lower    *int
	Upper    *int
	Policy   rangepolicy.Policy
	Fallback rangepolicy.Fallback
}

// PoolRange builds a deposit target against live pool state. Unset ticks come
// from the policy fallback at the pool's current tick and spacing.
func PoolRange(ctx context.Context, pools PoolSource, tokens TokenResolver, pool common.Address, bounds RangeBounds) (position.Range, error) {
	spacing, token0, token1, err := PoolTokens(ctx, pools, tokens, pool)
	if err != nil {
		return position.Range{}, err
	}
	state, err := pools.State(ctx, pool)
	if err != nil {
		return position.Range{}, fmt.Errorf("pool state: %w", err)
	}
	ticks, err := bounds.Policy.Bounds(bounds.Lower, bounds.Upper, bounds.Fallback, state.Tick, spacing)
	if err != nil {
		return position.Range{}, fmt.Errorf("range bounds: %w", err)
	}
	return position.Range{
		Token0:       token0,
		Token1:       token1,
		SqrtPriceX96: state.SqrtPriceX96,
		TickLower:    ticks.Lower,
		TickUpper:    ticks.Upper,
	}, nil
}

// RangeHandler serves range picker reports.
type RangeHandler struct {
	policy rangepolicy.Policy
	pools  PoolSource
	tokens TokenResolver
}

// NewRangeHandler will initialize the /range resource endpoint
func NewRangeHandler(e *echo.Echo, policy rangepolicy.Policy, pools PoolSource, tokens TokenResolver) {
	handler := &RangeHandler{policy: policy, pools: pools, tokens: tokens}
	e.GET("/range", handler.GetRange)
}

// GetRange answers either for a live pool or for an explicit tick and spacing.
func (h *RangeHandler) GetRange(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := c.QueryParam("pool"); raw != "" {
		if !common.IsHexAddress(raw) {
			return badRequest(c, fmt.Errorf("invalid pool address: %s", raw))
		}
		if h.pools == nil || h.tokens == nil {
			return respondError(c, ErrPoolReadsDisabled)
		}
		rep, err := PoolRangeReport(ctx, h.policy, h.pools, h.tokens, common.HexToAddress(raw))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, rep)
	}

	tick, err := intParam(c, "tick", 0)
	if err != nil {
		return badRequest(c, err)
	}
	spacing, err := intParam(c, "spacing", 0)
	if err != nil {
		return badRequest(c, err)
	}
	decimals0, err := intParam(c, "decimals0", 18)
	if err != nil {
		return badRequest(c, err)
	}
	decimals1, err := intParam(c, "decimals1", 18)
	if err != nil {
		return badRequest(c, err)
	}
	if decimals0 < 0 || decimals0 > 255 || decimals1 < 0 || decimals1 > 255 {
		return badRequest(c, fmt.Errorf("decimals out of range"))
	}
	var price float64
	if raw := c.QueryParam("price"); raw != "" {
		if price, err = strconv.ParseFloat(raw, 64); err != nil {
			return badRequest(c, fmt.Errorf("price: %w", err))
		}
	}
	rep, err := h.policy.Report(tick, spacing, price, uint8(decimals0), uint8(decimals1))
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

func intParam(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}
