package api

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"liquidityDesk/internal/position"
	"liquidityDesk/internal/rangepolicy"
	"liquidityDesk/internal/token"
)

// DeriveRequest is a stored position plus either an explicit pool state or a
// pool address to read it from.
type DeriveRequest struct {
	TokenID      string      `json:"tokenId"`
	Owner        string      `json:"owner"`
	Token0       token.Token `json:"token0"`
	Token1       token.Token `json:"token1"`
	Fee          uint32      `json:"fee"`
	TickLower    int         `json:"tickLower"`
	TickUpper    int         `json:"tickUpper"`
	Liquidity    string      `json:"liquidity"`
	TokensOwed0  string      `json:"tokensOwed0"`
	TokensOwed1  string      `json:"tokensOwed1"`
	Pool         string      `json:"pool"`
	SqrtPriceX96 string      `json:"sqrtPriceX96"`
	Tick         int         `json:"tick"`
}

// PreviewRequest is a deposit preview. Primary selects single-amount mode:
// "0" or "1" derives the other side from that amount. Omitted ticks fall back
// to the range named by Range ("full" or "default"); without a pool, Tick and
// TickSpacing locate that range.
type PreviewRequest struct {
	Token0       token.Token `json:"token0"`
	Token1       token.Token `json:"token1"`
	Pool         string      `json:"pool"`
	SqrtPriceX96 string      `json:"sqrtPriceX96"`
	Tick         int         `json:"tick"`
	TickSpacing  int         `json:"tickSpacing"`
	TickLower    *int        `json:"tickLower"`
	TickUpper    *int        `json:"tickUpper"`
	Range        string      `json:"range"`
	Amount0      string      `json:"amount0"`
	Amount1      string      `json:"amount1"`
	Primary      string      `json:"primary"`
}

// PositionHandler derives position views, deposit previews and counterpart
// estimates.
type PositionHandler struct {
	policy rangepolicy.Policy
	pools  PoolSource
	tokens TokenResolver
}

// NewPositionHandler will initialize the /position resource endpoints
func NewPositionHandler(e *echo.Echo, policy rangepolicy.Policy, pools PoolSource, tokens TokenResolver) {
	handler := &PositionHandler{policy: policy, pools: pools, tokens: tokens}
	e.POST("/position/derive", handler.Derive)
	e.POST("/position/preview", handler.Preview)
	e.POST("/position/estimate", handler.Estimate)
}

// Derive returns the view of a position against the given or live pool state.
func (h *PositionHandler) Derive(c echo.Context) error {
	var req DeriveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	pos := position.Position{
		Owner:     common.HexToAddress(req.Owner),
		Token0:    req.Token0,
		Token1:    req.Token1,
		Fee:       req.Fee,
		TickLower: req.TickLower,
		TickUpper: req.TickUpper,
	}
	var err error
	if req.TokenID != "" {
		if pos.TokenID, err = parseBig("tokenId", req.TokenID); err != nil {
			return badRequest(c, err)
		}
	}
	if pos.Liquidity, err = parseBig("liquidity", req.Liquidity); err != nil {
		return badRequest(c, err)
	}
	if pos.TokensOwed0, err = parseBig("tokensOwed0", req.TokensOwed0); err != nil {
		return badRequest(c, err)
	}
	if pos.TokensOwed1, err = parseBig("tokensOwed1", req.TokensOwed1); err != nil {
		return badRequest(c, err)
	}

	state, err := h.poolState(c.Request().Context(), req.Pool, req.SqrtPriceX96, req.Tick)
	if err != nil {
		return badRequest(c, err)
	}
	view, err := position.Derive(pos, state)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Preview reports how much of a deposit the range would take.
func (h *PositionHandler) Preview(c echo.Context) error {
	var req PreviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	r, err := h.previewRange(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	preview, err := RunPreview(r, req.Amount0, req.Amount1, req.Primary)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, preview)
}

// Estimate fills the counterpart of the primary amount at the current price.
// A degenerate range answers 400; the client then asks for both amounts.
func (h *PositionHandler) Estimate(c echo.Context) error {
	var req PreviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	r, err := h.previewRange(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	est, err := RunEstimate(r, req.Amount0, req.Amount1, req.Primary)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, est)
}

func (h *PositionHandler) previewRange(ctx context.Context, req PreviewRequest) (position.Range, error) {
	fallback, err := rangepolicy.ParseFallback(req.Range)
	if err != nil {
		return position.Range{}, badInput(err)
	}
	bounds := RangeBounds{Lower: req.TickLower, Upper: req.TickUpper, Policy: h.policy, Fallback: fallback}

	if req.Pool != "" {
		if !common.IsHexAddress(req.Pool) {
			return position.Range{}, badInput(fmt.Errorf("invalid pool address: %s", req.Pool))
		}
		if h.pools == nil || h.tokens == nil {
			return position.Range{}, ErrPoolReadsDisabled
		}
		return PoolRange(ctx, h.pools, h.tokens, common.HexToAddress(req.Pool), bounds)
	}

	sqrt, err := parseBig("sqrtPriceX96", req.SqrtPriceX96)
	if err != nil {
		return position.Range{}, badInput(err)
	}
	ticks, err := h.policy.Bounds(req.TickLower, req.TickUpper, fallback, req.Tick, req.TickSpacing)
	if err != nil {
		return position.Range{}, badInput(err)
	}
	return position.Range{
		Token0:       req.Token0,
		Token1:       req.Token1,
		SqrtPriceX96: sqrt,
		TickLower:    ticks.Lower,
		TickUpper:    ticks.Upper,
	}, nil
}

// RunPreview dispatches to the two-amount or single-amount preview.
func RunPreview(r position.Range, amount0, amount1, primary string) (position.Preview, error) {
	switch primary {
	case "0":
		return position.ByPrimaryAmount(r, amount0, true)
	case "1":
		return position.ByPrimaryAmount(r, amount1, false)
	case "":
		return position.PreviewAmounts(r, amount0, amount1)
	default:
		return position.Preview{}, badInput(fmt.Errorf("primary must be 0 or 1, got %q", primary))
	}
}

// RunEstimate picks the typed amount named by primary and estimates its
// counterpart.
func RunEstimate(r position.Range, amount0, amount1, primary string) (position.Estimate, error) {
	switch primary {
	case "0":
		return position.EstimateCounterpart(r, amount0, true)
	case "1":
		return position.EstimateCounterpart(r, amount1, false)
	default:
		return position.Estimate{}, badInput(fmt.Errorf("primary must be 0 or 1, got %q", primary))
	}
}

func (h *PositionHandler) poolState(ctx context.Context, pool, sqrtPrice string, tick int) (position.PoolState, error) {
	if pool != "" {
		if !common.IsHexAddress(pool) {
			return position.PoolState{}, fmt.Errorf("invalid pool address: %s", pool)
		}
		if h.pools == nil {
			return position.PoolState{}, ErrPoolReadsDisabled
		}
		return h.pools.State(ctx, common.HexToAddress(pool))
	}
	sqrt, err := parseBig("sqrtPriceX96", sqrtPrice)
	if err != nil {
		return position.PoolState{}, err
	}
	return position.PoolState{SqrtPriceX96: sqrt, Tick: tick}, nil
}

// parseBig reads a base-10 integer; empty means zero.
func parseBig(name, raw string) (*big.Int, error) {
	if raw == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer %q", name, raw)
	}
	return v, nil
}
