package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"liquidityDesk/internal/quote"
	"liquidityDesk/internal/token"
)

const defaultFee = 3000

// QuoteResponse is a quote with its amounts also in decimal units.
type QuoteResponse struct {
	quote.Quote
	AmountInDecimal  string `json:"amountInDecimal"`
	AmountOutDecimal string `json:"amountOutDecimal"`
	MinOut           string `json:"minimumOut"`
	MaxIn            string `json:"maximumIn"`
}

// NewQuoteResponse formats q with the decimals of the original pair.
func NewQuoteResponse(q quote.Quote, tokenIn, tokenOut token.Token) QuoteResponse {
	return QuoteResponse{
		Quote:            q,
		AmountInDecimal:  token.FormatUnits(q.AmountIn, tokenIn.Decimals),
		AmountOutDecimal: token.FormatUnits(q.AmountOut, tokenOut.Decimals),
		MinOut:           token.FormatUnits(q.MinimumOut(), tokenOut.Decimals),
		MaxIn:            token.FormatUnits(q.MaximumIn(), tokenIn.Decimals),
	}
}

// QuoteQuery is a quote in user terms: token references and a decimal amount.
type QuoteQuery struct {
	In          string
	Out         string
	Fee         uint32
	Amount      string
	ExactOutput bool
	Slippage    float64
}

// BuildQuoteRequest resolves token references and scales the edited amount.
func BuildQuoteRequest(ctx context.Context, tokens TokenResolver, nativeSymbol string, q QuoteQuery) (quote.Request, error) {
	inAddr, err := token.ParseRef(q.In, nativeSymbol)
	if err != nil {
		return quote.Request{}, fmt.Errorf("token in: %w", err)
	}
	outAddr, err := token.ParseRef(q.Out, nativeSymbol)
	if err != nil {
		return quote.Request{}, fmt.Errorf("token out: %w", err)
	}
	tokenIn, err := tokens.Token(ctx, inAddr)
	if err != nil {
		return quote.Request{}, fmt.Errorf("load token in: %w", err)
	}
	tokenOut, err := tokens.Token(ctx, outAddr)
	if err != nil {
		return quote.Request{}, fmt.Errorf("load token out: %w", err)
	}

	req := quote.Request{
		TokenIn:         tokenIn,
		TokenOut:        tokenOut,
		Fee:             q.Fee,
		Direction:       quote.ExactInput,
		SlippagePercent: q.Slippage,
	}
	edited := tokenIn
	if q.ExactOutput {
		req.Direction = quote.ExactOutput
		edited = tokenOut
	}
	req.Amount, err = token.ParseUnits(q.Amount, edited.Decimals)
	if err != nil {
		return quote.Request{}, fmt.Errorf("amount: %w", err)
	}
	return req, nil
}

// QuoteHandler serves single quotes.
type QuoteHandler struct {
	engine       QuoteService
	tokens       TokenResolver
	nativeSymbol string
	slippage     float64
}

// NewQuoteHandler will initialize the /quote resource endpoint
func NewQuoteHandler(e *echo.Echo, engine QuoteService, tokens TokenResolver, nativeSymbol string, defaultSlippage float64) {
	handler := &QuoteHandler{
		engine:       engine,
		tokens:       tokens,
		nativeSymbol: nativeSymbol,
		slippage:     defaultSlippage,
	}
	e.GET("/quote", handler.GetQuote)
}

// GetQuote quotes in -> out for amount of the edited side.
func (h *QuoteHandler) GetQuote(c echo.Context) error {
	q := QuoteQuery{
		In:       c.QueryParam("in"),
		Out:      c.QueryParam("out"),
		Fee:      defaultFee,
		Amount:   c.QueryParam("amount"),
		Slippage: h.slippage,
	}
	if raw := c.QueryParam("fee"); raw != "" {
		fee, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return badRequest(c, fmt.Errorf("fee: %w", err))
		}
		q.Fee = uint32(fee)
	}
	if raw := c.QueryParam("exactOutput"); raw != "" {
		exact, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, fmt.Errorf("exactOutput: %w", err))
		}
		q.ExactOutput = exact
	}
	if raw := c.QueryParam("slippage"); raw != "" {
		slippage, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return badRequest(c, fmt.Errorf("slippage: %w", err))
		}
		q.Slippage = slippage
	}

	ctx := c.Request().Context()
	req, err := BuildQuoteRequest(ctx, h.tokens, h.nativeSymbol, q)
	if err != nil {
		return badRequest(c, err)
	}
	res, err := h.engine.Quote(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NewQuoteResponse(res, req.TokenIn, req.TokenOut))
}
