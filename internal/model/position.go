package model

import "time"

// PositionRecord is the raw NonfungiblePositionManager state of one NFT.
// Integer amounts are decimal strings.
type PositionRecord struct {
	TokenID     string `json:"token_id"`
	Owner       string `json:"owner"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickLower   int32  `json:"tick_lower"`
	TickUpper   int32  `json:"tick_upper"`
	Liquidity   string `json:"liquidity"`
	TokensOwed0 string `json:"tokens_owed0"`
	TokensOwed1 string `json:"tokens_owed1"`
}

// PositionSnapshot is a derived position view at one point in time.
type PositionSnapshot struct {
	ChainID      uint64    `json:"chain_id"`
	Pool         string    `json:"pool"`
	TokenID      string    `json:"token_id"`
	Owner        string    `json:"owner"`
	TickLower    int32     `json:"tick_lower"`
	TickUpper    int32     `json:"tick_upper"`
	CurrentTick  int32     `json:"current_tick"`
	SqrtPriceX96 string    `json:"sqrt_price_x96"`
	InRange      bool      `json:"in_range"`
	Side         string    `json:"side"`
	Liquidity    string    `json:"liquidity"`
	Amount0      string    `json:"amount0"`
	Amount1      string    `json:"amount1"`
	Fees0        string    `json:"fees0"`
	Fees1        string    `json:"fees1"`
	ObservedAt   time.Time `json:"observed_at"`
}
