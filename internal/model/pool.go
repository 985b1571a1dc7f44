package model

// PoolRef identifies a V3 pool and its immutable parameters.
type PoolRef struct {
	ChainID     uint64 `json:"chain_id"`
	Address     string `json:"address"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
}

// Slot0 holds the live fields read from a pool.
type Slot0 struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
	Liquidity    string `json:"liquidity,omitempty"`
}
