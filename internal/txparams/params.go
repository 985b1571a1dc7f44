package txparams

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Target names the contract a parameter struct is sent to.
type Target string

const (
	SwapRouter      Target = "swapRouter"
	PositionManager Target = "positionManager"
)

// Params is a fully resolved call for the external executor. Instances are
// built per action and never reused; deadlines and minimums are time sensitive.
type Params interface {
	Method() string
	Target() Target
	NativeValue() *big.Int
}

type ExactInputSingle struct {
	TokenIn           common.Address `json:"tokenIn"`
	TokenOut          common.Address `json:"tokenOut"`
	Fee               uint32         `json:"fee"`
	Recipient         common.Address `json:"recipient"`
	Deadline          uint64         `json:"deadline"`
	AmountIn          *big.Int       `json:"amountIn"`
	AmountOutMinimum  *big.Int       `json:"amountOutMinimum"`
	SqrtPriceLimitX96 *big.Int       `json:"sqrtPriceLimitX96"`
	Value             *big.Int       `json:"value"`
}

func (ExactInputSingle) Method() string          { return "exactInputSingle" }
func (ExactInputSingle) Target() Target          { return SwapRouter }
func (p ExactInputSingle) NativeValue() *big.Int { return orZero(p.Value) }

type ExactOutputSingle struct {
	TokenIn           common.Address `json:"tokenIn"`
	TokenOut          common.Address `json:"tokenOut"`
	Fee               uint32         `json:"fee"`
	Recipient         common.Address `json:"recipient"`
	Deadline          uint64         `json:"deadline"`
	AmountOut         *big.Int       `json:"amountOut"`
	AmountInMaximum   *big.Int       `json:"amountInMaximum"`
	SqrtPriceLimitX96 *big.Int       `json:"sqrtPriceLimitX96"`
	Value             *big.Int       `json:"value"`
}

func (ExactOutputSingle) Method() string          { return "exactOutputSingle" }
func (ExactOutputSingle) Target() Target          { return SwapRouter }
func (p ExactOutputSingle) NativeValue() *big.Int { return orZero(p.Value) }

type Mint struct {
	Token0         common.Address `json:"token0"`
	Token1         common.Address `json:"token1"`
	Fee            uint32         `json:"fee"`
	TickLower      int            `json:"tickLower"`
	TickUpper      int            `json:"tickUpper"`
	Amount0Desired *big.Int       `json:"amount0Desired"`
	Amount1Desired *big.Int       `json:"amount1Desired"`
	Amount0Min     *big.Int       `json:"amount0Min"`
	Amount1Min     *big.Int       `json:"amount1Min"`
	Recipient      common.Address `json:"recipient"`
	Deadline       uint64         `json:"deadline"`
	Value          *big.Int       `json:"value"`
}

func (Mint) Method() string          { return "mint" }
func (Mint) Target() Target          { return PositionManager }
func (p Mint) NativeValue() *big.Int { return orZero(p.Value) }

type IncreaseLiquidity struct {
	TokenID        *big.Int `json:"tokenId"`
	Amount0Desired *big.Int `json:"amount0Desired"`
	Amount1Desired *big.Int `json:"amount1Desired"`
	Amount0Min     *big.Int `json:"amount0Min"`
	Amount1Min     *big.Int `json:"amount1Min"`
	Deadline       uint64   `json:"deadline"`
	Value          *big.Int `json:"value"`
}

func (IncreaseLiquidity) Method() string          { return "increaseLiquidity" }
func (IncreaseLiquidity) Target() Target          { return PositionManager }
func (p IncreaseLiquidity) NativeValue() *big.Int { return orZero(p.Value) }

type DecreaseLiquidity struct {
	TokenID    *big.Int `json:"tokenId"`
	Liquidity  *big.Int `json:"liquidity"`
	Amount0Min *big.Int `json:"amount0Min"`
	Amount1Min *big.Int `json:"amount1Min"`
	Deadline   uint64   `json:"deadline"`
}

func (DecreaseLiquidity) Method() string        { return "decreaseLiquidity" }
func (DecreaseLiquidity) Target() Target        { return PositionManager }
func (DecreaseLiquidity) NativeValue() *big.Int { return new(big.Int) }

type Collect struct {
	TokenID    *big.Int       `json:"tokenId"`
	Recipient  common.Address `json:"recipient"`
	Amount0Max *big.Int       `json:"amount0Max"`
	Amount1Max *big.Int       `json:"amount1Max"`
}

func (Collect) Method() string        { return "collect" }
func (Collect) Target() Target        { return PositionManager }
func (Collect) NativeValue() *big.Int { return new(big.Int) }

// CreatePool initializes a pool that has not been deployed yet. It is a no-op
// on chain when the pool already exists.
type CreatePool struct {
	Token0       common.Address `json:"token0"`
	Token1       common.Address `json:"token1"`
	Fee          uint32         `json:"fee"`
	SqrtPriceX96 *big.Int       `json:"sqrtPriceX96"`
}

func (CreatePool) Method() string        { return "createAndInitializePoolIfNecessary" }
func (CreatePool) Target() Target        { return PositionManager }
func (CreatePool) NativeValue() *big.Int { return new(big.Int) }

type Burn struct {
	TokenID *big.Int `json:"tokenId"`
}

func (Burn) Method() string        { return "burn" }
func (Burn) Target() Target        { return PositionManager }
func (Burn) NativeValue() *big.Int { return new(big.Int) }

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
