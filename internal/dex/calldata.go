package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityDesk/internal/txparams"
)

// ABI tuple shapes. Field names match the tuple components after camel-casing.

type exactInputSingleTuple struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputSingleTuple struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}

type mintTuple struct {
	Token0         common.Address
	Token1         common.Address
	Fee            *big.Int
	TickLower      *big.Int
	TickUpper      *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Recipient      common.Address
	Deadline       *big.Int
}

type increaseLiquidityTuple struct {
	TokenId        *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Deadline       *big.Int
}

type decreaseLiquidityTuple struct {
	TokenId    *big.Int
	Liquidity  *big.Int
	Amount0Min *big.Int
	Amount1Min *big.Int
	Deadline   *big.Int
}

type collectTuple struct {
	TokenId    *big.Int
	Recipient  common.Address
	Amount0Max *big.Int
	Amount1Max *big.Int
}

// Calldata ABI-encodes a parameter struct for its target contract.
func Calldata(p txparams.Params) ([]byte, error) {
	var args []interface{}
	switch v := p.(type) {
	case txparams.ExactInputSingle:
		args = []interface{}{exactInputSingleTuple{
			TokenIn:           v.TokenIn,
			TokenOut:          v.TokenOut,
			Fee:               u32(v.Fee),
			Recipient:         v.Recipient,
			Deadline:          u64(v.Deadline),
			AmountIn:          v.AmountIn,
			AmountOutMinimum:  v.AmountOutMinimum,
			SqrtPriceLimitX96: orZero(v.SqrtPriceLimitX96),
		}}
	case txparams.ExactOutputSingle:
		args = []interface{}{exactOutputSingleTuple{
			TokenIn:           v.TokenIn,
			TokenOut:          v.TokenOut,
			Fee:               u32(v.Fee),
			Recipient:         v.Recipient,
			Deadline:          u64(v.Deadline),
			AmountOut:         v.AmountOut,
			AmountInMaximum:   v.AmountInMaximum,
			SqrtPriceLimitX96: orZero(v.SqrtPriceLimitX96),
		}}
	case txparams.Mint:
		args = []interface{}{mintTuple{
			Token0:         v.Token0,
			Token1:         v.Token1,
			Fee:            u32(v.Fee),
			TickLower:      big.NewInt(int64(v.TickLower)),
			TickUpper:      big.NewInt(int64(v.TickUpper)),
			Amount0Desired: v.Amount0Desired,
			Amount1Desired: v.Amount1Desired,
			Amount0Min:     v.Amount0Min,
			Amount1Min:     v.Amount1Min,
			Recipient:      v.Recipient,
			Deadline:       u64(v.Deadline),
		}}
	case txparams.IncreaseLiquidity:
		args = []interface{}{increaseLiquidityTuple{
			TokenId:        v.TokenID,
			Amount0Desired: v.Amount0Desired,
			Amount1Desired: v.Amount1Desired,
			Amount0Min:     v.Amount0Min,
			Amount1Min:     v.Amount1Min,
			Deadline:       u64(v.Deadline),
		}}
	case txparams.DecreaseLiquidity:
		args = []interface{}{decreaseLiquidityTuple{
			TokenId:    v.TokenID,
			Liquidity:  v.Liquidity,
			Amount0Min: v.Amount0Min,
			Amount1Min: v.Amount1Min,
			Deadline:   u64(v.Deadline),
		}}
	case txparams.Collect:
		args = []interface{}{collectTuple{
			TokenId:    v.TokenID,
			Recipient:  v.Recipient,
			Amount0Max: v.Amount0Max,
			Amount1Max: v.Amount1Max,
		}}
	case txparams.CreatePool:
		args = []interface{}{v.Token0, v.Token1, u32(v.Fee), v.SqrtPriceX96}
	case txparams.Burn:
		args = []interface{}{v.TokenID}
	default:
		return nil, fmt.Errorf("unsupported params type %T", p)
	}

	var (
		data []byte
		err  error
	)
	switch p.Target() {
	case txparams.SwapRouter:
		parsed, perr := SwapRouterABI()
		if perr != nil {
			return nil, fmt.Errorf("parse swap router abi: %w", perr)
		}
		data, err = parsed.Pack(p.Method(), args...)
	case txparams.PositionManager:
		parsed, perr := PositionManagerABI()
		if perr != nil {
			return nil, fmt.Errorf("parse position manager abi: %w", perr)
		}
		data, err = parsed.Pack(p.Method(), args...)
	default:
		return nil, fmt.Errorf("unknown target %q", p.Target())
	}
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", p.Method(), err)
	}
	return data, nil
}

func u32(v uint32) *big.Int { return new(big.Int).SetUint64(uint64(v)) }

func u64(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
