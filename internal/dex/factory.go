package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityDesk/internal/token"
)

// Factory resolves pool addresses from the V3 factory.
type Factory struct {
	caller  Caller
	address common.Address
	norm    token.Normalizer
}

func NewFactory(caller Caller, address, wrappedNative common.Address) *Factory {
	return &Factory{caller: caller, address: address, norm: token.Normalizer{Wrapped: wrappedNative}}
}

// PoolAddress returns the pool for the pair and fee, or the zero address when
// the factory has none or the returned address holds no code.
func (f *Factory) PoolAddress(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	a, b := token.SortAddresses(f.norm.Address(tokenA), f.norm.Address(tokenB))
	if a == b {
		return common.Address{}, fmt.Errorf("pool for a single token %s", a.Hex())
	}
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := callMethod(ctx, f.caller, f.address, factoryABI, "getPool", a, b, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	pool, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("getPool: %w", err)
	}
	if pool == (common.Address{}) {
		return pool, nil
	}

	code, err := f.caller.CodeAt(ctx, pool, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("code at %s: %w", pool.Hex(), err)
	}
	if len(code) == 0 {
		return common.Address{}, nil
	}
	return pool, nil
}

// feeTickSpacing is the factory's enabled fee tiers.
var feeTickSpacing = map[uint32]int{
	100:   1,
	500:   10,
	3000:  60,
	10000: 200,
}

// StandardTickSpacing returns the spacing the factory assigns to a fee tier.
func StandardTickSpacing(fee uint32) (int, bool) {
	spacing, ok := feeTickSpacing[fee]
	return spacing, ok
}
