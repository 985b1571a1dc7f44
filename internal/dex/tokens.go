package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"go.uber.org/zap"

	"liquidityDesk/internal/model"
	"liquidityDesk/internal/token"
)

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// TokenReader reads ERC20 metadata, balances and allowances. The native asset
// is answered locally for metadata and allowance and from BalanceAt for balance.
type TokenReader struct {
	caller       Caller
	chainID      uint64
	nativeSymbol string
	cache        *TokenMetaCache
	logger       *zap.Logger
}

func NewTokenReader(caller Caller, chainID uint64, nativeSymbol string, logger *zap.Logger) *TokenReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenReader{
		caller:       caller,
		chainID:      chainID,
		nativeSymbol: nativeSymbol,
		cache:        NewTokenMetaCache(),
		logger:       logger,
	}
}

// Token resolves addr into a token.Token with metadata.
func (r *TokenReader) Token(ctx context.Context, addr common.Address) (token.Token, error) {
	if token.IsNativeAddress(addr) {
		return token.Native(r.chainID, r.nativeSymbol), nil
	}
	meta, err := r.Meta(ctx, addr)
	if err != nil {
		return token.Token{}, err
	}
	return token.Token{
		Address:  addr,
		Symbol:   meta.Symbol,
		Name:     meta.Name,
		Decimals: meta.Decimals,
		ChainID:  r.chainID,
	}, nil
}

// Meta loads token metadata via ERC20 calls. Decimals are required; symbol and
// name fall back to the bytes32 variants and are left empty if both fail.
func (r *TokenReader) Meta(ctx context.Context, addr common.Address) (model.TokenMeta, error) {
	if cached, ok := r.cache.Get(addr); ok {
		return cached, nil
	}
	if token.IsNativeAddress(addr) {
		n := token.Native(r.chainID, r.nativeSymbol)
		return model.TokenMeta{Address: addr.Hex(), Decimals: n.Decimals, Symbol: n.Symbol, Name: n.Name, Native: true}, nil
	}

	meta := model.TokenMeta{Address: addr.Hex()}
	stringABI, err := erc20ABIString.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, r.caller, addr, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, fmt.Errorf("decimals: %w", err)
	}
	meta.Decimals = decimals
	meta.Symbol = r.textField(ctx, addr, "symbol", stringABI, bytes32ABI)
	meta.Name = r.textField(ctx, addr, "name", stringABI, bytes32ABI)

	r.cache.Set(addr, meta)
	return meta, nil
}

func (r *TokenReader) textField(ctx context.Context, addr common.Address, method string, stringABI, bytes32ABI abi.ABI) string {
	if values, err := callMethod(ctx, r.caller, addr, stringABI, method); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := callMethod(ctx, r.caller, addr, bytes32ABI, method)
	if err != nil {
		r.logger.Debug(method+" call failed", zap.String("token", addr.Hex()), zap.Error(err))
		return ""
	}
	s, _ := bytes32ToString(values[0])
	return s
}

// Balance returns the holder's balance in smallest units.
func (r *TokenReader) Balance(ctx context.Context, t token.Token, holder common.Address) (*big.Int, error) {
	if t.IsNative() {
		if r.caller == nil {
			return nil, ErrNoClient
		}
		bal, err := r.caller.BalanceAt(ctx, holder, nil)
		if err != nil {
			return nil, fmt.Errorf("native balance: %w", err)
		}
		return bal, nil
	}
	parsed, err := erc20ABIString.get()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, t.Address, parsed, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Allowance returns what spender may pull from owner. The native asset needs
// no approval and reports an unbounded allowance.
func (r *TokenReader) Allowance(ctx context.Context, t token.Token, owner, spender common.Address) (*big.Int, error) {
	if t.IsNative() {
		return new(big.Int).Set(ethmath.MaxBig256), nil
	}
	parsed, err := erc20ABIString.get()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, t.Address, parsed, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
