package token

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NativeAddress is the placeholder used for the chain's gas asset.
var NativeAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

var ErrInvalidAmount = errors.New("invalid amount")

// Token is an ERC20 or the native gas asset on one chain.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals uint8          `json:"decimals"`
	ChainID  uint64         `json:"chainId"`
}

// Native builds the gas-asset token for a chain.
func Native(chainID uint64, symbol string) Token {
	if symbol == "" {
		symbol = "ETH"
	}
	return Token{
		Address:  NativeAddress,
		Symbol:   symbol,
		Name:     symbol,
		Decimals: 18,
		ChainID:  chainID,
	}
}

func (t Token) IsNative() bool {
	return IsNativeAddress(t.Address)
}

// IsNativeAddress reports whether addr is the native placeholder or the zero address.
func IsNativeAddress(addr common.Address) bool {
	return addr == NativeAddress || addr == (common.Address{})
}

// ParseRef accepts a hex address or the literal native symbol.
func ParseRef(raw, nativeSymbol string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Address{}, fmt.Errorf("empty token reference")
	}
	if strings.EqualFold(raw, nativeSymbol) || strings.EqualFold(raw, "native") {
		return NativeAddress, nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid token address: %s", raw)
	}
	return common.HexToAddress(raw), nil
}

// Normalizer maps the native placeholder to the chain's wrapped representative
// for every pool or quote lookup. Balance and approval paths keep the original token.
type Normalizer struct {
	Wrapped common.Address
}

func (n Normalizer) Address(addr common.Address) common.Address {
	if IsNativeAddress(addr) && n.Wrapped != (common.Address{}) {
		return n.Wrapped
	}
	return addr
}

func (n Normalizer) Token(t Token) Token {
	if !t.IsNative() {
		return t
	}
	out := t
	out.Address = n.Address(t.Address)
	out.Symbol = "W" + t.Symbol
	return out
}

// Same reports whether a and b resolve to the same pool-side address.
func (n Normalizer) Same(a, b common.Address) bool {
	return n.Address(a) == n.Address(b)
}

// SortAddresses orders a pair so the lower address comes first.
func SortAddresses(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		return b, a
	}
	return a, b
}

// Sort orders a token pair into (token0, token1). The second result is true
// when the inputs were swapped.
func Sort(a, b Token) (Token, Token, bool) {
	if bytes.Compare(a.Address.Bytes(), b.Address.Bytes()) > 0 {
		return b, a, true
	}
	return a, b, false
}

// ParseUnits converts a decimal string into smallest units. More fractional
// digits than decimals is an error, as is a negative amount.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative %s", ErrInvalidAmount, amount)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatUnits renders smallest units as a decimal string without trailing zeros.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}

// ToDecimal is FormatUnits without the string round-trip.
func ToDecimal(value *big.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}

// HasSufficientBalance compares smallest-unit integers.
func HasSufficientBalance(amount, balance *big.Int) bool {
	if amount == nil || balance == nil {
		return false
	}
	return balance.Cmp(amount) >= 0
}

// IsApproved reports whether allowance covers amount. The native asset has no
// allowance and is always approved.
func IsApproved(t Token, amount, allowance *big.Int) bool {
	if t.IsNative() {
		return true
	}
	if amount == nil || allowance == nil {
		return false
	}
	return allowance.Cmp(amount) >= 0
}
