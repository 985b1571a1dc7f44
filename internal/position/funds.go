package position

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityDesk/internal/token"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotApproved         = errors.New("token not approved")
)

// FundsReader reads balances and allowances in smallest units. The native
// asset reports its gas balance and needs no allowance.
type FundsReader interface {
	Balance(ctx context.Context, t token.Token, holder common.Address) (*big.Int, error)
	Allowance(ctx context.Context, t token.Token, owner, spender common.Address) (*big.Int, error)
}

// Spend is an amount a transaction will pull from the holder.
type Spend struct {
	Token  token.Token
	Amount *big.Int
}

// CheckFunds refuses a transaction the holder cannot pay for. Balances are
// checked before approvals, matching the order a user has to fix them in.
func CheckFunds(ctx context.Context, reader FundsReader, holder, spender common.Address, spends ...Spend) error {
	for _, s := range spends {
		if s.Amount == nil || s.Amount.Sign() == 0 {
			continue
		}
		balance, err := reader.Balance(ctx, s.Token, holder)
		if err != nil {
			return fmt.Errorf("balance of %s: %w", s.Token.Symbol, err)
		}
		if !token.HasSufficientBalance(s.Amount, balance) {
			return fmt.Errorf("%w: %s needs %s, holder has %s", ErrInsufficientBalance, s.Token.Symbol,
				token.FormatUnits(s.Amount, s.Token.Decimals), token.FormatUnits(balance, s.Token.Decimals))
		}
	}
	for _, s := range spends {
		if s.Amount == nil || s.Amount.Sign() == 0 || s.Token.IsNative() {
			continue
		}
		allowance, err := reader.Allowance(ctx, s.Token, holder, spender)
		if err != nil {
			return fmt.Errorf("allowance of %s: %w", s.Token.Symbol, err)
		}
		if !token.IsApproved(s.Token, s.Amount, allowance) {
			return fmt.Errorf("%w: approve %s for %s first", ErrNotApproved, s.Token.Symbol, spender.Hex())
		}
	}
	return nil
}
