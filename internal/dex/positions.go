package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"liquidityDesk/internal/position"
)

const defaultPositionWorkers = 8

// OwnedPosition is one NFT with the pool state it was derived against.
type OwnedPosition struct {
	Pool     common.Address     `json:"pool"`
	Position position.Position  `json:"-"`
	State    position.PoolState `json:"-"`
	View     position.View      `json:"view"`
}

// PositionReader lists and derives NonfungiblePositionManager positions.
type PositionReader struct {
	caller  Caller
	manager common.Address
	factory *Factory
	pools   *PoolReader
	tokens  *TokenReader
	workers int
	logger  *zap.Logger
}

func NewPositionReader(caller Caller, manager common.Address, factory *Factory, pools *PoolReader, tokens *TokenReader, logger *zap.Logger) *PositionReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionReader{
		caller:  caller,
		manager: manager,
		factory: factory,
		pools:   pools,
		tokens:  tokens,
		workers: defaultPositionWorkers,
		logger:  logger,
	}
}

// Position reads the stored state of one NFT and resolves token metadata.
func (r *PositionReader) Position(ctx context.Context, tokenID *big.Int) (position.Position, error) {
	pmABI, err := PositionManagerABI()
	if err != nil {
		return position.Position{}, fmt.Errorf("parse position manager abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.manager, pmABI, "positions", tokenID)
	if err != nil {
		return position.Position{}, err
	}
	if len(values) < 12 {
		return position.Position{}, fmt.Errorf("positions: expected 12 values, got %d", len(values))
	}

	addr0, err := asAddress(values[2])
	if err != nil {
		return position.Position{}, fmt.Errorf("token0: %w", err)
	}
	addr1, err := asAddress(values[3])
	if err != nil {
		return position.Position{}, fmt.Errorf("token1: %w", err)
	}
	fee, err := asUint24(values[4])
	if err != nil {
		return position.Position{}, fmt.Errorf("fee: %w", err)
	}
	lower, err := asInt24(values[5])
	if err != nil {
		return position.Position{}, fmt.Errorf("tick lower: %w", err)
	}
	upper, err := asInt24(values[6])
	if err != nil {
		return position.Position{}, fmt.Errorf("tick upper: %w", err)
	}
	liquidity, err := asBigInt(values[7])
	if err != nil {
		return position.Position{}, fmt.Errorf("liquidity: %w", err)
	}
	owed0, err := asBigInt(values[10])
	if err != nil {
		return position.Position{}, fmt.Errorf("tokens owed0: %w", err)
	}
	owed1, err := asBigInt(values[11])
	if err != nil {
		return position.Position{}, fmt.Errorf("tokens owed1: %w", err)
	}

	token0, err := r.tokens.Token(ctx, addr0)
	if err != nil {
		return position.Position{}, fmt.Errorf("token0 metadata: %w", err)
	}
	token1, err := r.tokens.Token(ctx, addr1)
	if err != nil {
		return position.Position{}, fmt.Errorf("token1 metadata: %w", err)
	}

	return position.Position{
		TokenID:     new(big.Int).Set(tokenID),
		Token0:      token0,
		Token1:      token1,
		Fee:         fee,
		TickLower:   lower,
		TickUpper:   upper,
		Liquidity:   liquidity,
		TokensOwed0: owed0,
		TokensOwed1: owed1,
	}, nil
}

// TokenIDs enumerates the NFTs held by owner.
func (r *PositionReader) TokenIDs(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	pmABI, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.manager, pmABI, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	count, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	if !count.IsInt64() {
		return nil, fmt.Errorf("balanceOf: implausible count %s", count)
	}

	ids := make([]*big.Int, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		values, err := callMethod(ctx, r.caller, r.manager, pmABI, "tokenOfOwnerByIndex", owner, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		id, err := asBigInt(values[0])
		if err != nil {
			return nil, fmt.Errorf("tokenOfOwnerByIndex: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// OwnerPositions loads and derives every position of owner concurrently. A
// position that fails to load is logged and skipped.
func (r *PositionReader) OwnerPositions(ctx context.Context, owner common.Address) ([]OwnedPosition, error) {
	ids, err := r.TokenIDs(ctx, owner)
	if err != nil {
		return nil, err
	}

	results := make([]*OwnedPosition, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			owned, err := r.load(gctx, owner, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.Warn("position load failed", zap.String("tokenId", id.String()), zap.Error(err))
				return nil
			}
			results[i] = &owned
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]OwnedPosition, 0, len(results))
	for _, res := range results {
		if res != nil {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *PositionReader) load(ctx context.Context, owner common.Address, id *big.Int) (OwnedPosition, error) {
	pos, err := r.Position(ctx, id)
	if err != nil {
		return OwnedPosition{}, err
	}
	pos.Owner = owner

	pool, err := r.factory.PoolAddress(ctx, pos.Token0.Address, pos.Token1.Address, pos.Fee)
	if err != nil {
		return OwnedPosition{}, err
	}
	if pool == (common.Address{}) {
		return OwnedPosition{}, fmt.Errorf("%w: fee %d", ErrPoolNotFound, pos.Fee)
	}
	state, err := r.pools.State(ctx, pool)
	if err != nil {
		return OwnedPosition{}, err
	}
	view, err := position.Derive(pos, state)
	if err != nil {
		return OwnedPosition{}, err
	}
	return OwnedPosition{Pool: pool, Position: pos, State: state, View: view}, nil
}
