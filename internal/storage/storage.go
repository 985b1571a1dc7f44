package storage

import (
	"context"
	"time"

	"liquidityDesk/internal/dex"
	"liquidityDesk/internal/model"
)

// Storage defines a sink for derived position snapshots and the pools they
// belong to.
type Storage interface {
	PutSnapshots(ctx context.Context, pools []model.PoolRef, snapshots []model.PositionSnapshot) error
}

// Snapshot flattens one derived position into its persisted form.
func Snapshot(chainID uint64, owned dex.OwnedPosition, at time.Time) model.PositionSnapshot {
	v := owned.View
	snap := model.PositionSnapshot{
		ChainID:     chainID,
		Pool:        owned.Pool.Hex(),
		TokenID:     v.TokenID,
		Owner:       v.Owner,
		TickLower:   int32(v.TickLower),
		TickUpper:   int32(v.TickUpper),
		CurrentTick: int32(v.CurrentTick),
		InRange:     v.InRange,
		Side:        string(v.Side),
		Liquidity:   v.Liquidity,
		Amount0:     bigString(v.Amount0),
		Amount1:     bigString(v.Amount1),
		Fees0:       v.UncollectedFees0,
		Fees1:       v.UncollectedFees1,
		ObservedAt:  at.UTC(),
	}
	if owned.State.SqrtPriceX96 != nil {
		snap.SqrtPriceX96 = owned.State.SqrtPriceX96.String()
	}
	return snap
}
