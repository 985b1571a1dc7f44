package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityDesk/internal/model"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for pools and position snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the pools and position_snapshots tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutSnapshots upserts pools first so snapshots never reference an unknown pool.
func (s *Store) PutSnapshots(ctx context.Context, pools []model.PoolRef, snapshots []model.PositionSnapshot) error {
	if err := s.UpsertPools(ctx, pools); err != nil {
		return fmt.Errorf("upsert pools: %w", err)
	}
	if err := s.UpsertPositionSnapshots(ctx, snapshots); err != nil {
		return fmt.Errorf("upsert snapshots: %w", err)
	}
	return nil
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolRef) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				chain_id, pool_address, token0, token1, fee, tick_spacing, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (chain_id, pool_address)
			DO UPDATE SET
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				fee = EXCLUDED.fee,
				tick_spacing = EXCLUDED.tick_spacing,
				updated_at = now()
		`,
			int64(pool.ChainID),
			pool.Address,
			pool.Token0,
			pool.Token1,
			int64(pool.Fee),
			pool.TickSpacing,
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// UpsertPositionSnapshots stores one row per position and observation time.
// Integer amounts are numeric columns fed from decimal strings.
func (s *Store) UpsertPositionSnapshots(ctx context.Context, snapshots []model.PositionSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO position_snapshots (
				chain_id, token_id, observed_at, pool_address, owner, tick_lower, tick_upper,
				current_tick, sqrt_price_x96, in_range, side, liquidity, amount0, amount1,
				fees0, fees1, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::text::numeric,$10,$11,$12::text::numeric,$13::text::numeric,$14::text::numeric,$15,$16,now())
			ON CONFLICT (chain_id, token_id, observed_at)
			DO UPDATE SET
				pool_address = EXCLUDED.pool_address,
				owner = EXCLUDED.owner,
				current_tick = EXCLUDED.current_tick,
				sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
				in_range = EXCLUDED.in_range,
				side = EXCLUDED.side,
				liquidity = EXCLUDED.liquidity,
				amount0 = EXCLUDED.amount0,
				amount1 = EXCLUDED.amount1,
				fees0 = EXCLUDED.fees0,
				fees1 = EXCLUDED.fees1
		`,
			int64(snap.ChainID),
			snap.TokenID,
			snap.ObservedAt,
			snap.Pool,
			snap.Owner,
			snap.TickLower,
			snap.TickUpper,
			snap.CurrentTick,
			snap.SqrtPriceX96,
			snap.InRange,
			snap.Side,
			snap.Liquidity,
			snap.Amount0,
			snap.Amount1,
			snap.Fees0,
			snap.Fees1,
		)
	}
	return s.sendBatch(ctx, batch, len(snapshots))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
