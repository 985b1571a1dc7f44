package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityDesk/internal/config"
	"liquidityDesk/internal/model"
	"liquidityDesk/internal/storage"
	"liquidityDesk/internal/storage/postgres"
)

func newPositionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List and derive the positions of an owner",
		RunE:  runPositions,
	}

	cmd.Flags().String("owner", "", "position owner address")
	cmd.Flags().String("out", "", "append snapshots to this JSONL path")
	cmd.Flags().String("pg-dsn", "", "store snapshots in Postgres")

	return cmd
}

func runPositions(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadPositions(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.Owner) {
		return fmt.Errorf("invalid owner address: %q", cfg.Owner)
	}
	if err := cfg.Network.Require("factory", "position-manager"); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks []storage.Storage
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	r, err := dial(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	owner := common.HexToAddress(cfg.Owner)
	owned, err := r.positions.OwnerPositions(ctx, owner)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	logger.Info("positions loaded", zap.String("owner", owner.Hex()), zap.Int("count", len(owned)))

	if len(sinks) > 0 {
		observedAt := time.Now()
		snapshots := make([]model.PositionSnapshot, 0, len(owned))
		seen := make(map[common.Address]bool)
		var pools []model.PoolRef
		for _, op := range owned {
			snapshots = append(snapshots, storage.Snapshot(cfg.ChainID, op, observedAt))
			if seen[op.Pool] {
				continue
			}
			seen[op.Pool] = true
			meta, err := r.pools.Meta(ctx, op.Pool)
			if err != nil {
				logger.Warn("pool meta unavailable", zap.String("pool", op.Pool.Hex()), zap.Error(err))
				continue
			}
			pools = append(pools, meta)
		}
		for _, sink := range sinks {
			if err := sink.PutSnapshots(ctx, pools, snapshots); err != nil {
				return fmt.Errorf("store snapshots: %w", err)
			}
		}
		logger.Info("snapshots stored", zap.Int("snapshots", len(snapshots)), zap.Int("pools", len(pools)))
	}

	return writeJSON(cmd.OutOrStdout(), owned)
}
