package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityDesk/internal/api"
	"liquidityDesk/internal/config"
	"liquidityDesk/internal/v3math"
)

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview how much of a deposit a range would use",
		RunE:  runPreview,
	}

	addRangeFlags(cmd)
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("amount0", "", "token0 amount in decimal units")
	cmd.Flags().String("amount1", "", "token1 amount in decimal units")
	cmd.Flags().String("primary", "", "derive the other amount from token 0 or 1")
	cmd.Flags().Int("tick-lower", 0, "lower tick; unset uses the range fallback")
	cmd.Flags().Int("tick-upper", 0, "upper tick; unset uses the range fallback")
	cmd.Flags().Bool("estimate", false, "only fill the counterpart of the primary amount")

	return cmd
}

func runPreview(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadPreview(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("invalid pool address: %q", cfg.Pool)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := dial(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	target, err := api.PoolRange(ctx, r.pools, r.tokens, common.HexToAddress(cfg.Pool), api.RangeBounds{
		Lower:    cfg.TickLower,
		Upper:    cfg.TickUpper,
		Policy:   cfg.Policy,
		Fallback: cfg.RangeFallback,
	})
	if err != nil {
		return err
	}
	if cfg.Estimate {
		estimate, err := api.RunEstimate(target, cfg.Amount0, cfg.Amount1, cfg.Primary)
		if errors.Is(err, v3math.ErrDegenerateRange) {
			logger.Warn("cannot estimate, supply both amounts", zap.Int("tickLower", target.TickLower), zap.Int("tickUpper", target.TickUpper))
		}
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), estimate)
	}
	preview, err := api.RunPreview(target, cfg.Amount0, cfg.Amount1, cfg.Primary)
	if err != nil {
		return err
	}
	if preview.Warning != "" {
		logger.Warn("imbalanced deposit", zap.String("warning", preview.Warning), zap.Float64("ratio", preview.ImbalanceRatio))
	}
	return writeJSON(cmd.OutOrStdout(), preview)
}
