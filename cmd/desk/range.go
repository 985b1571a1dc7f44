package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"liquidityDesk/internal/api"
	"liquidityDesk/internal/config"
	"liquidityDesk/internal/rangepolicy"
)

func newRangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Suggest tick ranges for a pool or an explicit tick",
		RunE:  runRange,
	}

	addPolicyFlags(cmd)
	cmd.Flags().String("pool", "", "pool address; reads the live tick and price")
	cmd.Flags().Int("tick", 0, "current tick when no pool is given")
	cmd.Flags().Int("spacing", 60, "tick spacing when no pool is given")
	cmd.Flags().Float64("price", 0, "linear price for suggestions; defaults to the tick's price")
	cmd.Flags().Uint8("decimals0", 18, "token0 decimals when no pool is given")
	cmd.Flags().Uint8("decimals1", 18, "token1 decimals when no pool is given")

	return cmd
}

// addRangeFlags registers the policy flags plus the fallback used for unset ticks.
func addRangeFlags(cmd *cobra.Command) {
	addPolicyFlags(cmd)
	cmd.Flags().String("range-fallback", string(rangepolicy.FallbackFull), "range for unset ticks: full or default")
}

func addPolicyFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("range-fraction", rangepolicy.DefaultRangeFraction, "default range half-width as a fraction of |tick|")
	cmd.Flags().Int("full-range-lower", rangepolicy.DefaultFullRangeLower, "full range lower tick")
	cmd.Flags().Int("full-range-upper", rangepolicy.DefaultFullRangeUpper, "full range upper tick")
	cmd.Flags().String("suggestions", "5,10,25", "suggestion widths in percent (comma-separated)")
}

func runRange(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadRange(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Pool == "" {
		if !cfg.HasTick {
			return fmt.Errorf("either --pool or --tick is required")
		}
		d0, _ := cmd.Flags().GetUint8("decimals0")
		d1, _ := cmd.Flags().GetUint8("decimals1")
		rep, err := cfg.Policy.Report(cfg.Tick, cfg.Spacing, cfg.Price, d0, d1)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), rep)
	}
	if !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("invalid pool address: %s", cfg.Pool)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := dial(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	rep, err := api.PoolRangeReport(ctx, cfg.Policy, r.pools, r.tokens, common.HexToAddress(cfg.Pool))
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), rep)
}
