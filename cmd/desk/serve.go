package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityDesk/internal/api"
	"liquidityDesk/internal/config"
	"liquidityDesk/internal/quote"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve quotes, ranges and position views over HTTP",
		RunE:  runServe,
	}

	addPolicyFlags(cmd)
	cmd.Flags().String("listen", ":8080", "listen address")
	cmd.Flags().Float64("slippage", 0.5, "default slippage tolerance in percent")
	cmd.Flags().Duration("cache-ttl", quote.DefaultCacheTTL, "quote cache TTL")
	cmd.Flags().Float64("high-impact-threshold", quote.DefaultHighImpactThreshold, "price impact percent flagged as high")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadServe(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Network.Require("wrapped-native", "factory", "quoter"); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := dial(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	e := api.NewServer(logger)
	api.NewQuoteHandler(e, r.engine(cfg.QuoteSettings, logger), r.tokens, r.network.NativeSymbol, cfg.Slippage)
	api.NewRangeHandler(e, cfg.Policy, r.pools, r.tokens)
	api.NewPositionHandler(e, cfg.Policy, r.pools, r.tokens)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server start", zap.String("listen", cfg.Listen), zap.Uint64("chain_id", cfg.ChainID))
		if err := e.Start(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("http server shutdown")
	return e.Shutdown(shutdownCtx)
}
