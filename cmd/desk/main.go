package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"liquidityDesk/internal/chain"
	"liquidityDesk/internal/config"
	"liquidityDesk/internal/dex"
	"liquidityDesk/internal/quote"
)

func main() {
	root := &cobra.Command{
		Use:          "desk",
		Short:        "Concentrated liquidity quoting and position desk",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "EVM RPC URL")
	root.PersistentFlags().Uint64("chain-id", 1, "chain ID selecting the network contract set")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Int("max-retries", chain.DefaultMaxRetries, "maximum retry attempts for reads")
	root.PersistentFlags().Duration("retry-backoff", chain.DefaultRetryBackoff, "initial retry backoff")

	root.AddCommand(
		newQuoteCmd(),
		newRangeCmd(),
		newPreviewCmd(),
		newPositionsCmd(),
		newParamsCmd(),
		newServeCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// readers bundles the chain client and the contract readers built on it.
type readers struct {
	client    *chain.Client
	network   config.Network
	tokens    *dex.TokenReader
	pools     *dex.PoolReader
	factory   *dex.Factory
	positions *dex.PositionReader
}

func dial(ctx context.Context, c config.Common, logger *zap.Logger) (*readers, error) {
	if c.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	client, err := chain.NewClient(ctx, c.RPCURL, c.MaxRetries, c.RetryBackoff)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if id.Uint64() != c.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc serves chain %d, configured chain is %d", id.Uint64(), c.ChainID)
	}

	n := c.Network
	tokens := dex.NewTokenReader(client, n.ChainID, n.NativeSymbol, logger)
	pools := dex.NewPoolReader(client, n.ChainID, logger)
	factory := dex.NewFactory(client, n.Factory, n.WrappedNative)
	return &readers{
		client:    client,
		network:   n,
		tokens:    tokens,
		pools:     pools,
		factory:   factory,
		positions: dex.NewPositionReader(client, n.PositionManager, factory, pools, tokens, logger),
	}, nil
}

func (r *readers) Close() {
	r.client.Close()
}

func (r *readers) engine(s config.QuoteSettings, logger *zap.Logger) *quote.Engine {
	return quote.NewEngine(
		dex.NewQuoter(r.client, r.network.QuoterV2),
		dex.NewSpot(r.factory, r.pools),
		quote.EngineConfig{
			WrappedNative:       r.network.WrappedNative,
			CacheTTL:            s.CacheTTL,
			HighImpactThreshold: s.HighImpactThreshold,
		},
		logger,
	)
}

func configFile(cmd *cobra.Command) string {
	cfgFile, _ := cmd.Flags().GetString("config")
	return cfgFile
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
