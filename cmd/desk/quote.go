package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityDesk/internal/api"
	"liquidityDesk/internal/config"
	"liquidityDesk/internal/quote"
	"liquidityDesk/internal/token"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a single-pool swap with slippage bounds",
		RunE:  runQuote,
	}

	cmd.Flags().String("in", "", "token in address or native symbol")
	cmd.Flags().String("out", "", "token out address or native symbol")
	cmd.Flags().Uint32("fee", 3000, "pool fee tier in hundredths of a bip")
	cmd.Flags().String("amount", "", "amount of the edited side in decimal units")
	cmd.Flags().Bool("exact-output", false, "amount is the desired output")
	cmd.Flags().Float64("slippage", 0.5, "slippage tolerance in percent")
	cmd.Flags().Duration("cache-ttl", quote.DefaultCacheTTL, "quote cache TTL")
	cmd.Flags().Float64("high-impact-threshold", quote.DefaultHighImpactThreshold, "price impact percent flagged as high")
	cmd.Flags().Duration("debounce", quote.DefaultDebounce, "debounce window for --stdin edits")
	cmd.Flags().Bool("stdin", false, "read one amount per line from stdin and stream debounced quotes")

	return cmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadQuote(configFile(cmd), cmd.Flags())
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

	engine := r.engine(cfg.QuoteSettings, logger)
	q := api.QuoteQuery{
		In:          cfg.In,
		Out:         cfg.Out,
		Fee:         cfg.Fee,
		Amount:      cfg.Amount,
		ExactOutput: cfg.ExactOutput,
		Slippage:    cfg.Slippage,
	}

	stdin, _ := cmd.Flags().GetBool("stdin")
	if stdin {
		return streamQuotes(ctx, cmd, engine, r, q, cfg, logger)
	}

	req, err := api.BuildQuoteRequest(ctx, r.tokens, r.network.NativeSymbol, q)
	if err != nil {
		return err
	}
	res, err := engine.Quote(ctx, req)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}
	logger.Info("quote resolved",
		zap.String("tokenIn", res.TokenIn),
		zap.String("tokenOut", res.TokenOut),
		zap.Uint32("fee", res.Fee),
		zap.String("direction", res.Direction.String()),
		zap.Float64("priceImpact", res.PriceImpact),
	)
	return writeJSON(cmd.OutOrStdout(), api.NewQuoteResponse(res, req.TokenIn, req.TokenOut))
}

// streamQuotes feeds each stdin line to a debounced session and prints every
// resolved or failed update as it arrives.
func streamQuotes(ctx context.Context, cmd *cobra.Command, engine *quote.Engine, r *readers, q api.QuoteQuery, cfg config.QuoteConfig, logger *zap.Logger) error {
	q.Amount = "0"
	base, err := api.BuildQuoteRequest(ctx, r.tokens, r.network.NativeSymbol, q)
	if err != nil {
		return err
	}
	edited := base.TokenIn
	if cfg.ExactOutput {
		edited = base.TokenOut
	}

	session := quote.NewSession(engine, cfg.Debounce, logger)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for u := range session.Updates() {
			switch u.State {
			case quote.Resolved:
				_ = writeJSON(cmd.OutOrStdout(), api.NewQuoteResponse(*u.Quote, base.TokenIn, base.TokenOut))
			case quote.Failed:
				fmt.Fprintf(cmd.ErrOrStderr(), "quote %d failed: %v\n", u.Generation, u.Err)
			}
		}
	}()

	var submitted uint64
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		amount, err := token.ParseUnits(line, edited.Decimals)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skip %q: %v\n", line, err)
			continue
		}
		if err := session.Submit(quote.Input{
			TokenIn:         base.TokenIn,
			TokenOut:        base.TokenOut,
			Fee:             base.Fee,
			Amount:          amount,
			EditingOutput:   cfg.ExactOutput,
			SlippagePercent: cfg.Slippage,
		}); err != nil {
			break
		}
		submitted++
		if ctx.Err() != nil {
			break
		}
	}

	// Let the last edit settle before shutting the session down.
	waitSettled(ctx, session, submitted)
	session.Close()
	<-printed
	return scanner.Err()
}

const settlePoll = 20 * time.Millisecond

func waitSettled(ctx context.Context, session *quote.Session, generation uint64) {
	for {
		cur := session.Current()
		if cur.Generation >= generation {
			switch cur.State {
			case quote.Idle, quote.Resolved, quote.Failed:
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(settlePoll):
		}
	}
}
