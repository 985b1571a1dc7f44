package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityDesk/internal/api"
	"liquidityDesk/internal/config"
	"liquidityDesk/internal/dex"
	"liquidityDesk/internal/position"
	"liquidityDesk/internal/quote"
	"liquidityDesk/internal/storage"
	"liquidityDesk/internal/token"
	"liquidityDesk/internal/txparams"
	"liquidityDesk/internal/v3math"
)

type paramsEnv struct {
	cfg     config.ParamsConfig
	r       *readers
	manager *position.Manager
	builder txparams.Builder
	bps     int64
	logger  *zap.Logger
}

type paramsOp func(ctx context.Context, env *paramsEnv) ([]position.Result, error)

func newParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Build transaction parameters and record them to an outbox",
	}

	cmd.PersistentFlags().String("outbox", "./data/outbox.jsonl", "outbox JSONL path")
	cmd.PersistentFlags().String("recipient", "", "recipient of swapped tokens, minted NFTs or collected fees")
	cmd.PersistentFlags().String("from", "", "holder whose balances and approvals are checked; defaults to the recipient")
	cmd.PersistentFlags().Float64("slippage", 0.5, "slippage tolerance in percent")
	cmd.PersistentFlags().Duration("swap-deadline", txparams.DefaultSwapDeadline, "swap deadline from now")
	cmd.PersistentFlags().Duration("deadline", txparams.DefaultLiquidityDeadline, "liquidity deadline from now")

	swapCmd := &cobra.Command{Use: "swap", Short: "Quote and build a single-pool swap", RunE: paramsRunner(buildSwap, "swap-router", "quoter", "factory")}
	swapCmd.Flags().String("in", "", "token in address or native symbol")
	swapCmd.Flags().String("out", "", "token out address or native symbol")
	swapCmd.Flags().Uint32("fee", 3000, "pool fee tier")
	swapCmd.Flags().String("amount", "", "amount of the edited side in decimal units")
	swapCmd.Flags().Bool("exact-output", false, "amount is the desired output")

	mintCmd := &cobra.Command{Use: "mint", Short: "Build a new position", RunE: paramsRunner(buildMint, "position-manager", "factory")}
	mintCmd.Flags().String("token-a", "", "first token address or native symbol")
	mintCmd.Flags().String("token-b", "", "second token address or native symbol")
	mintCmd.Flags().Uint32("fee", 3000, "pool fee tier")
	mintCmd.Flags().String("amount-a", "", "desired amount of token a")
	mintCmd.Flags().String("amount-b", "", "desired amount of token b")
	mintCmd.Flags().Int("tick-lower", 0, "lower tick; unset uses the range fallback")
	mintCmd.Flags().Int("tick-upper", 0, "upper tick; unset uses the range fallback")
	addRangeFlags(mintCmd)

	increaseCmd := &cobra.Command{Use: "increase", Short: "Add liquidity to a position", RunE: paramsRunner(buildIncrease, "position-manager", "factory")}
	increaseCmd.Flags().String("token-id", "", "position NFT id")
	increaseCmd.Flags().String("amount-a", "", "token0 amount in decimal units")
	increaseCmd.Flags().String("amount-b", "", "token1 amount in decimal units")
	increaseCmd.Flags().Bool("pay-native", false, "pay the wrapped side in the native asset")

	decreaseCmd := &cobra.Command{Use: "decrease", Short: "Remove a percentage of a position's liquidity", RunE: paramsRunner(buildDecrease, "position-manager", "factory")}
	collectCmd := &cobra.Command{Use: "collect", Short: "Collect everything owed to a position", RunE: paramsRunner(buildCollect, "position-manager")}
	removeCmd := &cobra.Command{Use: "remove", Short: "Decrease then collect", RunE: paramsRunner(buildRemove, "position-manager", "factory")}
	burnCmd := &cobra.Command{Use: "burn", Short: "Burn an empty position", RunE: paramsRunner(buildBurn, "position-manager")}
	for _, c := range []*cobra.Command{decreaseCmd, collectCmd, removeCmd, burnCmd} {
		c.Flags().String("token-id", "", "position NFT id")
	}
	for _, c := range []*cobra.Command{decreaseCmd, removeCmd} {
		c.Flags().Int("percent", 100, "share of liquidity to remove (1-100)")
	}

	cmd.AddCommand(swapCmd, mintCmd, increaseCmd, decreaseCmd, collectCmd, removeCmd, burnCmd)
	return cmd
}

func paramsRunner(op paramsOp, required ...string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadParams(configFile(cmd), cmd.Flags())
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := cfg.Network.Require(append(required, "wrapped-native")...); err != nil {
			return err
		}
		bps, err := quote.SlippageBps(cfg.Slippage)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, err := dial(ctx, cfg.Common, logger)
		if err != nil {
			return err
		}
		defer r.Close()

		n := cfg.Network
		outbox := storage.NewOutbox(cfg.Outbox, n.ChainID, n.SwapRouter, n.PositionManager)
		builder := txparams.NewBuilder(n.WrappedNative, cfg.SwapDeadline, cfg.LiquidityDeadline)
		env := &paramsEnv{
			cfg:     cfg,
			r:       r,
			manager: position.NewManager(outbox, builder, position.NewGate(), logger),
			builder: builder,
			bps:     bps,
			logger:  logger,
		}

		results, err := op(ctx, env)
		if err != nil {
			return err
		}
		logger.Info("parameters recorded", zap.String("outbox", cfg.Outbox), zap.Int("count", len(results)))
		return writeJSON(cmd.OutOrStdout(), results)
	}
}

func buildSwap(ctx context.Context, env *paramsEnv) ([]position.Result, error) {
	recipient, err := parseRecipient(env.cfg.Recipient)
	if err != nil {
		return nil, err
	}
	req, err := api.BuildQuoteRequest(ctx, env.r.tokens, env.r.network.NativeSymbol, api.QuoteQuery{
		In:          env.cfg.In,
		Out:         env.cfg.Out,
		Fee:         env.cfg.Fee,
		Amount:      env.cfg.Amount,
		ExactOutput: env.cfg.ExactOutput,
		Slippage:    env.cfg.Slippage,
	})
	if err != nil {
		return nil, err
	}
	q, err := env.r.engine(env.cfg.QuoteSettings, env.logger).Quote(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	if q.HighImpact {
		env.logger.Warn("high price impact", zap.Float64("priceImpact", q.PriceImpact))
	}
	spend := q.AmountIn
	if req.Direction == quote.ExactOutput {
		spend = q.Bound
	}
	if err := checkFunds(ctx, env, env.r.network.SwapRouter, position.Spend{Token: req.TokenIn, Amount: spend}); err != nil {
		return nil, err
	}
	res, err := env.manager.Swap(ctx, req.TokenIn, req.TokenOut, q, recipient)
	if err != nil {
		return nil, err
	}
	return []position.Result{res}, nil
}

func buildMint(ctx context.Context, env *paramsEnv) ([]position.Result, error) {
	recipient, err := parseRecipient(env.cfg.Recipient)
	if err != nil {
		return nil, err
	}
	tokenA, err := resolveToken(ctx, env, env.cfg.TokenA)
	if err != nil {
		return nil, fmt.Errorf("token a: %w", err)
	}
	tokenB, err := resolveToken(ctx, env, env.cfg.TokenB)
	if err != nil {
		return nil, fmt.Errorf("token b: %w", err)
	}
	amountA, err := token.ParseUnits(env.cfg.AmountA, tokenA.Decimals)
	if err != nil {
		return nil, fmt.Errorf("amount a: %w", err)
	}
	amountB, err := token.ParseUnits(env.cfg.AmountB, tokenB.Decimals)
	if err != nil {
		return nil, fmt.Errorf("amount b: %w", err)
	}

	req := txparams.MintRequest{
		TokenA:      tokenA,
		TokenB:      tokenB,
		Fee:         env.cfg.Fee,
		AmountA:     amountA,
		AmountB:     amountB,
		SlippageBps: env.bps,
		Recipient:   recipient,
	}
	pool, err := env.r.factory.PoolAddress(ctx, tokenA.Address, tokenB.Address, env.cfg.Fee)
	if err != nil {
		return nil, err
	}
	spacing, currentTick, err := mintAnchor(ctx, env, pool, req)
	if err != nil {
		return nil, err
	}
	ticks, err := env.cfg.Policy.Bounds(env.cfg.TickLower, env.cfg.TickUpper, env.cfg.RangeFallback, currentTick, spacing)
	if err != nil {
		return nil, fmt.Errorf("range bounds: %w", err)
	}
	req.TickLower, req.TickUpper, req.TickSpacing = ticks.Lower, ticks.Upper, spacing

	err = checkFunds(ctx, env, env.r.network.PositionManager,
		position.Spend{Token: tokenA, Amount: amountA},
		position.Spend{Token: tokenB, Amount: amountB},
	)
	if err != nil {
		return nil, err
	}
	if pool == (common.Address{}) {
		return env.manager.CreateAndMint(ctx, req)
	}
	res, err := env.manager.Mint(ctx, req)
	if err != nil {
		return nil, err
	}
	return []position.Result{res}, nil
}

func buildIncrease(ctx context.Context, env *paramsEnv) ([]position.Result, error) {
	pos, _, err := loadPosition(ctx, env, false)
	if err != nil {
		return nil, err
	}
	amount0, err := parseOptional(env.cfg.AmountA, pos.Token0.Decimals)
	if err != nil {
		return nil, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := parseOptional(env.cfg.AmountB, pos.Token1.Decimals)
	if err != nil {
		return nil, fmt.Errorf("amount1: %w", err)
	}
	token0, token1 := pos.Token0, pos.Token1
	if env.cfg.PayNative {
		native := token.Native(env.r.network.ChainID, env.r.network.NativeSymbol)
		if token0.Address == env.r.network.WrappedNative {
			token0 = native
		}
		if token1.Address == env.r.network.WrappedNative {
			token1 = native
		}
	}
	err = checkFunds(ctx, env, env.r.network.PositionManager,
		position.Spend{Token: token0, Amount: amount0},
		position.Spend{Token: token1, Amount: amount1},
	)
	if err != nil {
		return nil, err
	}
	res, err := env.manager.Increase(ctx, pos, amount0, amount1, env.bps, env.cfg.PayNative)
	if err != nil {
		return nil, err
	}
	return []position.Result{res}, nil
}

func buildDecrease(ctx context.Context, env *paramsEnv) ([]position.Result, error) {
	pos, state, err := loadPosition(ctx, env, true)
	if err != nil {
		return nil, err
	}
	res, err := env.manager.Decrease(ctx, pos, state, env.cfg.Percent, env.bps)
	if err != nil {
		return nil, err
	}
	return []position.Result{res}, nil
}

func buildCollect(ctx context.Context, env *paramsEnv) ([]position.Result, error) {
	recipient, err := parseRecipient(env.cfg.Recipient)
	if err != nil {
		return nil, err
	}
	pos, _, err := loadPosition(ctx, env, false)
	if err != nil {
		return nil, err
	}
	res, err := env.manager.Collect(ctx, pos, recipient)
	if err != nil {
		return nil, err
	}
	return []position.Result{res}, nil
}

func buildRemove(ctx context.Context, env *paramsEnv) ([]position.Result, error) {
	recipient, err := parseRecipient(env.cfg.Recipient)
	if err != nil {
		return nil, err
	}
	pos, state, err := loadPosition(ctx, env, true)
	if err != nil {
		return nil, err
	}
	return env.manager.Remove(ctx, pos, state, env.cfg.Percent, env.bps, recipient)
}

func buildBurn(ctx context.Context, env *paramsEnv) ([]position.Result, error) {
	pos, _, err := loadPosition(ctx, env, false)
	if err != nil {
		return nil, err
	}
	res, err := env.manager.Burn(ctx, pos)
	if err != nil {
		return nil, err
	}
	return []position.Result{res}, nil
}

// loadPosition reads the NFT and, when withState is set, a fresh read of its pool.
func loadPosition(ctx context.Context, env *paramsEnv, withState bool) (position.Position, position.PoolState, error) {
	id, ok := new(big.Int).SetString(env.cfg.TokenID, 10)
	if !ok || id.Sign() < 0 {
		return position.Position{}, position.PoolState{}, fmt.Errorf("invalid token id: %q", env.cfg.TokenID)
	}
	pos, err := env.r.positions.Position(ctx, id)
	if err != nil {
		return position.Position{}, position.PoolState{}, fmt.Errorf("read position %s: %w", id.String(), err)
	}
	if !withState {
		return pos, position.PoolState{}, nil
	}

	pool, err := env.r.factory.PoolAddress(ctx, pos.Token0.Address, pos.Token1.Address, pos.Fee)
	if err != nil {
		return position.Position{}, position.PoolState{}, err
	}
	if pool == (common.Address{}) {
		return position.Position{}, position.PoolState{}, fmt.Errorf("%w: fee %d", dex.ErrPoolNotFound, pos.Fee)
	}
	state, err := env.r.pools.State(ctx, pool)
	if err != nil {
		return position.Position{}, position.PoolState{}, err
	}
	return pos, state, nil
}

// mintAnchor returns the tick spacing and current tick the range fallback is
// centered on. A pool that does not exist yet is priced from the desired amounts.
func mintAnchor(ctx context.Context, env *paramsEnv, pool common.Address, req txparams.MintRequest) (int, int, error) {
	if pool != (common.Address{}) {
		spacing, err := env.r.pools.TickSpacing(ctx, pool)
		if err != nil {
			return 0, 0, err
		}
		state, err := env.r.pools.State(ctx, pool)
		if err != nil {
			return 0, 0, fmt.Errorf("pool state: %w", err)
		}
		return spacing, state.Tick, nil
	}

	spacing, ok := dex.StandardTickSpacing(req.Fee)
	if !ok {
		return 0, 0, fmt.Errorf("%w: unsupported fee tier %d", dex.ErrPoolNotFound, req.Fee)
	}
	sqrt, err := env.builder.InitialSqrtPrice(req)
	if err != nil {
		return 0, 0, err
	}
	tick, err := v3math.SqrtPriceX96ToTick(sqrt)
	if err != nil {
		return 0, 0, fmt.Errorf("initial price: %w", err)
	}
	env.logger.Info("pool not deployed, initializing from desired amounts",
		zap.Uint32("fee", req.Fee), zap.Int("spacing", spacing), zap.Int("tick", tick))
	return spacing, tick, nil
}

// checkFunds refuses parameters the holder cannot pay for. With neither
// --from nor a recipient there is nobody to check.
func checkFunds(ctx context.Context, env *paramsEnv, spender common.Address, spends ...position.Spend) error {
	raw := env.cfg.From
	if raw == "" {
		raw = env.cfg.Recipient
	}
	if raw == "" {
		env.logger.Warn("no holder given, skipping balance and allowance checks")
		return nil
	}
	if !common.IsHexAddress(raw) {
		return fmt.Errorf("invalid holder address: %q", raw)
	}
	return position.CheckFunds(ctx, env.r.tokens, common.HexToAddress(raw), spender, spends...)
}

func resolveToken(ctx context.Context, env *paramsEnv, raw string) (token.Token, error) {
	addr, err := token.ParseRef(raw, env.r.network.NativeSymbol)
	if err != nil {
		return token.Token{}, err
	}
	return env.r.tokens.Token(ctx, addr)
}

func parseRecipient(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid recipient address: %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func parseOptional(amount string, decimals uint8) (*big.Int, error) {
	if amount == "" {
		return new(big.Int), nil
	}
	return token.ParseUnits(amount, decimals)
}
