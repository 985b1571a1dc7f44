package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"liquidityDesk/internal/quote"
	"liquidityDesk/internal/rangepolicy"
	"liquidityDesk/internal/txparams"
)

// Common holds settings shared by every command.
type Common struct {
	RPCURL       string
	ChainID      uint64
	LogLevel     string
	MaxRetries   int
	RetryBackoff time.Duration
	Network      Network
}

// QuoteSettings are the quote engine knobs.
type QuoteSettings struct {
	Slippage            float64
	Debounce            time.Duration
	CacheTTL            time.Duration
	HighImpactThreshold float64
}

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	Common
	QuoteSettings
	In          string
	Out         string
	Fee         uint32
	Amount      string
	ExactOutput bool
}

// RangeConfig holds configuration for the range command.
type RangeConfig struct {
	Common
	Policy  rangepolicy.Policy
	Pool    string
	Tick    int
	HasTick bool
	Spacing int
	Price   float64
}

// PreviewConfig holds configuration for the preview command. Unset ticks are
// nil and filled from Policy by RangeFallback.
type PreviewConfig struct {
	Common
	Policy        rangepolicy.Policy
	RangeFallback rangepolicy.Fallback
	Pool          string
	Amount0       string
	Amount1       string
	Primary       string
	Estimate      bool
	TickLower     *int
	TickUpper     *int
}

// PositionsConfig holds configuration for the positions command.
type PositionsConfig struct {
	Common
	Owner string
	Out   string
	PGDSN string
}

// ParamsConfig holds configuration for the params subcommands. Only the fields
// of the chosen operation are read.
type ParamsConfig struct {
	Common
	QuoteSettings
	Policy            rangepolicy.Policy
	RangeFallback     rangepolicy.Fallback
	Outbox            string
	Recipient         string
	From              string
	SwapDeadline      time.Duration
	LiquidityDeadline time.Duration

	In          string
	Out         string
	Fee         uint32
	Amount      string
	ExactOutput bool

	TokenA    string
	TokenB    string
	AmountA   string
	AmountB   string
	TickLower *int
	TickUpper *int

	TokenID   string
	Percent   int
	PayNative bool
}

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	Common
	QuoteSettings
	Policy rangepolicy.Policy
	Listen string
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("DESK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(1))
	v.SetDefault("log-level", "info")
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("slippage", 0.5)
	v.SetDefault("debounce", quote.DefaultDebounce)
	v.SetDefault("cache-ttl", quote.DefaultCacheTTL)
	v.SetDefault("high-impact-threshold", quote.DefaultHighImpactThreshold)
	v.SetDefault("fee", uint32(3000))
	v.SetDefault("range-fraction", rangepolicy.DefaultRangeFraction)
	v.SetDefault("full-range-lower", rangepolicy.DefaultFullRangeLower)
	v.SetDefault("full-range-upper", rangepolicy.DefaultFullRangeUpper)
	v.SetDefault("suggestions", "5,10,25")
	v.SetDefault("swap-deadline", txparams.DefaultSwapDeadline)
	v.SetDefault("deadline", txparams.DefaultLiquidityDeadline)
	v.SetDefault("percent", 100)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper) (Common, error) {
	c := Common{
		RPCURL:       v.GetString("rpc"),
		ChainID:      v.GetUint64("chain-id"),
		LogLevel:     v.GetString("log-level"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}

	var overrides map[string]networkOverride
	if v.IsSet("networks") {
		if err := v.UnmarshalKey("networks", &overrides); err != nil {
			return Common{}, fmt.Errorf("decode networks: %w", err)
		}
	}
	networks, err := mergeNetworks(DefaultNetworks(), overrides)
	if err != nil {
		return Common{}, err
	}
	n, ok := networks[c.ChainID]
	if !ok {
		return Common{}, &ConfigurationError{ChainID: c.ChainID}
	}
	c.Network = n
	return c, nil
}

func loadQuoteSettings(v *viper.Viper) (QuoteSettings, error) {
	s := QuoteSettings{
		Slippage:            v.GetFloat64("slippage"),
		Debounce:            v.GetDuration("debounce"),
		CacheTTL:            v.GetDuration("cache-ttl"),
		HighImpactThreshold: v.GetFloat64("high-impact-threshold"),
	}
	if _, err := quote.SlippageBps(s.Slippage); err != nil {
		return QuoteSettings{}, fmt.Errorf("slippage: %w", err)
	}
	return s, nil
}

func loadPolicy(v *viper.Viper) (rangepolicy.Policy, error) {
	p := rangepolicy.Policy{
		RangeFraction:  v.GetFloat64("range-fraction"),
		FullRangeLower: v.GetInt("full-range-lower"),
		FullRangeUpper: v.GetInt("full-range-upper"),
	}
	for _, raw := range getStringSlice(v, "suggestions") {
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rangepolicy.Policy{}, fmt.Errorf("suggestion %q: %w", raw, err)
		}
		p.SuggestionPercents = append(p.SuggestionPercents, pct)
	}
	if err := p.Validate(); err != nil {
		return rangepolicy.Policy{}, err
	}
	return p, nil
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return QuoteConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return QuoteConfig{}, err
	}
	settings, err := loadQuoteSettings(v)
	if err != nil {
		return QuoteConfig{}, err
	}
	return QuoteConfig{
		Common:        common,
		QuoteSettings: settings,
		In:            v.GetString("in"),
		Out:           v.GetString("out"),
		Fee:           v.GetUint32("fee"),
		Amount:        v.GetString("amount"),
		ExactOutput:   v.GetBool("exact-output"),
	}, nil
}

// LoadRange merges config file, environment variables, and flags into RangeConfig.
func LoadRange(cfgFile string, flags *pflag.FlagSet) (RangeConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return RangeConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return RangeConfig{}, err
	}
	policy, err := loadPolicy(v)
	if err != nil {
		return RangeConfig{}, err
	}
	return RangeConfig{
		Common:  common,
		Policy:  policy,
		Pool:    v.GetString("pool"),
		Tick:    v.GetInt("tick"),
		HasTick: v.IsSet("tick"),
		Spacing: v.GetInt("spacing"),
		Price:   v.GetFloat64("price"),
	}, nil
}

// LoadPreview merges config file, environment variables, and flags into PreviewConfig.
func LoadPreview(cfgFile string, flags *pflag.FlagSet) (PreviewConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return PreviewConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return PreviewConfig{}, err
	}
	policy, err := loadPolicy(v)
	if err != nil {
		return PreviewConfig{}, err
	}
	fallback, err := rangepolicy.ParseFallback(v.GetString("range-fallback"))
	if err != nil {
		return PreviewConfig{}, err
	}
	cfg := PreviewConfig{
		Common:        common,
		Policy:        policy,
		RangeFallback: fallback,
		Pool:          v.GetString("pool"),
		Amount0:       v.GetString("amount0"),
		Amount1:       v.GetString("amount1"),
		Primary:       v.GetString("primary"),
		Estimate:      v.GetBool("estimate"),
		TickLower:     optionalInt(v, "tick-lower"),
		TickUpper:     optionalInt(v, "tick-upper"),
	}
	switch cfg.Primary {
	case "", "0", "1":
	default:
		return PreviewConfig{}, fmt.Errorf("primary must be 0 or 1, got %q", cfg.Primary)
	}
	if cfg.Estimate && cfg.Primary == "" {
		return PreviewConfig{}, fmt.Errorf("estimate needs primary 0 or 1")
	}
	return cfg, nil
}

// LoadPositions merges config file, environment variables, and flags into PositionsConfig.
func LoadPositions(cfgFile string, flags *pflag.FlagSet) (PositionsConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return PositionsConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return PositionsConfig{}, err
	}
	return PositionsConfig{
		Common: common,
		Owner:  v.GetString("owner"),
		Out:    v.GetString("out"),
		PGDSN:  v.GetString("pg-dsn"),
	}, nil
}

// LoadParams merges config file, environment variables, and flags into ParamsConfig.
func LoadParams(cfgFile string, flags *pflag.FlagSet) (ParamsConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ParamsConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return ParamsConfig{}, err
	}
	settings, err := loadQuoteSettings(v)
	if err != nil {
		return ParamsConfig{}, err
	}
	policy, err := loadPolicy(v)
	if err != nil {
		return ParamsConfig{}, err
	}
	fallback, err := rangepolicy.ParseFallback(v.GetString("range-fallback"))
	if err != nil {
		return ParamsConfig{}, err
	}
	return ParamsConfig{
		Common:            common,
		QuoteSettings:     settings,
		Policy:            policy,
		RangeFallback:     fallback,
		Outbox:            v.GetString("outbox"),
		Recipient:         v.GetString("recipient"),
		From:              v.GetString("from"),
		SwapDeadline:      v.GetDuration("swap-deadline"),
		LiquidityDeadline: v.GetDuration("deadline"),
		In:                v.GetString("in"),
		Out:               v.GetString("out"),
		Fee:               v.GetUint32("fee"),
		Amount:            v.GetString("amount"),
		ExactOutput:       v.GetBool("exact-output"),
		TokenA:            v.GetString("token-a"),
		TokenB:            v.GetString("token-b"),
		AmountA:           v.GetString("amount-a"),
		AmountB:           v.GetString("amount-b"),
		TickLower:         optionalInt(v, "tick-lower"),
		TickUpper:         optionalInt(v, "tick-upper"),
		TokenID:           v.GetString("token-id"),
		Percent:           v.GetInt("percent"),
		PayNative:         v.GetBool("pay-native"),
	}, nil
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ServeConfig{}, err
	}
	v.SetDefault("listen", ":8080")
	common, err := loadCommon(v)
	if err != nil {
		return ServeConfig{}, err
	}
	settings, err := loadQuoteSettings(v)
	if err != nil {
		return ServeConfig{}, err
	}
	policy, err := loadPolicy(v)
	if err != nil {
		return ServeConfig{}, err
	}
	return ServeConfig{
		Common:        common,
		QuoteSettings: settings,
		Policy:        policy,
		Listen:        v.GetString("listen"),
	}, nil
}

// optionalInt is nil unless key was set by flag, env or file.
func optionalInt(v *viper.Viper, key string) *int {
	if !v.IsSet(key) {
		return nil
	}
	n := v.GetInt(key)
	return &n
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
