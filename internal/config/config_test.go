package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"

	"liquidityDesk/internal/rangepolicy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadQuoteDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("quote", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.String("amount", "", "")
	if err := flags.Parse([]string{"--in", "ETH", "--amount", "1.5"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadQuote("", flags)
	if err != nil {
		t.Fatalf("load quote: %v", err)
	}
	if cfg.ChainID != 1 || cfg.Network.Name != "mainnet" {
		t.Fatalf("unexpected network: %d %s", cfg.ChainID, cfg.Network.Name)
	}
	if cfg.In != "ETH" || cfg.Amount != "1.5" {
		t.Fatalf("flags not applied: in=%q amount=%q", cfg.In, cfg.Amount)
	}
	if cfg.Fee != 3000 {
		t.Fatalf("unexpected fee: %d", cfg.Fee)
	}
	if cfg.Slippage != 0.5 || cfg.Debounce != 300*time.Millisecond {
		t.Fatalf("unexpected quote settings: %+v", cfg.QuoteSettings)
	}
}

func TestLoadQuoteRejectsBadSlippage(t *testing.T) {
	t.Setenv("DESK_SLIPPAGE", "150")
	if _, err := LoadQuote("", nil); err == nil {
		t.Fatalf("expected slippage error")
	}
}

func TestEnvOverridesChain(t *testing.T) {
	t.Setenv("DESK_CHAIN_ID", "11155111")
	cfg, err := LoadPositions("", nil)
	if err != nil {
		t.Fatalf("load positions: %v", err)
	}
	want := common.HexToAddress("0x5b048c2Eb80693810117652428d35883881E55A9")
	if cfg.Network.PositionManager != want {
		t.Fatalf("unexpected position manager: %s", cfg.Network.PositionManager.Hex())
	}
}

func TestUnknownChain(t *testing.T) {
	t.Setenv("DESK_CHAIN_ID", "999")
	_, err := LoadPositions("", nil)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.ChainID != 999 {
		t.Fatalf("unexpected chain id: %d", cfgErr.ChainID)
	}
}

func TestNetworkOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
chain-id: 8453
networks:
  "8453":
    name: base
    native-symbol: ETH
    wrapped-native: "0x4200000000000000000000000000000000000006"
    quoter: "0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a"
  "1":
    quoter: "0x0000000000000000000000000000000000000abc"
`)
	cfg, err := LoadPositions(path, nil)
	if err != nil {
		t.Fatalf("load positions: %v", err)
	}
	if cfg.Network.Name != "base" || cfg.Network.ChainID != 8453 {
		t.Fatalf("unexpected network: %+v", cfg.Network)
	}
	if err := cfg.Network.Require("wrapped-native", "quoter"); err != nil {
		t.Fatalf("require: %v", err)
	}
	err = cfg.Network.Require("factory")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "factory" {
		t.Fatalf("expected missing factory, got %v", err)
	}
}

func TestMergeNetworksRejectsBadAddress(t *testing.T) {
	_, err := mergeNetworks(DefaultNetworks(), map[string]networkOverride{
		"1": {Factory: "not-an-address"},
	})
	if err == nil {
		t.Fatalf("expected address error")
	}
	if _, err := mergeNetworks(DefaultNetworks(), map[string]networkOverride{"main": {}}); err == nil {
		t.Fatalf("expected key error")
	}
}

func TestLoadRangePolicy(t *testing.T) {
	path := writeConfig(t, `
range-fraction: 0.05
suggestions: [2, 20]
`)
	flags := pflag.NewFlagSet("range", pflag.ContinueOnError)
	flags.Int("tick", 0, "")
	flags.Int("spacing", 60, "")
	if err := flags.Parse(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadRange(path, flags)
	if err != nil {
		t.Fatalf("load range: %v", err)
	}
	if cfg.Policy.RangeFraction != 0.05 {
		t.Fatalf("unexpected fraction: %v", cfg.Policy.RangeFraction)
	}
	if len(cfg.Policy.SuggestionPercents) != 2 || cfg.Policy.SuggestionPercents[1] != 20 {
		t.Fatalf("unexpected suggestions: %v", cfg.Policy.SuggestionPercents)
	}
	if cfg.HasTick {
		t.Fatalf("tick should be unset")
	}
	if cfg.Spacing != 60 {
		t.Fatalf("unexpected spacing: %d", cfg.Spacing)
	}

	if err := flags.Parse([]string{"--tick", "-120"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err = LoadRange(path, flags)
	if err != nil {
		t.Fatalf("load range: %v", err)
	}
	if !cfg.HasTick || cfg.Tick != -120 {
		t.Fatalf("tick not applied: %v %d", cfg.HasTick, cfg.Tick)
	}
}

func TestLoadRangeRejectsBadSuggestion(t *testing.T) {
	t.Setenv("DESK_SUGGESTIONS", "5,abc")
	if _, err := LoadRange("", nil); err == nil {
		t.Fatalf("expected suggestion error")
	}
}

func TestLoadPreviewPrimary(t *testing.T) {
	t.Setenv("DESK_PRIMARY", "2")
	if _, err := LoadPreview("", nil); err == nil {
		t.Fatalf("expected primary error")
	}
}

func TestLoadServeDefaults(t *testing.T) {
	cfg, err := LoadServe("", nil)
	if err != nil {
		t.Fatalf("load serve: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Fatalf("unexpected listen: %q", cfg.Listen)
	}
	if cfg.Policy.FullRangeLower != -887220 {
		t.Fatalf("unexpected policy: %+v", cfg.Policy)
	}
}

func TestGetStringSlice(t *testing.T) {
	if got := splitAndClean(" a, ,b "); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected split: %v", got)
	}
	if got := splitAndClean(""); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestLoadParamsOptionalTicks(t *testing.T) {
	flags := pflag.NewFlagSet("mint", pflag.ContinueOnError)
	flags.Int("tick-lower", 0, "")
	flags.Int("tick-upper", 0, "")
	if err := flags.Parse([]string{"--tick-lower", "-600"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadParams("", flags)
	if err != nil {
		t.Fatalf("load params: %v", err)
	}
	if cfg.TickLower == nil || *cfg.TickLower != -600 {
		t.Fatalf("tick lower not applied: %v", cfg.TickLower)
	}
	if cfg.TickUpper != nil {
		t.Fatalf("unset tick upper should be nil, got %d", *cfg.TickUpper)
	}
	if cfg.RangeFallback != rangepolicy.FallbackFull {
		t.Fatalf("unexpected fallback: %q", cfg.RangeFallback)
	}
	if cfg.Policy.FullRangeUpper != 887220 {
		t.Fatalf("unexpected policy: %+v", cfg.Policy)
	}
}

func TestLoadParamsRejectsBadFallback(t *testing.T) {
	t.Setenv("DESK_RANGE_FALLBACK", "narrow")
	if _, err := LoadParams("", nil); err == nil {
		t.Fatalf("expected fallback error")
	}
}

func TestLoadPreviewEstimateNeedsPrimary(t *testing.T) {
	t.Setenv("DESK_ESTIMATE", "true")
	if _, err := LoadPreview("", nil); err == nil {
		t.Fatalf("expected estimate error")
	}
	t.Setenv("DESK_PRIMARY", "0")
	cfg, err := LoadPreview("", nil)
	if err != nil {
		t.Fatalf("load preview: %v", err)
	}
	if !cfg.Estimate || cfg.TickLower != nil || cfg.TickUpper != nil {
		t.Fatalf("unexpected preview config: %+v", cfg)
	}
}
