package config

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Network holds the contract addresses of one supported chain.
type Network struct {
	ChainID         uint64
	Name            string
	NativeSymbol    string
	WrappedNative   common.Address
	Factory         common.Address
	SwapRouter      common.Address
	QuoterV2        common.Address
	PositionManager common.Address
}

// ConfigurationError reports a missing network or contract address.
type ConfigurationError struct {
	ChainID uint64
	Field   string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("network %d is not configured", e.ChainID)
	}
	return fmt.Sprintf("network %d: %s address is not configured", e.ChainID, e.Field)
}

var (
	v3Factory         = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	v3SwapRouter      = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
	v3QuoterV2        = common.HexToAddress("0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v3PositionManager = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
)

// DefaultNetworks returns the built-in deployments keyed by chain ID.
func DefaultNetworks() map[uint64]Network {
	canonical := func(id uint64, name, native, wrapped string) Network {
		return Network{
			ChainID:         id,
			Name:            name,
			NativeSymbol:    native,
			WrappedNative:   common.HexToAddress(wrapped),
			Factory:         v3Factory,
			SwapRouter:      v3SwapRouter,
			QuoterV2:        v3QuoterV2,
			PositionManager: v3PositionManager,
		}
	}
	return map[uint64]Network{
		1:     canonical(1, "mainnet", "ETH", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		42161: canonical(42161, "arbitrum", "ETH", "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		10:    canonical(10, "optimism", "ETH", "0x4200000000000000000000000000000000000006"),
		137:   canonical(137, "polygon", "MATIC", "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),
		11155111: {
			ChainID:         11155111,
			Name:            "sepolia",
			NativeSymbol:    "ETH",
			WrappedNative:   common.HexToAddress("0x8e91d1043a2bcc8b68cd25e73847cb392e3a604d"),
			Factory:         common.HexToAddress("0x22646E27aB580686fbaC0613d7fC4576E0F0C040"),
			SwapRouter:      common.HexToAddress("0xec95F62fc99f14E75E0C8caA12387E7270486fd7"),
			QuoterV2:        common.HexToAddress("0x6318139bDb31F6687C542918bC80A6f97D0017fd"),
			PositionManager: common.HexToAddress("0x5b048c2Eb80693810117652428d35883881E55A9"),
		},
	}
}

// Require returns a ConfigurationError for the first unset address among fields.
func (n Network) Require(fields ...string) error {
	for _, field := range fields {
		var addr common.Address
		switch field {
		case "wrapped-native":
			addr = n.WrappedNative
		case "factory":
			addr = n.Factory
		case "swap-router":
			addr = n.SwapRouter
		case "quoter":
			addr = n.QuoterV2
		case "position-manager":
			addr = n.PositionManager
		default:
			return fmt.Errorf("unknown network field %q", field)
		}
		if addr == (common.Address{}) {
			return &ConfigurationError{ChainID: n.ChainID, Field: field}
		}
	}
	return nil
}

// networkOverride is the config file shape under networks.<chainID>.
type networkOverride struct {
	Name            string `mapstructure:"name"`
	NativeSymbol    string `mapstructure:"native-symbol"`
	WrappedNative   string `mapstructure:"wrapped-native"`
	Factory         string `mapstructure:"factory"`
	SwapRouter      string `mapstructure:"swap-router"`
	QuoterV2        string `mapstructure:"quoter"`
	PositionManager string `mapstructure:"position-manager"`
}

func mergeNetworks(base map[uint64]Network, overrides map[string]networkOverride) (map[uint64]Network, error) {
	for key, o := range overrides {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("network key %q: %w", key, err)
		}
		n := base[id]
		n.ChainID = id
		if o.Name != "" {
			n.Name = o.Name
		}
		if o.NativeSymbol != "" {
			n.NativeSymbol = o.NativeSymbol
		}
		for _, f := range []struct {
			raw string
			dst *common.Address
		}{
			{o.WrappedNative, &n.WrappedNative},
			{o.Factory, &n.Factory},
			{o.SwapRouter, &n.SwapRouter},
			{o.QuoterV2, &n.QuoterV2},
			{o.PositionManager, &n.PositionManager},
		} {
			if f.raw == "" {
				continue
			}
			if !common.IsHexAddress(f.raw) {
				return nil, fmt.Errorf("network %d: invalid address %q", id, f.raw)
			}
			*f.dst = common.HexToAddress(f.raw)
		}
		base[id] = n
	}
	return base, nil
}
