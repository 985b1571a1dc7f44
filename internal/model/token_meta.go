package model

// TokenMeta captures ERC20 metadata. Native is set for the chain's gas asset,
// which has no contract.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Native   bool   `json:"native,omitempty"`
}
