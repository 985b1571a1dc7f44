package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPositionSnapshotJSONStringAmounts(t *testing.T) {
	snap := PositionSnapshot{
		ChainID:      1,
		Pool:         "0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8",
		TokenID:      "12345",
		SqrtPriceX96: "79228162514264337593543950336",
		Liquidity:    "5000000000000000000",
		Amount0:      "12345678901234567890",
		Amount1:      "0",
		ObservedAt:   time.Unix(1700000000, 0).UTC(),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"token_id", "sqrt_price_x96", "liquidity", "amount0", "amount1"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string, got %T", key, decoded[key])
		}
	}
	if decoded["observed_at"] != "2023-11-14T22:13:20Z" {
		t.Fatalf("unexpected observed_at %v", decoded["observed_at"])
	}
}
