package model

import (
	"encoding/json"
	"time"
)

// TxRecord is a built but unsigned transaction written to the outbox.
type TxRecord struct {
	ID        string          `json:"id"`
	ChainID   uint64          `json:"chain_id"`
	Method    string          `json:"method"`
	To        string          `json:"to"`
	Data      string          `json:"data"`
	Value     string          `json:"value"`
	Params    json.RawMessage `json:"params"`
	CreatedAt time.Time       `json:"created_at"`
}
