package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"liquidityDesk/internal/dex"
	"liquidityDesk/internal/model"
	"liquidityDesk/internal/position"
	"liquidityDesk/internal/txparams"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "snapshots.jsonl")
	store := NewJsonlStorage(path)

	snaps := []model.PositionSnapshot{
		{ChainID: 1, TokenID: "1", Liquidity: "10"},
		{ChainID: 1, TokenID: "2", Liquidity: "20"},
	}
	if err := store.PutSnapshots(context.Background(), nil, snaps[:1]); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.PutSnapshots(context.Background(), nil, snaps[1:]); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.PutSnapshots(context.Background(), nil, nil); err != nil {
		t.Fatalf("empty put: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var got model.PositionSnapshot
	if err := json.Unmarshal([]byte(lines[1]), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TokenID != "2" || got.Liquidity != "20" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestSnapshotFromOwnedPosition(t *testing.T) {
	pool := common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8")
	owned := dex.OwnedPosition{
		Pool:  pool,
		State: position.PoolState{SqrtPriceX96: big.NewInt(42), Tick: 5},
		View: position.View{
			TokenID:          "7",
			TickLower:        -60,
			TickUpper:        60,
			CurrentTick:      5,
			InRange:          true,
			Side:             position.InRange,
			Liquidity:        "1000",
			Amount0:          big.NewInt(11),
			UncollectedFees0: "0.5",
		},
	}
	at := time.Unix(1700000000, 0)

	snap := Snapshot(10, owned, at)
	if snap.Pool != pool.Hex() || snap.ChainID != 10 {
		t.Fatalf("unexpected identity: %+v", snap)
	}
	if snap.SqrtPriceX96 != "42" || snap.Amount0 != "11" || snap.Amount1 != "0" {
		t.Fatalf("unexpected amounts: %+v", snap)
	}
	if snap.Side != "IN_RANGE" || !snap.InRange || snap.TickLower != -60 {
		t.Fatalf("unexpected range: %+v", snap)
	}
	if !snap.ObservedAt.Equal(at) || snap.ObservedAt.Location() != time.UTC {
		t.Fatalf("unexpected observed_at: %v", snap.ObservedAt)
	}
}

func TestOutboxRecordsCalldata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.jsonl")
	manager := common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
	outbox := NewOutbox(path, 1, common.Address{}, manager)
	outbox.now = func() time.Time { return time.Unix(1700000000, 0) }

	p := txparams.Collect{
		TokenID:    big.NewInt(9),
		Recipient:  common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Amount0Max: big.NewInt(1),
		Amount1Max: big.NewInt(2),
	}
	tx, err := outbox.Submit(context.Background(), p)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := tx.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d", len(lines))
	}
	var record model.TxRecord
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.Method != "collect" || record.To != manager.Hex() || record.Value != "0" {
		t.Fatalf("unexpected record: %+v", record)
	}
	pmABI, err := dex.PositionManagerABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	if selector := hexutil.Encode(pmABI.Methods["collect"].ID); !strings.HasPrefix(record.Data, selector) {
		t.Fatalf("unexpected selector: %s", record.Data[:10])
	}
	if record.ID != tx.Hash().Hex() {
		t.Fatalf("id %s does not match hash %s", record.ID, tx.Hash().Hex())
	}

	second, err := outbox.Submit(context.Background(), p)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if second.Hash() == tx.Hash() {
		t.Fatalf("records must get distinct ids")
	}
}

func TestOutboxMissingTarget(t *testing.T) {
	outbox := NewOutbox(filepath.Join(t.TempDir(), "outbox.jsonl"), 1, common.Address{}, common.Address{})
	_, err := outbox.Submit(context.Background(), txparams.Burn{TokenID: big.NewInt(1)})
	if err == nil {
		t.Fatalf("expected missing target error")
	}
}

var _ position.Executor = (*Outbox)(nil)
var _ Storage = (*JsonlStorage)(nil)
