package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"liquidityDesk/internal/dex"
	"liquidityDesk/internal/model"
	"liquidityDesk/internal/position"
	"liquidityDesk/internal/txparams"
)

// Outbox is an executor that records encoded calls to a JSONL file instead of
// signing them. Signing and broadcast happen elsewhere.
type Outbox struct {
	path    string
	chainID uint64
	targets map[txparams.Target]common.Address
	now     func() time.Time

	mu  sync.Mutex
	seq uint64
}

func NewOutbox(path string, chainID uint64, swapRouter, positionManager common.Address) *Outbox {
	return &Outbox{
		path:    path,
		chainID: chainID,
		targets: map[txparams.Target]common.Address{
			txparams.SwapRouter:      swapRouter,
			txparams.PositionManager: positionManager,
		},
		now: time.Now,
	}
}

// Record encodes p and appends it to the outbox file.
func (o *Outbox) Record(p txparams.Params) (model.TxRecord, error) {
	to, ok := o.targets[p.Target()]
	if !ok || to == (common.Address{}) {
		return model.TxRecord{}, fmt.Errorf("no address for target %s", p.Target())
	}
	data, err := dex.Calldata(p)
	if err != nil {
		return model.TxRecord{}, fmt.Errorf("encode %s: %w", p.Method(), err)
	}
	params, err := json.Marshal(p)
	if err != nil {
		return model.TxRecord{}, fmt.Errorf("marshal %s params: %w", p.Method(), err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	createdAt := o.now().UTC()
	record := model.TxRecord{
		ID:        recordID(o.chainID, to, data, createdAt, o.seq).Hex(),
		ChainID:   o.chainID,
		Method:    p.Method(),
		To:        to.Hex(),
		Data:      hexutil.Encode(data),
		Value:     p.NativeValue().String(),
		Params:    params,
		CreatedAt: createdAt,
	}
	if err := appendLines(o.path, []interface{}{record}); err != nil {
		return model.TxRecord{}, err
	}
	return record, nil
}

// Submit records p. The returned Tx resolves immediately.
func (o *Outbox) Submit(_ context.Context, p txparams.Params) (position.Tx, error) {
	record, err := o.Record(p)
	if err != nil {
		return nil, err
	}
	return recordedTx{hash: common.HexToHash(record.ID)}, nil
}

type recordedTx struct {
	hash common.Hash
}

func (t recordedTx) Hash() common.Hash              { return t.hash }
func (t recordedTx) Wait(ctx context.Context) error { return ctx.Err() }

func recordID(chainID uint64, to common.Address, data []byte, at time.Time, seq uint64) common.Hash {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], chainID)
	binary.BigEndian.PutUint64(buf[8:16], uint64(at.UnixNano()))
	binary.BigEndian.PutUint64(buf[16:24], seq)
	return crypto.Keccak256Hash(buf[:], to.Bytes(), data)
}
