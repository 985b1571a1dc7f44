package position

import (
	"errors"
	"fmt"
	"sync"

	"liquidityDesk/internal/metrics"
)

var ErrBusy = errors.New("operation already in progress")

// Gate allows at most one mutating operation per key at a time.
type Gate struct {
	mu   sync.Mutex
	busy map[string]string
}

func NewGate() *Gate {
	return &Gate{busy: make(map[string]string)}
}

// Acquire marks key as processing. The returned release is safe to call more
// than once.
func (g *Gate) Acquire(key, op string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if running, ok := g.busy[key]; ok {
		metrics.GateRejections.WithLabelValues(op).Inc()
		return nil, fmt.Errorf("%w: %s is running %s", ErrBusy, key, running)
	}
	g.busy[key] = op

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, key)
			g.mu.Unlock()
		})
	}, nil
}

func (g *Gate) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[key]
	return ok
}
