package quote

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"liquidityDesk/internal/metrics"
	"liquidityDesk/internal/token"
)

const (
	DefaultDebounce  = 300 * time.Millisecond
	updateBufferSize = 16
)

var ErrSessionClosed = errors.New("quote session closed")

// State is the lifecycle of one quote slot.
type State int

const (
	Idle State = iota
	Debouncing
	InFlight
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Debouncing:
		return "debouncing"
	case InFlight:
		return "in_flight"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Input is one edit of the swap form. EditingOutput selects exact-output
// quoting; the other field is the one overwritten with the derived amount.
type Input struct {
	TokenIn         token.Token
	TokenOut        token.Token
	Fee             uint32
	Amount          *big.Int
	EditingOutput   bool
	SlippagePercent float64
}

func (in Input) request() Request {
	dir := ExactInput
	if in.EditingOutput {
		dir = ExactOutput
	}
	return Request{
		TokenIn:         in.TokenIn,
		TokenOut:        in.TokenOut,
		Fee:             in.Fee,
		Amount:          in.Amount,
		Direction:       dir,
		SlippagePercent: in.SlippagePercent,
	}
}

func (in Input) samePool(other Input) bool {
	return in.TokenIn.Address == other.TokenIn.Address &&
		in.TokenOut.Address == other.TokenOut.Address &&
		in.Fee == other.Fee
}

// Update is emitted on every state transition. Quote is set only when State is
// Resolved; Err only when State is Failed.
type Update struct {
	Generation    uint64
	State         State
	EditingOutput bool
	Quote         *Quote
	Err           error
}

type result struct {
	gen   uint64
	quote Quote
	err   error
}

// Session drives one quote slot through Idle, Debouncing, InFlight, Resolved and
// Failed. A single goroutine owns all state; the newest input always wins and
// results from superseded generations are dropped.
type Session struct {
	engine   *Engine
	debounce time.Duration
	logger   *zap.Logger

	inputs  chan Input
	refresh chan struct{}
	results chan result
	updates chan Update
	done    chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	current Update
}

func NewSession(engine *Engine, debounce time.Duration, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	s := &Session{
		engine:   engine,
		debounce: debounce,
		logger:   logger,
		inputs:   make(chan Input),
		refresh:  make(chan struct{}),
		results:  make(chan result),
		updates:  make(chan Update, updateBufferSize),
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Submit records a new edit and restarts the debounce window.
func (s *Session) Submit(in Input) error {
	select {
	case s.inputs <- in:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Refresh purges the cache and re-quotes the latest input immediately.
func (s *Session) Refresh() error {
	select {
	case s.refresh <- struct{}{}:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Updates streams state transitions. When the consumer falls behind the
// oldest unread update is discarded. The channel closes after Close.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Current returns the most recent update.
func (s *Session) Current() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close stops the loop and any pending timer and waits for in-flight calls to
// return. Results that arrive afterwards are discarded.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Session) run() {
	defer s.wg.Done()
	defer close(s.updates)

	var (
		gen     uint64
		last    Input
		hasLast bool
		timer   *time.Timer
		timerC  <-chan time.Time
		cancel  context.CancelFunc
	)

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		timerC = nil
	}
	cancelInFlight := func() {
		if cancel != nil {
			cancel()
			cancel = nil
		}
	}
	dispatch := func() {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		s.emit(Update{Generation: gen, State: InFlight, EditingOutput: last.EditingOutput})
		s.wg.Add(1)
		go s.fetch(ctx, gen, last.request())
	}

	for {
		select {
		case <-s.done:
			stopTimer()
			cancelInFlight()
			return

		case in := <-s.inputs:
			gen++
			stopTimer()
			cancelInFlight()
			if hasLast && !in.samePool(last) {
				s.engine.Purge()
			}
			last, hasLast = in, true

			if in.Amount == nil || in.Amount.Sign() <= 0 {
				s.emit(Update{Generation: gen, State: Idle, EditingOutput: in.EditingOutput})
				continue
			}
			s.emit(Update{Generation: gen, State: Debouncing, EditingOutput: in.EditingOutput})
			timer = time.NewTimer(s.debounce)
			timerC = timer.C

		case <-timerC:
			timer, timerC = nil, nil
			dispatch()

		case <-s.refresh:
			s.engine.Purge()
			if !hasLast || last.Amount == nil || last.Amount.Sign() <= 0 {
				continue
			}
			gen++
			stopTimer()
			cancelInFlight()
			dispatch()

		case r := <-s.results:
			if r.gen != gen {
				metrics.QuoteStaleDropped.Inc()
				s.logger.Debug("dropping superseded quote", zap.Uint64("generation", r.gen), zap.Uint64("current", gen))
				continue
			}
			cancelInFlight()
			if r.err != nil {
				s.emit(Update{Generation: gen, State: Failed, EditingOutput: last.EditingOutput, Err: r.err})
				continue
			}
			q := r.quote
			s.emit(Update{Generation: gen, State: Resolved, EditingOutput: last.EditingOutput, Quote: &q})
		}
	}
}

func (s *Session) fetch(ctx context.Context, gen uint64, req Request) {
	defer s.wg.Done()
	q, err := s.engine.Quote(ctx, req)
	select {
	case s.results <- result{gen: gen, quote: q, err: err}:
	case <-s.done:
	}
}

func (s *Session) emit(u Update) {
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()

	for {
		select {
		case s.updates <- u:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}
