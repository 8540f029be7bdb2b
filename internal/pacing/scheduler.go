package pacing

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"

	"github.com/pricofy/reading-pacer/internal/domain"
)

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("scheduler already started")
	// ErrCancelled is the outcome of a playback stopped by Cancel.
	ErrCancelled = errors.New("playback cancelled")
	// ErrContentStarved ends a playback whose chunks never arrived within
	// Config.MaxRetries.
	ErrContentStarved = errors.New("no chunks became available")
)

// State is the scheduler's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateTicking
	StatePaused
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTicking:
		return "ticking"
	case StatePaused:
		return "paused"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) {
		s.cfg = cfg
	}
}

// WithClock sets the clock behind every timer; tests pass a fake one.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithLogger sets the logger; events are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithObserver registers fn to receive every event. Calls are serialized;
// expiries arrive from timer goroutines, everything else from the playback
// goroutine.
func WithObserver(fn func(Event)) Option {
	return func(s *Scheduler) {
		s.observer = fn
	}
}

// WithOnComplete registers fn to run once all chunks were revealed and the
// last wait elapsed. It never runs for a cancelled playback.
func WithOnComplete(fn func()) Option {
	return func(s *Scheduler) {
		s.onComplete = fn
	}
}

// Scheduler plays one paragraph. Build a new one for every paragraph.
type Scheduler struct {
	revealer   Revealer
	rate       RateSource
	lineStarts LineStarts
	cfg        Config
	clock      clockwork.Clock
	logger     *slog.Logger
	observer   func(Event)
	onComplete func()

	state *atomic.Int32
	index *atomic.Int64

	mu        sync.Mutex
	started   bool
	paused    bool
	cancelled bool
	resumed   chan struct{}
	pauseCh   chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
	doneOnce  sync.Once
	err       error
	expiries  map[int]clockwork.Timer

	emitMu sync.Mutex
}

// New creates a Scheduler revealing chunks through revealer, paced by rate.
// lineStarts may be nil when the layout is unknown.
func New(revealer Revealer, rate RateSource, lineStarts LineStarts, opts ...Option) *Scheduler {
	s := &Scheduler{
		revealer:   revealer,
		rate:       rate,
		lineStarts: lineStarts,
		cfg:        DefaultConfig(),
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
		state:      atomic.NewInt32(int32(StateIdle)),
		index:      atomic.NewInt64(0),
		pauseCh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rate == nil {
		s.rate = FixedRate(0)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Index returns the index of the next chunk to reveal.
func (s *Scheduler) Index() int {
	return int(s.index.Load())
}

// Done is closed when playback ends for any reason.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Err returns nil after a completed playback, ErrCancelled after Cancel,
// the context error when the parent context ended, or ErrContentStarved.
// It is only meaningful once Done is closed.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// StartParagraph starts playing a fixed chunk list. An empty list completes
// at once.
func (s *Scheduler) StartParagraph(ctx context.Context, chunks []domain.Chunk) error {
	return s.Start(ctx, StaticChunks(chunks))
}

// Start begins playback in the background.
func (s *Scheduler) Start(ctx context.Context, src ChunkSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return ErrCancelled
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.state.Store(int32(StateTicking))
	go s.run(ctx, src)
	return nil
}

// Pause holds playback at the next suspension point. A pending wait keeps
// the time it has left.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateTicking {
		return
	}
	s.paused = true
	s.resumed = make(chan struct{})
	s.state.Store(int32(StatePaused))
	select {
	case s.pauseCh <- struct{}{}:
	default:
	}
}

// Resume continues a paused playback.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.paused || s.State() != StatePaused {
		return
	}
	s.paused = false
	close(s.resumed)
	s.state.Store(int32(StateTicking))
}

// Cancel stops playback. No reveal starts after Cancel returns. Calling it
// more than once, or after completion, does nothing.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	if s.cancelled || s.State() == StateDone {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.state.Store(int32(StateCancelled))
	started := s.started
	if s.cancel != nil {
		s.cancel()
	}
	s.stopExpiries()
	if !started {
		s.err = ErrCancelled
	}
	s.mu.Unlock()

	if !started {
		s.doneOnce.Do(func() { close(s.done) })
	}
}

func (s *Scheduler) run(ctx context.Context, src ChunkSource) {
	chunks, err := s.awaitChunks(ctx, src)
	if err != nil {
		s.finish(err)
		return
	}

	for i, chunk := range chunks {
		if err := s.tick(ctx, i, chunk); err != nil {
			s.finish(err)
			return
		}
	}

	if len(chunks) > 0 && s.cfg.SettleDelay > 0 {
		settle := Event{Kind: EventSettle, Index: len(chunks) - 1, Wait: s.cfg.SettleDelay}
		if err := s.wait(ctx, s.cfg.SettleDelay, settle); err != nil {
			s.finish(err)
			return
		}
	}
	s.finish(nil)
}

func (s *Scheduler) awaitChunks(ctx context.Context, src ChunkSource) ([]domain.Chunk, error) {
	// A fixed list never fills in later, so an empty one is an empty paragraph.
	if static, ok := src.(StaticChunks); ok {
		return static, nil
	}

	retries := 0
	for {
		if err := s.awaitResume(ctx); err != nil {
			return nil, err
		}
		if chunks := src.Chunks(); len(chunks) > 0 {
			return chunks, nil
		}
		if s.cfg.MaxRetries > 0 && retries >= s.cfg.MaxRetries {
			return nil, ErrContentStarved
		}
		retries++
		s.logger.Warn("chunks not ready, retrying", "delay", s.cfg.RetryDelay, "attempt", retries)
		if err := s.wait(ctx, s.cfg.RetryDelay, Event{Kind: EventRetry, Wait: s.cfg.RetryDelay}); err != nil {
			return nil, err
		}
	}
}

// tick reveals chunk i and waits out the rest of its time budget.
func (s *Scheduler) tick(ctx context.Context, i int, chunk domain.Chunk) error {
	if err := s.awaitResume(ctx); err != nil {
		return err
	}

	// Sampled once so the chunk's pacing is stable while the rate moves.
	rate := s.cfg.EffectiveRate(s.rate.CurrentRate())
	ev := Event{
		Index:  i,
		Rate:   rate,
		Words:  chunk.Len(),
		Target: TargetDuration(rate, chunk.Len()),
	}

	elapsed, timedOut, err := s.reveal(ctx, ev)
	if err != nil {
		return err
	}

	ev.Kind = EventWait
	ev.Elapsed = elapsed
	ev.TimedOut = timedOut
	ev.LineBreak = s.lineStarts.Crosses(chunk)
	ev.Wait = RemainingWait(ev.Target, elapsed, ev.LineBreak, s.cfg.LineBreakPause)
	ev.At = time.Time{}

	s.index.Store(int64(i + 1))
	return s.wait(ctx, ev.Wait, ev)
}

// reveal races the chunk's reveal against its safety timeout and returns
// how long it took.
func (s *Scheduler) reveal(ctx context.Context, ev Event) (time.Duration, bool, error) {
	revealCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := s.clock.Now()
	timeout := s.clock.NewTimer(ev.Target + s.cfg.TimeoutSlack)
	defer timeout.Stop()

	done := make(chan error, 1)
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return 0, false, ErrCancelled
	}
	go func() {
		done <- s.revealer.Reveal(revealCtx, ev.Index)
	}()
	s.armExpiry(ev.Index)
	s.mu.Unlock()

	ev.Kind = EventReveal
	ev.At = start
	s.emit(ev)

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("reveal failed", "index", ev.Index, "error", err)
		}
		return s.clock.Since(start), false, nil
	case <-timeout.Chan():
		s.logger.Warn("reveal timed out", "index", ev.Index, "timeout", ev.Target+s.cfg.TimeoutSlack)
		return s.clock.Since(start), true, nil
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}

// wait sleeps for d, honouring pause and cancellation. ev is emitted once
// the timer is armed.
func (s *Scheduler) wait(ctx context.Context, d time.Duration, ev Event) error {
	remaining := d
	armed := false

	for {
		if err := s.awaitResume(ctx); err != nil {
			return err
		}
		if remaining <= 0 {
			if !armed {
				s.emit(ev)
			}
			return nil
		}

		start := s.clock.Now()
		timer := s.clock.NewTimer(remaining)
		if !armed {
			armed = true
			s.emit(ev)
		} else {
			s.emit(Event{Kind: EventResume, Index: ev.Index, Wait: remaining})
		}

		select {
		case <-timer.Chan():
			return nil
		case <-s.pauseCh:
			timer.Stop()
			remaining = max(0, remaining-s.clock.Since(start))
			s.emit(Event{Kind: EventPause, Index: ev.Index, Wait: remaining})
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// awaitResume blocks while paused.
func (s *Scheduler) awaitResume(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.paused {
			// A pause that was already resumed leaves a stale signal.
			select {
			case <-s.pauseCh:
			default:
			}
			s.mu.Unlock()
			return ctx.Err()
		}
		resumed := s.resumed
		s.mu.Unlock()

		select {
		case <-resumed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) finish(err error) {
	s.mu.Lock()
	showing := s.stopExpiries()
	switch {
	case s.cancelled:
		err = ErrCancelled
		s.state.Store(int32(StateCancelled))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.state.Store(int32(StateCancelled))
	default:
		s.state.Store(int32(StateDone))
	}
	s.err = err
	s.mu.Unlock()

	switch {
	case err == nil:
		// Chunks still showing leave with their paragraph.
		for _, i := range showing {
			s.emit(Event{Kind: EventExpire, Index: i})
		}
		s.emit(Event{Kind: EventComplete, Index: s.Index()})
		if s.onComplete != nil {
			s.onComplete()
		}
	case errors.Is(err, ErrContentStarved):
		s.logger.Error("playback gave up waiting for chunks", "retries", s.cfg.MaxRetries)
	default:
		s.emit(Event{Kind: EventCancel, Index: s.Index()})
	}

	// An expiry already being delivered lands before Done.
	s.emitMu.Lock()
	s.doneOnce.Do(func() { close(s.done) })
	s.emitMu.Unlock()
}

// armExpiry schedules chunk index to expire ChunkLifetime after its reveal
// started. s.mu must be held.
func (s *Scheduler) armExpiry(index int) {
	if s.cfg.ChunkLifetime <= 0 {
		return
	}
	if s.expiries == nil {
		s.expiries = make(map[int]clockwork.Timer)
	}
	s.expiries[index] = s.clock.AfterFunc(s.cfg.ChunkLifetime, func() {
		s.expire(index)
	})
}

// expire reports a chunk whose lifetime ran out, unless playback ended and
// took the timer with it.
func (s *Scheduler) expire(index int) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	_, pending := s.expiries[index]
	delete(s.expiries, index)
	s.mu.Unlock()

	if pending {
		s.deliver(Event{Kind: EventExpire, Index: index})
	}
}

// stopExpiries disarms every pending expiry and returns the chunk indices in
// reveal order. s.mu must be held.
func (s *Scheduler) stopExpiries() []int {
	indices := make([]int, 0, len(s.expiries))
	for i, timer := range s.expiries {
		timer.Stop()
		indices = append(indices, i)
	}
	s.expiries = nil
	slices.Sort(indices)
	return indices
}

func (s *Scheduler) emit(ev Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.deliver(ev)
}

func (s *Scheduler) deliver(ev Event) {
	if ev.At.IsZero() {
		ev.At = s.clock.Now()
	}
	s.logger.Debug("pacing event",
		"kind", ev.Kind,
		"index", ev.Index,
		"rate", ev.Rate,
		"target", ev.Target,
		"elapsed", ev.Elapsed,
		"wait", ev.Wait,
		"lineBreak", ev.LineBreak,
		"timedOut", ev.TimedOut,
	)
	if s.observer != nil {
		s.observer(ev)
	}
}
