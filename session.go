package aviator

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

const (
	// DefaultPollInterval is the default period between feed polls.
	DefaultPollInterval = time.Second

	// DefaultTransitionDuration is the default length of one transition.
	DefaultTransitionDuration = time.Second

	// DefaultFrameInterval is the default delay between ticks of a running
	// transition, roughly one 60Hz display frame.
	DefaultFrameInterval = 16 * time.Millisecond

	// journalBuffer bounds journal entries waiting to be written.
	journalBuffer = 64
)

// fetchResult carries one completed fetch back to the scheduling goroutine.
type fetchResult struct {
	seq     uint64
	reading Reading
	err     error
	latency time.Duration
}

// Session synchronizes one scene with one feed. It polls the Source on a
// fixed period, eases the displayed multiplier toward each new target, and
// relays the crash flag the moment it is observed.
//
// All mutable state is owned by a single scheduling goroutine; other
// goroutines observe it through Snapshot. In sync mode no goroutines run
// and the caller drives the session with Poll and Frame.
type Session struct {
	id            string
	source        Source
	scene         Scene
	pollInterval  time.Duration
	duration      time.Duration
	frameInterval time.Duration
	syncMode      bool
	clock         clockz.Clock
	logger        *slog.Logger
	metrics       MetricsProvider
	journal       Journal
	protocol      Protocol
	flagPolicy    FlagPolicy
	flagEncoding  FlagEncoding
	onStop        func(Snapshot)
	failures      failureLog

	// Owned by the scheduling goroutine (or the caller in sync mode).
	engine    *Transition
	relay     *Relay
	bridge    *Bridge
	target    float64
	hasTarget bool
	armed     bool
	issued    uint64
	applied   uint64

	health    atomic.Int32
	snapshot  atomic.Pointer[Snapshot]
	lastError atomic.Pointer[error]

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	results  chan fetchResult
	records  chan func(context.Context) error
	written  chan struct{}
	finished sync.Once
}

// New creates a Session that polls source and drives scene.
//
// Instance configuration uses chainable methods before calling Start().
//
// Example:
//
//	session := aviator.New(httpfeed.New(feedURL), hub).
//	    PollInterval(time.Second).
//	    TransitionDuration(time.Second).
//	    Logger(logger)
//
//	if err := session.Start(ctx); err != nil {
//	    return err
//	}
//	defer session.Stop()
func New(source Source, scene Scene) *Session {
	s := &Session{
		id:            uuid.NewString(),
		source:        source,
		scene:         scene,
		pollInterval:  DefaultPollInterval,
		duration:      DefaultTransitionDuration,
		frameInterval: DefaultFrameInterval,
		clock:         clockz.RealClock,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:       NoOpMetricsProvider{},
		protocol:      DefaultProtocol,
		results:       make(chan fetchResult),
	}
	s.health.Store(int32(HealthLoading))
	s.engine = NewTransition(s.duration)
	s.publish()
	return s
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// ID replaces the generated session identifier. Must be called before Start().
func (s *Session) ID(id string) *Session {
	s.id = id
	s.publish()
	return s
}

// PollInterval sets the period between feed polls.
// Default: 1s. Must be called before Start().
func (s *Session) PollInterval(d time.Duration) *Session {
	s.pollInterval = d
	return s
}

// TransitionDuration sets how long the displayed value takes to reach a
// new target. Default: 1s. Must be called before Start().
func (s *Session) TransitionDuration(d time.Duration) *Session {
	s.duration = d
	s.engine = NewTransition(d)
	return s
}

// FrameInterval sets the delay between ticks of a running transition.
// It only changes how smooth the motion is, never its speed.
// Default: 16ms. Must be called before Start().
func (s *Session) FrameInterval(d time.Duration) *Session {
	s.frameInterval = d
	return s
}

// SyncMode disables the scheduling goroutine for testing.
// In sync mode the caller drives the session with Poll and Frame, making
// tests deterministic. Must be called before Start().
func (s *Session) SyncMode() *Session {
	s.syncMode = true
	return s
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic transition testing.
// Must be called before Start().
func (s *Session) Clock(clock clockz.Clock) *Session {
	s.clock = clock
	s.publish()
	return s
}

// Logger sets the structured logger. Default: discard. Must be called before Start().
func (s *Session) Logger(logger *slog.Logger) *Session {
	s.logger = logger
	return s
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (s *Session) Metrics(provider MetricsProvider) *Session {
	s.metrics = provider
	return s
}

// Journal sets where completed transitions and flag changes are recorded.
// Must be called before Start().
func (s *Session) Journal(j Journal) *Session {
	s.journal = j
	return s
}

// Protocol sets the scene object and signal names.
// Default: DefaultProtocol. Must be called before Start().
func (s *Session) Protocol(p Protocol) *Session {
	s.protocol = p
	return s
}

// FlagPolicy sets when the crash flag is forwarded.
// Default: FlagOnChange. Must be called before Start().
func (s *Session) FlagPolicy(p FlagPolicy) *Session {
	s.flagPolicy = p
	return s
}

// FlagEncoding sets how the crash flag is encoded in its signal payload.
// Default: FlagEncodingBool. Must be called before Start().
func (s *Session) FlagEncoding(e FlagEncoding) *Session {
	s.flagEncoding = e
	return s
}

// ErrorHistorySize sets the number of recent poll failures to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (s *Session) ErrorHistorySize(n int) *Session {
	s.failures.resize(n)
	return s
}

// OnStop sets a callback invoked once the session has stopped, with its
// final snapshot. Must be called before Start().
func (s *Session) OnStop(fn func(Snapshot)) *Session {
	s.onStop = fn
	return s
}

// -----------------------------------------------------------------------------
// Observation
// -----------------------------------------------------------------------------

// SessionID returns the session identifier.
func (s *Session) SessionID() string {
	return s.id
}

// Health returns the current feed health.
func (s *Session) Health() Health {
	return Health(s.health.Load())
}

// Snapshot returns the most recently published state.
func (s *Session) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// LastError returns the last poll error, or nil if the last poll succeeded.
func (s *Session) LastError() error {
	ptr := s.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the poll failures since the last successful poll,
// oldest first, bounded by ErrorHistorySize. Returns nil if error history
// is not enabled.
func (s *Session) ErrorHistory() []PollFailure {
	return s.failures.recent()
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start begins polling. Polls fire every poll interval once the scene has
// reported ready; the first firing comes one interval after Start.
//
// In sync mode, Start only prepares the session. Use Poll and Frame to
// drive it.
//
// Start can only be called once. Subsequent calls return ErrAlreadyStarted.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	s.bridge = NewBridge(s.scene, s.id, s.logger, s.metrics)
	s.relay = NewRelay(s.bridge, s.protocol, s.flagPolicy, s.flagEncoding, s.id)
	s.publish()

	capitan.Emit(ctx, SessionStarted,
		KeySession.Field(s.id),
		KeyPollInterval.Field(s.pollInterval),
	)
	s.logger.Info("session started",
		"session", s.id,
		"poll_interval", s.pollInterval,
		"transition", s.duration,
	)

	if s.syncMode {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	if s.journal != nil {
		s.records = make(chan func(context.Context) error, journalBuffer)
		s.written = make(chan struct{})
		go s.writeJournal(context.WithoutCancel(runCtx), s.records, s.written)
	}
	go s.run(runCtx)
	return nil
}

// Stop cancels the poll timer and any running transition, waits for the
// scheduling goroutine to exit, closes the bridge and flushes queued journal
// entries. No signal reaches the scene and no journal write runs after Stop
// returns. Stop is idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		return
	}
	s.finish(context.Background())
}

// Done returns a channel closed when the scheduling goroutine exits, either
// through Stop or cancellation of the context passed to Start. It is nil
// before Start and in sync mode.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Poll runs one scheduler firing synchronously: it checks the readiness
// gate, fetches, and applies the result. It returns the fetch error, if any.
// Only available in sync mode.
func (s *Session) Poll(ctx context.Context) error {
	if err := s.syncReady(); err != nil {
		return err
	}
	if !s.gate() {
		return nil
	}
	s.issued++
	res := s.fetch(ctx, s.issued)
	s.apply(ctx, res)
	return res.err
}

// Frame runs one tick of the running transition at the clock's current
// time and reports whether the transition is still running.
// Only available in sync mode; it reports false otherwise.
func (s *Session) Frame(ctx context.Context) bool {
	if s.syncReady() != nil {
		return false
	}
	return s.frame(ctx)
}

func (s *Session) syncReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.syncMode:
		return ErrNotSyncMode
	case !s.started:
		return ErrNotStarted
	case s.stopped:
		return ErrStopped
	}
	return nil
}

// -----------------------------------------------------------------------------
// Scheduling
// -----------------------------------------------------------------------------

// run is the scheduling goroutine. It owns the poll timer, the frame timer
// and all session state until ctx is canceled.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.flushJournal()
	defer s.finish(context.WithoutCancel(ctx))

	// Timers are replaced rather than Reset once they fire: a fired fake
	// timer is no longer tracked by its clock.
	poll := s.clock.NewTimer(s.pollInterval)
	var frame clockz.Timer
	defer func() {
		poll.Stop()
		if frame != nil {
			frame.Stop()
		}
	}()

	for {
		// Get frame channel or nil if no transition is running
		var frameC <-chan time.Time
		if frame != nil {
			frameC = frame.C()
		}

		select {
		case <-ctx.Done():
			return

		case <-poll.C():
			poll = s.clock.NewTimer(s.pollInterval)
			if s.gate() {
				s.issue(ctx)
			}

		case res := <-s.results:
			s.apply(ctx, res)
			if frame == nil && s.engine.State() == TransitionRunning {
				frame = s.clock.NewTimer(s.frameInterval)
			}

		case <-frameC:
			if s.frame(ctx) {
				frame = s.clock.NewTimer(s.frameInterval)
			} else {
				frame = nil
			}
		}
	}
}

// gate reports whether polling may proceed. It opens the first time the
// scene reports ready and stays open.
func (s *Session) gate() bool {
	if s.armed {
		return true
	}
	if !s.bridge.Ready() {
		s.logger.Debug("scene not ready, skipping poll", "session", s.id)
		return false
	}
	s.armed = true
	return true
}

// issue starts a fetch without blocking the scheduling goroutine.
func (s *Session) issue(ctx context.Context) {
	s.issued++
	seq := s.issued
	go func() {
		res := s.fetch(ctx, seq)
		select {
		case s.results <- res:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) fetch(ctx context.Context, seq uint64) fetchResult {
	start := s.clock.Now()
	reading, err := s.source.Fetch(ctx)
	if err == nil {
		if verr := reading.Validate(); verr != nil {
			err = &FetchError{Stage: StageValidate, Err: verr}
		}
	}
	return fetchResult{
		seq:     seq,
		reading: reading,
		err:     err,
		latency: s.clock.Since(start),
	}
}

// apply feeds one fetch result to the transition engine and the relay.
func (s *Session) apply(ctx context.Context, res fetchResult) {
	if res.seq <= s.applied {
		capitan.Emit(ctx, PollDiscarded,
			KeySession.Field(s.id),
			KeySequence.Field(int(res.seq)), //nolint:gosec // sequence numbers stay far below MaxInt
		)
		s.logger.Debug("discarding out of order fetch result", "session", s.id, "sequence", res.seq)
		return
	}
	s.applied = res.seq

	oldHealth := s.Health()
	if res.err != nil {
		s.fail(ctx, oldHealth, res)
		return
	}

	s.lastError.Store(nil)
	s.failures.reset()
	s.transitionHealth(ctx, oldHealth, HealthHealthy)
	s.metrics.OnPollSuccess(res.latency)

	now := s.clock.Now()
	s.target, s.hasTarget = res.reading.Target, true
	from := s.engine.Value()
	if s.engine.Start(res.reading.Target, now) {
		capitan.Emit(ctx, TransitionStarted,
			KeySession.Field(s.id),
			KeyFrom.Field(FormatValue(from)),
			KeyTarget.Field(FormatValue(res.reading.Target)),
		)
		s.metrics.OnTransitionStart(from, res.reading.Target)
	}

	prev, known := s.relay.Flag()
	s.relay.SetFlag(ctx, res.reading.Flag)
	if !known || prev != res.reading.Flag {
		s.record(ctx, FlagChange{SessionID: s.id, Flag: res.reading.Flag, At: now})
	}

	s.publish()
}

// fail records a failed poll. The previous target and flag stay in effect.
func (s *Session) fail(ctx context.Context, oldHealth Health, res fetchResult) {
	fe := asFetchError(res.err)
	err := error(fe)
	s.lastError.Store(&err)
	s.failures.record(PollFailure{
		At:     s.clock.Now(),
		Source: fe.Source,
		Stage:  fe.Stage,
		Error:  fe.Error(),
		Err:    fe,
	})

	s.transitionHealth(ctx, oldHealth, s.failureHealth())
	capitan.Emit(ctx, PollFailed,
		KeySession.Field(s.id),
		KeyStage.Field(fe.Stage),
		KeyError.Field(fe.Error()),
	)
	s.metrics.OnPollFailure(fe.Stage, res.latency)
	s.logger.Warn("poll failed, keeping last known state",
		"session", s.id,
		"stage", fe.Stage,
		"error", fe,
	)
	s.publish()
}

// frame advances a running transition by one tick and sends the value.
func (s *Session) frame(ctx context.Context) bool {
	if s.engine.State() != TransitionRunning {
		return false
	}
	now := s.clock.Now()
	value, done := s.engine.Tick(now)
	s.bridge.Send(ctx, s.protocol.MultiplierSignal(value))

	if done {
		elapsed := now.Sub(s.engine.StartedAt())
		capitan.Emit(ctx, TransitionCompleted,
			KeySession.Field(s.id),
			KeyTarget.Field(FormatValue(value)),
			KeyElapsed.Field(elapsed),
		)
		s.metrics.OnTransitionComplete(s.engine.Committed(), elapsed)
		s.record(ctx, Commit{
			SessionID:   s.id,
			From:        s.engine.From(),
			Target:      s.engine.Committed(),
			StartedAt:   s.engine.StartedAt(),
			CompletedAt: now,
		})
	}

	s.publish()
	return !done
}

// failureHealth returns the health after a failed poll based on whether
// any poll has ever succeeded.
func (s *Session) failureHealth() Health {
	if !s.hasTarget {
		return HealthEmpty
	}
	return HealthDegraded
}

// transitionHealth updates health and emits a change event if it changed.
func (s *Session) transitionHealth(ctx context.Context, oldHealth, newHealth Health) {
	if oldHealth == newHealth {
		return
	}
	s.health.Store(int32(newHealth))
	capitan.Emit(ctx, HealthChanged,
		KeySession.Field(s.id),
		KeyOldHealth.Field(oldHealth.String()),
		KeyNewHealth.Field(newHealth.String()),
	)
	s.metrics.OnHealthChange(oldHealth, newHealth)
	s.logger.Info("feed health changed",
		"session", s.id,
		"from", oldHealth.String(),
		"to", newHealth.String(),
	)
}

// record hands a journal entry to the journal writer, or writes it inline
// in sync mode.
func (s *Session) record(ctx context.Context, entry any) {
	if s.journal == nil {
		return
	}
	write := func(ctx context.Context) error {
		switch e := entry.(type) {
		case Commit:
			return s.journal.RecordCommit(ctx, e)
		case FlagChange:
			return s.journal.RecordFlag(ctx, e)
		}
		return nil
	}
	if s.records == nil {
		if err := write(ctx); err != nil {
			s.logger.Warn("journal write failed", "session", s.id, "error", err)
		}
		return
	}
	select {
	case s.records <- write:
	default:
		s.logger.Warn("journal backlog full, dropping entry", "session", s.id)
	}
}

// writeJournal performs journal writes off the scheduling goroutine until
// records is closed. ctx must not be canceled on stop, or the entries still
// queued at that point would fail.
func (s *Session) writeJournal(ctx context.Context, records <-chan func(context.Context) error, written chan<- struct{}) {
	defer close(written)
	for write := range records {
		if err := write(ctx); err != nil {
			s.logger.Warn("journal write failed", "session", s.id, "error", err)
		}
	}
}

// flushJournal closes the journal queue and waits for the queued entries.
// Only the scheduling goroutine sends on records, so it is safe to close
// once that goroutine is done with session state.
func (s *Session) flushJournal() {
	if s.records == nil {
		return
	}
	close(s.records)
	<-s.written
}

// publish stores a fresh snapshot for readers on other goroutines.
func (s *Session) publish() {
	snap := Snapshot{
		SessionID:  s.id,
		Value:      s.engine.Value(),
		Target:     s.target,
		Committed:  s.engine.Committed(),
		Transition: s.engine.State(),
		Health:     s.Health(),
		Failures:   s.failures.consecutive(),
		UpdatedAt:  s.clock.Now(),
	}
	if s.relay != nil {
		snap.Flag, snap.FlagKnown = s.relay.Flag()
	}
	if s.bridge != nil {
		snap.Bridge = s.bridge.Stats()
	}
	s.snapshot.Store(&snap)
}

// finish closes the bridge and reports the stop exactly once.
func (s *Session) finish(ctx context.Context) {
	s.finished.Do(func() {
		s.bridge.Close()
		s.publish()
		final := s.Snapshot()
		capitan.Emit(ctx, SessionStopped,
			KeySession.Field(s.id),
			KeyHealth.Field(final.Health.String()),
			KeyFlag.Field(strconv.FormatBool(final.Flag)),
		)
		s.logger.Info("session stopped",
			"session", s.id,
			"value", FormatValue(final.Value),
			"health", final.Health.String(),
		)
		if s.onStop != nil {
			s.onStop(final)
		}
	})
}
