package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/target/session-authority/internal/domain/session"
	apperrors "github.com/target/session-authority/internal/errors"
	"github.com/target/session-authority/internal/observability/metrics"
	"github.com/target/session-authority/internal/ports"
)

const (
	defaultRestartDelay = 2 * time.Second
	defaultApplyQueue   = 64
)

// RealtimeSyncOptions holds the dependencies for the realtime sync engine.
type RealtimeSyncOptions struct {
	Repo  ports.SessionRepository // Required: authoritative store and change stream
	Store *SessionStore           // Required: local deduplicated view

	// Optional dependencies.
	Bus          ports.SignalBus // fast-path revocation signals
	Logger       *slog.Logger
	Metrics      *metrics.SessionMetrics
	RestartDelay time.Duration // wait between stream restarts
	QueueSize    int           // apply queue depth
}

// RealtimeSync keeps the local session view converged with the backing store.
// It fans the authoritative change stream and the revocation signal stream
// into a single serialized apply queue, so every mutation of the store comes
// from one goroutine and arrival order between the two streams never matters:
// each apply operation is idempotent and the streams converge on the same end
// state in either order.
type RealtimeSync struct {
	repo    ports.SessionRepository
	store   *SessionStore
	bus     ports.SignalBus
	logger  *slog.Logger
	metrics *metrics.SessionMetrics

	restartDelay time.Duration
	queueSize    int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRealtimeSync constructs a new RealtimeSync.
func NewRealtimeSync(opts RealtimeSyncOptions) *RealtimeSync {
	if opts.Repo == nil {
		panic("SessionRepository is required")
	}
	if opts.Store == nil {
		panic("SessionStore is required")
	}
	delay := opts.RestartDelay
	if delay <= 0 {
		delay = defaultRestartDelay
	}
	queue := opts.QueueSize
	if queue <= 0 {
		queue = defaultApplyQueue
	}
	return &RealtimeSync{
		repo:         opts.Repo,
		store:        opts.Store,
		bus:          opts.Bus,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		restartDelay: delay,
		queueSize:    queue,
	}
}

// Start launches the sync loops for the user. The loops run until Stop; a
// detached context keeps them alive across the caller's request lifetime.
// Starting while already running is an error.
func (r *RealtimeSync) Start(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return apperrors.Conflict("realtime sync is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	apply := make(chan func(), r.queueSize)

	var producers sync.WaitGroup
	producers.Add(1)
	go func() {
		defer producers.Done()
		r.changeLoop(ctx, userID, apply)
	}()
	if r.bus != nil {
		producers.Add(1)
		go func() {
			defer producers.Done()
			r.signalLoop(ctx, userID, apply)
		}()
	}
	go func() {
		producers.Wait()
		close(apply)
	}()
	go func() {
		defer close(done)
		for fn := range apply {
			fn()
		}
	}()
	return nil
}

// Stop cancels the sync loops and waits for the apply queue to drain. It is
// idempotent and safe to call before Start.
func (r *RealtimeSync) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// changeLoop consumes the authoritative change stream, restarting on failure.
// Every (re)start begins with a full authoritative reload, which heals any
// events missed while the stream was down.
func (r *RealtimeSync) changeLoop(ctx context.Context, userID string, apply chan<- func()) {
	for {
		if err := r.reload(ctx, userID, apply); err != nil {
			r.logError(ctx, "authoritative session reload failed", err)
		} else if err := r.repo.StreamChanges(ctx, userID, func(ev session.ChangeEvent) error {
			return r.enqueue(ctx, apply, func() { r.applyChange(ev) })
		}); err != nil && ctx.Err() == nil {
			r.logError(ctx, "session change stream failed", err)
		}

		if ctx.Err() != nil {
			return
		}
		r.countRestart("changes")
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.restartDelay):
		}
	}
}

// signalLoop consumes the revocation signal stream, restarting on failure.
// Signals only shave latency off removals, so a restart needs no reload: the
// authoritative stream owns the truth.
func (r *RealtimeSync) signalLoop(ctx context.Context, userID string, apply chan<- func()) {
	for {
		err := r.bus.Subscribe(ctx, userID, func(sig session.Signal) error {
			return r.enqueue(ctx, apply, func() { r.applySignal(sig) })
		})
		if err != nil && ctx.Err() == nil {
			r.logError(ctx, "revocation signal stream failed", err)
		}

		if ctx.Err() != nil {
			return
		}
		r.countRestart("signals")
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.restartDelay):
		}
	}
}

// reload fetches the full authoritative session list and enqueues its
// replacement, serialized with stream applies.
func (r *RealtimeSync) reload(ctx context.Context, userID string, apply chan<- func()) error {
	rows, err := r.repo.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list device sessions: %w", apperrors.MapDBError(err))
	}
	return r.enqueue(ctx, apply, func() { r.store.Replace(rows) })
}

func (r *RealtimeSync) enqueue(ctx context.Context, apply chan<- func(), fn func()) error {
	select {
	case apply <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *RealtimeSync) applyChange(ev session.ChangeEvent) {
	switch ev.Op {
	case session.OpDelete:
		r.store.ApplyDelete(ev.Record.DeviceStableID)
	default:
		r.store.ApplyUpsert(ev.Record)
	}
	if r.metrics != nil {
		r.metrics.ChangeEventsApplied.WithLabelValues(string(ev.Op)).Inc()
	}
}

func (r *RealtimeSync) applySignal(sig session.Signal) {
	r.store.ApplyRevocationSignal(sig.DeviceStableID)
	if r.metrics != nil {
		r.metrics.SignalsApplied.Inc()
	}
}

func (r *RealtimeSync) countRestart(stream string) {
	if r.metrics == nil {
		return
	}
	r.metrics.StreamRestarts.WithLabelValues(stream).Inc()
}

func (r *RealtimeSync) logError(ctx context.Context, msg string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.ErrorContext(ctx, msg, "error", err)
}
