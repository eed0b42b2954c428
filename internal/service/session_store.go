package service

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/target/session-authority/internal/domain/session"
	"github.com/target/session-authority/internal/observability/metrics"
	"github.com/target/session-authority/internal/ports"
)

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Device  ports.DeviceIdentity    // Required: local device identity
	Logger  *slog.Logger            // Optional: structured logger
	Metrics *metrics.SessionMetrics // Optional: prometheus collectors
}

// SessionStore holds the in-memory authoritative, deduplicated list of a
// user's active device sessions, derived from the durable backing table.
// Every mutation goes through one of the idempotent apply operations so that
// arbitrary interleavings of the event sources feeding it converge to the
// same state; execution ordering is never the correctness mechanism.
type SessionStore struct {
	device  ports.DeviceIdentity
	logger  *slog.Logger
	metrics *metrics.SessionMetrics

	mu        sync.Mutex
	sessions  []session.Record
	observers map[int]func([]session.Record)
	nextObs   int
}

// NewSessionStore constructs a new SessionStore.
func NewSessionStore(opts SessionStoreOptions) *SessionStore {
	if opts.Device == nil {
		panic("DeviceIdentity is required")
	}
	return &SessionStore{
		device:    opts.Device,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		observers: make(map[int]func([]session.Record)),
	}
}

// CurrentDeviceID returns the locally persisted device fingerprint. Local
// detection wins over the backing store's is_current flag: it is available
// with zero round-trip latency and the flag is advisory only.
func (s *SessionStore) CurrentDeviceID() string {
	return s.device.DeviceStableID()
}

// Sessions returns a copy of the deduplicated session list, newest first.
func (s *SessionStore) Sessions() []session.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns the record for one device, if present.
func (s *SessionStore) Get(deviceStableID string) (session.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.sessions {
		if rec.DeviceStableID == deviceStableID {
			return rec, true
		}
	}
	return session.Record{}, false
}

// IsCurrent reports whether the given device fingerprint identifies the
// device this store is running on.
func (s *SessionStore) IsCurrent(deviceStableID string) bool {
	return deviceStableID != "" && deviceStableID == s.device.DeviceStableID()
}

// Replace installs a freshly fetched row set, deduplicating it first.
// Zero rows is valid: a newly signed-in device may have no persisted session
// yet.
func (s *SessionStore) Replace(rows []session.Record) {
	s.mu.Lock()
	s.sessions = s.dedupeLocked(rows)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// ApplyUpsert merges the record into the held list. When a record for the
// same device is already present the newer of the two wins, so redelivered
// and out-of-order events converge on the state a single delivery of the
// latest record would produce.
func (s *SessionStore) ApplyUpsert(rec session.Record) {
	s.mu.Lock()
	kept := make([]session.Record, 0, len(s.sessions)+1)
	merged := false
	for _, existing := range s.sessions {
		switch {
		case existing.DeviceStableID != rec.DeviceStableID:
			kept = append(kept, existing)
		case rec.NewerThan(existing):
			kept = append(kept, rec)
			merged = true
		default:
			kept = append(kept, existing)
			merged = true
		}
	}
	if !merged {
		kept = append(kept, rec)
	}
	s.sessions = s.dedupeLocked(kept)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// ApplyDelete removes all records with the given device fingerprint.
// Removing an absent device is a no-op.
func (s *SessionStore) ApplyDelete(deviceStableID string) {
	s.remove(deviceStableID)
}

// ApplyRevocationSignal performs the optimistic local removal triggered by a
// revocation signal. It has the identical effect to ApplyDelete and is safe
// in either order relative to the authoritative delete: removal is
// idempotent, so whichever arrives second is a no-op.
func (s *SessionStore) ApplyRevocationSignal(deviceStableID string) {
	s.remove(deviceStableID)
}

// Clear drops all held sessions. Called synchronously on sign-out.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	changed := len(s.sessions) > 0
	s.sessions = nil
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(0)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	if changed {
		s.notify(snapshot)
	}
}

// OnChange registers an observer invoked with a snapshot after every
// mutation. The returned func unregisters it.
func (s *SessionStore) OnChange(fn func([]session.Record)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *SessionStore) remove(deviceStableID string) {
	s.mu.Lock()
	kept := s.sessions[:0:0]
	for _, existing := range s.sessions {
		if existing.DeviceStableID != deviceStableID {
			kept = append(kept, existing)
		}
	}
	changed := len(kept) != len(s.sessions)
	s.sessions = kept
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(len(kept)))
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	if changed {
		s.notify(snapshot)
	}
}

// dedupeLocked collapses duplicate device rows, emits the diagnostic for
// upstream constraint violations, and keeps the list ordered newest-first.
func (s *SessionStore) dedupeLocked(rows []session.Record) []session.Record {
	out, dupes := session.Deduplicate(rows)
	for _, g := range dupes {
		if s.logger != nil {
			s.logger.Warn("duplicate session rows collapsed for device",
				"device_stable_id", g.DeviceStableID,
				"dropped", len(g.Dropped),
			)
		}
		if s.metrics != nil {
			s.metrics.DedupeCollisions.Inc()
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NewerThan(out[j]) })
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(len(out)))
	}
	return out
}

func (s *SessionStore) snapshotLocked() []session.Record {
	snapshot := make([]session.Record, len(s.sessions))
	copy(snapshot, s.sessions)
	return snapshot
}

func (s *SessionStore) notify(snapshot []session.Record) {
	s.mu.Lock()
	fns := make([]func([]session.Record), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}
