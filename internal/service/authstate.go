package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/target/session-authority/internal/domain/auth"
	"github.com/target/session-authority/internal/ports"
)

// AuthStateMachineOptions holds the dependencies for the auth state machine.
type AuthStateMachineOptions struct {
	Events ports.AuthEventSource // Required: external sign-in/sign-out/refresh events
	Roles  *RoleResolver         // Required: role enrichment

	// Optional dependencies.
	Sessions ports.SessionTokenStore // initial "current session" lookup
	Token    string                  // locally persisted session token, may be empty
	Profile  ports.ProfileSource     // profile enrichment
	Realtime *RealtimeSync           // device session sync lifecycle
	Store    *SessionStore           // local session view, cleared on sign-out
	Logger   *slog.Logger
}

// AuthSnapshot is one immutable observation of the machine's state.
type AuthSnapshot struct {
	State    auth.State
	Identity auth.Identity
	Session  auth.Session
	Role     RoleAssignment
	Profile  auth.Profile
}

// SignedIn reports whether a user is present in the snapshot.
func (s AuthSnapshot) SignedIn() bool {
	return s.State == auth.StateSignedIn && s.Identity.UserID != ""
}

// AuthStateMachine owns the user's authentication state and drives the
// session view's lifecycle. Transitions visible to callers are synchronous:
// identity and session are set or cleared before the triggering call returns,
// while role and profile enrichment runs deferred and is epoch-guarded so a
// sign-out always wins over late enrichment from a prior sign-in.
type AuthStateMachine struct {
	events   ports.AuthEventSource
	roles    *RoleResolver
	sessions ports.SessionTokenStore
	token    string
	profile  ports.ProfileSource
	realtime *RealtimeSync
	store    *SessionStore
	logger   *slog.Logger

	mu        sync.Mutex
	state     auth.State
	identity  auth.Identity
	session   auth.Session
	role      RoleAssignment
	prof      auth.Profile
	enriched  bool
	epoch     uint64
	observers map[int]func(AuthSnapshot)
	nextObs   int
	unsub     func()
	loopDone  chan struct{}
}

// NewAuthStateMachine constructs a new AuthStateMachine in the Initializing
// state. Call Start to begin processing.
func NewAuthStateMachine(opts AuthStateMachineOptions) *AuthStateMachine {
	if opts.Events == nil {
		panic("AuthEventSource is required")
	}
	if opts.Roles == nil {
		panic("RoleResolver is required")
	}
	return &AuthStateMachine{
		events:    opts.Events,
		roles:     opts.Roles,
		sessions:  opts.Sessions,
		token:     opts.Token,
		profile:   opts.Profile,
		realtime:  opts.Realtime,
		store:     opts.Store,
		logger:    opts.Logger,
		state:     auth.StateInitializing,
		role:      DefaultRoleAssignment(),
		observers: make(map[int]func(AuthSnapshot)),
	}
}

// Start subscribes to the auth event source and then performs the one
// explicit current-session query. The subscription is registered first so no
// event in the gap is lost; whichever of the query result and the first event
// arrives second converges through the same apply path without clobbering the
// first.
func (m *AuthStateMachine) Start(ctx context.Context) {
	m.mu.Lock()
	if m.unsub != nil {
		m.mu.Unlock()
		return
	}
	unsub, events := m.events.Subscribe()
	done := make(chan struct{})
	m.unsub = unsub
	m.loopDone = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		for ev := range events {
			m.apply(ev)
		}
	}()

	m.queryCurrentSession(ctx)
}

// Stop unsubscribes from the event source and tears down realtime sync. It
// does not change the authentication state; a stopped machine keeps its last
// snapshot. Safe to call multiple times and before Start.
func (m *AuthStateMachine) Stop() {
	m.mu.Lock()
	unsub := m.unsub
	done := m.loopDone
	m.unsub = nil
	m.loopDone = nil
	m.mu.Unlock()

	if unsub == nil {
		return
	}
	unsub()
	<-done
	if m.realtime != nil {
		m.realtime.Stop()
	}
}

// Snapshot returns the current state.
func (m *AuthStateMachine) Snapshot() AuthSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// OnChange registers an observer called with a snapshot after every state
// change. It returns an unsubscribe func.
func (m *AuthStateMachine) OnChange(fn func(AuthSnapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.observers, id)
	}
}

// queryCurrentSession resolves the locally persisted token to a session. Any
// failure, including a missing token, resets cleanly to SignedOut. The result
// only applies while the machine is still Initializing: if a listener event
// landed first it already decided the state and the lookup result is stale.
func (m *AuthStateMachine) queryCurrentSession(ctx context.Context) {
	if m.sessions == nil || m.token == "" {
		m.applySignedOut(true)
		return
	}
	sess, err := m.sessions.Get(ctx, m.token)
	if err != nil {
		if m.logger != nil {
			m.logger.DebugContext(ctx, "current session lookup failed", "error", err)
		}
		m.applySignedOut(true)
		return
	}
	m.applySignedIn(auth.Identity{UserID: sess.UserID, Email: sess.Email}, sess, true)
}

func (m *AuthStateMachine) apply(ev auth.Event) {
	switch ev.Type {
	case auth.EventSignedOut:
		m.applySignedOut(false)
	case auth.EventSignedIn, auth.EventTokenRefreshed:
		if ev.Identity.UserID == "" {
			m.applySignedOut(false)
			return
		}
		m.applySignedIn(ev.Identity, ev.Session, false)
	}
}

// applySignedOut clears everything synchronously. This path performs no
// network call: bumping the epoch invalidates any in-flight enrichment from a
// prior sign-in before it can write.
func (m *AuthStateMachine) applySignedOut(onlyIfInitializing bool) {
	m.mu.Lock()
	if onlyIfInitializing && m.state != auth.StateInitializing {
		m.mu.Unlock()
		return
	}
	m.epoch++
	m.state = auth.StateSignedOut
	m.identity = auth.Identity{}
	m.session = auth.Session{}
	m.role = DefaultRoleAssignment()
	m.prof = auth.Profile{}
	m.enriched = false
	snap := m.snapshotLocked()
	observers := m.observersLocked()
	m.mu.Unlock()

	if m.store != nil {
		m.store.Clear()
	}
	if m.realtime != nil {
		m.realtime.Stop()
	}
	notifyObservers(observers, snap)
}

// applySignedIn sets identity and session synchronously, then schedules the
// deferred enrichment step. The enriched flag makes repeated refresh events
// cheap: only the first arrival for a sign-in fetches role and profile. A
// sign-in for a different user without an intervening sign-out discards the
// prior user's enrichment and restarts session sync under the new user.
func (m *AuthStateMachine) applySignedIn(identity auth.Identity, sess auth.Session, onlyIfInitializing bool) {
	m.mu.Lock()
	if onlyIfInitializing && m.state != auth.StateInitializing {
		m.mu.Unlock()
		return
	}
	userChanged := m.state == auth.StateSignedIn && m.identity.UserID != identity.UserID
	if userChanged {
		m.epoch++
		m.enriched = false
		m.role = DefaultRoleAssignment()
		m.prof = auth.Profile{}
	}
	m.state = auth.StateSignedIn
	m.identity = identity
	m.session = sess
	epoch := m.epoch
	alreadyEnriched := m.enriched
	m.enriched = true
	snap := m.snapshotLocked()
	observers := m.observersLocked()
	m.mu.Unlock()

	notifyObservers(observers, snap)

	if userChanged && m.store != nil {
		m.store.Clear()
	}
	if m.realtime != nil {
		if userChanged {
			m.realtime.Stop()
		}
		// Conflict means sync is already running for this sign-in.
		if err := m.realtime.Start(identity.UserID); err != nil && m.logger != nil {
			m.logger.Debug("realtime sync start", "error", err)
		}
	}
	if !alreadyEnriched {
		go m.enrich(epoch, identity.UserID)
	}
}

// enrich resolves the role and fetches the profile, then writes both back if
// the machine is still in the same sign-in epoch. Enrichment failure keeps
// prior values and resets the enriched flag so the next refresh event retries.
func (m *AuthStateMachine) enrich(epoch uint64, userID string) {
	ctx := context.Background()

	role := m.roles.Resolve(ctx, userID)

	var prof auth.Profile
	var profErr error
	if m.profile != nil {
		prof, profErr = m.profile.FetchProfile(ctx, userID)
	}

	m.mu.Lock()
	if m.epoch != epoch || m.state != auth.StateSignedIn {
		m.mu.Unlock()
		return
	}
	m.role = role
	if profErr == nil {
		m.prof = prof
	} else {
		m.enriched = false
	}
	snap := m.snapshotLocked()
	observers := m.observersLocked()
	m.mu.Unlock()

	if profErr != nil && m.logger != nil {
		m.logger.Error("profile enrichment failed", "user_id", userID, "error", profErr)
	}
	notifyObservers(observers, snap)
}

func (m *AuthStateMachine) snapshotLocked() AuthSnapshot {
	return AuthSnapshot{
		State:    m.state,
		Identity: m.identity,
		Session:  m.session,
		Role:     m.role,
		Profile:  m.prof,
	}
}

func (m *AuthStateMachine) observersLocked() []func(AuthSnapshot) {
	fns := make([]func(AuthSnapshot), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	return fns
}

func notifyObservers(fns []func(AuthSnapshot), snap AuthSnapshot) {
	for _, fn := range fns {
		fn(snap)
	}
}
