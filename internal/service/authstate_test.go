package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/session-authority/internal/adapters/authevents"
	"github.com/target/session-authority/internal/adapters/localdevice"
	domainauth "github.com/target/session-authority/internal/domain/auth"
	"github.com/target/session-authority/internal/domain/session"
	mocksauth "github.com/target/session-authority/internal/mocks/auth"
)

func newTestResolver(role domainauth.Role) *RoleResolver {
	return NewRoleResolver(RoleResolverOptions{
		Source: &mocksauth.StubRoleSource{Primary: role, PrimaryOK: role != ""},
	})
}

func waitForSnapshot(t *testing.T, m *AuthStateMachine, ok func(AuthSnapshot) bool) AuthSnapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return ok(m.Snapshot())
	}, 2*time.Second, 5*time.Millisecond)
	return m.Snapshot()
}

func TestAuthStateMachine_InitialTokenQuerySignsIn(t *testing.T) {
	tokens := mocksauth.NewMemoryTokenStore()
	require.NoError(t, tokens.Save(context.Background(), domainauth.Session{
		ID:     "tok-1",
		UserID: "user-1",
		Email:  "ada@example.com",
	}))

	events := authevents.NewBroadcaster()
	defer events.Close()

	m := NewAuthStateMachine(AuthStateMachineOptions{
		Events:   events,
		Roles:    newTestResolver(domainauth.RoleAdmin),
		Sessions: tokens,
		Token:    "tok-1",
	})
	m.Start(context.Background())
	defer m.Stop()

	// Identity and session are set synchronously by Start.
	snap := m.Snapshot()
	require.True(t, snap.SignedIn())
	assert.Equal(t, "user-1", snap.Identity.UserID)
	assert.Equal(t, "ada@example.com", snap.Identity.Email)

	// Role enrichment lands asynchronously.
	snap = waitForSnapshot(t, m, func(s AuthSnapshot) bool {
		return s.Role.Role == domainauth.RoleAdmin
	})
	assert.Equal(t, domainauth.LevelAdmin, snap.Role.Level)
}

func TestAuthStateMachine_NoTokenStartsSignedOut(t *testing.T) {
	events := authevents.NewBroadcaster()
	defer events.Close()

	m := NewAuthStateMachine(AuthStateMachineOptions{
		Events: events,
		Roles:  newTestResolver(""),
	})
	m.Start(context.Background())
	defer m.Stop()

	snap := m.Snapshot()
	assert.Equal(t, domainauth.StateSignedOut, snap.State)
	assert.False(t, snap.SignedIn())
}

func TestAuthStateMachine_UnknownTokenStartsSignedOut(t *testing.T) {
	events := authevents.NewBroadcaster()
	defer events.Close()

	m := NewAuthStateMachine(AuthStateMachineOptions{
		Events:   events,
		Roles:    newTestResolver(""),
		Sessions: mocksauth.NewMemoryTokenStore(),
		Token:    "expired-token",
	})
	m.Start(context.Background())
	defer m.Stop()

	assert.Equal(t, domainauth.StateSignedOut, m.Snapshot().State)
}

func TestAuthStateMachine_SignedInEventTransitions(t *testing.T) {
	events := authevents.NewBroadcaster()
	defer events.Close()

	m := NewAuthStateMachine(AuthStateMachineOptions{
		Events: events,
		Roles:  newTestResolver(domainauth.RoleModerator),
	})
	m.Start(context.Background())
	defer m.Stop()

	events.Publish(domainauth.Event{
		Type:     domainauth.EventSignedIn,
		Identity: domainauth.Identity{UserID: "user-2", Email: "kay@example.com"},
		Session:  domainauth.Session{ID: "tok-2", UserID: "user-2"},
	})

	snap := waitForSnapshot(t, m, func(s AuthSnapshot) bool { return s.SignedIn() })
	assert.Equal(t, "user-2", snap.Identity.UserID)

	waitForSnapshot(t, m, func(s AuthSnapshot) bool {
		return s.Role.Role == domainauth.RoleModerator
	})
}

func TestAuthStateMachine_SignOutClearsEverythingSynchronously(t *testing.T) {
	events := authevents.NewBroadcaster()
	defer events.Close()

	store := NewSessionStore(SessionStoreOptions{Device: localdevice.Static("laptop")})

	m := NewAuthStateMachine(AuthStateMachineOptions{
		Events: events,
		Roles:  newTestResolver(domainauth.RoleAdmin),
		Store:  store,
	})
	m.Start(context.Background())
	defer m.Stop()

	events.Publish(domainauth.Event{
		Type:     domainauth.EventSignedIn,
		Identity: domainauth.Identity{UserID: "user-1"},
		Session:  domainauth.Session{ID: "tok-1", UserID: "user-1"},
	})
	waitForSnapshot(t, m, func(s AuthSnapshot) bool { return s.SignedIn() })

	store.Replace([]session.Record{
		{UserID: "user-1", DeviceStableID: "laptop"},
		{UserID: "user-1", DeviceStableID: "phone"},
	})

	events.Publish(domainauth.Event{Type: domainauth.EventSignedOut})
	snap := waitForSnapshot(t, m, func(s AuthSnapshot) bool {
		return s.State == domainauth.StateSignedOut
	})

	assert.Empty(t, snap.Identity.UserID)
	assert.Empty(t, snap.Session.ID)
	assert.Equal(t, DefaultRoleAssignment(), snap.Role)
	assert.Empty(t, snap.Profile.DisplayName)
	assert.Empty(t, store.Sessions())
}

func TestAuthStateMachine_LateEnrichmentAfterSignOutIsDiscarded(t *testing.T) {
	events := authevents.NewBroadcaster()
	defer events.Close()

	release := make(chan struct{})
	roles := NewRoleResolver(RoleResolverOptions{
		Source: &mocksauth.StubRoleSource{
			PrimaryRoleFunc: func(context.Context, string) (domainauth.Role, bool, error) {
				<-release
				return domainauth.RoleOwner, true, nil
			},
		},
	})

	m := NewAuthStateMachine(AuthStateMachineOptions{Events: events, Roles: roles})
	m.Start(context.Background())
	defer m.Stop()

	events.Publish(domainauth.Event{
		Type:     domainauth.EventSignedIn,
		Identity: domainauth.Identity{UserID: "user-1"},
		Session:  domainauth.Session{ID: "tok-1", UserID: "user-1"},
	})
	waitForSnapshot(t, m, func(s AuthSnapshot) bool { return s.SignedIn() })

	// Sign out while enrichment is still blocked, then let it finish.
	events.Publish(domainauth.Event{Type: domainauth.EventSignedOut})
	waitForSnapshot(t, m, func(s AuthSnapshot) bool {
		return s.State == domainauth.StateSignedOut
	})
	close(release)

	// The stale enrichment result must never surface.
	time.Sleep(50 * time.Millisecond)
	snap := m.Snapshot()
	assert.Equal(t, domainauth.StateSignedOut, snap.State)
	assert.Equal(t, DefaultRoleAssignment(), snap.Role)
}

func TestAuthStateMachine_RefreshDoesNotRefetch(t *testing.T) {
	events := authevents.NewBroadcaster()
	defer events.Close()

	var resolves atomic.Int32
	roles := NewRoleResolver(RoleResolverOptions{
		Source: &mocksauth.StubRoleSource{
			PrimaryRoleFunc: func(context.Context, string) (domainauth.Role, bool, error) {
				resolves.Add(1)
				return domainauth.RoleAdmin, true, nil
			},
		},
	})

	m := NewAuthStateMachine(AuthStateMachineOptions{Events: events, Roles: roles})
	m.Start(context.Background())
	defer m.Stop()

	signIn := domainauth.Event{
		Type:     domainauth.EventSignedIn,
		Identity: domainauth.Identity{UserID: "user-1"},
		Session:  domainauth.Session{ID: "tok-1", UserID: "user-1"},
	}
	events.Publish(signIn)
	waitForSnapshot(t, m, func(s AuthSnapshot) bool {
		return s.Role.Role == domainauth.RoleAdmin
	})

	refresh := signIn
	refresh.Type = domainauth.EventTokenRefreshed
	refresh.Session.ID = "tok-1-rotated"
	events.Publish(refresh)
	waitForSnapshot(t, m, func(s AuthSnapshot) bool {
		return s.Session.ID == "tok-1-rotated"
	})

	assert.Equal(t, int32(1), resolves.Load())
}

func TestAuthStateMachine_ProfileFailureKeepsIdentity(t *testing.T) {
	events := authevents.NewBroadcaster()
	defer events.Close()

	m := NewAuthStateMachine(AuthStateMachineOptions{
		Events: events,
		Roles:  newTestResolver(domainauth.RoleModerator),
		Profile: &mocksauth.StubProfileSource{
			Err: errors.New("profile service unavailable"),
		},
	})
	m.Start(context.Background())
	defer m.Stop()

	events.Publish(domainauth.Event{
		Type:     domainauth.EventSignedIn,
		Identity: domainauth.Identity{UserID: "user-1"},
		Session:  domainauth.Session{ID: "tok-1", UserID: "user-1"},
	})

	// Waiting on a non-default role observes a snapshot taken after
	// enrichment ran and the profile fetch failed.
	snap := waitForSnapshot(t, m, func(s AuthSnapshot) bool {
		return s.Role.Role == domainauth.RoleModerator
	})
	assert.True(t, snap.SignedIn())
	assert.Empty(t, snap.Profile.DisplayName)
}

func TestAuthStateMachine_OnChangeObservesTransitions(t *testing.T) {
	events := authevents.NewBroadcaster()
	defer events.Close()

	m := NewAuthStateMachine(AuthStateMachineOptions{
		Events: events,
		Roles:  newTestResolver(""),
	})

	var states []domainauth.State
	var mu sync.Mutex
	unsub := m.OnChange(func(s AuthSnapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})
	defer unsub()

	m.Start(context.Background())
	defer m.Stop()

	events.Publish(domainauth.Event{
		Type:     domainauth.EventSignedIn,
		Identity: domainauth.Identity{UserID: "user-1"},
		Session:  domainauth.Session{ID: "tok-1", UserID: "user-1"},
	})
	waitForSnapshot(t, m, func(s AuthSnapshot) bool { return s.SignedIn() })

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, domainauth.StateSignedOut, states[0])
	assert.Equal(t, domainauth.StateSignedIn, states[len(states)-1])
}

// gateTokenStore blocks Get until released, then fails the lookup.
type gateTokenStore struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateTokenStore) Save(context.Context, domainauth.Session) error { return nil }
func (g *gateTokenStore) Delete(context.Context, string) error           { return nil }

func (g *gateTokenStore) Get(context.Context, string) (domainauth.Session, error) {
	close(g.entered)
	<-g.release
	return domainauth.Session{}, errors.New("token lookup timed out")
}

func TestAuthStateMachine_SlowInitialQueryDoesNotClobberListener(t *testing.T) {
	events := authevents.NewBroadcaster()
	defer events.Close()

	gate := &gateTokenStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := NewAuthStateMachine(AuthStateMachineOptions{
		Events:   events,
		Roles:    newTestResolver(domainauth.RoleUser),
		Sessions: gate,
		Token:    "tok-1",
	})

	started := make(chan struct{})
	go func() {
		defer close(started)
		m.Start(context.Background())
	}()
	defer func() {
		<-started
		m.Stop()
	}()

	// The subscription registers before the token lookup, so once the
	// lookup is entered the listener is live.
	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		close(gate.release)
		t.Fatal("token lookup was never entered")
	}
	events.Publish(domainauth.Event{
		Type:     domainauth.EventSignedIn,
		Identity: domainauth.Identity{UserID: "user-1"},
		Session:  domainauth.Session{ID: "tok-1", UserID: "user-1"},
	})
	waitForSnapshot(t, m, func(s AuthSnapshot) bool { return s.SignedIn() })

	// The failed lookup result arrives second and must be discarded.
	close(gate.release)
	<-started

	snap := m.Snapshot()
	assert.True(t, snap.SignedIn())
	assert.Equal(t, "user-1", snap.Identity.UserID)
}

func TestAuthStateMachine_UserSwitchRestartsEnrichmentAndSync(t *testing.T) {
	events := authevents.NewBroadcaster()
	defer events.Close()

	var mu sync.Mutex
	var syncedUsers []string
	repo := &fakeSessionRepo{
		listByUser: func(_ context.Context, userID string) ([]session.Record, error) {
			mu.Lock()
			syncedUsers = append(syncedUsers, userID)
			mu.Unlock()
			return nil, nil
		},
	}
	store := NewSessionStore(SessionStoreOptions{Device: localdevice.Static("laptop")})
	engine := NewRealtimeSync(RealtimeSyncOptions{Repo: repo, Store: store})

	roles := NewRoleResolver(RoleResolverOptions{
		Source: &mocksauth.StubRoleSource{
			PrimaryRoleFunc: func(_ context.Context, userID string) (domainauth.Role, bool, error) {
				if userID == "user-1" {
					return domainauth.RoleAdmin, true, nil
				}
				return domainauth.RoleModerator, true, nil
			},
		},
	})

	m := NewAuthStateMachine(AuthStateMachineOptions{
		Events:   events,
		Roles:    roles,
		Realtime: engine,
		Store:    store,
	})
	m.Start(context.Background())
	defer m.Stop()

	events.Publish(domainauth.Event{
		Type:     domainauth.EventSignedIn,
		Identity: domainauth.Identity{UserID: "user-1"},
		Session:  domainauth.Session{ID: "tok-1", UserID: "user-1"},
	})
	waitForSnapshot(t, m, func(s AuthSnapshot) bool {
		return s.Role.Role == domainauth.RoleAdmin
	})

	// A sign-in for a different user with no sign-out in between.
	events.Publish(domainauth.Event{
		Type:     domainauth.EventSignedIn,
		Identity: domainauth.Identity{UserID: "user-2"},
		Session:  domainauth.Session{ID: "tok-2", UserID: "user-2"},
	})

	snap := waitForSnapshot(t, m, func(s AuthSnapshot) bool {
		return s.Identity.UserID == "user-2" && s.Role.Role == domainauth.RoleModerator
	})
	assert.Equal(t, "tok-2", snap.Session.ID)

	// Session sync follows the user switch.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(syncedUsers) >= 2 && syncedUsers[len(syncedUsers)-1] == "user-2"
	}, 2*time.Second, 5*time.Millisecond)
}
