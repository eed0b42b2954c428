package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/session-authority/internal/adapters/localdevice"
	"github.com/target/session-authority/internal/domain/session"
	apperrors "github.com/target/session-authority/internal/errors"
	"github.com/target/session-authority/internal/ports"
)

// fakeSessionRepo implements ports.SessionRepository with overridable funcs.
// Methods without an override block or return zero values.
type fakeSessionRepo struct {
	listByUser    func(ctx context.Context, userID string) ([]session.Record, error)
	streamChanges func(ctx context.Context, userID string, fn func(session.ChangeEvent) error) error
}

func (f *fakeSessionRepo) ListByUser(ctx context.Context, userID string) ([]session.Record, error) {
	if f.listByUser != nil {
		return f.listByUser(ctx, userID)
	}
	return nil, nil
}

func (f *fakeSessionRepo) StreamChanges(ctx context.Context, userID string, fn func(session.ChangeEvent) error) error {
	if f.streamChanges != nil {
		return f.streamChanges(ctx, userID, fn)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSessionRepo) GetByDevice(context.Context, string, string) (session.Record, error) {
	return session.Record{}, errors.New("not implemented")
}

func (f *fakeSessionRepo) SetTrusted(context.Context, ports.SetTrustedInput) (session.Record, error) {
	return session.Record{}, errors.New("not implemented")
}

func (f *fakeSessionRepo) DeleteByDevice(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeSessionRepo) RecordSignal(context.Context, session.Signal) error { return nil }

// fakeSignalBus implements ports.SignalBus with an overridable subscribe.
type fakeSignalBus struct {
	subscribe func(ctx context.Context, userID string, fn func(session.Signal) error) error
}

func (f *fakeSignalBus) Publish(context.Context, session.Signal) error { return nil }

func (f *fakeSignalBus) Subscribe(ctx context.Context, userID string, fn func(session.Signal) error) error {
	if f.subscribe != nil {
		return f.subscribe(ctx, userID, fn)
	}
	<-ctx.Done()
	return ctx.Err()
}

func streamFromChannel(events <-chan session.ChangeEvent) func(context.Context, string, func(session.ChangeEvent) error) error {
	return func(ctx context.Context, _ string, fn func(session.ChangeEvent) error) error {
		for {
			select {
			case ev := <-events:
				if err := fn(ev); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func signalsFromChannel(signals <-chan session.Signal) func(context.Context, string, func(session.Signal) error) error {
	return func(ctx context.Context, _ string, fn func(session.Signal) error) error {
		for {
			select {
			case sig := <-signals:
				if err := fn(sig); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func waitForDevices(t *testing.T, store *SessionStore, want ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		rows := store.Sessions()
		if len(rows) != len(want) {
			return false
		}
		seen := make(map[string]bool, len(rows))
		for _, rec := range rows {
			seen[rec.DeviceStableID] = true
		}
		for _, id := range want {
			if !seen[id] {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRealtimeSync_InitialLoadPopulatesStore(t *testing.T) {
	repo := &fakeSessionRepo{
		listByUser: func(context.Context, string) ([]session.Record, error) {
			return []session.Record{
				{UserID: "user-1", DeviceStableID: "laptop"},
				{UserID: "user-1", DeviceStableID: "phone"},
			}, nil
		},
	}
	store := NewSessionStore(SessionStoreOptions{Device: localdevice.Static("laptop")})
	engine := NewRealtimeSync(RealtimeSyncOptions{Repo: repo, Store: store})
	defer engine.Stop()

	require.NoError(t, engine.Start("user-1"))
	waitForDevices(t, store, "laptop", "phone")
}

func TestRealtimeSync_AppliesChangeEvents(t *testing.T) {
	events := make(chan session.ChangeEvent)
	repo := &fakeSessionRepo{streamChanges: streamFromChannel(events)}
	store := NewSessionStore(SessionStoreOptions{Device: localdevice.Static("laptop")})
	engine := NewRealtimeSync(RealtimeSyncOptions{Repo: repo, Store: store})
	defer engine.Stop()

	require.NoError(t, engine.Start("user-1"))

	events <- session.ChangeEvent{Op: session.OpInsert, Record: session.Record{UserID: "user-1", DeviceStableID: "tablet"}}
	waitForDevices(t, store, "tablet")

	events <- session.ChangeEvent{Op: session.OpDelete, Record: session.Record{UserID: "user-1", DeviceStableID: "tablet"}}
	waitForDevices(t, store)
}

func TestRealtimeSync_SignalAndDeleteConvergeInEitherOrder(t *testing.T) {
	cases := map[string]bool{
		"signal then delete": true,
		"delete then signal": false,
	}
	for name, signalFirst := range cases {
		t.Run(name, func(t *testing.T) {
			events := make(chan session.ChangeEvent)
			signals := make(chan session.Signal)
			repo := &fakeSessionRepo{
				listByUser: func(context.Context, string) ([]session.Record, error) {
					return []session.Record{{UserID: "user-1", DeviceStableID: "tablet"}}, nil
				},
				streamChanges: streamFromChannel(events),
			}
			bus := &fakeSignalBus{subscribe: signalsFromChannel(signals)}
			store := NewSessionStore(SessionStoreOptions{Device: localdevice.Static("laptop")})
			engine := NewRealtimeSync(RealtimeSyncOptions{Repo: repo, Store: store, Bus: bus})
			defer engine.Stop()

			require.NoError(t, engine.Start("user-1"))
			waitForDevices(t, store, "tablet")

			sig := session.Signal{UserID: "user-1", DeviceStableID: "tablet"}
			del := session.ChangeEvent{Op: session.OpDelete, Record: session.Record{UserID: "user-1", DeviceStableID: "tablet"}}
			if signalFirst {
				signals <- sig
				events <- del
			} else {
				events <- del
				signals <- sig
			}
			waitForDevices(t, store)
		})
	}
}

func TestRealtimeSync_StreamFailureReloadsAndRestarts(t *testing.T) {
	var loads atomic.Int32
	repo := &fakeSessionRepo{
		listByUser: func(context.Context, string) ([]session.Record, error) {
			if loads.Add(1) == 1 {
				return []session.Record{{UserID: "user-1", DeviceStableID: "stale"}}, nil
			}
			return []session.Record{{UserID: "user-1", DeviceStableID: "fresh"}}, nil
		},
		streamChanges: func(ctx context.Context, _ string, _ func(session.ChangeEvent) error) error {
			if loads.Load() == 1 {
				return errors.New("stream lost")
			}
			<-ctx.Done()
			return ctx.Err()
		},
	}
	store := NewSessionStore(SessionStoreOptions{Device: localdevice.Static("laptop")})
	engine := NewRealtimeSync(RealtimeSyncOptions{
		Repo:         repo,
		Store:        store,
		RestartDelay: 10 * time.Millisecond,
	})
	defer engine.Stop()

	require.NoError(t, engine.Start("user-1"))
	waitForDevices(t, store, "fresh")
	assert.GreaterOrEqual(t, loads.Load(), int32(2))
}

func TestRealtimeSync_StartTwiceConflicts(t *testing.T) {
	repo := &fakeSessionRepo{}
	store := NewSessionStore(SessionStoreOptions{Device: localdevice.Static("laptop")})
	engine := NewRealtimeSync(RealtimeSyncOptions{Repo: repo, Store: store})
	defer engine.Stop()

	require.NoError(t, engine.Start("user-1"))
	err := engine.Start("user-1")
	assert.True(t, apperrors.IsConflict(err))
}

func TestRealtimeSync_StopIsIdempotentAndSafeBeforeStart(t *testing.T) {
	repo := &fakeSessionRepo{}
	store := NewSessionStore(SessionStoreOptions{Device: localdevice.Static("laptop")})
	engine := NewRealtimeSync(RealtimeSyncOptions{Repo: repo, Store: store})

	engine.Stop() // before Start

	require.NoError(t, engine.Start("user-1"))
	engine.Stop()
	engine.Stop() // second stop is a no-op

	// The engine can be started again after a stop.
	require.NoError(t, engine.Start("user-1"))
	engine.Stop()
}
