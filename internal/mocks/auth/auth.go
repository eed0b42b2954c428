// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/target/session-authority/internal/domain/auth"
	"github.com/target/session-authority/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionTokenStore = (*MemoryTokenStore)(nil)
	_ ports.RoleSource        = (*StubRoleSource)(nil)
	_ ports.ProfileSource     = (*StubProfileSource)(nil)
)

// ErrTokenNotFound is returned by MemoryTokenStore for unknown tokens.
var ErrTokenNotFound = errors.New("session token not found")

// MemoryTokenStore is an in-memory SessionTokenStore.
type MemoryTokenStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemoryTokenStore creates an empty MemoryTokenStore.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{sessions: make(map[string]domainauth.Session)}
}

func (s *MemoryTokenStore) Save(_ context.Context, sess domainauth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domainauth.Session{}, ErrTokenNotFound
	}
	return sess, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// StubRoleSource returns configured roles, with optional func overrides.
type StubRoleSource struct {
	PrimaryRoleFunc       func(ctx context.Context, userID string) (domainauth.Role, bool, error)
	LatestActiveGrantFunc func(ctx context.Context, userID string) (domainauth.Role, bool, error)

	Primary    domainauth.Role
	PrimaryOK  bool
	Fallback   domainauth.Role
	FallbackOK bool
}

func (s *StubRoleSource) PrimaryRole(ctx context.Context, userID string) (domainauth.Role, bool, error) {
	if s.PrimaryRoleFunc != nil {
		return s.PrimaryRoleFunc(ctx, userID)
	}
	return s.Primary, s.PrimaryOK, nil
}

func (s *StubRoleSource) LatestActiveGrant(ctx context.Context, userID string) (domainauth.Role, bool, error) {
	if s.LatestActiveGrantFunc != nil {
		return s.LatestActiveGrantFunc(ctx, userID)
	}
	return s.Fallback, s.FallbackOK, nil
}

// StubProfileSource returns a configured profile, with an optional func override.
type StubProfileSource struct {
	FetchProfileFunc func(ctx context.Context, userID string) (domainauth.Profile, error)

	Profile domainauth.Profile
	Err     error
}

func (s *StubProfileSource) FetchProfile(ctx context.Context, userID string) (domainauth.Profile, error) {
	if s.FetchProfileFunc != nil {
		return s.FetchProfileFunc(ctx, userID)
	}
	return s.Profile, s.Err
}
