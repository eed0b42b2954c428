package ports

// Package ports defines interfaces (hexagonal ports) for session-authority
// behavior. Implementations live in internal/adapters and internal/data;
// orchestration in internal/service.

import (
	"context"

	domainauth "github.com/target/session-authority/internal/domain/auth"
)

// SessionTokenStore persists and retrieves authenticated user sessions keyed
// by opaque token.
type SessionTokenStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// AuthEventSource delivers external auth events (sign-in, sign-out, token
// refresh). Subscribe returns an unsubscribe func and the event channel; the
// channel is closed on unsubscribe.
type AuthEventSource interface {
	Subscribe() (func(), <-chan domainauth.Event)
}

// RoleSource resolves a user's role from the two backing sources.
// The boolean result reports whether the source yielded a role at all.
type RoleSource interface {
	// PrimaryRole reads the per-user primary role field.
	PrimaryRole(ctx context.Context, userID string) (domainauth.Role, bool, error)
	// LatestActiveGrant reads the most recently created active role-grant row.
	LatestActiveGrant(ctx context.Context, userID string) (domainauth.Role, bool, error)
}

// ProfileSource fetches profile enrichment data for a signed-in user.
type ProfileSource interface {
	FetchProfile(ctx context.Context, userID string) (domainauth.Profile, error)
}
