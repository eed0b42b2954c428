package httpx

import (
	"context"

	domainauth "github.com/target/session-authority/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// SetSessionInContext returns a child context that carries the given session.
func SetSessionInContext(ctx context.Context, sess domainauth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the authenticated session from the request
// context and a boolean indicating presence.
func SessionFromContext(ctx context.Context) (domainauth.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(domainauth.Session)
	return sess, ok
}
