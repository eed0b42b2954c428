package config

import "time"

const (
	minSessionTTL = time.Minute
	maxSessionTTL = 30 * 24 * time.Hour
)

// AuthConfig groups authentication and session token configuration.
type AuthConfig struct {
	// SessionTTL is the lifetime of a session token.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"720h"`

	// CookieName is the name of the session token cookie.
	CookieName string `env:"AUTH_COOKIE_NAME" envDefault:"sa_session"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"AUTH_COOKIE_DOMAIN" envDefault:""`

	// CookieSecure marks the session cookie Secure. Disable for local dev only.
	CookieSecure bool `env:"AUTH_COOKIE_SECURE" envDefault:"true"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL < minSessionTTL {
		a.SessionTTL = minSessionTTL
	}
	if a.SessionTTL > maxSessionTTL {
		a.SessionTTL = maxSessionTTL
	}
	if a.CookieName == "" {
		a.CookieName = "sa_session"
	}
}
