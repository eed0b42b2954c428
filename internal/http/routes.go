// Package httpx provides the JSON HTTP API for device session authority:
// listing sessions, trust/revoke actions, and auth state queries.
package httpx

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/target/session-authority/internal/ports"
	"github.com/target/session-authority/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions ports.SessionRepository
	Tokens   ports.SessionTokenStore
	Roles    *service.RoleResolver
	Revoker  RevokerFactory

	// Optional
	Profiles     ports.ProfileSource
	Events       AuthEventPublisher
	Registry     *prometheus.Registry // nil disables /metrics
	CookieName   string
	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cookieName := services.CookieName
	if cookieName == "" {
		cookieName = "sa_session"
	}

	sessionHandlers := &SessionHandlers{
		Repo:    services.Sessions,
		Revoker: services.Revoker,
	}
	authHandlers := &AuthHandlers{
		Roles:        services.Roles,
		Profiles:     services.Profiles,
		Tokens:       services.Tokens,
		Events:       services.Events,
		CookieName:   cookieName,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	}

	requireAuth := RequireAuth(services.Tokens, cookieName)

	mux.Handle("GET /api/sessions", requireAuth(http.HandlerFunc(sessionHandlers.List)))
	mux.Handle("POST /api/sessions/trust", requireAuth(http.HandlerFunc(sessionHandlers.Trust)))
	mux.Handle("POST /api/sessions/revoke", requireAuth(http.HandlerFunc(sessionHandlers.Revoke)))
	mux.Handle("POST /api/sessions/revoke-others", requireAuth(http.HandlerFunc(sessionHandlers.RevokeOthers)))
	mux.Handle("GET /api/auth/whoami", requireAuth(http.HandlerFunc(authHandlers.Whoami)))
	mux.Handle("POST /api/auth/signout", requireAuth(http.HandlerFunc(authHandlers.SignOut)))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	if services.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{}))
	}

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
