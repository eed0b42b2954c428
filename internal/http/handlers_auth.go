package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/session-authority/internal/domain/auth"
	apperrors "github.com/target/session-authority/internal/errors"
	"github.com/target/session-authority/internal/ports"
	"github.com/target/session-authority/internal/service"
)

// AuthEventPublisher publishes external auth events to in-process listeners.
type AuthEventPublisher interface {
	Publish(ev domainauth.Event)
}

// AuthHandlers contains HTTP handlers for authentication state.
type AuthHandlers struct {
	Roles        *service.RoleResolver
	Profiles     ports.ProfileSource
	Tokens       ports.SessionTokenStore
	Events       AuthEventPublisher
	CookieName   string
	CookieDomain string
	Logger       *slog.Logger
}

type whoamiResponse struct {
	UserID         string             `json:"user_id"`
	Email          string             `json:"email"`
	Role           domainauth.Role    `json:"role"`
	Level          domainauth.Level   `json:"level"`
	IsModerator    bool               `json:"is_moderator"`
	IsAdmin        bool               `json:"is_admin"`
	CanManageUsers bool               `json:"can_manage_users"`
	IsOwner        bool               `json:"is_owner"`
	Profile        domainauth.Profile `json:"profile"`
}

// Whoami handles GET /api/auth/whoami. Role resolution always yields a role;
// profile enrichment failure is logged and leaves the profile empty.
func (h *AuthHandlers) Whoami(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		RenderError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	role := h.Roles.Resolve(r.Context(), sess.UserID)

	var profile domainauth.Profile
	if h.Profiles != nil {
		p, err := h.Profiles.FetchProfile(r.Context(), sess.UserID)
		if err != nil {
			if h.Logger != nil {
				h.Logger.Warn("profile fetch failed", "user_id", sess.UserID, "error", err)
			}
		} else {
			profile = p
		}
	}

	WriteJSON(w, http.StatusOK, whoamiResponse{
		UserID:         sess.UserID,
		Email:          sess.Email,
		Role:           role.Role,
		Level:          role.Level,
		IsModerator:    role.Level.IsModerator(),
		IsAdmin:        role.Level.IsAdmin(),
		CanManageUsers: role.Level.CanManageUsers(),
		IsOwner:        role.Level.IsOwner(),
		Profile:        profile,
	})
}

// SignOut handles POST /api/auth/signout. The token is deleted, the cookie
// cleared, and a signed-out event broadcast to in-process listeners.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		RenderError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	if err := h.Tokens.Delete(r.Context(), sess.ID); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("session token delete failed", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
	})

	if h.Events != nil {
		h.Events.Publish(domainauth.Event{Type: domainauth.EventSignedOut})
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
