package httpx

import (
	"errors"
	"net/http"

	"github.com/target/session-authority/internal/adapters/localdevice"
	"github.com/target/session-authority/internal/domain/session"
	apperrors "github.com/target/session-authority/internal/errors"
	"github.com/target/session-authority/internal/ports"
	"github.com/target/session-authority/internal/service"
)

// RevokerFactory builds a revocation coordinator bound to the calling
// device's identity. Each request carries its own device fingerprint, so the
// self-revocation check is evaluated against the caller, not the server.
type RevokerFactory func(device ports.DeviceIdentity) *service.RevocationService

// SessionHandlers contains HTTP handlers for device session operations.
type SessionHandlers struct {
	Repo    ports.SessionRepository
	Revoker RevokerFactory
}

type sessionListResponse struct {
	Sessions []session.Record `json:"sessions"`
}

// List handles GET /api/sessions. The response is deduplicated to one row per
// device, newest first, with the current flag computed from the caller's
// device header when present.
func (h *SessionHandlers) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		RenderError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	rows, err := h.Repo.ListByUser(r.Context(), sess.UserID)
	if err != nil {
		RenderError(w, apperrors.MapDBError(err))
		return
	}
	deduped, _ := session.Deduplicate(rows)

	if deviceID := DeviceIDFromRequest(r); deviceID != "" {
		for i := range deduped {
			deduped[i].IsCurrent = deduped[i].DeviceStableID == deviceID
		}
	}

	WriteJSON(w, http.StatusOK, sessionListResponse{Sessions: deduped})
}

type trustRequest struct {
	DeviceStableID string `json:"device_stable_id"`
}

// Trust handles POST /api/sessions/trust. It toggles the device's trust flag.
func (h *SessionHandlers) Trust(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		RenderError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	var req trustRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	rev := h.Revoker(localdevice.Static(DeviceIDFromRequest(r)))
	rec, err := rev.Trust(r.Context(), sess.UserID, req.DeviceStableID)
	if err != nil {
		RenderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]session.Record{"session": rec})
}

type revokeRequest struct {
	DeviceStableID string `json:"device_stable_id"`
}

// Revoke handles POST /api/sessions/revoke. The caller's device header is
// required so self-revocation can be rejected.
func (h *SessionHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		RenderError(w, apperrors.Unauthorized("authentication required"))
		return
	}
	deviceID := DeviceIDFromRequest(r)
	if deviceID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "device_header_required",
			Err:     errors.New("X-Device-Id header is required"),
		})
		return
	}

	var req revokeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	rev := h.Revoker(localdevice.Static(deviceID))
	if err := rev.Revoke(r.Context(), sess.UserID, req.DeviceStableID); err != nil {
		RenderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RevokeOthers handles POST /api/sessions/revoke-others. The caller's device
// header is required so the current device is excluded.
func (h *SessionHandlers) RevokeOthers(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		RenderError(w, apperrors.Unauthorized("authentication required"))
		return
	}
	deviceID := DeviceIDFromRequest(r)
	if deviceID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "device_header_required",
			Err:     errors.New("X-Device-Id header is required"),
		})
		return
	}

	rev := h.Revoker(localdevice.Static(deviceID))
	count, err := rev.RevokeAllOthers(r.Context(), sess.UserID)
	if err != nil {
		RenderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"revoked": count})
}
