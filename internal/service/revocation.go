package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/target/session-authority/internal/domain/session"
	apperrors "github.com/target/session-authority/internal/errors"
	"github.com/target/session-authority/internal/observability/metrics"
	"github.com/target/session-authority/internal/observability/notify"
	"github.com/target/session-authority/internal/ports"
)

// RevocationServiceOptions holds the dependencies for the revocation
// coordinator.
type RevocationServiceOptions struct {
	Repo   ports.SessionRepository // Required: authoritative backing store
	Device ports.DeviceIdentity    // Required: local device identity

	// Optional dependencies.
	Bus     ports.SignalBus // fast-path revocation broadcast
	Store   *SessionStore   // local deduplicated view, consulted before the repo
	Notices notify.Sink     // user-visible confirmations and failures
	Logger  *slog.Logger
	Metrics *metrics.SessionMetrics
}

// RevocationService issues trust/revoke actions against the backing store and
// arbitrates the race between the authoritative delete and the fast
// revocation-signal broadcast. Actions are fire-and-forget relative to the
// local session list: apart from the signal's targeted removal, all local
// state waits for the authoritative stream.
type RevocationService struct {
	repo    ports.SessionRepository
	device  ports.DeviceIdentity
	bus     ports.SignalBus
	store   *SessionStore
	notices notify.Sink
	logger  *slog.Logger
	metrics *metrics.SessionMetrics
}

// NewRevocationService constructs a new RevocationService.
func NewRevocationService(opts RevocationServiceOptions) *RevocationService {
	if opts.Repo == nil {
		panic("SessionRepository is required")
	}
	if opts.Device == nil {
		panic("DeviceIdentity is required")
	}
	return &RevocationService{
		repo:    opts.Repo,
		device:  opts.Device,
		bus:     opts.Bus,
		store:   opts.Store,
		notices: opts.Notices,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Trust negates the device's current trust flag and issues the authoritative
// update-or-create carrying the result. Local state is never mutated
// optimistically for trust; the store is corrected by the next authoritative
// event.
func (s *RevocationService) Trust(ctx context.Context, userID, deviceStableID string) (session.Record, error) {
	if strings.TrimSpace(userID) == "" {
		return session.Record{}, apperrors.ValidationField("user_id", "user id is required")
	}
	if strings.TrimSpace(deviceStableID) == "" {
		return session.Record{}, apperrors.ValidationField("device_stable_id", "device id is required")
	}

	current := s.currentTrustFlag(ctx, userID, deviceStableID)

	rec, err := s.repo.SetTrusted(ctx, ports.SetTrustedInput{
		UserID:         userID,
		DeviceStableID: deviceStableID,
		Trusted:        !current,
	})
	if err != nil {
		s.sendNotice(ctx, notify.Notice{
			Level:   notify.LevelError,
			Code:    "trust_failed",
			Message: "Could not update device trust. Please try again.",
		})
		return session.Record{}, fmt.Errorf("set device trust: %w", apperrors.MapDBError(err))
	}

	if rec.IsTrusted {
		s.sendNotice(ctx, notify.Notice{
			Level:   notify.LevelSuccess,
			Code:    "device_trusted",
			Message: "Device marked as trusted.",
		})
	} else {
		s.sendNotice(ctx, notify.Notice{
			Level:   notify.LevelSuccess,
			Code:    "device_untrusted",
			Message: "Device marked as untrusted.",
		})
	}
	return rec, nil
}

// Revoke signs a device out remotely. A device may never revoke itself
// through this path; self-revocation must go through sign-out. The
// precondition is checked before any network call and is never downgraded to
// a revoke of a different device.
func (s *RevocationService) Revoke(ctx context.Context, userID, deviceStableID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.ValidationField("user_id", "user id is required")
	}
	if strings.TrimSpace(deviceStableID) == "" {
		return apperrors.ValidationField("device_stable_id", "device id is required")
	}
	if deviceStableID == s.device.DeviceStableID() {
		err := apperrors.Validation("you cannot revoke the device you are currently using; sign out instead")
		s.sendNotice(ctx, notify.Notice{
			Level:   notify.LevelError,
			Code:    "self_revocation",
			Message: "You can't sign out the device you're currently using. Use sign out instead.",
		})
		s.countRevocation("rejected_self")
		return err
	}

	if err := s.revokeDevice(ctx, userID, deviceStableID); err != nil {
		s.sendNotice(ctx, notify.Notice{
			Level:   notify.LevelError,
			Code:    "revoke_failed",
			Message: "Could not sign out the device. Please try again.",
		})
		s.countRevocation("error")
		return err
	}

	s.sendNotice(ctx, notify.Notice{
		Level:   notify.LevelSuccess,
		Code:    "device_revoked",
		Message: "Device signed out.",
	})
	s.countRevocation("ok")
	return nil
}

// RevokeAllOthers revokes every known session except the current device and
// returns the number of successful revocations. Partial failure is
// acceptable: the next authoritative sync reflects the true end state.
func (s *RevocationService) RevokeAllOthers(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, apperrors.ValidationField("user_id", "user id is required")
	}

	targets, err := s.otherDevices(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(targets) == 0 {
		s.sendNotice(ctx, notify.Notice{
			Level:   notify.LevelInfo,
			Code:    "no_other_devices",
			Message: "No other devices are signed in.",
		})
		return 0, nil
	}

	revoked := 0
	for _, device := range targets {
		if revokeErr := s.revokeDevice(ctx, userID, device); revokeErr != nil {
			s.logError(ctx, "revoke device failed", device, revokeErr)
			s.countRevocation("error")
			continue
		}
		s.countRevocation("ok")
		revoked++
	}

	s.sendNotice(ctx, notify.Notice{
		Level:   notify.LevelSuccess,
		Code:    "devices_revoked",
		Message: fmt.Sprintf("Signed out %d other device(s).", revoked),
	})
	return revoked, nil
}

// revokeDevice broadcasts the revocation signal, records it, and issues the
// authoritative delete. The signal is best-effort: it only shaves latency off
// the user-visible removal and carries no ownership of truth, so broadcast
// and record failures do not fail the revocation.
func (s *RevocationService) revokeDevice(ctx context.Context, userID, deviceStableID string) error {
	sig := session.Signal{
		ID:             ulid.Make().String(),
		UserID:         userID,
		DeviceStableID: deviceStableID,
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, sig); err != nil {
			s.logError(ctx, "publish revocation signal failed", deviceStableID, err)
		} else if s.metrics != nil {
			s.metrics.SignalsPublished.Inc()
		}
	}
	if err := s.repo.RecordSignal(ctx, sig); err != nil {
		s.logError(ctx, "record revocation signal failed", deviceStableID, err)
	}

	if _, err := s.repo.DeleteByDevice(ctx, userID, deviceStableID); err != nil {
		return fmt.Errorf("delete device session: %w", apperrors.MapDBError(err))
	}
	return nil
}

// currentTrustFlag reads the device's trust flag from the local view when it
// tracks the same user, falling back to the backing store. An unknown device
// defaults to untrusted, so the first toggle trusts it.
func (s *RevocationService) currentTrustFlag(ctx context.Context, userID, deviceStableID string) bool {
	if s.store != nil {
		if rec, ok := s.store.Get(deviceStableID); ok && rec.UserID == userID {
			return rec.IsTrusted
		}
	}
	rec, err := s.repo.GetByDevice(ctx, userID, deviceStableID)
	if err != nil {
		return false
	}
	return rec.IsTrusted
}

// otherDevices enumerates the known device fingerprints except the current
// device, preferring the local deduplicated view over a fresh fetch.
func (s *RevocationService) otherDevices(ctx context.Context, userID string) ([]string, error) {
	rows := s.localRows(userID)
	if rows == nil {
		fetched, err := s.repo.ListByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list device sessions: %w", apperrors.MapDBError(err))
		}
		rows, _ = session.Deduplicate(fetched)
	}

	current := s.device.DeviceStableID()
	devices := make([]string, 0, len(rows))
	for _, rec := range rows {
		if rec.DeviceStableID == current {
			continue
		}
		devices = append(devices, rec.DeviceStableID)
	}
	return devices, nil
}

// localRows returns the local view's rows when they all belong to userID. A
// view tracking a different user, or none, is no substitute for the
// authoritative list.
func (s *RevocationService) localRows(userID string) []session.Record {
	if s.store == nil {
		return nil
	}
	rows := s.store.Sessions()
	if len(rows) == 0 {
		return nil
	}
	for _, rec := range rows {
		if rec.UserID != userID {
			return nil
		}
	}
	return rows
}

func (s *RevocationService) sendNotice(ctx context.Context, notice notify.Notice) {
	if s.notices == nil {
		return
	}
	s.notices.SendNotice(ctx, notice)
}

func (s *RevocationService) countRevocation(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Revocations.WithLabelValues(outcome).Inc()
}

func (s *RevocationService) logError(ctx context.Context, msg, deviceStableID string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, msg, "device_stable_id", deviceStableID, "error", err)
}
