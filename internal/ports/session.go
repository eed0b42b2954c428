package ports

import (
	"context"

	"github.com/target/session-authority/internal/domain/session"
)

// SetTrustedInput groups the parameters for SessionRepository.SetTrusted.
type SetTrustedInput struct {
	UserID         string
	DeviceStableID string
	Trusted        bool
}

// SessionRepository is the durable backing store for device sessions.
type SessionRepository interface {
	// ListByUser returns all session rows for the user ordered newest-first.
	ListByUser(ctx context.Context, userID string) ([]session.Record, error)

	// GetByDevice returns the session row for one device.
	GetByDevice(ctx context.Context, userID, deviceStableID string) (session.Record, error)

	// SetTrusted issues an authoritative update-or-create carrying the trust flag.
	SetTrusted(ctx context.Context, in SetTrustedInput) (session.Record, error)

	// DeleteByDevice removes the session rows for one device. The boolean
	// reports whether any row was deleted.
	DeleteByDevice(ctx context.Context, userID, deviceStableID string) (bool, error)

	// RecordSignal appends a revocation signal row.
	RecordSignal(ctx context.Context, sig session.Signal) error

	// StreamChanges blocks delivering row-level change events for the user to
	// fn until the context is canceled or the underlying stream fails. A fn
	// error stops the stream and is returned.
	StreamChanges(ctx context.Context, userID string, fn func(session.ChangeEvent) error) error
}

// SignalBus broadcasts revocation signals with low latency, ahead of the
// authoritative delete propagating through the session change stream.
type SignalBus interface {
	// Publish broadcasts a revocation signal to all subscribers for its user.
	Publish(ctx context.Context, sig session.Signal) error

	// Subscribe blocks delivering signals for the user to fn until the context
	// is canceled or the underlying subscription fails.
	Subscribe(ctx context.Context, userID string, fn func(session.Signal) error) error
}

// DeviceIdentity resolves the locally persisted stable id of this physical
// device/installation. It must be available without any network round trip.
type DeviceIdentity interface {
	DeviceStableID() string
}
