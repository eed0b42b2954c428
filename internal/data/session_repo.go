package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/target/session-authority/internal/data/pgxutil"
	"github.com/target/session-authority/internal/domain/session"
	"github.com/target/session-authority/internal/ports"
)

// sessionChangeChannel is the NOTIFY channel the device_sessions triggers
// publish row changes on. Payloads are filtered by user id on the consumer
// side since LISTEN channels cannot be parameterized per user.
const sessionChangeChannel = "device_session_changes"

const sessionColumns = `id, user_id, device_stable_id, is_current, is_trusted, device_name, user_agent, metadata, created_at, updated_at`

// SessionRepo provides database operations for device sessions and
// revocation signals.
type SessionRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewSessionRepo creates a new SessionRepo with real time provider.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewSessionRepoWithTimeProvider creates a new SessionRepo with a custom time provider (useful for tests).
func NewSessionRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *SessionRepo {
	return &SessionRepo{DB: db, timeProvider: tp}
}

// ListByUser retrieves all session rows for the user ordered newest-first.
// Zero rows is not an error: a freshly signed-in device may not have a
// persisted session yet.
func (r *SessionRepo) ListByUser(ctx context.Context, userID string) ([]session.Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDRequired
	}

	var out []session.Record
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+sessionColumns+`
			FROM device_sessions
			WHERE user_id = $1
			ORDER BY created_at DESC, updated_at DESC
		`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[session.Record])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list device sessions: %w", err)
	}
	return out, nil
}

// GetByDevice retrieves the session row for one (user, device) pair.
func (r *SessionRepo) GetByDevice(ctx context.Context, userID, deviceStableID string) (session.Record, error) {
	if strings.TrimSpace(userID) == "" {
		return session.Record{}, ErrUserIDRequired
	}
	if strings.TrimSpace(deviceStableID) == "" {
		return session.Record{}, ErrDeviceIDRequired
	}

	var out session.Record
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+sessionColumns+`
			FROM device_sessions
			WHERE user_id = $1 AND device_stable_id = $2
			ORDER BY created_at DESC, updated_at DESC
			LIMIT 1
		`, userID, deviceStableID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[session.Record])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return session.Record{}, ErrSessionNotFound
	}
	if err != nil {
		return session.Record{}, fmt.Errorf("failed to get device session: %w", err)
	}
	return out, nil
}

// SetTrusted issues the authoritative update-or-create carrying the trust flag.
func (r *SessionRepo) SetTrusted(ctx context.Context, in ports.SetTrustedInput) (session.Record, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return session.Record{}, ErrUserIDRequired
	}
	if strings.TrimSpace(in.DeviceStableID) == "" {
		return session.Record{}, ErrDeviceIDRequired
	}

	now := r.timeProvider.Now().UTC()
	var out session.Record
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO device_sessions (user_id, device_stable_id, is_trusted, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (user_id, device_stable_id) DO UPDATE
			SET is_trusted = EXCLUDED.is_trusted, updated_at = EXCLUDED.updated_at
			RETURNING `+sessionColumns+`
		`, in.UserID, in.DeviceStableID, in.Trusted, now)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[session.Record])
		return err
	}); err != nil {
		return session.Record{}, fmt.Errorf("failed to set device trust: %w", err)
	}
	return out, nil
}

// DeleteByDevice removes all session rows for one (user, device) pair.
// Returns true when at least one row was deleted.
func (r *SessionRepo) DeleteByDevice(ctx context.Context, userID, deviceStableID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, ErrUserIDRequired
	}
	if strings.TrimSpace(deviceStableID) == "" {
		return false, ErrDeviceIDRequired
	}

	var deleted bool
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			DELETE FROM device_sessions
			WHERE user_id = $1 AND device_stable_id = $2
		`, userID, deviceStableID)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	}); err != nil {
		return false, fmt.Errorf("failed to delete device session: %w", err)
	}
	return deleted, nil
}

// RecordSignal appends a revocation signal row. The table is append-only;
// rows are never updated or deleted by this subsystem.
func (r *SessionRepo) RecordSignal(ctx context.Context, sig session.Signal) error {
	if strings.TrimSpace(sig.ID) == "" {
		return ErrSignalIDRequired
	}
	if strings.TrimSpace(sig.UserID) == "" {
		return ErrUserIDRequired
	}
	if strings.TrimSpace(sig.DeviceStableID) == "" {
		return ErrDeviceIDRequired
	}

	emittedAt := sig.EmittedAt
	if emittedAt.IsZero() {
		emittedAt = r.timeProvider.Now().UTC()
	}

	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO revocation_signals (id, user_id, device_stable_id, emitted_at)
			VALUES ($1, $2, $3, $4)
		`, sig.ID, sig.UserID, sig.DeviceStableID, emittedAt)
		return err
	}); err != nil {
		return fmt.Errorf("failed to record revocation signal: %w", err)
	}
	return nil
}

// changePayload mirrors the JSON the device_sessions triggers publish via
// pg_notify.
type changePayload struct {
	Op     string         `json:"op"`
	Record session.Record `json:"record"`
}

// StreamChanges listens for row-level changes on the device session table and
// delivers events for the given user to fn. It blocks until the context is
// canceled, fn returns an error, or the underlying connection fails. Events
// published while no listener is attached are not replayed; callers reconcile
// by re-running an authoritative load when they (re)start a stream.
func (r *SessionRepo) StreamChanges(ctx context.Context, userID string, fn func(session.ChangeEvent) error) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}

	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	quoted := pgx.Identifier{sessionChangeChannel}.Sanitize()
	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", sessionChangeChannel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		for {
			notification, notifyErr := sc.Conn().WaitForNotification(ctx)
			if notifyErr != nil {
				return notifyErr
			}

			event, decodeErr := decodeChangePayload(notification.Payload)
			if decodeErr != nil {
				// Malformed payloads are skipped rather than tearing the
				// stream down; the next authoritative load reconciles.
				continue
			}
			if event.Record.UserID != userID {
				continue
			}
			if fnErr := fn(event); fnErr != nil {
				return fnErr
			}
		}
	})
}

func decodeChangePayload(payload string) (session.ChangeEvent, error) {
	var p changePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return session.ChangeEvent{}, fmt.Errorf("decode change payload: %w", err)
	}
	op, ok := session.ParseChangeOp(p.Op)
	if !ok {
		return session.ChangeEvent{}, fmt.Errorf("unknown change op %q", p.Op)
	}
	return session.ChangeEvent{Op: op, Record: p.Record}, nil
}

var _ ports.SessionRepository = (*SessionRepo)(nil)
