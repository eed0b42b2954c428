// Package devseed populates a development database with demo accounts and
// device sessions. It is idempotent and must never run against production
// data; the caller gates it on dev mode.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/session-authority/internal/data"
	"github.com/target/session-authority/internal/ports"
)

type account struct {
	ID          string
	Email       string
	DisplayName string
	PrimaryRole string
	Grants      []string
	Devices     []device
}

type device struct {
	StableID string
	Trusted  bool
}

// demoAccounts covers every role tier plus a grant-only user, so the primary
// and fallback role sources are both exercised in dev.
var demoAccounts = []account{
	{
		ID:          "dev-owner",
		Email:       "owner@dev.local",
		DisplayName: "Dev Owner",
		PrimaryRole: "owner",
		Devices: []device{
			{StableID: "dev-owner-laptop", Trusted: true},
			{StableID: "dev-owner-phone"},
		},
	},
	{
		ID:          "dev-admin",
		Email:       "admin@dev.local",
		DisplayName: "Dev Admin",
		PrimaryRole: "admin",
		Devices:     []device{{StableID: "dev-admin-laptop", Trusted: true}},
	},
	{
		ID:          "dev-moderator",
		Email:       "moderator@dev.local",
		DisplayName: "Dev Moderator",
		Grants:      []string{"moderator"},
		Devices:     []device{{StableID: "dev-moderator-laptop"}},
	},
	{
		ID:          "dev-user",
		Email:       "user@dev.local",
		DisplayName: "Dev User",
		Devices: []device{
			{StableID: "dev-user-laptop"},
			{StableID: "dev-user-tablet"},
			{StableID: "dev-user-phone"},
		},
	},
}

// Run seeds demo accounts, role grants, and device sessions. Existing rows
// are left untouched.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	sessions := data.NewSessionRepo(db)

	for _, acct := range demoAccounts {
		if err := seedAccount(ctx, db, acct); err != nil {
			return fmt.Errorf("seed account %s: %w", acct.ID, err)
		}
		for _, dev := range acct.Devices {
			if err := seedDevice(ctx, db, sessions, acct.ID, dev); err != nil {
				return fmt.Errorf("seed device %s/%s: %w", acct.ID, dev.StableID, err)
			}
		}
		if logger != nil {
			logger.Info("seeded dev account",
				"user_id", acct.ID,
				"devices", len(acct.Devices),
			)
		}
	}
	return nil
}

func seedAccount(ctx context.Context, db *sql.DB, acct account) error {
	var primary *string
	if acct.PrimaryRole != "" {
		primary = &acct.PrimaryRole
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO user_accounts (id, email, display_name, primary_role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, acct.ID, acct.Email, acct.DisplayName, primary); err != nil {
		return err
	}

	for i, role := range acct.Grants {
		createdAt := time.Now().UTC().Add(time.Duration(i) * time.Second)
		if _, err := db.ExecContext(ctx, `
			INSERT INTO role_grants (user_id, role, active, created_at)
			SELECT $1, $2, true, $3
			WHERE NOT EXISTS (
				SELECT 1 FROM role_grants WHERE user_id = $1 AND role = $2
			)
		`, acct.ID, role, createdAt); err != nil {
			return err
		}
	}
	return nil
}

func seedDevice(ctx context.Context, db *sql.DB, sessions *data.SessionRepo, userID string, dev device) error {
	var exists bool
	if err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM device_sessions
			WHERE user_id = $1 AND device_stable_id = $2
		)
	`, userID, dev.StableID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err := sessions.SetTrusted(ctx, ports.SetTrustedInput{
		UserID:         userID,
		DeviceStableID: dev.StableID,
		Trusted:        dev.Trusted,
	})
	return err
}
