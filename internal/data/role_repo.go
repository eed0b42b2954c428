package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/target/session-authority/internal/data/pgxutil"
	domainauth "github.com/target/session-authority/internal/domain/auth"
	"github.com/target/session-authority/internal/ports"
)

// RoleRepo provides database operations for the two role sources: the
// per-user primary role field on user_accounts and the role_grants fallback
// collection. It also serves profile enrichment reads.
type RoleRepo struct {
	DB *sql.DB
}

// NewRoleRepo creates a new RoleRepo.
func NewRoleRepo(db *sql.DB) *RoleRepo {
	return &RoleRepo{DB: db}
}

// PrimaryRole reads the per-user primary role field. The boolean is false
// when the account is missing or the field is null; neither is an error.
func (r *RoleRepo) PrimaryRole(ctx context.Context, userID string) (domainauth.Role, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return "", false, ErrUserIDRequired
	}

	var primary *string
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `
			SELECT primary_role
			FROM user_accounts
			WHERE id = $1
		`, userID).Scan(&primary)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get primary role: %w", err)
	}
	if primary == nil || strings.TrimSpace(*primary) == "" {
		return "", false, nil
	}
	return domainauth.Role(strings.TrimSpace(*primary)), true, nil
}

// LatestActiveGrant reads the most recently created active role-grant row for
// the user. The boolean is false when no active grant exists.
func (r *RoleRepo) LatestActiveGrant(ctx context.Context, userID string) (domainauth.Role, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return "", false, ErrUserIDRequired
	}

	var role string
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `
			SELECT role
			FROM role_grants
			WHERE user_id = $1 AND active
			ORDER BY created_at DESC
			LIMIT 1
		`, userID).Scan(&role)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get latest role grant: %w", err)
	}
	return domainauth.Role(strings.TrimSpace(role)), true, nil
}

// FetchProfile reads profile enrichment data for a signed-in user.
func (r *RoleRepo) FetchProfile(ctx context.Context, userID string) (domainauth.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return domainauth.Profile{}, ErrUserIDRequired
	}

	var out domainauth.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `
			SELECT COALESCE(display_name, ''), COALESCE(avatar_url, '')
			FROM user_accounts
			WHERE id = $1
		`, userID).Scan(&out.DisplayName, &out.AvatarURL)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domainauth.Profile{}, ErrAccountNotFound
	}
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return out, nil
}

var (
	_ ports.RoleSource    = (*RoleRepo)(nil)
	_ ports.ProfileSource = (*RoleRepo)(nil)
)
