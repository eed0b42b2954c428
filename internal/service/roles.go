package service

import (
	"context"
	"log/slog"
	"strings"

	domainauth "github.com/target/session-authority/internal/domain/auth"
	"github.com/target/session-authority/internal/ports"
)

// RoleAssignment pairs a resolved role name with its numeric level.
// Authorization booleans are derived from Level on demand and never stored,
// so they cannot drift from the role.
type RoleAssignment struct {
	Role  domainauth.Role  `json:"role"`
	Level domainauth.Level `json:"level"`
}

// DefaultRoleAssignment is the safe default used when neither role source
// yields a role.
func DefaultRoleAssignment() RoleAssignment {
	return RoleAssignment{Role: domainauth.DefaultRole, Level: domainauth.LevelFor(domainauth.DefaultRole)}
}

// RoleResolverOptions groups dependencies for RoleResolver.
type RoleResolverOptions struct {
	Source ports.RoleSource // Required: the two-tier role backing source
	Logger *slog.Logger     // Optional: structured logger
}

// RoleResolver resolves a user id to a named role and a numeric authorization
// level with a two-tier lookup and a safe default. It never fails the caller:
// lookup errors on the primary source fall through to the fallback, and
// fallback errors fall through to the default role.
type RoleResolver struct {
	source ports.RoleSource
	logger *slog.Logger
}

// NewRoleResolver constructs a new RoleResolver.
func NewRoleResolver(opts RoleResolverOptions) *RoleResolver {
	if opts.Source == nil {
		panic("RoleSource is required")
	}
	return &RoleResolver{source: opts.Source, logger: opts.Logger}
}

// Resolve maps a user id to a role assignment. Every path sets the level;
// there is no "unknown" level. A missing/empty id returns the default
// immediately without touching the backing source.
func (s *RoleResolver) Resolve(ctx context.Context, userID string) RoleAssignment {
	if strings.TrimSpace(userID) == "" {
		return DefaultRoleAssignment()
	}

	role, ok, err := s.source.PrimaryRole(ctx, userID)
	if err != nil {
		s.debug(ctx, "primary role lookup failed, falling back to role grants", userID, err)
	} else if ok {
		return assignmentFor(role)
	}

	role, ok, err = s.source.LatestActiveGrant(ctx, userID)
	if err != nil {
		s.debug(ctx, "role grant lookup failed, falling back to default role", userID, err)
	} else if ok {
		return assignmentFor(role)
	}

	return DefaultRoleAssignment()
}

func assignmentFor(role domainauth.Role) RoleAssignment {
	return RoleAssignment{Role: role, Level: domainauth.LevelFor(role)}
}

func (s *RoleResolver) debug(ctx context.Context, msg, userID string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.DebugContext(ctx, msg, "user_id", userID, "error", err)
}
