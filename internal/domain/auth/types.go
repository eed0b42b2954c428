// Package auth contains domain-level types for authentication state and the
// role hierarchy. It is pure and free of framework/adapter concerns.
package auth

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
	RoleOwner     Role = "owner"
)

// DefaultRole is returned when neither role source yields a role.
const DefaultRole = RoleUser

// Level is a numeric authorization rank, monotonic with privilege.
// Authorization booleans are threshold functions of Level and are never
// stored independently, so they cannot drift from the role.
type Level int

// Role level thresholds.
const (
	LevelUser      Level = 1
	LevelModerator Level = 5
	LevelAdmin     Level = 8
	LevelOwner     Level = 10
)

var roleLevels = map[Role]Level{
	RoleUser:      LevelUser,
	RoleModerator: LevelModerator,
	RoleAdmin:     LevelAdmin,
	RoleOwner:     LevelOwner,
}

// LevelFor maps a role name to its numeric level. Unknown role names map to
// LevelUser, never to an error.
func LevelFor(role Role) Level {
	if lvl, ok := roleLevels[role]; ok {
		return lvl
	}
	return LevelUser
}

// IsModerator reports whether the level grants moderator privileges.
func (l Level) IsModerator() bool { return l >= LevelModerator }

// IsAdmin reports whether the level grants admin privileges.
func (l Level) IsAdmin() bool { return l >= LevelAdmin }

// CanManageUsers reports whether the level grants user management privileges.
func (l Level) CanManageUsers() bool { return l >= LevelAdmin }

// IsOwner reports whether the level grants owner privileges.
func (l Level) IsOwner() bool { return l >= LevelOwner }

// Identity represents the authenticated principal.
type Identity struct {
	UserID    string // stable user identifier
	Email     string
	FirstName string
	LastName  string
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session token (e.g., random URL-safe string).
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Profile carries the enrichment data fetched after sign-in. The zero value
// is a valid "not yet fetched" profile.
type Profile struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// State is the user's current authentication state.
type State string

const (
	StateSignedOut    State = "signed_out"
	StateInitializing State = "initializing"
	StateSignedIn     State = "signed_in"
)

// EventType tags external auth events consumed by the state machine.
type EventType string

const (
	EventSignedIn       EventType = "signed_in"
	EventSignedOut      EventType = "signed_out"
	EventTokenRefreshed EventType = "token_refreshed"
)

// Event is one external auth event (sign-in, sign-out, token refresh).
// Identity and Session are populated for sign-in/refresh events.
type Event struct {
	Type     EventType
	Identity Identity
	Session  Session
}
