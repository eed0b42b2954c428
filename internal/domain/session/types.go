// Package session contains domain-level types for multi-device session
// tracking. It is pure and free of framework/adapter concerns.
package session

import (
	"strings"
	"time"
)

// Record is one persisted device session: one row per (user, physical device).
// ID is assigned by the backing store and is never used for equality;
// DeviceStableID is the deduplication key and the basis for "is this the
// current device" checks.
type Record struct {
	ID            string            `json:"id"               db:"id"`
	UserID        string            `json:"user_id"          db:"user_id"`
	DeviceStableID string           `json:"device_stable_id" db:"device_stable_id"`
	IsCurrent     bool              `json:"is_current"       db:"is_current"`
	IsTrusted     bool              `json:"is_trusted"       db:"is_trusted"`
	DeviceName    string            `json:"device_name"      db:"device_name"`
	UserAgent     string            `json:"user_agent"       db:"user_agent"`
	Metadata      map[string]string `json:"metadata"         db:"metadata"`
	CreatedAt     time.Time         `json:"created_at"       db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"       db:"updated_at"`
}

// NewerThan reports whether r wins the deduplication tie-break against other:
// newest CreatedAt first, then newest UpdatedAt.
func (r Record) NewerThan(other Record) bool {
	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.After(other.CreatedAt)
	}
	return r.UpdatedAt.After(other.UpdatedAt)
}

// Signal is an ephemeral, append-only revocation intent. It carries no
// ownership of truth: observers use it for an optimistic local removal ahead
// of the authoritative delete of the corresponding Record.
type Signal struct {
	ID             string    `json:"id"               db:"id"`
	UserID         string    `json:"user_id"          db:"user_id"`
	DeviceStableID string    `json:"device_stable_id" db:"device_stable_id"`
	EmittedAt      time.Time `json:"emitted_at"       db:"emitted_at"`
}

// ChangeOp identifies the kind of row-level mutation carried by a ChangeEvent.
type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// ParseChangeOp normalizes an operation string and reports whether it is supported.
func ParseChangeOp(value string) (ChangeOp, bool) {
	op := ChangeOp(strings.ToUpper(strings.TrimSpace(value)))
	switch op {
	case OpInsert, OpUpdate, OpDelete:
		return op, true
	default:
		return "", false
	}
}

// ChangeEvent is one row-level mutation observed on the device session table.
// Insert/Update events carry the full row; Delete events may carry only the
// key fields (UserID, DeviceStableID).
type ChangeEvent struct {
	Op     ChangeOp `json:"op"`
	Record Record   `json:"record"`
}

// DuplicateGroup describes a set of rows sharing one DeviceStableID that was
// collapsed during deduplication. Kept is the surviving row; Dropped the rest.
type DuplicateGroup struct {
	DeviceStableID string
	Kept           Record
	Dropped        []Record
}

// Deduplicate collapses rows sharing a DeviceStableID down to the single row
// with the maximal (CreatedAt, UpdatedAt), preserving the relative order of
// the surviving rows. Groups with more than one member indicate an upstream
// constraint violation (e.g. replica lag) and are reported so the caller can
// emit a diagnostic; result cardinality is at most the number of distinct
// devices.
func Deduplicate(rows []Record) ([]Record, []DuplicateGroup) {
	if len(rows) == 0 {
		return nil, nil
	}

	winners := make(map[string]int, len(rows))
	losers := make(map[string][]Record)
	out := make([]Record, 0, len(rows))

	for _, row := range rows {
		idx, seen := winners[row.DeviceStableID]
		if !seen {
			winners[row.DeviceStableID] = len(out)
			out = append(out, row)
			continue
		}
		if row.NewerThan(out[idx]) {
			losers[row.DeviceStableID] = append(losers[row.DeviceStableID], out[idx])
			out[idx] = row
		} else {
			losers[row.DeviceStableID] = append(losers[row.DeviceStableID], row)
		}
	}

	if len(losers) == 0 {
		return out, nil
	}

	dupes := make([]DuplicateGroup, 0, len(losers))
	for _, kept := range out {
		dropped, ok := losers[kept.DeviceStableID]
		if !ok {
			continue
		}
		dupes = append(dupes, DuplicateGroup{
			DeviceStableID: kept.DeviceStableID,
			Kept:           kept,
			Dropped:        dropped,
		})
	}
	return out, dupes
}
