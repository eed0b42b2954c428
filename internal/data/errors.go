package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// Session repository sentinels.
	ErrSessionNotFound  = errors.New("device session not found")
	ErrUserIDRequired   = errors.New("user_id is required")
	ErrDeviceIDRequired = errors.New("device_stable_id is required")
	ErrSignalIDRequired = errors.New("signal id is required")

	// Role repository sentinels.
	ErrAccountNotFound = errors.New("user account not found")
)
