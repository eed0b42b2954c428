package config

import "time"

const (
	minRestartDelay = 100 * time.Millisecond
	maxRestartDelay = time.Minute
	maxApplyQueue   = 4096
)

// RealtimeConfig contains realtime sync configuration.
type RealtimeConfig struct {
	// RestartDelay is the wait between restarts of a failed change or
	// signal stream.
	RestartDelay time.Duration `env:"REALTIME_RESTART_DELAY" envDefault:"2s"`

	// ApplyQueueSize is the depth of the serialized apply queue fed by the
	// two streams.
	ApplyQueueSize int `env:"REALTIME_APPLY_QUEUE_SIZE" envDefault:"64"`

	// DeviceIDPath is where the local device identity file is persisted.
	DeviceIDPath string `env:"REALTIME_DEVICE_ID_PATH" envDefault:".session-authority/device_id"`
}

// Sanitize applies guardrails to realtime configuration values.
func (r *RealtimeConfig) Sanitize() {
	if r.RestartDelay < minRestartDelay {
		r.RestartDelay = minRestartDelay
	}
	if r.RestartDelay > maxRestartDelay {
		r.RestartDelay = maxRestartDelay
	}
	if r.ApplyQueueSize < 1 {
		r.ApplyQueueSize = 1
	}
	if r.ApplyQueueSize > maxApplyQueue {
		r.ApplyQueueSize = maxApplyQueue
	}
}
