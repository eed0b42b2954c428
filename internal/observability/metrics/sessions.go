// Package metrics exposes prometheus instrumentation for the session
// authority. Collectors are grouped per concern and registered on a caller
// supplied registry so independent instances (e.g., under test) do not
// interfere.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics instruments the session store and the realtime sync loops.
type SessionMetrics struct {
	ChangeEventsApplied *prometheus.CounterVec
	SignalsApplied      prometheus.Counter
	SignalsPublished    prometheus.Counter
	DedupeCollisions    prometheus.Counter
	Revocations         *prometheus.CounterVec
	StreamRestarts      *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
}

// NewSessionMetrics builds the collector set and registers it on reg.
// Passing prometheus.DefaultRegisterer wires the process-wide registry.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		ChangeEventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_change_events_applied_total",
			Help: "Row-level change events applied to the session store, by operation.",
		}, []string{"op"}),
		SignalsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_revocation_signals_applied_total",
			Help: "Revocation signals applied to the session store.",
		}),
		SignalsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_revocation_signals_published_total",
			Help: "Revocation signals published on the broadcast bus.",
		}),
		DedupeCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_dedupe_collisions_total",
			Help: "Groups of session rows sharing a device_stable_id collapsed during deduplication.",
		}),
		Revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_revocations_total",
			Help: "Revocation actions issued, by outcome.",
		}, []string{"outcome"}),
		StreamRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_stream_restarts_total",
			Help: "Realtime stream restarts after an error, by stream.",
		}, []string{"stream"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_store_active_sessions",
			Help: "Deduplicated device sessions currently held in the store.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ChangeEventsApplied,
			m.SignalsApplied,
			m.SignalsPublished,
			m.DedupeCollisions,
			m.Revocations,
			m.StreamRestarts,
			m.ActiveSessions,
		)
	}
	return m
}

// NewNopSessionMetrics builds an unregistered collector set. Useful where
// metrics are an optional dependency.
func NewNopSessionMetrics() *SessionMetrics {
	return NewSessionMetrics(nil)
}
