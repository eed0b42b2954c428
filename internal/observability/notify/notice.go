// Package notify carries user-visible notices emitted by session actions
// (trust toggles, revocations) to whatever surface is attached. The service
// binary attaches a slog-backed sink.
package notify

import (
	"context"
	"log/slog"
)

// Notice levels recognised by downstream sinks.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notice is one user-visible outcome of a session action.
type Notice struct {
	Level   string
	Code    string
	Message string
}

// Sink describes a destination capable of consuming user notices.
type Sink interface {
	SendNotice(ctx context.Context, notice Notice)
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, notice Notice)

// SendNotice implements the Sink interface.
func (f SinkFunc) SendNotice(ctx context.Context, notice Notice) {
	if f == nil {
		return
	}
	f(ctx, notice)
}

// SlogSink logs notices through a structured logger.
type SlogSink struct {
	Logger *slog.Logger
}

// SendNotice implements the Sink interface.
func (s SlogSink) SendNotice(ctx context.Context, notice Notice) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch notice.Level {
	case LevelError:
		logger.ErrorContext(ctx, notice.Message, "code", notice.Code)
	default:
		logger.InfoContext(ctx, notice.Message, "code", notice.Code, "level", notice.Level)
	}
}
