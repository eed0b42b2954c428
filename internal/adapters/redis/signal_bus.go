package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/target/session-authority/internal/domain/session"
	"github.com/target/session-authority/internal/ports"
)

// signalChannelPrefix namespaces the per-user pub/sub channels carrying
// revocation signals.
const signalChannelPrefix = "revocation_signals:"

// SignalBus broadcasts revocation signals over Redis pub/sub. Delivery is
// fire-once and best-effort: subscribers that are offline miss the signal and
// reconcile through the authoritative session-change stream instead.
type SignalBus struct {
	client redis.UniversalClient
}

// NewSignalBus creates a new Redis-backed signal bus.
func NewSignalBus(client redis.UniversalClient) *SignalBus {
	return &SignalBus{client: client}
}

func (b *SignalBus) channel(userID string) string {
	return signalChannelPrefix + userID
}

// Publish broadcasts a revocation signal to all subscribers for its user.
func (b *SignalBus) Publish(ctx context.Context, sig session.Signal) error {
	if sig.UserID == "" {
		return errors.New("signal user id cannot be empty")
	}

	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel(sig.UserID), data).Err(); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

// Subscribe delivers signals for the user to fn until the context is canceled
// or the subscription fails. Malformed payloads are skipped; a fn error stops
// the subscription and is returned.
func (b *SignalBus) Subscribe(ctx context.Context, userID string, fn func(session.Signal) error) error {
	if userID == "" {
		return errors.New("user id cannot be empty")
	}

	sub := b.client.Subscribe(ctx, b.channel(userID))
	defer func() { _ = sub.Close() }()

	// Wait for the subscription confirmation so callers know the channel is
	// live before the authoritative load races any published signals.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("confirm subscription: %w", err)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("signal subscription closed")
			}
			var sig session.Signal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				continue
			}
			if err := fn(sig); err != nil {
				return err
			}
		}
	}
}

var _ ports.SignalBus = (*SignalBus)(nil)
