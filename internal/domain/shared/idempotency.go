package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed event IDs so redelivered events
// are handled at most once within the TTL window.
type IdempotencyStore interface {
	// MarkProcessed records the event ID and reports whether it was new.
	// A false result means the event was already handled.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	Close() error
}

// IdempotencyConfig controls duplicate-event suppression
type IdempotencyConfig struct {
	// TTL is how long processed event IDs are remembered. After it
	// elapses the same event ID is treated as new again.
	TTL time.Duration

	// Enabled turns the duplicate check off entirely when false
	Enabled bool
}

// DefaultIdempotencyConfig remembers events for one day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
