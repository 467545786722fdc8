package domain

import (
	"context"
	"time"
)

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus carries liquidity events: live over pub/sub, and as a capped
// stream of recent history.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	// StreamRecent returns up to count of the newest entries, oldest first.
	StreamRecent(ctx context.Context, stream string, count int) ([]StreamMessage, error)
}

// PoolCache holds recent pool snapshots for read-only views. The liquidity
// coordinator never reads from it.
type PoolCache interface {
	SetPool(ctx context.Context, snap PoolSnapshot, ttl time.Duration) error
	GetPool(ctx context.Context, asset Asset) (PoolSnapshot, error)
}
