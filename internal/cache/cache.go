package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = fmt.Errorf("cache miss")

// MaskCache stores effective permission masks per membership. Entries expire
// by TTL, but correctness relies on synchronous invalidation whenever a
// membership's role assignments change.
type MaskCache interface {
	Get(ctx context.Context, membershipID uuid.UUID) (uint64, error)
	Set(ctx context.Context, membershipID uuid.UUID, mask uint64, ttl time.Duration) error
	Invalidate(ctx context.Context, membershipID uuid.UUID) error
	Close() error
}

// maskKey builds the cache key for a membership's effective mask.
func maskKey(membershipID uuid.UUID) string {
	return "perm:mask:" + membershipID.String()
}
