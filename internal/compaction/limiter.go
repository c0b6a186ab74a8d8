package compaction

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// MemoryLimiter is the shared semaphore named in spec.md §4.7/§5: output
// builders acquire a Token sized to their expected buffer before writing,
// and the driver's next open_builder step suspends until capacity frees.
type MemoryLimiter struct {
	sem *semaphore.Weighted
	max int64
}

// NewMemoryLimiter builds a limiter with the given byte budget.
func NewMemoryLimiter(maxBytes int64) *MemoryLimiter {
	return &MemoryLimiter{sem: semaphore.NewWeighted(maxBytes), max: maxBytes}
}

// Token is memory reserved from a MemoryLimiter. Release must be called
// exactly once; it is idempotent-safe to call from a defer.
type Token struct {
	limiter *MemoryLimiter
	size    int64
	done    bool
}

// RequireMemory blocks until size bytes are available or ctx is
// cancelled, per spec.md §4.7's `require_memory(size) → async Token`.
func (l *MemoryLimiter) RequireMemory(ctx context.Context, size int64) (*Token, error) {
	if size > l.max {
		return nil, fmt.Errorf("compaction: requested %d bytes exceeds limiter budget %d", size, l.max)
	}
	if err := l.sem.Acquire(ctx, size); err != nil {
		return nil, fmt.Errorf("compaction: acquire memory: %w", err)
	}
	return &Token{limiter: l, size: size}, nil
}

// Release returns the reserved bytes to the limiter. Safe to call more
// than once; only the first call has effect, mirroring a Drop that
// releases reserved bytes exactly once (spec.md §4.7).
func (t *Token) Release() {
	if t == nil || t.done {
		return
	}
	t.done = true
	t.limiter.sem.Release(t.size)
}
