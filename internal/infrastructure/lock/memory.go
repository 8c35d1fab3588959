package lock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"MutationScanner/internal/domain"
	"MutationScanner/internal/ports"
)

type entry struct {
	token   string
	expires time.Time
}

// MemoryLocker excludes concurrent batches inside a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]entry
	clock func() time.Time
}

var _ ports.Locker = (*MemoryLocker)(nil)

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]entry), clock: time.Now}
}

// Acquire takes all keys under one owner token, or none of them when any is
// still held.
func (l *MemoryLocker) Acquire(_ context.Context, keys []string, ttl time.Duration) (func(context.Context) error, error) {
	keys = slices.Clone(keys)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	for _, key := range keys {
		if cur, ok := l.held[key]; ok && (cur.expires.IsZero() || now.Before(cur.expires)) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBatchLocked, key)
		}
	}

	e := entry{token: uuid.NewString()}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	for _, key := range keys {
		l.held[key] = e
	}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		for _, key := range keys {
			if cur, ok := l.held[key]; ok && cur.token == e.token {
				delete(l.held, key)
			}
		}
		return nil
	}, nil
}
