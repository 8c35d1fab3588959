package lock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"MutationScanner/internal/domain"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLockerWithClient(client, "test:"), srv
}

func TestRedisLockerExcludes(t *testing.T) {
	t.Parallel()

	l, srv := newRedisLocker(t)
	ctx := context.Background()

	release, err := l.Acquire(ctx, []string{"batch:a"}, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !srv.Exists("test:batch:a") {
		t.Fatal("expected key to be set with prefix")
	}

	if _, err := l.Acquire(ctx, []string{"batch:a"}, time.Minute); !errors.Is(err, domain.ErrBatchLocked) {
		t.Fatalf("expected ErrBatchLocked, got %v", err)
	}
	if _, err := l.Acquire(ctx, []string{"batch:b"}, time.Minute); err != nil {
		t.Fatalf("independent key should be free: %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if srv.Exists("test:batch:a") {
		t.Fatal("expected key to be deleted")
	}
	if _, err := l.Acquire(ctx, []string{"batch:a"}, time.Minute); err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
}

func TestRedisLockerReleaseKeepsForeignOwner(t *testing.T) {
	t.Parallel()

	l, srv := newRedisLocker(t)
	ctx := context.Background()

	release, err := l.Acquire(ctx, []string{"batch:x"}, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	srv.FastForward(2 * time.Second)
	if _, err := l.Acquire(ctx, []string{"batch:x"}, time.Minute); err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if !srv.Exists("test:batch:x") {
		t.Fatal("stale release removed the new owner's key")
	}
}

func TestMemoryLocker(t *testing.T) {
	t.Parallel()

	l := NewMemoryLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.clock = func() time.Time { return now }
	ctx := context.Background()

	release, err := l.Acquire(ctx, []string{"batch:a"}, time.Hour)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, []string{"batch:a"}, time.Hour); !errors.Is(err, domain.ErrBatchLocked) {
		t.Fatalf("expected ErrBatchLocked, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	second, err := l.Acquire(ctx, []string{"batch:a"}, time.Hour)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}

	_ = release(ctx)
	if _, err := l.Acquire(ctx, []string{"batch:a"}, time.Hour); !errors.Is(err, domain.ErrBatchLocked) {
		t.Fatal("stale release freed the new owner's lock")
	}

	_ = second(ctx)
	if _, err := l.Acquire(ctx, []string{"batch:a"}, time.Hour); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestRedisLockerOverlappingKeys(t *testing.T) {
	t.Parallel()

	l, srv := newRedisLocker(t)
	ctx := context.Background()

	release, err := l.Acquire(ctx, []string{"batch:scheduled", "article:1", "article:2"}, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if ttl := srv.TTL("test:article:2"); ttl != time.Minute {
		t.Fatalf("unexpected ttl: %v", ttl)
	}

	_, err = l.Acquire(ctx, []string{"batch:other", "article:2", "article:3"}, time.Minute)
	if !errors.Is(err, domain.ErrBatchLocked) || !strings.Contains(err.Error(), "article:2") {
		t.Fatalf("expected ErrBatchLocked on article:2, got %v", err)
	}
	if srv.Exists("test:batch:other") || srv.Exists("test:article:3") {
		t.Fatal("failed acquire left partial keys behind")
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	for _, key := range []string{"test:batch:scheduled", "test:article:1", "test:article:2"} {
		if srv.Exists(key) {
			t.Fatalf("%s not released", key)
		}
	}
	if _, err := l.Acquire(ctx, []string{"batch:other", "article:2", "article:3"}, time.Minute); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestMemoryLockerOverlappingKeys(t *testing.T) {
	t.Parallel()

	l := NewMemoryLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, []string{"batch:scheduled", "article:1", "article:2"}, time.Hour)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, []string{"batch:x", "article:2", "article:3"}, time.Hour); !errors.Is(err, domain.ErrBatchLocked) {
		t.Fatalf("expected ErrBatchLocked, got %v", err)
	}
	if _, err := l.Acquire(ctx, []string{"article:3"}, time.Hour); err != nil {
		t.Fatalf("failed acquire left article:3 held: %v", err)
	}

	_ = release(ctx)
	if _, err := l.Acquire(ctx, []string{"batch:x", "article:1", "article:2"}, time.Hour); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}
