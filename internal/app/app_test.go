package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"MutationScanner/internal/config"
	"MutationScanner/internal/domain"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		Database:  config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "app.db")},
		Retrieval: config.RetrievalConfig{Database: "pubmed", EDirectPath: "/nonexistent"},
		Batch:     config.BatchConfig{ChunkSize: 10},
		Lock:      config.LockConfig{Backend: config.LockBackendMemory},
		Server:    config.ServerConfig{Addr: "127.0.0.1:0"},
	}
}

func TestNewWiresApplication(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, err := New(ctx, testConfig(t), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer a.Close()

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected health status: %d", rec.Code)
	}

	if _, err := a.Store().RecordArticles(ctx, "CFTR", []string{"1"}); err != nil {
		t.Fatalf("RecordArticles: %v", err)
	}
	tx, err := a.Store().Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.UpdateArticleStatus(ctx, "1", domain.StatusSuccess); err != nil {
		t.Fatalf("UpdateArticleStatus: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	out, err := a.RunBatch(ctx, []string{"1", "1"}, false)
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}
	if out.Skipped != 1 || out.Result.Chunks != 0 {
		t.Fatalf("processed article was not skipped: %+v", out)
	}
}

func TestNewFetchFailureIsContained(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, err := New(ctx, testConfig(t), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer a.Close()

	out, err := a.RunBatch(ctx, []string{"2", "3"}, true)
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}
	if out.Result.Failed != 2 || out.Result.Failures[0].Stage != domain.StageFetch {
		t.Fatalf("unexpected result: %+v", out.Result)
	}
}

func TestNewWithRedisLock(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Lock = config.LockConfig{Backend: config.LockBackendRedis, Redis: config.RedisConfig{Addr: srv.Addr()}}

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
