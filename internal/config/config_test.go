package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDriverEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(chunkSizeEnv, "")
	t.Setenv(redisAddrEnv, "")

	cfg := Load()

	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "mutations.db" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Batch.ChunkSize != 50 {
		t.Fatalf("unexpected chunk size: %d", cfg.Batch.ChunkSize)
	}
	if cfg.Batch.LockTTL != 2*time.Hour {
		t.Fatalf("unexpected lock ttl: %s", cfg.Batch.LockTTL)
	}
	if cfg.Retrieval.Database != "pubmed" || cfg.Retrieval.Timeout != 2*time.Minute {
		t.Fatalf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Lock.Backend != LockBackendMemory {
		t.Fatalf("unexpected lock backend: %s", cfg.Lock.Backend)
	}
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("unexpected location: %s", cfg.Scheduler.Location())
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte(`
logging:
  level: warn
database:
  driver: postgres
  dsn: postgres://scanner@localhost/mutations
retrieval:
  edirectPath: /opt/edirect
  timeout: 30s
batch:
  chunkSize: 20
scheduler:
  interval: 15m
  timezone: Europe/Berlin
sanitizer:
  entities:
    kappa: 954
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDriverEnv, "")
	t.Setenv(databaseDSNEnv, "postgres://override@db/mutations")
	t.Setenv(chunkSizeEnv, "")
	t.Setenv(redisAddrEnv, "redis:6379")

	cfg := Load()

	if cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected level: %s", cfg.Logging.Level)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("unexpected driver: %s", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "postgres://override@db/mutations" {
		t.Fatalf("env override not applied: %s", cfg.Database.DSN)
	}
	if cfg.Retrieval.EDirectPath != "/opt/edirect" || cfg.Retrieval.Timeout != 30*time.Second {
		t.Fatalf("unexpected retrieval: %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.Database != "pubmed" {
		t.Fatalf("default database lost: %s", cfg.Retrieval.Database)
	}
	if cfg.Batch.ChunkSize != 20 {
		t.Fatalf("unexpected chunk size: %d", cfg.Batch.ChunkSize)
	}
	if cfg.Scheduler.Interval != 15*time.Minute {
		t.Fatalf("unexpected interval: %s", cfg.Scheduler.Interval)
	}
	if cfg.Lock.Backend != LockBackendRedis || cfg.Lock.Redis.Addr != "redis:6379" {
		t.Fatalf("unexpected lock config: %+v", cfg.Lock)
	}
	if cfg.Sanitizer.Entities["kappa"] != 954 {
		t.Fatalf("unexpected entities: %v", cfg.Sanitizer.Entities)
	}
}

func TestLoadInvalidChunkSizeFallsBack(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(redisAddrEnv, "")

	for _, v := range []string{"0", "-5", "many"} {
		t.Setenv(chunkSizeEnv, v)
		if got := Load().Batch.ChunkSize; got != defaultChunkSize {
			t.Fatalf("CHUNK_SIZE=%q: got %d, want %d", v, got, defaultChunkSize)
		}
	}
}

func TestLoadUnreadableFileKeepsDefaults(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(chunkSizeEnv, "")
	t.Setenv(redisAddrEnv, "")

	cfg := Load()
	if cfg.Database.DSN != "mutations.db" {
		t.Fatalf("unexpected dsn: %s", cfg.Database.DSN)
	}
}

func TestBindTimezoneUnknown(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	cfg.bindTimezone()
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", cfg.Scheduler.Location())
	}
}

func TestNormalizeLockBackend(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Lock.Backend = " Redis "
	cfg.normalize()
	if cfg.Lock.Backend != LockBackendRedis {
		t.Fatalf("unexpected backend: %s", cfg.Lock.Backend)
	}

	cfg.Lock.Backend = "etcd"
	cfg.normalize()
	if cfg.Lock.Backend != LockBackendMemory {
		t.Fatalf("unexpected backend: %s", cfg.Lock.Backend)
	}
}
