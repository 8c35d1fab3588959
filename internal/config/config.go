package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	defaultChunkSize = 50

	configPathEnv     = "MUTATION_SCANNER_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	redisAddrEnv      = "REDIS_ADDR"
	redisPasswordEnv  = "REDIS_PASSWORD"
	logLevelEnv       = "LOG_LEVEL"
	chunkSizeEnv      = "CHUNK_SIZE"
	edirectPathEnv    = "EDIRECT_PATH"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	httpAddrEnv       = "HTTP_ADDR"
)

// Lock backends.
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Retrieval     RetrievalConfig    `yaml:"retrieval"`
	Batch         BatchConfig        `yaml:"batch"`
	Lock          LockConfig         `yaml:"lock"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Server        ServerConfig       `yaml:"server"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sanitizer     SanitizerConfig    `yaml:"sanitizer"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig selects the SQL driver and its data source.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RetrievalConfig points at the EDirect tools and the Entrez database they query.
type RetrievalConfig struct {
	EDirectPath string        `yaml:"edirectPath"`
	ESearch     string        `yaml:"esearch"`
	EFetch      string        `yaml:"efetch"`
	Database    string        `yaml:"database"`
	Timeout     time.Duration `yaml:"timeout"`
}

// BatchConfig tunes batch processing.
type BatchConfig struct {
	ChunkSize int           `yaml:"chunkSize"`
	LockTTL   time.Duration `yaml:"lockTTL"`
}

// LockConfig picks where batch locks live.
type LockConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig describes the Redis instance backing distributed locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// SchedulerConfig defines how often pending articles are picked up.
type SchedulerConfig struct {
	Interval     time.Duration  `yaml:"interval"`
	Timezone     string         `yaml:"timezone"`
	PendingLimit int            `yaml:"pendingLimit"`
	location     *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ServerConfig holds the HTTP listener address.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// SanitizerConfig extends the named-entity table used before parsing.
type SanitizerConfig struct {
	Entities map[string]int `yaml:"entities"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(edirectPathEnv); v != "" {
		c.Retrieval.EDirectPath = v
	}

	if v := os.Getenv(chunkSizeEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("config: invalid %s %q, keeping %d", chunkSizeEnv, v, c.Batch.ChunkSize)
		} else {
			c.Batch.ChunkSize = n
		}
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Lock.Redis.Addr = v
		c.Lock.Backend = LockBackendRedis
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Lock.Redis.Password = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	def := defaultConfig()

	if c.Batch.ChunkSize <= 0 {
		log.Printf("config: chunk size %d is not positive, using %d", c.Batch.ChunkSize, defaultChunkSize)
		c.Batch.ChunkSize = defaultChunkSize
	}
	if c.Batch.LockTTL <= 0 {
		c.Batch.LockTTL = def.Batch.LockTTL
	}
	if c.Retrieval.Timeout <= 0 {
		c.Retrieval.Timeout = def.Retrieval.Timeout
	}
	if c.Scheduler.Interval <= 0 {
		c.Scheduler.Interval = def.Scheduler.Interval
	}
	if c.Scheduler.PendingLimit <= 0 {
		c.Scheduler.PendingLimit = def.Scheduler.PendingLimit
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Lock.Backend = strings.ToLower(strings.TrimSpace(c.Lock.Backend)); c.Lock.Backend {
	case LockBackendMemory, LockBackendRedis:
	default:
		log.Printf("config: unknown lock backend %q, using %s", c.Lock.Backend, LockBackendMemory)
		c.Lock.Backend = LockBackendMemory
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Retrieval.EDirectPath != "" {
		base.Retrieval.EDirectPath = override.Retrieval.EDirectPath
	}
	if override.Retrieval.ESearch != "" {
		base.Retrieval.ESearch = override.Retrieval.ESearch
	}
	if override.Retrieval.EFetch != "" {
		base.Retrieval.EFetch = override.Retrieval.EFetch
	}
	if override.Retrieval.Database != "" {
		base.Retrieval.Database = override.Retrieval.Database
	}
	if override.Retrieval.Timeout != 0 {
		base.Retrieval.Timeout = override.Retrieval.Timeout
	}

	if override.Batch.ChunkSize != 0 {
		base.Batch.ChunkSize = override.Batch.ChunkSize
	}
	if override.Batch.LockTTL != 0 {
		base.Batch.LockTTL = override.Batch.LockTTL
	}

	if override.Lock.Backend != "" {
		base.Lock.Backend = override.Lock.Backend
	}
	if override.Lock.Redis.Addr != "" {
		base.Lock.Redis.Addr = override.Lock.Redis.Addr
	}
	if override.Lock.Redis.Password != "" {
		base.Lock.Redis.Password = override.Lock.Redis.Password
	}
	if override.Lock.Redis.DB != 0 {
		base.Lock.Redis.DB = override.Lock.Redis.DB
	}
	if override.Lock.Redis.Prefix != "" {
		base.Lock.Redis.Prefix = override.Lock.Redis.Prefix
	}

	if override.Scheduler.Interval != 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.PendingLimit != 0 {
		base.Scheduler.PendingLimit = override.Scheduler.PendingLimit
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Sanitizer.Entities) > 0 {
		base.Sanitizer.Entities = override.Sanitizer.Entities
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "mutations.db"},
		Retrieval: RetrievalConfig{
			Database: "pubmed",
			Timeout:  2 * time.Minute,
		},
		Batch: BatchConfig{ChunkSize: defaultChunkSize, LockTTL: 2 * time.Hour},
		Lock: LockConfig{
			Backend: LockBackendMemory,
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "mutationscanner:"},
		},
		Scheduler: SchedulerConfig{
			Interval:     time.Hour,
			Timezone:     defaultTimezone,
			PendingLimit: 500,
			location:     tz,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}
