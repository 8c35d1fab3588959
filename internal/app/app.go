package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"MutationScanner/internal/config"
	"MutationScanner/internal/domain"
	"MutationScanner/internal/extractor"
	"MutationScanner/internal/infrastructure/edirect"
	"MutationScanner/internal/infrastructure/httpapi"
	"MutationScanner/internal/infrastructure/lock"
	"MutationScanner/internal/infrastructure/parser"
	"MutationScanner/internal/infrastructure/scheduler"
	"MutationScanner/internal/infrastructure/storage"
	"MutationScanner/internal/infrastructure/telegram"
	"MutationScanner/internal/logging"
	"MutationScanner/internal/ports"
	"MutationScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	fetcher   *edirect.Fetcher
	processor *usecase.BatchProcessor
	collector *usecase.Collector
	closers   []io.Closer
}

// New opens storage and builds every adapter the commands need.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, dialect, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &Application{cfg: cfg, logger: baseLogger, closers: []io.Closer{db}}

	store, err := storage.New(ctx, db, dialect)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.store = store

	locker, err := newLocker(ctx, cfg.Lock)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if c, ok := locker.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	runner := edirect.NewExecRunner(baseLogger.With("component", "edirect"))
	a.fetcher = edirect.NewFetcher(runner, cfg.Retrieval)

	var reporter ports.Reporter
	if cfg.Notifications.Telegram.Enabled() {
		reporter = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	a.processor = usecase.NewBatchProcessor(usecase.BatchDeps{
		Fetcher:   a.fetcher,
		Parser:    parser.NewPubmedParser(parser.NewSanitizer(cfg.Sanitizer.Entities)),
		Extractor: extractor.New(),
		Store:     store,
		Locker:    locker,
		Reporter:  reporter,
		Logger:    baseLogger,
		ChunkSize: cfg.Batch.ChunkSize,
		LockTTL:   cfg.Batch.LockTTL,
	})
	a.collector = usecase.NewCollector(a.fetcher, store, baseLogger)

	baseLogger.Info("application ready",
		"database", dialect,
		"lock", cfg.Lock.Backend,
		"chunk_size", cfg.Batch.ChunkSize,
		"reporter", reporter != nil,
	)
	return a, nil
}

func newLocker(ctx context.Context, cfg config.LockConfig) (ports.Locker, error) {
	if cfg.Backend != config.LockBackendRedis {
		return lock.NewMemoryLocker(), nil
	}
	l, err := lock.NewRedisLocker(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init redis lock: %w", err)
	}
	return l, nil
}

// Processor exposes the batch use case.
func (a *Application) Processor() *usecase.BatchProcessor { return a.processor }

// Collector exposes the protein lookup use case.
func (a *Application) Collector() *usecase.Collector { return a.collector }

// Store exposes the work list and read-back side of storage.
func (a *Application) Store() *storage.Store { return a.store }

// RunBatch runs ids, skipping already successful ones unless force is set.
func (a *Application) RunBatch(ctx context.Context, ids []string, force bool) (BatchOutcome, error) {
	ids = domain.NormalizeIDs(ids)
	requested := len(ids)
	if !force {
		var err error
		ids, err = usecase.ExcludeProcessed(ctx, a.store, ids)
		if err != nil {
			return BatchOutcome{}, err
		}
	}

	res, err := a.processor.RunBatch(ctx, ids)
	return BatchOutcome{Result: res, Skipped: requested - len(ids)}, err
}

// BatchOutcome adds the number of ids excluded before the run.
type BatchOutcome struct {
	Result  domain.BatchResult `json:"result"`
	Skipped int                `json:"skipped"`
}

// Watch runs scheduled batches until ctx is cancelled.
func (a *Application) Watch(ctx context.Context) error {
	driver := scheduler.NewTickerScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.processor, a.store, a.cfg.Scheduler.PendingLimit, a.logger)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching pending articles", "interval", a.cfg.Scheduler.Interval.String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Handler builds the HTTP API.
func (a *Application) Handler() *gin.Engine {
	return httpapi.NewRouter(httpapi.Deps{
		Batches:   a.processor,
		Collector: a.collector,
		Work:      a.store,
		Articles:  a.store,
		Logger:    a.logger,
	})
}

// Serve listens on the configured address until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases the database and lock connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
