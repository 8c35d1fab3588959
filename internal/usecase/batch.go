package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"MutationScanner/internal/domain"
	"MutationScanner/internal/ports"
)

const (
	defaultChunkSize = 50
	defaultLockTTL   = 2 * time.Hour
)

var errMissingRecord = errors.New("record missing from fetched document")

// BatchDeps wires all driven adapters into the batch orchestrator.
type BatchDeps struct {
	Fetcher   ports.AbstractFetcher
	Parser    ports.DocumentParser
	Extractor ports.MutationExtractor
	Store     ports.MutationStore
	Locker    ports.Locker
	Reporter  ports.Reporter
	Logger    *slog.Logger
	ChunkSize int
	LockTTL   time.Duration
}

// BatchProcessor runs the fetch, parse, extract and persist workflow over a
// list of article identifiers, one chunk and one article at a time.
type BatchProcessor struct {
	fetcher   ports.AbstractFetcher
	parser    ports.DocumentParser
	extractor ports.MutationExtractor
	store     ports.MutationStore
	locker    ports.Locker
	reporter  ports.Reporter
	logger    *slog.Logger
	chunkSize int
	lockTTL   time.Duration
	newRunID  func() string
}

// NewBatchProcessor constructs the orchestration component.
func NewBatchProcessor(deps BatchDeps) *BatchProcessor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	chunkSize := deps.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	lockTTL := deps.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	return &BatchProcessor{
		fetcher:   deps.Fetcher,
		parser:    deps.Parser,
		extractor: deps.Extractor,
		store:     deps.Store,
		locker:    deps.Locker,
		reporter:  deps.Reporter,
		logger:    logger.With("component", "batch"),
		chunkSize: chunkSize,
		lockTTL:   lockTTL,
		newRunID:  uuid.NewString,
	}
}

// RunBatch processes ids under a lock keyed by the identifier set and each
// of its articles.
func (p *BatchProcessor) RunBatch(ctx context.Context, ids []string) (domain.BatchResult, error) {
	return p.RunNamedBatch(ctx, "", ids)
}

// RunNamedBatch processes ids under a lock keyed by name, or by the identifier
// set when name is empty, plus one key per article so runs over overlapping
// sets exclude each other. Per-article failures are reported in the result;
// the returned error is non-nil only when the batch could not start.
func (p *BatchProcessor) RunNamedBatch(ctx context.Context, name string, ids []string) (domain.BatchResult, error) {
	ids = domain.NormalizeIDs(ids)
	result := domain.BatchResult{RunID: p.newRunID()}
	if len(ids) == 0 {
		return result, nil
	}

	logger := p.logger.With("run_id", result.RunID)

	if p.locker != nil {
		key := LockKey(name, ids)
		release, err := p.locker.Acquire(ctx, LockKeys(name, ids), p.lockTTL)
		if err != nil {
			logger.Warn("batch not started", "lock", key, "error", err)
			return result, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Error("release lock", "lock", key, "error", err)
			}
		}()
	}

	started := time.Now()
	logger.Info("batch started", "name", name, "articles", len(ids), "chunk_size", p.chunkSize)

	for chunk := range slices.Chunk(ids, p.chunkSize) {
		result.Chunks++
		p.processChunk(ctx, logger.With("chunk", result.Chunks), chunk, &result)
	}

	logger.Info("batch finished",
		"chunks", result.Chunks,
		"processed", result.Processed,
		"failed", result.Failed,
		"rejected", result.Rejected,
		"mentions", result.Mentions,
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)

	p.report(ctx, logger, name, result)
	return result, nil
}

func (p *BatchProcessor) processChunk(ctx context.Context, logger *slog.Logger, ids []string, result *domain.BatchResult) {
	raw, err := p.fetcher.Fetch(ctx, ids)
	if err != nil {
		p.skipChunk(logger, ids, domain.StageFetch, err, result)
		return
	}

	records, rejected, err := p.parser.Parse(raw)
	if err != nil {
		p.skipChunk(logger, ids, domain.StageParse, err, result)
		return
	}

	for _, r := range rejected {
		logger.Warn("record rejected", "position", r.Position, "reason", r.Reason)
	}
	result.Rejected += len(rejected)

	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if !requested[rec.ID] {
			logger.Debug("unrequested record ignored", "pmid", rec.ID)
			continue
		}
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true

		tokens := p.extractor.Extract(rec.Abstract)
		if err := p.persistArticle(ctx, logger, rec, tokens); err != nil {
			logger.Error("article failed", "pmid", rec.ID, "stage", domain.StagePersist, "error", err)
			result.Fail(rec.ID, domain.StagePersist, err)
			continue
		}

		result.Processed++
		result.Mentions += len(tokens)
		logger.Debug("article persisted", "pmid", rec.ID, "mutations", len(tokens))
	}

	for _, id := range ids {
		if seen[id] {
			continue
		}
		err := &domain.StageError{Stage: domain.StageParse, ID: id, Err: errMissingRecord}
		logger.Warn("article failed", "pmid", id, "stage", domain.StageParse, "error", err)
		result.Fail(id, domain.StageParse, err)
	}
}

func (p *BatchProcessor) skipChunk(logger *slog.Logger, ids []string, stage domain.Stage, err error, result *domain.BatchResult) {
	stageErr := &domain.StageError{Stage: stage, Err: err}
	logger.Error("chunk skipped", "stage", stage, "articles", len(ids), "error", err)
	for _, id := range ids {
		result.Fail(id, stage, stageErr)
	}
}

// persistArticle writes one article inside its own transaction. Any error or
// panic rolls the transaction back and leaves other articles untouched.
func (p *BatchProcessor) persistArticle(ctx context.Context, logger *slog.Logger, rec domain.ArticleRecord, tokens []string) (err error) {
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return &domain.StageError{Stage: domain.StagePersist, ID: rec.ID, Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Debug("rollback", "pmid", rec.ID, "error", rbErr)
		}
		err = &domain.StageError{Stage: domain.StagePersist, ID: rec.ID, Err: err}
	}()

	if err = tx.UpdateArticleStatus(ctx, rec.ID, domain.StatusSuccess); err != nil {
		return err
	}
	if rec.Title != "" {
		if err = tx.UpdateArticleTitle(ctx, rec.ID, rec.Title); err != nil {
			return err
		}
	}
	if err = tx.InsertMentions(ctx, rec.ID, tokens); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *BatchProcessor) report(ctx context.Context, logger *slog.Logger, name string, result domain.BatchResult) {
	if p.reporter == nil {
		return
	}
	if err := p.reporter.PublishReport(ctx, FormatReport(name, result)); err != nil {
		logger.Warn("publish report", "error", err)
	}
}

// LockKey names the mutual-exclusion token of a batch.
func LockKey(name string, ids []string) string {
	if name = strings.TrimSpace(name); name != "" {
		return "batch:" + name
	}

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sum := sha1.Sum([]byte(strings.Join(sorted, ",")))
	return "batch:" + hex.EncodeToString(sum[:])
}

// ArticleLockKey names the token guarding one article across runs.
func ArticleLockKey(id string) string {
	return "article:" + id
}

// LockKeys lists the batch key followed by one key per article.
func LockKeys(name string, ids []string) []string {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, LockKey(name, ids))
	for _, id := range ids {
		keys = append(keys, ArticleLockKey(id))
	}
	return keys
}

// FormatReport renders a batch summary for chat delivery.
func FormatReport(name string, result domain.BatchResult) string {
	var b strings.Builder
	title := "Mutation extraction batch"
	if name != "" {
		title += " " + name
	}
	fmt.Fprintf(&b, "%s\nRun: %s\n", title, result.RunID)
	fmt.Fprintf(&b, "Chunks: %d\nProcessed: %d\nFailed: %d\nRejected: %d\nMutations: %d\n",
		result.Chunks, result.Processed, result.Failed, result.Rejected, result.Mentions)

	const maxListed = 10
	for i, f := range result.Failures {
		if i == maxListed {
			fmt.Fprintf(&b, "... and %d more failures\n", len(result.Failures)-maxListed)
			break
		}
		fmt.Fprintf(&b, "- %s [%s]\n", f.ID, f.Stage)
	}
	return b.String()
}
