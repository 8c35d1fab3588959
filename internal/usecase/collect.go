package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"MutationScanner/internal/domain"
	"MutationScanner/internal/ports"
)

// CollectResult summarises one protein lookup.
type CollectResult struct {
	Protein string `json:"protein"`
	Found   int    `json:"found"`
	Added   int    `json:"added"`
}

// Collector resolves the articles of a protein and records them as pending work.
type Collector struct {
	fetcher ports.AbstractFetcher
	work    ports.WorkList
	logger  *slog.Logger
}

func NewCollector(fetcher ports.AbstractFetcher, work ports.WorkList, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{fetcher: fetcher, work: work, logger: logger.With("component", "collector")}
}

// Collect searches the index for protein and stores new identifiers as pending.
func (c *Collector) Collect(ctx context.Context, protein string) (CollectResult, error) {
	protein = strings.TrimSpace(protein)
	if protein == "" {
		return CollectResult{}, fmt.Errorf("protein name is required")
	}

	res, err := c.fetcher.SearchIDs(ctx, protein)
	if err != nil {
		return CollectResult{Protein: protein}, fmt.Errorf("search %s: %w", protein, err)
	}

	added, err := c.work.RecordArticles(ctx, protein, res.IDs)
	if err != nil {
		return CollectResult{Protein: protein, Found: len(res.IDs)}, fmt.Errorf("record articles: %w", err)
	}

	c.logger.Info("articles collected", "protein", protein, "count", res.Count, "found", len(res.IDs), "added", added)
	return CollectResult{Protein: protein, Found: len(res.IDs), Added: added}, nil
}

// PendingIDs lists up to limit identifiers still waiting for extraction.
func PendingIDs(ctx context.Context, work ports.WorkList, limit int) ([]string, error) {
	ids, err := work.ListArticleIDs(ctx, domain.ArticleFilter{Status: domain.StatusPending, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return ids, nil
}

// ExcludeProcessed drops ids already marked success.
func ExcludeProcessed(ctx context.Context, work ports.WorkList, ids []string) ([]string, error) {
	ids = domain.NormalizeIDs(ids)
	if len(ids) == 0 {
		return ids, nil
	}

	done, err := work.AlreadyProcessed(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load processed: %w", err)
	}

	out := ids[:0]
	for _, id := range ids {
		if !done[id] {
			out = append(out, id)
		}
	}
	return out, nil
}
