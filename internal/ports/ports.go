package ports

import (
	"context"
	"time"

	"MutationScanner/internal/domain"
)

// SearchResult is the answer of an identifier-list search.
type SearchResult struct {
	Count int
	IDs   []string
}

// AbstractFetcher retrieves raw bibliographic documents from the external index.
type AbstractFetcher interface {
	Search(ctx context.Context, query string) (SearchResult, error)
	SearchIDs(ctx context.Context, query string) (SearchResult, error)
	Fetch(ctx context.Context, ids []string) ([]byte, error)
}

// DocumentParser turns a raw fetched document into article records.
type DocumentParser interface {
	Parse(raw []byte) ([]domain.ArticleRecord, []domain.RejectedRecord, error)
}

// MutationExtractor finds distinct mutation tokens in abstract text.
type MutationExtractor interface {
	Extract(text string) []string
}

// ArticleTx is one per-article transaction scope.
type ArticleTx interface {
	UpdateArticleStatus(ctx context.Context, id string, status domain.ArticleStatus) error
	UpdateArticleTitle(ctx context.Context, id, title string) error
	InsertMentions(ctx context.Context, articleID string, tokens []string) error
	Commit() error
	Rollback() error
}

// MutationStore opens per-article transactions.
type MutationStore interface {
	Begin(ctx context.Context) (ArticleTx, error)
}

// WorkList is the source of pending article identifiers.
type WorkList interface {
	ListArticleIDs(ctx context.Context, filter domain.ArticleFilter) ([]string, error)
	AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error)
	RecordArticles(ctx context.Context, protein string, ids []string) (int, error)
}

// ArticleReader reads back persisted extraction results.
type ArticleReader interface {
	GetArticle(ctx context.Context, id string) (domain.Article, error)
}

// Locker hands out mutual-exclusion tokens. Acquire takes every key or none.
type Locker interface {
	Acquire(ctx context.Context, keys []string, ttl time.Duration) (release func(context.Context) error, err error)
}

// Reporter publishes batch summaries to Telegram or other channels.
type Reporter interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler controls when recurring batches execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
