package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"MutationScanner/internal/domain"
)

type articleTx struct {
	tx  *sql.Tx
	sb  sq.StatementBuilderType
	now func() time.Time
}

// UpdateArticleStatus upserts the article row. A successful article is never
// moved back to pending.
func (t *articleTx) UpdateArticleStatus(ctx context.Context, id string, status domain.ArticleStatus) error {
	if !status.Valid() {
		return fmt.Errorf("update status %s: unknown status %q", id, status)
	}

	now := t.now()
	query, args, err := t.sb.Insert("articles").
		Columns("pmid", "status", "created_at", "updated_at").
		Values(id, string(status), now, now).
		Suffix("ON CONFLICT (pmid) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at WHERE articles.status <> ?",
			string(domain.StatusSuccess)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build status upsert: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update status %s: %w", id, err)
	}
	return nil
}

func (t *articleTx) UpdateArticleTitle(ctx context.Context, id, title string) error {
	query, args, err := t.sb.Update("articles").
		Set("title", title).
		Where(sq.Eq{"pmid": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build title update: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update title %s: %w", id, err)
	}
	return nil
}

// InsertMentions stores tokens for articleID; existing pairs are left untouched.
func (t *articleTx) InsertMentions(ctx context.Context, articleID string, tokens []string) error {
	tokens = domain.NormalizeIDs(tokens)
	if len(tokens) == 0 {
		return nil
	}

	now := t.now()
	insert := t.sb.Insert("mutations").Columns("article_pmid", "token", "created_at")
	for _, token := range tokens {
		insert = insert.Values(articleID, token, now)
	}

	query, args, err := insert.Suffix("ON CONFLICT (article_pmid, token) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build mentions insert: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert mentions %s: %w", articleID, err)
	}
	return nil
}

func (t *articleTx) Commit() error {
	return t.tx.Commit()
}

func (t *articleTx) Rollback() error {
	return t.tx.Rollback()
}
