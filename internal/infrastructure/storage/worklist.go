package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"MutationScanner/internal/domain"
)

// maxParams keeps IN lists and multi-row inserts below SQLite's variable limit.
const maxParams = 500

// ListArticleIDs returns article ids matching filter, oldest first.
func (s *Store) ListArticleIDs(ctx context.Context, filter domain.ArticleFilter) ([]string, error) {
	sel := s.sb.Select("pmid").From("articles").OrderBy("created_at", "pmid")
	if filter.Status != "" {
		sel = sel.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Protein != "" {
		sel = sel.Where(sq.Eq{"protein": filter.Protein})
	}
	if filter.Limit > 0 {
		sel = sel.Limit(uint64(filter.Limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

// AlreadyProcessed returns the subset of ids whose status is success.
func (s *Store) AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)

	for start := 0; start < len(ids); start += maxParams {
		end := min(start+maxParams, len(ids))

		query, args, err := s.sb.Select("pmid").From("articles").
			Where(sq.Eq{"pmid": ids[start:end]}).
			Where(sq.Eq{"status": string(domain.StatusSuccess)}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build processed query: %w", err)
		}

		if err := s.collectIDs(ctx, query, args, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *Store) collectIDs(ctx context.Context, query string, args []any, into map[string]bool) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan id: %w", err)
		}
		into[id] = true
	}
	return rows.Err()
}

// RecordArticles inserts ids as pending articles of protein and returns how
// many were new.
func (s *Store) RecordArticles(ctx context.Context, protein string, ids []string) (int, error) {
	ids = domain.NormalizeIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	// Five columns per row.
	step := maxParams / 5
	var added int64
	for start := 0; start < len(ids); start += step {
		end := min(start+step, len(ids))

		insert := s.sb.Insert("articles").Columns("pmid", "protein", "status", "created_at", "updated_at")
		for _, id := range ids[start:end] {
			insert = insert.Values(id, protein, string(domain.StatusPending), now, now)
		}
		query, args, err := insert.Suffix("ON CONFLICT (pmid) DO NOTHING").ToSql()
		if err != nil {
			return 0, fmt.Errorf("build record insert: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("record articles: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		added += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(added), nil
}

// GetArticle reads one article with its mutation tokens sorted.
func (s *Store) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	query, args, err := s.sb.Select("pmid", "protein", "title", "status", "created_at", "updated_at").
		From("articles").
		Where(sq.Eq{"pmid": id}).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build article query: %w", err)
	}

	var (
		article domain.Article
		status  string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&article.ID, &article.Protein, &article.Title, &status, &article.CreatedAt, &article.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("%w: %s", domain.ErrArticleNotFound, id)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("query article: %w", err)
	}
	article.Status = domain.ArticleStatus(status)

	query, args, err = s.sb.Select("token").From("mutations").
		Where(sq.Eq{"article_pmid": id}).
		OrderBy("token").
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build mutations query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Article{}, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	article.Mutations = []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return domain.Article{}, fmt.Errorf("scan token: %w", err)
		}
		article.Mutations = append(article.Mutations, token)
	}
	if err := rows.Err(); err != nil {
		return domain.Article{}, fmt.Errorf("rows iteration: %w", err)
	}

	return article, nil
}
