package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"MutationScanner/internal/ports"
)

// Store persists article statuses and mutation mentions in SQLite or Postgres.
type Store struct {
	db      *sql.DB
	dialect string
	sb      sq.StatementBuilderType
	now     func() time.Time
}

var (
	_ ports.MutationStore = (*Store)(nil)
	_ ports.WorkList      = (*Store)(nil)
	_ ports.ArticleReader = (*Store)(nil)
)

// New wraps db and brings its schema up to date.
func New(ctx context.Context, db *sql.DB, dialect string) (*Store, error) {
	s := &Store{
		db:      db,
		dialect: dialect,
		sb:      builder(dialect),
		now:     func() time.Time { return time.Now().UTC() },
	}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func builder(dialect string) sq.StatementBuilderType {
	if dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// SchemaVersion returns the applied migration count.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	version, err := s.SchemaVersion(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// Index i migrates from version i to i+1.
	migrations := [][]string{
		{
			`CREATE TABLE IF NOT EXISTS articles (
				pmid       TEXT PRIMARY KEY,
				protein    TEXT NOT NULL DEFAULT '',
				title      TEXT NOT NULL DEFAULT '',
				status     TEXT NOT NULL DEFAULT 'pending',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS mutations (
				article_pmid TEXT NOT NULL REFERENCES articles(pmid),
				token        TEXT NOT NULL,
				created_at   TIMESTAMP NOT NULL,
				PRIMARY KEY (article_pmid, token)
			)`,
		},
		{
			`CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status)`,
			`CREATE INDEX IF NOT EXISTS idx_articles_protein ON articles(protein)`,
			`CREATE INDEX IF NOT EXISTS idx_mutations_token ON mutations(token)`,
		},
	}

	for i := version; i < len(migrations); i++ {
		for _, stmt := range migrations[i] {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration v%d->v%d: %w", i, i+1, err)
			}
		}
		query, args, err := s.sb.Update("schema_version").Set("version", i+1).ToSql()
		if err != nil {
			return fmt.Errorf("build schema version update: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// Begin opens one per-article transaction.
func (s *Store) Begin(ctx context.Context) (ports.ArticleTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &articleTx{tx: tx, sb: s.sb, now: s.now}, nil
}
