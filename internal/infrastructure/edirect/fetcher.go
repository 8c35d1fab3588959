package edirect

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"MutationScanner/internal/config"
	"MutationScanner/internal/domain"
	"MutationScanner/internal/ports"
)

// Fetcher drives the EDirect esearch/efetch tools against one Entrez database.
type Fetcher struct {
	runner   Runner
	esearch  string
	efetch   string
	database string
	timeout  time.Duration
}

var _ ports.AbstractFetcher = (*Fetcher)(nil)

// NewFetcher builds a fetcher from retrieval settings.
func NewFetcher(runner Runner, cfg config.RetrievalConfig) *Fetcher {
	return &Fetcher{
		runner:   runner,
		esearch:  toolPath(cfg.EDirectPath, cfg.ESearch, "esearch"),
		efetch:   toolPath(cfg.EDirectPath, cfg.EFetch, "efetch"),
		database: cfg.Database,
		timeout:  cfg.Timeout,
	}
}

// Search runs an identifier-list search and returns the total count.
func (f *Fetcher) Search(ctx context.Context, query string) (ports.SearchResult, error) {
	_, result, err := f.search(ctx, query)
	return result, err
}

// SearchIDs runs a search and resolves the matching identifiers.
func (f *Fetcher) SearchIDs(ctx context.Context, query string) (ports.SearchResult, error) {
	raw, result, err := f.search(ctx, query)
	if err != nil || result.Count == 0 {
		return result, err
	}

	out, err := f.run(ctx, Command{
		Name:  f.efetch,
		Args:  []string{"-format", "uid"},
		Stdin: raw,
	})
	if err != nil {
		return result, fmt.Errorf("%w: resolve ids: %w", domain.ErrFetchFailure, err)
	}

	result.IDs = parseUIDs(out)
	return result, nil
}

// Fetch retrieves the full XML records for ids in one invocation.
func (f *Fetcher) Fetch(ctx context.Context, ids []string) ([]byte, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no identifiers", domain.ErrFetchFailure)
	}

	out, err := f.run(ctx, Command{
		Name: f.efetch,
		Args: []string{"-db", f.database, "-id", strings.Join(ids, ","), "-format", "xml"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
	}
	return out, nil
}

func (f *Fetcher) search(ctx context.Context, query string) ([]byte, ports.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ports.SearchResult{}, fmt.Errorf("%w: empty query", domain.ErrFetchFailure)
	}

	raw, err := f.run(ctx, Command{
		Name: f.esearch,
		Args: []string{"-db", f.database, "-query", query},
	})
	if err != nil {
		return nil, ports.SearchResult{}, fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
	}

	count, err := parseCount(raw)
	if err != nil {
		return nil, ports.SearchResult{}, fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
	}
	return raw, ports.SearchResult{Count: count}, nil
}

func (f *Fetcher) run(ctx context.Context, cmd Command) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	return f.runner.Run(ctx, cmd)
}

// parseCount reads <Count> from an ENTREZ_DIRECT search document.
func parseCount(raw []byte) (int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("parse search document: %w", err)
	}

	text := strings.TrimSpace(doc.Find("entrez_direct > count").First().Text())
	if text == "" {
		text = strings.TrimSpace(doc.Find("count").First().Text())
	}
	if text == "" {
		return 0, fmt.Errorf("search document has no count")
	}

	count, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", text, err)
	}
	return count, nil
}

func parseUIDs(raw []byte) []string {
	var ids []string
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if domain.IsNumericID(line) {
			ids = append(ids, line)
		}
	}
	return domain.NormalizeIDs(ids)
}

func toolPath(dir, override, name string) string {
	if override != "" {
		name = override
	}
	if dir == "" || filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(dir, name)
}
