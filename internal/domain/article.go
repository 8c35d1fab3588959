package domain

import (
	"strings"
	"time"
)

// ArticleStatus is the persisted extraction flag of an article.
type ArticleStatus string

const (
	StatusPending ArticleStatus = "pending"
	StatusSuccess ArticleStatus = "success"
)

// Valid reports whether s is a known status.
func (s ArticleStatus) Valid() bool {
	return s == StatusPending || s == StatusSuccess
}

// WorkItem is an article identifier waiting for mutation extraction.
type WorkItem struct {
	ID string
}

// ArticleRecord is one parsed article from a fetched document.
type ArticleRecord struct {
	ID       string
	Title    string
	Abstract string
}

// RejectedRecord is a document element that could not become an ArticleRecord.
type RejectedRecord struct {
	Position int
	Reason   string
}

// MutationMention ties a mutation token to the article it was found in.
type MutationMention struct {
	ArticleID string
	Token     string
}

// Article is the persisted view of an article with its extracted mentions.
type Article struct {
	ID        string        `json:"pmid"`
	Protein   string        `json:"protein,omitempty"`
	Title     string        `json:"title,omitempty"`
	Status    ArticleStatus `json:"status"`
	Mutations []string      `json:"mutations"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ArticleFilter narrows the work list.
type ArticleFilter struct {
	Status  ArticleStatus
	Protein string
	Limit   int
}

// NormalizeIDs trims identifiers, drops empty ones and removes duplicates
// while keeping first-seen order.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// IsNumericID reports whether id is a non-empty string of ASCII digits.
func IsNumericID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}
