package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"MutationScanner/internal/domain"
	"MutationScanner/internal/ports"
)

// PubmedParser sanitizes and parses efetch XML into article records.
type PubmedParser struct {
	sanitizer *Sanitizer
}

var _ ports.DocumentParser = (*PubmedParser)(nil)

// NewPubmedParser wires the sanitizer; a nil sanitizer uses the default entity table.
func NewPubmedParser(sanitizer *Sanitizer) *PubmedParser {
	if sanitizer == nil {
		sanitizer = NewSanitizer(nil)
	}
	return &PubmedParser{sanitizer: sanitizer}
}

// Parse sanitizes raw and returns the records it contains in document order.
// Malformed markup fails the whole document; a record without a numeric
// identifier is rejected on its own.
func (p *PubmedParser) Parse(raw []byte) ([]domain.ArticleRecord, []domain.RejectedRecord, error) {
	clean := p.sanitizer.Sanitize(raw)

	if err := checkWellFormed(clean); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed document: %w", domain.ErrParseFailure, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(clean))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrParseFailure, err)
	}

	var (
		records  []domain.ArticleRecord
		rejected []domain.RejectedRecord
	)
	doc.Find("pubmedarticle").Each(func(i int, article *goquery.Selection) {
		record, reason := parseArticle(article)
		if reason != "" {
			rejected = append(rejected, domain.RejectedRecord{Position: i, Reason: reason})
			return
		}
		records = append(records, record)
	})

	return records, rejected, nil
}

func parseArticle(article *goquery.Selection) (domain.ArticleRecord, string) {
	citation := article.Find("medlinecitation").First()

	id := strings.TrimSpace(citation.ChildrenFiltered("pmid").First().Text())
	if id == "" {
		id = strings.TrimSpace(article.Find("pmid").First().Text())
	}
	if id == "" {
		return domain.ArticleRecord{}, "missing identifier"
	}
	if !domain.IsNumericID(id) {
		return domain.ArticleRecord{}, fmt.Sprintf("non-numeric identifier %q", id)
	}

	var sections []string
	article.Find("abstract > abstracttext").Each(func(_ int, s *goquery.Selection) {
		if text := collapseSpace(s.Text()); text != "" {
			sections = append(sections, text)
		}
	})

	return domain.ArticleRecord{
		ID:       id,
		Title:    collapseSpace(article.Find("articletitle").First().Text()),
		Abstract: strings.Join(sections, " "),
	}, ""
}

// checkWellFormed walks every token with a strict decoder.
func checkWellFormed(doc []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = true
	var depth, roots int
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	if roots == 0 {
		return errors.New("no root element")
	}
	return nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
