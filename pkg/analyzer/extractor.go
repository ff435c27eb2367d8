// Package analyzer turns downloaded page bytes into structured features:
// language, extracted main text, keywords, content-type classification and
// a quality score.
package analyzer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Extraction is the raw output of the extraction collaborator.
type Extraction struct {
	Text        string
	Title       string
	PublishedAt string // ISO-8601 date when the page exposes one
}

// Extractor is the extraction/NLP collaborator boundary.
type Extractor interface {
	Extract(rawURL string, html []byte) (Extraction, error)
}

// ReadabilityExtractor extracts the main article content with
// go-readability, falling back to a bare goquery text dump when
// readability finds nothing usable.
type ReadabilityExtractor struct{}

// Extract pulls the main text and any discoverable publish date.
func (ReadabilityExtractor) Extract(rawURL string, html []byte) (Extraction, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Extraction{}, err
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(string(html)), parsedURL)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return fallbackExtract(html)
	}

	ex := Extraction{
		Text:  normalizeText(article.TextContent),
		Title: strings.TrimSpace(article.Title),
	}
	if article.PublishedTime != nil {
		ex.PublishedAt = article.PublishedTime.Format("2006-01-02")
	} else if article.ModifiedTime != nil {
		ex.PublishedAt = article.ModifiedTime.Format("2006-01-02")
	}
	return ex, nil
}

// fallbackExtract strips boilerplate tags and returns the remaining text.
func fallbackExtract(html []byte) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return Extraction{}, err
	}
	doc.Find("script,style,nav,footer,header,noscript").Remove()
	return Extraction{
		Text:  normalizeText(doc.Find("body").Text()),
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}, nil
}

// normalizeText collapses runs of whitespace into single spaces.
func normalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
