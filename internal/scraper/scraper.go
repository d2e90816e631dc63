// Package scraper collects public statements from configured providers.
package scraper

import (
	"context"
	"time"
)

// Item is one scraped document before it enters the corpus.
type Item struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Text        string            `json:"text"`
	SourceName  string            `json:"source_name"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	Author      string            `json:"author,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Provider fetches items from one upstream. Implementations return the
// items they could collect; partial results with a nil error are fine
// when individual entries fail.
type Provider interface {
	Slug() string
	Fetch(ctx context.Context, since *time.Time, limit int) ([]Item, error)
}
