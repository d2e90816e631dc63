package scraper

import (
	"context"
	"fmt"
	"time"
)

const govUKFeedURL = "https://www.gov.uk/government/speeches.atom"

// GovUKProvider pulls ministerial speeches from the GOV.UK Atom feed.
type GovUKProvider struct {
	fetcher *Fetcher
	feedURL string
}

func NewGovUKProvider(fetcher *Fetcher) *GovUKProvider {
	return &GovUKProvider{fetcher: fetcher, feedURL: govUKFeedURL}
}

func (p *GovUKProvider) Slug() string { return "govuk" }

func (p *GovUKProvider) Fetch(ctx context.Context, since *time.Time, limit int) ([]Item, error) {
	body, err := p.fetcher.Get(ctx, p.feedURL)
	if err != nil {
		return nil, fmt.Errorf("govuk feed: %w", err)
	}
	items, err := parseFeed(body, "GOV.UK")
	if err != nil {
		return nil, fmt.Errorf("govuk feed: %w", err)
	}
	return filterItems(items, since, limit), nil
}

// filterItems applies the shared since/limit semantics: entries older
// than since are skipped, undated entries are kept.
func filterItems(items []Item, since *time.Time, limit int) []Item {
	var out []Item
	for _, it := range items {
		if since != nil && it.PublishedAt != nil && it.PublishedAt.Before(*since) {
			continue
		}
		if it.Text == "" || it.URL == "" {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
