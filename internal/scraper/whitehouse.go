package scraper

import (
	"context"
	"fmt"
	"time"
)

const whiteHouseFeedURL = "https://www.whitehouse.gov/briefing-room/statements-releases/feed/"

// WhiteHouseProvider pulls statements and briefings from the White House
// RSS feed.
type WhiteHouseProvider struct {
	fetcher *Fetcher
	feedURL string
}

func NewWhiteHouseProvider(fetcher *Fetcher) *WhiteHouseProvider {
	return &WhiteHouseProvider{fetcher: fetcher, feedURL: whiteHouseFeedURL}
}

func (p *WhiteHouseProvider) Slug() string { return "whitehouse" }

func (p *WhiteHouseProvider) Fetch(ctx context.Context, since *time.Time, limit int) ([]Item, error) {
	body, err := p.fetcher.Get(ctx, p.feedURL)
	if err != nil {
		return nil, fmt.Errorf("whitehouse feed: %w", err)
	}
	items, err := parseFeed(body, "White House")
	if err != nil {
		return nil, fmt.Errorf("whitehouse feed: %w", err)
	}
	return filterItems(items, since, limit), nil
}
