// Command scrape runs the configured providers once and publishes each
// collected item on the scrape.result topic. Meant to be invoked from
// cron or by hand.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"doublespeak/internal/config"
	"doublespeak/internal/logger"
	"doublespeak/internal/scraper"
	"doublespeak/internal/worker"
)

func main() {
	slogger := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(slogger)

	providersFlag := flag.String("providers", "govuk,whitehouse", "comma-separated provider slugs")
	channelsFlag := flag.String("youtube-channels", "", "comma-separated channel URLs for the youtube provider")
	sinceFlag := flag.String("since", "", "only keep items published after this date (YYYY-MM-DD)")
	limitFlag := flag.Int("limit", 0, "max items per provider, 0 for no limit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var since *time.Time
	if *sinceFlag != "" {
		t, err := time.Parse("2006-01-02", *sinceFlag)
		if err != nil {
			slog.Error("invalid -since value", "error", err)
			os.Exit(1)
		}
		since = &t
	}

	producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
	if err != nil {
		slog.Error("nsq producer error", "error", err)
		os.Exit(1)
	}
	defer producer.Stop()

	fetcher := scraper.NewFetcher(cfg.ScraperUserAgent, cfg.ScraperRPS,
		cfg.ScraperBurst, time.Duration(cfg.ScraperCacheTTL)*time.Second)

	providers := map[string]scraper.Provider{
		"govuk":      scraper.NewGovUKProvider(fetcher),
		"whitehouse": scraper.NewWhiteHouseProvider(fetcher),
		"youtube":    scraper.NewYouTubeProvider("", splitList(*channelsFlag)),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.New().String()
	total := 0
	for _, slug := range splitList(*providersFlag) {
		provider, ok := providers[slug]
		if !ok {
			slog.Warn("unknown provider, skipping", "slug", slug)
			continue
		}
		items, err := provider.Fetch(ctx, since, *limitFlag)
		if err != nil {
			slog.Error("provider fetch failed", "provider", slug, "error", err)
			continue
		}
		for _, item := range items {
			payload := worker.ScrapeResultPayload{
				Provider:      slug,
				ItemID:        item.ID,
				URL:           item.URL,
				Title:         item.Title,
				Text:          item.Text,
				SourceName:    item.SourceName,
				PublishedAt:   item.PublishedAt,
				Author:        item.Author,
				Extra:         item.Extra,
				CorrelationID: runID,
			}
			body, err := json.Marshal(payload)
			if err != nil {
				slog.Error("marshal scrape payload failed", "error", err)
				continue
			}
			if err := producer.Publish(config.TopicScrapeResult, body); err != nil {
				slog.Error("publish scrape result failed", "error", err, "url", item.URL)
				continue
			}
			total++
		}
		slog.Info("provider run complete", "provider", slug, "items", len(items))
	}

	slog.Info("scrape run complete", "published", total, "run_id", runID)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
