package scraper

import (
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// YouTubeProvider lists recent uploads for configured channels using
// yt-dlp in flat-playlist mode. Video descriptions stand in for
// transcripts; full transcription happens downstream.
type YouTubeProvider struct {
	binary   string
	channels []string
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewYouTubeProvider(binary string, channels []string) *YouTubeProvider {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YouTubeProvider{
		binary:   binary,
		channels: channels,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (p *YouTubeProvider) Slug() string { return "youtube" }

type ytVideo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	WebpageURL  string `json:"webpage_url"`
	Channel     string `json:"channel"`
	UploadDate  string `json:"upload_date"`
}

func (p *YouTubeProvider) Fetch(ctx context.Context, since *time.Time, limit int) ([]Item, error) {
	if len(p.channels) == 0 {
		slog.InfoContext(ctx, "no youtube channels configured, skipping")
		return nil, nil
	}

	var items []Item
	for _, channel := range p.channels {
		out, err := p.run(ctx, p.binary,
			"--flat-playlist", "--skip-download", "--dump-json", channel)
		if err != nil {
			slog.WarnContext(ctx, "youtube channel fetch failed",
				slog.String("channel", channel), slog.Any("error", err))
			continue
		}
		for _, line := range strings.Split(string(out), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var v ytVideo
			if err := json.Unmarshal([]byte(line), &v); err != nil {
				continue
			}
			videoURL := firstNonEmpty(v.WebpageURL, v.URL)
			if videoURL == "" {
				continue
			}
			published := parseUploadDate(v.UploadDate)
			if since != nil && published != nil && published.Before(*since) {
				continue
			}
			items = append(items, Item{
				ID:          firstNonEmpty(v.ID, videoURL),
				URL:         videoURL,
				Title:       firstNonEmpty(v.Title, "Untitled"),
				Text:        strings.TrimSpace(firstNonEmpty(v.Description, v.Title)),
				SourceName:  firstNonEmpty(v.Channel, "YouTube"),
				PublishedAt: published,
				Extra:       map[string]string{"channel_url": channel},
			})
			if limit > 0 && len(items) >= limit {
				return items, nil
			}
		}
	}
	return items, nil
}

func parseUploadDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("20060102", value)
	if err != nil {
		return nil
	}
	return &t
}
