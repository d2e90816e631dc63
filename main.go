package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"doublespeak/internal/app"
	"doublespeak/internal/config"
	"doublespeak/internal/corpus"
	"doublespeak/internal/embed"
	"doublespeak/internal/logger"
	"doublespeak/internal/nli"
)

func main() {
	slogger := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(slogger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()
	slog.Info("migrations applied successfully")

	repo := corpus.NewPostgresRepo(deps.DB, cfg.EmbedDim)

	embedder, err := embed.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	defer embedder.Close()

	backend, err := nli.SelectBackend(nli.Options{
		BundleDir:     cfg.NLIBundleDir,
		RuntimeURL:    cfg.NLIRuntimeURL,
		Model:         cfg.NLIModel,
		InferenceURL:  cfg.NLIInferenceURL,
		APIKey:        cfg.NLIAPIKey,
		PreferBundled: cfg.NLIPreferBundled,
	})
	if err != nil {
		slog.Error("failed to select nli backend", "error", err)
		os.Exit(1)
	}
	scorer, err := nli.NewScorer(backend)
	if err != nil {
		slog.Error("failed to create scorer", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, repo, embedder, scorer, deps.NSQProducer)
	if err != nil {
		slog.Error("failed to assemble app", "error", err)
		os.Exit(1)
	}

	if cfg.EnableIngestWorkers {
		if err := startConsumers(cfg, application); err != nil {
			slog.Error("failed to start consumers", "error", err)
			os.Exit(1)
		}
	}

	if cfg.EnableAPI {
		if err := application.Run(ctx); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Worker-only mode: block until a shutdown signal arrives.
	<-ctx.Done()
}

func startConsumers(cfg *config.Config, application *app.App) error {
	nsqCfg := nsq.NewConfig()

	segmentConsumer, err := nsq.NewConsumer(config.TopicIngestSegment, "backend", nsqCfg)
	if err != nil {
		return err
	}
	segmentConsumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		return application.SegmentConsumer.HandleMessage(m)
	}))
	if err := segmentConsumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		return err
	}
	slog.Info("NSQ segment consumer connected", "topic", config.TopicIngestSegment)

	scrapeConsumer, err := nsq.NewConsumer(config.TopicScrapeResult, "backend", nsqCfg)
	if err != nil {
		return err
	}
	scrapeConsumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		return application.ScrapeConsumer.HandleMessage(m)
	}))
	if err := scrapeConsumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		return err
	}
	slog.Info("NSQ scrape consumer connected", "topic", config.TopicScrapeResult)
	return nil
}
