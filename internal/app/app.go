// Package app assembles the HTTP surface and the ingestion consumers.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"doublespeak/features/check"
	"doublespeak/features/media"
	"doublespeak/features/source"
	"doublespeak/features/stats"
	"doublespeak/internal/clipper"
	"doublespeak/internal/config"
	"doublespeak/internal/corpus"
	"doublespeak/internal/middleware"
	"doublespeak/internal/retrieval"
	"doublespeak/internal/transcribe"
	"doublespeak/internal/worker"
)

type App struct {
	Handler         http.Handler
	SourceService   *source.Service
	SegmentConsumer *worker.SegmentConsumer
	ScrapeConsumer  *worker.ScrapeConsumer

	port int
}

func New(
	cfg *config.Config,
	repo *corpus.PostgresRepo,
	embedder retrieval.Embedder,
	scorer retrieval.Scorer,
	taskPub worker.Publisher,
) (*App, error) {
	// Feature: Source
	sourceService := source.NewService(repo, taskPub)
	sourceHandler := source.NewHandler(sourceService, cfg.UploadDir)

	// Feature: Stats
	statsHandler := stats.NewHandler(repo)

	// Feature: Check
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	ranker := retrieval.NewRanker(repo, embedder, scorer, cfg.CandidateLimit, queryLogger)
	checkHandler := check.NewHandler(ranker, cfg.DefaultTopK)

	// Feature: Media
	clipService := clipper.NewService(cfg.FFmpegBinary, cfg.FFprobeBinary, cfg.ClipDir)
	transcribeService := transcribe.NewService(cfg.WhisperXBinary, "", cfg.TranscriptDir)
	mediaHandler := media.NewHandler(clipService, transcribeService)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /check", middleware.CorrelationID(enableCORS(checkHandler.Check)))

	mux.Handle("POST /sources", middleware.CorrelationID(enableCORS(sourceHandler.Create)))
	mux.Handle("POST /sources/upload", middleware.CorrelationID(enableCORS(sourceHandler.Upload)))
	mux.Handle("GET /sources", middleware.CorrelationID(enableCORS(sourceHandler.List)))
	mux.Handle("GET /sources/{id}", middleware.CorrelationID(enableCORS(sourceHandler.Get)))
	mux.Handle("DELETE /sources/{id}", middleware.CorrelationID(enableCORS(sourceHandler.Delete)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.Get)))

	mux.Handle("POST /clips", middleware.CorrelationID(enableCORS(mediaHandler.ExtractClips)))
	mux.Handle("POST /transcribe", middleware.CorrelationID(enableCORS(mediaHandler.Transcribe)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Workers
	segmentConsumer := worker.NewSegmentConsumer(embedder, repo)
	scrapeConsumer := worker.NewScrapeConsumer(repo, repo, taskPub)

	return &App{
		Handler:         mux,
		SourceService:   sourceService,
		SegmentConsumer: segmentConsumer,
		ScrapeConsumer:  scrapeConsumer,
		port:            cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
