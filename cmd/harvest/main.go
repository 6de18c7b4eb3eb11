package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/harvest"
	"yt-transcripts-go/internal/logger"
	"yt-transcripts-go/internal/store"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New().WithRun("harvest")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.WithError(err).Fatal("database not configured")
	}

	src, err := harvest.NewYouTubeSource(ctx, cfg.Harvest.YouTubeAPIKey)
	if err != nil {
		log.WithError(err).Fatal("failed to build YouTube client")
	}
	st, err := store.New(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	if err := st.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("failed to prepare schema")
	}

	h := harvest.New(src, harvest.NewCaptionClient(), st, cfg.Harvest, cfg.StartDate, cfg.EndDate, log)
	sum, err := h.Run(ctx)
	if err != nil {
		log.WithError(err).Fatal("harvest failed")
	}
	log.WithField("listed", sum.Listed).
		WithField("in_range", sum.InRange).
		WithField("inserted", sum.Inserted).
		WithField("existing", sum.Existing).
		WithField("with_transcript", sum.WithTranscript).
		Info("harvest complete")
}
