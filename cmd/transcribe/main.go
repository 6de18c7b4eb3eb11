package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"yt-transcripts-go/internal/chunker"
	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/failure"
	"yt-transcripts-go/internal/fetcher"
	"yt-transcripts-go/internal/logger"
	"yt-transcripts-go/internal/openai"
	"yt-transcripts-go/internal/pipeline"
	"yt-transcripts-go/internal/store"
	"yt-transcripts-go/internal/transcription"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New().WithRun("transcribe")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.WithError(err).Fatal("database not configured")
	}

	if err := openai.CheckKeyFormat(cfg.OpenAI.APIKey); err != nil {
		log.WithError(err).Fatal("unusable API key")
	}
	if openai.NeedsProject(cfg.OpenAI.APIKey, cfg.OpenAI.ProjectID) {
		log.Warn("project-scoped key without OPENAI_PROJECT_ID; requests may be rejected")
	}
	log.WithField("api_key", openai.MaskKey(cfg.OpenAI.APIKey)).
		WithField("model", cfg.OpenAI.TranscribeModel).
		Info("starting transcription run")

	api, err := openai.Connect(ctx, cfg.OpenAI)
	if err != nil {
		log.WithError(err).Fatal("credential check failed")
	}

	st, err := store.New(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	if err := st.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("failed to prepare schema")
	}
	items, err := st.ListPending(ctx, store.Filter{
		StartDate:  cfg.StartDate,
		EndDate:    cfg.EndDate,
		ResumeFrom: cfg.StartIndex,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to list pending videos")
	}
	log.WithField("pending", len(items)).WithField("dialect", st.Dialect().String()).Info("work list loaded")

	f := fetcher.New(fetcher.NewYtDlpSource(cfg.Fetch, nil), cfg.Fetch, log)
	t := transcription.New(transcription.NewWhisperClient(api, cfg.OpenAI), chunker.New(nil), log)
	d := pipeline.New(f, t, st, pipeline.Config{
		ScratchDir:    cfg.ScratchDir,
		PolitenessMin: cfg.Fetch.SleepMin,
		PolitenessMax: cfg.Fetch.SleepMax,
	}, log)

	sum, err := d.Run(ctx, items)
	entry := log.WithField("total", sum.Total).
		WithField("succeeded", sum.Succeeded).
		WithField("failed", sum.Failed)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			entry.Warn("run interrupted")
			os.Exit(130)
		}
		if failure.IsAuth(err) {
			entry.WithField("error", err.Error()).Error("run halted: credential rejected")
		} else {
			entry.WithField("error", err.Error()).Error("run halted")
		}
		os.Exit(1)
	}
	entry.Info("transcription run complete")
}
