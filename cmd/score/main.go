package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"yt-transcripts-go/internal/aggregator"
	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/dataset"
	"yt-transcripts-go/internal/extractor"
	"yt-transcripts-go/internal/logger"
	"yt-transcripts-go/internal/openai"
	"yt-transcripts-go/internal/processor"
	"yt-transcripts-go/internal/store"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New().WithRun("score")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.WithError(err).Fatal("database not configured")
	}

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
	corpus, err := st.ScoringCorpus(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to load texts")
	}
	log.WithField("texts", len(corpus)).
		WithField("model", cfg.OpenAI.ScoreModel).
		WithField("batch_size", cfg.Scoring.BatchSize).
		Info("scoring corpus loaded")

	scorer := extractor.New(api, cfg.OpenAI, cfg.Scoring, log)
	res, err := processor.New(scorer, st, cfg.Scoring.BatchSize, log).Run(ctx, corpus)
	if err != nil {
		log.WithError(err).
			WithField("rows", len(res.Rows)).
			Fatal("scoring stopped")
	}

	days := aggregator.Daily(res.Rows)
	for _, d := range days {
		log.WithField("date", d.Date.Format("2006-01-02")).
			WithField("sentiment", d.SentimentAvg).
			WithField("fairness", d.FairnessAvg).
			WithField("n", d.N).
			Info("daily average")
	}

	if cfg.Scoring.ReportPath != "" {
		logChanges(log, cfg.Scoring.ReportPath, days)
		if err := dataset.WriteReport(cfg.Scoring.ReportPath, days, res.Rows); err != nil {
			log.WithError(err).Fatal("failed to write report")
		}
		log.WithField("path", cfg.Scoring.ReportPath).Info("report written")
	}
	log.WithField("rows", len(res.Rows)).
		WithField("batches", res.Batches).
		WithField("failed_batches", res.FailedBatches).
		WithField("duration_ms", res.DurationMs).
		Info("scoring complete")
}

// logChanges compares days against the report left by the previous run.
func logChanges(log *logger.Logger, path string, days []aggregator.DailyScore) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	prev, err := dataset.LoadDaily(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("previous report unreadable, not comparing")
		return
	}
	changes := aggregator.Changes(prev, days)
	for _, c := range changes {
		log.WithField("date", c.Date.Format("2006-01-02")).
			WithField("sentiment_delta", c.SentimentDelta).
			WithField("fairness_delta", c.FairnessDelta).
			WithField("n_delta", c.NDelta).
			WithField("added", c.Added).
			Info("daily change since previous report")
	}
	log.WithField("changed_days", len(changes)).Info("compared with previous report")
}
