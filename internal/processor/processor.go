// Package processor runs the scoring pass: it maps the text corpus through the
// scorer in fixed-size batches and stores every score as it goes.
package processor

import (
	"context"
	"fmt"
	"time"

	"yt-transcripts-go/internal/failure"
	"yt-transcripts-go/internal/logger"
	"yt-transcripts-go/internal/types"
)

type BatchScorer interface {
	ScoreBatch(ctx context.Context, texts []string) ([]types.Score, error)
}

type ScoreSink interface {
	InsertScores(ctx context.Context, rows []types.ScoreRow) error
}

// Result is what one scoring pass produced.
type Result struct {
	Rows          []types.ScoreRow `json:"rows"`
	Batches       int              `json:"batches"`
	FailedBatches int              `json:"failed_batches"`
	DurationMs    int64            `json:"duration_ms"`
}

type Processor struct {
	scorer    BatchScorer
	sink      ScoreSink
	batchSize int
	log       *logger.Logger
}

func New(scorer BatchScorer, sink ScoreSink, batchSize int, log *logger.Logger) *Processor {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Processor{scorer: scorer, sink: sink, batchSize: batchSize, log: log.Component("processor")}
}

// Run scores corpus batch by batch. Malformed replies already come back as
// default scores and are stored like any other. A request that fails outright
// skips its batch; a rejected credential or a storage error ends the pass.
func (p *Processor) Run(ctx context.Context, corpus []types.DatedText) (Result, error) {
	start := time.Now()
	res := Result{}
	total := (len(corpus) + p.batchSize - 1) / p.batchSize

	for lo := 0; lo < len(corpus); lo += p.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		hi := min(lo+p.batchSize, len(corpus))
		batch := corpus[lo:hi]
		res.Batches++
		log := p.log.WithField("batch", res.Batches).WithField("total", total)

		texts := make([]string, len(batch))
		for i, dt := range batch {
			texts[i] = dt.Text
		}

		scores, err := p.scorer.ScoreBatch(ctx, texts)
		if err != nil {
			if failure.IsAuth(err) || ctx.Err() != nil {
				res.DurationMs = time.Since(start).Milliseconds()
				return res, fmt.Errorf("scoring batch %d: %w", res.Batches, err)
			}
			res.FailedBatches++
			log.WithError(err).Warn("scoring request failed, batch skipped")
			continue
		}

		rows := make([]types.ScoreRow, len(batch))
		for i, dt := range batch {
			rows[i] = types.ScoreRow{DatedText: dt, Score: scores[i]}
		}
		if err := p.sink.InsertScores(ctx, rows); err != nil {
			res.DurationMs = time.Since(start).Milliseconds()
			return res, fmt.Errorf("store batch %d: %w", res.Batches, err)
		}
		res.Rows = append(res.Rows, rows...)
		log.WithField("texts", len(batch)).Debug("batch scored")
	}

	res.DurationMs = time.Since(start).Milliseconds()
	p.log.WithField("scored", len(res.Rows)).WithField("failed_batches", res.FailedBatches).Info("scoring pass finished")
	return res, nil
}
