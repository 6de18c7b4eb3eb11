// Package pipeline drives the download, transcribe and write sequence over a
// snapshot of pending videos, one at a time.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"yt-transcripts-go/internal/clock"
	"yt-transcripts-go/internal/failure"
	"yt-transcripts-go/internal/logger"
	"yt-transcripts-go/internal/types"
)

type Fetcher interface {
	Fetch(ctx context.Context, externalID, destBase string) (types.AudioArtifact, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, art types.AudioArtifact) (types.TranscriptResult, error)
}

type Writer interface {
	WriteTranscript(ctx context.Context, videoID, text string) error
}

// Config holds the pacing between items. Politeness applies after every
// item, Cooldown replaces it after a throttled failure.
type Config struct {
	ScratchDir    string
	PolitenessMin time.Duration
	PolitenessMax time.Duration
	CooldownMin   time.Duration
	CooldownMax   time.Duration
}

// Wait range after the source starts blocking us.
const (
	DefaultCooldownMin = 30 * time.Second
	DefaultCooldownMax = 60 * time.Second
)

// Summary counts what one Run did. Items that were never reached are in
// neither Succeeded nor Failed.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Halted    bool
}

type Driver struct {
	fetcher     Fetcher
	transcriber Transcriber
	writer      Writer
	cfg         Config
	sleep       clock.Sleeper
	rand        func() float64
	log         *logger.Logger
}

type Option func(*Driver)

func WithSleeper(s clock.Sleeper) Option { return func(d *Driver) { d.sleep = s } }

func WithRand(r func() float64) Option { return func(d *Driver) { d.rand = r } }

func New(f Fetcher, t Transcriber, w Writer, cfg Config, log *logger.Logger, opts ...Option) *Driver {
	if cfg.CooldownMax == 0 {
		cfg.CooldownMin, cfg.CooldownMax = DefaultCooldownMin, DefaultCooldownMax
	}
	d := &Driver{
		fetcher:     f,
		transcriber: t,
		writer:      w,
		cfg:         cfg,
		sleep:       clock.Sleep,
		rand:        clock.Float64,
		log:         log.Component("pipeline"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run processes items in order. A rejected credential stops the run before
// the next item and is returned; any other failure leaves the item pending and
// moves on. Cancelling ctx stops the run the same way.
func (d *Driver) Run(ctx context.Context, items []types.WorkItem) (Summary, error) {
	sum := Summary{Total: len(items)}
	if len(items) == 0 {
		d.log.Info("nothing to transcribe")
		return sum, nil
	}

	scratch, release, err := d.scratchDir()
	if err != nil {
		return sum, err
	}
	defer release()

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			sum.Halted = true
			return sum, err
		}
		log := d.log.WithField("index", i+1).WithField("total", len(items)).WithField("video_id", it.ExternalID)
		log.Info("processing video")

		start := time.Now()
		res, err := d.process(ctx, scratch, it)
		wait := clock.Uniform(d.rand, d.cfg.PolitenessMin, d.cfg.PolitenessMax)
		if err == nil {
			sum.Succeeded++
			log.WithField("chunks", res.Chunks).
				WithField("chars", len([]rune(res.Text))).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				Info("transcript saved")
		} else {
			sum.Failed++
			if ctx.Err() != nil {
				sum.Halted = true
				return sum, ctx.Err()
			}
			switch failure.Classify(err) {
			case failure.Fatal:
				sum.Halted = true
				log.WithError(err).Error("credential rejected, halting run")
				return sum, fmt.Errorf("halted at item %d of %d: %w", i+1, len(items), err)
			case failure.Throttled:
				wait = clock.Uniform(d.rand, d.cfg.CooldownMin, d.cfg.CooldownMax)
				log.WithError(err).WithField("cooldown", wait.Round(time.Second).String()).Warn("source is throttling, cooling down")
			default:
				log.WithError(err).Warn("video skipped, left pending")
			}
		}

		if i == len(items)-1 {
			break
		}
		if err := d.sleep(ctx, wait); err != nil {
			sum.Halted = true
			return sum, err
		}
	}

	d.log.WithField("succeeded", sum.Succeeded).WithField("failed", sum.Failed).Info("run finished")
	return sum, nil
}

func (d *Driver) process(ctx context.Context, scratch string, it types.WorkItem) (types.TranscriptResult, error) {
	base := filepath.Join(scratch, safeName(it.ExternalID))
	defer cleanup(base)

	art, err := d.fetcher.Fetch(ctx, it.ExternalID, base)
	if err != nil {
		return types.TranscriptResult{}, err
	}
	res, err := d.transcriber.Transcribe(ctx, art)
	if err != nil {
		return types.TranscriptResult{}, fmt.Errorf("transcribe %s: %w", it.ExternalID, err)
	}
	if err := d.writer.WriteTranscript(ctx, it.ExternalID, res.Text); err != nil {
		return types.TranscriptResult{}, err
	}
	return res, nil
}

func (d *Driver) scratchDir() (string, func(), error) {
	if d.cfg.ScratchDir != "" {
		if err := os.MkdirAll(d.cfg.ScratchDir, 0o755); err != nil {
			return "", nil, fmt.Errorf("scratch dir: %w", err)
		}
		return d.cfg.ScratchDir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "yt-transcripts-*")
	if err != nil {
		return "", nil, fmt.Errorf("scratch dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// cleanup removes the artifact, its chunks and any partial download for base.
// Names are matched by prefix so the scratch path is never read as a pattern.
func cleanup(base string) {
	dir, name := filepath.Split(base)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		n := e.Name()
		if strings.HasPrefix(n, name+".") || strings.HasPrefix(n, name+"_chunk_") {
			_ = os.Remove(filepath.Join(dir, n))
		}
	}
}

func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
