// Package fetcher downloads one video's audio track with bounded retries.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"yt-transcripts-go/internal/clock"
	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/failure"
	"yt-transcripts-go/internal/logger"
	"yt-transcripts-go/internal/types"
)

// AudioSource retrieves the audio for externalID and writes it next to
// destBase, returning the path of the produced file.
type AudioSource interface {
	Download(ctx context.Context, externalID, destBase string) (string, error)
}

// FetchError is returned once every attempt for a video has failed.
type FetchError struct {
	VideoID  string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.VideoID, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MaxDelay caps a single backoff wait.
const MaxDelay = time.Hour

// Delay is the wait after failed attempt number attempt (1-based). jitter is a
// sample from [0,1). The result never exceeds MaxDelay.
//
//	retryable: base * 2^(attempt-1) + jitter
//	throttled: base * 2^(attempt-1) * 2 + 5 + 10*jitter
func Delay(kind failure.Kind, attempt int, base, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exp := base * math.Pow(2, float64(attempt-1))
	var secs float64
	if kind == failure.Throttled {
		secs = exp*2 + 5 + 10*jitter
	} else {
		secs = exp + jitter
	}
	if secs >= MaxDelay.Seconds() || math.IsNaN(secs) {
		return MaxDelay
	}
	return time.Duration(secs * float64(time.Second))
}

// attemptBackOff yields Delay for the classification of the attempt that
// just failed. kind is written by the operation before each NextBackOff.
type attemptBackOff struct {
	base    float64
	jitter  func() float64
	kind    *failure.Kind
	attempt int
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	b.attempt++
	return Delay(*b.kind, b.attempt, b.base, b.jitter())
}

func (b *attemptBackOff) Reset() { b.attempt = 0 }

type Fetcher struct {
	source      AudioSource
	maxAttempts int
	base        float64
	timer       backoff.Timer
	jitter      func() float64
	log         *logger.Logger
}

type Option func(*Fetcher)

// WithTimer replaces the timer that paces retries, mainly for tests.
func WithTimer(t backoff.Timer) Option { return func(f *Fetcher) { f.timer = t } }

// WithJitter replaces the [0,1) jitter source.
func WithJitter(j func() float64) Option { return func(f *Fetcher) { f.jitter = j } }

func New(source AudioSource, cfg config.Fetch, log *logger.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:      source,
		maxAttempts: cfg.MaxAttempts,
		base:        cfg.BackoffBase,
		jitter:      clock.Float64,
		log:         log.Component("fetcher"),
	}
	if f.maxAttempts < 1 {
		f.maxAttempts = 1
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch downloads the audio for externalID. Each failed attempt is classified
// and followed by a backoff, except the last one. A rejected credential or a
// cancelled context ends the retries early.
func (f *Fetcher) Fetch(ctx context.Context, externalID, destBase string) (types.AudioArtifact, error) {
	var (
		art      types.AudioArtifact
		attempts int
		kind     failure.Kind
	)
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempts++
		a, err := f.attempt(ctx, externalID, destBase)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			kind = failure.Classify(err)
			if kind == failure.Fatal {
				return backoff.Permanent(err)
			}
			return err
		}
		art = a
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.log.WithError(err).WithFields(map[string]any{
			"video_id":     externalID,
			"attempt":      attempts,
			"max_attempts": f.maxAttempts,
			"kind":         kind.String(),
			"wait":         wait.Round(time.Millisecond).String(),
		}).Warn("download failed, backing off")
	}

	var b backoff.BackOff = &attemptBackOff{base: f.base, jitter: f.jitter, kind: &kind}
	b = backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.maxAttempts-1)), ctx)
	if err := backoff.RetryNotifyWithTimer(op, b, notify, f.timer); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return types.AudioArtifact{}, ctxErr
		}
		return types.AudioArtifact{}, &FetchError{VideoID: externalID, Attempts: attempts, Err: err}
	}

	f.log.WithFields(map[string]any{
		"video_id": externalID,
		"attempt":  attempts,
		"bytes":    art.SizeBytes,
	}).Info("audio downloaded")
	return art, nil
}

func (f *Fetcher) attempt(ctx context.Context, externalID, destBase string) (types.AudioArtifact, error) {
	path, err := f.source.Download(ctx, externalID, destBase)
	if err != nil {
		return types.AudioArtifact{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.AudioArtifact{}, fmt.Errorf("download reported success but %s is missing", path)
		}
		return types.AudioArtifact{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return types.AudioArtifact{}, fmt.Errorf("download produced an empty file %s", path)
	}
	return types.AudioArtifact{Path: path, SizeBytes: info.Size()}, nil
}
