// Package transcription turns an audio artifact into text, slicing it first
// when it is over the upload limit.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"yt-transcripts-go/internal/clock"
	"yt-transcripts-go/internal/failure"
	"yt-transcripts-go/internal/logger"
	"yt-transcripts-go/internal/types"
)

// MaxUploadBytes is the provider's hard request limit (25 MiB).
const MaxUploadBytes int64 = 25 * 1024 * 1024

const chunkPause = time.Second

// Service transcribes a single file that is already under the upload limit.
type Service interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Splitter cuts an artifact into ordered chunks on disk.
type Splitter interface {
	Split(ctx context.Context, art types.AudioArtifact) ([]types.AudioChunk, error)
}

// AuthError is returned when the provider rejected the credential. It stops
// the whole run.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return "transcription credential rejected: " + e.Err.Error() }

func (e *AuthError) Unwrap() []error { return []error{failure.ErrAuth, e.Err} }

type Transcriber struct {
	svc      Service
	splitter Splitter
	limit    int64
	pause    time.Duration
	sleep    clock.Sleeper
	log      *logger.Logger
}

func New(svc Service, splitter Splitter, log *logger.Logger) *Transcriber {
	return &Transcriber{
		svc:      svc,
		splitter: splitter,
		limit:    MaxUploadBytes,
		pause:    chunkPause,
		sleep:    clock.Sleep,
		log:      log.Component("transcription"),
	}
}

// WithSleeper swaps the inter-chunk wait.
func (t *Transcriber) WithSleeper(s clock.Sleeper) *Transcriber {
	t.sleep = s
	return t
}

// Transcribe returns the text for art. Files up to the limit go out in one
// call. Larger ones are split and sent chunk by chunk in order, each chunk
// deleted as soon as its call returns. Nothing is retried here.
func (t *Transcriber) Transcribe(ctx context.Context, art types.AudioArtifact) (types.TranscriptResult, error) {
	if art.SizeBytes <= t.limit {
		text, err := t.svc.Transcribe(ctx, art.Path)
		if err != nil {
			return types.TranscriptResult{}, wrapAuth(err)
		}
		return types.TranscriptResult{Text: text, Chunks: 1}, nil
	}

	chunks, err := t.splitter.Split(ctx, art)
	if err != nil {
		return types.TranscriptResult{}, fmt.Errorf("split: %w", err)
	}
	defer func() {
		for _, ch := range chunks {
			_ = os.Remove(ch.Path)
		}
	}()

	log := t.log.WithField("path", art.Path).WithField("chunks", len(chunks))
	log.Info("audio over upload limit, transcribing in chunks")

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		if i > 0 {
			if err := t.sleep(ctx, t.pause); err != nil {
				return types.TranscriptResult{}, err
			}
		}
		text, err := t.svc.Transcribe(ctx, ch.Path)
		_ = os.Remove(ch.Path)
		if err != nil {
			return types.TranscriptResult{}, fmt.Errorf("chunk %d: %w", ch.OrdinalIndex, wrapAuth(err))
		}
		texts[i] = text
		log.WithField("chunk", ch.OrdinalIndex).Debug("chunk transcribed")
	}
	return types.TranscriptResult{Text: Join(chunks, texts), Chunks: len(chunks)}, nil
}

// Join concatenates texts in the chunks' ordinal order with single spaces,
// whatever order they are given in.
func Join(chunks []types.AudioChunk, texts []string) string {
	ordered := make([]string, len(chunks))
	for i, ch := range chunks {
		if ch.OrdinalIndex >= 0 && ch.OrdinalIndex < len(ordered) && i < len(texts) {
			ordered[ch.OrdinalIndex] = texts[i]
		}
	}
	return strings.Join(ordered, " ")
}

func wrapAuth(err error) error {
	var ae *AuthError
	if errors.As(err, &ae) {
		return err
	}
	if failure.Classify(err) == failure.Fatal {
		return &AuthError{Err: err}
	}
	return err
}
