package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-transcripts-go/internal/failure"
	"yt-transcripts-go/internal/logger"
	"yt-transcripts-go/internal/openai"
	"yt-transcripts-go/internal/types"
)

type fakeService struct {
	t      *testing.T
	calls  []string
	failOn string
	err    error
}

func (f *fakeService) Transcribe(_ context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	assert.FileExists(f.t, path)
	if path == f.failOn {
		return "", f.err
	}
	return "text:" + filepath.Base(path), nil
}

type fakeSplitter struct {
	n      int
	called bool
	err    error
}

func (s *fakeSplitter) Split(_ context.Context, art types.AudioArtifact) ([]types.AudioChunk, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	var out []types.AudioChunk
	for i := 0; i < s.n; i++ {
		p := fmt.Sprintf("%s_chunk_%d.mp3", art.Path[:len(art.Path)-4], i)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			return nil, err
		}
		out = append(out, types.AudioChunk{Path: p, OrdinalIndex: i})
	}
	return out, nil
}

type pauseRecorder struct{ waits []time.Duration }

func (p *pauseRecorder) sleep(_ context.Context, d time.Duration) error {
	p.waits = append(p.waits, d)
	return nil
}

func artifact(t *testing.T, size int64) types.AudioArtifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vid.mp3")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.NoError(t, os.Truncate(path, size))
	return types.AudioArtifact{Path: path, SizeBytes: size}
}

func TestSizeBoundary(t *testing.T) {
	at := artifact(t, MaxUploadBytes)
	svc := &fakeService{t: t}
	sp := &fakeSplitter{n: 2}
	res, err := New(svc, sp, logger.Discard()).Transcribe(context.Background(), at)
	require.NoError(t, err)
	assert.False(t, sp.called)
	assert.Equal(t, []string{at.Path}, svc.calls)
	assert.Equal(t, "text:vid.mp3", res.Text)
	assert.Equal(t, 1, res.Chunks)

	over := artifact(t, MaxUploadBytes+1)
	svc = &fakeService{t: t}
	sp = &fakeSplitter{n: 2}
	rec := &pauseRecorder{}
	res, err = New(svc, sp, logger.Discard()).WithSleeper(rec.sleep).Transcribe(context.Background(), over)
	require.NoError(t, err)
	assert.True(t, sp.called)
	assert.Len(t, svc.calls, 2)
	assert.Equal(t, 2, res.Chunks)
}

func TestChunksInOrderAndDeleted(t *testing.T) {
	at := artifact(t, MaxUploadBytes+1)
	svc := &fakeService{t: t}
	rec := &pauseRecorder{}
	tr := New(svc, &fakeSplitter{n: 3}, logger.Discard()).WithSleeper(rec.sleep)

	res, err := tr.Transcribe(context.Background(), at)
	require.NoError(t, err)
	assert.Equal(t, "text:vid_chunk_0.mp3 text:vid_chunk_1.mp3 text:vid_chunk_2.mp3", res.Text)
	// pauses only between chunks
	assert.Equal(t, []time.Duration{time.Second, time.Second}, rec.waits)

	for _, p := range svc.calls {
		assert.NoFileExists(t, p)
	}
}

func TestChunkFailureCleansUp(t *testing.T) {
	at := artifact(t, MaxUploadBytes+1)
	dir := filepath.Dir(at.Path)
	svc := &fakeService{t: t, failOn: filepath.Join(dir, "vid_chunk_1.mp3"), err: errors.New("HTTP 500")}
	tr := New(svc, &fakeSplitter{n: 3}, logger.Discard()).WithSleeper((&pauseRecorder{}).sleep)

	_, err := tr.Transcribe(context.Background(), at)
	require.Error(t, err)
	assert.Len(t, svc.calls, 2)

	var ae *AuthError
	assert.False(t, errors.As(err, &ae))

	left, _ := filepath.Glob(filepath.Join(dir, "*_chunk_*"))
	assert.Empty(t, left)
}

func TestAuthFailureIsDistinct(t *testing.T) {
	at := artifact(t, 10)
	svc := &fakeService{t: t, failOn: at.Path, err: &openai.APIError{StatusCode: 401, Code: "invalid_api_key"}}

	_, err := New(svc, &fakeSplitter{}, logger.Discard()).Transcribe(context.Background(), at)
	require.Error(t, err)

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, failure.ErrAuth)
	assert.Equal(t, failure.Fatal, failure.Classify(err))
}

func TestSplitFailurePropagates(t *testing.T) {
	at := artifact(t, MaxUploadBytes+1)
	_, err := New(&fakeService{t: t}, &fakeSplitter{err: errors.New("Invalid data found")}, logger.Discard()).
		Transcribe(context.Background(), at)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data")
}

func TestJoinUsesOrdinalOrder(t *testing.T) {
	chunks := []types.AudioChunk{{OrdinalIndex: 2}, {OrdinalIndex: 0}, {OrdinalIndex: 1}}
	assert.Equal(t, "a b c", Join(chunks, []string{"c", "a", "b"}))
	assert.Equal(t, "", Join(nil, nil))
}
