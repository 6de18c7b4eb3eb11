package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-transcripts-go/internal/command"
	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/failure"
)

type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (command.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (command.Result, error) {
	if f.run == nil {
		return command.Result{}, nil
	}
	return f.run(ctx, name, args...)
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestYtDlpArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := &fakeRunner{run: func(_ context.Context, name string, args ...string) (command.Result, error) {
		gotName, gotArgs = name, args
		return command.Result{}, nil
	}}
	src := NewYtDlpSource(config.Fetch{
		Proxy:      "http://proxy:8080",
		CookieFile: "/tmp/cookies.txt",
		SleepMin:   5 * time.Second,
		SleepMax:   10 * time.Second,
	}, runner)

	path, err := src.Download(context.Background(), "dQw4w9WgXcQ", "/scratch/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "/scratch/dQw4w9WgXcQ.mp3", path)

	assert.Equal(t, "yt-dlp", gotName)
	assert.Equal(t, "bestaudio[ext=m4a]/bestaudio/best", argValue(gotArgs, "-f"))
	assert.Equal(t, "/scratch/dQw4w9WgXcQ.%(ext)s", argValue(gotArgs, "-o"))
	assert.Equal(t, "mp3", argValue(gotArgs, "--audio-format"))
	assert.Equal(t, "32K", argValue(gotArgs, "--audio-quality"))
	assert.Equal(t, "ffmpeg:-ar 8000 -ac 1", argValue(gotArgs, "--postprocessor-args"))
	assert.Equal(t, "youtube:player_client=android,web;skip=hls,dash", argValue(gotArgs, "--extractor-args"))
	assert.Equal(t, "5", argValue(gotArgs, "--sleep-interval"))
	assert.Equal(t, "10", argValue(gotArgs, "--max-sleep-interval"))
	assert.Equal(t, "http://proxy:8080", argValue(gotArgs, "--proxy"))
	assert.Equal(t, "/tmp/cookies.txt", argValue(gotArgs, "--cookies"))
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", gotArgs[len(gotArgs)-1])
}

func TestYtDlpArgsOmitOptional(t *testing.T) {
	src := NewYtDlpSource(config.Fetch{}, nil)
	args := src.args("abc", "/tmp/abc")
	assert.NotContains(t, args, "--proxy")
	assert.NotContains(t, args, "--cookies")
	assert.NotContains(t, args, "--sleep-interval")
}

func TestYtDlpFailureCarriesStderr(t *testing.T) {
	runner := &fakeRunner{run: func(context.Context, string, ...string) (command.Result, error) {
		return command.Result{
			ExitCode: 1,
			Stderr:   "ERROR: [youtube] abc: Sign in to confirm you're not a bot. Use --cookies",
		}, errors.New("exit status 1")
	}}
	src := NewYtDlpSource(config.Fetch{}, runner)

	_, err := src.Download(context.Background(), "abc", "/tmp/abc")
	require.Error(t, err)
	assert.Equal(t, failure.Throttled, failure.Classify(err))
}
