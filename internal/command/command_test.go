package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	res Result
	err error
}

func (s stubRunner) Run(context.Context, string, ...string) (Result, error) {
	return s.res, s.err
}

func TestCheckWrapsFailure(t *testing.T) {
	r := stubRunner{
		res: Result{ExitCode: 1, Stderr: "ERROR: [youtube] abc: Sign in to confirm you're not a bot\n"},
		err: errors.New("exit status 1"),
	}
	_, err := Check(context.Background(), r, "yt-dlp", "abc")
	require.Error(t, err)

	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "yt-dlp", cmdErr.Name)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Contains(t, err.Error(), "not a bot")
}

func TestCheckPrefersContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Check(ctx, stubRunner{err: errors.New("signal: killed")}, "ffmpeg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckSuccess(t *testing.T) {
	res, err := Check(context.Background(), stubRunner{res: Result{Stdout: "12.5\n"}}, "ffprobe")
	require.NoError(t, err)
	assert.Equal(t, "12.5\n", res.Stdout)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", Tail("  abc \n", 10))
	long := strings.Repeat("x", 50) + "END"
	got := Tail(long, 10)
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "END"))
}

func TestTailKeepsRunesWhole(t *testing.T) {
	stderr := "ERROR: [youtube] 동영상을 사용할 수 없습니다"
	for n := 1; n < len(stderr); n++ {
		got := Tail(stderr, n)
		assert.True(t, utf8.ValidString(got), "n=%d: %q", n, got)
		assert.True(t, strings.HasSuffix(stderr, strings.TrimPrefix(got, "...")), "n=%d: %q", n, got)
	}
	assert.Equal(t, "...습니다", Tail(stderr, 10))
}
