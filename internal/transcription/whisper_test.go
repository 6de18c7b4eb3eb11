package transcription

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/failure"
	"yt-transcripts-go/internal/openai"
)

func newWhisper(t *testing.T, h http.HandlerFunc) *WhisperClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.OpenAI{APIKey: "sk-test", BaseURL: srv.URL, TranscribeModel: "whisper-1", Language: "ko"}
	api, err := openai.New(cfg)
	require.NoError(t, err)
	return NewWhisperClient(api, cfg)
}

func TestWhisperUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3audio"), 0o644))

	w := newWhisper(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ko", r.FormValue("language"))
		assert.Equal(t, "json", r.FormValue("response_format"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "abc.mp3", hdr.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "ID3audio", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"안녕하세요 여러분"}`))
	})

	text, err := w.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요 여러분", text)
}

func TestWhisperUnauthorized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := newWhisper(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	})

	_, err := w.Transcribe(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrAuth)
}

func TestWhisperServerError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := newWhisper(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := w.Transcribe(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, failure.Retryable, failure.Classify(err))
}

func TestWhisperMissingFile(t *testing.T) {
	w := newWhisper(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := w.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"))
	assert.Error(t, err)
}
