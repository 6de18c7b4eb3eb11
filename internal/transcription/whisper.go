package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/openai"
)

// WhisperClient uploads one file per call to /audio/transcriptions.
type WhisperClient struct {
	api      *openai.Client
	model    string
	language string
}

func NewWhisperClient(api *openai.Client, cfg config.OpenAI) *WhisperClient {
	return &WhisperClient{api: api, model: cfg.TranscribeModel, language: cfg.Language}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (w *WhisperClient) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	_ = mw.WriteField("model", w.model)
	if w.language != "" {
		_ = mw.WriteField("language", w.language)
	}
	_ = mw.WriteField("response_format", "json")
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := w.api.NewRequest(ctx, http.MethodPost, "/audio/transcriptions", &b)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := w.api.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", filepath.Base(path), err)
	}
	var out transcriptionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return out.Text, nil
}
