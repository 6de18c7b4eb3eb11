package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"
)

// ErrNoCaptions means none of the requested languages had a transcript.
var ErrNoCaptions = errors.New("no captions in requested languages")

// CaptionClient reads auto or uploaded captions through the watch page.
type CaptionClient struct {
	client *ytdl.Client
}

func NewCaptionClient() *CaptionClient {
	return &CaptionClient{client: &ytdl.Client{}}
}

// Transcript joins the segments of the first language that has captions.
func (c *CaptionClient) Transcript(ctx context.Context, videoID string, langs []string) (string, error) {
	video, err := c.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("video %s: %w", videoID, err)
	}
	lastErr := ErrNoCaptions
	for _, lang := range langs {
		segments, err := c.client.GetTranscriptCtx(ctx, video, lang)
		if err != nil {
			lastErr = fmt.Errorf("%s captions: %w", lang, err)
			continue
		}
		texts := make([]string, 0, len(segments))
		for _, s := range segments {
			texts = append(texts, s.Text)
		}
		if text := JoinSegments(texts); text != "" {
			return text, nil
		}
	}
	return "", lastErr
}

// JoinSegments joins caption lines with single spaces, dropping blank ones.
func JoinSegments(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
