// Package extractor asks the chat model for sentiment and fairness scores on
// batches of text and turns whatever comes back into one score per text.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/logger"
	"yt-transcripts-go/internal/openai"
	"yt-transcripts-go/internal/types"
)

// Separator joins the texts of one batch in the user message.
const Separator = "\n---\n"

const SystemPrompt = `You are a strict JSON generator. For each input text, return:
{"sentiment": -1.0_to_1.0, "fairness": 0.0_to_1.0, "notes": "very brief reason"}
Sentiment: -1 very negative, 0 neutral, +1 very positive.
Fairness: 0 unfair/biased, 1 fully fair/neutral.`

const userPreamble = "For each text separated by --- output a JSON array in order. Each element follows the schema above.\n"

// ParseErrorScore is what every text in a batch gets when the reply cannot be used.
var ParseErrorScore = types.Score{Sentiment: 0, Fairness: 0.5, Notes: "parse_error"}

type Scorer struct {
	api        *openai.Client
	model      string
	limiter    *rate.Limiter
	maxElapsed time.Duration
	log        *logger.Logger
}

func New(api *openai.Client, oa config.OpenAI, sc config.Scoring, log *logger.Logger) *Scorer {
	limit := rate.Inf
	if sc.RequestsPerSecond > 0 {
		limit = rate.Limit(sc.RequestsPerSecond)
	}
	return &Scorer{
		api:        api,
		model:      oa.ScoreModel,
		limiter:    rate.NewLimiter(limit, 1),
		maxElapsed: 45 * time.Second,
		log:        log.Component("extractor"),
	}
}

// ScoreBatch returns one score per text, in order. A reply that cannot be
// parsed, or that has the wrong number of elements, gives every text
// ParseErrorScore. Request failures (after retries) are returned as errors.
func (s *Scorer) ScoreBatch(ctx context.Context, texts []string) ([]types.Score, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	content, err := s.complete(ctx, userPreamble+strings.Join(texts, Separator))
	if err != nil {
		return nil, err
	}

	scores, err := ParseScores(content, len(texts))
	if err != nil {
		s.log.WithError(err).WithField("batch_size", len(texts)).Warn("unusable scoring reply, using defaults")
		return Defaults(len(texts)), nil
	}
	return scores, nil
}

// Defaults returns n copies of ParseErrorScore.
func Defaults(n int) []types.Score {
	out := make([]types.Score, n)
	for i := range out {
		out[i] = ParseErrorScore
	}
	return out
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

func (s *Scorer) complete(ctx context.Context, user string) (string, error) {
	data, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	var content string
	op := func() error {
		req, err := s.api.NewRequest(ctx, http.MethodPost, "/chat/completions", bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		body, err := s.api.Do(req)
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
				// Permanent: don't retry on client errors
				return backoff.Permanent(err)
			}
			s.log.WithError(err).Warn("chat completion failed, retrying")
			return err
		}
		content = extractContentFromChoices(body)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("score batch: %w", err)
	}
	return content, nil
}

// extractContentFromChoices reads choices[0].message.content, or returns the
// raw body when it is not a chat completion envelope.
func extractContentFromChoices(body []byte) string {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
		return string(body)
	}
	return parsed.Choices[0].Message.Content
}
