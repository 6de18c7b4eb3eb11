package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"yt-transcripts-go/internal/types"
)

var errNoJSON = errors.New("no JSON found in model output")

// ParseScores decodes a model reply into exactly n scores. A lone object is
// treated as a one-element array, and an object whose only field is an array
// is unwrapped. Missing fields default to sentiment 0, fairness 0.5, empty notes.
func ParseScores(content string, n int) ([]types.Score, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, errNoJSON
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		items = []any{t}
		if len(t) == 1 {
			for _, inner := range t {
				if arr, ok := inner.([]any); ok {
					items = arr
				}
			}
		}
	default:
		return nil, fmt.Errorf("unexpected JSON %T in model output", v)
	}

	if len(items) != n {
		return nil, fmt.Errorf("model returned %d scores for %d texts", len(items), n)
	}

	out := make([]types.Score, 0, n)
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d is %T, not an object", i, it)
		}
		out = append(out, types.Score{
			Sentiment: number(obj["sentiment"], 0),
			Fairness:  number(obj["fairness"], 0.5),
			Notes:     text(obj["notes"]),
		})
	}
	return out, nil
}

func number(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// extractJSON finds the first balanced JSON array or object in a string and
// returns it. It strips common markdown fences first.
func extractJSON(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, r := range []string{"```json", "```JSON", "```"} {
		s = strings.ReplaceAll(s, r, "")
	}

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}
