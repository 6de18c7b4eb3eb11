// Package config turns the process environment into an explicit Config value
// that is handed to every component at construction time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// OpenAI holds provider credentials and model choices shared by the
// transcription and scoring clients.
type OpenAI struct {
	APIKey          string
	BaseURL         string
	OrgID           string
	ProjectID       string
	Proxy           string
	TranscribeModel string
	Language        string
	ScoreModel      string
}

// Fetch configures the audio download stage.
type Fetch struct {
	Proxy       string
	CookieFile  string
	SleepMin    time.Duration
	SleepMax    time.Duration
	MaxAttempts int
	BackoffBase float64
}

// Scoring configures the batch sentiment/fairness pass.
type Scoring struct {
	BatchSize         int
	RequestsPerSecond float64
	ReportPath        string
}

// Harvest configures playlist and comment collection.
type Harvest struct {
	YouTubeAPIKey    string
	PlaylistID       string
	MaxComments      int64
	CaptionLanguages []string
}

type Config struct {
	DatabaseURL string
	ScratchDir  string

	// StartIndex is 1-based; values <= 1 mean "from the beginning".
	StartIndex int
	// StartDate is inclusive and EndDate exclusive. Both nil means no range.
	StartDate *time.Time
	EndDate   *time.Time

	OpenAI  OpenAI
	Fetch   Fetch
	Scoring Scoring
	Harvest Harvest
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup, which has the shape of os.LookupEnv.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}

	cfg := Config{
		DatabaseURL: e.str("SUPABASE_CONNECTION_STRING", e.str("DATABASE_URL", "")),
		ScratchDir:  e.str("SCRATCH_DIR", ""),
		StartIndex:  e.integer("START_INDEX", 1),
		StartDate:   e.date("START_DATE"),
		EndDate:     e.date("END_DATE"),
		OpenAI: OpenAI{
			APIKey:          NormalizeKey(e.str("OPENAI_API_KEY", "")),
			BaseURL:         e.str("OPENAI_BASE_URL", ""),
			OrgID:           e.str("OPENAI_ORG_ID", ""),
			ProjectID:       e.str("OPENAI_PROJECT_ID", ""),
			Proxy:           e.str("OPENAI_PROXY", ""),
			TranscribeModel: e.str("TRANSCRIBE_MODEL", "whisper-1"),
			Language:        e.str("TRANSCRIBE_LANGUAGE", "ko"),
			ScoreModel:      e.str("SCORE_MODEL", "gpt-4o-mini"),
		},
		Fetch: Fetch{
			Proxy:       e.str("YTDLP_PROXY", ""),
			CookieFile:  existingFile(e.str("YTDLP_COOKIEFILE", "")),
			SleepMin:    time.Duration(e.integer("YTDLP_SLEEP_MIN", 5)) * time.Second,
			SleepMax:    time.Duration(e.integer("YTDLP_SLEEP_MAX", 10)) * time.Second,
			MaxAttempts: e.integer("YTDLP_MAX_ATTEMPTS", 5),
			BackoffBase: e.number("YTDLP_BACKOFF_BASE", 2),
		},
		Scoring: Scoring{
			BatchSize:         e.integer("SCORE_BATCH_SIZE", 10),
			RequestsPerSecond: e.number("SCORE_RPS", 1),
			ReportPath:        e.str("SCORE_REPORT_PATH", "llm_scores_daily.xlsx"),
		},
		Harvest: Harvest{
			YouTubeAPIKey:    e.str("GOOGLE_CLOUD_API_KEY", ""),
			PlaylistID:       e.str("PLAYLIST_ID", ""),
			MaxComments:      int64(e.integer("HARVEST_MAX_COMMENTS", 100)),
			CaptionLanguages: e.list("CAPTION_LANGUAGES", []string{"ko", "en"}),
		},
	}
	if len(e.errs) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(e.errs, "; "))
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Fetch.SleepMin < 0 || c.Fetch.SleepMax < c.Fetch.SleepMin {
		return fmt.Errorf("YTDLP_SLEEP_MIN/MAX must satisfy 0 <= min <= max")
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("YTDLP_MAX_ATTEMPTS must be at least 1")
	}
	if c.Fetch.BackoffBase <= 0 {
		return fmt.Errorf("YTDLP_BACKOFF_BASE must be positive")
	}
	if c.Scoring.BatchSize < 1 {
		return fmt.Errorf("SCORE_BATCH_SIZE must be at least 1")
	}
	if c.Harvest.MaxComments < 1 || c.Harvest.MaxComments > 100 {
		return fmt.Errorf("HARVEST_MAX_COMMENTS must be between 1 and 100")
	}
	if (c.StartDate == nil) != (c.EndDate == nil) {
		return fmt.Errorf("START_DATE and END_DATE must be set together")
	}
	if c.StartDate != nil && !c.EndDate.After(*c.StartDate) {
		return fmt.Errorf("END_DATE must be after START_DATE")
	}
	return nil
}

// RequireDatabase reports a missing connection string.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("SUPABASE_CONNECTION_STRING (or DATABASE_URL) is not set")
	}
	return nil
}

// NormalizeKey trims whitespace and one pair of surrounding quotes or backticks.
func NormalizeKey(raw string) string {
	k := strings.TrimSpace(raw)
	if len(k) >= 2 {
		first, last := k[0], k[len(k)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			k = strings.TrimSpace(k[1 : len(k)-1])
		}
	}
	return k
}

func existingFile(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

type env struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return def
}

func (e *env) integer(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not an integer", key, raw))
		return def
	}
	return n
}

func (e *env) number(key string, def float64) float64 {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a number", key, raw))
		return def
	}
	return f
}

func (e *env) date(key string) *time.Time {
	raw := e.str(key, "")
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a YYYY-MM-DD date", key, raw))
		return nil
	}
	return &t
}

func (e *env) list(key string, def []string) []string {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
