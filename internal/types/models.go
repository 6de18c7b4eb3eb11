package types

import "time"

// WorkItem is one video that still has no transcript.
type WorkItem struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"video_id"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// AudioArtifact is a downloaded, transcoded audio file on scratch storage.
type AudioArtifact struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// AudioChunk is a time slice of an oversized artifact.
type AudioChunk struct {
	Path         string `json:"path"`
	OrdinalIndex int    `json:"ordinal_index"`
}

// TranscriptResult is the final text produced for one WorkItem.
type TranscriptResult struct {
	Text   string `json:"text"`
	Chunks int    `json:"chunks"`
}

// Video mirrors a row of the videos table.
type Video struct {
	ID          int64      `json:"id,omitempty"`
	VideoID     string     `json:"video_id"`
	Title       string     `json:"title"`
	PublishedAt time.Time  `json:"published_at"`
	URL         string     `json:"url"`
	Transcript  *string    `json:"transcript,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Comment mirrors a row of the comments table.
type Comment struct {
	VideoID     string    `json:"video_id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
	LikeCount   int64     `json:"like_count"`
}

// DatedText is one unit of the scoring corpus: a comment or a transcript with its day.
type DatedText struct {
	Date time.Time `json:"dt"`
	Text string    `json:"text"`
}

// Score is the scoring provider's verdict for one text.
type Score struct {
	Sentiment float64 `json:"sentiment"`
	Fairness  float64 `json:"fairness"`
	Notes     string  `json:"notes"`
}

// ScoreRow mirrors a row of the llm_scores table.
type ScoreRow struct {
	DatedText
	Score
}
