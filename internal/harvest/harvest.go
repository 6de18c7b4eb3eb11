// Package harvest fills the videos and comments tables from a playlist. Videos
// that come without captions are stored with a NULL transcript and become
// pending work for the transcription run.
package harvest

import (
	"context"
	"fmt"
	"time"

	"yt-transcripts-go/internal/config"
	"yt-transcripts-go/internal/logger"
	"yt-transcripts-go/internal/types"
)

const watchURL = "https://www.youtube.com/watch?v="

// PlaylistItem is one entry of a playlist listing.
type PlaylistItem struct {
	VideoID     string
	Title       string
	PublishedAt time.Time
}

// Source lists playlist entries and their top-level comments.
type Source interface {
	PlaylistItems(ctx context.Context, playlistID string) ([]PlaylistItem, error)
	Comments(ctx context.Context, videoID string, limit int64) ([]types.Comment, error)
}

// CaptionSource returns the caption text of a video in the first available
// language of langs.
type CaptionSource interface {
	Transcript(ctx context.Context, videoID string, langs []string) (string, error)
}

type Sink interface {
	SaveVideo(ctx context.Context, v types.Video) (bool, error)
}

type Summary struct {
	Listed         int
	InRange        int
	Inserted       int
	Existing       int
	WithTranscript int
}

type Harvester struct {
	source   Source
	captions CaptionSource
	sink     Sink
	cfg      config.Harvest
	start    *time.Time
	end      *time.Time
	log      *logger.Logger
}

// New builds a Harvester. start and end are calendar days and both are
// included; nil means unbounded on that side.
func New(source Source, captions CaptionSource, sink Sink, cfg config.Harvest, start, end *time.Time, log *logger.Logger) *Harvester {
	return &Harvester{
		source:   source,
		captions: captions,
		sink:     sink,
		cfg:      cfg,
		start:    start,
		end:      end,
		log:      log.Component("harvest"),
	}
}

// Run lists the playlist, keeps entries in range and stores each one with its
// comments and, when available, its captions. Comment and caption failures
// are logged and the video is stored without them.
func (h *Harvester) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	if h.cfg.PlaylistID == "" {
		return sum, fmt.Errorf("PLAYLIST_ID is not set")
	}

	items, err := h.source.PlaylistItems(ctx, h.cfg.PlaylistID)
	if err != nil {
		return sum, fmt.Errorf("list playlist %s: %w", h.cfg.PlaylistID, err)
	}
	sum.Listed = len(items)

	var selected []PlaylistItem
	for _, it := range items {
		if h.inRange(it.PublishedAt) {
			selected = append(selected, it)
		}
	}
	sum.InRange = len(selected)
	h.log.WithField("listed", sum.Listed).WithField("in_range", sum.InRange).Info("playlist listed")

	for i, it := range selected {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		log := h.log.WithField("index", i+1).WithField("total", len(selected)).WithField("video_id", it.VideoID)

		v := types.Video{
			VideoID:     it.VideoID,
			Title:       it.Title,
			PublishedAt: it.PublishedAt,
			URL:         watchURL + it.VideoID,
		}

		comments, err := h.source.Comments(ctx, it.VideoID, h.cfg.MaxComments)
		if err != nil {
			log.WithError(err).Warn("comments unavailable")
		}
		for j := range comments {
			comments[j].VideoID = it.VideoID
		}
		v.Comments = comments

		if h.captions != nil {
			text, err := h.captions.Transcript(ctx, it.VideoID, h.cfg.CaptionLanguages)
			switch {
			case err != nil:
				log.WithError(err).Info("no captions, left for transcription")
			case text != "":
				v.Transcript = &text
				sum.WithTranscript++
			}
		}

		inserted, err := h.sink.SaveVideo(ctx, v)
		if err != nil {
			return sum, err
		}
		if inserted {
			sum.Inserted++
		} else {
			sum.Existing++
		}
		log.WithField("comments", len(comments)).WithField("has_transcript", v.Transcript != nil).Info("video stored")
	}
	return sum, nil
}

func (h *Harvester) inRange(t time.Time) bool {
	if h.start != nil && t.Before(*h.start) {
		return false
	}
	if h.end != nil && !t.Before(h.end.AddDate(0, 0, 1)) {
		return false
	}
	return true
}
