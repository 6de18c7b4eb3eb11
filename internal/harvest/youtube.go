package harvest

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"yt-transcripts-go/internal/types"
)

const playlistPageSize = 50

// YouTubeSource reads playlists and comment threads through the Data API v3.
type YouTubeSource struct {
	svc *youtube.Service
}

func NewYouTubeSource(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeSource, error) {
	if apiKey == "" && len(opts) == 0 {
		return nil, fmt.Errorf("GOOGLE_CLOUD_API_KEY is not set")
	}
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}
	return &YouTubeSource{svc: svc}, nil
}

func (s *YouTubeSource) PlaylistItems(ctx context.Context, playlistID string) ([]PlaylistItem, error) {
	var out []PlaylistItem
	pageToken := ""
	for {
		call := s.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(playlistPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			if item.Snippet == nil || item.ContentDetails == nil {
				continue
			}
			published, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
			if err != nil {
				return nil, fmt.Errorf("playlist item %s: bad publishedAt %q", item.ContentDetails.VideoId, item.Snippet.PublishedAt)
			}
			out = append(out, PlaylistItem{
				VideoID:     item.ContentDetails.VideoId,
				Title:       item.Snippet.Title,
				PublishedAt: published.UTC(),
			})
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}

// Comments returns up to limit top-level comments in plain text. Only the first
// page is read, so limit is capped by the API at 100.
func (s *YouTubeSource) Comments(ctx context.Context, videoID string, limit int64) ([]types.Comment, error) {
	resp, err := s.svc.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		MaxResults(limit).
		TextFormat("plainText").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	out := make([]types.Comment, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		c := item.Snippet.TopLevelComment.Snippet
		published, _ := time.Parse(time.RFC3339, c.PublishedAt)
		out = append(out, types.Comment{
			VideoID:     videoID,
			Author:      c.AuthorDisplayName,
			Text:        c.TextDisplay,
			PublishedAt: published.UTC(),
			LikeCount:   c.LikeCount,
		})
	}
	return out, nil
}
