// Package chunker cuts an oversized audio file into fixed-length pieces the
// transcription endpoint will accept.
package chunker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"yt-transcripts-go/internal/command"
	"yt-transcripts-go/internal/types"
)

// DefaultChunkDuration is the slice length used for oversized uploads.
const DefaultChunkDuration = 10 * time.Minute

// Segment is one [Start, Start+Length) window of the source audio.
type Segment struct {
	Index  int
	Start  time.Duration
	Length time.Duration
}

// Plan returns ceil(total/chunk) contiguous segments in time order. The last
// one may be shorter.
func Plan(total, chunk time.Duration) []Segment {
	if total <= 0 || chunk <= 0 {
		return nil
	}
	n := int((total + chunk - 1) / chunk)
	out := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		start := time.Duration(i) * chunk
		length := chunk
		if rest := total - start; rest < length {
			length = rest
		}
		out = append(out, Segment{Index: i, Start: start, Length: length})
	}
	return out
}

// ChunkPath is where segment i of artifactPath is written.
func ChunkPath(artifactPath string, i int) string {
	base := strings.TrimSuffix(artifactPath, ".mp3")
	return base + "_chunk_" + strconv.Itoa(i) + ".mp3"
}

type Chunker struct {
	FFmpeg   string
	FFprobe  string
	Duration time.Duration
	runner   command.Runner
}

func New(runner command.Runner) *Chunker {
	if runner == nil {
		runner = command.Exec{}
	}
	return &Chunker{
		FFmpeg:   "ffmpeg",
		FFprobe:  "ffprobe",
		Duration: DefaultChunkDuration,
		runner:   runner,
	}
}

// Split writes every segment of art to disk and returns them in ordinal order.
// Decoding problems are not retried. On error, chunks already written are
// removed.
func (c *Chunker) Split(ctx context.Context, art types.AudioArtifact) (chunks []types.AudioChunk, err error) {
	total, err := c.probe(ctx, art.Path)
	if err != nil {
		return nil, err
	}
	segments := Plan(total, c.Duration)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%s has no audio", art.Path)
	}

	defer func() {
		if err != nil {
			for _, ch := range chunks {
				_ = os.Remove(ch.Path)
			}
			chunks = nil
		}
	}()

	for _, seg := range segments {
		out := ChunkPath(art.Path, seg.Index)
		chunks = append(chunks, types.AudioChunk{Path: out, OrdinalIndex: seg.Index})
		if _, err = command.Check(ctx, c.runner, c.FFmpeg,
			"-hide_banner", "-nostdin", "-y",
			"-ss", secs(seg.Start),
			"-t", secs(seg.Length),
			"-i", art.Path,
			"-vn", "-ac", "1", "-ar", "8000", "-b:a", "32k",
			out,
		); err != nil {
			return chunks, fmt.Errorf("export chunk %d of %s: %w", seg.Index, art.Path, err)
		}
	}
	return chunks, nil
}

func (c *Chunker) probe(ctx context.Context, path string) (time.Duration, error) {
	res, err := command.Check(ctx, c.runner, c.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	raw := strings.TrimSpace(res.Stdout)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("probe %s: unreadable duration %q", path, raw)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func secs(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
