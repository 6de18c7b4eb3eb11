package fetcher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"yt-transcripts-go/internal/command"
	"yt-transcripts-go/internal/config"
)

const (
	watchURL   = "https://www.youtube.com/watch?v="
	userAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	audioExt   = "mp3"
	audioKbps  = "32"
	sampleRate = "8000"
)

// YtDlpSource shells out to yt-dlp. The output is always mono 8 kHz mp3 at
// 32 kbps, written to destBase + ".mp3".
type YtDlpSource struct {
	Binary string
	cfg    config.Fetch
	runner command.Runner
}

func NewYtDlpSource(cfg config.Fetch, runner command.Runner) *YtDlpSource {
	if runner == nil {
		runner = command.Exec{}
	}
	return &YtDlpSource{Binary: "yt-dlp", cfg: cfg, runner: runner}
}

func (s *YtDlpSource) Download(ctx context.Context, externalID, destBase string) (string, error) {
	if _, err := command.Check(ctx, s.runner, s.Binary, s.args(externalID, destBase)...); err != nil {
		return "", fmt.Errorf("yt-dlp %s: %w", externalID, err)
	}
	return destBase + "." + audioExt, nil
}

func (s *YtDlpSource) args(externalID, destBase string) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--quiet",
		"--no-warnings",
		"-f", "bestaudio[ext=m4a]/bestaudio/best",
		"-o", destBase + ".%(ext)s",
		"-x",
		"--audio-format", audioExt,
		"--audio-quality", audioKbps + "K",
		"--postprocessor-args", "ffmpeg:-ar " + sampleRate + " -ac 1",
		"--socket-timeout", "30",
		"--retries", "10",
		"--fragment-retries", "10",
		"--concurrent-fragments", "1",
		"--geo-bypass",
		"--user-agent", userAgent,
		"--add-header", "Accept:text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"--add-header", "Accept-Language:ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
		"--extractor-args", "youtube:player_client=android,web;skip=hls,dash",
	}
	if s.cfg.SleepMax > 0 {
		args = append(args,
			"--sleep-interval", seconds(s.cfg.SleepMin),
			"--max-sleep-interval", seconds(s.cfg.SleepMax),
		)
	}
	if s.cfg.Proxy != "" {
		args = append(args, "--proxy", s.cfg.Proxy)
	}
	if s.cfg.CookieFile != "" {
		args = append(args, "--cookies", s.cfg.CookieFile)
	}
	return append(args, watchURL+externalID)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
