package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"yt-transcripts-go/internal/aggregator"
)

// LoadDaily reads the daily sheet of a report. Columns are found by header
// name, so extra or reordered columns are fine; a cell that does not parse is
// an error.
func LoadDaily(path string) ([]aggregator.DailyScore, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(DailySheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	dtIdx, sentIdx, fairIdx, nIdx := -1, -1, -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "dt", "date":
			dtIdx = i
		case "sentiment_avg":
			sentIdx = i
		case "fairness_avg":
			fairIdx = i
		case "n", "count":
			nIdx = i
		}
	}
	if dtIdx == -1 || sentIdx == -1 || fairIdx == -1 || nIdx == -1 {
		return nil, fmt.Errorf("sheet %s: missing one of dt, sentiment_avg, fairness_avg, n", DailySheet)
	}

	cell := func(r []string, i int) string {
		if i >= 0 && i < len(r) {
			return strings.TrimSpace(r[i])
		}
		return ""
	}

	var out []aggregator.DailyScore
	for i, r := range rows[1:] {
		day, err := time.ParseInLocation(dateLayout, cell(r, dtIdx), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q", i+2, cell(r, dtIdx))
		}
		d := aggregator.DailyScore{Date: day}
		if d.SentimentAvg, err = strconv.ParseFloat(cell(r, sentIdx), 64); err != nil {
			return nil, fmt.Errorf("row %d: bad sentiment_avg %q", i+2, cell(r, sentIdx))
		}
		if d.FairnessAvg, err = strconv.ParseFloat(cell(r, fairIdx), 64); err != nil {
			return nil, fmt.Errorf("row %d: bad fairness_avg %q", i+2, cell(r, fairIdx))
		}
		if d.N, err = strconv.Atoi(cell(r, nIdx)); err != nil {
			return nil, fmt.Errorf("row %d: bad n %q", i+2, cell(r, nIdx))
		}
		out = append(out, d)
	}
	return out, nil
}
