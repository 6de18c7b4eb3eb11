// Package dataset writes the scoring report workbook and reads it back.
package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"yt-transcripts-go/internal/aggregator"
	"yt-transcripts-go/internal/types"
)

const (
	DailySheet  = "daily"
	ScoresSheet = "scores"
	dateLayout  = "2006-01-02"
)

var (
	dailyHeader  = []any{"dt", "sentiment_avg", "fairness_avg", "n"}
	scoresHeader = []any{"dt", "text", "sentiment", "fairness", "notes"}
)

// WriteReport saves the daily series and the per-text scores as two sheets
// of one xlsx workbook at path.
func WriteReport(path string, days []aggregator.DailyScore, rows []types.ScoreRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DailySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRow(f, DailySheet, 1, dailyHeader); err != nil {
		return err
	}
	for i, d := range days {
		if err := writeRow(f, DailySheet, i+2, []any{d.Date.Format(dateLayout), d.SentimentAvg, d.FairnessAvg, d.N}); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(ScoresSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	if err := writeRow(f, ScoresSheet, 1, scoresHeader); err != nil {
		return err
	}
	for i, r := range rows {
		if err := writeRow(f, ScoresSheet, i+2, []any{r.Date.Format(dateLayout), r.Text, r.Sentiment, r.Fairness, r.Notes}); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
	}
	return nil
}
