// Package aggregator rolls per-text scores up into a daily time series.
package aggregator

import (
	"sort"
	"time"

	"yt-transcripts-go/internal/types"
)

type DailyScore struct {
	Date         time.Time `json:"dt"`
	SentimentAvg float64   `json:"sentiment_avg"`
	FairnessAvg  float64   `json:"fairness_avg"`
	N            int       `json:"n"`
}

// Daily groups rows by calendar day (UTC) and averages both scores. The
// result is sorted by date ascending.
func Daily(rows []types.ScoreRow) []DailyScore {
	type acc struct {
		sentiment, fairness float64
		n                   int
	}
	byDay := map[time.Time]*acc{}
	for _, r := range rows {
		y, m, d := r.Date.UTC().Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		a := byDay[day]
		if a == nil {
			a = &acc{}
			byDay[day] = a
		}
		a.sentiment += r.Sentiment
		a.fairness += r.Fairness
		a.n++
	}

	out := make([]DailyScore, 0, len(byDay))
	for day, a := range byDay {
		out = append(out, DailyScore{
			Date:         day,
			SentimentAvg: a.sentiment / float64(a.n),
			FairnessAvg:  a.fairness / float64(a.n),
			N:            a.n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Change is the movement of one day between two reports. Added is set for
// days the previous report did not have.
type Change struct {
	Date           time.Time
	SentimentDelta float64
	FairnessDelta  float64
	NDelta         int
	Added          bool
}

// Changes compares cur against prev day by day and returns the days whose
// values moved or that are new, in cur order.
func Changes(prev, cur []DailyScore) []Change {
	before := make(map[time.Time]DailyScore, len(prev))
	for _, d := range prev {
		before[d.Date.UTC()] = d
	}
	var out []Change
	for _, d := range cur {
		p, ok := before[d.Date.UTC()]
		if !ok {
			out = append(out, Change{Date: d.Date, SentimentDelta: d.SentimentAvg, FairnessDelta: d.FairnessAvg, NDelta: d.N, Added: true})
			continue
		}
		c := Change{
			Date:           d.Date,
			SentimentDelta: d.SentimentAvg - p.SentimentAvg,
			FairnessDelta:  d.FairnessAvg - p.FairnessAvg,
			NDelta:         d.N - p.N,
		}
		if c.SentimentDelta != 0 || c.FairnessDelta != 0 || c.NDelta != 0 {
			out = append(out, c)
		}
	}
	return out
}
