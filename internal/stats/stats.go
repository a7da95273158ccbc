// Package stats aggregates attempt history for the dashboard.
package stats

import (
	"slices"
	"sort"
	"time"

	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/store"
)

// DefaultTrendLen is how many recent attempts a topic trend shows.
const DefaultTrendLen = 10

// ModeStats summarizes one (topic, mode) pair.
type ModeStats struct {
	Topic      string
	Mode       quiz.Mode
	Attempts   int
	Best       int
	Total      int // question count of the best attempt
	AveragePct float64
	Last       int
	LastAt     time.Time
	AutoCount  int // attempts submitted by the timer
}

// BestPct returns the best score as a fraction of its total.
func (m ModeStats) BestPct() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Best) / float64(m.Total)
}

// Trend is a topic's recent percentages, oldest first.
type Trend struct {
	Topic   string
	Percent []float64
}

// Dashboard is the aggregated view of a learner's history.
type Dashboard struct {
	Attempts    int
	Topics      int
	AveragePct  float64
	Undelivered int
	Rows        []ModeStats
	Trends      []Trend
}

// Row returns the stats for (topic, mode).
func (d Dashboard) Row(topic string, mode quiz.Mode) (ModeStats, bool) {
	for _, r := range d.Rows {
		if r.Topic == topic && r.Mode == mode {
			return r, true
		}
	}
	return ModeStats{}, false
}

type key struct {
	topic string
	mode  quiz.Mode
}

// Aggregate builds a Dashboard from attempts in any order. Trends keep
// the last trendLen attempts per topic; trendLen <= 0 selects
// DefaultTrendLen.
func Aggregate(records []store.AttemptRecord, trendLen int) Dashboard {
	if trendLen <= 0 {
		trendLen = DefaultTrendLen
	}

	// Oldest first so "last" and trends fall out of a single pass.
	sorted := slices.Clone(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})

	var (
		d       Dashboard
		rows    = make(map[key]*ModeStats)
		pctSum  = make(map[key]float64)
		trends  = make(map[string][]float64)
		overall float64
	)
	for _, rec := range sorted {
		r := rec.Result
		k := key{r.Topic, r.Mode}
		ms, ok := rows[k]
		if !ok {
			ms = &ModeStats{Topic: r.Topic, Mode: r.Mode}
			rows[k] = ms
		}
		ms.Attempts++
		if ms.Attempts == 1 || r.Score > ms.Best {
			ms.Best = r.Score
			ms.Total = r.Total
		}
		ms.Last = r.Score
		ms.LastAt = r.SubmittedAt
		if r.Auto {
			ms.AutoCount++
		}

		pct := r.Percent()
		pctSum[k] += pct
		overall += pct
		trends[r.Topic] = append(trends[r.Topic], pct)

		d.Attempts++
		if !r.Delivered {
			d.Undelivered++
		}
	}

	for k, ms := range rows {
		ms.AveragePct = pctSum[k] / float64(ms.Attempts)
		d.Rows = append(d.Rows, *ms)
	}
	sort.Slice(d.Rows, func(i, j int) bool {
		if d.Rows[i].Topic != d.Rows[j].Topic {
			return d.Rows[i].Topic < d.Rows[j].Topic
		}
		return modeRank(d.Rows[i].Mode) < modeRank(d.Rows[j].Mode)
	})

	for topic, pcts := range trends {
		if len(pcts) > trendLen {
			pcts = pcts[len(pcts)-trendLen:]
		}
		d.Trends = append(d.Trends, Trend{Topic: topic, Percent: pcts})
	}
	sort.Slice(d.Trends, func(i, j int) bool { return d.Trends[i].Topic < d.Trends[j].Topic })

	d.Topics = len(trends)
	if d.Attempts > 0 {
		d.AveragePct = overall / float64(d.Attempts)
	}
	return d
}

func modeRank(m quiz.Mode) int {
	for i, known := range quiz.Modes {
		if known == m {
			return i
		}
	}
	return len(quiz.Modes)
}
