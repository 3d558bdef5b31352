package behavior

import (
	"math"
	"time"
)

const (
	// ScoreWindow is the trailing window used for progression decisions.
	ScoreWindow = 30 * 24 * time.Hour
	// CriticalLookback is the window for the repeated-critical regression check.
	CriticalLookback = 7 * 24 * time.Hour
)

var weights = map[Severity]float64{
	Critical: 15,
	Warning:  8,
	Info:     3,
}

func recency(age time.Duration) float64 {
	days := age.Hours() / 24
	switch {
	case days <= 1:
		return 1.0
	case days <= 7:
		return 0.7
	case days <= 30:
		return 0.4
	default:
		return 0.1
	}
}

// Score is 100 minus the recency-weighted severity of every flag, clamped
// to [0, 100]. Resolved flags still count.
func Score(flags []Flag, now time.Time) int {
	var penalty float64
	for _, f := range flags {
		penalty += weights[f.Severity] * recency(now.Sub(f.DetectedAt))
	}
	s := math.Floor(100 - penalty + 0.5)
	return int(math.Max(0, math.Min(100, s)))
}

// WindowedScore scores only the flags detected within window of now.
func WindowedScore(flags []Flag, now time.Time, window time.Duration) int {
	return Score(Since(flags, now.Add(-window)), now)
}

// Since keeps flags detected at or after t.
func Since(flags []Flag, t time.Time) []Flag {
	out := make([]Flag, 0, len(flags))
	for _, f := range flags {
		if !f.DetectedAt.Before(t) {
			out = append(out, f)
		}
	}
	return out
}

func CountCritical(flags []Flag, since time.Time) int {
	n := 0
	for _, f := range Since(flags, since) {
		if f.Severity == Critical {
			n++
		}
	}
	return n
}
