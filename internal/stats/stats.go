// Package stats holds the per-variant aggregate records and the streak rules
// applied when a session completes.
package stats

import (
	"sort"
	"time"
)

const (
	StatusNotPlayed = "not_played"
	StatusAttempted = "attempted"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Entry is one day's outcome in the per-variant history.
type Entry struct {
	Status      string `json:"status"`
	Elapsed     int    `json:"elapsed"`
	Mistakes    int    `json:"mistakes"`
	HintsUsed   int    `json:"hints_used"`
	SolvedCount int    `json:"solved_count"`
	Theme       string `json:"theme,omitempty"`
}

// Reconciled downgrades an inconsistent persisted entry: a terminal status
// with a missing elapsed (recorded as a negative value) is treated as
// attempted on the next load.
func (e Entry) Reconciled() Entry {
	if (e.Status == StatusCompleted || e.Status == StatusFailed) && e.Elapsed < 0 {
		e.Status = StatusAttempted
		e.Elapsed = 0
	}
	return e
}

// Stats is the per-variant aggregate record.
type Stats struct {
	Played            int    `json:"played"`
	Wins              int    `json:"wins"`
	CurrentStreak     int    `json:"current_streak"`
	BestStreak        int    `json:"best_streak"`
	LastCompletedDate string `json:"last_completed_date"`
}

// WinRate reports wins over played, 0 when nothing was played.
func (s Stats) WinRate() float64 {
	if s.Played == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Played)
}

// ApplyCompletion folds one finished session into the aggregates. Only
// completed and failed outcomes count toward played; an attempted entry never
// reaches this function. A win on the day after the previous completed win
// extends the streak, anything else restarts or breaks it.
func ApplyCompletion(s Stats, date string, won bool) Stats {
	s.Played++
	if !won {
		s.CurrentStreak = 0
		return s
	}
	s.Wins++
	if s.LastCompletedDate != "" && nextDay(s.LastCompletedDate) == date {
		s.CurrentStreak++
	} else {
		s.CurrentStreak = 1
	}
	if s.CurrentStreak > s.BestStreak {
		s.BestStreak = s.CurrentStreak
	}
	s.LastCompletedDate = date
	return s
}

// Recompute rebuilds aggregates from history, date-ordered. Used when the
// stats row is missing or inconsistent: history is authoritative.
func Recompute(history map[string]Entry) Stats {
	dates := make([]string, 0, len(history))
	for d := range history {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	var s Stats
	for _, d := range dates {
		switch history[d].Status {
		case StatusCompleted:
			s = ApplyCompletion(s, d, true)
		case StatusFailed:
			s = ApplyCompletion(s, d, false)
		}
	}
	return s
}

func nextDay(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02")
}
