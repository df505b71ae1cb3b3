package session

import (
	"context"
	"fmt"
	"sort"

	"tandem/internal/access"
	"tandem/internal/puzzle"
	"tandem/internal/state"
	"tandem/internal/stats"
)

// ArchiveLister lists past puzzle summaries for an inclusive number range.
type ArchiveLister interface {
	ListArchive(ctx context.Context, variant string, from, to int) ([]puzzle.Summary, error)
}

// ArchiveEntry is one row of the archive browser: puzzle identity annotated
// with the player's recorded outcome and the access decision.
type ArchiveEntry struct {
	Number     int    `json:"number"`
	Date       string `json:"date"`
	Status     string `json:"status"`
	Accessible bool   `json:"accessible"`
}

// Archive answers archive queries for one variant. Access decisions run
// against the cached subscription flag, never the network.
type Archive struct {
	variant    string
	epoch      string
	lister     ArchiveLister
	store      state.Store
	gate       *access.Gate
	dateSource func() string
}

func NewArchive(variant, epoch string, lister ArchiveLister, store state.Store, gate *access.Gate, dateSource func() string) *Archive {
	return &Archive{
		variant:    variant,
		epoch:      epoch,
		lister:     lister,
		store:      store,
		gate:       gate,
		dateSource: dateSource,
	}
}

// List fetches the archive window [from, to] (civil dates, inclusive) and
// annotates each puzzle with its status and accessibility, newest first. The
// catalog is addressed by number range, so the dates are translated through
// the variant epoch first.
func (a *Archive) List(ctx context.Context, from, to string) ([]ArchiveEntry, error) {
	fromNumber, err := puzzle.NumberForDate(a.epoch, from)
	if err != nil {
		return nil, fmt.Errorf("resolve range start: %w", err)
	}
	if fromNumber < 1 {
		fromNumber = 1
	}
	toNumber, err := puzzle.NumberForDate(a.epoch, to)
	if err != nil {
		return nil, fmt.Errorf("resolve range end: %w", err)
	}
	summaries, err := a.lister.ListArchive(ctx, a.variant, fromNumber, toNumber)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	history, err := a.store.HistoryMap(ctx, a.variant)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	todayNumber, err := puzzle.NumberForDate(a.epoch, a.dateSource())
	if err != nil {
		return nil, fmt.Errorf("resolve today: %w", err)
	}
	entries := make([]ArchiveEntry, 0, len(summaries))
	for _, s := range summaries {
		status := stats.StatusNotPlayed
		if h, ok := history[s.Date]; ok {
			status = h.Status
		}
		entries = append(entries, ArchiveEntry{
			Number:     s.Number,
			Date:       s.Date,
			Status:     status,
			Accessible: a.gate.Accessible(s.Number, todayNumber),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date > entries[j].Date })
	return entries, nil
}

// Status reports the recorded outcome for a date.
func (a *Archive) Status(ctx context.Context, date string) (string, error) {
	e, err := a.store.GetHistory(ctx, a.variant, date)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	if e == nil {
		return stats.StatusNotPlayed, nil
	}
	return e.Status, nil
}

// Accessible answers the gate for a single puzzle number.
func (a *Archive) Accessible(number int) (bool, error) {
	todayNumber, err := puzzle.NumberForDate(a.epoch, a.dateSource())
	if err != nil {
		return false, fmt.Errorf("resolve today: %w", err)
	}
	return a.gate.Accessible(number, todayNumber), nil
}

// Summary is the aggregate stats view surfaced on the stats screen.
type Summary struct {
	Played            int     `json:"played"`
	Wins              int     `json:"wins"`
	WinRate           float64 `json:"win_rate"`
	CurrentStreak     int     `json:"current_streak"`
	BestStreak        int     `json:"best_streak"`
	LastCompletedDate string  `json:"last_completed_date,omitempty"`
}

// StatsSummary reads the persisted aggregate, recomputing from history when
// the stored row is missing or inconsistent.
func StatsSummary(ctx context.Context, store state.Store, variant string) (Summary, error) {
	st, err := store.LoadStats(ctx, variant)
	if err != nil {
		return Summary{}, fmt.Errorf("load stats: %w", err)
	}
	return Summary{
		Played:            st.Played,
		Wins:              st.Wins,
		WinRate:           st.WinRate(),
		CurrentStreak:     st.CurrentStreak,
		BestStreak:        st.BestStreak,
		LastCompletedDate: st.LastCompletedDate,
	}, nil
}
