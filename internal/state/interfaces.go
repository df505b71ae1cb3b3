package state

import (
	"context"

	"tandem/internal/stats"
)

// Store is the durable per-variant persistence contract the session engine
// writes through. Single-key writes are atomic; the completion sequence
// (history first, then stats) is ordered by the write queue.
type Store interface {
	EnsureSchema(ctx context.Context) error

	UpsertHistory(ctx context.Context, variant, date string, e stats.Entry) error
	MarkAttempted(ctx context.Context, variant, date string) error
	GetHistory(ctx context.Context, variant, date string) (*stats.Entry, error)
	HistoryMap(ctx context.Context, variant string) (map[string]stats.Entry, error)
	CompletedDates(ctx context.Context, variant string) (map[string]bool, error)

	SaveStats(ctx context.Context, variant string, st stats.Stats) error
	GetStats(ctx context.Context, variant string) (*stats.Stats, error)
	LoadStats(ctx context.Context, variant string) (stats.Stats, error)

	SetPref(ctx context.Context, key, value string) error
	GetPref(ctx context.Context, key string) (string, error)
	LoadPrefs(ctx context.Context) (map[string]string, error)

	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}
