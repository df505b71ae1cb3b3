package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tandem/internal/stats"
)

// ErrQuotaExceeded marks a persistence write rejected for lack of space.
// Callers treat it as a warning: the in-memory session stays authoritative.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS history (
			variant TEXT NOT NULL,
			date TEXT NOT NULL,
			status TEXT NOT NULL,
			elapsed INTEGER NOT NULL DEFAULT 0,
			mistakes INTEGER NOT NULL DEFAULT 0,
			hints_used INTEGER NOT NULL DEFAULT 0,
			solved_count INTEGER NOT NULL DEFAULT 0,
			theme TEXT NOT NULL DEFAULT '',
			updated_ts TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY(variant, date)
		);`,
		`CREATE TABLE IF NOT EXISTS variant_stats (
			variant TEXT PRIMARY KEY,
			played INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			current_streak INTEGER NOT NULL DEFAULT 0,
			best_streak INTEGER NOT NULL DEFAULT 0,
			last_completed_date TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS prefs (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_ts TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_status ON history(variant, status);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) UpsertHistory(ctx context.Context, variant, date string, e stats.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history(variant, date, status, elapsed, mistakes, hints_used, solved_count, theme, updated_ts)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(variant, date) DO UPDATE SET
			status = excluded.status,
			elapsed = excluded.elapsed,
			mistakes = excluded.mistakes,
			hints_used = excluded.hints_used,
			solved_count = excluded.solved_count,
			theme = CASE WHEN excluded.theme <> '' THEN excluded.theme ELSE history.theme END,
			updated_ts = excluded.updated_ts
	`, variant, date, e.Status, e.Elapsed, e.Mistakes, e.HintsUsed, e.SolvedCount, e.Theme,
		time.Now().UTC().Format(timeLayout))
	return wrapWriteErr(err)
}

// MarkAttempted records the first-touch marker for a session without
// overwriting a terminal outcome already on disk.
func (s *SQLiteStore) MarkAttempted(ctx context.Context, variant, date string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history(variant, date, status, updated_ts)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(variant, date) DO UPDATE SET
			status = excluded.status,
			updated_ts = excluded.updated_ts
		WHERE history.status NOT IN (?, ?)
	`, variant, date, stats.StatusAttempted, time.Now().UTC().Format(timeLayout),
		stats.StatusCompleted, stats.StatusFailed)
	return wrapWriteErr(err)
}

func (s *SQLiteStore) GetHistory(ctx context.Context, variant, date string) (*stats.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT status, elapsed, mistakes, hints_used, solved_count, theme
		FROM history WHERE variant = ? AND date = ?
	`, variant, date)
	var e stats.Entry
	if err := row.Scan(&e.Status, &e.Elapsed, &e.Mistakes, &e.HintsUsed, &e.SolvedCount, &e.Theme); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	e = e.Reconciled()
	return &e, nil
}

func (s *SQLiteStore) HistoryMap(ctx context.Context, variant string) (map[string]stats.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, status, elapsed, mistakes, hints_used, solved_count, theme
		FROM history WHERE variant = ?
	`, variant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]stats.Entry{}
	for rows.Next() {
		var (
			date string
			e    stats.Entry
		)
		if err := rows.Scan(&date, &e.Status, &e.Elapsed, &e.Mistakes, &e.HintsUsed, &e.SolvedCount, &e.Theme); err != nil {
			return nil, err
		}
		out[date] = e.Reconciled()
	}
	return out, rows.Err()
}

// CompletedDates returns the set of dates finished with a win, for the
// admire-mode routing check on load.
func (s *SQLiteStore) CompletedDates(ctx context.Context, variant string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date FROM history WHERE variant = ? AND status = ? AND elapsed >= 0
	`, variant, stats.StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		out[date] = true
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveStats(ctx context.Context, variant string, st stats.Stats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO variant_stats(variant, played, wins, current_streak, best_streak, last_completed_date)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(variant) DO UPDATE SET
			played = excluded.played,
			wins = excluded.wins,
			current_streak = excluded.current_streak,
			best_streak = excluded.best_streak,
			last_completed_date = excluded.last_completed_date
	`, variant, st.Played, st.Wins, st.CurrentStreak, st.BestStreak, st.LastCompletedDate)
	return wrapWriteErr(err)
}

func (s *SQLiteStore) GetStats(ctx context.Context, variant string) (*stats.Stats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT played, wins, current_streak, best_streak, last_completed_date
		FROM variant_stats WHERE variant = ?
	`, variant)
	var st stats.Stats
	if err := row.Scan(&st.Played, &st.Wins, &st.CurrentStreak, &st.BestStreak, &st.LastCompletedDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// LoadStats returns the persisted aggregates, recomputing them from history
// when the row is missing or disagrees with the history table. History is
// written before stats on completion, so after a partial write history wins.
func (s *SQLiteStore) LoadStats(ctx context.Context, variant string) (stats.Stats, error) {
	history, err := s.HistoryMap(ctx, variant)
	if err != nil {
		return stats.Stats{}, err
	}
	expect := stats.Recompute(history)
	persisted, err := s.GetStats(ctx, variant)
	if err != nil {
		return stats.Stats{}, err
	}
	if persisted == nil || persisted.Played != expect.Played || persisted.Wins != expect.Wins {
		return expect, nil
	}
	return *persisted, nil
}

func (s *SQLiteStore) SetPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return wrapWriteErr(err)
}

func (s *SQLiteStore) GetPref(ctx context.Context, key string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

func (s *SQLiteStore) LoadPrefs(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM prefs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Get reads an opaque JSON value from the generic namespace. Missing keys
// return false without touching dst.
func (s *SQLiteStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if dst == nil {
		return true, nil
	}
	return true, json.Unmarshal([]byte(raw), dst)
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv(key, value, updated_ts) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_ts = excluded.updated_ts
	`, key, string(raw), time.Now().UTC().Format(timeLayout))
	return wrapWriteErr(err)
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return wrapWriteErr(err)
}

func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv WHERE key LIKE ? ORDER BY key`, prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func wrapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "database or disk is full") {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}
