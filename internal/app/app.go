// Package app assembles the runtime: persistence, write queue, telemetry,
// catalog client, lifecycle plumbing and one session engine per variant.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"tandem/internal/access"
	"tandem/internal/catalog"
	"tandem/internal/lifecycle"
	"tandem/internal/puzzle"
	"tandem/internal/session"
	"tandem/internal/state"
	"tandem/internal/telemetry"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	cfg Config

	Logger    *telemetry.Logger
	Store     *state.SQLiteStore
	Prefs     *state.Prefs
	Queue     *state.WriteQueue
	Catalog   *catalog.Client
	Bridge    *lifecycle.Bridge
	Scheduler *lifecycle.Scheduler

	gates   map[string]*access.Gate
	engines map[string]*session.Engine
}

// New wires the app from a validated config. The scheduler is started; the
// caller drives engines through Engine and feeds lifecycle signals through
// Bridge.
func New(cfg Config) (*App, error) {
	logger, err := telemetry.NewLogger(cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("open telemetry log: %w", err)
	}
	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "tandem.db"))
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		store.Close()
		logger.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	a := &App{
		cfg:     cfg,
		Logger:  logger,
		Store:   store,
		Prefs:   state.NewPrefs(store),
		Queue:   state.NewWriteQueue(0),
		Bridge:  lifecycle.NewBridge(),
		gates:   map[string]*access.Gate{},
		engines: map[string]*session.Engine{},
	}

	a.Scheduler, err = lifecycle.NewScheduler(cfg.RolloverTimezone, time.Now, a.Bridge)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	a.Catalog = catalog.New(cfg.CatalogURL, a.Scheduler.CurrentPuzzleDate, logger)

	variants := map[string]VariantConfig{
		puzzle.VariantTandem:  cfg.Tandem,
		puzzle.VariantCryptic: cfg.Cryptic,
	}
	for variant, vc := range variants {
		gate := access.NewGate(access.Rule{
			FreeWindowDays:  vc.FreeWindowDays,
			TodayAlwaysFree: vc.TodayAlwaysFree,
		})
		gate.SetSubscribed(cfg.Subscribed)
		a.gates[variant] = gate

		eng, err := session.New(session.Config{
			Variant:              variant,
			Epoch:                vc.Epoch,
			MistakeBudget:        cfg.Gameplay.MistakeBudget,
			InitialHintCredits:   cfg.Gameplay.InitialHintCredits,
			HintEarnEvery:        cfg.Gameplay.HintEarnEvery,
			MaxHints:             cfg.Gameplay.MaxHints,
			HardModeLimitSeconds: cfg.Gameplay.HardModeLimitSeconds,
		}, session.Deps{
			Loader:     a.Catalog,
			Store:      store,
			Queue:      a.Queue,
			Gate:       gate,
			Logger:     logger,
			DateSource: a.Scheduler.CurrentPuzzleDate,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init %s engine: %w", variant, err)
		}
		a.Bridge.Subscribe(eng)
		a.engines[variant] = eng
	}

	a.Scheduler.Start()
	return a, nil
}

// Engine returns the session engine for a variant, nil when unknown.
func (a *App) Engine(variant string) *session.Engine { return a.engines[variant] }

// Gate returns the archive access gate for a variant.
func (a *App) Gate(variant string) *access.Gate { return a.gates[variant] }

// Archive builds the archive browser for a variant.
func (a *App) Archive(variant string) *session.Archive {
	vc := a.cfg.Tandem
	if variant == puzzle.VariantCryptic {
		vc = a.cfg.Cryptic
	}
	return session.NewArchive(variant, vc.Epoch, a.Catalog, a.Store, a.gates[variant], a.Scheduler.CurrentPuzzleDate)
}

// NotifyForeground forwards a host resume: the scheduler fires a missed
// rollover first, then engines resume their clocks.
func (a *App) NotifyForeground() {
	a.Scheduler.Foreground()
	a.Bridge.NotifyForeground()
}

// NotifyBackground forwards a host suspend to every engine.
func (a *App) NotifyBackground() {
	a.Bridge.NotifyBackground()
}

// SetSubscribed publishes a subscription change to every gate.
func (a *App) SetSubscribed(active bool) {
	for _, g := range a.gates {
		g.SetSubscribed(active)
	}
}

// Close drains pending writes before releasing the store, so a completion
// recorded moments before shutdown is never lost.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Logger != nil {
		a.Logger.Close()
	}
}
