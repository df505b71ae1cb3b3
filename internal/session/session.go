// Package session is the game engine: a deterministic state machine driving
// one puzzle session from load through play to completion. Inputs are user
// commands, clock ticks, lifecycle signals and loader deliveries; outputs are
// observable snapshots and persistence writes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tandem/internal/access"
	"tandem/internal/catalog"
	"tandem/internal/clock"
	"tandem/internal/evaluate"
	"tandem/internal/hints"
	"tandem/internal/puzzle"
	"tandem/internal/state"
	"tandem/internal/stats"
	"tandem/internal/telemetry"
)

// Phase is the session's top-level state.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseWelcome
	PhasePlaying
	PhaseAdmire
	PhaseComplete
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseWelcome:
		return "welcome"
	case PhasePlaying:
		return "playing"
	case PhaseAdmire:
		return "admire"
	case PhaseComplete:
		return "complete"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Config carries the immutable rule set for one variant's engine.
type Config struct {
	Variant              string
	Epoch                string // date of puzzle #1, for archive numbering
	MistakeBudget        int    // tandem
	InitialHintCredits   int    // tandem
	HintEarnEvery        int    // tandem
	MaxHints             int    // cryptic
	HardModeLimitSeconds int
}

func (c *Config) applyDefaults() {
	if c.MistakeBudget <= 0 {
		c.MistakeBudget = 4
	}
	if c.InitialHintCredits <= 0 {
		c.InitialHintCredits = 1
	}
	if c.HintEarnEvery <= 0 {
		c.HintEarnEvery = 2
	}
	if c.MaxHints <= 0 {
		c.MaxHints = puzzle.CrypticHints
	}
	if c.HardModeLimitSeconds <= 0 {
		c.HardModeLimitSeconds = 120
	}
}

// Loader is the slice of the catalog client the engine needs.
type Loader interface {
	Load(variant string, sel catalog.Selector, deliver func(catalog.Result)) uint64
	Latest(variant string) uint64
}

// Deps are the injected collaborators. The engine never reaches out to
// process-wide singletons, so it is testable in isolation.
type Deps struct {
	Loader     Loader
	Store      state.Store
	Queue      *state.WriteQueue
	Gate       *access.Gate
	Logger     *telemetry.Logger
	Now        func() time.Time
	DateSource func() string // today's civil date in the rollover timezone
}

const hardModePrefKey = "hard_mode"

// Engine owns all mutable session state. All entry points serialize on one
// mutex, which stands in for the single task loop of the host environment.
type Engine struct {
	cfg  Config
	deps Deps

	mu    sync.Mutex
	runID string
	phase Phase
	puz   *puzzle.Puzzle
	clk   *clock.Clock

	answers []string
	correct []bool
	wrong   []bool
	locked  []map[int]rune
	hinted  []bool

	mistakes         int
	attempts         int
	hardMode         bool
	hardModeTimedOut bool
	won              bool
	nearMiss         bool
	loadErr          error

	tandemHints  *hints.TandemEngine
	crypticHints *hints.CrypticEngine

	attemptedMarked bool
	rolloverPending bool
	backgroundDepth int

	completed map[string]bool

	observer func(Snapshot)
}

func New(cfg Config, deps Deps) (*Engine, error) {
	cfg.applyDefaults()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Loader == nil || deps.Store == nil || deps.Queue == nil || deps.Gate == nil || deps.DateSource == nil {
		return nil, errors.New("session: missing dependency")
	}
	e := &Engine{
		cfg:       cfg,
		deps:      deps,
		phase:     PhaseLoading,
		clk:       clock.New(deps.Now),
		completed: map[string]bool{},
	}
	e.resetPlayStateLocked()
	ctx := context.Background()
	completed, err := deps.Store.CompletedDates(ctx, cfg.Variant)
	if err != nil {
		deps.Logger.Warn("session.completed_load_failed", map[string]any{"variant": cfg.Variant, "error": err.Error()})
	} else {
		e.completed = completed
	}
	if v, err := deps.Store.GetPref(ctx, cfg.Variant+"/"+hardModePrefKey); err == nil {
		e.hardMode = v == "true"
	}
	return e, nil
}

// Observe registers the snapshot observer. Snapshots are immutable copies
// emitted on every transition.
func (e *Engine) Observe(fn func(Snapshot)) {
	e.mu.Lock()
	e.observer = fn
	snap := e.snapshotLocked()
	e.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// ErrLocked means the archive gate refused the selected puzzle.
var ErrLocked = errors.New("puzzle locked behind subscription")

// LoadToday enters LOADING for today's puzzle.
func (e *Engine) LoadToday() {
	e.SelectPuzzle(catalog.Today())
}

// SelectPuzzle aborts any in-flight session and loads the named puzzle. The
// archive gate is consulted first; a refused selection leaves the current
// state untouched. A deliberate mid-play abandonment is recorded as
// attempted, never failed.
func (e *Engine) SelectPuzzle(sel catalog.Selector) error {
	if !e.selectorAccessible(sel) {
		return ErrLocked
	}
	e.mu.Lock()
	if e.phase == PhasePlaying {
		e.abortLocked()
	}
	e.phase = PhaseLoading
	e.loadErr = nil
	e.publishLocked()
	e.mu.Unlock()

	e.deps.Loader.Load(e.cfg.Variant, sel, e.handleLoad)
	return nil
}

// selectorAccessible runs the archive gate against the selection. Today's
// puzzle is always loadable; an unparseable date fails closed.
func (e *Engine) selectorAccessible(sel catalog.Selector) bool {
	number := sel.Number
	if number == 0 && sel.Date != "" {
		n, err := puzzle.NumberForDate(e.cfg.Epoch, sel.Date)
		if err != nil {
			return false
		}
		number = n
	}
	if number == 0 {
		return true
	}
	todayNumber, err := puzzle.NumberForDate(e.cfg.Epoch, e.deps.DateSource())
	if err != nil {
		return false
	}
	return e.deps.Gate.Accessible(number, todayNumber)
}

// Retry re-issues the last failed load. Only meaningful in PhaseError.
func (e *Engine) Retry(sel catalog.Selector) {
	e.mu.Lock()
	if e.phase != PhaseError {
		e.mu.Unlock()
		return
	}
	e.phase = PhaseLoading
	e.loadErr = nil
	e.publishLocked()
	e.mu.Unlock()

	e.deps.Loader.Load(e.cfg.Variant, sel, e.handleLoad)
}

func (e *Engine) handleLoad(r catalog.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r.Gen != e.deps.Loader.Latest(r.Variant) {
		e.deps.Logger.Info("session.load_discarded", map[string]any{"gen": r.Gen, "selector": r.Selector.String()})
		return
	}
	if r.Err != nil {
		e.deps.Logger.Error("session.load_failed", map[string]any{"selector": r.Selector.String(), "error": r.Err.Error()})
		e.phase = PhaseError
		e.loadErr = r.Err
		e.publishLocked()
		return
	}
	e.puz = r.Puzzle
	if e.completed[r.Puzzle.Date] {
		e.enterAdmireLocked()
		return
	}
	e.phase = PhaseWelcome
	e.resetPlayStateLocked()
	e.publishLocked()
}

// UsePreloaded seeds the engine with the bundled cold-start puzzle, entering
// WELCOME without a network round trip.
func (e *Engine) UsePreloaded(p *puzzle.Puzzle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.puz = p
	if e.completed[p.Date] {
		e.enterAdmireLocked()
		return
	}
	e.phase = PhaseWelcome
	e.resetPlayStateLocked()
	e.publishLocked()
}

// Start begins play from WELCOME.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseWelcome || e.puz == nil {
		return
	}
	e.beginPlayLocked()
}

// Replay restarts the current puzzle as a fresh session from COMPLETE or
// ADMIRE. Earlier history for the date is preserved until the new session
// reaches its own outcome.
func (e *Engine) Replay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if (e.phase != PhaseComplete && e.phase != PhaseAdmire) || e.puz == nil {
		return
	}
	e.beginPlayLocked()
}

// ReturnHome leaves COMPLETE for WELCOME, keeping the puzzle available for
// re-open. A rollover deferred during play is applied here.
func (e *Engine) ReturnHome() {
	e.mu.Lock()
	if e.phase != PhaseComplete && e.phase != PhaseAdmire {
		e.mu.Unlock()
		return
	}
	reload := e.rolloverPending
	e.rolloverPending = false
	e.phase = PhaseWelcome
	e.resetPlayStateLocked()
	e.publishLocked()
	e.mu.Unlock()

	if reload {
		e.SelectPuzzle(catalog.Today())
	}
}

func (e *Engine) beginPlayLocked() {
	e.runID = uuid.NewString()
	e.phase = PhasePlaying
	e.resetPlayStateLocked()
	e.clk.Reset()
	e.clk.Start()
	if e.backgroundDepth > 0 {
		e.clk.Pause()
	}
	e.deps.Logger.Info("session.start", map[string]any{
		"run":       e.runID,
		"variant":   e.cfg.Variant,
		"date":      e.puz.Date,
		"hard_mode": e.hardMode,
	})
	e.publishLocked()
}

func (e *Engine) resetPlayStateLocked() {
	n := 1
	if e.puz != nil && e.puz.Variant == puzzle.VariantTandem {
		n = len(e.puz.Tandem.Items)
	}
	e.answers = make([]string, n)
	e.correct = make([]bool, n)
	e.wrong = make([]bool, n)
	e.hinted = make([]bool, n)
	e.locked = make([]map[int]rune, n)
	for i := range e.locked {
		e.locked[i] = map[int]rune{}
	}
	e.mistakes = 0
	e.attempts = 0
	e.won = false
	e.nearMiss = false
	e.hardModeTimedOut = false
	e.attemptedMarked = false
	e.tandemHints = hints.NewTandem(e.cfg.InitialHintCredits, e.cfg.HintEarnEvery)
	e.crypticHints = hints.NewCryptic(e.cfg.MaxHints, puzzle.CrypticHints)
}

func (e *Engine) enterAdmireLocked() {
	e.phase = PhaseAdmire
	e.resetPlayStateLocked()
	switch e.puz.Variant {
	case puzzle.VariantTandem:
		for i, item := range e.puz.Tandem.Items {
			e.answers[i] = evaluate.Normalize(item.Answer)
			e.correct[i] = true
		}
	case puzzle.VariantCryptic:
		e.answers[0] = evaluate.Normalize(e.puz.Cryptic.Answer)
		e.correct[0] = true
	}
	e.publishLocked()
}

// UpdateAnswer replaces the working text for an item. Locked letters are
// reapplied over the edit so a previously revealed position can never be
// overwritten, and the item's wrong flag clears on edit.
func (e *Engine) UpdateAnswer(item int, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePlaying || item < 0 || item >= len(e.answers) || e.correct[item] {
		return
	}
	buf := []rune(evaluate.Normalize(text))
	for pos, r := range e.locked[item] {
		if pos < len(buf) {
			buf[pos] = r
		}
	}
	next := string(buf)
	if next == e.answers[item] && !e.wrong[item] {
		return
	}
	e.answers[item] = next
	e.wrong[item] = false
	e.publishLocked()
}

// CheckSingle evaluates one tandem item.
func (e *Engine) CheckSingle(item int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePlaying || e.puz == nil || e.puz.Variant != puzzle.VariantTandem {
		return
	}
	if item < 0 || item >= len(e.answers) || e.correct[item] {
		return
	}
	e.checkItemLocked(item)
	e.afterChecksLocked()
}

// CheckAll evaluates every unsolved tandem item in order and reports how
// many came back newly correct and newly incorrect.
func (e *Engine) CheckAll() (newlyCorrect, newlyIncorrect int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePlaying || e.puz == nil || e.puz.Variant != puzzle.VariantTandem {
		return 0, 0
	}
	before := e.mistakes
	for i := range e.answers {
		// The budget caps mistakes exactly; once spent, remaining items
		// stay unevaluated.
		if e.mistakes >= e.cfg.MistakeBudget {
			break
		}
		if !e.correct[i] {
			if e.checkItemLocked(i) {
				newlyCorrect++
			}
		}
	}
	newlyIncorrect = e.mistakes - before
	e.afterChecksLocked()
	return newlyCorrect, newlyIncorrect
}

func (e *Engine) checkItemLocked(item int) bool {
	res := evaluate.CheckItem(e.answers[item], e.puz.Tandem.Items[item].Answer)
	switch res.Verdict {
	case evaluate.Correct:
		e.correct[item] = true
		e.wrong[item] = false
		e.answers[item] = evaluate.Normalize(e.puz.Tandem.Items[item].Answer)
		e.tandemHints.NoteCorrect(e.hinted[item])
		return true
	case evaluate.Incorrect:
		e.wrong[item] = true
		e.mistakes++
		for pos, r := range res.Matched {
			e.locked[item][pos] = r
		}
		e.markAttemptedLocked()
	}
	// NotSubmitted is neither a mistake nor an attempt.
	return false
}

func (e *Engine) afterChecksLocked() {
	if e.phase != PhasePlaying {
		return
	}
	if e.allCorrectLocked() {
		e.completeLocked(true)
		return
	}
	if e.mistakes >= e.cfg.MistakeBudget {
		e.completeLocked(false)
		return
	}
	e.publishLocked()
}

// Check evaluates the cryptic answer buffer.
func (e *Engine) Check() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePlaying || e.puz == nil || e.puz.Variant != puzzle.VariantCryptic {
		return
	}
	res := evaluate.CheckBuffer(e.answers[0], e.puz.Cryptic.Answer)
	if res.Verdict == evaluate.NotSubmitted {
		return
	}
	e.attempts++
	e.nearMiss = res.NearMiss
	if res.Verdict == evaluate.Correct {
		e.correct[0] = true
		e.answers[0] = evaluate.Normalize(e.puz.Cryptic.Answer)
		e.completeLocked(true)
		return
	}
	e.wrong[0] = true
	e.markAttemptedLocked()
	e.publishLocked()
}

// UseHint spends a hint credit. For tandem, target is the item whose first
// letter is revealed; for cryptic, the hint index to unlock.
func (e *Engine) UseHint(target int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePlaying || e.puz == nil {
		return errors.New("no active session")
	}
	switch e.puz.Variant {
	case puzzle.VariantTandem:
		if target < 0 || target >= len(e.answers) {
			return fmt.Errorf("item %d out of range", target)
		}
		if err := e.tandemHints.Use(target, e.correct[target]); err != nil {
			return err
		}
		if first := evaluate.FirstLetter(e.puz.Tandem.Items[target].Answer); first != 0 {
			e.locked[target][0] = first
			buf := []rune(e.answers[target])
			if len(buf) == 0 {
				buf = []rune{first}
			} else {
				buf[0] = first
			}
			e.answers[target] = string(buf)
		}
		e.hinted[target] = true
	case puzzle.VariantCryptic:
		if err := e.crypticHints.Use(target); err != nil {
			return err
		}
	}
	e.markAttemptedLocked()
	e.publishLocked()
	return nil
}

// SetHardMode stores the hard-mode preference; it applies from the next
// session start.
func (e *Engine) SetHardMode(on bool) {
	e.mu.Lock()
	e.hardMode = on
	e.mu.Unlock()
	key := e.cfg.Variant + "/" + hardModePrefKey
	val := "false"
	if on {
		val = "true"
	}
	e.deps.Queue.Submit(func(ctx context.Context) error {
		return e.deps.Store.SetPref(ctx, key, val)
	}, e.persistCallback("prefs"))
}

// OnTick evaluates the hard-mode cap. The host calls it on a coarse ticker;
// pausing the clock also pauses cap evaluation.
func (e *Engine) OnTick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePlaying || !e.hardMode || !e.clk.Running() {
		return
	}
	if e.clk.Elapsed() >= e.cfg.HardModeLimitSeconds {
		e.hardModeTimedOut = true
		e.completeLocked(false)
	}
}

// Foreground balances a prior Background. Nested pairs are parity-counted so
// the clock never double-pauses or resumes early.
func (e *Engine) Foreground() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backgroundDepth == 0 {
		return
	}
	e.backgroundDepth--
	if e.backgroundDepth == 0 && e.phase == PhasePlaying {
		e.clk.Resume()
		e.publishLocked()
	}
}

func (e *Engine) Background() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.backgroundDepth++
	if e.backgroundDepth == 1 && e.phase == PhasePlaying {
		e.clk.Pause()
		e.publishLocked()
	}
}

// DailyRollover refreshes today's puzzle unless a session is mid-play, in
// which case the reload is deferred to the next exit from PLAYING.
func (e *Engine) DailyRollover() {
	e.mu.Lock()
	if e.phase == PhasePlaying {
		e.rolloverPending = true
		e.deps.Logger.Info("session.rollover_deferred", map[string]any{"variant": e.cfg.Variant})
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.SelectPuzzle(catalog.Today())
}

func (e *Engine) allCorrectLocked() bool {
	for _, ok := range e.correct {
		if !ok {
			return false
		}
	}
	return true
}

func (e *Engine) hintsUsedLocked() int {
	if e.puz != nil && e.puz.Variant == puzzle.VariantCryptic {
		return e.crypticHints.Used()
	}
	return e.tandemHints.Used()
}

func (e *Engine) solvedCountLocked() int {
	n := 0
	for _, ok := range e.correct {
		if ok {
			n++
		}
	}
	return n
}

// completeLocked freezes the session and persists the outcome: history
// first, then stats, in one queue submission order.
func (e *Engine) completeLocked(won bool) {
	if won && e.violatesWinInvariantLocked() {
		e.deps.Logger.Error("session.invariant_violation", map[string]any{"run": e.runID})
		e.phase = PhaseWelcome
		e.resetPlayStateLocked()
		e.publishLocked()
		return
	}
	e.clk.Pause()
	e.phase = PhaseComplete
	e.won = won

	status := stats.StatusFailed
	if won {
		status = stats.StatusCompleted
	}
	entry := stats.Entry{
		Status:      status,
		Elapsed:     e.clk.Elapsed(),
		Mistakes:    e.mistakes,
		HintsUsed:   e.hintsUsedLocked(),
		SolvedCount: e.solvedCountLocked(),
	}
	if won && e.puz.Variant == puzzle.VariantTandem {
		entry.Theme = e.puz.Tandem.Theme
	}
	date := e.puz.Date
	if won {
		e.completed[date] = true
	}
	variant := e.cfg.Variant

	e.deps.Queue.Submit(func(ctx context.Context) error {
		return e.deps.Store.UpsertHistory(ctx, variant, date, entry)
	}, e.persistCallback("history"))
	// Aggregates derive from history on the same serialized queue, so the
	// history write above is always visible here and a replayed date can
	// never double-count.
	e.deps.Queue.Submit(func(ctx context.Context) error {
		hist, err := e.deps.Store.HistoryMap(ctx, variant)
		if err != nil {
			return err
		}
		return e.deps.Store.SaveStats(ctx, variant, stats.Recompute(hist))
	}, e.persistCallback("stats"))

	e.deps.Logger.Info("session.complete", map[string]any{
		"run":      e.runID,
		"date":     date,
		"won":      won,
		"elapsed":  entry.Elapsed,
		"mistakes": entry.Mistakes,
		"timeout":  e.hardModeTimedOut,
	})
	e.publishLocked()
}

func (e *Engine) violatesWinInvariantLocked() bool {
	for i, ok := range e.correct {
		if ok && e.answers[i] == "" {
			return true
		}
	}
	return false
}

// abortLocked records a deliberate abandonment as attempted.
func (e *Engine) abortLocked() {
	e.clk.Pause()
	variant, date := e.cfg.Variant, e.puz.Date
	entry := stats.Entry{
		Status:      stats.StatusAttempted,
		Elapsed:     e.clk.Elapsed(),
		Mistakes:    e.mistakes,
		HintsUsed:   e.hintsUsedLocked(),
		SolvedCount: e.solvedCountLocked(),
	}
	// A replayed session abandoned mid-play must not downgrade an earlier
	// terminal outcome for the same date.
	e.deps.Queue.Submit(func(ctx context.Context) error {
		prev, err := e.deps.Store.GetHistory(ctx, variant, date)
		if err != nil {
			return err
		}
		if prev != nil && (prev.Status == stats.StatusCompleted || prev.Status == stats.StatusFailed) {
			return nil
		}
		return e.deps.Store.UpsertHistory(ctx, variant, date, entry)
	}, e.persistCallback("history"))
	e.deps.Logger.Info("session.aborted", map[string]any{"run": e.runID, "date": date})
	e.phase = PhaseWelcome
}

// markAttemptedLocked persists the first-touch marker on the first mistake
// or first hint of a session.
func (e *Engine) markAttemptedLocked() {
	if e.attemptedMarked || e.puz == nil {
		return
	}
	e.attemptedMarked = true
	variant, date := e.cfg.Variant, e.puz.Date
	e.deps.Queue.Submit(func(ctx context.Context) error {
		return e.deps.Store.MarkAttempted(ctx, variant, date)
	}, e.persistCallback("history"))
}

// persistCallback absorbs persistence failures: quota problems log a warning
// and the session proceeds, the in-memory state staying authoritative.
func (e *Engine) persistCallback(kind string) func(error) {
	return func(err error) {
		if err == nil {
			return
		}
		if errors.Is(err, state.ErrQuotaExceeded) {
			e.deps.Logger.Warn("session.persist_quota", map[string]any{"kind": kind, "error": err.Error()})
			return
		}
		e.deps.Logger.Error("session.persist_failed", map[string]any{"kind": kind, "error": err.Error()})
	}
}
