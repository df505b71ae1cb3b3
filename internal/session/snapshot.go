package session

import (
	"tandem/internal/hints"
	"tandem/internal/puzzle"
)

// Snapshot is an immutable view of the engine published on every transition.
// Slices and maps are copies, so observers can hold a snapshot indefinitely.
type Snapshot struct {
	Phase   Phase
	Variant string
	Date    string
	Number  int

	Answers []string
	Correct []bool
	Wrong   []bool
	Locked  []map[int]rune
	Hinted  []bool
	Hints   hints.State

	// RevealedHints carries the unlocked cryptic hint texts in spend order.
	RevealedHints []puzzle.Hint

	Mistakes      int
	MistakeBudget int
	Attempts      int
	HintsUsed     int
	NearMiss      bool

	HardMode         bool
	HardModeTimedOut bool
	Elapsed          int
	Running          bool

	Won bool
	// Theme is the tandem connecting theme, revealed only once the session
	// is over.
	Theme string

	RolloverPending bool
	Err             error
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:            e.phase,
		Variant:          e.cfg.Variant,
		Answers:          append([]string(nil), e.answers...),
		Correct:          append([]bool(nil), e.correct...),
		Wrong:            append([]bool(nil), e.wrong...),
		Hinted:           append([]bool(nil), e.hinted...),
		Mistakes:         e.mistakes,
		MistakeBudget:    e.cfg.MistakeBudget,
		Attempts:         e.attempts,
		HintsUsed:        e.hintsUsedLocked(),
		NearMiss:         e.nearMiss,
		HardMode:         e.hardMode,
		HardModeTimedOut: e.hardModeTimedOut,
		Elapsed:          e.clk.Elapsed(),
		Running:          e.clk.Running(),
		Won:              e.won,
		RolloverPending:  e.rolloverPending,
		Err:              e.loadErr,
	}
	snap.Locked = make([]map[int]rune, len(e.locked))
	for i, m := range e.locked {
		cp := make(map[int]rune, len(m))
		for pos, r := range m {
			cp[pos] = r
		}
		snap.Locked[i] = cp
	}
	if e.puz != nil {
		snap.Date = e.puz.Date
		snap.Number = e.puz.Number
		switch e.puz.Variant {
		case puzzle.VariantTandem:
			snap.Hints = e.tandemHints.State()
			if e.phase == PhaseComplete || e.phase == PhaseAdmire {
				snap.Theme = e.puz.Tandem.Theme
			}
		case puzzle.VariantCryptic:
			snap.Hints = e.crypticHints.State()
			for _, idx := range snap.Hints.Unlocked {
				snap.RevealedHints = append(snap.RevealedHints, e.puz.Cryptic.Hints[idx])
			}
		}
	}
	return snap
}

func (e *Engine) publishLocked() {
	if e.observer == nil {
		return
	}
	e.observer(e.snapshotLocked())
}

// Snapshot returns the current view on demand, outside the observer stream.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Puzzle exposes the loaded puzzle for display; nil while loading or after a
// load error.
func (e *Engine) Puzzle() *puzzle.Puzzle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.puz
}
