// Package hints implements the per-variant hint economies. Tandem hints are a
// credit system: one starting credit, one more earned for every second correct
// answer solved without a hint. Cryptic hints are a fixed catalog of four,
// unlockable in any order up to a cap.
package hints

import (
	"errors"
	"fmt"
)

var (
	ErrNoCredit        = errors.New("no hint credit available")
	ErrAlreadyUnlocked = errors.New("hint already unlocked")
	ErrTargetSolved    = errors.New("item already solved")
)

// UnlockEvent records one hint reveal, in spend order.
type UnlockEvent struct {
	Target int // item index (tandem) or hint index (cryptic)
	Seq    int // 1-based spend order
}

// State is the observable hint snapshot surfaced through the session.
type State struct {
	AvailableCredits int
	Unlocked         []int
	History          []UnlockEvent
}

// TandemEngine tracks earn-on-progress credits for the emoji-pair game.
type TandemEngine struct {
	credits         int
	earnEvery       int
	unhintedCorrect int
	unlocked        map[int]bool
	history         []UnlockEvent
}

// NewTandem creates an engine with the given starting credit, earning one
// more per earnEvery unhinted correct answers.
func NewTandem(initialCredits, earnEvery int) *TandemEngine {
	if earnEvery <= 0 {
		earnEvery = 2
	}
	return &TandemEngine{
		credits:   initialCredits,
		earnEvery: earnEvery,
		unlocked:  map[int]bool{},
	}
}

// NoteCorrect informs the engine that an item was solved. Only unhinted
// solves advance the earn counter; a hinted solve keeps the "skill" framing
// of earned credits intact. Returns true when a credit was granted.
func (e *TandemEngine) NoteCorrect(hinted bool) bool {
	if hinted {
		return false
	}
	e.unhintedCorrect++
	if e.unhintedCorrect%e.earnEvery == 0 {
		e.credits++
		return true
	}
	return false
}

// Use spends one credit to reveal the first letter of an unsolved item.
// solved reports whether the target item is already correct.
func (e *TandemEngine) Use(item int, solved bool) error {
	if solved {
		return ErrTargetSolved
	}
	if e.unlocked[item] {
		return ErrAlreadyUnlocked
	}
	if e.credits <= 0 {
		return ErrNoCredit
	}
	e.credits--
	e.unlocked[item] = true
	e.history = append(e.history, UnlockEvent{Target: item, Seq: len(e.history) + 1})
	return nil
}

func (e *TandemEngine) Hinted(item int) bool { return e.unlocked[item] }

func (e *TandemEngine) State() State { return buildState(e.credits, e.history) }

func (e *TandemEngine) Used() int { return len(e.history) }

// CrypticEngine tracks the capped four-hint catalog.
type CrypticEngine struct {
	max      int
	count    int
	unlocked map[int]bool
	history  []UnlockEvent
}

func NewCryptic(maxHints, catalogSize int) *CrypticEngine {
	if maxHints <= 0 || maxHints > catalogSize {
		maxHints = catalogSize
	}
	return &CrypticEngine{max: maxHints, unlocked: map[int]bool{}, count: catalogSize}
}

// Use unlocks the hint at idx, consuming one credit.
func (e *CrypticEngine) Use(idx int) error {
	if idx < 0 || idx >= e.count {
		return fmt.Errorf("hint index %d out of range", idx)
	}
	if e.unlocked[idx] {
		return ErrAlreadyUnlocked
	}
	if len(e.history) >= e.max {
		return ErrNoCredit
	}
	e.unlocked[idx] = true
	e.history = append(e.history, UnlockEvent{Target: idx, Seq: len(e.history) + 1})
	return nil
}

func (e *CrypticEngine) Unlocked(idx int) bool { return e.unlocked[idx] }

func (e *CrypticEngine) State() State { return buildState(e.max-len(e.history), e.history) }

func (e *CrypticEngine) Used() int { return len(e.history) }

func buildState(credits int, history []UnlockEvent) State {
	st := State{
		AvailableCredits: credits,
		Unlocked:         make([]int, 0, len(history)),
		History:          append([]UnlockEvent(nil), history...),
	}
	for _, ev := range history {
		st.Unlocked = append(st.Unlocked, ev.Target)
	}
	return st
}
