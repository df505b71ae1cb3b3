package hints

import (
	"errors"
	"testing"
)

func TestTandemInitialCreditAndSpend(t *testing.T) {
	e := NewTandem(1, 2)
	if err := e.Use(2, false); err != nil {
		t.Fatalf("spend initial credit: %v", err)
	}
	if !e.Hinted(2) {
		t.Fatalf("expected item 2 hinted")
	}
	if err := e.Use(0, false); !errors.Is(err, ErrNoCredit) {
		t.Fatalf("expected no-credit error, got %v", err)
	}
}

func TestTandemEarnEverySecondUnhintedCorrect(t *testing.T) {
	e := NewTandem(0, 2)
	if e.NoteCorrect(false) {
		t.Fatalf("first correct should not grant")
	}
	if !e.NoteCorrect(false) {
		t.Fatalf("second correct should grant a credit")
	}
	if err := e.Use(1, false); err != nil {
		t.Fatalf("expected earned credit to be spendable: %v", err)
	}
}

func TestTandemHintedSolvesDoNotEarn(t *testing.T) {
	e := NewTandem(1, 2)
	if err := e.Use(0, false); err != nil {
		t.Fatal(err)
	}
	if e.NoteCorrect(true) {
		t.Fatalf("hinted solve should not advance the earn counter")
	}
	if e.NoteCorrect(false) {
		t.Fatalf("only one unhinted correct so far, no grant expected")
	}
	if !e.NoteCorrect(false) {
		t.Fatalf("second unhinted correct should grant")
	}
}

func TestTandemCannotHintSolvedOrHintedItem(t *testing.T) {
	e := NewTandem(2, 2)
	if err := e.Use(1, true); !errors.Is(err, ErrTargetSolved) {
		t.Fatalf("expected solved-target error, got %v", err)
	}
	if err := e.Use(1, false); err != nil {
		t.Fatal(err)
	}
	if err := e.Use(1, false); !errors.Is(err, ErrAlreadyUnlocked) {
		t.Fatalf("expected already-unlocked error, got %v", err)
	}
}

func TestCrypticUnlockAnyOrderWithHistory(t *testing.T) {
	e := NewCryptic(4, 4)
	if err := e.Use(2); err != nil {
		t.Fatal(err)
	}
	if err := e.Use(0); err != nil {
		t.Fatal(err)
	}
	st := e.State()
	if e.Used() != 2 {
		t.Fatalf("expected 2 used, got %d", e.Used())
	}
	if len(st.History) != 2 || st.History[0].Target != 2 || st.History[1].Target != 0 {
		t.Fatalf("expected reveal order [2 0], got %+v", st.History)
	}
	if !e.Unlocked(0) || !e.Unlocked(2) || e.Unlocked(1) {
		t.Fatalf("unexpected unlock set")
	}
}

func TestCrypticCap(t *testing.T) {
	e := NewCryptic(2, 4)
	if err := e.Use(0); err != nil {
		t.Fatal(err)
	}
	if err := e.Use(1); err != nil {
		t.Fatal(err)
	}
	if err := e.Use(2); !errors.Is(err, ErrNoCredit) {
		t.Fatalf("expected cap to reject third unlock, got %v", err)
	}
}

func TestCrypticRejectsOutOfRange(t *testing.T) {
	e := NewCryptic(4, 4)
	if err := e.Use(4); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if err := e.Use(-1); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestStateCountsMatchHistory(t *testing.T) {
	e := NewTandem(2, 2)
	_ = e.Use(0, false)
	_ = e.Use(3, false)
	st := e.State()
	if st.AvailableCredits != 0 {
		t.Fatalf("expected 0 credits, got %d", st.AvailableCredits)
	}
	if len(st.Unlocked) != len(st.History) {
		t.Fatalf("hintsUsed must equal unlocked cardinality")
	}
}
