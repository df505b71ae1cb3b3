// Package evaluate implements guess checking for both game variants: the
// tandem single-item check with positional letter locking, and the cryptic
// whole-buffer check with near-miss annotation.
package evaluate

import "github.com/agnivade/levenshtein"

// Verdict classifies the outcome of a single check.
type Verdict int

const (
	// NotSubmitted means the normalized input was empty; the check counts
	// neither as a mistake nor as an attempt.
	NotSubmitted Verdict = iota
	Incorrect
	Correct
)

// ItemResult is the outcome of checking one tandem item.
type ItemResult struct {
	Verdict Verdict
	// Matched holds positions of the canonical answer where the guess letter
	// agreed. Populated only on Incorrect; these become locked letters.
	Matched map[int]rune
}

// CheckItem compares a guess against one tandem canonical answer. On a wrong
// guess it reports the positions that matched, position against the
// normalized canonical string.
func CheckItem(input, canonical string) ItemResult {
	in := Normalize(input)
	want := Normalize(canonical)
	if in == "" {
		return ItemResult{Verdict: NotSubmitted}
	}
	if in == want {
		return ItemResult{Verdict: Correct}
	}
	matched := map[int]rune{}
	wantRunes := []rune(want)
	for i, r := range []rune(in) {
		if i >= len(wantRunes) {
			break
		}
		if r == wantRunes[i] {
			matched[i] = r
		}
	}
	return ItemResult{Verdict: Incorrect, Matched: matched}
}

// BufferResult is the outcome of checking the cryptic answer buffer.
type BufferResult struct {
	Verdict Verdict
	// NearMiss marks a wrong buffer within edit distance 1 of the canonical.
	// Annotative only; the session treats it like any other wrong answer.
	NearMiss bool
}

// CheckBuffer compares the whole cryptic buffer against the canonical answer.
func CheckBuffer(input, canonical string) BufferResult {
	in := Normalize(input)
	want := Normalize(canonical)
	if in == "" {
		return BufferResult{Verdict: NotSubmitted}
	}
	if in == want {
		return BufferResult{Verdict: Correct}
	}
	return BufferResult{
		Verdict:  Incorrect,
		NearMiss: levenshtein.ComputeDistance(in, want) == 1,
	}
}

// FirstLetter returns the first rune of the normalized canonical answer,
// which is what a tandem hint reveals. Returns 0 for an empty canonical.
func FirstLetter(canonical string) rune {
	for _, r := range Normalize(canonical) {
		return r
	}
	return 0
}
