// Package access decides whether an archive puzzle is playable for the
// current user. The predicate is synchronous and pure: it runs inside archive
// scroll callbacks, so it must never touch the network or block.
package access

import "sync/atomic"

// Rule is the immutable archive access configuration for one variant.
type Rule struct {
	// FreeWindowDays counts backward from today's puzzle; puzzles within the
	// window (today included) are free for everyone.
	FreeWindowDays int
	// TodayAlwaysFree bypasses the gate entirely for today's puzzle. Set for
	// the cryptic variant, whose archive is subscriber-only but whose daily
	// puzzle is free.
	TodayAlwaysFree bool
}

// Accessible reports whether the puzzle with the given number is playable.
// todayNumber is the number of today's puzzle for the same variant.
func (r Rule) Accessible(number, todayNumber int, subscribed bool) bool {
	if r.TodayAlwaysFree && number == todayNumber {
		return true
	}
	if subscribed {
		return true
	}
	return todayNumber-number <= r.FreeWindowDays && number <= todayNumber
}

// Gate pairs a Rule with the cached subscription flag. The subscription
// signal is published by an external collaborator; the gate only observes it.
type Gate struct {
	rule   Rule
	active atomic.Bool
}

func NewGate(rule Rule) *Gate {
	return &Gate{rule: rule}
}

// SetSubscribed is the subscription signal's change callback.
func (g *Gate) SetSubscribed(active bool) { g.active.Store(active) }

func (g *Gate) Subscribed() bool { return g.active.Load() }

func (g *Gate) Accessible(number, todayNumber int) bool {
	return g.rule.Accessible(number, todayNumber, g.active.Load())
}
