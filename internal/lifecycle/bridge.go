// Package lifecycle bridges host application events (foreground, background,
// the daily rollover) to core subscribers, and owns the rollover scheduler.
package lifecycle

import "sync"

// Listener receives lifecycle signals. Callbacks run on the caller's
// goroutine in arrival order; the bridge never coalesces a
// background/foreground pair, because the session engine balances
// pause/resume on pair parity.
type Listener interface {
	Foreground()
	Background()
	DailyRollover()
}

type Bridge struct {
	mu        sync.Mutex
	listeners []Listener
}

func NewBridge() *Bridge { return &Bridge{} }

func (b *Bridge) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// NotifyForeground is called by the host when the app resumes.
func (b *Bridge) NotifyForeground() {
	for _, l := range b.snapshot() {
		l.Foreground()
	}
}

// NotifyBackground is called by the host when the app is suspended or the
// page becomes hidden.
func (b *Bridge) NotifyBackground() {
	for _, l := range b.snapshot() {
		l.Background()
	}
}

func (b *Bridge) notifyRollover() {
	for _, l := range b.snapshot() {
		l.DailyRollover()
	}
}

func (b *Bridge) snapshot() []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Listener(nil), b.listeners...)
}

// Funcs adapts plain callbacks to the Listener interface. Nil fields are
// skipped.
type Funcs struct {
	OnForeground    func()
	OnBackground    func()
	OnDailyRollover func()
}

func (f Funcs) Foreground() {
	if f.OnForeground != nil {
		f.OnForeground()
	}
}

func (f Funcs) Background() {
	if f.OnBackground != nil {
		f.OnBackground()
	}
}

func (f Funcs) DailyRollover() {
	if f.OnDailyRollover != nil {
		f.OnDailyRollover()
	}
}
