package lifecycle

import (
	"sync"
	"time"
)

// Scheduler fires the daily rollover at local midnight in the configured
// civil timezone. One timer is armed at a time; it rearms itself after each
// firing. On foreground, a rollover instant that passed while the app was
// suspended fires immediately instead of waiting for the next day.
type Scheduler struct {
	loc    *time.Location
	now    func() time.Time
	bridge *Bridge

	mu    sync.Mutex
	timer *time.Timer
	next  time.Time
}

func NewScheduler(timezone string, now func() time.Time, bridge *Bridge) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{loc: loc, now: now, bridge: bridge}, nil
}

// CurrentPuzzleDate resolves "today" as a civil date in the scheduler's
// timezone.
func (s *Scheduler) CurrentPuzzleDate() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

// NextRollover returns the next local-midnight instant.
func (s *Scheduler) NextRollover() time.Time {
	local := s.now().In(s.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, s.loc)
}

// Start arms the rollover timer. Safe to call once at app start.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armLocked()
}

func (s *Scheduler) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.next = s.NextRollover()
	s.timer = time.AfterFunc(s.next.Sub(s.now()), s.fire)
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	s.armLocked()
	s.mu.Unlock()
	s.bridge.notifyRollover()
}

// Foreground is the resume hook: if the scheduled instant slid into the past
// during a suspend, fire now; otherwise the existing schedule stands.
func (s *Scheduler) Foreground() {
	s.mu.Lock()
	pending := !s.next.IsZero() && !s.now().Before(s.next)
	if pending {
		s.armLocked()
	}
	s.mu.Unlock()
	if pending {
		s.bridge.notifyRollover()
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.next = time.Time{}
}
