package lifecycle

import (
	"testing"
	"time"
)

type recordingListener struct {
	events []string
}

func (r *recordingListener) Foreground()    { r.events = append(r.events, "fg") }
func (r *recordingListener) Background()    { r.events = append(r.events, "bg") }
func (r *recordingListener) DailyRollover() { r.events = append(r.events, "rollover") }

func TestBridgeDeliversInArrivalOrder(t *testing.T) {
	b := NewBridge()
	rec := &recordingListener{}
	b.Subscribe(rec)

	b.NotifyBackground()
	b.NotifyForeground()
	b.NotifyBackground()
	b.NotifyBackground()
	b.NotifyForeground()

	want := []string{"bg", "fg", "bg", "bg", "fg"}
	if len(rec.events) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), rec.events)
	}
	for i, ev := range want {
		if rec.events[i] != ev {
			t.Fatalf("event %d: expected %s, got %v", i, ev, rec.events)
		}
	}
}

func TestFuncsAdapterSkipsNilCallbacks(t *testing.T) {
	b := NewBridge()
	fired := 0
	b.Subscribe(Funcs{OnDailyRollover: func() { fired++ }})
	b.NotifyForeground()
	b.NotifyBackground()
	b.notifyRollover()
	if fired != 1 {
		t.Fatalf("expected 1 rollover, got %d", fired)
	}
}

func TestCurrentPuzzleDateUsesCivilTimezone(t *testing.T) {
	// 2026-03-02 03:30 UTC is still 2026-03-01 in New York (UTC-5).
	at := time.Date(2026, time.March, 2, 3, 30, 0, 0, time.UTC)
	s, err := NewScheduler("America/New_York", func() time.Time { return at }, NewBridge())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if got := s.CurrentPuzzleDate(); got != "2026-03-01" {
		t.Fatalf("expected 2026-03-01, got %s", got)
	}
}

func TestNextRolloverIsLocalMidnight(t *testing.T) {
	at := time.Date(2026, time.March, 2, 3, 30, 0, 0, time.UTC)
	s, err := NewScheduler("America/New_York", func() time.Time { return at }, NewBridge())
	if err != nil {
		t.Fatal(err)
	}
	next := s.NextRollover()
	loc, _ := time.LoadLocation("America/New_York")
	want := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestForegroundFiresMissedRollover(t *testing.T) {
	at := time.Date(2026, time.March, 1, 23, 0, 0, 0, time.UTC)
	bridge := NewBridge()
	rec := &recordingListener{}
	bridge.Subscribe(rec)

	s, err := NewScheduler("UTC", func() time.Time { return at }, bridge)
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	// Still before midnight: nothing fires.
	s.Foreground()
	if len(rec.events) != 0 {
		t.Fatalf("expected no rollover before midnight, got %v", rec.events)
	}

	// App suspended across midnight; the resume hook catches up.
	at = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	s.Foreground()
	if len(rec.events) != 1 || rec.events[0] != "rollover" {
		t.Fatalf("expected immediate rollover on resume, got %v", rec.events)
	}

	// A second resume the same day must not double-fire.
	s.Foreground()
	if len(rec.events) != 1 {
		t.Fatalf("expected single rollover, got %v", rec.events)
	}
}
