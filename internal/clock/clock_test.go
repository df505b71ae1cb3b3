package clock

import (
	"testing"
	"time"
)

type fakeTime struct{ at time.Time }

func (f *fakeTime) now() time.Time          { return f.at }
func (f *fakeTime) advance(d time.Duration) { f.at = f.at.Add(d) }
func (f *fakeTime) rewind(d time.Duration)  { f.at = f.at.Add(-d) }

func newFake() *fakeTime { return &fakeTime{at: time.Unix(1_700_000_000, 0)} }

func TestElapsedAccumulatesOnlyWhileRunning(t *testing.T) {
	f := newFake()
	c := New(f.now)

	c.Start()
	f.advance(10 * time.Second)
	if got := c.Elapsed(); got != 10 {
		t.Fatalf("expected 10s running, got %d", got)
	}

	c.Pause()
	f.advance(30 * time.Second)
	if got := c.Elapsed(); got != 10 {
		t.Fatalf("expected pause to freeze elapsed at 10s, got %d", got)
	}

	c.Resume()
	f.advance(5 * time.Second)
	if got := c.Elapsed(); got != 15 {
		t.Fatalf("expected 15s after resume, got %d", got)
	}
}

func TestPauseResumeIdempotent(t *testing.T) {
	f := newFake()
	c := New(f.now)
	c.Start()
	f.advance(3 * time.Second)
	c.Pause()
	c.Pause()
	f.advance(7 * time.Second)
	c.Resume()
	c.Resume()
	f.advance(2 * time.Second)
	if got := c.Elapsed(); got != 5 {
		t.Fatalf("expected 5s, got %d", got)
	}
}

func TestResetClearsAccumulatedTime(t *testing.T) {
	f := newFake()
	c := New(f.now)
	c.Start()
	f.advance(42 * time.Second)
	c.Reset()
	if got := c.Elapsed(); got != 0 {
		t.Fatalf("expected 0 after reset, got %d", got)
	}
	if c.Running() {
		t.Fatalf("expected stopped clock after reset")
	}
	c.Start()
	f.advance(2 * time.Second)
	if got := c.Elapsed(); got != 2 {
		t.Fatalf("expected fresh run after reset, got %d", got)
	}
}

func TestBackwardJumpClampsToZeroDelta(t *testing.T) {
	f := newFake()
	c := New(f.now)
	c.Start()
	f.rewind(time.Minute)
	if got := c.Elapsed(); got != 0 {
		t.Fatalf("expected clamp to 0 on backward jump, got %d", got)
	}
}

func TestStartWhileRunningKeepsOriginalSegment(t *testing.T) {
	f := newFake()
	c := New(f.now)
	c.Start()
	f.advance(4 * time.Second)
	c.Start()
	f.advance(4 * time.Second)
	if got := c.Elapsed(); got != 8 {
		t.Fatalf("expected 8s, got %d", got)
	}
}
