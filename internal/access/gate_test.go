package access

import "testing"

func TestFreeWindowIncludesToday(t *testing.T) {
	r := Rule{FreeWindowDays: 7}
	if !r.Accessible(100, 100, false) {
		t.Fatalf("today's puzzle should be free")
	}
	if !r.Accessible(93, 100, false) {
		t.Fatalf("puzzle at window edge should be free")
	}
	if r.Accessible(92, 100, false) {
		t.Fatalf("puzzle outside window should be locked")
	}
}

func TestSubscriptionUnlocksEverything(t *testing.T) {
	r := Rule{FreeWindowDays: 0}
	if !r.Accessible(1, 500, true) {
		t.Fatalf("subscriber should reach the oldest puzzle")
	}
}

func TestFuturePuzzlesLockedForFreeUsers(t *testing.T) {
	r := Rule{FreeWindowDays: 7}
	if r.Accessible(101, 100, false) {
		t.Fatalf("future puzzle should not be free")
	}
}

func TestCrypticTodayCarveOut(t *testing.T) {
	r := Rule{FreeWindowDays: 0, TodayAlwaysFree: true}
	if !r.Accessible(88, 88, false) {
		t.Fatalf("cryptic today should always be accessible")
	}
	if r.Accessible(87, 88, false) {
		t.Fatalf("cryptic archive should require subscription")
	}
	if !r.Accessible(87, 88, true) {
		t.Fatalf("subscriber should reach cryptic archive")
	}
}

func TestGateCachesSubscriptionSignal(t *testing.T) {
	g := NewGate(Rule{FreeWindowDays: 0})
	if g.Accessible(10, 20) {
		t.Fatalf("expected locked before subscription")
	}
	g.SetSubscribed(true)
	if !g.Accessible(10, 20) {
		t.Fatalf("expected unlocked after subscription")
	}
	g.SetSubscribed(false)
	if g.Accessible(10, 20) {
		t.Fatalf("expected locked after cancellation")
	}
}

func TestAccessibleIsPure(t *testing.T) {
	r := Rule{FreeWindowDays: 3}
	for i := 0; i < 5; i++ {
		if got := r.Accessible(97, 100, false); !got {
			t.Fatalf("pure predicate changed answer on call %d", i)
		}
	}
}
