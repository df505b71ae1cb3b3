package state

import (
	"context"
	"testing"
)

func TestPrefsTypedAccessors(t *testing.T) {
	ctx := context.Background()
	p := NewPrefs(openStore(t))

	if got := p.Theme(ctx); got != "system" {
		t.Fatalf("default theme = %q", got)
	}
	if got := p.KeyboardLayout(ctx); got != "qwerty" {
		t.Fatalf("default layout = %q", got)
	}
	if err := p.SetString(ctx, PrefTheme, "dark"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if got := p.Theme(ctx); got != "dark" {
		t.Fatalf("theme = %q", got)
	}

	if got := p.Bool(ctx, "tandem/hard_mode", false); got {
		t.Fatalf("hard mode defaulted true")
	}
	if err := p.SetBool(ctx, "tandem/hard_mode", true); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if got := p.Bool(ctx, "tandem/hard_mode", false); !got {
		t.Fatalf("hard mode not persisted")
	}

	// Garbage stored under a bool key falls back to the default.
	if err := p.SetString(ctx, "tandem/hard_mode", "maybe"); err != nil {
		t.Fatalf("set garbage: %v", err)
	}
	if got := p.Bool(ctx, "tandem/hard_mode", false); got {
		t.Fatalf("unparseable value did not fall back")
	}
}
