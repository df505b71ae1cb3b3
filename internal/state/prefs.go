package state

import (
	"context"
	"strconv"
)

// Prefs wraps the store's prefs namespace with typed accessors for the small
// set of user-facing settings. Reads fall back to the given default when the
// key is absent or unparseable.
type Prefs struct {
	store Store
}

func NewPrefs(store Store) *Prefs { return &Prefs{store: store} }

func (p *Prefs) Bool(ctx context.Context, key string, def bool) bool {
	v, err := p.store.GetPref(ctx, key)
	if err != nil || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (p *Prefs) SetBool(ctx context.Context, key string, v bool) error {
	return p.store.SetPref(ctx, key, strconv.FormatBool(v))
}

func (p *Prefs) String(ctx context.Context, key, def string) string {
	v, err := p.store.GetPref(ctx, key)
	if err != nil || v == "" {
		return def
	}
	return v
}

func (p *Prefs) SetString(ctx context.Context, key, v string) error {
	return p.store.SetPref(ctx, key, v)
}

// Well-known preference keys. Hard mode is namespaced per variant
// ("<variant>/hard_mode") because the two games toggle it independently.
const (
	PrefTheme          = "theme"
	PrefKeyboardLayout = "keyboard_layout"
)

func (p *Prefs) Theme(ctx context.Context) string {
	return p.String(ctx, PrefTheme, "system")
}

func (p *Prefs) KeyboardLayout(ctx context.Context) string {
	return p.String(ctx, PrefKeyboardLayout, "qwerty")
}
