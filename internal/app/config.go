package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"tandem/internal/puzzle"
)

// Config controls runtime behavior. It is read from an optional YAML file,
// then TANDEM_-prefixed environment variables override individual fields.
type Config struct {
	CatalogURL       string `yaml:"catalog_url" env:"CATALOG_URL"`
	DataDir          string `yaml:"data_dir" env:"DATA_DIR"`
	LogPath          string `yaml:"log_path" env:"LOG_PATH"`
	RolloverTimezone string `yaml:"rollover_timezone" env:"ROLLOVER_TIMEZONE"`
	Subscribed       bool   `yaml:"subscribed" env:"SUBSCRIBED"`

	Gameplay GameplayConfig `yaml:"gameplay" envPrefix:"GAMEPLAY_"`
	Tandem   VariantConfig  `yaml:"tandem" envPrefix:"TANDEM_"`
	Cryptic  VariantConfig  `yaml:"cryptic" envPrefix:"CRYPTIC_"`
}

// GameplayConfig holds the rule knobs shared by both variants.
type GameplayConfig struct {
	MistakeBudget        int `yaml:"mistake_budget" env:"MISTAKE_BUDGET"`
	InitialHintCredits   int `yaml:"initial_hint_credits" env:"INITIAL_HINT_CREDITS"`
	HintEarnEvery        int `yaml:"hint_earn_every" env:"HINT_EARN_EVERY"`
	MaxHints             int `yaml:"max_hints" env:"MAX_HINTS"`
	HardModeLimitSeconds int `yaml:"hard_mode_limit_seconds" env:"HARD_MODE_LIMIT_SECONDS"`
}

// VariantConfig is the per-variant catalog and access configuration. Epoch is
// the civil date of puzzle #1.
type VariantConfig struct {
	Epoch           string `yaml:"epoch" env:"EPOCH"`
	FreeWindowDays  int    `yaml:"free_window_days" env:"FREE_WINDOW_DAYS"`
	TodayAlwaysFree bool   `yaml:"today_always_free" env:"TODAY_ALWAYS_FREE"`
}

func DefaultConfig() Config {
	return Config{
		CatalogURL:       "https://puzzles.tandemdaily.app",
		RolloverTimezone: "America/New_York",
		Gameplay: GameplayConfig{
			MistakeBudget:        4,
			InitialHintCredits:   1,
			HintEarnEvery:        2,
			MaxHints:             4,
			HardModeLimitSeconds: 120,
		},
		Tandem: VariantConfig{
			Epoch:          "2024-06-03",
			FreeWindowDays: 7,
		},
		Cryptic: VariantConfig{
			Epoch:           "2024-09-02",
			TodayAlwaysFree: true,
		},
	}
}

// LoadConfig builds the effective config: defaults, then the YAML file at
// path (skipped when path is empty or missing), then environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "TANDEM_"}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.CatalogURL == "" {
		return errors.New("catalog url is required")
	}
	if c.RolloverTimezone == "" {
		c.RolloverTimezone = "America/New_York"
	}
	if _, err := time.LoadLocation(c.RolloverTimezone); err != nil {
		return fmt.Errorf("invalid rollover timezone %q", c.RolloverTimezone)
	}
	if c.Gameplay.MistakeBudget <= 0 {
		c.Gameplay.MistakeBudget = 4
	}
	if c.Gameplay.InitialHintCredits < 0 {
		return fmt.Errorf("invalid initial hint credits %d", c.Gameplay.InitialHintCredits)
	}
	if c.Gameplay.HintEarnEvery <= 0 {
		c.Gameplay.HintEarnEvery = 2
	}
	if c.Gameplay.MaxHints <= 0 || c.Gameplay.MaxHints > puzzle.CrypticHints {
		c.Gameplay.MaxHints = puzzle.CrypticHints
	}
	if c.Gameplay.HardModeLimitSeconds <= 0 {
		c.Gameplay.HardModeLimitSeconds = 120
	}
	for name, v := range map[string]VariantConfig{"tandem": c.Tandem, "cryptic": c.Cryptic} {
		if _, err := puzzle.ParseDate(v.Epoch); err != nil {
			return fmt.Errorf("invalid %s epoch %q", name, v.Epoch)
		}
		if v.FreeWindowDays < 0 {
			return fmt.Errorf("invalid %s free window %d", name, v.FreeWindowDays)
		}
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "tandem")
	}
	return nil
}
