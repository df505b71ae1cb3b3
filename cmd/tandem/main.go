// Command tandem is a line-oriented front end for the daily puzzle engine:
// play a tandem or cryptic session, browse the archive, or show stats.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"tandem/internal/app"
	"tandem/internal/catalog"
	"tandem/internal/puzzle"
	"tandem/internal/session"
	"tandem/internal/state"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "tandem",
		Short:         "Daily word puzzles: emoji pairs and cryptic clues",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.AddCommand(playCmd(&configPath), archiveCmd(&configPath), statsCmd(&configPath), prefsCmd(&configPath))
	return root
}

func buildApp(configPath string) (*app.App, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func resolveVariant(args []string) (string, error) {
	if len(args) == 0 {
		return puzzle.VariantTandem, nil
	}
	switch args[0] {
	case puzzle.VariantTandem, puzzle.VariantCryptic:
		return args[0], nil
	default:
		return "", fmt.Errorf("unknown variant %q", args[0])
	}
}

func playCmd(configPath *string) *cobra.Command {
	var (
		date     string
		number   int
		hardMode bool
	)
	cmd := &cobra.Command{
		Use:   "play [tandem|cryptic]",
		Short: "Play a puzzle (today's by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := resolveVariant(args)
			if err != nil {
				return err
			}
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			sel := catalog.Today()
			switch {
			case date != "":
				sel = catalog.ByDate(date)
			case number > 0:
				sel = catalog.ByNumber(number)
			}
			return runPlay(a, variant, sel, hardMode)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "play the puzzle for a date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&number, "number", 0, "play a puzzle by number")
	cmd.Flags().BoolVar(&hardMode, "hard", false, "enable the hard-mode time limit")
	return cmd
}

func runPlay(a *app.App, variant string, sel catalog.Selector, hardMode bool) error {
	eng := a.Engine(variant)
	if hardMode {
		eng.SetHardMode(true)
	}

	snaps := make(chan session.Snapshot, 32)
	eng.Observe(func(s session.Snapshot) {
		select {
		case snaps <- s:
		default:
		}
	})
	if err := eng.SelectPuzzle(sel); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-ticker.C:
				eng.OnTick()
			case <-done:
				return
			}
		}
	}()

	// Wait for the load to settle before prompting.
	deadline := time.After(20 * time.Second)
	for {
		var s session.Snapshot
		select {
		case s = <-snaps:
		case <-deadline:
			return fmt.Errorf("timed out loading puzzle")
		}
		if s.Phase == session.PhaseLoading {
			continue
		}
		if s.Phase == session.PhaseError {
			// Cold-start fallback: a bundled puzzle keeps first launch
			// playable when the catalog is unreachable.
			p, perr := catalog.Preloaded(variant)
			if perr != nil {
				return fmt.Errorf("load failed: %w", s.Err)
			}
			log.Warn("catalog unreachable, using bundled puzzle", "reason", s.Err)
			eng.UsePreloaded(p)
			s = eng.Snapshot()
		}
		render(eng, s)
		break
	}

	sc := bufio.NewScanner(os.Stdin)
	fmt.Println(`commands: start | ans <item> <text> | check <item> | checkall | hint <n> | home | replay | quit`)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "q":
			return nil
		case "start":
			eng.Start()
		case "replay":
			eng.Replay()
		case "home":
			eng.ReturnHome()
		case "ans":
			if len(fields) < 2 {
				log.Warn("usage: ans <item> <text>")
				continue
			}
			idx, err := strconv.Atoi(fields[1])
			if err != nil {
				log.Warn("bad item index", "arg", fields[1])
				continue
			}
			eng.UpdateAnswer(idx, strings.Join(fields[2:], " "))
		case "check":
			if variant == puzzle.VariantCryptic {
				eng.Check()
				continue
			}
			if len(fields) < 2 {
				log.Warn("usage: check <item>")
				continue
			}
			idx, err := strconv.Atoi(fields[1])
			if err != nil {
				log.Warn("bad item index", "arg", fields[1])
				continue
			}
			eng.CheckSingle(idx)
		case "checkall":
			eng.CheckAll()
		case "hint":
			if len(fields) < 2 {
				log.Warn("usage: hint <n>")
				continue
			}
			idx, err := strconv.Atoi(fields[1])
			if err != nil {
				log.Warn("bad hint target", "arg", fields[1])
				continue
			}
			if err := eng.UseHint(idx); err != nil {
				log.Warn("hint refused", "reason", err)
			}
		default:
			log.Warn("unknown command", "cmd", fields[0])
			continue
		}
		drainSnaps(snaps)
		render(eng, eng.Snapshot())
	}
}

func drainSnaps(snaps chan session.Snapshot) {
	for {
		select {
		case <-snaps:
		default:
			return
		}
	}
}

func render(eng *session.Engine, s session.Snapshot) {
	p := eng.Puzzle()
	fmt.Printf("\n[%s] %s #%d (%s)", s.Phase, s.Variant, s.Number, s.Date)
	if s.HardMode {
		fmt.Print("  [hard]")
	}
	fmt.Printf("  %ds\n", s.Elapsed)

	if p == nil {
		return
	}
	switch p.Variant {
	case puzzle.VariantTandem:
		for i, item := range p.Tandem.Items {
			mark := " "
			switch {
			case s.Correct[i]:
				mark = "✓"
			case s.Wrong[i]:
				mark = "✗"
			}
			fmt.Printf("  %d. %s  %-12q %s\n", i, item.EmojiPair, s.Answers[i], mark)
		}
		fmt.Printf("  mistakes %d/%d, hint credits %d\n", s.Mistakes, s.MistakeBudget, s.Hints.AvailableCredits)
		if s.RolloverPending {
			fmt.Println("  a new puzzle is waiting when you finish")
		}
	case puzzle.VariantCryptic:
		fmt.Printf("  %s\n", p.Cryptic.Clue)
		fmt.Printf("  buffer: %q  attempts %d", s.Answers[0], s.Attempts)
		if s.NearMiss {
			fmt.Print("  (so close)")
		}
		fmt.Println()
		for _, h := range s.RevealedHints {
			fmt.Printf("  hint [%s]: %s\n", h.Type, h.Text)
		}
	}

	switch s.Phase {
	case session.PhaseComplete:
		if s.Won {
			fmt.Printf("  solved in %ds", s.Elapsed)
			if s.Theme != "" {
				fmt.Printf("  theme: %s", s.Theme)
			}
			fmt.Println()
		} else if s.HardModeTimedOut {
			fmt.Println("  out of time")
		} else {
			fmt.Println("  out of guesses")
		}
	case session.PhaseAdmire:
		if s.Theme != "" {
			fmt.Printf("  theme: %s\n", s.Theme)
		}
	}
}

func archiveCmd(configPath *string) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "archive [tandem|cryptic]",
		Short: "List past puzzles with status and access",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := resolveVariant(args)
			if err != nil {
				return err
			}
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			today := a.Scheduler.CurrentPuzzleDate()
			if to == "" {
				to = today
			}
			if from == "" {
				t, _ := puzzle.ParseDate(today)
				from = t.AddDate(0, 0, -30).Format(puzzle.DateLayout)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			entries, err := a.Archive(variant).List(ctx, from, to)
			if err != nil {
				return err
			}
			for _, e := range entries {
				lock := ""
				if !e.Accessible {
					lock = "  (locked)"
				}
				fmt.Printf("#%-5d %s  %-11s%s\n", e.Number, e.Date, e.Status, lock)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")
	return cmd
}

func prefsCmd(configPath *string) *cobra.Command {
	var theme, keyboard string
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if theme != "" {
				if err := a.Prefs.SetString(ctx, state.PrefTheme, theme); err != nil {
					return err
				}
			}
			if keyboard != "" {
				if err := a.Prefs.SetString(ctx, state.PrefKeyboardLayout, keyboard); err != nil {
					return err
				}
			}
			fmt.Printf("theme            %s\n", a.Prefs.Theme(ctx))
			fmt.Printf("keyboard_layout  %s\n", a.Prefs.KeyboardLayout(ctx))
			for _, v := range []string{puzzle.VariantTandem, puzzle.VariantCryptic} {
				fmt.Printf("%s hard mode %v\n", v, a.Prefs.Bool(ctx, v+"/hard_mode", false))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "set the theme")
	cmd.Flags().StringVar(&keyboard, "keyboard", "", "set the keyboard layout")
	return cmd
}

func statsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [tandem|cryptic]",
		Short: "Show aggregate stats for a variant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := resolveVariant(args)
			if err != nil {
				return err
			}
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := session.StatsSummary(cmd.Context(), a.Store, variant)
			if err != nil {
				return err
			}
			fmt.Printf("played        %d\n", sum.Played)
			fmt.Printf("wins          %d (%.0f%%)\n", sum.Wins, sum.WinRate*100)
			fmt.Printf("streak        %d (best %d)\n", sum.CurrentStreak, sum.BestStreak)
			if sum.LastCompletedDate != "" {
				fmt.Printf("last win      %s\n", sum.LastCompletedDate)
			}
			return nil
		},
	}
}
