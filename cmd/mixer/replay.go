package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohitagr18/game-sound-generator/internal/replay"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

func newReplayCmd() *cobra.Command {
	var fixturePath, logPath, policyPath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a fixture or an exported log through the policy",
		Long: `Replays timed events through a fresh policy and prints a comparison
table against the expected (fixture) or recorded (log) decisions.

Exit status is 0 when every turn matches, 1 on divergence and 2 on bad input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (fixturePath == "") == (logPath == "") {
				return &exitError{code: 2, err: errors.New("exactly one of --fixture or --log is required")}
			}
			var code int
			var err error
			if fixturePath != "" {
				code, err = runFixtureMode(cmd.OutOrStdout(), fixturePath)
			} else {
				code, err = runLogMode(cmd.OutOrStdout(), logPath, policyPath)
			}
			if err != nil {
				return &exitError{code: 2, err: err}
			}
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "path to fixture JSON (fixture mode)")
	cmd.Flags().StringVar(&logPath, "log", "", "path to an exported session log (log mode)")
	cmd.Flags().StringVar(&policyPath, "policy", "", "policy YAML to replay the log against")
	return cmd
}

// #region modes
func runFixtureMode(out io.Writer, path string) (int, error) {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return 0, err
	}
	events, err := f.TimedEvents()
	if err != nil {
		return 0, err
	}
	results := replay.Replay(events, f.Config.ToPolicyConfig())

	expected := make([]string, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		expected[i] = e.Action
	}
	code := printComparison(out, results, expected)
	for _, m := range f.Check(results) {
		if m.Field == "action" {
			continue
		}
		fmt.Fprintf(out, "  %s %s: want %s, got %s\n", m.TurnID, m.Field, m.Want, m.Got)
		code = 1
	}
	return code, nil
}

// runLogMode replays an exported log. With --policy it shows how a tuning
// change would have moved the recorded decisions.
func runLogMode(out io.Writer, path, policyPath string) (int, error) {
	doc, err := session.ReadDocument(path)
	if err != nil {
		return 0, err
	}
	if len(doc.Entries) == 0 {
		return 0, fmt.Errorf("%s has no entries", path)
	}
	cfg, err := loadPolicy(policyPath)
	if err != nil {
		return 0, err
	}
	results := replay.Replay(replay.FromEntries(doc.Entries), cfg)

	expected := make([]string, len(doc.Entries))
	for i, e := range doc.Entries {
		expected[i] = replay.ActionHeld
		if e.NewSelection {
			expected[i] = replay.ActionNew
		}
	}
	return printComparison(out, results, expected), nil
}

// #endregion modes

// #region output
// printComparison writes the comparison table and returns the exit code.
func printComparison(out io.Writer, results []replay.Result, expected []string) int {
	fmt.Fprintf(out, "%-12s| %-15s| %-15s| %-24s| %s\n", "Turn", "Expected", "Replayed", "Stems", "Match")
	fmt.Fprintf(out, "%-12s+%-16s+%-16s+%-25s+%s\n",
		"------------", "----------------", "----------------", "-------------------------", "------")

	total := min(len(results), len(expected))
	matches := 0
	for i := 0; i < total; i++ {
		match := "DIFF"
		if expected[i] == results[i].Action {
			match = "OK"
			matches++
		}
		fmt.Fprintf(out, "%-12s| %-15s| %-15s| %-24s| %s\n",
			results[i].TurnID, expected[i], results[i].Action,
			strings.Join(results[i].Intent.ActiveStems, ","), match)
	}

	sum := replay.Summarize(results)
	diverge := total - matches
	fmt.Fprintf(out, "\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)
	fmt.Fprintf(out, "Selections: %d new, %d held, %d transitions, %d keys, final theme %s\n",
		sum.NewSelections, sum.Held, sum.Transitions, sum.DistinctKeys, sum.FinalTheme)

	if diverge > 0 || len(results) != len(expected) {
		return 1
	}
	return 0
}

// #endregion output
