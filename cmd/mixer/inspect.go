package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohitagr18/game-sound-generator/internal/journal"
)

func newInspectCmd() *cobra.Command {
	var dbPath, sessionID string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a journal database",
		Long: `Lists journaled sessions and advisor statistics. With --session, prints
that session's entries and advisor attempts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := journal.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			if sessionID != "" {
				return inspectSession(cmd.Context(), cmd.OutOrStdout(), store, sessionID)
			}
			return inspectOverview(cmd.Context(), cmd.OutOrStdout(), store)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "mixer.db", "path to the journal database")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to show in detail")
	return cmd
}

// #region overview
func inspectOverview(ctx context.Context, out io.Writer, store *journal.Store) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "=== Sessions (%d) ===\n", len(sessions))
	fmt.Fprintf(out, "%-38s %-20s %8s %9s\n", "SESSION", "CREATED", "ENTRIES", "ATTEMPTS")
	for _, s := range sessions {
		fmt.Fprintf(out, "%-38s %-20s %8d %9d\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Entries, s.Attempts)
	}

	fmt.Fprintln(out, "\n=== Advisor ===")
	fmt.Fprintf(out, "recommendations=%d retried=%d exhausted=%d\n", stats.Recommendations, stats.Retried, stats.Exhausted)
	statuses := make([]string, 0, len(stats.AttemptsByStatus))
	for st := range stats.AttemptsByStatus {
		statuses = append(statuses, st)
	}
	slices.Sort(statuses)
	for _, st := range statuses {
		fmt.Fprintf(out, "  %-16s %d\n", st, stats.AttemptsByStatus[st])
	}
	return nil
}

// #endregion overview

// #region session
func inspectSession(ctx context.Context, out io.Writer, store *journal.Store, id string) error {
	entries, err := store.Entries(ctx, id)
	if err != nil {
		return err
	}
	attempts, err := store.Attempts(ctx, id)
	if err != nil {
		return err
	}
	if len(entries) == 0 && len(attempts) == 0 {
		return fmt.Errorf("session %s not found", id)
	}

	fmt.Fprintf(out, "=== Session %s: %d entries ===\n", id, len(entries))
	printEntries(out, entries)

	fmt.Fprintf(out, "\n=== Advisor attempts (%d) ===\n", len(attempts))
	fmt.Fprintf(out, "%-10s %-11s %-8s %-16s %-10s %-9s %s\n", "ADVICE", "NEXT", "ATTEMPT", "STATUS", "OUTCOME", "ACCEPTED", "MS")
	for _, a := range attempts {
		fmt.Fprintf(out, "%-10s %-11s %-8d %-16s %-10s %-9t %d\n",
			shortID(a.AdviceID), a.NextTheme, a.AttemptNum, a.Status, a.Outcome, a.Accepted, a.DurationMS)
	}
	return nil
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// #endregion session
