package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohitagr18/game-sound-generator/internal/journal"
	"github.com/mohitagr18/game-sound-generator/internal/replay"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

func newExportCmd() *cobra.Command {
	var dbPath, sessionID, outPath, description string
	var asFixture bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a journaled session as a log document or replay fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionID == "" || outPath == "" {
				return fmt.Errorf("--session and --out are required")
			}
			store, err := journal.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			return exportSession(cmd.Context(), cmd.OutOrStdout(), store, sessionID, outPath, description, asFixture)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "mixer.db", "path to the journal database")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to export")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file")
	cmd.Flags().BoolVar(&asFixture, "fixture", false, "write a replay fixture instead of a log document")
	cmd.Flags().StringVar(&description, "description", "", "fixture description")
	return cmd
}

// #region export
func exportSession(ctx context.Context, out io.Writer, store *journal.Store, id, path, description string, asFixture bool) error {
	entries, err := store.Entries(ctx, id)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("session %s has no entries", id)
	}

	if asFixture {
		if description == "" {
			description = "exported from session " + id
		}
		if err := replay.WriteFixture(path, replay.FixtureFromEntries(description, entries)); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote fixture with %d events to %s\n", len(entries), path)
		return nil
	}

	log := session.NewLog()
	for _, e := range entries {
		log.Append(e)
	}
	doc := session.Document{
		SessionID:  id,
		ExportedAt: time.Now().UTC(),
		Entries:    log.Entries(),
		KPI:        log.KPIReport(),
	}
	if err := session.WriteDocument(path, doc); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d entries to %s\n", len(entries), path)
	return nil
}

// #endregion export
