package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohitagr18/game-sound-generator/internal/advisor"
	"github.com/mohitagr18/game-sound-generator/internal/config"
	"github.com/mohitagr18/game-sound-generator/internal/extract"
	"github.com/mohitagr18/game-sound-generator/internal/intent"
	"github.com/mohitagr18/game-sound-generator/internal/journal"
	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

const replHelp = `commands:
  <state> <intensity> [flag ...]   post an event, e.g. "combat 80 boss"
  advise <theme> [question ...]     ask the model for the next intent
  log | kpi                         show the session log or KPIs
  export <path>                     write the session log as JSON
  quit`

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Post events interactively against one session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// #region repl
func runRepl(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	mixlog.Configure(mixlog.Config{Level: cfg.LogLevel})

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	table, err := loadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}
	store, err := journal.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	model, closeModel, err := openModel(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeModel()
	ex, err := extract.New(extract.FadeBand(table.MinFade, table.MaxFade))
	if err != nil {
		return err
	}
	coord := advisor.NewCoordinator(ex)

	sess := session.New(table,
		session.WithClock(intent.ReferenceClock(loc)),
		session.WithRecorder(store),
	)

	fmt.Fprintln(out, "Adaptive mixer ready.")
	fmt.Fprintf(out, "  Session: %s | DB: %s | Model: %s\n", sess.ID(), cfg.DB, cfg.Model)
	fmt.Fprintln(out, replHelp)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(out, replHelp)
		case "log":
			printEntries(out, sess.Entries())
		case "kpi":
			printJSON(out, sess.KPIReport())
		case "export":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: export <path>")
				continue
			}
			if err := sess.Export(fields[1]); err != nil {
				fmt.Fprintf(out, "export error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "wrote %s\n", fields[1])
		case "advise":
			if model == nil {
				fmt.Fprintln(out, "no model backend configured (set MIXER_MODEL)")
				continue
			}
			if len(fields) < 2 {
				fmt.Fprintln(out, "usage: advise <theme> [question ...]")
				continue
			}
			next, ok := intent.ResolveTheme(fields[1])
			if !ok {
				fmt.Fprintf(out, "unknown theme %q\n", fields[1])
				continue
			}
			callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
			rec := coord.Advise(callCtx, model, advisor.Request{
				Turns:     sess.Turns(),
				NextTheme: next,
				Question:  strings.Join(fields[2:], " "),
			})
			cancel()
			sess.AddAdvice(ctx, next, strings.Join(fields[2:], " "), rec)
			printRecommendation(out, rec)
		default:
			ev, err := parseEventLine(fields)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			entry, err := sess.Post(ctx, ev)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "[turn-%03d] %s stems=%s new=%t\n",
				entry.Seq, entry.Intent.Theme, strings.Join(entry.Intent.ActiveStems, ","), entry.NewSelection)
		}
	}
	return scanner.Err()
}

// #endregion repl

// #region helpers
// parseEventLine reads "<state> <intensity> [flag ...]".
func parseEventLine(fields []string) (intent.Event, error) {
	if len(fields) < 2 {
		return intent.Event{}, errors.New("want <state> <intensity> [flag ...]")
	}
	state, ok := intent.ResolveTheme(fields[0])
	if !ok {
		state = intent.State(fields[0])
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return intent.Event{}, fmt.Errorf("intensity %q: %w", fields[1], err)
	}
	return intent.NewEvent(state, n, fields[2:]...)
}

func printEntries(out io.Writer, entries []session.Entry) {
	for _, e := range entries {
		fmt.Fprintf(out, "%3d  %-8s %3d  %-12s %-20s %s\n",
			e.Seq, e.Event.State, e.Event.Intensity, strings.Join(e.Event.Flags, ","),
			strings.Join(e.Intent.ActiveStems, ","), e.Source)
	}
}

func printRecommendation(out io.Writer, rec advisor.Recommendation) {
	fmt.Fprintf(out, "outcome=%s attempts=%d\n", rec.Outcome, len(rec.Attempts))
	if !rec.Empty() {
		printJSON(out, rec.Intent)
	}
	if rec.Reasoning != "" {
		fmt.Fprintf(out, "\n%s\n", rec.Reasoning)
	}
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// #endregion helpers
