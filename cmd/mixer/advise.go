package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mohitagr18/game-sound-generator/internal/advisor"
	"github.com/mohitagr18/game-sound-generator/internal/config"
	"github.com/mohitagr18/game-sound-generator/internal/extract"
	"github.com/mohitagr18/game-sound-generator/internal/intent"
	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

func newAdviseCmd() *cobra.Command {
	var logPath, question string
	var history int
	cmd := &cobra.Command{
		Use:   "advise <next-theme>",
		Short: "Ask the model once for the next musical intent",
		Long: `Builds the advisor prompt from an exported session log (optional), calls
the backend selected by MIXER_MODEL and prints the extracted intent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdvise(cmd.Context(), cmd.OutOrStdout(), args[0], logPath, question, history)
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "", "exported session log to use as history")
	cmd.Flags().StringVarP(&question, "question", "q", "", "free-form question for the model")
	cmd.Flags().IntVar(&history, "history", advisor.DefaultHistory, "number of recent turns in the prompt")
	return cmd
}

// #region advise
func runAdvise(ctx context.Context, out io.Writer, theme, logPath, question string, history int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	mixlog.Configure(mixlog.Config{Level: cfg.LogLevel})

	next, ok := intent.ResolveTheme(theme)
	if !ok {
		return fmt.Errorf("unknown theme %q", theme)
	}
	model, closeModel, err := openModel(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeModel()
	if model == nil {
		return errors.New("no model backend configured (set MIXER_MODEL)")
	}

	var turns []advisor.Turn
	if logPath != "" {
		doc, err := session.ReadDocument(logPath)
		if err != nil {
			return err
		}
		for _, e := range doc.Entries {
			turns = append(turns, advisor.Turn{Event: e.Event, Intent: e.Intent})
		}
	}

	table, err := loadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}
	ex, err := extract.New(extract.FadeBand(table.MinFade, table.MaxFade))
	if err != nil {
		return err
	}
	rec := advisor.NewCoordinator(ex).Advise(ctx, model, advisor.Request{
		Turns:     turns,
		NextTheme: next,
		Question:  question,
		History:   history,
	})
	printRecommendation(out, rec)
	if rec.Empty() {
		return &exitError{code: 1}
	}
	return nil
}

// #endregion advise
