package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mohitagr18/game-sound-generator/internal/advisor"
	"github.com/mohitagr18/game-sound-generator/internal/config"
	"github.com/mohitagr18/game-sound-generator/internal/extract"
	"github.com/mohitagr18/game-sound-generator/internal/journal"
	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
	"github.com/mohitagr18/game-sound-generator/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP mixing service",
		Long: `Serves sessions over HTTP. Settings come from the environment
(MIXER_LISTEN, MIXER_DB, MIXER_POLICY_FILE, MIXER_MODEL, ...). The policy file
is watched and reloaded into every live session.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

// #region serve
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	mixlog.Configure(mixlog.Config{Level: cfg.LogLevel})
	logger := mixlog.WithComponent("serve")

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	initial, err := loadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}
	holder := config.NewPolicyHolder(initial, cfg.PolicyFile)

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

	ex, err := extract.New(extract.FadeBand(initial.MinFade, initial.MaxFade))
	if err != nil {
		return fmt.Errorf("build extractor: %w", err)
	}

	srv := server.New(server.Options{
		Policy:      holder.Get,
		Recorder:    store,
		Coordinator: advisor.NewCoordinator(ex),
		Model:       model,
		Location:    loc,
		RateLimit:   cfg.RateLimit,
		MaxSessions: cfg.MaxSessions,
	})
	defer srv.Close()
	holder.OnReload(srv.ApplyPolicy)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := holder.StartWatcher(gctx); err != nil {
		return err
	}

	g.Go(func() error {
		logger.Info().
			Str("event", "serve.start").
			Str("addr", cfg.ListenAddr).
			Str("db", cfg.DB).
			Str("model", cfg.Model).
			Msg("mixer listening")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info().Str("event", "serve.shutdown").Msg("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// #endregion serve
