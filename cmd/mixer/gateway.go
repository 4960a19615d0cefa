package main

import (
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/mohitagr18/game-sound-generator/internal/codec"
	"github.com/mohitagr18/game-sound-generator/internal/config"
	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
)

func newGatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Expose the configured model backend as a gRPC service",
		Long: `Serves the model selected by MIXER_MODEL on MIXER_GATEWAY_LISTEN so
mixer instances started with MIXER_MODEL=grpc can share it.`,
		Args: cobra.NoArgs,
		RunE: runGateway,
	}
}

// #region gateway
func runGateway(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	mixlog.Configure(mixlog.Config{Level: cfg.LogLevel})
	logger := mixlog.WithComponent("gateway")

	if cfg.Model == config.BackendNone || cfg.Model == config.BackendGRPC {
		return fmt.Errorf("gateway needs a local backend, MIXER_MODEL is %q", cfg.Model)
	}
	model, closeModel, err := openModel(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeModel()

	lis, err := net.Listen("tcp", cfg.GatewayAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GatewayAddr, err)
	}
	gs := grpc.NewServer()
	codec.RegisterAdvisorServiceServer(gs, codec.NewGateway(model))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("event", "gateway.start").Str("addr", lis.Addr().String()).Str("model", cfg.Model).Msg("gateway listening")
		if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str("event", "gateway.shutdown").Msg("stopping gateway")
		gs.GracefulStop()
		return nil
	})
	return g.Wait()
}

// #endregion gateway
