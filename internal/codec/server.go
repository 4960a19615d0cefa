package codec

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
)

// Generator is any text-in/text-out backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// #region gateway
// Gateway exposes a Generator as an Advisor service so several mixers can
// share one model backend.
type Gateway struct {
	backend Generator
	logger  zerolog.Logger
}

// NewGateway wraps backend.
func NewGateway(backend Generator) *Gateway {
	return &Gateway{backend: backend, logger: mixlog.WithComponent("gateway")}
}

// Generate implements AdvisorServiceServer.
func (g *Gateway) Generate(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "empty prompt")
	}
	text, err := g.backend.Generate(ctx, in.GetValue())
	if err != nil {
		g.logger.Warn().Err(err).Str("event", "gateway.generate").Msg("backend call failed")
		return nil, status.Errorf(codes.Unavailable, "backend: %v", err)
	}
	g.logger.Debug().Str("event", "gateway.generate").Int("prompt_len", len(in.GetValue())).Int("answer_len", len(text)).Msg("answered")
	return wrapperspb.String(text), nil
}

// #endregion gateway
