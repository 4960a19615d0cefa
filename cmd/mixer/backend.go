package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mohitagr18/game-sound-generator/internal/advisor"
	"github.com/mohitagr18/game-sound-generator/internal/codec"
	"github.com/mohitagr18/game-sound-generator/internal/config"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
)

// #region model-backend
// openModel builds the configured model backend. A nil model with a nil
// error means the advisor is disabled.
func openModel(ctx context.Context, cfg config.Config) (advisor.Model, func(), error) {
	noop := func() {}
	switch cfg.Model {
	case config.BackendGRPC:
		client, err := codec.NewModelClient(cfg.CodecAddr)
		if err != nil {
			return nil, noop, fmt.Errorf("connect model service at %s: %w", cfg.CodecAddr, err)
		}
		return client, func() { _ = client.Close() }, nil
	case config.BackendGemini:
		m, err := codec.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, err
		}
		return m, noop, nil
	case config.BackendScripted:
		responses, err := loadScript(cfg.ScriptFile)
		if err != nil {
			return nil, noop, err
		}
		return codec.NewScripted(responses...), noop, nil
	default:
		return nil, noop, nil
	}
}

// loadScript reads a YAML (or JSON) list of canned model answers.
func loadScript(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var responses []string
	if err := yaml.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("script %s has no responses", path)
	}
	return responses, nil
}

// #endregion model-backend

// loadPolicy returns the table in path, or the stock table when path is empty.
func loadPolicy(path string) (policy.Config, error) {
	if path == "" {
		return policy.DefaultConfig(), nil
	}
	return config.LoadPolicy(path)
}
