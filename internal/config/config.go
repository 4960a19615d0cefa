// Package config loads process settings from the environment and the policy
// table from an optional YAML file that can be hot-reloaded.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// #region backends
// Model backends selectable with MIXER_MODEL.
const (
	BackendNone     = "none"
	BackendGRPC     = "grpc"
	BackendGemini   = "gemini"
	BackendScripted = "scripted"
)

// #endregion backends

// #region config
// Config holds the process settings.
type Config struct {
	ListenAddr      string        `env:"MIXER_LISTEN" envDefault:":8080"`
	DB              string        `env:"MIXER_DB" envDefault:":memory:"`
	PolicyFile      string        `env:"MIXER_POLICY_FILE"`
	ReferenceTZ     string        `env:"MIXER_REFERENCE_TZ" envDefault:"UTC"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Model           string        `env:"MIXER_MODEL" envDefault:"none"`
	CodecAddr       string        `env:"CODEC_ADDR" envDefault:"localhost:50051"`
	GeminiAPIKey    string        `env:"GOOGLE_API_KEY"`
	GeminiModel     string        `env:"MIXER_GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	ScriptFile      string        `env:"MIXER_SCRIPT_FILE"`
	GatewayAddr     string        `env:"MIXER_GATEWAY_LISTEN" envDefault:":50051"`
	RateLimit       int           `env:"MIXER_RATE_LIMIT" envDefault:"120"` // requests per minute per client IP
	MaxSessions     int           `env:"MIXER_MAX_SESSIONS" envDefault:"256"`
	ShutdownTimeout time.Duration `env:"MIXER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	switch c.Model {
	case BackendNone, BackendGRPC, BackendScripted:
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("MIXER_MODEL=gemini requires GOOGLE_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("MIXER_MODEL %q: want none, grpc, gemini or scripted", c.Model))
	}
	if c.Model == BackendScripted && c.ScriptFile == "" {
		errs = append(errs, errors.New("MIXER_MODEL=scripted requires MIXER_SCRIPT_FILE"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("MIXER_RATE_LIMIT %d is negative", c.RateLimit))
	}
	if c.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("MIXER_MAX_SESSIONS %d must be positive", c.MaxSessions))
	}
	return errors.Join(errs...)
}

// Location resolves the reference time zone for intent timestamps.
func (c Config) Location() (*time.Location, error) {
	if c.ReferenceTZ == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.ReferenceTZ)
	if err != nil {
		return nil, fmt.Errorf("MIXER_REFERENCE_TZ %q: %w", c.ReferenceTZ, err)
	}
	return loc, nil
}

// #endregion config
