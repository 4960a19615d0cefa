package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mohitagr18/game-sound-generator/internal/policy"
)

// #region load-policy
// LoadPolicy reads a YAML policy table. Fields absent from the file keep the
// stock values; a state listed under stems replaces that row. Unknown keys
// are rejected. An empty path returns the stock table.
func LoadPolicy(path string) (policy.Config, error) {
	cfg := policy.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return policy.Config{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy table over the stock values.
func ParsePolicy(data []byte) (policy.Config, error) {
	cfg := policy.DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return policy.Config{}, fmt.Errorf("parse policy file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return policy.Config{}, fmt.Errorf("validate policy: %w", err)
	}
	return cfg, nil
}

// #endregion load-policy
