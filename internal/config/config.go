// Package config loads glyphgate configuration from YAML.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/glyphgate/internal/gate"
	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/operation"
	"github.com/ppiankov/glyphgate/internal/router"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// GateConfig holds escalation gate parameters.
type GateConfig struct {
	Threshold   float64       `yaml:"threshold"`
	Combiner    string        `yaml:"combiner"`
	Weights     gate.Weighted `yaml:"weights"`
	MaxTierStep int           `yaml:"max_tier_step"`
}

// RouterConfig holds the dispatch table and history settings.
type RouterConfig struct {
	HistoryCapacity   int            `yaml:"history_capacity"`
	OptimizeThreshold int            `yaml:"optimize_threshold"`
	Entries           []router.Entry `yaml:"entries"`
}

// AuditConfig controls where gate decisions are recorded.
type AuditConfig struct {
	// Path of the JSONL decision log. Empty disables recording.
	Path   string `yaml:"path"`
	Buffer int    `yaml:"buffer"`
}

// Config is the full glyphgate configuration.
type Config struct {
	Gate     GateConfig       `yaml:"gate"`
	Router   RouterConfig     `yaml:"router"`
	Bindings []symbol.Binding `yaml:"bindings"`
	Audit    AuditConfig      `yaml:"audit"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Gate: GateConfig{
			Threshold: gate.DefaultThreshold,
			Combiner:  gate.DefaultWeights.Name(),
			Weights:   gate.DefaultWeights,
		},
		Router: RouterConfig{
			HistoryCapacity:   router.DefaultHistoryCapacity,
			OptimizeThreshold: router.DefaultOptimizeThreshold,
			Entries:           router.DefaultEntries(),
		},
		Bindings: operation.DefaultBindings(),
		Audit: AuditConfig{
			Buffer: gate.DefaultBuffer,
		},
	}
}

// DefaultPath returns ~/.glyphgate/config.yaml, or "" when the home
// directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".glyphgate", "config.yaml")
}

// LoadConfig loads configuration from a YAML file.
// Empty path falls back to ~/.glyphgate/config.yaml.
// Missing file returns defaults. Invalid YAML or values return an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads configuration and returns the SHA-256 hash of
// the raw bytes on disk. When no file exists the hash is that of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return DefaultConfig(), hashBytes(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), hashBytes(nil), nil
		}
		return nil, "", fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, hashBytes(data), nil
}

// Parse decodes YAML over the defaults and validates the result.
// Fields absent from data keep their default values.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	th := c.Gate.Threshold
	if math.IsNaN(th) || math.IsInf(th, 0) || th < 0 || th > 1 {
		return fmt.Errorf("gate.threshold %v outside [0, 1]", th)
	}
	if err := c.Gate.Weights.Validate(); err != nil {
		return fmt.Errorf("gate.weights: %w", err)
	}
	if _, err := gate.ParseCombiner(c.Gate.Combiner, c.Gate.Weights); err != nil {
		return err
	}
	if c.Gate.MaxTierStep < 0 || c.Gate.MaxTierStep > int(model.MaxTier-model.MinTier) {
		return fmt.Errorf("gate.max_tier_step %d outside [0, %d]", c.Gate.MaxTierStep, int(model.MaxTier-model.MinTier))
	}
	if err := router.ValidateEntries(c.Router.Entries); err != nil {
		return err
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	if c.Audit.Buffer < 0 {
		return fmt.Errorf("audit.buffer %d is negative", c.Audit.Buffer)
	}
	return nil
}

// GateConfig converts the gate section into a gate.Config stamped with hash.
func (c *Config) GateConfig(hash string) (gate.Config, error) {
	comb, err := gate.ParseCombiner(c.Gate.Combiner, c.Gate.Weights)
	if err != nil {
		return gate.Config{}, err
	}
	return gate.Config{
		Threshold:   c.Gate.Threshold,
		Combiner:    comb,
		MaxTierStep: c.Gate.MaxTierStep,
		Hash:        hash,
	}, nil
}

// RouterOptions returns the router options for the configured limits.
func (c *Config) RouterOptions() []router.Option {
	var opts []router.Option
	if c.Router.HistoryCapacity > 0 {
		opts = append(opts, router.WithHistoryCapacity(c.Router.HistoryCapacity))
	}
	if c.Router.OptimizeThreshold > 0 {
		opts = append(opts, router.WithOptimizeThreshold(c.Router.OptimizeThreshold))
	}
	return opts
}

// NewRouter builds a router from the router section.
func (c *Config) NewRouter(extra ...router.Option) (*router.Router, error) {
	return router.New(c.Router.Entries, append(c.RouterOptions(), extra...)...)
}

// Registry builds a symbol registry from the configured bindings. An empty
// list selects the default operation bindings.
func (c *Config) Registry() (*symbol.Registry, error) {
	bindings := c.Bindings
	if len(bindings) == 0 {
		bindings = operation.DefaultBindings()
	}
	return symbol.NewRegistry(bindings...)
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
