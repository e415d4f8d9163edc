// Package config assembles engine configuration from defaults, an optional
// YAML file and SEG_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/query-coordinator/internal/cache"
	"github.com/danielpatrickdp/query-coordinator/internal/coordinator"
	"github.com/danielpatrickdp/query-coordinator/internal/eval"
	"github.com/danielpatrickdp/query-coordinator/internal/graph"
	"github.com/danielpatrickdp/query-coordinator/internal/runner"
	"github.com/danielpatrickdp/query-coordinator/internal/segment"
	"github.com/danielpatrickdp/query-coordinator/internal/segmenter"
	"github.com/danielpatrickdp/query-coordinator/internal/synth"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// #region types

// CacheConfig controls the segmentation cache.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	Persistent bool          `yaml:"persistent"` // back the memory cache with SQLite
}

// Config is the full engine configuration.
type Config struct {
	ModelAddr   string             `yaml:"model_addr"`
	Database    string             `yaml:"database"`
	History     bool               `yaml:"history"`    // learned tier advice
	Throughput  float64            `yaml:"throughput"` // tokens per second for plan estimates
	Cache       CacheConfig        `yaml:"cache"`
	Segmenter   segmenter.Config   `yaml:"segmenter"`
	Runner      runner.Config      `yaml:"runner"`
	Coordinator coordinator.Config `yaml:"coordinator"`
	Synth       synth.Config       `yaml:"synth"`
	Eval        eval.EvalConfig    `yaml:"eval"`
}

// #endregion types

// #region defaults

// Default returns the production defaults.
func Default() Config {
	cfg := Config{
		ModelAddr:   "localhost:50051",
		Database:    "segmenter.db",
		History:     true,
		Throughput:  graph.DefaultThroughput,
		Cache:       CacheConfig{TTL: cache.DefaultTTL, Persistent: true},
		Segmenter:   segmenter.DefaultConfig(),
		Runner:      runner.DefaultConfig(),
		Coordinator: coordinator.DefaultConfig(),
		Synth:       synth.DefaultConfig(),
		Eval:        eval.DefaultEvalConfig(),
	}
	cfg.sync()
	return cfg
}

// sync copies settings shared between components from their owner.
func (c *Config) sync() {
	c.Segmenter.EscalationThreshold = c.Runner.EscalationThreshold
	c.Coordinator.SegmentTimeout = c.Runner.SegmentTimeout
}

// #endregion defaults

// #region load

// Load reads path over the defaults, applies the environment and validates.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	cfg.sync()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load

// #region env

// ApplyEnv overrides fields from SEG_* environment variables.
func (c *Config) ApplyEnv() error {
	c.ModelAddr = envOr("SEG_MODEL_ADDR", c.ModelAddr)
	c.Database = envOr("SEG_DB", c.Database)

	var err error
	if c.Runner.SegmentTimeout, err = envDuration("SEG_SEGMENT_TIMEOUT", c.Runner.SegmentTimeout); err != nil {
		return err
	}
	if c.Coordinator.QueryTimeout, err = envDuration("SEG_QUERY_TIMEOUT", c.Coordinator.QueryTimeout); err != nil {
		return err
	}
	if c.Cache.TTL, err = envDuration("SEG_CACHE_TTL", c.Cache.TTL); err != nil {
		return err
	}
	if c.Coordinator.MaxParallel, err = envInt("SEG_MAX_PARALLEL", c.Coordinator.MaxParallel); err != nil {
		return err
	}
	if c.Throughput, err = envFloat("SEG_THROUGHPUT", c.Throughput); err != nil {
		return err
	}

	switch v := strings.ToLower(os.Getenv("SEG_ESCALATION")); v {
	case "":
	case "false", "off", "0":
		c.Coordinator.EscalationQueue = 0
	default:
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SEG_ESCALATION=%q: %w", v, ErrInvalid)
		}
		c.Coordinator.EscalationQueue = n
	}

	if v := os.Getenv("SEG_HISTORY"); v == "false" {
		c.History = false
	}
	if v := os.Getenv("SEG_MAX_TIER"); v != "" {
		c.Runner.MaxTier = segment.Tier(strings.ToLower(v))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, v, ErrInvalid)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, v, ErrInvalid)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, v, ErrInvalid)
	}
	return f, nil
}

// #endregion env

// #region validate

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	r := c.Runner
	checks := []struct {
		ok   bool
		what string
	}{
		{inUnit(r.ContextThreshold), "runner.context_threshold must be in [0,1]"},
		{inUnit(r.EscalationThreshold), "runner.escalation_threshold must be in [0,1]"},
		{r.ConfidenceCap > 0 && r.ConfidenceCap <= 1, "runner.confidence_cap must be in (0,1]"},
		{inUnit(r.StructuredConfidence), "runner.structured_confidence must be in [0,1]"},
		{inUnit(r.FallbackConfidence), "runner.fallback_confidence must be in [0,1]"},
		{r.RelevanceScale > 0, "runner.relevance_scale must be positive"},
		{r.FactsPerDependency >= 0, "runner.facts_per_dependency must not be negative"},
		{r.SegmentTimeout > 0, "runner.segment_timeout must be positive"},
		{r.MaxTokens > 0, "runner.max_tokens must be positive"},
		{r.Temperature >= 0, "runner.temperature must not be negative"},
		{r.MaxTier == "" || r.MaxTier.Valid(), "runner.max_tier must be tiny, small, medium or large"},
		{c.Coordinator.MaxParallel >= 1, "coordinator.max_parallel must be at least 1"},
		{c.Coordinator.EscalationQueue >= 0, "coordinator.escalation_queue must not be negative"},
		{c.Coordinator.QueryTimeout >= 0, "coordinator.query_timeout must not be negative"},
		{c.Throughput > 0, "throughput must be positive"},
		{c.Cache.TTL > 0, "cache.ttl must be positive"},
		{c.Synth.TopResults > 0, "synth.top_results must be positive"},
		{c.Synth.TopFindings > 0, "synth.top_findings must be positive"},
		{c.Segmenter.MaxEntities > 0, "segmenter.max_entities must be positive"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s", ErrInvalid, chk.what)
		}
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// #endregion validate
