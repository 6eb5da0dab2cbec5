// Package config loads harvester settings from an optional YAML file with
// environment overrides for credentials and endpoints.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eforeli/XWebNews/engine/domain"
)

const (
	bearerTokenEnv = "TWITTER_BEARER_TOKEN"
	natsURLEnv     = "NATS_URL"
)

// Duration is a time.Duration that unmarshals from YAML strings like "15m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// CategoryConfig describes one topic bucket and its keyword vocabulary.
type CategoryConfig struct {
	Name    string   `yaml:"name"`
	Primary []string `yaml:"primary"`
	Related []string `yaml:"related"`
}

// NATSConfig wires the downstream handoff.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Config holds all harvester settings.
type Config struct {
	Mode             string           `yaml:"mode"` // rotate | hybrid
	BatchSize        int              `yaml:"batchSize"`
	PerRequest       int              `yaml:"perRequest"`
	PerCategoryLimit int              `yaml:"perCategoryLimit"`
	MonthlyCeiling   int              `yaml:"monthlyCeiling"`
	Cooldown         Duration         `yaml:"cooldown"`
	MaxAttempts      int              `yaml:"maxAttempts"`
	Backoff          []Duration       `yaml:"backoff"`
	DataDir          string           `yaml:"dataDir"`
	MetricsPort      int              `yaml:"metricsPort"`
	DefaultCategory  string           `yaml:"defaultCategory"`
	Categories       []CategoryConfig `yaml:"categories"`
	NATS             NATSConfig       `yaml:"nats"`

	// BearerToken comes from the environment only, never from the file.
	BearerToken string `yaml:"-"`
}

// Default returns the free-tier policy: two categories per day, ten posts per
// request against a 100-post month, one request per 15-minute window.
func Default() Config {
	cfg := Config{
		Mode:             "rotate",
		BatchSize:        2,
		PerRequest:       10,
		PerCategoryLimit: 10,
		MonthlyCeiling:   100,
		Cooldown:         Duration(15 * time.Minute),
		MaxAttempts:      3,
		Backoff:          []Duration{Duration(30 * time.Second), Duration(time.Minute), Duration(2 * time.Minute)},
		DataDir:          "data",
		MetricsPort:      9093,
		DefaultCategory:  string(domain.CategoryInfrastructure),
		NATS:             NATSConfig{Subject: "xwebnews.harvest.completed"},
	}
	for _, cat := range domain.DefaultCategories {
		ks := domain.DefaultKeywords[cat]
		cfg.Categories = append(cfg.Categories, CategoryConfig{
			Name:    string(cat),
			Primary: ks.Primary,
			Related: ks.Related,
		})
	}
	return cfg
}

// Load reads the YAML file at path (skipped when path is empty) over the
// defaults and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv(bearerTokenEnv); v != "" {
		cfg.BearerToken = v
	}
	if v := os.Getenv(natsURLEnv); v != "" {
		cfg.NATS.URL = v
	}

	if len(cfg.Categories) == 0 {
		cfg.Categories = Default().Categories
	}
	return cfg, nil
}

// CategoryList converts the configured categories into the domain's ordered
// list and keyword map.
func (c Config) CategoryList() ([]domain.Category, map[domain.Category]domain.KeywordSet) {
	order := make([]domain.Category, 0, len(c.Categories))
	keywords := make(map[domain.Category]domain.KeywordSet, len(c.Categories))
	for _, cc := range c.Categories {
		cat := domain.Category(cc.Name)
		order = append(order, cat)
		keywords[cat] = domain.KeywordSet{Primary: cc.Primary, Related: cc.Related}
	}
	return order, keywords
}

// BackoffSchedule converts the configured backoff slots.
func (c Config) BackoffSchedule() []time.Duration {
	out := make([]time.Duration, len(c.Backoff))
	for i, d := range c.Backoff {
		out[i] = d.Std()
	}
	return out
}
