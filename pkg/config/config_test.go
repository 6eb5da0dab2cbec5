package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eforeli/XWebNews/engine/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Mode != "rotate" || cfg.BatchSize != 2 {
		t.Fatalf("unexpected defaults: mode=%s batchSize=%d", cfg.Mode, cfg.BatchSize)
	}
	if cfg.MonthlyCeiling != 100 || cfg.PerRequest != 10 {
		t.Fatalf("unexpected quota defaults: %+v", cfg)
	}
	if cfg.Cooldown.Std() != 15*time.Minute {
		t.Fatalf("cooldown = %s, want 15m", cfg.Cooldown.Std())
	}
	if len(cfg.Categories) != len(domain.DefaultCategories) {
		t.Fatalf("got %d default categories, want %d", len(cfg.Categories), len(domain.DefaultCategories))
	}
	if cfg.Categories[0].Name != string(domain.DefaultCategories[0]) {
		t.Fatalf("category order not preserved: %s", cfg.Categories[0].Name)
	}
	if cfg.DefaultCategory != string(domain.CategoryInfrastructure) {
		t.Fatalf("default fallback category = %s", cfg.DefaultCategory)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("TWITTER_BEARER_TOKEN", "")
	t.Setenv("NATS_URL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BatchSize != 2 || cfg.BearerToken != "" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("TWITTER_BEARER_TOKEN", "")
	path := writeConfig(t, `
mode: hybrid
batchSize: 7
cooldown: 5m
backoff: [10s, 20s]
categories:
  - name: DeFi
    primary: [defi]
    related: [yield]
  - name: Meme_Coins
    primary: [memecoin]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Mode != "hybrid" || cfg.BatchSize != 7 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Cooldown.Std() != 5*time.Minute {
		t.Fatalf("cooldown = %s, want 5m", cfg.Cooldown.Std())
	}
	if got := cfg.BackoffSchedule(); len(got) != 2 || got[0] != 10*time.Second || got[1] != 20*time.Second {
		t.Fatalf("backoff = %v", got)
	}
	// Untouched keys keep their defaults.
	if cfg.MonthlyCeiling != 100 {
		t.Fatalf("ceiling = %d, want default 100", cfg.MonthlyCeiling)
	}

	order, keywords := cfg.CategoryList()
	if len(order) != 2 || order[0] != "DeFi" || order[1] != "Meme_Coins" {
		t.Fatalf("category order = %v", order)
	}
	if ks := keywords["DeFi"]; len(ks.Primary) != 1 || ks.Related[0] != "yield" {
		t.Fatalf("DeFi keywords = %+v", ks)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TWITTER_BEARER_TOKEN", "secret-token")
	t.Setenv("NATS_URL", "nats://broker:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BearerToken != "secret-token" {
		t.Fatalf("bearer token not taken from env: %q", cfg.BearerToken)
	}
	if cfg.NATS.URL != "nats://broker:4222" {
		t.Fatalf("NATS URL not taken from env: %q", cfg.NATS.URL)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "cooldown: fifteen\n")
	if _, err := Load(path); err == nil {
		t.Fatal("want error for unparsable duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("want error for missing explicit config path")
	}
}

func TestLoadEmptyCategoriesFallBack(t *testing.T) {
	t.Setenv("TWITTER_BEARER_TOKEN", "")
	path := writeConfig(t, "batchSize: 3\ncategories: []\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Categories) != len(domain.DefaultCategories) {
		t.Fatalf("empty category list must fall back to defaults, got %d", len(cfg.Categories))
	}
}
