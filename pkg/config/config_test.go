package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/noisyavg/pkg/dp"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
input: /srv/data/adult.data
data_dir: /srv/out
epsilon: 1.0
trials: 250
seed: 42
selection:
  min_age: 30
variants:
  prefix: census
  drop_age: 40
  mode: records
check:
  bins: [10, 20]
  alpha: 0.5
plot:
  epsilons: [0.1, 1.0, 2.0]
  output_dir: /srv/plots
`
	path := writeTempFile(t, "config.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Input != "/srv/data/adult.data" {
		t.Errorf("Input = %q", cfg.Input)
	}
	if cfg.DataDir != "/srv/out" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Epsilon != 1.0 || cfg.Trials != 250 || cfg.Seed != 42 {
		t.Errorf("Epsilon, Trials, Seed = %v, %d, %d", cfg.Epsilon, cfg.Trials, cfg.Seed)
	}
	if cfg.Selection.MinAge != 30 {
		t.Errorf("Selection.MinAge = %d, want 30", cfg.Selection.MinAge)
	}
	if cfg.Variants.Prefix != "census" || cfg.Variants.DropAge != 40 || cfg.Variants.Mode != variant.ModeRecords {
		t.Errorf("Variants = %+v", cfg.Variants)
	}
	if len(cfg.Check.Bins) != 2 || cfg.Check.Alpha != 0.5 {
		t.Errorf("Check = %+v", cfg.Check)
	}
	if cfg.Check.RoundPlaces != DefaultRoundPlaces {
		t.Errorf("Check.RoundPlaces = %d, want default %d", cfg.Check.RoundPlaces, DefaultRoundPlaces)
	}
	if len(cfg.Plot.Epsilons) != 3 || cfg.Plot.OutputDir != "/srv/plots" {
		t.Errorf("Plot = %+v", cfg.Plot)
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "epsilon: 2\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Epsilon != 2 {
		t.Errorf("Epsilon = %v, want 2", cfg.Epsilon)
	}
	if cfg.Input != DefaultInput || cfg.DataDir != DefaultDataDir || cfg.Trials != DefaultTrials {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	if cfg.Variants.DropAge != variant.DefaultDropAge {
		t.Errorf("Variants.DropAge = %d, want %d", cfg.Variants.DropAge, variant.DefaultDropAge)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Epsilon != DefaultEpsilon || cfg.Trials != DefaultTrials {
		t.Errorf("Epsilon, Trials = %v, %d", cfg.Epsilon, cfg.Trials)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(context.Background(), "/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "invalid.yaml", `invalid: yaml: content: [`)
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestLoad_InvalidEpsilon(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "epsilon: 0\n")
	_, err := Load(context.Background(), path)
	if !errors.Is(err, dp.ErrInvalidParameter) {
		t.Errorf("Load() error = %v, want ErrInvalidParameter", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("NOISYAVG_EPSILON", "0.25")
	t.Setenv("NOISYAVG_TRIALS", "10")
	t.Setenv("NOISYAVG_SEED", "7")
	t.Setenv("NOISYAVG_DATA_DIR", "/tmp/env-out")
	t.Setenv("NOISYAVG_VARIANT_MODE", "records")
	t.Setenv("NOISYAVG_MIN_AGE", "18")

	path := writeTempFile(t, "config.yaml", "epsilon: 3\ntrials: 99\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Epsilon != 0.25 {
		t.Errorf("Epsilon = %v, want 0.25 from environment", cfg.Epsilon)
	}
	if cfg.Trials != 10 {
		t.Errorf("Trials = %d, want 10 from environment", cfg.Trials)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
	if cfg.DataDir != "/tmp/env-out" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Variants.Mode != variant.ModeRecords {
		t.Errorf("Variants.Mode = %q", cfg.Variants.Mode)
	}
	if cfg.Selection.MinAge != 18 {
		t.Errorf("Selection.MinAge = %d, want 18", cfg.Selection.MinAge)
	}
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("NOISYAVG_TRIALS", "many")

	_, err := Load(context.Background(), "")
	if err == nil {
		t.Error("Load() expected error for non-numeric NOISYAVG_TRIALS")
	}
}

func TestRead_DoesNotValidate(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "epsilon: -1\n")
	cfg, err := Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if cfg.Epsilon != -1 {
		t.Errorf("Epsilon = %v, want -1", cfg.Epsilon)
	}
	if err := Validate(cfg); !errors.Is(err, dp.ErrInvalidParameter) {
		t.Errorf("Validate() error = %v, want ErrInvalidParameter", err)
	}
}

func TestEnvHelp(t *testing.T) {
	help, err := EnvHelp()
	if err != nil {
		t.Fatalf("EnvHelp() error = %v", err)
	}
	for _, name := range []string{"NOISYAVG_EPSILON", "NOISYAVG_TRIALS", "NOISYAVG_INPUT", "NOISYAVG_VARIANT_MODE"} {
		if !strings.Contains(help, name) {
			t.Errorf("EnvHelp() missing %s", name)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"missing input", func(c *Config) { c.Input = " " }, true},
		{"missing data dir", func(c *Config) { c.DataDir = "" }, true},
		{"zero epsilon", func(c *Config) { c.Epsilon = 0 }, true},
		{"negative epsilon", func(c *Config) { c.Epsilon = -0.5 }, true},
		{"negative trials", func(c *Config) { c.Trials = -1 }, true},
		{"zero trials", func(c *Config) { c.Trials = 0 }, false},
		{"prefix with path", func(c *Config) { c.Variants.Prefix = "a/b" }, true},
		{"unknown mode", func(c *Config) { c.Variants.Mode = "rows" }, true},
		{"zero bins", func(c *Config) { c.Check.Bins = []int{10, 0} }, true},
		{"negative alpha", func(c *Config) { c.Check.Alpha = -1 }, true},
		{"round places too large", func(c *Config) { c.Check.RoundPlaces = 20 }, true},
		{"bad plot epsilon", func(c *Config) { c.Plot.Epsilons = []float64{0.5, 0} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_InvalidParameterSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trials = -5
	if err := Validate(cfg); !errors.Is(err, dp.ErrInvalidParameter) {
		t.Errorf("Validate() error = %v, want ErrInvalidParameter", err)
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variants.Prefix = ""
	cfg.Variants.Mode = ""
	cfg.Check.Bins = nil
	cfg.Plot.Epsilons = nil
	cfg.Plot.OutputDir = ""

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Variants.Prefix != DefaultVariantPrefix {
		t.Errorf("Variants.Prefix = %q", cfg.Variants.Prefix)
	}
	if cfg.Variants.Mode != variant.ModeIndex {
		t.Errorf("Variants.Mode = %q", cfg.Variants.Mode)
	}
	if len(cfg.Check.Bins) != len(DefaultCheckBins) {
		t.Errorf("Check.Bins = %v", cfg.Check.Bins)
	}
	if len(cfg.Plot.Epsilons) != len(DefaultPlotEpsilons) || cfg.Plot.OutputDir != DefaultPlotDir {
		t.Errorf("Plot = %+v", cfg.Plot)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Input != "data/adult.data" {
		t.Errorf("Input = %q", cfg.Input)
	}
	if cfg.Epsilon != 0.5 {
		t.Errorf("Epsilon = %v, want 0.5", cfg.Epsilon)
	}
	if cfg.Trials != 1000 {
		t.Errorf("Trials = %d, want 1000", cfg.Trials)
	}
	if cfg.Selection.MinAge != 25 {
		t.Errorf("Selection.MinAge = %d, want 25", cfg.Selection.MinAge)
	}

	// Default slices must not alias the package-level defaults.
	cfg.Check.Bins[0] = 999
	if DefaultCheckBins[0] == 999 {
		t.Error("DefaultConfig() shares Check.Bins with DefaultCheckBins")
	}
}

func TestFileNames(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		got  string
		want string
	}{
		{cfg.VariantFile(variant.MinusOldest), "adult_minus_oldest.data"},
		{cfg.VariantFile(variant.MinusAge(26)), "adult_minus_age26.data"},
		{cfg.VariantFile(variant.MinusYoungest), "adult_minus_youngest.data"},
		{ResultFile(0.5, variant.Original), "noisy_results_eps0.500000_original.txt"},
		{ResultFile(1, variant.MinusAge(26)), "noisy_results_eps1.000000_minus_age26.txt"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("file name = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestVariantOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variants.DropAge = 30
	cfg.Variants.Mode = variant.ModeRecords

	opts := cfg.VariantOptions()
	if opts.DropAge != 30 || opts.Mode != variant.ModeRecords {
		t.Errorf("VariantOptions() = %+v", opts)
	}
}

// ============================================================================
// Webhook Validation Tests
// ============================================================================

func configWithWebhooks(webhooks ...WebhookConfig) *Config {
	cfg := DefaultConfig()
	cfg.Webhooks = webhooks
	return cfg
}

func TestValidate_Webhook_Valid(t *testing.T) {
	cfg := configWithWebhooks(WebhookConfig{
		Name:    "test-webhook",
		URL:     "https://example.com/webhook",
		Trigger: WebhookTriggerOnWarnings,
		Timeout: 10 * time.Second,
	})
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_Webhook_ValidHTTP(t *testing.T) {
	cfg := configWithWebhooks(WebhookConfig{URL: "http://localhost:8080/webhook"})
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_Webhook_Invalid(t *testing.T) {
	tests := []struct {
		name string
		wh   WebhookConfig
	}{
		{"missing url", WebhookConfig{Name: "no-url", Trigger: WebhookTriggerOnWarnings}},
		{"non-http scheme", WebhookConfig{URL: "ftp://example.com/webhook"}},
		{"missing host", WebhookConfig{URL: "https:///webhook"}},
		{"invalid trigger", WebhookConfig{URL: "https://example.com/webhook", Trigger: "invalid_trigger"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(configWithWebhooks(tt.wh)); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestValidate_Webhook_AllTriggers(t *testing.T) {
	triggers := []WebhookTrigger{
		WebhookTriggerOnWarnings,
		WebhookTriggerAlways,
		WebhookTriggerNever,
	}

	for _, trigger := range triggers {
		cfg := configWithWebhooks(WebhookConfig{URL: "https://example.com/webhook", Trigger: trigger})
		if err := Validate(cfg); err != nil {
			t.Errorf("Validate() with trigger %q error = %v", trigger, err)
		}
	}
}

func TestValidate_Webhook_Defaults(t *testing.T) {
	cfg := configWithWebhooks(WebhookConfig{URL: "https://example.com/webhook"})
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Webhooks[0].Trigger != WebhookTriggerOnWarnings {
		t.Errorf("Default trigger = %v, want %v", cfg.Webhooks[0].Trigger, WebhookTriggerOnWarnings)
	}
	if cfg.Webhooks[0].Timeout != DefaultWebhookTimeout {
		t.Errorf("Default timeout = %v, want %v", cfg.Webhooks[0].Timeout, DefaultWebhookTimeout)
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("TEST_WEBHOOK_TOKEN", "secret-value")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_WEBHOOK_TOKEN}", "secret-value"},
		{"$TEST_WEBHOOK_TOKEN", "secret-value"},
		{"plain-value", "plain-value"},
		{"", ""},
		{"${NONEXISTENT_VAR}", ""},
	}

	for _, tt := range tests {
		got := expandEnvVar(tt.input)
		if got != tt.want {
			t.Errorf("expandEnvVar(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoad_WithWebhooks(t *testing.T) {
	content := `
webhooks:
  - name: test-webhook
    url: "https://example.com/webhook"
    trigger: on_warnings
    timeout: 30s
  - url: "https://backup.example.com/webhook"
    trigger: always
`
	path := writeTempFile(t, "config-with-webhooks.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Webhooks) != 2 {
		t.Fatalf("Webhooks = %d, want 2", len(cfg.Webhooks))
	}
	if cfg.Webhooks[0].Name != "test-webhook" {
		t.Errorf("Webhook[0].Name = %q, want %q", cfg.Webhooks[0].Name, "test-webhook")
	}
	if cfg.Webhooks[0].Timeout != 30*time.Second {
		t.Errorf("Webhook[0].Timeout = %v, want 30s", cfg.Webhooks[0].Timeout)
	}
	if cfg.Webhooks[1].Trigger != WebhookTriggerAlways {
		t.Errorf("Webhook[1].Trigger = %v, want %v", cfg.Webhooks[1].Trigger, WebhookTriggerAlways)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}
