// Package config provides configuration loading and validation for noisyavg.
package config

import (
	"time"

	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// Input is the dataset to analyze.
	Input string `yaml:"input" env:"NOISYAVG_INPUT" env-description:"dataset file to analyze"`

	// DataDir receives the variant datasets and noisy result files.
	DataDir string `yaml:"data_dir" env:"NOISYAVG_DATA_DIR" env-description:"directory for generated datasets and results"`

	// Epsilon is the privacy budget of each noisy estimate.
	Epsilon float64 `yaml:"epsilon" env:"NOISYAVG_EPSILON" env-description:"privacy budget (> 0)"`

	// Trials is the number of noisy estimates written per dataset.
	Trials int `yaml:"trials" env:"NOISYAVG_TRIALS" env-description:"noisy estimates per dataset (>= 0)"`

	// Seed seeds the random generator shared by all runs.
	// Zero draws a fresh seed, which is recorded in the report.
	Seed uint64 `yaml:"seed,omitempty" env:"NOISYAVG_SEED" env-description:"random seed (0 picks one)"`

	Selection SelectionConfig `yaml:"selection"`
	Variants  VariantsConfig  `yaml:"variants"`
	Check     CheckConfig     `yaml:"check"`
	Plot      PlotConfig      `yaml:"plot"`
	Webhooks  []WebhookConfig `yaml:"webhooks,omitempty"`
}

// SelectionConfig defines which records take part in the average.
type SelectionConfig struct {
	// MinAge is the exclusive lower bound: records with age > MinAge are used.
	MinAge int `yaml:"min_age" env:"NOISYAVG_MIN_AGE" env-description:"average only ages strictly above this value"`
}

// VariantsConfig defines how variant datasets are derived and named.
type VariantsConfig struct {
	// Prefix starts every variant file name, e.g. adult_minus_oldest.data.
	Prefix string `yaml:"prefix" env:"NOISYAVG_VARIANT_PREFIX" env-description:"file name prefix of variant datasets"`

	// DropAge is the age removed by the group variant.
	DropAge int `yaml:"drop_age" env:"NOISYAVG_DROP_AGE" env-description:"age removed by the group variant"`

	// Mode is "index" (keep unparsed lines) or "records" (kept records only).
	Mode variant.Mode `yaml:"mode" env:"NOISYAVG_VARIANT_MODE" env-description:"group variant mode: index or records"`
}

// CheckConfig holds the defaults of the empirical privacy check.
type CheckConfig struct {
	// Bins lists the bin counts evaluated.
	Bins []int `yaml:"bins"`

	// Alpha is the add-alpha smoothing applied to bin counts.
	Alpha float64 `yaml:"alpha"`

	// RoundPlaces is the number of decimals values are rounded to before binning.
	RoundPlaces int `yaml:"round_places"`
}

// PlotConfig holds the defaults of the error plots.
type PlotConfig struct {
	// Epsilons lists the epsilon values whose result files are compared.
	Epsilons []float64 `yaml:"epsilons"`

	// OutputDir receives the charts and the MAE summary.
	OutputDir string `yaml:"output_dir" env:"NOISYAVG_PLOT_DIR" env-description:"directory for charts and MAE summary"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnWarnings fires only when a run reported a warning (default).
	WebhookTriggerOnWarnings WebhookTrigger = "on_warnings"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending run reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_warnings" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// VariantOptions converts the variant settings for the variant package.
func (c *Config) VariantOptions() variant.Options {
	return variant.Options{
		DropAge: c.Variants.DropAge,
		Mode:    c.Variants.Mode,
	}
}
