package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/noisyavg/pkg/dp"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// Load reads and validates a configuration file.
// An empty path loads the defaults with environment overrides applied.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := Read(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Read loads defaults, the optional file at path and environment overrides,
// without validating. Callers that layer flags on top validate afterwards.
func Read(_ context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	return cfg, nil
}

// applyEnvironmentOverrides applies NOISYAVG_* environment variables to the config.
func (c *Config) applyEnvironmentOverrides() error {
	return cleanenv.ReadEnv(c)
}

// EnvHelp describes the environment variables understood by the configuration.
func EnvHelp() (string, error) {
	header := "Environment variables:"
	return cleanenv.GetDescription(DefaultConfig(), &header)
}

// Validate checks a configuration for errors and fills in defaults.
// Invalid privacy parameters are reported as dp.ErrInvalidParameter.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Input) == "" {
		return errors.New("input: a dataset path is required")
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir: an output directory is required")
	}

	params := dp.Params{Epsilon: cfg.Epsilon, Trials: cfg.Trials}
	if err := params.Validate(); err != nil {
		return err
	}

	if err := validateVariants(&cfg.Variants); err != nil {
		return fmt.Errorf("variants: %w", err)
	}

	if err := validateCheck(&cfg.Check); err != nil {
		return fmt.Errorf("check: %w", err)
	}

	if err := validatePlot(&cfg.Plot); err != nil {
		return fmt.Errorf("plot: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateVariants(v *VariantsConfig) error {
	if v.Prefix == "" {
		v.Prefix = DefaultVariantPrefix
	}

	if strings.ContainsAny(v.Prefix, `/\`) {
		return fmt.Errorf("prefix %q must be a file name, not a path", v.Prefix)
	}

	switch v.Mode {
	case "":
		v.Mode = variant.ModeIndex
	case variant.ModeIndex, variant.ModeRecords:
		// Valid
	default:
		return fmt.Errorf("invalid mode %q (must be index or records)", v.Mode)
	}

	return nil
}

func validateCheck(c *CheckConfig) error {
	if len(c.Bins) == 0 {
		c.Bins = append([]int(nil), DefaultCheckBins...)
	}

	for _, b := range c.Bins {
		if b < 1 {
			return fmt.Errorf("bins must be >= 1, got %d", b)
		}
	}

	if c.Alpha < 0 {
		return fmt.Errorf("alpha must be >= 0, got %v", c.Alpha)
	}

	if c.RoundPlaces < 0 || c.RoundPlaces > 15 {
		return fmt.Errorf("round_places must be between 0 and 15, got %d", c.RoundPlaces)
	}

	return nil
}

func validatePlot(p *PlotConfig) error {
	if len(p.Epsilons) == 0 {
		p.Epsilons = append([]float64(nil), DefaultPlotEpsilons...)
	}

	for _, eps := range p.Epsilons {
		if err := (dp.Params{Epsilon: eps}).Validate(); err != nil {
			return fmt.Errorf("epsilons: %w", err)
		}
	}

	if p.OutputDir == "" {
		p.OutputDir = DefaultPlotDir
	}

	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	// Validate trigger if specified
	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnWarnings, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return fmt.Errorf("invalid trigger %q (must be on_warnings, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnWarnings
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
