package commands

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/noisyavg/pkg/config"
	"github.com/ccollicutt/noisyavg/pkg/dp"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// logger is shared by every command and replaced by the root command
// once the log flags are parsed.
var logger = zap.NewNop()

// SetLogger installs the logger used by the commands. A nil logger
// discards all output.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// ConfigFlags are the configuration overrides shared by the dataset commands.
// A flag only replaces the configured value when it was set explicitly.
type ConfigFlags struct {
	ConfigFile string
	Input      string
	DataDir    string
	Epsilon    float64
	Trials     int
	Seed       uint64
	MinAge     int
	DropAge    int
	Mode       string
}

// addDatasetFlags registers the flags locating the dataset and the data directory.
func (f *ConfigFlags) addDatasetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.ConfigFile, "config", "c", "", "Configuration file (YAML)")
	cmd.Flags().StringVarP(&f.Input, "input", "i", config.DefaultInput, "Dataset to analyze")
	cmd.Flags().StringVar(&f.DataDir, "data-dir", config.DefaultDataDir, "Directory for variant datasets and results")
}

// addVariantFlags registers the flags shaping the variant datasets.
func (f *ConfigFlags) addVariantFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.MinAge, "min-age", dp.DefaultMinAge, "Average only ages strictly above this value")
	cmd.Flags().IntVar(&f.DropAge, "drop-age", variant.DefaultDropAge, "Age removed by the group variant")
	cmd.Flags().StringVar(&f.Mode, "variant-mode", string(variant.ModeIndex), "Group variant mode (index|records)")
}

// addPrivacyFlags registers the mechanism parameters.
func (f *ConfigFlags) addPrivacyFlags(cmd *cobra.Command) {
	cmd.Flags().Float64VarP(&f.Epsilon, "epsilon", "e", config.DefaultEpsilon, "Privacy budget (> 0)")
	cmd.Flags().IntVarP(&f.Trials, "trials", "t", config.DefaultTrials, "Noisy estimates per dataset")
	cmd.Flags().Uint64Var(&f.Seed, "seed", 0, "Random seed (0 picks one and reports it)")
}

// loadConfig reads the configuration file and environment, applies the
// flags that were set on cmd, appends extra webhooks and validates the result.
func loadConfig(cmd *cobra.Command, f *ConfigFlags, extra ...config.WebhookConfig) (*config.Config, error) {
	cfg, err := config.Read(commandContext(cmd), f.ConfigFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}

	if changed("input") {
		cfg.Input = f.Input
	}
	if changed("data-dir") {
		cfg.DataDir = f.DataDir
	}
	if changed("epsilon") {
		cfg.Epsilon = f.Epsilon
	}
	if changed("trials") {
		cfg.Trials = f.Trials
	}
	if changed("seed") {
		cfg.Seed = f.Seed
	}
	if changed("min-age") {
		cfg.Selection.MinAge = f.MinAge
	}
	if changed("drop-age") {
		cfg.Variants.DropAge = f.DropAge
	}
	if changed("variant-mode") {
		cfg.Variants.Mode = variant.Mode(f.Mode)
	}

	cfg.Webhooks = append(cfg.Webhooks, extra...)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// resolveSeed returns seed, or a fresh non-zero seed when seed is zero.
func resolveSeed(seed uint64) uint64 {
	for seed == 0 {
		seed = rand.Uint64()
	}
	return seed
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
