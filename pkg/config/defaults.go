package config

import (
	"fmt"
	"time"

	"github.com/ccollicutt/noisyavg/pkg/dp"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// Default values for configuration.
const (
	DefaultInput          = "data/adult.data"
	DefaultDataDir        = "data"
	DefaultEpsilon        = 0.5
	DefaultTrials         = 1000
	DefaultVariantPrefix  = "adult"
	DefaultRoundPlaces    = 2
	DefaultPlotDir        = "outputs"
	DefaultWebhookTimeout = 10 * time.Second
)

// DefaultCheckBins are the bin counts evaluated by the empirical check.
var DefaultCheckBins = []int{5, 10, 15, 20, 50, 100}

// DefaultPlotEpsilons are the epsilon values compared by the error plots.
var DefaultPlotEpsilons = []float64{0.5, 1.0}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Input:   DefaultInput,
		DataDir: DefaultDataDir,
		Epsilon: DefaultEpsilon,
		Trials:  DefaultTrials,
		Selection: SelectionConfig{
			MinAge: dp.DefaultMinAge,
		},
		Variants: VariantsConfig{
			Prefix:  DefaultVariantPrefix,
			DropAge: variant.DefaultDropAge,
			Mode:    variant.ModeIndex,
		},
		Check: CheckConfig{
			Bins:        append([]int(nil), DefaultCheckBins...),
			RoundPlaces: DefaultRoundPlaces,
		},
		Plot: PlotConfig{
			Epsilons:  append([]float64(nil), DefaultPlotEpsilons...),
			OutputDir: DefaultPlotDir,
		},
	}
}

// EpsilonTag formats epsilon the way result file names embed it (six decimals).
func EpsilonTag(eps float64) string {
	return fmt.Sprintf("%f", eps)
}

// VariantFile returns the file name of the named variant dataset.
func (c *Config) VariantFile(name variant.Name) string {
	return c.Variants.Prefix + "_" + string(name) + ".data"
}

// ResultFile returns the file name of the noisy results for a dataset and epsilon.
func ResultFile(eps float64, name variant.Name) string {
	return "noisy_results_eps" + EpsilonTag(eps) + "_" + string(name) + ".txt"
}
