package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/noisyavg/pkg/charts"
	"github.com/ccollicutt/noisyavg/pkg/config"
)

// PlotOptions holds command-line options for the plot command.
type PlotOptions struct {
	ConfigFlags

	Epsilons  []float64
	OutputDir string
}

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	opts := &PlotOptions{}

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Chart the errors of recorded noisy results",
		Long: `Compute the absolute error of every recorded noisy average against the
true average of its dataset and write:

  error_histograms.png  error density per dataset, one histogram per epsilon
  mae_vs_epsilon.png    mean absolute error against epsilon per dataset
  mae_summary.csv       dataset,eps,mae

Missing datasets or result files leave empty series instead of failing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(cmd, opts)
		},
	}

	opts.addDatasetFlags(cmd)
	opts.addVariantFlags(cmd)
	cmd.Flags().Float64SliceVar(&opts.Epsilons, "eps", config.DefaultPlotEpsilons, "Epsilon values to compare")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", config.DefaultPlotDir, "Directory for charts and MAE summary")

	return cmd
}

func runPlot(cmd *cobra.Command, opts *PlotOptions) error {
	cfg, err := loadConfig(cmd, &opts.ConfigFlags)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("eps") {
		cfg.Plot.Epsilons = opts.Epsilons
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Plot.OutputDir = opts.OutputDir
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid plot options: %w", err)
	}

	result, err := charts.Generate(commandContext(cmd), cfg, logger)
	if err != nil {
		return fmt.Errorf("plotting: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote: %s\n", strings.Join(result.Files, ", "))
	for _, eps := range result.Epsilons {
		for _, ds := range result.Datasets {
			mae, ok := result.MAE(ds.Name, eps)
			if !ok {
				fmt.Fprintf(out, "  %s eps=%g: no results\n", ds.Name, eps)
				continue
			}
			fmt.Fprintf(out, "  %s eps=%g: MAE=%.6g\n", ds.Name, eps, mae)
		}
	}
	return nil
}
