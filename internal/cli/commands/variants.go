package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/noisyavg/pkg/dp"
	"github.com/ccollicutt/noisyavg/pkg/output"
	"github.com/ccollicutt/noisyavg/pkg/runner"
)

// VariantsOptions holds command-line options for the variants command.
type VariantsOptions struct {
	ConfigFlags

	Output  string
	Verbose bool
}

// NewVariantsCommand creates the variants command.
func NewVariantsCommand() *cobra.Command {
	opts := &VariantsOptions{}

	cmd := &cobra.Command{
		Use:   "variants",
		Short: "Write the neighboring datasets only",
		Long: `Write the three variant datasets derived from the input without
running any analysis. Existing variant files are overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVariants(cmd, opts)
		},
	}

	opts.addDatasetFlags(cmd)
	opts.addVariantFlags(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show line counts per variant")

	return cmd
}

func runVariants(cmd *cobra.Command, opts *VariantsOptions) error {
	ctx := commandContext(cmd)

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{Verbose: opts.Verbose})
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, &opts.ConfigFlags)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Variant generation draws no randomness.
	r, err := runner.New(cfg, dp.NewSource(cfg.Seed), logger)
	if err != nil {
		return fmt.Errorf("creating runner: %w", err)
	}

	files, err := r.GenerateVariants(ctx)
	if err != nil {
		return fmt.Errorf("generating variants: %w", err)
	}

	report := output.NewVariantReport(files, cfg.Input, cfg.DataDir)
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if report.HasWarnings() {
		ExitCode = 1
	}
	return nil
}
