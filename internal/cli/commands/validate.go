package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/noisyavg/pkg/config"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Env bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a noisyavg configuration file without running anything.

Checks:
  - YAML syntax
  - Privacy parameters (epsilon > 0, trials >= 0)
  - Variant, check and plot settings
  - Webhook URLs and triggers
  - Input file existence (warning only)

With --env the environment variables that override the file are listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Env, "env", false, "List the environment variables understood")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *ValidateOptions) error {
	out := cmd.OutOrStdout()

	if opts.Env {
		help, err := config.EnvHelp()
		if err != nil {
			return fmt.Errorf("describing environment: %w", err)
		}
		fmt.Fprintln(out, help)
		if len(args) == 0 {
			return nil
		}
		fmt.Fprintln(out)
	}

	if len(args) == 0 {
		return errors.New("validate requires a config file (or --env)")
	}

	configPath := args[0]
	fmt.Fprintf(out, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(commandContext(cmd), configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Report what we found
	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Input:       %s\n", cfg.Input)
	fmt.Fprintf(out, "  Data dir:    %s\n", cfg.DataDir)
	fmt.Fprintf(out, "  Epsilon:     %g\n", cfg.Epsilon)
	fmt.Fprintf(out, "  Trials:      %d\n", cfg.Trials)
	if cfg.Seed == 0 {
		fmt.Fprintf(out, "  Seed:        random\n")
	} else {
		fmt.Fprintf(out, "  Seed:        %d\n", cfg.Seed)
	}
	fmt.Fprintf(out, "  Selection:   age > %d\n", cfg.Selection.MinAge)
	fmt.Fprintf(out, "  Webhooks:    %d\n", len(cfg.Webhooks))

	fmt.Fprintf(out, "\nVariants (%s mode):\n", cfg.Variants.Mode)
	for _, name := range variant.Names(cfg.Variants.DropAge) {
		fmt.Fprintf(out, "  - %s\n", cfg.VariantFile(name))
	}

	// Check if the input exists (warnings only)
	if info, err := os.Stat(cfg.Input); err != nil {
		fmt.Fprintf(out, "\nWarning: Input not accessible: %v\n", err)
	} else if info.IsDir() {
		fmt.Fprintf(out, "\nWarning: Input %s is a directory\n", cfg.Input)
	}

	return nil
}
