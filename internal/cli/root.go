// Package cli provides the command-line interface for noisyavg.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/noisyavg/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes the command line args, writing reports to stdout and errors
// to stderr, and returns the exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// LogOptions holds the persistent logging flags.
type LogOptions struct {
	Level  string
	Format string
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	logOpts := &LogOptions{}
	var logger *zap.Logger

	rootCmd := &cobra.Command{
		Use:   "noisyavg",
		Short: "Differentially private average age over neighboring datasets",
		Long: `noisyavg releases Laplace-noised averages of the ages in a
comma-separated dataset and of three neighboring datasets derived from it.

Typical workflow:
  noisyavg diagnose -i data/adult.data   check the input
  noisyavg run -i data/adult.data        write variants and noisy results
  noisyavg check --eps 0.5               compare the recorded distributions
  noisyavg plot                          chart errors and MAE per epsilon

The noise scale uses the local sensitivity (max-min)/m of the selected ages,
which is itself derived from the data. The released values are therefore
not a formal differential privacy guarantee.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			commands.ExitCode = 0

			var err error
			logger, err = NewLogger(logOpts.Level, logOpts.Format, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			commands.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&logOpts.Level, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logOpts.Format, "log-format", "console", "Log encoding (console|json)")

	// Add subcommands
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewVariantsCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewPlotCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
