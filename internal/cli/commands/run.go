package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/noisyavg/pkg/config"
	"github.com/ccollicutt/noisyavg/pkg/dp"
	"github.com/ccollicutt/noisyavg/pkg/output"
	"github.com/ccollicutt/noisyavg/pkg/runner"
	"github.com/ccollicutt/noisyavg/pkg/webhook"
)

// RunOptions holds command-line options for the run command.
type RunOptions struct {
	ConfigFlags

	Output  string
	Verbose bool
	Quiet   bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate variants and write noisy averages",
		Long: `Generate the neighboring datasets and write noisy averages for each.

The input dataset is copied into three variants (oldest record removed,
every record of the drop age removed, youngest record removed). Each of the
four datasets then gets its own result file of Laplace-noised averages of
the ages above the selection bound.

Exit codes:
  0 - Every dataset was analyzed
  1 - At least one dataset was skipped with a warning
  2 - Configuration or runtime error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	opts.addDatasetFlags(cmd)
	opts.addPrivacyFlags(cmd)
	opts.addVariantFlags(cmd)

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show intervals and run metadata")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnWarnings), "When to fire webhook (on_warnings|always|never)")

	return cmd
}

func runPipeline(cmd *cobra.Command, opts *RunOptions) error {
	ctx := commandContext(cmd)

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, &opts.ConfigFlags, cliWebhooks(opts)...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	seed := resolveSeed(cfg.Seed)
	logger.Debug("starting run",
		zap.String("input", cfg.Input),
		zap.String("data_dir", cfg.DataDir),
		zap.Uint64("seed", seed))

	r, err := runner.New(cfg, dp.NewSource(seed), logger)
	if err != nil {
		return fmt.Errorf("creating runner: %w", err)
	}

	result, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	report := output.NewReport(result, opts.ConfigFile, seed)
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Delivery failures are logged and never change the exit code.
	webhook.NewClient(webhook.WithLogger(logger)).Notify(ctx, cfg.Webhooks, report)

	if report.HasWarnings() {
		ExitCode = 1
	}

	return nil
}

// cliWebhooks turns the webhook flags into a webhook configuration.
func cliWebhooks(opts *RunOptions) []config.WebhookConfig {
	if opts.WebhookURL == "" {
		return nil
	}

	trigger := config.WebhookTrigger(opts.WebhookTrigger)
	if trigger == "" {
		trigger = config.WebhookTriggerOnWarnings
	}

	return []config.WebhookConfig{{
		Name:    "cli",
		URL:     opts.WebhookURL,
		Token:   opts.WebhookToken,
		Trigger: trigger,
		Timeout: config.DefaultWebhookTimeout,
	}}
}
