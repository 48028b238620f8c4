package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/noisyavg/pkg/config"
	"github.com/ccollicutt/noisyavg/pkg/dp"
	"github.com/ccollicutt/noisyavg/pkg/parser"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	ConfigFlags

	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Diagnose common dataset and configuration issues",
		Long: `Diagnose common dataset and configuration issues.

This command checks the inputs of a run without writing anything:
- Config file syntax and parameter validity
- Input file existence and accessibility
- Parsed and skipped line counts
- Records passing the age selection and the resulting noise scale
- Variant datasets that would be generated
- Data directory writability

Example:
  noisyavg diagnose -i data/adult.data
  noisyavg diagnose -c noisyavg.yaml -v  # verbose output`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, opts)
		},
	}

	opts.addDatasetFlags(cmd)
	opts.addPrivacyFlags(cmd)
	opts.addVariantFlags(cmd)
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(cmd *cobra.Command, opts *DiagnoseOptions) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	results := []DiagnosticResult{}

	// 1. Check config file existence
	if opts.ConfigFile != "" {
		result := checkConfigExists(opts.ConfigFile)
		results = append(results, result)
		if result.Status == "error" {
			printDiagnostics(out, results, opts)
			return nil
		}
	}

	// 2. Load config with flag overrides
	cfg, result := checkConfigParseable(cmd, opts)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(out, results, opts)
		return nil
	}

	// 3. Check the input dataset
	result = checkInputFile(cfg.Input)
	results = append(results, result)
	if result.Status != "error" {
		ds, result := checkRecords(ctx, cfg.Input)
		results = append(results, result)

		if ds != nil && len(ds.Records) > 0 {
			results = append(results, checkSelection(cfg, ds))
			results = append(results, checkVariants(cfg, ds))
		}
	}

	// 4. Check the data directory
	results = append(results, checkDataDir(cfg.DataDir))

	// 5. Check webhooks configuration
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(out, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Omit --config to use the built-in defaults",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'noisyavg validate --env' to list the settings, or omit --config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(cmd *cobra.Command, opts *DiagnoseOptions) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Configuration",
	}

	cfg, err := loadConfig(cmd, &opts.ConfigFlags)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Invalid configuration: %v", err)
		switch {
		case errors.Is(err, dp.ErrInvalidParameter):
			result.Suggests = []string{
				"epsilon must be a finite value greater than 0",
				"trials must be 0 or more",
			}
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	if opts.ConfigFile == "" {
		result.Message = "Using built-in defaults"
	} else {
		result.Message = "Config file parsed successfully"
	}
	result.Details = []string{
		fmt.Sprintf("Input: %s", cfg.Input),
		fmt.Sprintf("Data dir: %s", cfg.DataDir),
		fmt.Sprintf("Epsilon: %g", cfg.Epsilon),
		fmt.Sprintf("Trials: %d", cfg.Trials),
	}
	return cfg, result
}

func checkInputFile(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Input: %s", path),
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		result.Status = "error"
		result.Message = "File does not exist"
		result.Suggests = []string{
			"Check if the dataset path is correct",
			"Pass the dataset with -i/--input or set NOISYAVG_INPUT",
		}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access file: %v", err)
		result.Suggests = []string{"Check file permissions"}
	case info.IsDir():
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
	case info.Size() == 0:
		result.Status = "warning"
		result.Message = "File is empty (0 bytes)"
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
	}
	return result
}

func checkRecords(ctx context.Context, path string) (*parser.Dataset, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Records",
	}

	ds, err := parser.ReadDataset(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot read dataset: %v", err)
		return nil, result
	}

	var sampleFail string
	parsed := make(map[int]bool, len(ds.Records))
	for _, r := range ds.Records {
		parsed[r.Index] = true
	}
	for i, line := range ds.Lines {
		if !parsed[i] {
			sampleFail = line
			break
		}
	}

	switch {
	case len(ds.Records) == 0:
		result.Status = "error"
		result.Message = fmt.Sprintf("No parseable records in %d line(s)", len(ds.Lines))
		result.Suggests = []string{
			"The first comma-separated field of each record must be an integer age",
			"Example: 39, State-gov, 77516, Bachelors, ...",
		}
	case ds.Skipped() > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d record(s) parsed, %d line(s) skipped", len(ds.Records), ds.Skipped())
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%d record(s) parsed", len(ds.Records))
	}

	if sampleFail != "" {
		result.Details = append(result.Details,
			"Sample line that didn't parse:",
			truncate(sampleFail, 80),
		)
	}
	if len(ds.Records) > 0 {
		lo, hi := ds.Records[0].Age, ds.Records[0].Age
		for _, r := range ds.Records {
			lo = min(lo, r.Age)
			hi = max(hi, r.Age)
		}
		result.Details = append(result.Details, fmt.Sprintf("Age range: %d-%d", lo, hi))
	}

	return ds, result
}

func checkSelection(cfg *config.Config, ds *parser.Dataset) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Selection: age > %d", cfg.Selection.MinAge),
	}

	s, err := dp.Describe(ds.Ages(), dp.AgeAbove(cfg.Selection.MinAge))
	if err != nil {
		result.Status = "error"
		result.Message = "No record passes the age selection"
		result.Suggests = []string{
			"Lower the bound with --min-age or selection.min_age",
		}
		return result
	}

	scale := s.Sensitivity / cfg.Epsilon
	result.Details = []string{
		fmt.Sprintf("Average: %.6g", s.Average),
		fmt.Sprintf("Age range: %d-%d", s.Min, s.Max),
		fmt.Sprintf("Local sensitivity: %.6g", s.Sensitivity),
		fmt.Sprintf("Noise scale at eps=%g: %.6g", cfg.Epsilon, scale),
	}

	if s.Sensitivity == 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d qualifying record(s) share one age: estimates carry no noise", s.Count)
		result.Suggests = []string{
			"The sensitivity is taken from the selected data, so a single distinct age yields a zero scale",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d qualifying record(s)", s.Count)
	return result
}

func checkVariants(cfg *config.Config, ds *parser.Dataset) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Variants",
	}

	set, err := variant.Generate(ds.Lines, ds.Records, cfg.VariantOptions())
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot generate variants: %v", err)
		return result
	}

	warnings := []string{}
	if set.MinusAge.Removed == 0 {
		warnings = append(warnings,
			fmt.Sprintf("No record has age %d: %s equals the original", cfg.Variants.DropAge, set.MinusAge.Name))
	}
	if cfg.Variants.Mode == variant.ModeRecords && ds.Skipped() > 0 {
		warnings = append(warnings,
			fmt.Sprintf("records mode drops %d unparsed line(s) from %s", ds.Skipped(), set.MinusAge.Name))
	}

	// Ties are common in real data and only reported as details.
	details := []string{}
	if n := countAge(ds.Records, set.MaxAge); n > 1 {
		details = append(details,
			fmt.Sprintf("%d records share the oldest age %d; only line %d is removed", n, set.MaxAge, set.OldestIndex+1))
	}
	if n := countAge(ds.Records, set.MinAge); n > 1 {
		details = append(details,
			fmt.Sprintf("%d records share the youngest age %d; only line %d is removed", n, set.MinAge, set.YoungestIndex+1))
	}
	for _, v := range set.All() {
		details = append(details, fmt.Sprintf("%s: %s (%d line(s), %d removed)",
			v.Name, cfg.VariantFile(v.Name), len(v.Lines), v.Removed))
	}

	if len(warnings) > 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
		result.Details = append(warnings, details...)
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Oldest age %d, youngest age %d, %d record(s) of age %d",
		set.MaxAge, set.MinAge, set.MinusAge.Removed, cfg.Variants.DropAge)
	result.Details = details
	return result
}

func countAge(records []parser.Record, age int) int {
	n := 0
	for _, r := range records {
		if r.Age == age {
			n++
		}
	}
	return n
}

func checkDataDir(dir string) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Data Dir: %s", dir),
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		result.Status = "ok"
		result.Message = "Directory will be created on first run"
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access directory: %v", err)
		return result
	}
	if !info.IsDir() {
		result.Status = "error"
		result.Message = "Path exists but is not a directory"
		result.Suggests = []string{"Choose another directory with --data-dir"}
		return result
	}

	f, err := os.CreateTemp(dir, ".noisyavg-*")
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Directory is not writable: %v", err)
		result.Suggests = []string{"Check directory permissions"}
		return result
	}
	_ = f.Close()
	_ = os.Remove(f.Name())

	result.Status = "ok"
	result.Message = "Directory is writable"
	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== noisyavg Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before running.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nInputs are usable but have warnings.")
	} else {
		fmt.Fprintln(w, "\nInputs look good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := webhookName(wh)
		result := DiagnosticResult{
			Check:  fmt.Sprintf("Webhook: %s", name),
			Status: "ok",
		}

		result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
		if wh.Trigger == config.WebhookTriggerNever {
			result.Status = "warning"
			result.Message = "Trigger is 'never': this webhook is disabled"
		}
		if opts.Verbose {
			result.Details = []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			}
			if wh.Token != "" {
				result.Details = append(result.Details, "Token: configured")
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", webhookName(wh))
			results = append(results, result)
		}
	}

	return results
}

func webhookName(wh config.WebhookConfig) string {
	if wh.Name != "" {
		return wh.Name
	}
	return wh.URL
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
