// Package output provides formatting and output generation for run results.
package output

import (
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/noisyavg/pkg/runner"
)

// Status values of a run or variant.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
)

// Report is the complete output of a run.
type Report struct {
	// Summary provides aggregate counts.
	Summary Summary `json:"summary"`

	// Variants describes the generated variant datasets.
	Variants []Variant `json:"variants"`

	// Runs contains one entry per analysis, in execution order.
	Runs []Run `json:"runs"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate counts.
type Summary struct {
	RunsAttempted   int `json:"runs_attempted"`
	RunsSucceeded   int `json:"runs_succeeded"`
	VariantsWritten int `json:"variants_written"`

	// Warnings counts failed variants and failed runs.
	Warnings int `json:"warnings"`
}

// Variant describes one variant dataset.
type Variant struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Status  string `json:"status"`
	Lines   int    `json:"lines"`
	Removed int    `json:"removed"`
	Error   string `json:"error,omitempty"`
}

// Run is the summary record of one analysis.
type Run struct {
	Dataset string `json:"dataset"`
	Input   string `json:"input"`
	Output  string `json:"output,omitempty"`
	Status  string `json:"status"`

	Count       int     `json:"m"`
	Average     float64 `json:"avg"`
	Sensitivity float64 `json:"sensitivity"`

	// SensitivityKind is always "local": the bound is derived from the
	// observed data rather than a public range.
	SensitivityKind string `json:"sensitivity_kind"`

	Scale    float64 `json:"scale"`
	Epsilon  float64 `json:"epsilon"`
	Trials   int     `json:"trials"`
	Interval float64 `json:"interval"`
	Written  int     `json:"written"`

	Error string `json:"error,omitempty"`
}

// Metadata provides context about the run.
type Metadata struct {
	// RunID uniquely identifies this invocation.
	RunID string `json:"run_id"`

	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty"`

	Input   string `json:"input"`
	DataDir string `json:"data_dir"`

	// Seed reproduces the run when passed back with --seed.
	Seed uint64 `json:"seed"`

	// AnalyzedAt is when the run completed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`
}

// NewReport creates a Report from a runner result.
func NewReport(result *runner.Result, configFile string, seed uint64) *Report {
	report := &Report{
		Variants: make([]Variant, 0, len(result.Variants)),
		Runs:     make([]Run, 0, len(result.Runs)),
		Metadata: Metadata{
			RunID:      uuid.NewString(),
			ConfigFile: configFile,
			Input:      result.Input,
			DataDir:    result.DataDir,
			Seed:       seed,
			AnalyzedAt: result.EndTime,
			Duration:   result.EndTime.Sub(result.StartTime),
		},
		Summary: Summary{
			RunsAttempted: len(result.Runs),
			RunsSucceeded: result.Succeeded(),
			Warnings:      result.Warnings(),
		},
	}

	for _, v := range result.Variants {
		report.Variants = append(report.Variants, newVariant(v))
		if v.Err == nil {
			report.Summary.VariantsWritten++
		}
	}

	for _, r := range result.Runs {
		report.Runs = append(report.Runs, newRun(r))
	}

	return report
}

// NewVariantReport creates a Report for a variants-only invocation.
func NewVariantReport(files []*runner.VariantFile, input, dataDir string) *Report {
	return NewReport(&runner.Result{
		Input:     input,
		DataDir:   dataDir,
		Variants:  files,
		StartTime: time.Now(),
		EndTime:   time.Now(),
	}, "", 0)
}

func newVariant(v *runner.VariantFile) Variant {
	out := Variant{
		Name:    string(v.Name),
		Path:    v.Path,
		Status:  StatusOK,
		Lines:   v.Lines,
		Removed: v.Removed,
	}
	if v.Err != nil {
		out.Status = StatusWarning
		out.Error = v.Err.Error()
	}
	return out
}

func newRun(r *runner.AnalysisRun) Run {
	out := Run{
		Dataset:         string(r.Name),
		Input:           r.InputPath,
		Status:          StatusOK,
		Count:           r.Summary.Count,
		Average:         r.Summary.Average,
		Sensitivity:     r.Summary.Sensitivity,
		SensitivityKind: "local",
		Scale:           r.Summary.Scale,
		Epsilon:         r.Summary.Epsilon,
		Trials:          r.Summary.Trials,
		Interval:        r.Interval,
		Written:         r.Written,
	}
	if r.Err != nil {
		out.Status = StatusWarning
		out.Error = r.Err.Error()
	} else {
		out.Output = r.OutputPath
	}
	return out
}

// HasWarnings returns true if any variant or run failed.
func (r *Report) HasWarnings() bool {
	return r.Summary.Warnings > 0
}
