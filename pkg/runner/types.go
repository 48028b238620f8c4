// Package runner orchestrates variant generation and the noisy-average analyses.
package runner

import (
	"time"

	"github.com/ccollicutt/noisyavg/pkg/dp"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// VariantFile describes one variant dataset written to the data directory.
type VariantFile struct {
	Name variant.Name
	Path string

	// Lines is the number of lines written.
	Lines int

	// Removed is the number of input lines left out of the variant.
	Removed int

	// Err is set when the variant could not be generated or written.
	Err error
}

// AnalysisRun is the outcome of the noisy-average analysis of one dataset.
type AnalysisRun struct {
	Name       variant.Name
	InputPath  string
	OutputPath string

	// Summary is filled as far as the run got before any failure.
	Summary dp.Summary

	// Interval is the half-width of the confidence interval of one estimate.
	Interval float64

	// Written is the number of estimates written to OutputPath.
	Written int

	// Err is set when the run was skipped or aborted. No output file is
	// left behind for a failed run.
	Err error
}

// Failed reports whether the run ended with a warning.
func (r *AnalysisRun) Failed() bool {
	return r.Err != nil
}

// Result is the outcome of a complete run.
type Result struct {
	Input   string
	DataDir string

	// Variants lists the variant files in analysis order.
	Variants []*VariantFile

	// Runs lists the analyses in execution order: the original dataset
	// followed by each variant.
	Runs []*AnalysisRun

	StartTime time.Time
	EndTime   time.Time
}

// Warnings returns the number of variants and runs that failed.
func (r *Result) Warnings() int {
	n := 0
	for _, v := range r.Variants {
		if v.Err != nil {
			n++
		}
	}
	for _, run := range r.Runs {
		if run.Failed() {
			n++
		}
	}
	return n
}

// Succeeded returns the number of runs that wrote their estimates.
func (r *Result) Succeeded() int {
	n := 0
	for _, run := range r.Runs {
		if !run.Failed() {
			n++
		}
	}
	return n
}
