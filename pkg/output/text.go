package output

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "noisyavg: %d runs, %d succeeded, %d warnings\n",
		report.Summary.RunsAttempted,
		report.Summary.RunsSucceeded,
		report.Summary.Warnings)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	var b strings.Builder

	b.WriteString("=== noisyavg Report ===\n\n")

	if len(report.Variants) > 0 {
		var written []string
		for _, v := range report.Variants {
			if v.Status == StatusOK {
				written = append(written, v.Path)
			}
		}
		if len(written) > 0 {
			fmt.Fprintf(&b, "Wrote filtered files: %s\n", strings.Join(written, ", "))
		}
		for _, v := range report.Variants {
			if v.Status != StatusOK {
				fmt.Fprintf(&b, "[WARNING] variant %s: %s\n", v.Name, v.Error)
			} else if f.opts.Verbose {
				fmt.Fprintf(&b, "  %s: %d lines, %d removed\n", v.Name, v.Lines, v.Removed)
			}
		}
		b.WriteString("\n")
	}

	for i := range report.Runs {
		f.formatRun(&report.Runs[i], &b)
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "Summary: %d runs, %d succeeded, %d warnings\n",
		report.Summary.RunsAttempted,
		report.Summary.RunsSucceeded,
		report.Summary.Warnings)

	if f.opts.Verbose {
		fmt.Fprintf(&b, "Run ID: %s\n", report.Metadata.RunID)
		fmt.Fprintf(&b, "Seed: %d\n", report.Metadata.Seed)
		fmt.Fprintf(&b, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *TextFormatter) formatRun(run *Run, b *strings.Builder) {
	if run.Status != StatusOK {
		fmt.Fprintf(b, "[WARNING] %s: %s\n", run.Dataset, run.Error)
		return
	}

	fmt.Fprintf(b, "[ANALYSIS] input=%s m=%d avg=%.6g sens=%.6g b=%.6g eps=%.6g trials=%d -> wrote %d to %s\n",
		run.Input, run.Count, run.Average, run.Sensitivity, run.Scale,
		run.Epsilon, run.Trials, run.Written, run.Output)

	if f.opts.Verbose {
		fmt.Fprintf(b, "  95%% interval: ±%.6g (%s sensitivity)\n", run.Interval, run.SensitivityKind)
	}
}
