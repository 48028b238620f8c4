package output

import (
	"context"
	"encoding/json"
	"io"
)

// JSONFormatter formats reports as indented JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// quietReport is the document written in quiet mode.
type quietReport struct {
	RunID   string  `json:"run_id"`
	Seed    uint64  `json:"seed"`
	Summary Summary `json:"summary"`
}

// Format renders the report as JSON. Quiet mode keeps the run ID and seed
// next to the summary so a run can still be reproduced.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if f.opts.Quiet {
		return enc.Encode(quietReport{
			RunID:   report.Metadata.RunID,
			Seed:    report.Metadata.Seed,
			Summary: report.Summary,
		})
	}
	return enc.Encode(report)
}
