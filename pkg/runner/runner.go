package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ccollicutt/noisyavg/pkg/config"
	"github.com/ccollicutt/noisyavg/pkg/dp"
	"github.com/ccollicutt/noisyavg/pkg/parser"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// DefaultIntervalAlpha gives the 95% confidence interval reported per run.
const DefaultIntervalAlpha = 0.05

// Runner executes the variant generation and analyses described by a config.
type Runner struct {
	cfg    *config.Config
	engine *dp.Engine
	logger *zap.Logger
	alpha  float64
}

// job is one pending analysis. A non-nil err skips it with a warning.
type job struct {
	name  variant.Name
	input string
	err   error
}

// Option configures a Runner.
type Option func(*Runner)

// WithIntervalAlpha sets the alpha of the reported confidence interval.
func WithIntervalAlpha(alpha float64) Option {
	return func(r *Runner) {
		r.alpha = alpha
	}
}

// New creates a Runner. All analyses draw from src in execution order, so a
// seeded src makes the whole run reproducible.
func New(cfg *config.Config, src dp.Source, logger *zap.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine, err := dp.NewEngine(
		dp.Params{Epsilon: cfg.Epsilon, Trials: cfg.Trials},
		src,
		dp.WithSelector(dp.AgeAbove(cfg.Selection.MinAge)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	r := &Runner{
		cfg:    cfg,
		engine: engine,
		logger: logger,
		alpha:  DefaultIntervalAlpha,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run creates the data directory, writes the variant datasets and analyzes
// the original input followed by each variant. Per-dataset failures are
// recorded on the result and do not stop later runs; only a data directory
// that cannot be created or a cancelled context returns an error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		Input:     r.cfg.Input,
		DataDir:   r.cfg.DataDir,
		StartTime: time.Now(),
	}

	if err := r.ensureDataDir(); err != nil {
		return nil, err
	}

	variants, err := r.writeVariants(ctx)
	if err != nil {
		return nil, err
	}
	result.Variants = variants

	jobs := []job{{name: variant.Original, input: r.cfg.Input}}
	for _, v := range variants {
		jobs = append(jobs, job{name: v.Name, input: v.Path, err: v.Err})
	}

	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		run := r.analyze(ctx, j.name, j.input, j.err)
		if errors.Is(run.Err, context.Canceled) || errors.Is(run.Err, context.DeadlineExceeded) {
			return nil, run.Err
		}
		result.Runs = append(result.Runs, run)
	}

	result.EndTime = time.Now()
	return result, nil
}

// GenerateVariants creates the data directory and writes the variant
// datasets without running any analysis.
func (r *Runner) GenerateVariants(ctx context.Context) ([]*VariantFile, error) {
	if err := r.ensureDataDir(); err != nil {
		return nil, err
	}
	return r.writeVariants(ctx)
}

func (r *Runner) ensureDataDir() error {
	if err := os.MkdirAll(r.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", r.cfg.DataDir, err)
	}
	return nil
}

func (r *Runner) writeVariants(ctx context.Context) ([]*VariantFile, error) {
	names := variant.Names(r.cfg.Variants.DropAge)
	files := make([]*VariantFile, len(names))
	for i, name := range names {
		files[i] = &VariantFile{
			Name: name,
			Path: filepath.Join(r.cfg.DataDir, r.cfg.VariantFile(name)),
		}
	}

	set, err := r.generate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("skipping variant generation",
			zap.String("input", r.cfg.Input),
			zap.Error(err))
		for _, f := range files {
			f.Err = err
		}
		return files, nil
	}

	for i, v := range set.All() {
		f := files[i]
		f.Lines = len(v.Lines)
		f.Removed = v.Removed

		if err := parser.WriteLines(f.Path, v.Lines); err != nil {
			r.logger.Warn("writing variant failed",
				zap.String("variant", string(f.Name)),
				zap.Error(err))
			f.Err = err
			continue
		}

		r.logger.Debug("wrote variant",
			zap.String("variant", string(f.Name)),
			zap.String("path", f.Path),
			zap.Int("lines", f.Lines),
			zap.Int("removed", f.Removed))
	}

	r.logger.Info("variant datasets generated",
		zap.Int("max_age", set.MaxAge),
		zap.Int("min_age", set.MinAge),
		zap.Int("oldest_index", set.OldestIndex),
		zap.Int("youngest_index", set.YoungestIndex))

	return files, nil
}

func (r *Runner) generate(ctx context.Context) (*variant.Set, error) {
	ds, err := parser.ReadDataset(ctx, r.cfg.Input)
	if err != nil {
		return nil, err
	}
	set, err := variant.Generate(ds.Lines, ds.Records, r.cfg.VariantOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.cfg.Input, err)
	}
	return set, nil
}

func (r *Runner) analyze(ctx context.Context, name variant.Name, input string, prior error) *AnalysisRun {
	run := &AnalysisRun{
		Name:       name,
		InputPath:  input,
		OutputPath: filepath.Join(r.cfg.DataDir, config.ResultFile(r.cfg.Epsilon, name)),
	}

	if prior != nil {
		run.Err = fmt.Errorf("variant not generated: %w", prior)
		r.warn(run)
		return run
	}

	ds, err := parser.ReadDataset(ctx, input)
	if err != nil {
		run.Err = err
		r.warn(run)
		return run
	}
	if len(ds.Records) == 0 {
		run.Err = fmt.Errorf("%s: %w", input, parser.ErrNoParseableRecords)
		r.warn(run)
		return run
	}

	ages := ds.Ages()
	run.Summary, err = r.engine.Summarize(ages)
	if err != nil {
		run.Err = fmt.Errorf("%s: %w", input, err)
		r.warn(run)
		return run
	}

	run.Summary, run.Written, err = r.writeEstimates(ctx, run.OutputPath, ages)
	if err != nil {
		run.Err = err
		r.warn(run)
		return run
	}

	run.Interval, err = run.Summary.Interval(r.alpha)
	if err != nil {
		r.logger.Debug("confidence interval unavailable", zap.Error(err))
	}

	s := run.Summary
	r.logger.Info("analysis complete",
		zap.String("dataset", string(name)),
		zap.String("input", input),
		zap.Int("m", s.Count),
		zap.Float64("avg", s.Average),
		zap.Float64("sensitivity", s.Sensitivity),
		zap.String("sensitivity_kind", "local"),
		zap.Float64("scale", s.Scale),
		zap.Float64("epsilon", s.Epsilon),
		zap.Int("trials", s.Trials),
		zap.Float64("interval", run.Interval),
		zap.String("output", run.OutputPath))

	return run
}

// writeEstimates opens path before drawing any noise, so a destination that
// cannot be created consumes no randomness. A partial file is removed.
func (r *Runner) writeEstimates(ctx context.Context, path string, ages []int) (dp.Summary, int, error) {
	f, err := os.Create(path) // #nosec G304 -- output location is user-controlled
	if err != nil {
		return dp.Summary{}, 0, fmt.Errorf("%w: creating %s: %v", parser.ErrOutputWrite, path, err)
	}

	w := bufio.NewWriter(f)
	buf := make([]byte, 0, 32)
	written := 0

	s, err := r.engine.Run(ctx, ages, func(v float64) error {
		buf = strconv.AppendFloat(buf[:0], v, 'g', 10, 64)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("%w: writing %s: %v", parser.ErrOutputWrite, path, err)
		}
		written++
		return nil
	})
	if err == nil {
		if ferr := w.Flush(); ferr != nil {
			err = fmt.Errorf("%w: flushing %s: %v", parser.ErrOutputWrite, path, ferr)
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: closing %s: %v", parser.ErrOutputWrite, path, cerr)
	}

	if err != nil {
		_ = os.Remove(path)
		return s, 0, err
	}
	return s, written, nil
}

func (r *Runner) warn(run *AnalysisRun) {
	r.logger.Warn("analysis skipped",
		zap.String("dataset", string(run.Name)),
		zap.String("input", run.InputPath),
		zap.Error(run.Err))
}
