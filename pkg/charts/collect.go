// Package charts renders the error distribution and mean absolute error of
// recorded noisy results.
package charts

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/ccollicutt/noisyavg/pkg/config"
	"github.com/ccollicutt/noisyavg/pkg/dp"
	"github.com/ccollicutt/noisyavg/pkg/empirical"
	"github.com/ccollicutt/noisyavg/pkg/parser"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// Dataset is one input whose noisy results are charted.
type Dataset struct {
	Name variant.Name
	Path string
}

// Datasets returns the original input followed by its variants.
func Datasets(cfg *config.Config) []Dataset {
	ds := []Dataset{{Name: variant.Original, Path: cfg.Input}}
	for _, name := range variant.Names(cfg.Variants.DropAge) {
		ds = append(ds, Dataset{Name: name, Path: filepath.Join(cfg.DataDir, cfg.VariantFile(name))})
	}
	return ds
}

// Series holds the absolute errors of one dataset at one epsilon.
type Series struct {
	Dataset variant.Name
	Epsilon float64

	// Errors is empty when the dataset or its results were unavailable.
	Errors []float64

	// MAE is NaN when Errors is empty.
	MAE float64
}

// Result holds everything the charts are drawn from.
type Result struct {
	Datasets []Dataset

	// Epsilons is sorted ascending.
	Epsilons []float64

	// TrueAverages holds the exact selected average of each dataset found.
	TrueAverages map[variant.Name]float64

	// Series is ordered by epsilon, then dataset.
	Series []Series

	// Files lists the files written by Generate.
	Files []string
}

// Lookup returns the series for a dataset and epsilon.
func (r *Result) Lookup(name variant.Name, eps float64) (Series, bool) {
	for _, s := range r.Series {
		if s.Dataset == name && s.Epsilon == eps {
			return s, true
		}
	}
	return Series{}, false
}

// Collect computes the true average of every dataset and the absolute error
// of each recorded noisy value. Missing inputs are logged and leave empty
// series rather than failing.
func Collect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	eps := slices.Clone(cfg.Plot.Epsilons)
	slices.Sort(eps)

	r := &Result{
		Datasets:     Datasets(cfg),
		Epsilons:     eps,
		TrueAverages: make(map[variant.Name]float64),
	}

	sel := dp.AgeAbove(cfg.Selection.MinAge)
	for _, d := range r.Datasets {
		avg, err := trueAverage(ctx, d.Path, sel)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("no true average", zap.String("dataset", string(d.Name)), zap.Error(err))
			continue
		}
		r.TrueAverages[d.Name] = avg
	}

	for _, e := range eps {
		for _, d := range r.Datasets {
			s := Series{Dataset: d.Name, Epsilon: e, MAE: math.NaN()}
			avg, ok := r.TrueAverages[d.Name]
			if ok {
				path := filepath.Join(cfg.DataDir, config.ResultFile(e, d.Name))
				values, err := empirical.ReadValues(ctx, path)
				switch {
				case ctx.Err() != nil:
					return nil, ctx.Err()
				case err != nil:
					logger.Warn("no noisy results", zap.String("path", path), zap.Error(err))
				default:
					s.Errors = absErrors(values, avg)
				}
			}
			if len(s.Errors) > 0 {
				s.MAE = stat.Mean(s.Errors, nil)
			}
			r.Series = append(r.Series, s)
		}
	}

	return r, nil
}

func trueAverage(ctx context.Context, path string, sel dp.Selector) (float64, error) {
	ds, err := parser.ReadDataset(ctx, path)
	if err != nil {
		return 0, err
	}
	if len(ds.Records) == 0 {
		return 0, fmt.Errorf("%s: %w", path, parser.ErrNoParseableRecords)
	}
	s, err := dp.Describe(ds.Ages(), sel)
	if err != nil {
		return 0, err
	}
	return s.Average, nil
}

func absErrors(values []float64, truth float64) []float64 {
	errs := make([]float64, len(values))
	for i, v := range values {
		errs[i] = math.Abs(v - truth)
	}
	return errs
}
