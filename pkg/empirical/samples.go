// Package empirical estimates the privacy loss of recorded noisy outputs by
// comparing their histograms across neighbouring datasets.
package empirical

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ccollicutt/noisyavg/pkg/config"
	"github.com/ccollicutt/noisyavg/pkg/parser"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// ErrNoSamples is returned when a dataset has no noisy values to compare.
var ErrNoSamples = errors.New("no samples")

// Combined names the union of all neighbouring datasets.
const Combined variant.Name = "combined"

// Sample holds the noisy values recorded for one dataset.
type Sample struct {
	Name   variant.Name
	Path   string
	Values []float64
}

// Samples holds the original dataset's values and those of its neighbours.
type Samples struct {
	Original  Sample
	Neighbors []Sample
}

// Combined returns all neighbour values concatenated in order.
func (s *Samples) Combined() Sample {
	c := Sample{Name: Combined}
	for _, n := range s.Neighbors {
		c.Values = append(c.Values, n.Values...)
	}
	return c
}

// Load reads the result files written for eps in dataDir. The neighbours are
// the single-record and group variants, the latter named by dropAge.
func Load(ctx context.Context, dataDir string, eps float64, dropAge int) (*Samples, error) {
	read := func(name variant.Name) (Sample, error) {
		path := filepath.Join(dataDir, config.ResultFile(eps, name))
		values, err := ReadValues(ctx, path)
		if err != nil {
			return Sample{}, err
		}
		if len(values) == 0 {
			return Sample{}, fmt.Errorf("%s: %w", path, ErrNoSamples)
		}
		return Sample{Name: name, Path: path, Values: values}, nil
	}

	orig, err := read(variant.Original)
	if err != nil {
		return nil, err
	}

	s := &Samples{Original: orig}
	for _, name := range variant.Names(dropAge) {
		n, err := read(name)
		if err != nil {
			return nil, err
		}
		s.Neighbors = append(s.Neighbors, n)
	}
	return s, nil
}

// ReadValues reads one floating-point value per line from path. Blank,
// unparseable and non-finite lines are skipped.
func ReadValues(ctx context.Context, path string) ([]float64, error) {
	f, err := os.Open(path) // #nosec G304 -- result files live in the user's data dir
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", parser.ErrUnreadableInput, path, err)
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", parser.ErrUnreadableInput, path, err)
	}
	return values, nil
}

// Round rounds every value to places decimals, ties to even.
func Round(values []float64, places int) []float64 {
	pow := math.Pow(10, float64(places))
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.RoundToEven(v*pow) / pow
	}
	return out
}
