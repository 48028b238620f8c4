package charts

import (
	"context"
	"encoding/csv"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/ccollicutt/noisyavg/pkg/config"
	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// Output file names written to the plot directory.
const (
	HistogramFile = "error_histograms.png"
	MAEChartFile  = "mae_vs_epsilon.png"
	MAESummary    = "mae_summary.csv"
)

// Histogram bin limits and the error width of one bin.
const (
	minBins  = 5
	maxBins  = 50
	binWidth = 0.0005
)

// Generate collects the errors of every dataset and writes the histogram
// grid, the MAE chart and the MAE summary to the plot directory.
func Generate(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.Plot.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating plot dir %s: %w", cfg.Plot.OutputDir, err)
	}

	r, err := Collect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	writers := []struct {
		name  string
		write func(string, *Result) error
	}{
		{HistogramFile, WriteHistograms},
		{MAEChartFile, WriteMAEChart},
		{MAESummary, WriteMAESummary},
	}
	for _, w := range writers {
		path := filepath.Join(cfg.Plot.OutputDir, w.name)
		if err := w.write(path, r); err != nil {
			return nil, err
		}
		r.Files = append(r.Files, path)
	}

	logger.Info("charts written", zap.Strings("files", r.Files))
	return r, nil
}

// Bins returns the histogram bin count for errors whose maximum is maxErr.
func Bins(maxErr float64) int {
	n := maxErr / binWidth
	if n >= maxBins {
		return maxBins
	}
	return max(minBins, int(n))
}

// WriteHistograms draws one density histogram per epsilon for each dataset,
// arranged in a two-column grid, and saves it as a PNG.
func WriteHistograms(path string, r *Result) error {
	cols := 2
	rows := (len(r.Datasets) + cols - 1) / cols
	plots := make([][]*plot.Plot, rows)
	for i := range plots {
		plots[i] = make([]*plot.Plot, cols)
		for j := range plots[i] {
			plots[i][j] = plot.New()
		}
	}

	for i, d := range r.Datasets {
		p := plots[i/cols][i%cols]
		p.Title.Text = string(d.Name)
		p.X.Label.Text = "Absolute error"
		p.Y.Label.Text = "Density"

		var all []float64
		for _, e := range r.Epsilons {
			if s, ok := r.Lookup(d.Name, e); ok {
				all = append(all, s.Errors...)
			}
		}
		if len(all) == 0 {
			continue
		}
		bins := Bins(floats.Max(all))

		for k, e := range r.Epsilons {
			s, _ := r.Lookup(d.Name, e)
			if len(s.Errors) == 0 {
				continue
			}
			h, err := plotter.NewHist(plotter.Values(s.Errors), bins)
			if err != nil {
				return fmt.Errorf("histogram of %s at eps=%g: %w", d.Name, e, err)
			}
			h.Normalize(1)
			h.FillColor = translucent(plotutil.Color(k))
			h.LineStyle.Width = vg.Length(0)
			p.Add(h)
			p.Legend.Add(fmt.Sprintf("ε=%g", e), h)
		}
	}

	img := vgimg.New(12*vg.Inch, vg.Length(rows)*4*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(2),
		PadBottom: vg.Points(2),
		PadLeft:   vg.Points(2),
		PadRight:  vg.Points(2),
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			plots[i][j].Draw(canvases[i][j])
		}
	}

	return savePNG(path, img)
}

// WriteMAEChart plots the MAE of each dataset against epsilon.
func WriteMAEChart(path string, r *Result) error {
	p := plot.New()
	p.Title.Text = "MAE vs ε for each dataset"
	p.X.Label.Text = "ε"
	p.Y.Label.Text = "MAE (mean absolute error)"
	p.Add(plotter.NewGrid())

	var lines []any
	for _, d := range r.Datasets {
		var pts plotter.XYs
		for _, e := range r.Epsilons {
			if s, ok := r.Lookup(d.Name, e); ok && !math.IsNaN(s.MAE) {
				pts = append(pts, plotter.XY{X: e, Y: s.MAE})
			}
		}
		if len(pts) > 0 {
			lines = append(lines, string(d.Name), pts)
		}
	}
	if len(lines) > 0 {
		if err := plotutil.AddLinePoints(p, lines...); err != nil {
			return fmt.Errorf("plotting MAE: %w", err)
		}
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// WriteMAESummary writes dataset,eps,mae rows, one per series. A missing
// MAE is written as an empty cell.
func WriteMAESummary(path string, r *Result) error {
	f, err := os.Create(path) // #nosec G304 -- output location is user-controlled
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"dataset", "eps", "mae"})
	for _, s := range r.Series {
		mae := ""
		if !math.IsNaN(s.MAE) {
			mae = strconv.FormatFloat(s.MAE, 'g', -1, 64)
		}
		_ = w.Write([]string{string(s.Dataset), formatEpsilon(s.Epsilon), mae})
	}
	w.Flush()

	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// MAE returns the mean absolute error of a dataset at eps, if known.
func (r *Result) MAE(name variant.Name, eps float64) (float64, bool) {
	s, ok := r.Lookup(name, eps)
	if !ok || math.IsNaN(s.MAE) {
		return 0, false
	}
	return s.MAE, true
}

// formatEpsilon keeps a decimal point on whole numbers (1 -> 1.0).
func formatEpsilon(eps float64) string {
	s := strconv.FormatFloat(eps, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

func translucent(c color.Color) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 153
	return n
}

func savePNG(path string, img *vgimg.Canvas) error {
	f, err := os.Create(path) // #nosec G304 -- output location is user-controlled
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
