package dp

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParameter is returned for a non-positive epsilon or a negative trial count.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoQualifyingRecords is returned when no value passes the selection predicate.
	ErrNoQualifyingRecords = errors.New("no qualifying records")
)

// DefaultMinAge is the exclusive lower bound of the default selection.
const DefaultMinAge = 25

// Params holds the privacy parameters of one run.
type Params struct {
	// Epsilon is the privacy budget. Must be finite and > 0.
	Epsilon float64

	// Trials is the number of independent noisy estimates to emit.
	Trials int
}

// Validate checks p for values the mechanism cannot use.
func (p Params) Validate() error {
	if math.IsNaN(p.Epsilon) || math.IsInf(p.Epsilon, 0) || p.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be a finite value > 0, got %v", ErrInvalidParameter, p.Epsilon)
	}
	if p.Trials < 0 {
		return fmt.Errorf("%w: trials must be >= 0, got %d", ErrInvalidParameter, p.Trials)
	}
	return nil
}

// Selector decides whether a value takes part in the average.
type Selector func(v int) bool

// AgeAbove selects values strictly greater than bound.
func AgeAbove(bound int) Selector {
	return func(v int) bool { return v > bound }
}

// Summary describes the statistic a run adds noise to.
type Summary struct {
	// Count is the number of selected values (m).
	Count int `json:"m"`

	Sum     float64 `json:"sum"`
	Average float64 `json:"avg"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`

	// Sensitivity is the local bound (max-min)/max(1,m). It is derived from
	// the observed data, so the noise scale itself reveals the data range.
	Sensitivity float64 `json:"sensitivity"`

	// Scale is the Laplace scale b = Sensitivity/Epsilon.
	Scale float64 `json:"scale"`

	Epsilon float64 `json:"epsilon"`
	Trials  int     `json:"trials"`
}

// Engine produces noisy averages for one set of privacy parameters.
type Engine struct {
	params   Params
	src      Source
	selector Selector
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSelector replaces the default age > 25 selection.
func WithSelector(s Selector) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.selector = s
		}
	}
}

// NewEngine creates an Engine drawing randomness from src.
func NewEngine(params Params, src Source, opts ...EngineOption) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.New("random source is required")
	}

	e := &Engine{
		params:   params,
		src:      src,
		selector: AgeAbove(DefaultMinAge),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Params returns the engine's privacy parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Summarize computes the selected average, its sensitivity and the noise
// scale without drawing any randomness.
func (e *Engine) Summarize(values []int) (Summary, error) {
	s, err := Describe(values, e.selector)
	s.Epsilon = e.params.Epsilon
	s.Trials = e.params.Trials
	if err != nil {
		return s, err
	}

	s.Scale = s.Sensitivity / e.params.Epsilon
	return s, nil
}

// Describe computes the count, average, range and local sensitivity of the
// values accepted by sel. The privacy fields of the result are left zero.
func Describe(values []int, sel Selector) (Summary, error) {
	var s Summary
	for _, v := range values {
		if !sel(v) {
			continue
		}
		if s.Count == 0 || v < s.Min {
			s.Min = v
		}
		if s.Count == 0 || v > s.Max {
			s.Max = v
		}
		s.Sum += float64(v)
		s.Count++
	}

	if s.Count == 0 {
		return s, ErrNoQualifyingRecords
	}

	s.Average = s.Sum / float64(s.Count)
	s.Sensitivity = float64(s.Max-s.Min) / float64(max(1, s.Count))
	return s, nil
}

// Run emits Trials noisy estimates of the selected average, in order.
// Each estimate consumes exactly one draw from the engine's source. An error
// from emit stops the run and is returned.
func (e *Engine) Run(ctx context.Context, values []int, emit func(float64) error) (Summary, error) {
	s, err := e.Summarize(values)
	if err != nil {
		return s, err
	}

	for i := 0; i < e.params.Trials; i++ {
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		default:
		}

		if err := emit(s.Average + Sample(e.src, s.Scale)); err != nil {
			return s, fmt.Errorf("emitting trial %d: %w", i, err)
		}
	}
	return s, nil
}

// Estimates collects Trials noisy estimates into a slice.
func (e *Engine) Estimates(ctx context.Context, values []int) ([]float64, Summary, error) {
	out := make([]float64, 0, e.params.Trials)
	s, err := e.Run(ctx, values, func(v float64) error {
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, s, err
	}
	return out, s, nil
}
