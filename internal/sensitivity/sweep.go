// Package sensitivity sweeps one concept at a time through a range of clamp
// levels and records how the principle concepts respond. It answers "how
// strongly does pushing X move Y" across the whole [0,1] range rather than at
// a single clamp value.
package sensitivity

import (
	"fmt"

	"github.com/tomorrownow/PyFCM/internal/constants"
	"github.com/tomorrownow/PyFCM/internal/fcm"
	"gonum.org/v1/gonum/floats"
)

// Request describes a sweep.
type Request struct {
	// Concepts are swept one at a time. Required.
	Concepts []string

	// Principles are the concepts whose changes are recorded. Empty means
	// every concept of the map.
	Principles []string

	// Levels are the clamp values. Empty means DefaultLevels().
	Levels []float64

	// NoiseThreshold is applied to the map before solving.
	NoiseThreshold float64
}

// Series is the response of one principle to one swept concept, with one
// delta per level.
type Series struct {
	Concept   string    `json:"concept"`
	Principle string    `json:"principle"`
	Deltas    []float64 `json:"deltas"`
}

// Report holds every series of a sweep.
type Report struct {
	Levels   []float64 `json:"levels"`
	Baseline []float64 `json:"baseline"`
	Series   []Series  `json:"series"`
}

// Lookup returns the series for concept and principle.
func (r *Report) Lookup(concept, principle string) (Series, bool) {
	for _, s := range r.Series {
		if s.Concept == concept && s.Principle == principle {
			return s, true
		}
	}
	return Series{}, false
}

// DefaultLevels returns evenly spaced levels over the default sweep range.
func DefaultLevels() []float64 {
	return floats.Span(make([]float64, constants.DefaultSensitivityLevels),
		constants.DefaultSensitivityMin, constants.DefaultSensitivityMax)
}

// Levels returns n evenly spaced levels from lo to hi inclusive. n must be
// at least 2.
func Levels(n int, lo, hi float64) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("sensitivity: need at least 2 levels, got %d: %w", n, fcm.ErrInvalidArgument)
	}
	if !(lo < hi) {
		return nil, fmt.Errorf("sensitivity: level range [%g, %g] is empty: %w", lo, hi, fcm.ErrInvalidArgument)
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}

// Sweep clamps each requested concept at each level and records principle
// deltas against a single shared baseline. Deltas are the raw scenario minus
// baseline difference, so a swept concept that is also a principle reports
// level minus its baseline activation.
func Sweep(e *fcm.Engine, m *fcm.Map, req Request) (*Report, error) {
	if len(req.Concepts) == 0 {
		return nil, fmt.Errorf("sensitivity: no concepts to sweep: %w", fcm.ErrInvalidArgument)
	}
	principles := req.Principles
	if len(principles) == 0 {
		principles = m.Concepts()
	}
	levels := req.Levels
	if len(levels) == 0 {
		levels = DefaultLevels()
	}

	swept := make([]int, len(req.Concepts))
	for i, name := range req.Concepts {
		idx, ok := m.Index(name)
		if !ok {
			return nil, fmt.Errorf("sensitivity: concept: %w", &fcm.UnknownConceptError{Name: name})
		}
		swept[i] = idx
	}
	principleIdx := make([]int, len(principles))
	for p, name := range principles {
		idx, ok := m.Index(name)
		if !ok {
			return nil, fmt.Errorf("sensitivity: principle: %w", &fcm.UnknownConceptError{Name: name})
		}
		principleIdx[p] = idx
	}

	if req.NoiseThreshold != 0 {
		m = m.WithNoiseReduced(req.NoiseThreshold)
	}

	baseline, err := e.SteadyState(m)
	if err != nil {
		return nil, fmt.Errorf("sensitivity: baseline: %w", err)
	}

	report := &Report{
		Levels:   append([]float64(nil), levels...),
		Baseline: baseline.Activation,
		Series:   make([]Series, 0, len(swept)*len(principles)),
	}
	for ci, idx := range swept {
		deltas := make([][]float64, len(principles))
		for p := range deltas {
			deltas[p] = make([]float64, len(levels))
		}

		for li, level := range levels {
			sol, err := e.Scenario(m, fcm.Clamp{idx: level})
			if err != nil {
				return nil, fmt.Errorf("sensitivity: %s at %g: %w", req.Concepts[ci], level, err)
			}
			for p, pi := range principleIdx {
				deltas[p][li] = sol.Activation[pi] - baseline.Activation[pi]
			}
		}

		for p, name := range principles {
			report.Series = append(report.Series, Series{
				Concept:   req.Concepts[ci],
				Principle: name,
				Deltas:    deltas[p],
			})
		}
	}
	return report, nil
}
