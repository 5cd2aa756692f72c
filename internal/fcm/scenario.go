package fcm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Scenario is a what-if question: clamp some concepts and see how the rest
// of the map settles compared to its free-running steady state.
type Scenario struct {
	// Name is a label for reporting only.
	Name string

	// Clamp maps concept names to the values they are held at.
	Clamp map[string]float64

	// Principles optionally restricts the reported changes. They do not
	// affect either solve.
	Principles []string

	// NoiseThreshold zeroes every weight with |w| <= threshold before solving.
	// Zero keeps all non-zero weights.
	NoiseThreshold float64
}

// Changes maps concept names to scenario minus baseline activation.
type Changes map[string]float64

// ConceptChange is one entry of a Changes map with its concept position.
type ConceptChange struct {
	Index   int     `json:"index"`
	Concept string  `json:"concept"`
	Delta   float64 `json:"delta"`
}

// ScenarioResult is the outcome of a scenario run.
type ScenarioResult struct {
	Name     string
	Concepts []string

	// Changes covers every concept; clamped concepts are always 0.
	Changes Changes

	// PrincipleChanges is Changes restricted to the scenario's principles,
	// or nil when none were named.
	PrincipleChanges Changes

	Baseline           []float64
	Scenario           []float64
	BaselineIterations int
	ScenarioIterations int
}

// OrderedChanges returns Changes in concept order.
func (r *ScenarioResult) OrderedChanges() []ConceptChange {
	out := make([]ConceptChange, len(r.Concepts))
	for i, name := range r.Concepts {
		out[i] = ConceptChange{Index: i, Concept: name, Delta: r.Changes[name]}
	}
	return out
}

// Delta computes scenario - baseline per concept and zeroes clamped indices.
// Both vectors must have len(concepts) entries.
func Delta(concepts []string, baseline, scenario []float64, clamp Clamp) (Changes, error) {
	if len(baseline) != len(concepts) || len(scenario) != len(concepts) {
		return nil, invalidf("delta: vectors of length %d and %d for %d concepts",
			len(baseline), len(scenario), len(concepts))
	}
	changes := make(Changes, len(concepts))
	for i, name := range concepts {
		if _, clamped := clamp[i]; clamped {
			changes[name] = 0
			continue
		}
		changes[name] = scenario[i] - baseline[i]
	}
	return changes, nil
}

// Restrict returns the subset of c named by principles, or nil when
// principles is empty.
func (c Changes) Restrict(principles []string) Changes {
	if len(principles) == 0 {
		return nil
	}
	out := make(Changes, len(principles))
	for _, p := range principles {
		out[p] = c[p]
	}
	return out
}

// RunScenario solves the baseline and the clamped scenario on m and reports
// the per-concept change. Unknown clamp or principle names fail with
// ErrUnknownConcept before anything is solved.
func (e *Engine) RunScenario(m *Map, s Scenario) (*ScenarioResult, error) {
	// Step 1: resolve names.
	clamp, err := m.ResolveClamp(s.Clamp)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: clamp: %w", s.Name, err)
	}
	if err := m.resolveNames(s.Principles); err != nil {
		return nil, fmt.Errorf("scenario %q: principles: %w", s.Name, err)
	}

	if s.NoiseThreshold != 0 {
		m = m.WithNoiseReduced(s.NoiseThreshold)
	}

	// Step 2: free-running baseline.
	baseline, err := e.SteadyState(m)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: baseline: %w", s.Name, err)
	}

	// Step 3: clamped scenario on the same matrix.
	scenario, err := e.Scenario(m, clamp)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: clamped solve: %w", s.Name, err)
	}

	// Step 4: deltas, with clamped concepts zeroed.
	changes, err := Delta(m.concepts, baseline.Activation, scenario.Activation, clamp)
	if err != nil {
		return nil, err
	}

	return &ScenarioResult{
		Name:               s.Name,
		Concepts:           m.Concepts(),
		Changes:            changes,
		PrincipleChanges:   changes.Restrict(s.Principles),
		Baseline:           baseline.Activation,
		Scenario:           scenario.Activation,
		BaselineIterations: baseline.Iterations,
		ScenarioIterations: scenario.Iterations,
	}, nil
}

// ComputeSteadyState solves weights (row = source concept) from the all-ones
// vector with default epsilon and iteration cap.
func ComputeSteadyState(weights mat.Matrix, lambda float64, squash SquashingFunction, rule InferenceRule) ([]float64, error) {
	e, err := engineFor(lambda, squash, rule)
	if err != nil {
		return nil, err
	}
	if err := checkSquare(weights); err != nil {
		return nil, err
	}
	n, _ := weights.Dims()
	sol, err := e.run(KindSteady, weights.T(), ones(n), nil)
	if err != nil {
		return nil, err
	}
	return sol.Activation, nil
}

// ComputeScenario solves weights from the all-ones vector holding clamp fixed.
func ComputeScenario(weights mat.Matrix, lambda float64, squash SquashingFunction, rule InferenceRule, clamp Clamp) ([]float64, error) {
	e, err := engineFor(lambda, squash, rule)
	if err != nil {
		return nil, err
	}
	if err := checkSquare(weights); err != nil {
		return nil, err
	}
	n, _ := weights.Dims()
	sol, err := e.run(KindScenario, weights.T(), ones(n), clamp)
	if err != nil {
		return nil, err
	}
	return sol.Activation, nil
}

// RunScenario is the one-call form of Engine.RunScenario with default
// epsilon and iteration cap.
func RunScenario(weights mat.Matrix, concepts []string, clamp map[string]float64, principles []string,
	noiseThreshold, lambda float64, squash SquashingFunction, rule InferenceRule) (*ScenarioResult, error) {
	e, err := engineFor(lambda, squash, rule)
	if err != nil {
		return nil, err
	}
	m, err := NewMap(concepts, weights)
	if err != nil {
		return nil, err
	}
	return e.RunScenario(m, Scenario{
		Clamp:          clamp,
		Principles:     principles,
		NoiseThreshold: noiseThreshold,
	})
}

func engineFor(lambda float64, squash SquashingFunction, rule InferenceRule) (*Engine, error) {
	cfg := DefaultConfig()
	cfg.Lambda = lambda
	cfg.Squash = squash
	cfg.Rule = rule
	return NewEngine(cfg)
}

func checkSquare(weights mat.Matrix) error {
	if weights == nil {
		return invalidf("nil weight matrix")
	}
	if r, c := weights.Dims(); r != c {
		return invalidf("weight matrix is %dx%d, want square", r, c)
	}
	return nil
}
