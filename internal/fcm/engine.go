// Package fcm implements fixed-point inference over fuzzy cognitive maps.
// A map's activation vector is repeatedly propagated through the weight
// matrix by an inference rule and bounded by a squashing function until two
// successive vectors differ by no more than epsilon. Scenarios clamp chosen
// concepts to fixed values and report how every other concept moves relative
// to the unclamped steady state.
package fcm

import (
	"math"
	"slices"

	"github.com/tomorrownow/PyFCM/internal/constants"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Config holds the inference parameters of an Engine.
type Config struct {
	// Rule combines the previous state with the weights. Default: ModifiedKosko.
	Rule InferenceRule

	// Squash bounds raw activations. Default: Sigmoid.
	Squash SquashingFunction

	// Lambda is the steepness of Sigmoid and Tanh. Default: 1.
	Lambda float64

	// Epsilon is the L-infinity residual at which the loop stops. Default: 1e-5.
	Epsilon float64

	// MaxIterations caps the loop; reaching it is a non-convergence error.
	// Default: 1000.
	MaxIterations int
}

// DefaultConfig returns the default inference configuration.
func DefaultConfig() Config {
	return Config{
		Rule:          ModifiedKosko,
		Squash:        Sigmoid,
		Lambda:        constants.DefaultLambda,
		Epsilon:       constants.DefaultEpsilon,
		MaxIterations: constants.DefaultMaxIterations,
	}
}

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	if !c.Rule.Valid() {
		return invalidf("config: %v is not an inference rule", c.Rule)
	}
	if !c.Squash.Valid() {
		return invalidf("config: %v is not a squashing function", c.Squash)
	}
	if math.IsNaN(c.Lambda) || math.IsInf(c.Lambda, 0) {
		return invalidf("config: lambda must be finite, got %v", c.Lambda)
	}
	if !(c.Epsilon > 0) || math.IsInf(c.Epsilon, 0) {
		return invalidf("config: epsilon must be positive and finite, got %v", c.Epsilon)
	}
	if c.MaxIterations < 1 {
		return invalidf("config: max iterations must be at least 1, got %d", c.MaxIterations)
	}
	return nil
}

// Clamp forces concepts, by index, to fixed values after every squashing step.
type Clamp map[int]float64

// Indices returns the clamped indices in ascending order.
func (c Clamp) Indices() []int {
	idx := make([]int, 0, len(c))
	for i := range c {
		idx = append(idx, i)
	}
	slices.Sort(idx)
	return idx
}

// Solution is a converged activation vector.
type Solution struct {
	Activation []float64
	Iterations int
	Residual   float64
}

// SolveKind labels a solve for observers.
type SolveKind string

const (
	KindSteady   SolveKind = "steady"
	KindScenario SolveKind = "scenario"
	KindCustom   SolveKind = "custom"
)

// SolveEvent describes one finished solve, converged or not.
type SolveEvent struct {
	Kind       SolveKind
	Rule       InferenceRule
	Squash     SquashingFunction
	Lambda     float64
	Concepts   int
	Clamped    int
	Iterations int
	Residual   float64
	Converged  bool
}

// Observer receives an event after every solve. Implementations must not
// retain the engine or block for long; they run on the solving goroutine.
type Observer interface {
	ObserveSolve(SolveEvent)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(SolveEvent)

// ObserveSolve calls f(ev).
func (f ObserverFunc) ObserveSolve(ev SolveEvent) { f(ev) }

type multiObserver []Observer

func (m multiObserver) ObserveSolve(ev SolveEvent) {
	for _, o := range m {
		o.ObserveSolve(ev)
	}
}

// JoinObservers fans events out to every non-nil observer. It returns nil
// when none are given.
func JoinObservers(observers ...Observer) Observer {
	var out multiObserver
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver attaches an observer notified after every solve.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// Engine runs fixed-point inference. The engine is stateless: every vector is
// allocated per call, so one Engine may be shared across goroutines.
type Engine struct {
	config   Config
	observer Observer
}

// NewEngine validates config and returns an engine.
func NewEngine(config Config, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{config: config}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.config }

// SteadyState solves m from the all-ones vector with nothing clamped.
func (e *Engine) SteadyState(m *Map) (Solution, error) {
	return e.run(KindSteady, m.transposed(), ones(m.Len()), nil)
}

// Scenario solves m from the all-ones vector with clamp re-applied after
// every step.
func (e *Engine) Scenario(m *Map, clamp Clamp) (Solution, error) {
	return e.run(KindScenario, m.transposed(), ones(m.Len()), clamp)
}

// Solve runs the loop from an arbitrary initial vector.
func (e *Engine) Solve(m *Map, initial []float64, clamp Clamp) (Solution, error) {
	return e.run(KindCustom, m.transposed(), initial, clamp)
}

// run iterates a <- clamp(squash(infer(a))) over the transposed weights wt
// until the L-infinity residual is at most epsilon.
func (e *Engine) run(kind SolveKind, wt mat.Matrix, initial []float64, clamp Clamp) (Solution, error) {
	n, c := wt.Dims()
	if n != c {
		return Solution{}, invalidf("weight matrix is %dx%d, want square", n, c)
	}
	if len(initial) != n {
		return Solution{}, invalidf("initial vector has length %d, want %d", len(initial), n)
	}
	for i := range clamp {
		if i < 0 || i >= n {
			return Solution{}, invalidf("clamp index %d out of range [0,%d)", i, n)
		}
	}

	cfg := e.config
	prev := slices.Clone(initial)
	next := make([]float64, n)
	raw := mat.NewVecDense(n, nil)
	scratch := mat.NewVecDense(n, nil)

	residual := math.Inf(1)
	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		// Step 1: raw pre-activation from the previous state.
		cfg.Rule.infer(raw, wt, mat.NewVecDense(n, prev), scratch)

		// Step 2: squash, then force clamped concepts back to their values.
		for i := range next {
			next[i] = cfg.Squash.Apply(raw.AtVec(i), cfg.Lambda)
		}
		for i, v := range clamp {
			next[i] = v
		}

		// Step 3: convergence check on the largest per-concept change.
		residual = floats.Distance(next, prev, math.Inf(1))
		prev, next = next, prev

		if residual <= cfg.Epsilon {
			e.notify(kind, n, len(clamp), iter, residual, true)
			return Solution{Activation: prev, Iterations: iter, Residual: residual}, nil
		}
	}

	e.notify(kind, n, len(clamp), cfg.MaxIterations, residual, false)
	return Solution{}, &NonConvergenceError{
		Iterations: cfg.MaxIterations,
		Residual:   residual,
		Epsilon:    cfg.Epsilon,
		Last:       prev,
	}
}

func (e *Engine) notify(kind SolveKind, n, clamped, iterations int, residual float64, converged bool) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveSolve(SolveEvent{
		Kind:       kind,
		Rule:       e.config.Rule,
		Squash:     e.config.Squash,
		Lambda:     e.config.Lambda,
		Concepts:   n,
		Clamped:    clamped,
		Iterations: iterations,
		Residual:   residual,
		Converged:  converged,
	})
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
