package fcm

import (
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Map is a fuzzy cognitive map: an ordered list of concept names and a square
// weight matrix where At(i, j) is the influence of concept i on concept j.
// A Map is immutable once built; accessors hand out copies.
type Map struct {
	concepts []string
	index    map[string]int
	weights  *mat.Dense
}

// NewMap validates and builds a Map. Concept names must be non-empty and
// unique, and weights must be square with one row per concept. Weight values
// are not range-checked.
func NewMap(concepts []string, weights mat.Matrix) (*Map, error) {
	if len(concepts) == 0 {
		return nil, invalidf("map needs at least one concept")
	}
	if weights == nil {
		return nil, invalidf("nil weight matrix")
	}
	r, c := weights.Dims()
	if r != c {
		return nil, invalidf("weight matrix is %dx%d, want square", r, c)
	}
	if r != len(concepts) {
		return nil, invalidf("weight matrix is %dx%d but %d concepts were given", r, c, len(concepts))
	}

	index := make(map[string]int, len(concepts))
	for i, name := range concepts {
		if name == "" {
			return nil, invalidf("concept %d has an empty name", i)
		}
		if prev, dup := index[name]; dup {
			return nil, invalidf("duplicate concept %q at positions %d and %d", name, prev, i)
		}
		index[name] = i
	}

	return &Map{
		concepts: slices.Clone(concepts),
		index:    index,
		weights:  mat.DenseCopyOf(weights),
	}, nil
}

// NewMapFromRows builds a Map from row-major weights, one row per source concept.
func NewMapFromRows(concepts []string, rows [][]float64) (*Map, error) {
	n := len(rows)
	if n == 0 {
		return nil, invalidf("map needs at least one concept")
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, invalidf("row %d has %d weights, want %d", i, len(row), n)
		}
		data = append(data, row...)
	}
	return NewMap(concepts, mat.NewDense(n, n, data))
}

// Len returns the number of concepts.
func (m *Map) Len() int { return len(m.concepts) }

// Concepts returns a copy of the ordered concept names.
func (m *Map) Concepts() []string { return slices.Clone(m.concepts) }

// Index returns the position of the named concept.
func (m *Map) Index(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}

// Weight returns the influence of concept i on concept j.
func (m *Map) Weight(i, j int) float64 { return m.weights.At(i, j) }

// Weights returns a copy of the weight matrix.
func (m *Map) Weights() *mat.Dense { return mat.DenseCopyOf(m.weights) }

// WithNoiseReduced returns a new Map whose weights have passed through
// ReduceNoise. The receiver is unchanged.
func (m *Map) WithNoiseReduced(threshold float64) *Map {
	return &Map{
		concepts: m.concepts,
		index:    m.index,
		weights:  ReduceNoise(m.weights, threshold),
	}
}

// ResolveClamp converts a name-keyed clamp into index form.
func (m *Map) ResolveClamp(byName map[string]float64) (Clamp, error) {
	clamp := make(Clamp, len(byName))
	for name, v := range byName {
		i, ok := m.index[name]
		if !ok {
			return nil, &UnknownConceptError{Name: name}
		}
		clamp[i] = v
	}
	return clamp, nil
}

// resolveNames checks that every name is a concept of m.
func (m *Map) resolveNames(names []string) error {
	for _, name := range names {
		if _, ok := m.index[name]; !ok {
			return &UnknownConceptError{Name: name}
		}
	}
	return nil
}

// transposed is the incoming-influence view the solver consumes.
func (m *Map) transposed() mat.Matrix { return m.weights.T() }
