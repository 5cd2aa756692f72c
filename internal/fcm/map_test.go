package fcm

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewMap_Validation(t *testing.T) {
	tests := []struct {
		name     string
		concepts []string
		weights  mat.Matrix
	}{
		{"no concepts", nil, mat.NewDense(1, 1, nil)},
		{"nil weights", []string{"a"}, nil},
		{"non-square", []string{"a", "b"}, mat.NewDense(2, 3, nil)},
		{"count mismatch", []string{"a", "b", "c"}, mat.NewDense(2, 2, nil)},
		{"duplicate name", []string{"a", "a"}, mat.NewDense(2, 2, nil)},
		{"empty name", []string{"a", ""}, mat.NewDense(2, 2, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMap(tt.concepts, tt.weights); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestNewMapFromRows_Ragged(t *testing.T) {
	_, err := NewMapFromRows([]string{"a", "b"}, [][]float64{{0, 1}, {1}})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestMap_Immutable(t *testing.T) {
	concepts := []string{"a", "b"}
	w := mat.NewDense(2, 2, []float64{0, 0.5, -0.5, 0})
	m, err := NewMap(concepts, w)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}

	concepts[0] = "changed"
	w.Set(0, 1, 9)
	m.Concepts()[1] = "changed"
	m.Weights().Set(1, 0, 9)

	if got := m.Concepts(); got[0] != "a" || got[1] != "b" {
		t.Errorf("Concepts() = %v, want [a b]", got)
	}
	if m.Weight(0, 1) != 0.5 || m.Weight(1, 0) != -0.5 {
		t.Errorf("weights changed: %v", mat.Formatted(m.Weights()))
	}
}

func TestMap_ResolveClamp(t *testing.T) {
	m := mustMap(t, []string{"x", "y", "z"}, [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}})

	clamp, err := m.ResolveClamp(map[string]float64{"z": 1, "x": -1})
	if err != nil {
		t.Fatalf("ResolveClamp: %v", err)
	}
	if clamp[2] != 1 || clamp[0] != -1 || len(clamp) != 2 {
		t.Errorf("clamp = %v", clamp)
	}
	if idx := clamp.Indices(); len(idx) != 2 || idx[0] != 0 || idx[1] != 2 {
		t.Errorf("Indices() = %v, want [0 2]", idx)
	}

	if _, err := m.ResolveClamp(map[string]float64{"w": 1}); !errors.Is(err, ErrUnknownConcept) {
		t.Errorf("error = %v, want ErrUnknownConcept", err)
	}
}
