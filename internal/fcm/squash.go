package fcm

import (
	"fmt"
	"math"
	"strings"
)

// SquashingFunction bounds raw activations into the state space of the map.
// The zero value is not a valid function.
type SquashingFunction uint8

const (
	// Sigmoid maps into (0, 1): 1 / (1 + exp(-lambda*x)).
	Sigmoid SquashingFunction = iota + 1
	// Tanh maps into (-1, 1): tanh(lambda*x).
	Tanh
	// Bivalent thresholds to {0, 1}.
	Bivalent
	// Trivalent thresholds to {-1, 0, 1} by the sign of x.
	Trivalent
)

var squashNames = map[SquashingFunction]string{
	Sigmoid:   "sigmoid",
	Tanh:      "tanh",
	Bivalent:  "bivalent",
	Trivalent: "trivalent",
}

// ParseSquashingFunction maps an identifier to a SquashingFunction. Accepted
// forms are "sig", "tanh", "biv" and "triv" plus the names returned by String,
// case-insensitively.
func ParseSquashingFunction(s string) (SquashingFunction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sig", "sigmoid":
		return Sigmoid, nil
	case "tanh":
		return Tanh, nil
	case "biv", "bivalent":
		return Bivalent, nil
	case "triv", "trivalent":
		return Trivalent, nil
	default:
		return 0, invalidf("unknown squashing function %q (valid: sig, tanh, biv, triv)", s)
	}
}

// Valid reports whether f is one of the declared functions.
func (f SquashingFunction) Valid() bool {
	_, ok := squashNames[f]
	return ok
}

func (f SquashingFunction) String() string {
	if name, ok := squashNames[f]; ok {
		return name
	}
	return fmt.Sprintf("SquashingFunction(%d)", uint8(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f SquashingFunction) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, invalidf("unknown squashing function %d", uint8(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *SquashingFunction) UnmarshalText(text []byte) error {
	parsed, err := ParseSquashingFunction(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Apply squashes a single raw value. lambda is ignored by the threshold
// variants.
func (f SquashingFunction) Apply(x, lambda float64) float64 {
	switch f {
	case Sigmoid:
		return 1.0 / (1.0 + math.Exp(-lambda*x))
	case Tanh:
		return math.Tanh(lambda * x)
	case Bivalent:
		if x > 0 {
			return 1
		}
		return 0
	case Trivalent:
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("fcm: Apply called with %v", f))
	}
}

// Bounds returns the closed interval that contains every output of f.
func (f SquashingFunction) Bounds() (lo, hi float64) {
	switch f {
	case Sigmoid, Bivalent:
		return 0, 1
	default:
		return -1, 1
	}
}
