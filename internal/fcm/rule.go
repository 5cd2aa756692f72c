package fcm

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// InferenceRule selects how the previous activation vector and the weight
// matrix combine into the raw pre-activation vector. The zero value is not a
// valid rule.
type InferenceRule uint8

const (
	// Kosko propagates linearly: raw = Wt·a.
	Kosko InferenceRule = iota + 1
	// ModifiedKosko adds self-persistence: raw = a + Wt·a.
	ModifiedKosko
	// RescaledKosko rescales [0,1] state to [-1,1] first:
	// a' = 2a - 1, raw = a' + Wt·a'.
	RescaledKosko
)

var ruleNames = map[InferenceRule]string{
	Kosko:         "kosko",
	ModifiedKosko: "modified-kosko",
	RescaledKosko: "rescaled-kosko",
}

// ParseInferenceRule maps an identifier to an InferenceRule. It accepts the
// short forms "k", "mk" and "r" as well as the names returned by String,
// case-insensitively.
func ParseInferenceRule(s string) (InferenceRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "k", "kosko":
		return Kosko, nil
	case "mk", "modified-kosko":
		return ModifiedKosko, nil
	case "r", "rescaled-kosko":
		return RescaledKosko, nil
	default:
		return 0, invalidf("unknown inference rule %q (valid: k, mk, r)", s)
	}
}

// Valid reports whether r is one of the declared rules.
func (r InferenceRule) Valid() bool {
	_, ok := ruleNames[r]
	return ok
}

func (r InferenceRule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("InferenceRule(%d)", uint8(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r InferenceRule) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, invalidf("unknown inference rule %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *InferenceRule) UnmarshalText(text []byte) error {
	parsed, err := ParseInferenceRule(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// infer writes the raw pre-activation vector into dst. wt is the transposed
// weight matrix, so row i holds every influence incoming to concept i.
// scratch must have the same length as a; it is only used by RescaledKosko.
func (r InferenceRule) infer(dst *mat.VecDense, wt mat.Matrix, a, scratch *mat.VecDense) {
	switch r {
	case Kosko:
		dst.MulVec(wt, a)
	case ModifiedKosko:
		dst.MulVec(wt, a)
		dst.AddVec(dst, a)
	case RescaledKosko:
		for i := 0; i < a.Len(); i++ {
			scratch.SetVec(i, 2*a.AtVec(i)-1)
		}
		dst.MulVec(wt, scratch)
		dst.AddVec(dst, scratch)
	default:
		// Engines validate their rule at construction.
		panic(fmt.Sprintf("fcm: infer called with %v", r))
	}
}
