package fcm

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// the engine wraps them with context via fmt.Errorf("...: %w", ErrX).
var (
	// ErrInvalidArgument covers unknown rule or squashing identifiers, malformed
	// weight matrices, bad initial vectors and out-of-range clamp indices.
	ErrInvalidArgument = errors.New("fcm: invalid argument")

	// ErrUnknownConcept is returned when a clamp or principle name is not part
	// of the map's concept list.
	ErrUnknownConcept = errors.New("fcm: unknown concept")

	// ErrNonConvergence is returned when the fixed-point loop exhausts its
	// iteration cap before the residual drops to epsilon.
	ErrNonConvergence = errors.New("fcm: did not converge")
)

// UnknownConceptError names the concept that could not be resolved.
type UnknownConceptError struct {
	Name string
}

func (e *UnknownConceptError) Error() string {
	return fmt.Sprintf("fcm: unknown concept %q", e.Name)
}

// Is reports whether target is ErrUnknownConcept.
func (e *UnknownConceptError) Is(target error) bool {
	return target == ErrUnknownConcept
}

// NonConvergenceError describes a solve that hit its iteration cap.
// Last holds the final (unsettled) activation vector for diagnostics.
type NonConvergenceError struct {
	Iterations int
	Residual   float64
	Epsilon    float64
	Last       []float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("fcm: did not converge after %d iterations (residual %g > epsilon %g)",
		e.Iterations, e.Residual, e.Epsilon)
}

// Is reports whether target is ErrNonConvergence.
func (e *NonConvergenceError) Is(target error) bool {
	return target == ErrNonConvergence
}

// invalidf wraps ErrInvalidArgument with a formatted message.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}
