// Package constants provides named constants used throughout the fcm codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Solver constants
const (
	// DefaultEpsilon is the L-infinity residual at or below which two successive
	// activation vectors are considered converged.
	DefaultEpsilon = 1e-5

	// DefaultMaxIterations bounds the fixed-point loop. Oscillating rule/lambda/clamp
	// combinations never reach DefaultEpsilon; they fail with a non-convergence error
	// once this many iterations have run.
	DefaultMaxIterations = 1000

	// DefaultLambda is the steepness of the sigmoid and tanh squashing functions.
	DefaultLambda = 1.0

	// MaxLambda is the upper end of the conventional lambda range.
	MaxLambda = 10.0
)

// Default inference identifiers, as accepted by the fcm Parse functions.
const (
	// DefaultInferenceRule is the modified Kosko rule, which keeps a memory of
	// the previous activation.
	DefaultInferenceRule = "mk"

	// DefaultSquashingFunction is the sigmoid, bounding activations to (0, 1).
	DefaultSquashingFunction = "sig"
)

// Noise reduction constants
const (
	// DefaultNoiseThreshold keeps every non-zero edge.
	DefaultNoiseThreshold = 0.0
)

// Sensitivity sweep constants
const (
	// DefaultSensitivityLevels is the number of evenly spaced clamp levels in a sweep.
	DefaultSensitivityLevels = 21

	// DefaultSensitivityMin is the lowest clamp level of a sweep.
	DefaultSensitivityMin = 0.0

	// DefaultSensitivityMax is the highest clamp level of a sweep.
	DefaultSensitivityMax = 1.0
)
