package fcm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ReduceNoise returns a copy of m in which every weight whose magnitude is at
// or below threshold is set to zero. The input is never modified. A negative
// threshold zeroes nothing.
func ReduceNoise(m mat.Matrix, threshold float64) *mat.Dense {
	out := mat.DenseCopyOf(m)
	out.Apply(func(_, _ int, v float64) float64 {
		if math.Abs(v) <= threshold {
			return 0
		}
		return v
	}, out)
	return out
}
