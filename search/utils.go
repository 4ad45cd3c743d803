package search

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/thalesfsp/labbook/internal/value"
)

//////
// Helper functions.
//////

// Helper function used by PI and EI to compute the cumulative distribution
// function of the standard normal distribution.
//
// Returns:
// - Probability that a standard normal random variable is less than x.
func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// Helper function used by EI to compute the probability density function
// of the standard normal distribution.
//
// Returns:
// - Value of the standard normal PDF at x.
func normalPDF(x float64) float64 {
	return math.Exp(-x*x/2.0) / math.Sqrt(2.0*math.Pi)
}

// clamp restricts v to [low, high].
func clamp[T constraints.Ordered](v, low, high T) T {
	if v < low {
		return low
	}

	if v > high {
		return high
	}

	return v
}

// vectorKey returns a stable identity for a vector, used to remember which
// vectors were already evaluated.
func vectorKey(x []float64) string {
	var sb strings.Builder

	for i, f := range x {
		if i > 0 {
			sb.WriteByte(',')
		}

		sb.WriteString(strconv.FormatUint(math.Float64bits(f), 16))
	}

	return sb.String()
}

// samePoint reports whether a and b have the same keys and equal values.
func samePoint(a, b Point) bool {
	if len(a) != len(b) {
		return false
	}

	for k, va := range a {
		vb, ok := b[k]
		if !ok || !value.Equal(va, vb) {
			return false
		}
	}

	return true
}
