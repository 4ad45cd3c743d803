package search

import (
	"errors"
	"math"
	"sync"
)

//////
// Const, vars, types.
//////

// Jitter added to the kernel diagonal when the factorisation fails, each
// attempt multiplying the noise by 10.
const maxJitterAttempts = 6

// errNotPositiveDefinite is returned when the kernel matrix cannot be
// factorised even after adding jitter.
var errNotPositiveDefinite = errors.New("kernel matrix is not positive definite")

// gaussianProcess implements a thread-safe Gaussian Process regression model
// over the unit hypercube. It predicts the objective of untested points from
// the observations recorded so far.
//
// Fields:
// - mu: RWMutex for thread-safe access to all fields
// - X: Observed input points (each point is a unit vector)
// - Y: Observed objective values at each input point
// - sigma: Kernel length scale controlling the smoothness of interpolation
// - noise: Variance added to the kernel diagonal
//
// Thread safety:
// - All fields are protected by the RWMutex
// - Uses RLock for read operations (Predict, RBFKernel)
// - Uses Lock for write operations (Update, Fit, SetSigma)
//
// Model:
//   - Targets are standardised (zero mean, unit variance) before fitting, and
//     predictions are mapped back to the original scale
//   - Fit computes the Cholesky factor L of K + noise*I and the weights
//     alpha = (K + noise*I)^-1 y. Predict uses the last fit; observations
//     added by Update are ignored until the next Fit.
type gaussianProcess struct {
	// mu protects access to all fields
	mu sync.RWMutex

	// X stores the input points. Inner slices all have the same length.
	X [][]float64

	// Y stores the observed values at each point in X
	Y []float64

	// sigma is the kernel length scale
	// Larger values = smoother interpolation
	// Smaller values = more local influence
	sigma float64

	// noise is added to the kernel diagonal
	noise float64

	// Fitted state. n is the number of observations covered by the fit.
	n      int
	chol   [][]float64
	alpha  []float64
	yMean  float64
	yScale float64
}

//////
// Methods.
//////

// RBFKernel implements the Radial Basis Function (also known as Gaussian)
// kernel. The similarity of two points decreases exponentially with their
// squared distance.
//
// Parameters:
// - x1, x2: Input vectors to compare (must have same length)
//
// Returns:
// - float64: Kernel value (similarity) between the points (0.0 to 1.0)
//
// Usage example:
//
//	gp := newGaussianProcess(0.2, 1e-6)
//	similarity := gp.RBFKernel([]float64{0.1, 0.2}, []float64{0.3, 0.4})
func (gp *gaussianProcess) RBFKernel(x1, x2 []float64) float64 {
	gp.mu.RLock()
	sigma := gp.sigma
	gp.mu.RUnlock()

	return rbf(x1, x2, sigma)
}

// Update adds one observation to the model. It only takes effect on
// predictions after the next Fit.
//
// Parameters:
// - x: Input point (copied)
// - y: Observed value at x
func (gp *gaussianProcess) Update(x []float64, y float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	newX := make([]float64, len(x))
	copy(newX, x)

	gp.X = append(gp.X, newX)
	gp.Y = append(gp.Y, y)
}

// Fit factorises the kernel matrix of every observation recorded so far.
//
// Returns:
// - error: errNotPositiveDefinite when the matrix stays singular after
// adding jitter to its diagonal
//
// Performance considerations:
// - O(n^3) time and O(n^2) memory where n is the number of observations.
func (gp *gaussianProcess) Fit() error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	n := len(gp.X)
	if n == 0 {
		gp.n, gp.chol, gp.alpha = 0, nil, nil

		return nil
	}

	gp.yMean, gp.yScale = standardise(gp.Y)

	y := make([]float64, n)
	for i, v := range gp.Y {
		y[i] = (v - gp.yMean) / gp.yScale
	}

	noise := gp.noise

	for attempt := 0; attempt < maxJitterAttempts; attempt++ {
		k := make([][]float64, n)
		for i := range k {
			k[i] = make([]float64, n)
			for j := 0; j <= i; j++ {
				k[i][j] = rbf(gp.X[i], gp.X[j], gp.sigma)
				k[j][i] = k[i][j]
			}

			k[i][i] += noise
		}

		if l, ok := cholesky(k); ok {
			gp.chol = l
			gp.alpha = solveUpper(l, solveLower(l, y))
			gp.n = n

			return nil
		}

		noise = math.Max(noise*10, 1e-10)
	}

	return errNotPositiveDefinite
}

// Predict returns the predicted mean and variance of the objective at x.
//
// Parameters:
// - x: Input point (same length as the observed points)
//
// Returns:
// - mean: Predicted objective in the original scale
// - variance: Predicted uncertainty in the original scale (never negative)
//
// Important notes:
// - Before any fit, the prior (mean 0, variance 1) is returned.
func (gp *gaussianProcess) Predict(x []float64) (mean, variance float64) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if gp.n == 0 {
		return 0, 1
	}

	k := make([]float64, gp.n)
	for i := 0; i < gp.n; i++ {
		k[i] = rbf(x, gp.X[i], gp.sigma)
	}

	var m float64
	for i := range k {
		m += k[i] * gp.alpha[i]
	}

	v := solveLower(gp.chol, k)

	variance = 1.0
	for _, vi := range v {
		variance -= vi * vi
	}

	variance = math.Max(variance, 0)

	return gp.yMean + gp.yScale*m, gp.yScale * gp.yScale * variance
}

// SetSigma updates the kernel length scale. The next Fit uses it.
func (gp *gaussianProcess) SetSigma(sigma float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	gp.sigma = sigma
}

// GetSigma returns the current kernel length scale.
func (gp *gaussianProcess) GetSigma() float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return gp.sigma
}

// Len returns the number of recorded observations.
func (gp *gaussianProcess) Len() int {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	return len(gp.X)
}

// Best returns the lowest recorded observation, or +Inf without any.
func (gp *gaussianProcess) Best() float64 {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	best := math.Inf(1)
	for _, y := range gp.Y {
		best = math.Min(best, y)
	}

	return best
}

//////
// Factory.
//////

// newGaussianProcess creates a new Gaussian Process with the given length
// scale and observation noise.
func newGaussianProcess(sigma, noise float64) *gaussianProcess {
	return &gaussianProcess{
		sigma: sigma,
		noise: noise,
	}
}

//////
// Linear algebra helpers.
//////

func rbf(x1, x2 []float64, sigma float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}

	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]
		sum += diff * diff
	}

	return math.Exp(-sum / (2 * sigma * sigma))
}

// standardise returns the mean and standard deviation of ys. A zero spread
// is reported as 1 so that dividing by it is always safe.
func standardise(ys []float64) (mean, scale float64) {
	for _, y := range ys {
		mean += y
	}

	mean /= float64(len(ys))

	for _, y := range ys {
		scale += (y - mean) * (y - mean)
	}

	scale = math.Sqrt(scale / float64(len(ys)))
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}

	return mean, scale
}

// cholesky returns the lower triangular L with L*L^T = a.
func cholesky(a [][]float64) ([][]float64, bool) {
	n := len(a)

	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}

			if i == j {
				if sum <= 0 || math.IsNaN(sum) {
					return nil, false
				}

				l[i][i] = math.Sqrt(sum)

				continue
			}

			l[i][j] = sum / l[j][j]
		}
	}

	return l, true
}

// solveLower solves L*x = b by forward substitution.
func solveLower(l [][]float64, b []float64) []float64 {
	x := make([]float64, len(b))

	for i := range b {
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= l[i][k] * x[k]
		}

		x[i] = sum / l[i][i]
	}

	return x
}

// solveUpper solves L^T*x = b by back substitution.
func solveUpper(l [][]float64, b []float64) []float64 {
	n := len(b)
	x := make([]float64, n)

	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for k := i + 1; k < n; k++ {
			sum -= l[k][i] * x[k]
		}

		x[i] = sum / l[i][i]
	}

	return x
}
