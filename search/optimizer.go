package search

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

//////
// Const, vars, types.
//////

// Optimizer is a sequential model-based optimiser working on vectors of the
// unit hypercube. It minimises the objective.
type Optimizer interface {
	// Ask returns the next vector to evaluate.
	Ask() ([]float64, error)

	// Tell records the objective y observed at x. With fit false the model
	// refit is deferred until the next Fit or Ask.
	Tell(x []float64, y float64, fit bool) error

	// Fit refits the model on every recorded observation.
	Fit() error
}

// GaussianProcessOptimizer is an Optimizer backed by a Gaussian Process and
// an acquisition function.
//
// Ask scores NumCandidates random vectors with the acquisition function and
// returns the best one that was not evaluated yet.
//
// Thread safety:
// - All methods are safe for concurrent use
type GaussianProcessOptimizer struct {
	mu sync.Mutex

	dims          int
	gp            *gaussianProcess
	acquisition   AcquisitionFunc
	params        AcquisitionParams
	numCandidates int
	rng           *rand.Rand
	snap          func([]float64) []float64

	stale     bool
	evaluated map[string]struct{}
}

//////
// Factory.
//////

// NewGaussianProcessOptimizer returns an optimiser over dims dimensions.
//
// Parameters:
// - dims: Number of dimensions of the vectors
// - config: Model and acquisition settings; zero fields take their default
// - snap: Optional. Maps a candidate to the vector actually evaluated (for
// example the centre of a categorical bucket). nil keeps candidates as is.
//
// Usage example:
//
//	opt := search.NewGaussianProcessOptimizer(2, search.DefaultConfig(), nil)
//
//	for i := 0; i < 20; i++ {
//	    x, _ := opt.Ask()
//	    _ = opt.Tell(x, objective(x), true)
//	}
func NewGaussianProcessOptimizer(dims int, config BayesConfig, snap func([]float64) []float64) *GaussianProcessOptimizer {
	config = config.withDefaults()

	rng := rand.New(rand.NewSource(config.Seed))

	params := config.AcqParams
	if params.RandomState == nil {
		params.RandomState = rand.New(rand.NewSource(config.Seed + 1))
	}

	if snap == nil {
		snap = func(x []float64) []float64 { return x }
	}

	return &GaussianProcessOptimizer{
		dims:          dims,
		gp:            newGaussianProcess(config.LengthScale, config.Noise),
		acquisition:   config.AcquisitionFunc,
		params:        params,
		numCandidates: config.NumCandidates,
		rng:           rng,
		snap:          snap,
		evaluated:     map[string]struct{}{},
	}
}

//////
// Methods.
//////

// Ask implements Optimizer. Without observations it returns a random
// vector. When every candidate was already evaluated the best scoring one is
// returned anyway.
func (o *GaussianProcessOptimizer) Ask() ([]float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.gp.Len() == 0 {
		return o.candidate(), nil
	}

	if err := o.fit(); err != nil {
		return nil, err
	}

	params := o.params
	params.BestSoFar = o.gp.Best()

	var (
		best        []float64
		bestScore   = math.Inf(1)
		fallback    []float64
		fallbackAcq = math.Inf(1)
	)

	for i := 0; i < o.numCandidates; i++ {
		x := o.candidate()

		mean, variance := o.gp.Predict(x)
		score := o.acquisition(mean, variance, params)

		if _, done := o.evaluated[vectorKey(x)]; done {
			if fallback == nil || score < fallbackAcq {
				fallback, fallbackAcq = x, score
			}

			continue
		}

		if best == nil || score < bestScore {
			best, bestScore = x, score
		}
	}

	if best == nil {
		return fallback, nil
	}

	return best, nil
}

// Tell implements Optimizer.
func (o *GaussianProcessOptimizer) Tell(x []float64, y float64, fit bool) error {
	if len(x) != o.dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(x), o.dims)
	}

	if math.IsNaN(y) || math.IsInf(y, 0) {
		return fmt.Errorf("observation must be finite, got %v", y)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.gp.Update(x, y)
	o.evaluated[vectorKey(x)] = struct{}{}
	o.stale = true

	if fit {
		return o.fit()
	}

	return nil
}

// Fit implements Optimizer.
func (o *GaussianProcessOptimizer) Fit() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.fit()
}

// Len returns the number of recorded observations.
func (o *GaussianProcessOptimizer) Len() int { return o.gp.Len() }

// fit refits the model if observations were added since the last fit.
// Callers hold mu.
func (o *GaussianProcessOptimizer) fit() error {
	if !o.stale {
		return nil
	}

	if err := o.gp.Fit(); err != nil {
		return err
	}

	o.stale = false

	return nil
}

// candidate draws a random vector and snaps it. Callers hold mu.
func (o *GaussianProcessOptimizer) candidate() []float64 {
	x := make([]float64, o.dims)
	for i := range x {
		x[i] = o.rng.Float64()
	}

	return o.snap(x)
}
