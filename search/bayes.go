package search

import (
	"fmt"
	"math/rand"
)

// maxExploreAttempts bounds the draws spent looking for a point that was not
// evaluated yet.
const maxExploreAttempts = 100

// BayesSuggester alternates between exploring the space at random and
// exploiting a Gaussian Process model of the observations.
//
// Suggest explores while fewer than NExploreSteps steps are recorded, then
// exploits. Explore and Exploit can also be called directly.
//
// Out-of-space points passed to Record or Tell are ignored: they reach
// neither the model nor PreviousSteps, and never affect BestPoint.
type BayesSuggester struct {
	base

	config    BayesConfig
	optimizer Optimizer
	rng       *rand.Rand
}

// NewBayesSuggester returns a Bayesian suggester over space. Prior steps are
// fed to the model in one batch, refitting only after the last one.
//
// Parameters:
// - space: The search space (at least one dimension)
// - config: Settings, see BayesConfig; zero fields take their default
// - opts: WithPriorSteps, WithSeed (overrides config.Seed) and WithLogger
//
// Usage example:
//
//	space := search.MustSpace(
//	    search.Dim("lr", search.LogUniform{Low: 1e-4, High: 1e-1}),
//	    search.Dim("layers", []int{1, 2, 3}),
//	)
//
//	s, err := search.NewBayesSuggester(space, search.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
//	for i := 0; i < 30; i++ {
//	    point, err := s.Suggest()
//	    if err != nil {
//	        return err
//	    }
//
//	    s.Tell(point, train(point))
//	}
//
//	best, _ := s.BestPoint()
func NewBayesSuggester(space *Space, config BayesConfig, opts ...Option) (*BayesSuggester, error) {
	if space.Len() == 0 {
		return nil, fmt.Errorf("%w: space has no dimensions", ErrInvalidDimension)
	}

	o := collect(opts)
	if o.seed != nil {
		config.Seed = *o.seed
	}

	config = config.withDefaults()

	snap := func(x []float64) []float64 {
		p, err := space.FromVector(x)
		if err != nil {
			return x
		}

		snapped, err := space.ToVector(p)
		if err != nil {
			return x
		}

		return snapped
	}

	s := &BayesSuggester{
		base:      newBase(space, o, ModeExplore),
		config:    config,
		optimizer: NewGaussianProcessOptimizer(space.Len(), config, snap),
		rng:       rand.New(rand.NewSource(config.Seed)),
	}

	prior := s.steps
	for i, step := range prior {
		x, err := space.ToVector(step.Point)
		if err != nil {
			return nil, err
		}

		if err := s.optimizer.Tell(x, step.Observation, i == len(prior)-1); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Config returns the effective configuration.
func (s *BayesSuggester) Config() BayesConfig { return s.config }

// Suggest implements Suggester.
func (s *BayesSuggester) Suggest() (Point, error) {
	if len(s.steps) < s.config.NExploreSteps {
		return s.Explore()
	}

	return s.Exploit()
}

// SuggestMany implements Suggester. Exploit suggestions repeat until the
// model is told about new observations.
func (s *BayesSuggester) SuggestMany(n int) ([]Point, error) {
	return suggestMany(n, s.Suggest)
}

// Explore draws a random point that was not evaluated yet. When none is
// found after a bounded number of draws a warning is logged and the last
// draw is returned.
func (s *BayesSuggester) Explore() (Point, error) {
	s.mode = ModeExplore

	var p Point

	for attempt := 0; attempt < maxExploreAttempts; attempt++ {
		p = s.space.Sample(s.rng.Float64)
		if !s.seen(p) {
			return p, nil
		}
	}

	s.logger.Warn("could not find an unevaluated point, the space may be exhausted",
		"attempts", maxExploreAttempts,
		"steps", len(s.steps),
	)

	return p, nil
}

// Exploit asks the model for the most promising point.
func (s *BayesSuggester) Exploit() (Point, error) {
	s.mode = ModeExploit

	x, err := s.optimizer.Ask()
	if err != nil {
		return nil, err
	}

	return s.space.FromVector(x)
}

// Tell implements Suggester. It records and refits immediately.
func (s *BayesSuggester) Tell(point Point, observation float64) {
	if err := s.Record(point, observation, true); err != nil {
		s.logger.Warn("failed to update the model", "point", point, "error", err)
	}
}

// Record adds one observation. With fit false the model refit is deferred
// until the next Exploit, which batches many records cheaply. A point
// outside the space or a NaN or infinite output is warned about and not
// recorded at all.
func (s *BayesSuggester) Record(point Point, output float64, fit bool) error {
	if !s.record(point, output) {
		return nil
	}

	x, err := s.space.ToVector(point)
	if err != nil {
		return err
	}

	return s.optimizer.Tell(x, output, fit)
}

// BestPoint returns the point with the lowest observation, the first one on
// ties. ok is false when nothing has been recorded.
func (s *BayesSuggester) BestPoint() (Point, bool) {
	if len(s.steps) == 0 {
		return nil, false
	}

	best := 0
	for i, step := range s.steps {
		if step.Observation < s.steps[best].Observation {
			best = i
		}
	}

	return clonePoint(s.steps[best].Point), true
}
