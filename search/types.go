package search

import (
	"log/slog"
	"math"
)

// Suggestion modes, reported by Suggester.Mode and recorded by experiments
// as the search-mode metadata of each run.
const (
	ModeRandom  = "random"
	ModeGrid    = "grid"
	ModeExplore = "explore"
	ModeExploit = "exploit"
)

// Step is one evaluated point and its (scalar) observation.
type Step struct {
	Point       Point
	Observation float64
}

// Suggester is a stateful policy producing new points to evaluate from the
// steps it has been told about. Suggesters are not safe for concurrent use.
type Suggester interface {
	// Space returns the space points are drawn from.
	Space() *Space

	// Suggest returns a new candidate point.
	Suggest() (Point, error)

	// SuggestMany returns n candidate points.
	SuggestMany(n int) ([]Point, error)

	// Tell records the observation made at point. Points outside the space
	// are ignored with a warning.
	Tell(point Point, observation float64)

	// IsValidPoint reports whether point is a complete point of the space.
	IsValidPoint(point Point) bool

	// PreviousSteps returns every step recorded so far, in order.
	PreviousSteps() []Step

	// PreviousPoints returns the points of PreviousSteps.
	PreviousPoints() []Point

	// PreviousUnitPoints returns PreviousPoints mapped to the unit hypercube.
	PreviousUnitPoints() []UnitPoint

	// Mode describes how the last suggestion was produced.
	Mode() string
}

// Sized is implemented by suggesters over a finite set of points.
type Sized interface {
	// Size returns the total number of points.
	Size() int

	// Remaining returns the number of points not told yet.
	Remaining() int
}

// Option configures a suggester.
type Option func(*options)

type options struct {
	steps  []Step
	seed   *int64
	logger *slog.Logger
}

// WithPriorSteps seeds the suggester with steps evaluated earlier. Steps
// outside the space are dropped with a warning.
func WithPriorSteps(steps ...Step) Option {
	return func(o *options) { o.steps = append(o.steps, steps...) }
}

// WithSeed sets the seed of the suggester's random source.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithLogger sets the logger warnings are written to. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o
}

// DefaultSeed is the seed used when none is given.
const DefaultSeed int64 = 42

// BayesConfig holds all configuration parameters of the Bayesian suggester.
//
// Fields explanation:
// - NExploreSteps: Number of steps sampled at random before the model is used
// - Seed: Seed of the random source used for exploring and for candidates
// - NumCandidates: Number of random candidates scored per exploit step
// - AcquisitionFunc: Strategy for choosing the next point to evaluate
// - AcqParams: Parameters for the acquisition function
// - LengthScale: Length scale of the RBF kernel in the unit hypercube
// - Noise: Observation noise added to the kernel diagonal
//
// Usage example:
//
//	config := search.DefaultConfig()
//	config.NExploreSteps = 5
//	config.AcquisitionFunc = search.ExpectedImprovement
//
//	suggester, err := search.NewBayesSuggester(space, config)
//
// Default values recommendations:
// - NExploreSteps: 10 (increase for more stable initial model)
// - NumCandidates: 100-500 (increase for more thorough search per step)
//
// Note:
// - Zero fields other than Seed are replaced by their default when the
// suggester is built.
type BayesConfig struct {
	// NExploreSteps determines how many steps must be recorded before
	// Suggest starts exploiting the model.
	NExploreSteps int

	// Seed of the random source.
	Seed int64

	// NumCandidates determines how many random candidates to consider in
	// each exploit step before selecting the best one.
	NumCandidates int

	// AcquisitionFunc determines the strategy for selecting the next point
	// to evaluate. See AcquisitionFunc for built-in options.
	AcquisitionFunc AcquisitionFunc

	// AcqParams holds the parameters for the acquisition function.
	AcqParams AcquisitionParams

	// LengthScale is the RBF kernel width over the unit hypercube.
	LengthScale float64

	// Noise is the observation noise variance, relative to standardised
	// observations.
	Noise float64
}

// DefaultConfig returns a default configuration.
func DefaultConfig() BayesConfig {
	return BayesConfig{
		NExploreSteps:   10,
		Seed:            DefaultSeed,
		NumCandidates:   100,
		AcquisitionFunc: UCB,
		AcqParams: AcquisitionParams{
			BestSoFar: math.MaxFloat64,
			Beta:      2.0,
			Xi:        0.01,
		},
		LengthScale: 0.25,
		Noise:       1e-6,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c BayesConfig) withDefaults() BayesConfig {
	d := DefaultConfig()

	if c.NExploreSteps <= 0 {
		c.NExploreSteps = d.NExploreSteps
	}

	if c.NumCandidates <= 0 {
		c.NumCandidates = d.NumCandidates
	}

	if c.AcquisitionFunc == nil {
		c.AcquisitionFunc = d.AcquisitionFunc
	}

	if c.AcqParams == (AcquisitionParams{}) {
		c.AcqParams = d.AcqParams
	}

	if c.LengthScale <= 0 {
		c.LengthScale = d.LengthScale
	}

	if c.Noise <= 0 {
		c.Noise = d.Noise
	}

	return c
}
