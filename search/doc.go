// Package search suggests points of a hyper-parameter space to evaluate.
//
// # Spaces
//
// A Space is an ordered set of named dimensions, each described by a
// Distribution mapping its domain onto the unit range:
//
//   - Uniform: continuous range [Low, High]
//   - LogUniform: continuous range sampled uniformly in log space
//   - IntUniform: integer range, both ends included
//   - Categorical: finite ordered options
//
// Slices and strings are accepted as shorthand for Categorical:
//
//	space := search.MustSpace(
//	    search.Dim("lr", search.LogUniform{Low: 1e-4, High: 1e-1}),
//	    search.Dim("optimizer", []string{"sgd", "adam"}),
//	)
//
// # Suggesters
//
// A Suggester proposes points and learns from the observations it is told
// about. Lower observations are better.
//
//   - RandomSuggester: independent draws from a seeded source
//   - GridSuggester: every point of an all-categorical space once, the last
//     dimension varying fastest, then ErrExhausted
//   - BayesSuggester: random exploration followed by a Gaussian Process
//     model scored with an acquisition function (UCB, ProbabilityOfImprovement,
//     ExpectedImprovement or ThompsonSampling)
//
// Points outside the space are logged as warnings and ignored, so a long
// sweep is never aborted by one bad observation.
//
// # Thread Safety
//
// Suggesters are not safe for concurrent use. GaussianProcessOptimizer is.
package search
