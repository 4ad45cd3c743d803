package search

import (
	"math"
	"math/rand"
)

//////
// Const, vars, types.
//////

// AcquisitionFunc scores a candidate from the model's prediction at that
// point. The optimiser minimises the objective, so lower scores indicate
// more promising candidates.
//
// Parameters:
// - mean: The predicted objective at the candidate (lower is better)
// - variance: The predicted variance (uncertainty) at the candidate
// - params: Additional parameters needed by specific acquisition functions
//
// Returns:
// - float64: Acquisition score (lower values are evaluated first)
//
// Built-in acquisition functions:
// - UCB: confidence bound
// - ProbabilityOfImprovement: probability of beating the best observation
// - ExpectedImprovement: expected amount by which the best is beaten
// - ThompsonSampling: one draw from the posterior
//
// Usage example:
//
//	config := search.DefaultConfig()
//	config.AcquisitionFunc = search.ExpectedImprovement
//	config.AcqParams.Xi = 0.05
//
//	// Custom acquisition function.
//	config.AcquisitionFunc = func(mean, variance float64, params search.AcquisitionParams) float64 {
//	    return mean - 3*math.Sqrt(variance)
//	}
type AcquisitionFunc func(mean, variance float64, params AcquisitionParams) float64

// AcquisitionParams holds the parameters the acquisition functions use to
// trade exploring uncertain regions against exploiting known good ones.
type AcquisitionParams struct {
	// Beta controls the exploration-exploitation trade-off of UCB.
	// - Higher values (e.g., 3.0 or 5.0) favour uncertain regions
	// - Lower values (e.g., 0.1 or 0.5) favour regions predicted to be good
	Beta float64

	// Xi is the minimum improvement over BestSoFar that PI and EI care
	// about. Typical values range from 0.01 to 0.1.
	Xi float64

	// BestSoFar is the lowest observation recorded so far. The optimiser
	// updates it before every Ask.
	BestSoFar float64

	// RandomState is the random number generator used by Thompson Sampling.
	// The optimiser seeds it from its configuration when left nil.
	RandomState *rand.Rand
}

//////
// Exported functionalities.
//////

// UCB implements the confidence bound acquisition function for
// minimisation: the predicted mean minus Beta standard deviations.
//
// Parameters:
// - mean: Predicted mean at the candidate
// - variance: Predicted variance at the candidate
// - params: Uses Beta
//
// Returns:
// - float64: Optimistic estimate of the objective (lower is better)
//
// Usage example:
//
//	score := UCB(0.3, 0.04, AcquisitionParams{Beta: 2.0}) // 0.3 - 2*0.2 = -0.1
func UCB(mean, variance float64, params AcquisitionParams) float64 {
	return mean - params.Beta*math.Sqrt(variance)
}

// ProbabilityOfImprovement returns the negated probability that the
// candidate improves on BestSoFar by at least Xi.
//
// Parameters:
// - mean: Predicted mean at the candidate
// - variance: Predicted variance at the candidate
// - params: Uses BestSoFar and Xi
//
// Returns:
// - float64: -P(f(x) < BestSoFar - Xi), in [-1, 0]
//
// Important notes:
// - A candidate without uncertainty scores -1 when its mean improves on the
// target and 0 otherwise.
func ProbabilityOfImprovement(mean, variance float64, params AcquisitionParams) float64 {
	improvement := params.BestSoFar - params.Xi - mean

	sigma := math.Sqrt(variance)
	if sigma <= 0 {
		if improvement > 0 {
			return -1
		}

		return 0
	}

	return -normalCDF(improvement / sigma)
}

// ExpectedImprovement returns the negated expected amount by which the
// candidate improves on BestSoFar - Xi.
//
// Parameters:
// - mean: Predicted mean at the candidate
// - variance: Predicted variance at the candidate
// - params: Uses BestSoFar and Xi
//
// Returns:
// - float64: -E[max(BestSoFar - Xi - f(x), 0)], never positive
func ExpectedImprovement(mean, variance float64, params AcquisitionParams) float64 {
	improvement := params.BestSoFar - params.Xi - mean

	sigma := math.Sqrt(variance)
	if sigma <= 0 {
		return -math.Max(improvement, 0)
	}

	z := improvement / sigma

	return -(improvement*normalCDF(z) + sigma*normalPDF(z))
}

// ThompsonSampling draws one sample from the posterior at the candidate.
//
// Parameters:
// - mean: Predicted mean at the candidate
// - variance: Predicted variance at the candidate
// - params: Uses RandomState, which must not be nil
//
// Returns:
// - float64: A plausible objective value for the candidate
func ThompsonSampling(mean, variance float64, params AcquisitionParams) float64 {
	return mean + math.Sqrt(variance)*params.RandomState.NormFloat64()
}
