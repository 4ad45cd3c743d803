package labbook

import "errors"

// Configuration errors. They are returned before the experiment function
// runs.
var (
	// ErrMissingCode is returned by New when no code fingerprint is given.
	ErrMissingCode = errors.New("an experiment needs a code fingerprint, see WithCode")

	// ErrSignature is returned when a config does not fit the experiment's
	// Signature.
	ErrSignature = errors.New("config does not match the experiment signature")

	// ErrOverride is returned by Automate when an override names a dimension
	// of the search space.
	ErrOverride = errors.New("cannot override a dimension of the search space")

	// ErrUsedSuggester is returned by Automate for a suggester that already
	// has steps.
	ErrUsedSuggester = errors.New("automation needs a suggester without previous steps")

	// ErrSteps is returned by Automate when the number of steps is neither
	// given nor known from the suggester.
	ErrSteps = errors.New("number of steps is required for suggesters of unknown size")
)

// ErrNotObservable is returned when a result cannot be turned into the
// scalar a suggester minimises.
var ErrNotObservable = errors.New("result is not a number")
