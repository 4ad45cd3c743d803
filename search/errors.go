package search

import "errors"

// Configuration errors. They are returned before anything is evaluated.
var (
	// ErrInvalidDimension is returned for a dimension that is neither a
	// Distribution nor a sequence of categorical options.
	ErrInvalidDimension = errors.New("invalid search dimension")

	// ErrNotGrid is returned when a grid suggester is given a space with a
	// non-categorical dimension.
	ErrNotGrid = errors.New("space is not a grid")

	// ErrGridTooLarge is returned when a grid has more points than can be
	// indexed.
	ErrGridTooLarge = errors.New("grid has too many points")
)

// Domain errors.
var (
	// ErrUnknownDimension is returned when a point names a dimension the
	// space does not have.
	ErrUnknownDimension = errors.New("unknown dimension")

	// ErrMissingDimension is returned when a point lacks one of the space's
	// dimensions and has to be fully transformed.
	ErrMissingDimension = errors.New("missing dimension")

	// ErrOutOfDomain is returned when a value cannot be mapped to the unit
	// range of its distribution.
	ErrOutOfDomain = errors.New("value outside of distribution")

	// ErrDimensionMismatch is returned when a vector does not have one entry
	// per dimension.
	ErrDimensionMismatch = errors.New("vector length does not match the number of dimensions")
)

// ErrExhausted is returned by suggesters that have nothing left to suggest.
var ErrExhausted = errors.New("search space exhausted")
