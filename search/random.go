package search

import "math/rand"

// RandomSuggester draws every suggestion independently from the space.
type RandomSuggester struct {
	base

	rng *rand.Rand
}

// NewRandomSuggester returns a random suggester over space. The same seed
// (DefaultSeed unless WithSeed is given) yields the same sequence.
func NewRandomSuggester(space *Space, opts ...Option) *RandomSuggester {
	o := collect(opts)

	seed := DefaultSeed
	if o.seed != nil {
		seed = *o.seed
	}

	return &RandomSuggester{
		base: newBase(space, o, ModeRandom),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Suggest implements Suggester.
func (s *RandomSuggester) Suggest() (Point, error) {
	return s.space.Sample(s.rng.Float64), nil
}

// SuggestMany implements Suggester.
func (s *RandomSuggester) SuggestMany(n int) ([]Point, error) {
	return suggestMany(n, s.Suggest)
}

// Tell implements Suggester.
func (s *RandomSuggester) Tell(point Point, observation float64) {
	s.record(point, observation)
}
