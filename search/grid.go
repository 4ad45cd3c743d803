package search

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// GridSuggester walks the Cartesian product of an all-categorical space.
//
// Points are indexed with the last dimension (in key order) varying
// fastest, so {"a": [1, 2], "b": [3, 4]} is enumerated as
// (1, 3), (1, 4), (2, 3), (2, 4). Suggest always returns the lowest index not
// told yet.
type GridSuggester struct {
	base

	options [][]any
	size    uint64
	seen    *roaring.Bitmap
	cursor  uint64
}

// NewGridSuggester returns a grid suggester over space. It fails with
// ErrNotGrid when a dimension is not categorical and with ErrGridTooLarge
// when the grid has more than 2^32 points.
func NewGridSuggester(space *Space, opts ...Option) (*GridSuggester, error) {
	if space.Len() == 0 {
		return nil, fmt.Errorf("%w: space has no dimensions", ErrNotGrid)
	}

	if !space.IsGrid() {
		return nil, fmt.Errorf("%w: %s", ErrNotGrid, space)
	}

	s := &GridSuggester{
		options: make([][]any, space.Len()),
		size:    1,
		seen:    roaring.New(),
	}

	for i, k := range space.Keys() {
		d, _ := space.Get(k)
		s.options[i] = d.(Categorical).Options

		n := uint64(len(s.options[i]))
		if s.size > (math.MaxUint32+1)/n {
			return nil, fmt.Errorf("%w: more than 2^32 points", ErrGridTooLarge)
		}

		s.size *= n
	}

	s.base = newBase(space, collect(opts), ModeGrid)

	for _, step := range s.steps {
		s.mark(step.Point)
	}

	return s, nil
}

// Size implements Sized.
func (s *GridSuggester) Size() int { return int(s.size) }

// Remaining implements Sized.
func (s *GridSuggester) Remaining() int { return int(s.size - s.seen.GetCardinality()) }

// Suggest implements Suggester. It returns ErrExhausted once every point has
// been told.
func (s *GridSuggester) Suggest() (Point, error) {
	s.advance()

	if s.cursor >= s.size {
		return nil, ErrExhausted
	}

	return s.Point(s.cursor), nil
}

// SuggestMany implements Suggester. It returns the next n distinct points
// not told yet, or fewer with ErrExhausted when the grid runs out.
func (s *GridSuggester) SuggestMany(n int) ([]Point, error) {
	s.advance()

	points := make([]Point, 0, n)

	for idx := s.cursor; len(points) < n; idx++ {
		if idx >= s.size {
			return points, ErrExhausted
		}

		if s.seen.Contains(uint32(idx)) {
			continue
		}

		points = append(points, s.Point(idx))
	}

	return points, nil
}

// Tell implements Suggester. Telling the same point twice is harmless.
func (s *GridSuggester) Tell(point Point, observation float64) {
	if s.record(point, observation) {
		s.mark(point)
	}
}

// Index returns the grid index of point.
func (s *GridSuggester) Index(point Point) (uint64, error) {
	var idx uint64

	for i, k := range s.space.Keys() {
		v, ok := point[k]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingDimension, k)
		}

		d, _ := s.space.Get(k)

		j := d.(Categorical).Index(v)
		if j < 0 {
			return 0, fmt.Errorf("%w: %v is not an option of %q", ErrOutOfDomain, v, k)
		}

		idx = idx*uint64(len(s.options[i])) + uint64(j)
	}

	return idx, nil
}

// Point returns the point at grid index idx, which must be below Size.
func (s *GridSuggester) Point(idx uint64) Point {
	keys := s.space.Keys()
	p := make(Point, len(keys))

	for i := len(keys) - 1; i >= 0; i-- {
		n := uint64(len(s.options[i]))
		p[keys[i]] = s.options[i][idx%n]
		idx /= n
	}

	return p
}

func (s *GridSuggester) mark(point Point) {
	idx, err := s.Index(point)
	if err != nil {
		return
	}

	s.seen.Add(uint32(idx))
}

// advance moves the cursor past told indices. Indices are never unmarked,
// so the lowest unseen index only grows.
func (s *GridSuggester) advance() {
	for s.cursor < s.size && s.seen.Contains(uint32(s.cursor)) {
		s.cursor++
	}
}
