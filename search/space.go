package search

import (
	"fmt"
	"strings"
)

//////
// Const, vars, types.
//////

// Point maps dimension names to values of their domain.
type Point map[string]any

// UnitPoint maps dimension names to values in the unit range.
type UnitPoint map[string]float64

// Dimension is a named search dimension. Distribution may be given in any
// form FromShorthand accepts.
type Dimension struct {
	Name         string
	Distribution any
}

// Space is an ordered collection of named dimensions. The order in which
// dimensions are added fixes the layout of vectors and grid indices.
type Space struct {
	keys []string
	dims map[string]Distribution
}

//////
// Factory.
//////

// Dim is shorthand for a Dimension literal.
func Dim(name string, distribution any) Dimension {
	return Dimension{Name: name, Distribution: distribution}
}

// NewSpace builds a space from dims, in order.
func NewSpace(dims ...Dimension) (*Space, error) {
	s := &Space{dims: make(map[string]Distribution, len(dims))}

	for _, d := range dims {
		if err := s.Add(d.Name, d.Distribution); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// MustSpace is like NewSpace but panics on a malformed dimension.
func MustSpace(dims ...Dimension) *Space {
	s, err := NewSpace(dims...)
	if err != nil {
		panic(err)
	}

	return s
}

//////
// Methods.
//////

// Add appends a dimension. Names must be unique.
func (s *Space) Add(name string, distribution any) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDimension)
	}

	if s.Has(name) {
		return fmt.Errorf("%w: duplicate dimension %q", ErrInvalidDimension, name)
	}

	d, err := FromShorthand(distribution)
	if err != nil {
		return fmt.Errorf("dimension %q: %w", name, err)
	}

	if s.dims == nil {
		s.dims = map[string]Distribution{}
	}

	s.keys = append(s.keys, name)
	s.dims[name] = d

	return nil
}

// Keys returns the dimension names in order.
func (s *Space) Keys() []string { return append([]string(nil), s.keys...) }

// Len returns the number of dimensions.
func (s *Space) Len() int { return len(s.keys) }

// Has reports whether the space has a dimension called name.
func (s *Space) Has(name string) bool {
	_, ok := s.dims[name]

	return ok
}

// Get returns the distribution of the named dimension.
func (s *Space) Get(name string) (Distribution, bool) {
	d, ok := s.dims[name]

	return d, ok
}

// IsGrid reports whether every dimension is categorical.
func (s *Space) IsGrid() bool {
	for _, k := range s.keys {
		if _, ok := s.dims[k].(Categorical); !ok {
			return false
		}
	}

	return true
}

// Sample draws one value per dimension, in order, from a single stream.
func (s *Space) Sample(rng func() float64) Point {
	p := make(Point, len(s.keys))

	for _, k := range s.keys {
		p[k] = s.dims[k].Sample(rng)
	}

	return p
}

// Contains reports whether every value of point lies in its dimension.
// Dimensions missing from point are not checked. A key the space does not
// know is an error (ErrUnknownDimension) rather than a false result.
func (s *Space) Contains(point Point) (bool, error) {
	for k, v := range point {
		d, ok := s.dims[k]
		if !ok {
			return false, fmt.Errorf("%w: %q not in %s", ErrUnknownDimension, k, s)
		}

		if !d.Contains(v) {
			return false, nil
		}
	}

	return true, nil
}

// FromUnit maps a unit point to the domain. Every dimension must be present.
func (s *Space) FromUnit(u UnitPoint) (Point, error) {
	if err := s.checkKeys(len(u), func(k string) bool { _, ok := u[k]; return ok }); err != nil {
		return nil, err
	}

	p := make(Point, len(s.keys))

	for _, k := range s.keys {
		p[k] = s.dims[k].FromUnit(u[k])
	}

	return p, nil
}

// ToUnit maps a point to the unit hypercube. Every dimension must be present.
func (s *Space) ToUnit(point Point) (UnitPoint, error) {
	if err := s.checkKeys(len(point), func(k string) bool { _, ok := point[k]; return ok }); err != nil {
		return nil, err
	}

	u := make(UnitPoint, len(s.keys))

	for _, k := range s.keys {
		f, err := s.dims[k].ToUnit(point[k])
		if err != nil {
			return nil, fmt.Errorf("dimension %q: %w", k, err)
		}

		u[k] = f
	}

	return u, nil
}

// ToVector is ToUnit laid out in key order.
func (s *Space) ToVector(point Point) ([]float64, error) {
	u, err := s.ToUnit(point)
	if err != nil {
		return nil, err
	}

	x := make([]float64, len(s.keys))
	for i, k := range s.keys {
		x[i] = u[k]
	}

	return x, nil
}

// FromVector is the inverse of ToVector.
func (s *Space) FromVector(x []float64) (Point, error) {
	if len(x) != len(s.keys) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(x), len(s.keys))
	}

	p := make(Point, len(s.keys))
	for i, k := range s.keys {
		p[k] = s.dims[k].FromUnit(x[i])
	}

	return p, nil
}

// String lists the dimensions in order.
func (s *Space) String() string {
	parts := make([]string, len(s.keys))
	for i, k := range s.keys {
		parts[i] = fmt.Sprintf("%s: %v", k, s.dims[k])
	}

	return "Space{" + strings.Join(parts, ", ") + "}"
}

// checkKeys verifies that a mapping with n keys, reporting membership
// through has, holds exactly the space's dimensions.
func (s *Space) checkKeys(n int, has func(string) bool) error {
	for _, k := range s.keys {
		if !has(k) {
			return fmt.Errorf("%w: %q", ErrMissingDimension, k)
		}
	}

	if n != len(s.keys) {
		return fmt.Errorf("%w: point has %d keys, space has %d dimensions", ErrUnknownDimension, n, len(s.keys))
	}

	return nil
}
