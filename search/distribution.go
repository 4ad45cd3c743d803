package search

import (
	"fmt"
	"math"
	"reflect"

	"github.com/thalesfsp/labbook/internal/value"
)

//////
// Const, vars, types.
//////

// Distribution describes the domain of one search dimension and how it maps
// onto the unit range [0, 1].
//
// For every u in [0, 1), ToUnit(FromUnit(u)) returns u for continuous
// distributions and a value within the same bucket for discrete ones.
type Distribution interface {
	// FromUnit maps u in [0, 1] to a value of the domain.
	FromUnit(u float64) any

	// ToUnit maps a value of the domain back to the unit range. It fails
	// with ErrOutOfDomain for values the distribution cannot represent.
	ToUnit(v any) (float64, error)

	// Contains reports whether v belongs to the domain.
	Contains(v any) bool

	// Sample draws one value using rng, which must return numbers in [0, 1).
	Sample(rng func() float64) any

	// Validate reports whether the distribution is well formed.
	Validate() error
}

// Uniform is the continuous range [Low, High].
type Uniform struct {
	Low  float64
	High float64
}

// LogUniform is the continuous range [Low, High] sampled uniformly in log
// space. Low must be strictly positive.
type LogUniform struct {
	Low  float64
	High float64
}

// Categorical is a finite, ordered set of options.
type Categorical struct {
	Options []any
}

// IntUniform is the integer range [Low, High], both ends included.
type IntUniform struct {
	Low  int64
	High int64
}

//////
// Uniform.
//////

// NewUniform returns the range [low, high].
func NewUniform(low, high float64) (Uniform, error) {
	u := Uniform{Low: low, High: high}

	return u, u.Validate()
}

// FromUnit implements Distribution.
func (d Uniform) FromUnit(u float64) any {
	return clamp(d.Low+(d.High-d.Low)*u, d.Low, d.High)
}

// ToUnit implements Distribution.
func (d Uniform) ToUnit(v any) (float64, error) {
	f, ok := value.ToFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: %v is not a number", ErrOutOfDomain, v)
	}

	if d.High == d.Low {
		return 0, nil
	}

	return (f - d.Low) / (d.High - d.Low), nil
}

// Contains implements Distribution. Both ends are included.
func (d Uniform) Contains(v any) bool {
	f, ok := value.ToFloat(v)

	return ok && d.Low <= f && f <= d.High
}

// Sample implements Distribution.
func (d Uniform) Sample(rng func() float64) any { return d.FromUnit(rng()) }

// Validate implements Distribution.
func (d Uniform) Validate() error {
	if math.IsNaN(d.Low) || math.IsNaN(d.High) || d.Low > d.High {
		return fmt.Errorf("%w: %s", ErrInvalidDimension, d)
	}

	return nil
}

func (d Uniform) String() string { return fmt.Sprintf("Uniform(%g, %g)", d.Low, d.High) }

//////
// LogUniform.
//////

// NewLogUniform returns the log-uniform range [low, high]. It rejects a
// non-positive low bound.
func NewLogUniform(low, high float64) (LogUniform, error) {
	l := LogUniform{Low: low, High: high}

	return l, l.Validate()
}

func (d LogUniform) logSpace() Uniform {
	return Uniform{Low: math.Log(d.Low), High: math.Log(d.High)}
}

// FromUnit implements Distribution.
func (d LogUniform) FromUnit(u float64) any {
	return clamp(math.Exp(d.logSpace().FromUnit(u).(float64)), d.Low, d.High)
}

// ToUnit implements Distribution.
func (d LogUniform) ToUnit(v any) (float64, error) {
	f, ok := value.ToFloat(v)
	if !ok || f <= 0 {
		return 0, fmt.Errorf("%w: %v is not a positive number", ErrOutOfDomain, v)
	}

	return d.logSpace().ToUnit(math.Log(f))
}

// Contains implements Distribution.
func (d LogUniform) Contains(v any) bool {
	f, ok := value.ToFloat(v)

	return ok && d.Low <= f && f <= d.High
}

// Sample implements Distribution.
func (d LogUniform) Sample(rng func() float64) any { return d.FromUnit(rng()) }

// Validate implements Distribution.
func (d LogUniform) Validate() error {
	if !(d.Low > 0) || math.IsNaN(d.High) || d.Low > d.High {
		return fmt.Errorf("%w: %s needs 0 < low <= high", ErrInvalidDimension, d)
	}

	return nil
}

func (d LogUniform) String() string { return fmt.Sprintf("LogUniform(%g, %g)", d.Low, d.High) }

//////
// Categorical.
//////

// NewCategorical returns the ordered set of options.
func NewCategorical(options ...any) Categorical {
	return Categorical{Options: options}
}

// Index returns the position of v among the options, comparing numbers by
// value so that an int option matches the int64 read back from storage.
func (d Categorical) Index(v any) int {
	for i, option := range d.Options {
		if value.Equal(option, v) {
			return i
		}
	}

	return -1
}

// FromUnit implements Distribution. The unit range is cut into len(Options)
// equal buckets; u = 1 falls in the last one.
func (d Categorical) FromUnit(u float64) any {
	n := len(d.Options)
	if n == 0 {
		return nil
	}

	return d.Options[clamp(int(math.Floor(u*float64(n))), 0, n-1)]
}

// ToUnit implements Distribution. An option maps to the centre of its
// bucket.
func (d Categorical) ToUnit(v any) (float64, error) {
	i := d.Index(v)
	if i < 0 {
		return 0, fmt.Errorf("%w: %v is not one of %v", ErrOutOfDomain, v, d.Options)
	}

	return (float64(i) + 0.5) / float64(len(d.Options)), nil
}

// Contains implements Distribution.
func (d Categorical) Contains(v any) bool { return d.Index(v) >= 0 }

// Sample implements Distribution.
func (d Categorical) Sample(rng func() float64) any { return d.FromUnit(rng()) }

// Validate implements Distribution.
func (d Categorical) Validate() error {
	if len(d.Options) == 0 {
		return fmt.Errorf("%w: categorical dimension without options", ErrInvalidDimension)
	}

	for i, option := range d.Options {
		if j := d.Index(option); j != i {
			return fmt.Errorf("%w: option %v repeats option %d", ErrInvalidDimension, option, j)
		}
	}

	return nil
}

func (d Categorical) String() string { return fmt.Sprintf("Categorical(%v)", d.Options) }

//////
// IntUniform.
//////

// NewIntUniform returns the integer range [low, high].
func NewIntUniform(low, high int64) (IntUniform, error) {
	d := IntUniform{Low: low, High: high}

	return d, d.Validate()
}

func (d IntUniform) count() float64 { return float64(d.High-d.Low) + 1 }

// FromUnit implements Distribution. Every integer owns an equal share of the
// unit range.
func (d IntUniform) FromUnit(u float64) any {
	offset := int64(math.Floor(u * d.count()))

	return clamp(d.Low+offset, d.Low, d.High)
}

// ToUnit implements Distribution.
func (d IntUniform) ToUnit(v any) (float64, error) {
	if !d.Contains(v) {
		return 0, fmt.Errorf("%w: %v is not an integer in [%d, %d]", ErrOutOfDomain, v, d.Low, d.High)
	}

	f, _ := value.ToFloat(v)

	return (f - float64(d.Low) + 0.5) / d.count(), nil
}

// Contains implements Distribution. Floats with an integral value count.
func (d IntUniform) Contains(v any) bool {
	f, ok := value.ToFloat(v)
	if !ok || f != math.Trunc(f) {
		return false
	}

	return float64(d.Low) <= f && f <= float64(d.High)
}

// Sample implements Distribution.
func (d IntUniform) Sample(rng func() float64) any { return d.FromUnit(rng()) }

// Validate implements Distribution.
func (d IntUniform) Validate() error {
	if d.Low > d.High {
		return fmt.Errorf("%w: %s", ErrInvalidDimension, d)
	}

	return nil
}

func (d IntUniform) String() string { return fmt.Sprintf("IntUniform(%d, %d)", d.Low, d.High) }

//////
// Shorthand.
//////

// FromShorthand turns a dimension given in shorthand form into a
// Distribution:
//   - a Distribution is returned as is
//   - a slice or array becomes a Categorical of its elements
//   - a string becomes a Categorical of its characters
//
// Anything else fails with ErrInvalidDimension.
func FromShorthand(v any) (Distribution, error) {
	switch d := v.(type) {
	case Distribution:
		if err := d.Validate(); err != nil {
			return nil, err
		}

		return d, nil
	case string:
		options := make([]any, 0, len(d))
		for _, r := range d {
			options = append(options, string(r))
		}

		return checked(Categorical{Options: options})
	case []any:
		return checked(Categorical{Options: append([]any(nil), d...)})
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil", ErrInvalidDimension)
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		options := make([]any, rv.Len())
		for i := range options {
			options[i] = rv.Index(i).Interface()
		}

		return checked(Categorical{Options: options})
	default:
		return nil, fmt.Errorf("%w: %v (%T)", ErrInvalidDimension, v, v)
	}
}

func checked(d Distribution) (Distribution, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}
