package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unitValues = []float64{0, 1e-6, 0.1, 0.25, 0.333, 0.5, 0.75, 0.9, 0.999999}

func TestContinuousRoundTrip(t *testing.T) {
	logUniform, err := NewLogUniform(1e-4, 10)
	require.NoError(t, err)

	for _, d := range []Distribution{Uniform{Low: -3, High: 7}, logUniform} {
		for _, u := range unitValues {
			back, err := d.ToUnit(d.FromUnit(u))
			require.NoError(t, err)
			assert.InDelta(t, u, back, 1e-9, "%v at %v", d, u)
		}
	}
}

func TestDiscreteRoundTripStaysInBucket(t *testing.T) {
	categorical := NewCategorical("a", "b", "c")
	integers := IntUniform{Low: -2, High: 5}

	for _, d := range []Distribution{categorical, integers} {
		var n float64

		switch d := d.(type) {
		case Categorical:
			n = float64(len(d.Options))
		case IntUniform:
			n = float64(d.High - d.Low + 1)
		}

		for _, u := range unitValues {
			back, err := d.ToUnit(d.FromUnit(u))
			require.NoError(t, err)
			assert.Equal(t, math.Floor(u*n), math.Floor(back*n), "%v at %v", d, u)
		}
	}
}

func TestUniformContainsBounds(t *testing.T) {
	d := Uniform{Low: 0.5, High: 2}

	assert.True(t, d.Contains(0.5))
	assert.True(t, d.Contains(2.0))
	assert.True(t, d.Contains(1))
	assert.False(t, d.Contains(0.5-1e-12))
	assert.False(t, d.Contains(2+1e-12))
	assert.False(t, d.Contains("1"))
}

func TestUniformEdges(t *testing.T) {
	d := Uniform{Low: 1, High: 3}

	assert.Equal(t, 1.0, d.FromUnit(0))
	assert.Equal(t, 3.0, d.FromUnit(1))

	_, err := d.ToUnit("x")
	assert.ErrorIs(t, err, ErrOutOfDomain)

	_, err = NewUniform(2, 1)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestLogUniform(t *testing.T) {
	_, err := NewLogUniform(0, 1)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = NewLogUniform(-1, 1)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	d, err := NewLogUniform(1, 100)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, d.FromUnit(0.5), 1e-9)
	assert.True(t, d.Contains(d.FromUnit(1)))
	assert.True(t, d.Contains(d.FromUnit(0)))

	_, err = d.ToUnit(-5)
	assert.ErrorIs(t, err, ErrOutOfDomain)
}

func TestCategorical(t *testing.T) {
	d := NewCategorical(1, 2, 3, 4)

	assert.Equal(t, 1, d.FromUnit(0))
	assert.Equal(t, 2, d.FromUnit(0.25))
	assert.Equal(t, 4, d.FromUnit(0.99))
	assert.Equal(t, 4, d.FromUnit(1), "u = 1 must not index out of bounds")

	u, err := d.ToUnit(3)
	require.NoError(t, err)
	assert.InDelta(t, 0.625, u, 1e-12)

	// Values decoded from storage are int64 or float64.
	assert.True(t, d.Contains(int64(3)))
	assert.True(t, d.Contains(3.0))
	assert.False(t, d.Contains(5))

	_, err = d.ToUnit("3")
	assert.ErrorIs(t, err, ErrOutOfDomain)
}

func TestIntUniform(t *testing.T) {
	d, err := NewIntUniform(1, 3)
	require.NoError(t, err)

	assert.Equal(t, int64(1), d.FromUnit(0))
	assert.Equal(t, int64(2), d.FromUnit(0.5))
	assert.Equal(t, int64(3), d.FromUnit(1))

	assert.True(t, d.Contains(2))
	assert.True(t, d.Contains(2.0))
	assert.False(t, d.Contains(2.5))
	assert.False(t, d.Contains(4))

	_, err = NewIntUniform(3, 1)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestFromShorthand(t *testing.T) {
	d, err := FromShorthand([]int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, Categorical{Options: []any{1, 2}}, d)

	d, err = FromShorthand("ab")
	require.NoError(t, err)
	assert.Equal(t, Categorical{Options: []any{"a", "b"}}, d)

	d, err = FromShorthand([2]string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, Categorical{Options: []any{"x", "y"}}, d)

	u := Uniform{Low: 0, High: 1}
	d, err = FromShorthand(u)
	require.NoError(t, err)
	assert.Equal(t, u, d)

	for _, bad := range []any{
		3.5,
		nil,
		map[string]int{"a": 1},
		[]int{},
		[]int{1, 2, 1},
		"aba",
		LogUniform{Low: 0, High: 1},
	} {
		_, err = FromShorthand(bad)
		assert.ErrorIs(t, err, ErrInvalidDimension, "%v", bad)
	}
}

func TestSampleUsesUnitDraw(t *testing.T) {
	d := Uniform{Low: 10, High: 20}

	assert.Equal(t, 15.0, d.Sample(func() float64 { return 0.5 }))
}
