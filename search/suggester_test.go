package search

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferedLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer

	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestRandomSuggesterIsReproducible(t *testing.T) {
	space := MustSpace(
		Dim("x", Uniform{Low: -1, High: 1}),
		Dim("n", IntUniform{Low: 1, High: 100}),
		Dim("act", []string{"relu", "tanh"}),
	)

	a, err := NewRandomSuggester(space).SuggestMany(20)
	require.NoError(t, err)

	b, err := NewRandomSuggester(space).SuggestMany(20)
	require.NoError(t, err)

	assert.Equal(t, a, b)

	c, err := NewRandomSuggester(space, WithSeed(7)).SuggestMany(20)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	for _, p := range a {
		ok, err := space.Contains(p)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestTellValidatesPoints(t *testing.T) {
	logger, logs := bufferedLogger()
	space := MustSpace(Dim("x", Uniform{Low: 0, High: 1}))

	s := NewRandomSuggester(space, WithLogger(logger))
	assert.Equal(t, ModeRandom, s.Mode())

	s.Tell(Point{"x": 2.0}, 1)
	s.Tell(Point{"y": 0.5}, 1)
	s.Tell(Point{}, 1)
	assert.Empty(t, s.PreviousSteps())
	assert.Contains(t, logs.String(), "outside of the search space")

	s.Tell(Point{"x": 0.5}, 3)
	s.Tell(Point{"x": 0.5}, 4)
	assert.Contains(t, logs.String(), "already been evaluated")

	assert.Equal(t, []Step{
		{Point: Point{"x": 0.5}, Observation: 3},
		{Point: Point{"x": 0.5}, Observation: 4},
	}, s.PreviousSteps())
	assert.Equal(t, []Point{{"x": 0.5}, {"x": 0.5}}, s.PreviousPoints())
	assert.Equal(t, []UnitPoint{{"x": 0.5}, {"x": 0.5}}, s.PreviousUnitPoints())
}

func TestIsValidPoint(t *testing.T) {
	space := MustSpace(Dim("x", Uniform{Low: 0, High: 1}), Dim("c", []int{1, 2}))
	s := NewRandomSuggester(space)

	assert.True(t, s.IsValidPoint(Point{"x": 0.3, "c": int64(2)}))
	assert.False(t, s.IsValidPoint(Point{"x": 0.3}), "points must be complete")
	assert.False(t, s.IsValidPoint(Point{"x": 0.3, "c": 3}))
	assert.False(t, s.IsValidPoint(Point{"x": 0.3, "d": 1}))
}

func TestRecordedPointsAreCopied(t *testing.T) {
	space := MustSpace(Dim("x", Uniform{Low: 0, High: 1}))
	s := NewRandomSuggester(space)

	p := Point{"x": 0.5}
	s.Tell(p, 1)
	p["x"] = 0.9

	assert.Equal(t, 0.5, s.PreviousPoints()[0]["x"])
}
