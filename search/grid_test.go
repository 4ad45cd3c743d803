package search

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridEnumeratesLastDimensionFastest(t *testing.T) {
	space := MustSpace(Dim("a", []int{1, 2}), Dim("b", []int{3, 4}))

	g, err := NewGridSuggester(space)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Size())

	expected := []Point{
		{"a": 1, "b": 3},
		{"a": 1, "b": 4},
		{"a": 2, "b": 3},
		{"a": 2, "b": 4},
	}

	for i, want := range expected {
		p, err := g.Suggest()
		require.NoError(t, err)
		assert.Equal(t, want, p)
		assert.Equal(t, ModeGrid, g.Mode())

		idx, err := g.Index(p)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), idx)

		g.Tell(p, float64(i))
	}

	_, err = g.Suggest()
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 0, g.Remaining())
	assert.Len(t, g.PreviousSteps(), 4)
}

func TestGridCoversProductOnce(t *testing.T) {
	space := MustSpace(
		Dim("x", []string{"p", "q", "r"}),
		Dim("y", []int{10, 20}),
		Dim("z", "uv"),
	)

	g, err := NewGridSuggester(space)
	require.NoError(t, err)
	require.Equal(t, 12, g.Size())

	var seen []Point

	for {
		p, err := g.Suggest()
		if err != nil {
			require.ErrorIs(t, err, ErrExhausted)

			break
		}

		for _, other := range seen {
			require.False(t, samePoint(p, other), "%v suggested twice", p)
		}

		seen = append(seen, p)
		g.Tell(p, 0)
	}

	assert.Len(t, seen, 12)
}

func TestGridTellIsIdempotent(t *testing.T) {
	var logs bytes.Buffer

	space := MustSpace(Dim("a", []int{1, 2}), Dim("b", []int{3, 4}))

	g, err := NewGridSuggester(space, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)

	g.Tell(Point{"a": 1, "b": 3}, 1)
	g.Tell(Point{"a": 1, "b": 3}, 1)

	assert.Equal(t, 3, g.Remaining())
	assert.Contains(t, logs.String(), "already been evaluated")

	p, err := g.Suggest()
	require.NoError(t, err)
	assert.Equal(t, Point{"a": 1, "b": 4}, p)
}

func TestGridPriorSteps(t *testing.T) {
	var logs bytes.Buffer

	space := MustSpace(Dim("a", []int{1, 2}), Dim("b", []int{3, 4}))

	g, err := NewGridSuggester(space,
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithPriorSteps(
			// As read back from storage.
			Step{Point: Point{"a": int64(1), "b": int64(3)}, Observation: 2},
			Step{Point: Point{"a": int64(7), "b": int64(3)}, Observation: 1},
		),
	)
	require.NoError(t, err)

	assert.Len(t, g.PreviousSteps(), 1)
	assert.Contains(t, logs.String(), "dropping prior step")
	assert.Equal(t, 3, g.Remaining())

	p, err := g.Suggest()
	require.NoError(t, err)
	assert.Equal(t, Point{"a": 1, "b": 4}, p)
}

func TestGridSuggestMany(t *testing.T) {
	space := MustSpace(Dim("a", []int{1, 2}), Dim("b", []int{3, 4}))

	g, err := NewGridSuggester(space)
	require.NoError(t, err)

	g.Tell(Point{"a": 1, "b": 4}, 0)

	points, err := g.SuggestMany(2)
	require.NoError(t, err)
	assert.Equal(t, []Point{{"a": 1, "b": 3}, {"a": 2, "b": 3}}, points)

	points, err = g.SuggestMany(5)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Len(t, points, 3)
}

func TestGridRejectsContinuousSpaces(t *testing.T) {
	_, err := NewGridSuggester(MustSpace(Dim("a", []int{1}), Dim("b", Uniform{Low: 0, High: 1})))
	assert.ErrorIs(t, err, ErrNotGrid)

	_, err = NewGridSuggester(MustSpace())
	assert.ErrorIs(t, err, ErrNotGrid)
}

func TestGridTooLarge(t *testing.T) {
	options := make([]int, 1<<7)
	for i := range options {
		options[i] = i
	}

	dims := make([]Dimension, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		dims = append(dims, Dim(name, options))
	}

	_, err := NewGridSuggester(MustSpace(dims...))
	assert.ErrorIs(t, err, ErrGridTooLarge)
}

func TestGridRejectsRepeatedOptions(t *testing.T) {
	_, err := NewSpace(Dim("a", []any{1, 1, 2}))
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = NewSpace(Dim("a", []any{1, 1.0}))
	assert.ErrorIs(t, err, ErrInvalidDimension)

	grid, err := NewGridSuggester(MustSpace(Dim("a", []any{1, 2})))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		p, err := grid.Suggest()
		require.NoError(t, err)

		grid.Tell(p, 0)
	}

	_, err = grid.Suggest()
	assert.ErrorIs(t, err, ErrExhausted)
}
