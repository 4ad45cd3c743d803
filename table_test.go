package labbook

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/labbook/store"
)

func TestToTable(t *testing.T) {
	ctx := context.Background()
	e := newSquare(t)

	for _, x := range []int{2, 3} {
		_, err := e.Call(ctx, map[string]any{"x": x})
		require.NoError(t, err)
	}

	table, err := e.ToTable(ctx, TableOptions{IncludeID: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "result", "x"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, int64(2), table.Rows[0][2])
	assert.Equal(t, int64(4), table.Rows[0][1])
	assert.Equal(t, int64(9), table.Rows[1][1])

	table, err = e.ToTable(ctx, TableOptions{IncludeMetadata: true})
	require.NoError(t, err)
	assert.Contains(t, table.Columns, "metadata.code")
	assert.Contains(t, table.Columns, "metadata.timing.total.duration")
	assert.NotContains(t, table.Columns, "id")

	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "metadata.code")
}

func TestNewTableMergesMapResults(t *testing.T) {
	observations := []store.Observation{
		store.NewObservation("a", map[string]any{"lr": 0.1}, map[string]any{"loss": 1.5}, nil),
		store.NewObservation("b", map[string]any{"lr": 0.2, "opt": map[string]any{"name": "adam"}}, map[string]any{"loss": 0.5}, nil),
	}

	table := NewTable(observations, TableOptions{Separator: "/"}, nil)

	assert.Equal(t, []string{"loss", "lr", "opt/name"}, table.Columns)
	assert.Equal(t, []map[string]any{
		{"loss": 1.5, "lr": 0.1},
		{"loss": 0.5, "lr": 0.2, "opt/name": "adam"},
	}, table.Records())
}

func TestNewTableKeepsCollidingKeysNested(t *testing.T) {
	logger, buf := bufferedLogger()

	observations := []store.Observation{
		store.NewObservation("a", map[string]any{"loss": "mse"}, map[string]any{"loss": 1.5}, nil),
	}

	table := NewTable(observations, TableOptions{}, logger)

	assert.Equal(t, []string{"config.loss", "result.loss"}, table.Columns)
	assert.Equal(t, [][]any{{"mse", 1.5}}, table.Rows)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "key=loss")
}

func TestNewTableEmpty(t *testing.T) {
	table := NewTable(nil, TableOptions{IncludeID: true}, nil)

	assert.Equal(t, []string{"id"}, table.Columns)
	assert.Empty(t, table.Rows)
	assert.Empty(t, table.Records())
}
