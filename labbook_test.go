package labbook

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/labbook/internal/value"
	"github.com/thalesfsp/labbook/store"
)

func bufferedLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer

	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func square(_ context.Context, config map[string]any) (any, error) {
	x, ok := value.ToFloat(config["x"])
	if !ok {
		return nil, errors.New("x is not a number")
	}

	return int64(x * x), nil
}

func newSquare(t *testing.T, opts ...Option) *Experiment {
	t.Helper()

	opts = append([]Option{
		WithRoot(filepath.Join(t.TempDir(), "square")),
		WithName("square"),
		WithCode("x*x"),
		WithSignature(Signature{Params: []string{"x"}}),
	}, opts...)

	e, err := New(square, opts...)
	require.NoError(t, err)

	return e
}

func TestCallRecordsObservations(t *testing.T) {
	ctx := context.Background()
	e := newSquare(t)

	result, err := e.Call(ctx, map[string]any{"x": 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), result)

	result, err = e.Call(ctx, map[string]any{"x": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(9), result)

	observations, err := e.Observations(ctx)
	require.NoError(t, err)
	require.Len(t, observations, 2)

	assert.Less(t, observations[0].ID, observations[1].ID)
	assert.Equal(t, map[string]any{"x": int64(2)}, observations[0].Config)
	assert.Equal(t, map[string]any{"x": int64(3)}, observations[1].Config)
	assert.Equal(t, int64(4), observations[0].Result)
	assert.Equal(t, int64(9), observations[1].Result)

	for _, obs := range observations {
		assert.Equal(t, "x*x", obs.Metadata[CodeKey])

		timings, ok := obs.Metadata[TimingKey].(map[string]any)
		require.True(t, ok)

		total, ok := timings[TotalBlock].(map[string]any)
		require.True(t, ok)

		for _, k := range []string{"start", "end", "duration"} {
			_, ok := value.ToFloat(total[k])
			assert.True(t, ok, k)
		}
	}

	loaded, err := e.Load(ctx, observations[1].ID)
	require.NoError(t, err)
	assert.Equal(t, observations[1], loaded)

	assert.Equal(t, "square", e.Name())
	assert.Equal(t, "x*x", e.Code())
	assert.Equal(t, filepath.Join(e.Root(), "version-1"), e.Backend().Home())
}

func TestCallWithEveryBackend(t *testing.T) {
	for _, name := range store.Names() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := newSquare(t, WithBackend(name))

			assert.Equal(t, name, e.Backend().Name())

			for _, x := range []int{1, 2, 3} {
				_, err := e.Call(ctx, map[string]any{"x": x}, WithMetadata(map[string]any{"note": "hello"}))
				require.NoError(t, err)
			}

			observations, err := e.Observations(ctx)
			require.NoError(t, err)
			require.Len(t, observations, 3)

			for i, obs := range observations {
				assert.EqualValues(t, i+1, obs.Config["x"])
				assert.EqualValues(t, (i+1)*(i+1), obs.Result)
				assert.Equal(t, "hello", obs.Metadata["note"])
			}
		})
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New(square, WithRoot(t.TempDir()))
	assert.ErrorIs(t, err, ErrMissingCode)

	_, err = New(square, WithRoot(t.TempDir()), WithCode("c"), WithBackend("parquet"))

	var unknown *store.ErrUnknownBackend
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "parquet", unknown.Name)

	_, err = New(square, WithRoot(t.TempDir()), WithCode("c"), WithSignature(Signature{
		Params:   []string{"x"},
		Defaults: map[string]any{"y": 1},
	}))
	assert.ErrorIs(t, err, ErrSignature)

	_, err = New(square, WithRoot(t.TempDir()), WithCode("c"), WithSignature(Signature{
		Params: []string{"x", "x"},
	}))
	assert.ErrorIs(t, err, ErrSignature)
}

func TestDefaultNameAndRoot(t *testing.T) {
	t.Setenv(RootEnv, t.TempDir())

	e, err := New(square, WithCode("x*x"))
	require.NoError(t, err)

	assert.Equal(t, "square", e.Name())
	assert.Equal(t, filepath.Join(os.Getenv(RootEnv), "square"), e.Root())
}

func TestSignature(t *testing.T) {
	ctx := context.Background()

	e, err := New(
		func(_ context.Context, config map[string]any) (any, error) { return config, nil },
		WithRoot(t.TempDir()),
		WithCode("echo"),
		WithSignature(Signature{
			Params:   []string{"lr", "epochs"},
			Defaults: map[string]any{"epochs": 10},
		}),
	)
	require.NoError(t, err)

	result, err := e.Call(ctx, map[string]any{"lr": 0.1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"lr": 0.1, "epochs": 10}, result)

	_, err = e.Call(ctx, map[string]any{"lr": 0.1, "momentum": 0.9})
	assert.ErrorIs(t, err, ErrSignature)
	assert.Contains(t, err.Error(), "momentum")

	_, err = e.Call(ctx, map[string]any{"epochs": 3})
	assert.ErrorIs(t, err, ErrSignature)
	assert.Contains(t, err.Error(), "lr")

	observations, err := e.Observations(ctx)
	require.NoError(t, err)
	assert.Len(t, observations, 1)
}

func TestCache(t *testing.T) {
	ctx := context.Background()

	var calls atomic.Int32

	fn := func(ctx context.Context, config map[string]any) (any, error) {
		calls.Add(1)

		return square(ctx, config)
	}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	e, err := New(fn,
		WithName("cached"),
		WithRoot(t.TempDir()),
		WithCode("x*x"),
		WithCache(true),
		WithMetrics(metrics),
	)
	require.NoError(t, err)

	first, err := e.Call(ctx, map[string]any{"x": 3})
	require.NoError(t, err)

	second, err := e.Call(ctx, map[string]any{"x": 3.0})
	require.NoError(t, err)

	assert.Equal(t, int64(9), first)
	assert.Equal(t, int64(9), second)
	assert.Equal(t, int32(1), calls.Load())

	observations, err := e.Observations(ctx)
	require.NoError(t, err)
	assert.Len(t, observations, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("cached", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("cached", StatusCached)))
}

func TestFailedCallRecordsNothing(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	var dir string

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	e, err := New(
		func(ctx context.Context, _ map[string]any) (any, error) {
			run, ok := RunFrom(ctx)
			if ok {
				dir = run.Dir()
			}

			return nil, boom
		},
		WithName("failing"),
		WithRoot(t.TempDir()),
		WithCode("fail"),
		WithMetrics(metrics),
	)
	require.NoError(t, err)

	_, err = e.Call(ctx, map[string]any{"x": 1})
	require.ErrorIs(t, err, boom)

	observations, err := e.Observations(ctx)
	require.NoError(t, err)
	assert.Empty(t, observations)

	require.NotEmpty(t, dir)
	assert.NoDirExists(t, dir)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("failing", StatusFailure)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.RunDurationSeconds))
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.SaveDurationSeconds))
}

func TestArtefacts(t *testing.T) {
	ctx := context.Background()

	e, err := New(
		func(ctx context.Context, config map[string]any) (any, error) {
			run, ok := RunFrom(ctx)
			if !ok {
				return nil, errors.New("no run in context")
			}

			if config["save"] == true {
				if err := os.WriteFile(filepath.Join(run.Dir(), "model.txt"), []byte("weights"), 0o644); err != nil {
					return nil, err
				}
			}

			return run.ID(), nil
		},
		WithRoot(t.TempDir()),
		WithCode("artefacts"),
	)
	require.NoError(t, err)

	withFile, err := e.Call(ctx, map[string]any{"save": true})
	require.NoError(t, err)

	withoutFile, err := e.Call(ctx, map[string]any{"save": false})
	require.NoError(t, err)

	artefacts, err := e.Artefacts(withFile.(string))
	require.NoError(t, err)
	require.Len(t, artefacts, 1)
	assert.Equal(t, "model.txt", filepath.Base(artefacts[0]))

	content, err := os.ReadFile(artefacts[0])
	require.NoError(t, err)
	assert.Equal(t, "weights", string(content))

	artefacts, err = e.Artefacts(withoutFile.(string))
	require.NoError(t, err)
	assert.Empty(t, artefacts)
	assert.NoDirExists(t, filepath.Join(e.Backend().Home(), store.RunsDir, withoutFile.(string)))

	observations, err := e.Observations(ctx)
	require.NoError(t, err)
	require.Len(t, observations, 2)
	assert.Equal(t, withFile, observations[0].ID)
}

func TestRunMetadata(t *testing.T) {
	ctx := context.Background()

	e, err := New(
		func(ctx context.Context, _ map[string]any) (any, error) {
			run, _ := RunFrom(ctx)

			stop := run.TimeBlock("train")
			run.Mark("start")
			run.Mark("end")
			stop()
			stop()

			run.AddMetadata(map[string]any{"extra": map[string]any{"a": 1}})
			run.AddMetadata(map[string]any{"extra": map[string]any{"b": 2}})

			return 0, nil
		},
		WithRoot(t.TempDir()),
		WithCode("timed"),
	)
	require.NoError(t, err)

	_, err = e.Call(ctx, map[string]any{})
	require.NoError(t, err)

	observations, err := e.Observations(ctx)
	require.NoError(t, err)
	require.Len(t, observations, 1)

	metadata := observations[0].Metadata

	timings := metadata[TimingKey].(map[string]any)
	assert.Contains(t, timings, "train")
	assert.Contains(t, timings, TotalBlock)

	marks, ok := metadata[MarksKey].([]any)
	require.True(t, ok)
	require.Len(t, marks, 2)
	assert.Equal(t, "start", marks[0].([]any)[0])
	assert.Equal(t, "end", marks[1].([]any)[0])

	assert.Equal(t, map[string]any{"a": int64(1), "b": int64(2)}, metadata["extra"])
}

func TestRunFromWithoutRun(t *testing.T) {
	_, ok := RunFrom(context.Background())
	assert.False(t, ok)
}

func TestCodeChangesCreateVersions(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	open := func(code string) *Experiment {
		e, err := New(square, WithRoot(root), WithCode(code))
		require.NoError(t, err)

		return e
	}

	a := open("A")
	_, err := a.Call(ctx, map[string]any{"x": 2})
	require.NoError(t, err)

	b := open("B")
	assert.Equal(t, filepath.Join(root, "version-2"), b.Backend().Home())

	observations, err := b.Observations(ctx)
	require.NoError(t, err)
	assert.Empty(t, observations)

	reverted := open("A")
	assert.Equal(t, filepath.Join(root, "version-1"), reverted.Backend().Home())

	observations, err = reverted.Observations(ctx)
	require.NoError(t, err)
	assert.Len(t, observations, 1)

	all, err := reverted.Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "version-1"), filepath.Join(root, "version-2")}, all)
}

func TestFilter(t *testing.T) {
	ctx := context.Background()

	e, err := New(square, WithRoot(t.TempDir()), WithCode("x*x"))
	require.NoError(t, err)

	for _, args := range []map[string]any{
		{"x": 1, "mode": "a"},
		{"x": 2, "mode": "b"},
		{"x": 3, "mode": "a"},
	} {
		_, err := e.Call(ctx, args)
		require.NoError(t, err)
	}

	matching, err := e.Filter(ctx, map[string]any{"mode": "a"})
	require.NoError(t, err)
	require.Len(t, matching, 2)
	assert.Equal(t, int64(1), matching[0].Config["x"])
	assert.Equal(t, int64(3), matching[1].Config["x"])

	matching, err = e.Filter(ctx, map[string]any{"x": 2.0})
	require.NoError(t, err)
	assert.Len(t, matching, 1)

	matching, err = e.Filter(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, matching, 3)
}

func TestMatches(t *testing.T) {
	config := map[string]any{"x": 1, "nested": map[string]any{"a": 1}}

	assert.True(t, Matches(config, nil))
	assert.True(t, Matches(config, map[string]any{"x": 1.0}))
	assert.True(t, Matches(config, map[string]any{"nested": map[string]any{"a": int64(1)}}))
	assert.False(t, Matches(config, map[string]any{"x": 2}))
	assert.False(t, Matches(config, map[string]any{"y": 1}))
}

func TestMergeInto(t *testing.T) {
	src := map[string]any{"timing": map[string]any{"total": 1}}
	dst := map[string]any{"timing": map[string]any{"train": 2}, "code": "c"}

	mergeInto(dst, src)

	assert.Equal(t, map[string]any{
		"timing": map[string]any{"train": 2, "total": 1},
		"code":   "c",
	}, dst)

	dst["timing"].(map[string]any)["other"] = 3
	assert.NotContains(t, src["timing"], "other")
}
