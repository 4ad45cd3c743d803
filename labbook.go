package labbook

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/thalesfsp/labbook/internal/value"
	"github.com/thalesfsp/labbook/store"
	"github.com/thalesfsp/labbook/versions"
)

//////
// Const, vars, types.
//////

// Experiment wraps a function so that every call is recorded.
//
// Fields:
// - fn: The wrapped function
// - root: Directory holding one sub-directory per code version
// - backend: Storage of the version matching the current code
//
// Thread safety:
//   - Calls may run concurrently. Single-file backends serialise their writes
//     with a file lock, which also protects against other processes.
type Experiment struct {
	fn          Func
	name        string
	root        string
	backendName string
	code        string
	signature   Signature
	cache       bool
	logger      *slog.Logger
	metrics     *Metrics

	backend store.Backend
}

//////
// Factory.
//////

// New wraps fn into an Experiment and resolves the version directory of its
// code, creating it if needed. Configuration errors (missing code,
// unregistered backend, malformed signature) are returned here, before
// anything runs.
//
// Parameters:
// - fn: The function to record
// - opts: WithCode is required. See Option for the others
//
// Returns:
// - *Experiment: The wrapped experiment
// - error: Any configuration or filesystem error
//
// Usage example:
//
//	square, err := labbook.New(
//	    func(ctx context.Context, config map[string]any) (any, error) {
//	        x := config["x"].(int)
//
//	        return x * x, nil
//	    },
//	    labbook.WithName("square"),
//	    labbook.WithCode("x*x v1"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	result, err := square.Call(ctx, map[string]any{"x": 2}) // 4
func New(fn Func, opts ...Option) (*Experiment, error) {
	e := &Experiment{
		fn:          fn,
		backendName: DefaultBackend,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.code == "" {
		return nil, ErrMissingCode
	}

	if err := e.signature.validate(); err != nil {
		return nil, err
	}

	if e.name == "" {
		e.name = funcName(fn)
	}

	if e.root == "" {
		e.root = defaultRoot(e.name)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	e.logger = e.logger.With("experiment", e.name)

	backend, err := versions.Resolve(e.root, e.code, e.backendName)
	if err != nil {
		return nil, fmt.Errorf("resolving version of experiment %s: %w", e.name, err)
	}

	e.backend = backend

	e.logger.Debug("experiment ready", "home", backend.Home(), "backend", backend.Name())

	return e, nil
}

//////
// Methods.
//////

// Call runs the experiment with args and records the observation.
//
// Steps:
//  1. args are completed against the signature
//  2. with caching on, a recorded observation with the same config returns
//     its (stored) result without running
//  3. a run id and artefact directory are allocated and exposed through ctx
//     (see RunFrom)
//  4. the function runs; on error nothing is recorded
//  5. the observation is saved with timing and code metadata
//
// The artefact directory is removed if the run left it empty, whatever the
// outcome. When saving fails the result is returned along with the error.
func (e *Experiment) Call(ctx context.Context, args map[string]any, opts ...CallOption) (any, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	config, err := e.signature.Complete(args)
	if err != nil {
		return nil, err
	}

	if e.cache {
		if obs, ok, err := e.cached(ctx, config); err != nil {
			return nil, err
		} else if ok {
			e.logger.Debug("returning cached result", "id", obs.ID)
			e.metrics.observeRun(e.name, StatusCached, 0)

			return obs.Result, nil
		}
	}

	id, dir, err := e.backend.UniqueRun()
	if err != nil {
		return nil, fmt.Errorf("allocating run directory: %w", err)
	}

	defer func() {
		if err := e.backend.CleanUp(id); err != nil {
			e.logger.Warn("failed to clean up run directory", "id", id, "error", err)
		}
	}()

	run := newRun(id, dir)

	start := time.Now()
	result, err := e.fn(withRun(ctx, run), config)
	end := time.Now()

	if err != nil {
		e.metrics.observeRun(e.name, StatusFailure, end.Sub(start))

		return nil, fmt.Errorf("experiment %s, run %s: %w", e.name, id, err)
	}

	e.metrics.observeRun(e.name, StatusSuccess, end.Sub(start))

	metadata := map[string]any{}
	mergeInto(metadata, co.metadata)
	mergeInto(metadata, run.Metadata())
	mergeInto(metadata, map[string]any{
		TimingKey: map[string]any{TotalBlock: timing(start, end)},
		CodeKey:   e.code,
	})

	obs := store.NewObservation(id, config, result, metadata)

	saveStart := time.Now()
	err = e.backend.Save(ctx, obs)
	e.metrics.observeSave(e.backend.Name(), time.Since(saveStart))

	if err != nil {
		return result, fmt.Errorf("saving observation %s: %w", id, err)
	}

	return result, nil
}

// Observations returns every recorded observation of the current code
// version, sorted by id.
func (e *Experiment) Observations(ctx context.Context) ([]store.Observation, error) {
	return e.backend.AllObservations(ctx)
}

// Load returns the observation recorded under id.
func (e *Experiment) Load(ctx context.Context, id string) (store.Observation, error) {
	return e.backend.Load(ctx, id)
}

// Filter returns the observations whose config matches template, see
// Matches.
func (e *Experiment) Filter(ctx context.Context, template map[string]any) ([]store.Observation, error) {
	all, err := e.Observations(ctx)
	if err != nil {
		return nil, err
	}

	var matching []store.Observation

	for _, obs := range all {
		if Matches(obs.Config, template) {
			matching = append(matching, obs)
		}
	}

	return matching, nil
}

// Artefacts lists the files the run id left in its artefact directory.
func (e *Experiment) Artefacts(id string) ([]string, error) {
	return e.backend.Artefacts(id)
}

// Versions lists every version directory of the experiment root.
func (e *Experiment) Versions() ([]string, error) {
	return versions.All(e.root)
}

// Backend returns the storage of the current code version.
func (e *Experiment) Backend() store.Backend { return e.backend }

// Name returns the experiment name.
func (e *Experiment) Name() string { return e.name }

// Root returns the experiment root directory.
func (e *Experiment) Root() string { return e.root }

// Code returns the code fingerprint.
func (e *Experiment) Code() string { return e.code }

func (e *Experiment) cached(ctx context.Context, config map[string]any) (store.Observation, bool, error) {
	observations, err := e.Observations(ctx)
	if err != nil {
		return store.Observation{}, false, err
	}

	for _, obs := range observations {
		if value.Equal(obs.Config, config) {
			return obs, true, nil
		}
	}

	return store.Observation{}, false, nil
}

//////
// Helpers.
//////

// Matches reports whether config holds every key of template with an equal
// value. Numbers compare by value, so 2 matches 2.0.
func Matches(config, template map[string]any) bool {
	for k, want := range template {
		got, ok := config[k]
		if !ok || !value.Equal(got, want) {
			return false
		}
	}

	return true
}

func defaultRoot(name string) string {
	base := os.Getenv(RootEnv)
	if base == "" {
		base = DefaultRootDir
	}

	return filepath.Join(base, name)
}

// funcName returns the short name of fn, e.g. "square" for
// example.com/pkg.square.
func funcName(fn Func) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "experiment"
	}

	name := f.Name()
	name = name[strings.LastIndex(name, "/")+1:]

	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}

	name = strings.NewReplacer(".", "-", "*", "", "(", "", ")", "").Replace(name)
	if name == "" {
		return "experiment"
	}

	return name
}
