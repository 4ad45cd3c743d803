package labbook

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/thalesfsp/labbook/store"
)

//////
// Const, vars, types.
//////

// DefaultBackend is the storage encoding used when none is given.
const DefaultBackend = store.JSONBackendName

// RootEnv names the environment variable holding the directory experiment
// roots are created in by default.
const RootEnv = "LABBOOK_ROOT"

// DefaultRootDir is used when RootEnv is not set.
const DefaultRootDir = "experiments"

// Func is the signature of a function wrapped by an Experiment.
//
// Parameters:
// - ctx: Carries the current *Run, see RunFrom
// - config: The complete configuration of this call
//
// Returns:
// - any: The result to record. It must be serialisable by the backend
// - error: A non-nil error aborts the run, nothing is recorded
//
// Usage example:
//
//	square := labbook.Func(func(ctx context.Context, config map[string]any) (any, error) {
//	    x := config["x"].(int)
//
//	    return x * x, nil
//	})
type Func func(ctx context.Context, config map[string]any) (any, error)

// Signature binds call arguments to the parameters of an experiment.
//
// Fields:
// - Params: Accepted parameter names. nil accepts any name
// - Defaults: Values used for parameters a call does not give
//
// Usage example:
//
//	sig := labbook.Signature{
//	    Params:   []string{"lr", "epochs"},
//	    Defaults: map[string]any{"epochs": 10},
//	}
//
//	config, err := sig.Complete(map[string]any{"lr": 0.01})
//	// config = {"lr": 0.01, "epochs": 10}
type Signature struct {
	Params   []string
	Defaults map[string]any
}

// Complete returns the full configuration for args: defaults are applied,
// and unknown or missing parameters fail with ErrSignature.
func (s Signature) Complete(args map[string]any) (map[string]any, error) {
	config := make(map[string]any, len(s.Defaults)+len(args))

	for k, v := range s.Defaults {
		config[k] = v
	}

	for k, v := range args {
		config[k] = v
	}

	if s.Params == nil {
		return config, nil
	}

	known := make(map[string]bool, len(s.Params))
	for _, p := range s.Params {
		known[p] = true
	}

	var unknown, missing []string

	for k := range args {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}

	for _, p := range s.Params {
		if _, ok := config[p]; !ok {
			missing = append(missing, p)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)

		return nil, fmt.Errorf("%w: unknown parameters %v", ErrSignature, unknown)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing parameters %v", ErrSignature, missing)
	}

	return config, nil
}

// validate checks that defaults only name declared parameters.
func (s Signature) validate() error {
	if s.Params == nil {
		return nil
	}

	known := make(map[string]bool, len(s.Params))

	for _, p := range s.Params {
		if known[p] {
			return fmt.Errorf("%w: duplicate parameter %q", ErrSignature, p)
		}

		known[p] = true
	}

	for k := range s.Defaults {
		if !known[k] {
			return fmt.Errorf("%w: default for undeclared parameter %q", ErrSignature, k)
		}
	}

	return nil
}

//////
// Options.
//////

// Option configures an Experiment.
type Option func(*Experiment)

// WithRoot sets the experiment root directory, which holds one directory per
// version. Defaults to $LABBOOK_ROOT/<name>, or experiments/<name>.
func WithRoot(dir string) Option {
	return func(e *Experiment) { e.root = dir }
}

// WithName sets the experiment name. Defaults to the wrapped function's name.
func WithName(name string) Option {
	return func(e *Experiment) { e.name = name }
}

// WithBackend selects the storage encoding by registered name.
func WithBackend(name string) Option {
	return func(e *Experiment) { e.backendName = name }
}

// WithCode sets the fingerprint of the experiment's code, typically its
// source text or a hash of it. A new version is created whenever it
// changes. Comparison is exact.
func WithCode(code string) Option {
	return func(e *Experiment) { e.code = code }
}

// WithSignature sets the parameters calls are checked against.
func WithSignature(signature Signature) Option {
	return func(e *Experiment) { e.signature = signature }
}

// WithCache makes calls with an already recorded config return the recorded
// result instead of running again.
func WithCache(enabled bool) Option {
	return func(e *Experiment) { e.cache = enabled }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Experiment) { e.logger = logger }
}

// WithMetrics records Prometheus metrics for every call.
func WithMetrics(metrics *Metrics) Option {
	return func(e *Experiment) { e.metrics = metrics }
}

// CallOption configures one call.
type CallOption func(*callOptions)

type callOptions struct {
	metadata map[string]any
}

// WithMetadata adds metadata to the observation recorded by the call.
func WithMetadata(metadata map[string]any) CallOption {
	return func(o *callOptions) {
		if o.metadata == nil {
			o.metadata = map[string]any{}
		}

		mergeInto(o.metadata, metadata)
	}
}

// mergeInto copies src into dst, merging nested maps key by key.
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = v

			continue
		}

		existing, ok := dst[k].(map[string]any)
		if !ok {
			existing = make(map[string]any, len(sub))
			dst[k] = existing
		}

		mergeInto(existing, sub)
	}
}
