// Package labbook records experiments. It wraps a function so that every
// call is stored as an observation (config, result, metadata) in a version
// directory tied to the code that produced it, and drives such functions
// with the suggesters of the search package.
//
// # Features
//
// The package includes the following key features:
//
//   - Versioned storage: Each distinct code fingerprint gets its own
//     version-N directory under the experiment root. Reverting the code
//     reuses the matching version
//   - Pluggable encodings: JSON, YAML, CSV and zstd-compressed MessagePack
//     backends, see the store package
//   - Artefacts: Every run gets a private directory, removed if left empty
//   - Timing: Total wall time is always recorded. Blocks and marks can be
//     added from inside the function through the *Run in its context
//   - Automation: Automate runs suggest, call, tell cycles with grid, random
//     or Bayesian suggesters, seeded from what was already recorded
//   - Metrics: Optional Prometheus collectors for calls and saves
//
// # Recording
//
//	square, err := labbook.New(
//	    func(ctx context.Context, config map[string]any) (any, error) {
//	        if run, ok := labbook.RunFrom(ctx); ok {
//	            defer run.TimeBlock("compute")()
//	        }
//
//	        x := config["x"].(int)
//
//	        return x * x, nil
//	    },
//	    labbook.WithName("square"),
//	    labbook.WithRoot("experiments/square"),
//	    labbook.WithCode("x*x"),
//	    labbook.WithSignature(labbook.Signature{Params: []string{"x"}}),
//	)
//
//	result, err := square.Call(ctx, map[string]any{"x": 2}) // 4
//
//	observations, err := square.Observations(ctx)
//
// Results read back from storage follow the backend's encoding: integers come
// back as int64 and floats as float64.
//
// # Automation
//
//	space := search.MustSpace(
//	    search.Dim("x", []any{1, 2, 3}),
//	)
//
//	grid, err := search.NewGridSuggester(space)
//
//	steps, err := labbook.Automate(ctx, square, grid, labbook.AutomateOptions{})
//
// # Configuration
//
// Experiments are configured with functional options. The root directory
// defaults to $LABBOOK_ROOT/<name>, or experiments/<name> when the variable
// is not set. The search package is configured with config structs, see
// search.DefaultConfig.
//
// # Thread Safety
//
//   - Calls to an Experiment may run concurrently. Writes to shared files are
//     serialised with file locks, which also hold across processes
//   - Version directories are created atomically, so concurrent processes
//     resolving the same code agree on a single directory
//   - Suggesters are not safe for concurrent use
package labbook
