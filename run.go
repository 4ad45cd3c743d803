package labbook

import (
	"context"
	"sync"
	"time"
)

// Metadata keys written by runs.
const (
	TimingKey     = "timing"
	TotalBlock    = "total"
	MarksKey      = "timing_marks"
	CodeKey       = "code"
	SearchModeKey = "search-mode"
)

type runKey struct{}

// Run is the state of one executing call. The wrapped function reaches it
// through RunFrom to find its artefact directory or to add metadata.
// It is safe for concurrent use by goroutines of the same call.
type Run struct {
	id  string
	dir string

	mu       sync.Mutex
	metadata map[string]any
}

func newRun(id, dir string) *Run {
	return &Run{id: id, dir: dir, metadata: map[string]any{}}
}

// RunFrom returns the run executing in ctx.
func RunFrom(ctx context.Context) (*Run, bool) {
	r, ok := ctx.Value(runKey{}).(*Run)

	return r, ok
}

func withRun(ctx context.Context, r *Run) context.Context {
	return context.WithValue(ctx, runKey{}, r)
}

// ID returns the id the observation will be recorded under.
func (r *Run) ID() string { return r.id }

// Dir returns the run's artefact directory. Files written there are listed
// by Experiment.Artefacts; the directory is removed if left empty.
func (r *Run) Dir() string { return r.dir }

// AddMetadata merges metadata into the observation's metadata. Nested maps
// are merged key by key.
func (r *Run) AddMetadata(metadata map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mergeInto(r.metadata, metadata)
}

// TimeBlock starts timing a named block and returns the function ending it.
// The block is recorded as metadata["timing"][name] with start, end and
// duration in seconds.
//
//	defer run.TimeBlock("train")()
func (r *Run) TimeBlock(name string) func() {
	start := time.Now()

	var once sync.Once

	return func() {
		once.Do(func() {
			r.AddMetadata(map[string]any{TimingKey: map[string]any{name: timing(start, time.Now())}})
		})
	}
}

// Mark appends (name, timestamp) to metadata["timing_marks"].
func (r *Run) Mark(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	marks, _ := r.metadata[MarksKey].([]any)
	r.metadata[MarksKey] = append(marks, []any{name, seconds(time.Now())})
}

// Metadata returns a copy of the metadata collected so far.
func (r *Run) Metadata() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := map[string]any{}
	mergeInto(out, r.metadata)

	return out
}

func timing(start, end time.Time) map[string]any {
	return map[string]any{
		"start":    seconds(start),
		"end":      seconds(end),
		"duration": end.Sub(start).Seconds(),
	}
}

// seconds returns t as fractional Unix seconds.
func seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
