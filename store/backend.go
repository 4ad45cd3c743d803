package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

//////
// Const, vars, types.
//////

// RunsDir is the sub-directory of a home holding per-run scratch space.
const RunsDir = "runs"

// Backend saves and loads observations for a single home directory.
//
// Implementations must tolerate their files not existing yet (an empty
// home) and must keep concurrent processes from losing each other's writes.
type Backend interface {
	// Name returns the registered name of the backend.
	Name() string

	// Home returns the directory the backend stores into.
	Home() string

	// Save durably records an observation.
	Save(ctx context.Context, obs Observation) error

	// Load returns the observation with the given id, or ErrNotFound.
	Load(ctx context.Context, id string) (Observation, error)

	// AllObservations returns every stored observation sorted by id.
	AllObservations(ctx context.Context) ([]Observation, error)

	// UniqueRun allocates a fresh, empty scratch directory for a run.
	UniqueRun() (id, dir string, err error)

	// CleanUp removes the scratch directory of run id if it is empty.
	CleanUp(id string) error

	// Artefacts lists the files left in the scratch directory of run id.
	Artefacts(id string) ([]string, error)

	// ReapEmptyRuns removes the empty scratch directories last modified
	// more than olderThan ago, e.g. those left behind by crashed runs, and
	// reports how many were removed. Younger directories may belong to runs
	// still executing.
	ReapEmptyRuns(olderThan time.Duration) (int, error)
}

// Factory builds a backend rooted at home.
type Factory func(home string) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

//////
// Registry.
//////

// Register makes a backend available under name. Registering a name twice
// replaces the previous factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[name] = factory
}

// New builds the backend registered under name for home.
func New(name, home string) (Backend, error) {
	factory, err := lookup(name)
	if err != nil {
		return nil, err
	}

	return factory(home)
}

// Names returns the registered backend names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// IsRegistered reports whether a backend is registered under name.
func IsRegistered(name string) bool {
	_, err := lookup(name)

	return err == nil
}

func lookup(name string) (Factory, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, &ErrUnknownBackend{Name: name, Available: Names()}
	}

	return factory, nil
}

//////
// Base.
//////

// Base implements the run-directory half of Backend. Concrete backends
// embed it and add Save, Load and AllObservations.
type Base struct {
	home string
}

// NewBase returns a Base rooted at home.
func NewBase(home string) Base {
	return Base{home: home}
}

// Home returns the directory the backend stores into.
func (b Base) Home() string { return b.home }

// RunDir returns the scratch directory of run id.
func (b Base) RunDir(id string) string {
	return filepath.Join(b.home, RunsDir, id)
}

// UniqueRun allocates a fresh run id and its scratch directory. The
// directory is created exclusively: an id collision is an error, never a
// silent reuse.
func (b Base) UniqueRun() (string, string, error) {
	if err := os.MkdirAll(filepath.Join(b.home, RunsDir), 0o755); err != nil {
		return "", "", fmt.Errorf("creating runs directory: %w", err)
	}

	id := NewID()
	dir := b.RunDir(id)

	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating run directory %s: %w", dir, err)
	}

	return id, dir, nil
}

// CleanUp removes the scratch directory of run id if nothing was written
// into it. A missing directory is not an error.
func (b Base) CleanUp(id string) error {
	dir := b.RunDir(id)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("inspecting run directory %s: %w", dir, err)
	}

	if len(entries) > 0 {
		return nil
	}

	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing run directory %s: %w", dir, err)
	}

	return nil
}

// Artefacts lists the paths of the entries in the scratch directory of run
// id, sorted by name.
func (b Base) Artefacts(id string) ([]string, error) {
	dir := b.RunDir(id)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing artefacts of %s: %w", id, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	return paths, nil
}

// ReapEmptyRuns removes the empty scratch directories not modified within
// olderThan.
func (b Base) ReapEmptyRuns(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(filepath.Join(b.home, RunsDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}

		return 0, fmt.Errorf("listing runs: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	reaped := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		dir := b.RunDir(entry.Name())

		children, err := os.ReadDir(dir)
		if err != nil || len(children) > 0 {
			continue
		}

		if err := os.Remove(dir); err == nil {
			reaped++
		}
	}

	return reaped, nil
}
