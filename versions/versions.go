// Package versions resolves which version directory of an experiment root a
// backend lives in.
//
// Every version is a sub-directory of the root carrying a store label:
//
//	<root>
//	├── version-1
//	│   ├── .labbook
//	│   └── observations...
//	├── version-2/...
//	└── named-version/...
//
// Versions are numbered sequentially as version-<N>. Users may rename them to
// something more descriptive; renamed versions are still found by Find (and
// therefore by Resolve) but no longer count towards MaxVersion.
package versions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/thalesfsp/labbook/store"
)

//////
// Const, vars, types.
//////

// Prefix is the name prefix of numbered versions.
const Prefix = "version-"

// maxCreateAttempts bounds the retries when a concurrent process claims the
// version number we were about to use.
const maxCreateAttempts = 16

// AcceptanceFunc decides whether the version directory at path is the one
// being looked for.
type AcceptanceFunc func(path string) (bool, error)

//////
// Exported functionalities.
//////

// All returns the paths of every version directory directly under root,
// sorted by name.
func All(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing versions in %s: %w", root, err)
	}

	var versions []string

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(root, entry.Name())
		if store.IsHome(path) {
			versions = append(versions, path)
		}
	}

	sort.Strings(versions)

	return versions, nil
}

// Number parses the N of a directory named version-<N>.
func Number(name string) (int, bool) {
	if !strings.HasPrefix(name, Prefix) {
		return 0, false
	}

	n, err := strconv.Atoi(strings.TrimPrefix(name, Prefix))
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

// MaxVersion returns the largest N among version directories literally named
// version-<N>, or 0 when there is none (or root does not exist).
func MaxVersion(root string) (int, error) {
	if !exists(root) {
		return 0, nil
	}

	versions, err := All(root)
	if err != nil {
		return 0, err
	}

	highest := 0

	for _, path := range versions {
		if n, ok := Number(filepath.Base(path)); ok && n > highest {
			highest = n
		}
	}

	return highest, nil
}

// Find returns the backend of the alphabetically first version under root
// accepted by accept. It returns nil and no error when root does not exist
// or no version is accepted.
func Find(root string, accept AcceptanceFunc) (store.Backend, error) {
	if !exists(root) {
		return nil, nil
	}

	versions, err := All(root)
	if err != nil {
		return nil, err
	}

	for _, path := range versions {
		ok, err := accept(path)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		backend, _, err := store.OpenHome(path)
		if err != nil {
			return nil, err
		}

		return backend, nil
	}

	return nil, nil
}

// Create allocates the next numbered version under root (version-1 when root
// does not exist yet) and labels it with code and backend.
func Create(root, code, backend string) (store.Backend, error) {
	if !store.IsRegistered(backend) {
		_, err := store.New(backend, root)

		return nil, err
	}

	highest, err := MaxVersion(root)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		dir := filepath.Join(root, Prefix+strconv.Itoa(highest+1+attempt))

		b, err := store.CreateHome(dir, backend, code)
		if errors.Is(err, store.ErrHomeExists) {
			continue
		}

		return b, err
	}

	return nil, fmt.Errorf("allocating a new version in %s: %w", root, store.ErrHomeExists)
}

// Resolve returns the backend of the version whose stored code and backend
// name both equal the given ones, creating a new numbered version when none
// matches.
//
// State transitions:
// - root does not exist: version-1 is created
// - a version matches exactly: that version is reused (this is how reverting
// the code returns to an older version instead of creating a duplicate)
// - nothing matches: version-<max+1> is created
func Resolve(root, code, backend string) (store.Backend, error) {
	found, err := Find(root, Matching(code, backend))
	if err != nil {
		return nil, err
	}

	if found != nil {
		return found, nil
	}

	return Create(root, code, backend)
}

//////
// Acceptance functions.
//////

// Matching accepts versions whose label stores exactly code and backend.
func Matching(code, backend string) AcceptanceFunc {
	return func(path string) (bool, error) {
		label, err := store.ReadLabel(path)
		if err != nil {
			return false, err
		}

		return label.Code == code && label.Backend == backend, nil
	}
}

// Named accepts the version directory called name.
func Named(name string) AcceptanceFunc {
	return func(path string) (bool, error) {
		return filepath.Base(path) == name, nil
	}
}

// Latest accepts the highest numbered version.
func Latest() AcceptanceFunc {
	return func(path string) (bool, error) {
		highest, err := MaxVersion(filepath.Dir(path))
		if err != nil {
			return false, err
		}

		return highest > 0 && filepath.Base(path) == Prefix+strconv.Itoa(highest), nil
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
