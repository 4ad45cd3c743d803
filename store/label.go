package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LabelFile marks a directory as a labbook home.
const LabelFile = ".labbook"

// Label is the content of a home's label file. Code is compared byte for
// byte when resolving versions, so it is stored verbatim.
type Label struct {
	Backend string `yaml:"backend"`
	Code    string `yaml:"code"`
}

// IsHome reports whether dir carries a label file.
func IsHome(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, LabelFile))

	return err == nil && !info.IsDir()
}

// ReadLabel loads the label of the home at dir.
func ReadLabel(dir string) (Label, error) {
	data, err := os.ReadFile(filepath.Join(dir, LabelFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Label{}, fmt.Errorf("%w: %s", ErrNotAHome, dir)
		}

		return Label{}, fmt.Errorf("reading label in %s: %w", dir, err)
	}

	var label Label
	if err := yaml.Unmarshal(data, &label); err != nil {
		return Label{}, fmt.Errorf("decoding label in %s: %w", dir, err)
	}

	return label, nil
}

// CreateHome labels dir as a new home for the given backend and code and
// returns the backend. The directory is created if needed; an existing
// label is never overwritten (ErrHomeExists).
func CreateHome(dir, backend, code string) (Backend, error) {
	factory, err := lookup(backend)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating home %s: %w", dir, err)
	}

	data, err := yaml.Marshal(Label{Backend: backend, Code: code})
	if err != nil {
		return nil, fmt.Errorf("encoding label: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, LabelFile), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrHomeExists, dir)
		}

		return nil, fmt.Errorf("writing label in %s: %w", dir, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()

		return nil, fmt.Errorf("writing label in %s: %w", dir, err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("writing label in %s: %w", dir, err)
	}

	return factory(dir)
}

// OpenHome returns the backend recorded in the label of dir.
func OpenHome(dir string) (Backend, Label, error) {
	label, err := ReadLabel(dir)
	if err != nil {
		return nil, Label{}, err
	}

	backend, err := New(label.Backend, dir)
	if err != nil {
		return nil, Label{}, err
	}

	return backend, label, nil
}
