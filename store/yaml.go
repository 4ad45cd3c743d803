package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// YAMLBackendName is the registered name of YAMLBackend.
const YAMLBackendName = "yaml"

// YAMLBackend appends every observation as its own document to a single
// observations.yaml file.
type YAMLBackend struct {
	Base
}

func init() {
	Register(YAMLBackendName, func(home string) (Backend, error) {
		return NewYAMLBackend(home), nil
	})
}

// NewYAMLBackend returns a YAML backend rooted at home.
func NewYAMLBackend(home string) *YAMLBackend {
	return &YAMLBackend{Base: NewBase(home)}
}

// Name implements Backend.
func (b *YAMLBackend) Name() string { return YAMLBackendName }

// File returns the path of the observations file.
func (b *YAMLBackend) File() string {
	return filepath.Join(b.Home(), "observations.yaml")
}

// Save appends obs as a new document.
func (b *YAMLBackend) Save(ctx context.Context, obs Observation) error {
	var buf bytes.Buffer

	buf.WriteString("---\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(obs); err != nil {
		return fmt.Errorf("encoding observation %s: %w", obs.ID, err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding observation %s: %w", obs.ID, err)
	}

	return WithExclusiveAccess(ctx, b.File(), func() error {
		f, err := os.OpenFile(b.File(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening %s: %w", b.File(), err)
		}

		if _, err := f.Write(buf.Bytes()); err != nil {
			f.Close()

			return fmt.Errorf("appending to %s: %w", b.File(), err)
		}

		return f.Close()
	})
}

// Load implements Backend.
func (b *YAMLBackend) Load(ctx context.Context, id string) (Observation, error) {
	return findByID(ctx, b, id)
}

// AllObservations parses every document of the observations file.
func (b *YAMLBackend) AllObservations(ctx context.Context) ([]Observation, error) {
	var data []byte

	err := WithExclusiveAccess(ctx, b.File(), func() error {
		var err error

		data, err = os.ReadFile(b.File())
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.File(), err)
	}

	var observations []Observation

	dec := yaml.NewDecoder(bytes.NewReader(data))

	for {
		var obs Observation

		err := dec.Decode(&obs)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, b.File(), err)
		}

		if obs.ID == "" {
			continue
		}

		observations = append(observations, NewObservation(obs.ID, obs.Config, obs.Result, obs.Metadata))
	}

	SortByID(observations)

	return observations, nil
}

// findByID is the Load implementation of single-file backends.
func findByID(ctx context.Context, b Backend, id string) (Observation, error) {
	observations, err := b.AllObservations(ctx)
	if err != nil {
		return Observation{}, err
	}

	for _, obs := range observations {
		if obs.ID == id {
			return obs, nil
		}
	}

	return Observation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}
