package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ObservationsDir is the sub-directory used by one-file-per-observation
// backends.
const ObservationsDir = "observations"

// maxParallelLoads bounds the number of files decoded concurrently.
const maxParallelLoads = 8

// fileCodec turns an observation into the bytes of its own file and back.
type fileCodec struct {
	ext    string
	encode func(Observation) ([]byte, error)
	decode func([]byte) (Observation, error)
}

// fileStore implements Save, Load and AllObservations for backends that
// keep each observation in a file named after its id. Distinct ids never
// share a file, so no lock is needed.
type fileStore struct {
	Base
	codec fileCodec
}

// Dir returns the directory holding the observation files.
func (s *fileStore) Dir() string {
	return filepath.Join(s.Home(), ObservationsDir)
}

func (s *fileStore) path(id string) string {
	return filepath.Join(s.Dir(), id+s.codec.ext)
}

// Save writes obs to <home>/observations/<id><ext>.
func (s *fileStore) Save(ctx context.Context, obs Observation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.codec.encode(obs)
	if err != nil {
		return fmt.Errorf("encoding observation %s: %w", obs.ID, err)
	}

	// MkdirAll tolerates a concurrent creator.
	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.Dir(), err)
	}

	if err := writeFileAtomic(s.path(obs.ID), data); err != nil {
		return fmt.Errorf("writing observation %s: %w", obs.ID, err)
	}

	return nil
}

// Load reads the file of observation id.
func (s *fileStore) Load(ctx context.Context, id string) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Observation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return Observation{}, fmt.Errorf("reading observation %s: %w", id, err)
	}

	obs, err := s.codec.decode(data)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path(id), err)
	}

	return obs, nil
}

// ids lists the ids that have a file in Dir.
func (s *fileStore) ids() ([]string, error) {
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing %s: %w", s.Dir(), err)
	}

	var ids []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, s.codec.ext) {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, s.codec.ext))
	}

	return ids, nil
}

// AllObservations decodes every observation file, a few at a time.
func (s *fileStore) AllObservations(ctx context.Context) ([]Observation, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	observations := make([]Observation, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)

	for i, id := range ids {
		g.Go(func() error {
			obs, err := s.Load(ctx, id)
			if err != nil {
				return err
			}

			observations[i] = obs

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortByID(observations)

	return observations, nil
}
