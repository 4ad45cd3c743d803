package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// CSVBackendName is the registered name of CSVBackend.
const CSVBackendName = "csv"

// CSVBackend stores all observations in one table, observations.csv. Each
// observation is flattened into a row with nested keys joined by
// DefaultSeparator ("config|x", "result|loss", ...).
//
// Saving is not an append: the table is reloaded, extended and rewritten as
// a whole under the exclusive lock, so the header always covers every
// column. This makes each save O(n) in the number of stored observations.
type CSVBackend struct {
	Base
}

func init() {
	Register(CSVBackendName, func(home string) (Backend, error) {
		return NewCSVBackend(home), nil
	})
}

// NewCSVBackend returns a CSV backend rooted at home.
func NewCSVBackend(home string) *CSVBackend {
	return &CSVBackend{Base: NewBase(home)}
}

// Name implements Backend.
func (b *CSVBackend) Name() string { return CSVBackendName }

// File returns the path of the table.
func (b *CSVBackend) File() string {
	return filepath.Join(b.Home(), "observations.csv")
}

// Save rewrites the table with obs appended.
func (b *CSVBackend) Save(ctx context.Context, obs Observation) error {
	return WithExclusiveAccess(ctx, b.File(), func() error {
		existing, err := b.read()
		if err != nil {
			return err
		}

		data, err := encodeTable(append(existing, obs))
		if err != nil {
			return err
		}

		if err := writeFileAtomic(b.File(), data); err != nil {
			return fmt.Errorf("writing %s: %w", b.File(), err)
		}

		return nil
	})
}

// Load implements Backend.
func (b *CSVBackend) Load(ctx context.Context, id string) (Observation, error) {
	return findByID(ctx, b, id)
}

// AllObservations reads the whole table.
func (b *CSVBackend) AllObservations(ctx context.Context) ([]Observation, error) {
	var observations []Observation

	err := WithExclusiveAccess(ctx, b.File(), func() error {
		var err error

		observations, err = b.read()

		return err
	})
	if err != nil {
		return nil, err
	}

	SortByID(observations)

	return observations, nil
}

// read loads the table without locking. A missing file is an empty table.
func (b *CSVBackend) read() ([]Observation, error) {
	data, err := os.ReadFile(b.File())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading %s: %w", b.File(), err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, b.File(), err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	observations := make([]Observation, 0, len(records)-1)

	for line, record := range records[1:] {
		flat := make(map[string]any, len(header))

		for i, column := range header {
			cell := record[i]
			if cell == "" {
				continue
			}

			if column == "id" {
				flat[column] = cell

				continue
			}

			flat[column] = decodeCell(cell)
		}

		nested, err := Unflatten(flat, DefaultSeparator)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", ErrCorrupt, b.File(), line+1, err)
		}

		obs, err := ObservationFromMap(nested)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", b.File(), line+1, err)
		}

		observations = append(observations, obs)
	}

	return observations, nil
}

// encodeTable renders observations with a header made of "id" followed by
// the sorted union of every other flattened column.
func encodeTable(observations []Observation) ([]byte, error) {
	rows := make([]map[string]any, len(observations))
	columns := map[string]struct{}{}

	for i, obs := range observations {
		rows[i] = Flatten(obs.AsMap(), DefaultSeparator)
		for column := range rows[i] {
			columns[column] = struct{}{}
		}
	}

	delete(columns, "id")

	header := make([]string, 0, len(columns)+1)
	for column := range columns {
		header = append(header, column)
	}

	sort.Strings(header)
	header = append([]string{"id"}, header...)

	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, row := range rows {
		record := make([]string, len(header))

		for i, column := range header {
			v, ok := row[column]
			if !ok {
				continue
			}

			if column == "id" {
				record[i] = v.(string)

				continue
			}

			cell, err := encodeCell(v)
			if err != nil {
				return nil, err
			}

			record[i] = cell
		}

		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()

	return buf.Bytes(), w.Error()
}
