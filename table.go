package labbook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/thalesfsp/labbook/store"
)

// DefaultTableSeparator joins nested keys in table columns.
const DefaultTableSeparator = "."

// TableOptions configures ToTable.
type TableOptions struct {
	// IncludeID adds an "id" column.
	IncludeID bool

	// IncludeMetadata adds the flattened metadata under "metadata<sep>".
	IncludeMetadata bool

	// Separator joins nested keys. Defaults to DefaultTableSeparator.
	Separator string
}

// Table is a flat, one-row-per-observation view of observations.
type Table struct {
	Columns []string
	Rows    [][]any
}

// ToTable flattens the current version's observations into a table.
func (e *Experiment) ToTable(ctx context.Context, opts TableOptions) (*Table, error) {
	observations, err := e.Observations(ctx)
	if err != nil {
		return nil, err
	}

	return NewTable(observations, opts, e.logger), nil
}

// NewTable flattens observations into a table. Config keys and result keys
// (or a single "result" column for non-map results) are merged at the top
// level. If any config key collides with a result key a warning is logged
// and every row keeps them nested under "config" and "result" instead.
func NewTable(observations []store.Observation, opts TableOptions, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}

	sep := opts.Separator
	if sep == "" {
		sep = DefaultTableSeparator
	}

	merge := true
	if key, ok := collision(observations, opts.IncludeID); ok {
		logger.Warn("config and result share a key, keeping them nested", "key", key)

		merge = false
	}

	records := make([]map[string]any, len(observations))
	columns := map[string]bool{}

	for i, obs := range observations {
		record := map[string]any{}

		if merge {
			for k, v := range obs.Config {
				record[k] = v
			}

			if result, ok := obs.Result.(map[string]any); ok {
				for k, v := range result {
					record[k] = v
				}
			} else {
				record["result"] = obs.Result
			}
		} else {
			record["config"] = obs.Config
			record["result"] = obs.Result
		}

		if opts.IncludeMetadata {
			record["metadata"] = obs.Metadata
		}

		record = store.Flatten(record, sep)

		if opts.IncludeID {
			record["id"] = obs.ID
		}

		for k := range record {
			columns[k] = true
		}

		records[i] = record
	}

	t := &Table{Columns: orderColumns(columns, opts.IncludeID)}

	for _, record := range records {
		row := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = record[c]
		}

		t.Rows = append(t.Rows, row)
	}

	return t
}

// Records returns the rows as column-keyed maps, omitting missing cells.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))

	for i, row := range t.Rows {
		record := make(map[string]any, len(row))

		for j, c := range t.Columns {
			if row[j] != nil {
				record[c] = row[j]
			}
		}

		out[i] = record
	}

	return out
}

// Write renders the table as aligned text columns.
func (t *Table) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, strings.Join(t.Columns, "\t")); err != nil {
		return err
	}

	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}

		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// collision returns a key that would be written twice when config and
// result are merged.
func collision(observations []store.Observation, includeID bool) (string, bool) {
	for _, obs := range observations {
		taken := map[string]bool{}
		if includeID {
			taken["id"] = true
		}

		for k := range obs.Config {
			if taken[k] {
				return k, true
			}

			taken[k] = true
		}

		result, ok := obs.Result.(map[string]any)
		if !ok {
			result = map[string]any{"result": obs.Result}
		}

		for k := range result {
			if taken[k] {
				return k, true
			}
		}

		if _, ok := obs.Config["metadata"]; ok {
			return "metadata", true
		}
	}

	return "", false
}

func orderColumns(columns map[string]bool, includeID bool) []string {
	var ordered []string

	for c := range columns {
		if includeID && c == "id" {
			continue
		}

		ordered = append(ordered, c)
	}

	sort.Strings(ordered)

	if includeID {
		ordered = append([]string{"id"}, ordered...)
	}

	return ordered
}
