package store

import (
	"fmt"
	"sort"

	"github.com/thalesfsp/labbook/internal/value"
)

// Observation is the durable record of a single execution of an experiment.
//
// Fields:
// - ID: time-ordered unique identifier, assigned when the run starts
// - Config: complete resolved arguments the experiment was called with
// - Result: value returned by the experiment
// - Metadata: out-of-band information (timing, code fingerprint, search mode)
//
// Observations are created once, after the experiment returns, and are never
// mutated afterwards.
type Observation struct {
	ID       string         `json:"id" yaml:"id"`
	Config   map[string]any `json:"config" yaml:"config"`
	Result   any            `json:"result" yaml:"result"`
	Metadata map[string]any `json:"metadata" yaml:"metadata"`
}

// NewObservation builds an observation with normalised values. A nil config
// or metadata map is replaced by an empty one.
func NewObservation(id string, config map[string]any, result any, metadata map[string]any) Observation {
	return Observation{
		ID:       id,
		Config:   value.NormalizeMap(config),
		Result:   value.Normalize(result),
		Metadata: value.NormalizeMap(metadata),
	}
}

// AsMap returns the observation as a nested map with the keys id, config,
// result and metadata.
func (o Observation) AsMap() map[string]any {
	return map[string]any{
		"id":       o.ID,
		"config":   o.Config,
		"result":   o.Result,
		"metadata": o.Metadata,
	}
}

// String implements fmt.Stringer.
func (o Observation) String() string {
	return fmt.Sprintf("Observation(%s, %v -> %v)", o.ID, o.Config, o.Result)
}

// ObservationFromMap is the inverse of AsMap. Missing config or metadata
// sections decode as empty maps, a missing result decodes as nil.
func ObservationFromMap(m map[string]any) (Observation, error) {
	id, ok := m["id"].(string)
	if !ok || id == "" {
		return Observation{}, fmt.Errorf("%w: missing id", ErrCorrupt)
	}

	config, err := section(m, "config")
	if err != nil {
		return Observation{}, err
	}

	metadata, err := section(m, "metadata")
	if err != nil {
		return Observation{}, err
	}

	return NewObservation(id, config, m["result"], metadata), nil
}

// SortByID sorts observations in place, oldest first.
func SortByID(observations []Observation) {
	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].ID < observations[j].ID
	})
}

func section(m map[string]any, key string) (map[string]any, error) {
	switch s := value.Normalize(m[key]).(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T, expected a mapping", ErrCorrupt, key, s)
	}
}
