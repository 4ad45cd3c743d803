package store

import (
	"encoding/json"
	"fmt"
)

// JSONBackendName is the registered name of JSONBackend.
const JSONBackendName = "json"

// JSONBackend stores each observation as an indented JSON document in
// observations/<id>.json.
//
// JSON does not distinguish 2 from 2.0: integral floats read back as int64.
type JSONBackend struct {
	fileStore
}

func init() {
	Register(JSONBackendName, func(home string) (Backend, error) {
		return NewJSONBackend(home), nil
	})
}

// NewJSONBackend returns a JSON backend rooted at home.
func NewJSONBackend(home string) *JSONBackend {
	return &JSONBackend{fileStore: fileStore{
		Base: NewBase(home),
		codec: fileCodec{
			ext: ".json",
			encode: func(obs Observation) ([]byte, error) {
				return json.MarshalIndent(obs, "", "  ")
			},
			decode: func(data []byte) (Observation, error) {
				v, err := decodeJSON(data)
				if err != nil {
					return Observation{}, err
				}

				m, ok := v.(map[string]any)
				if !ok {
					return Observation{}, fmt.Errorf("expected an object, got %T", v)
				}

				return ObservationFromMap(m)
			},
		},
	}}
}

// Name implements Backend.
func (b *JSONBackend) Name() string { return JSONBackendName }
