package store

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSeparator joins nested keys in tabular encodings.
const DefaultSeparator = "|"

// Flatten turns a nested string-keyed map into a single level map whose keys
// are the nested paths joined by sep.
//
// Example:
//
//	Flatten(map[string]any{"cfg": map[string]any{"x": 1}, "y": 2}, "|")
//	// map[string]any{"cfg|x": 1, "y": 2}
//
// Empty nested maps are kept as leaves so that Unflatten can restore them.
func Flatten(m map[string]any, sep string) map[string]any {
	out := make(map[string]any, len(m))
	flattenInto(out, "", m, sep)

	return out
}

// Unflatten is the inverse of Flatten. It returns ErrFlattenConflict when a
// key is used both as a leaf and as the prefix of a nested key, e.g. "a" and
// "a|b".
func Unflatten(m map[string]any, sep string) (map[string]any, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	// Shorter keys first so that leaves are seen before their would-be children.
	sort.Strings(keys)

	out := make(map[string]any)

	for _, key := range keys {
		parts := strings.Split(key, sep)
		node := out

		for i, part := range parts[:len(parts)-1] {
			next, exists := node[part]
			if !exists {
				child := make(map[string]any)
				node[part] = child
				node = child

				continue
			}

			child, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %q is a leaf and a prefix of %q",
					ErrFlattenConflict, strings.Join(parts[:i+1], sep), key)
			}

			node = child
		}

		leaf := parts[len(parts)-1]
		if existing, exists := node[leaf]; exists {
			if nested, ok := existing.(map[string]any); !ok || len(nested) > 0 {
				return nil, fmt.Errorf("%w: duplicate key %q", ErrFlattenConflict, key)
			}
		}

		if nested, ok := m[key].(map[string]any); ok {
			node[leaf] = cloneMap(nested)

			continue
		}

		node[leaf] = m[key]
	}

	return out, nil
}

func flattenInto(out map[string]any, prefix string, m map[string]any, sep string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}

		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flattenInto(out, key, nested, sep)

			continue
		}

		out[key] = v
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
