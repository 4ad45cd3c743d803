package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// decodeJSON decodes data keeping integers as int64 instead of float64.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after JSON value")
	}

	return fromJSONNumbers(v), nil
}

func fromJSONNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}

		f, err := t.Float64()
		if err != nil {
			return t.String()
		}

		return f
	case map[string]any:
		for k, e := range t {
			t[k] = fromJSONNumbers(e)
		}

		return t
	case []any:
		for i, e := range t {
			t[i] = fromJSONNumbers(e)
		}

		return t
	}

	return v
}

//////
// Tabular cells.
//////

// encodeCell renders a flattened leaf as a table cell such that decodeCell
// returns the same value. Plain strings are written as-is unless they would
// read back as something else, in which case they are JSON-quoted.
func encodeCell(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return formatFloat(t), nil
	case string:
		if t == "" || decodeCell(t) != any(t) {
			quoted, err := json.Marshal(t)

			return string(quoted), err
		}

		return t, nil
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("encoding cell value %v: %w", t, err)
		}

		return string(data), nil
	}
}

// decodeCell is the inverse of encodeCell. Empty cells are handled by the
// caller (they mean "no value"); text that is not valid JSON despite its
// leading character reads back as a plain string.
func decodeCell(s string) any {
	switch s {
	case "":
		return ""
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}

	switch s[0] {
	case '"', '[', '{':
		if v, err := decodeJSON([]byte(s)); err == nil {
			return v
		}

		return s
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if looksLikeFloat(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	return s
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s
}

func looksLikeFloat(s string) bool {
	switch s {
	case "NaN", "+Inf", "-Inf":
		return true
	}

	return strings.ContainsAny(s, ".eE") && strings.IndexFunc(s, func(r rune) bool {
		return !strings.ContainsRune("0123456789+-.eE", r)
	}) < 0
}

//////
// Files.
//////

// writeFileAtomic writes data to a temporary sibling of path and renames it
// into place so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())

		return err
	}

	return nil
}
