// Package value holds the canonical representation of the loosely typed
// values that flow through observations and search points.
//
// Every storage encoding decodes numbers a little differently (YAML yields
// int, JSON yields float64 or json.Number, MessagePack yields int64/uint64),
// so values are normalised before they are written and after they are read:
//
//   - signed and unsigned integers become int64
//   - float32 becomes float64
//   - maps with string (or stringable) keys become map[string]any
//   - slices and arrays (except []byte) become []any
//   - []byte becomes string
//   - pointers are dereferenced, structs become maps through their JSON form
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"golang.org/x/exp/constraints"
)

//////
// Exported functionalities.
//////

// Normalize returns the canonical form of v. It never mutates v.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, int64, float64:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return fromUnsigned(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return fromUnsigned(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	case json.Number:
		return fromNumber(t)
	case map[string]any:
		return NormalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}

		return out
	}

	return normalizeReflect(v)
}

// NormalizeMap normalises every value of m into a new map. A nil map yields
// an empty map.
func NormalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}

	return out
}

// Equal reports whether a and b are the same value once normalised. Numbers
// compare by value across int64 and float64, at any depth.
func Equal(a, b any) bool {
	return equal(Normalize(a), Normalize(b))
}

func equal(a, b any) bool {
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)

		return ok && fa == fb
	}

	switch ta := a.(type) {
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}

		for k, va := range ta {
			vb, ok := tb[k]
			if !ok || !equal(va, vb) {
				return false
			}
		}

		return true
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}

		for i := range ta {
			if !equal(ta[i], tb[i]) {
				return false
			}
		}

		return true
	}

	return reflect.DeepEqual(a, b)
}

// ToFloat converts numeric values to float64. Booleans and non-numeric
// values report false.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return toFloat64(t), true
	case int8:
		return toFloat64(t), true
	case int16:
		return toFloat64(t), true
	case int32:
		return toFloat64(t), true
	case int64:
		return toFloat64(t), true
	case uint:
		return toFloat64(t), true
	case uint8:
		return toFloat64(t), true
	case uint16:
		return toFloat64(t), true
	case uint32:
		return toFloat64(t), true
	case uint64:
		return toFloat64(t), true
	case float32:
		return toFloat64(t), true
	case float64:
		return t, true
	}

	return 0, false
}

//////
// Helpers.
//////

func toFloat64[T constraints.Integer | constraints.Float](v T) float64 {
	return float64(v)
}

func fromUnsigned(u uint64) any {
	if u > math.MaxInt64 {
		return u
	}

	return int64(u)
}

func normalizeReflect(v any) any {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = Normalize(iter.Value().Interface())
		}

		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Normalize(rv.Index(i).Interface())
		}

		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fromUnsigned(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}

		return Normalize(rv.Elem().Interface())
	case reflect.Struct:
		return viaJSON(v)
	}

	return v
}

// viaJSON returns the JSON form of v decoded into plain values, or v itself
// if it cannot be encoded.
func viaJSON(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return v
	}

	return Normalize(out)
}

func fromNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}

	if f, err := n.Float64(); err == nil {
		return f
	}

	return n.String()
}
