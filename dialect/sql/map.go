package sql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Pair is one key/value entry of a Map.
type Pair struct {
	Key   string
	Value any
}

// Map is an ordered condition or value mapping. Keys are attribute
// names, column names or operator tokens; compilers emit entries in slice
// order. A plain map[string]any is accepted wherever a Map is, with field
// keys first and operator keys last, each group sorted.
type Map []Pair

// M builds a Map from alternating keys and values.
//
//	sql.M("status", "A", "or", []any{sql.M("qty", sql.M("lt", 30))})
//
// M panics when given an odd number of arguments or a non-string key.
func M(kv ...any) Map {
	if len(kv)%2 != 0 {
		panic("sql: M called with an odd number of arguments")
	}
	m := make(Map, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		var key string
		switch k := kv[i].(type) {
		case string:
			key = k
		case Op:
			key = string(k)
		default:
			panic(fmt.Sprintf("sql: M key %v is %T, not a string", kv[i], kv[i]))
		}
		m = append(m, Pair{Key: key, Value: kv[i+1]})
	}
	return m
}

// Get returns the value stored under key.
func (m Map) Get(key string) (any, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys of m in order.
func (m Map) Keys() []string {
	keys := make([]string, len(m))
	for i, p := range m {
		keys[i] = p.Key
	}
	return keys
}

// MarshalJSON encodes m as a JSON object, keeping the key order.
func (m Map) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// normalize turns loose input into the closed value tree the compilers
// operate on: maps become Maps with aliases replaced by canonical
// tokens, typed slices become []any, everything else is kept.
func normalize(v any) any {
	switch v := v.(type) {
	case nil, string, bool, []byte, json.RawMessage, time.Time, uuid.UUID, Expr:
		return v
	case Map:
		out := make(Map, len(v))
		for i, p := range v {
			out[i] = Pair{Key: unalias(p.Key), Value: normalize(p.Value)}
		}
		return out
	case map[string]any:
		return normalizeMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return normalizeMap(m)
	}
	return v
}

func normalizeMap(m map[string]any) Map {
	out := make(Map, 0, len(m))
	for k, v := range m {
		out = append(out, Pair{Key: unalias(k), Value: normalize(v)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := isOp(out[i].Key), isOp(out[j].Key)
		if oi != oj {
			return oj
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// complexSize is the number of clauses a group item contributes.
func complexSize(v any) int {
	switch v := v.(type) {
	case Map:
		return len(v)
	case []any:
		return len(v)
	}
	return 0
}
