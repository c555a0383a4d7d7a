package params

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Param is a single key/value entry of a parameter set.
type Param struct {
	Key   string
	Value string
}

// Set is an ordered parameter set.
//
// Values are kept as their textual representation so that a set read from a
// document is written back exactly as it was read. All accessor methods
// return default values if the key is missing or the value cannot be
// converted to the requested type.
//
// Set is a value type: Put and Delete return a modified copy and never touch
// the receiver.
type Set struct {
	entries []Param
}

// New creates a Set from the given pairs, keeping their order.
// A repeated key keeps its first position and its last value.
func New(pairs ...Param) Set {
	var s Set
	for _, p := range pairs {
		s = s.Put(p.Key, p.Value)
	}
	return s
}

// FromMap creates a Set from a map. Keys are sorted so the result is
// deterministic; values are formatted with fmt unless they are strings.
func FromMap(data map[string]any) Set {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	s := Set{entries: make([]Param, 0, len(keys))}
	for _, k := range keys {
		s.entries = append(s.entries, Param{Key: k, Value: format(data[k])})
	}
	return s
}

func format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Duration:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Len returns the number of entries.
func (s Set) Len() int {
	return len(s.entries)
}

// IsZero reports whether the set is empty. It lets yaml omitempty drop
// empty sets.
func (s Set) IsZero() bool {
	return len(s.entries) == 0
}

// Keys returns the keys in order.
func (s Set) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, p := range s.entries {
		keys[i] = p.Key
	}
	return keys
}

// Params returns a copy of the entries in order.
func (s Set) Params() []Param {
	return slices.Clone(s.entries)
}

func (s Set) index(key string) int {
	for i, p := range s.entries {
		if p.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the raw value for key and whether it exists.
func (s Set) Get(key string) (string, bool) {
	if i := s.index(key); i >= 0 {
		return s.entries[i].Value, true
	}
	return "", false
}

// Has returns true if the key exists in the set.
func (s Set) Has(key string) bool {
	return s.index(key) >= 0
}

// Put returns a copy of the set with key set to value. An existing key
// keeps its position.
func (s Set) Put(key, value string) Set {
	entries := slices.Clone(s.entries)
	for i := range entries {
		if entries[i].Key == key {
			entries[i].Value = value
			return Set{entries: entries}
		}
	}
	return Set{entries: append(entries, Param{Key: key, Value: value})}
}

// Delete returns a copy of the set without key.
func (s Set) Delete(key string) Set {
	i := s.index(key)
	if i < 0 {
		return s
	}
	entries := slices.Clone(s.entries)
	return Set{entries: slices.Delete(entries, i, i+1)}
}

// Merge returns a copy of s with every entry of other put on top of it.
func (s Set) Merge(other Set) Set {
	out := Set{entries: slices.Clone(s.entries)}
	for _, p := range other.entries {
		out = out.Put(p.Key, p.Value)
	}
	return out
}

// Equal reports whether both sets hold the same entries in the same order.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.entries, other.entries)
}

// String returns the string value for key, or defaultVal if missing.
func (s Set) String(key, defaultVal string) string {
	if v, ok := s.Get(key); ok {
		return v
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not an
// integer. Floats without a fractional part are accepted.
func (s Set) Int(key string, defaultVal int) int {
	v, ok := s.Get(key)
	if !ok {
		return defaultVal
	}
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return defaultVal
}

// Float returns the float64 value for key, or defaultVal if missing or invalid.
func (s Set) Float(key string, defaultVal float64) float64 {
	v, ok := s.Get(key)
	if !ok {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return f
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or invalid.
// Accepts the forms understood by strconv.ParseBool plus "yes"/"no"/"on"/"off".
func (s Set) Bool(key string, defaultVal bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return defaultVal
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
		return b
	}
	return defaultVal
}

// Duration returns the duration value for key, or defaultVal if missing or
// invalid.
//
// Accepts:
//   - a string understood by time.ParseDuration ("250ms", "1m30s")
//   - a bare number, interpreted as seconds
func (s Set) Duration(key string, defaultVal time.Duration) time.Duration {
	v, ok := s.Get(key)
	if !ok {
		return defaultVal
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	return defaultVal
}

// StringSlice returns a comma separated value split into trimmed parts,
// or defaultVal if the key is missing.
func (s Set) StringSlice(key string, defaultVal []string) []string {
	v, ok := s.Get(key)
	if !ok {
		return defaultVal
	}
	if v == "" {
		return []string{}
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
