package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	// ErrInvalidKey is returned for param keys that cannot appear in a query
	ErrInvalidKey = errors.New("invalid param key")
	// ErrInvalidValue is returned for values that are not JSON-serializable
	ErrInvalidValue = errors.New("invalid param value")
	// ErrMalformed is returned by Parse for text that is not a k=v list
	ErrMalformed = errors.New("malformed params")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DuplicateKeyError reports a key present in both operands of a merge
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate param key %q", e.Key)
}

// Entry is a single key/value assignment
type Entry struct {
	Key   string
	Value any
}

// Spec is one point in a test's parameter space: an ordered set of
// key/value entries with unique keys. The zero value is the empty Spec.
// A Spec is never mutated after construction.
type Spec struct {
	entries []Entry
}

// New builds a Spec from entries, rejecting duplicate or invalid keys
// and values that do not serialize to JSON.
func New(entries ...Entry) (Spec, error) {
	var s Spec
	for _, e := range entries {
		next, err := s.With(e.Key, e.Value)
		if err != nil {
			return Spec{}, err
		}
		s = next
	}
	return s, nil
}

// MustOf builds a Spec from alternating keys and values and panics on error.
// Intended for tests and static tables.
func MustOf(kv ...any) Spec {
	if len(kv)%2 != 0 {
		panic("params.MustOf: odd number of arguments")
	}
	entries := make([]Entry, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("params.MustOf: key %v is not a string", kv[i]))
		}
		entries = append(entries, Entry{Key: key, Value: kv[i+1]})
	}
	s, err := New(entries...)
	if err != nil {
		panic("params.MustOf: " + err.Error())
	}
	return s
}

// With returns a copy of s extended by key=value.
func (s Spec) With(key string, value any) (Spec, error) {
	if !keyPattern.MatchString(key) {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if _, ok := s.Get(key); ok {
		return Spec{}, &DuplicateKeyError{Key: key}
	}
	if _, err := encodeValue(value); err != nil {
		return Spec{}, fmt.Errorf("%w for %q: %v", ErrInvalidValue, key, err)
	}
	entries := make([]Entry, len(s.entries), len(s.entries)+1)
	copy(entries, s.entries)
	return Spec{entries: append(entries, Entry{Key: key, Value: value})}, nil
}

// Len returns the number of entries
func (s Spec) Len() int {
	return len(s.entries)
}

// Keys returns the keys in entry order
func (s Spec) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in order
func (s Spec) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the value stored under key
func (s Spec) Get(key string) (any, bool) {
	for _, e := range s.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Merge returns the disjoint union of a and b, a's entries first.
// It fails with *DuplicateKeyError if any key of a is also in b.
func Merge(a, b Spec) (Spec, error) {
	for _, e := range a.entries {
		if _, ok := b.Get(e.Key); ok {
			return Spec{}, &DuplicateKeyError{Key: e.Key}
		}
	}
	if len(a.entries) == 0 {
		return b, nil
	}
	if len(b.entries) == 0 {
		return a, nil
	}
	entries := make([]Entry, 0, len(a.entries)+len(b.entries))
	entries = append(entries, a.entries...)
	entries = append(entries, b.entries...)
	return Spec{entries: entries}, nil
}

// Equal reports whether s and o hold the same keys in the same order with
// values that serialize to the same JSON.
func (s Spec) Equal(o Spec) bool {
	if len(s.entries) != len(o.entries) {
		return false
	}
	for i := range s.entries {
		if s.entries[i].Key != o.entries[i].Key {
			return false
		}
		a, errA := encodeValue(s.entries[i].Value)
		b, errB := encodeValue(o.entries[i].Value)
		if errA != nil || errB != nil || a != b {
			return false
		}
	}
	return true
}

// String serializes s as k=<json>,k=<json> in entry order. Parse is its inverse.
func (s Spec) String() string {
	var b strings.Builder
	for i, e := range s.entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.Key)
		b.WriteByte('=')
		v, err := encodeValue(e.Value)
		if err != nil {
			v = fmt.Sprintf("%q", fmt.Sprint(e.Value))
		}
		b.WriteString(v)
	}
	return b.String()
}

// MarshalJSON encodes s as a JSON object preserving entry order.
func (s Spec) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(e.Key)
		b.Write(k)
		b.WriteByte(':')
		v, err := encodeValue(e.Value)
		if err != nil {
			return nil, err
		}
		b.WriteString(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Parse decodes the k=<json>,... form produced by String. Values decode
// numbers as json.Number so that re-encoding is byte-identical.
func Parse(text string) (Spec, error) {
	if text == "" {
		return Spec{}, nil
	}
	parts, err := splitTopLevel(text)
	if err != nil {
		return Spec{}, err
	}
	var s Spec
	for _, part := range parts {
		key, raw, ok := strings.Cut(part, "=")
		if !ok {
			return Spec{}, fmt.Errorf("%w: %q is not key=value", ErrMalformed, part)
		}
		value, err := decodeValue(raw)
		if err != nil {
			return Spec{}, fmt.Errorf("%w: value of %q: %v", ErrMalformed, key, err)
		}
		next, err := s.With(key, value)
		if err != nil {
			return Spec{}, err
		}
		s = next
	}
	return s, nil
}

// splitTopLevel splits on commas that are not inside a JSON string, array or object.
func splitTopLevel(text string) ([]string, error) {
	var parts []string
	depth := 0
	inString := false
	escaped := false
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced %q at offset %d", ErrMalformed, c, i)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, text[start:i])
				start = i + 1
			}
		}
	}
	if inString || depth != 0 {
		return nil, fmt.Errorf("%w: unterminated value in %q", ErrMalformed, text)
	}
	return append(parts, text[start:]), nil
}

func encodeValue(v any) (string, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func decodeValue(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after value %q", raw)
	}
	return v, nil
}
