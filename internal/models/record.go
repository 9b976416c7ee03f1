package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotObject is returned when a payload is valid JSON but not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Field is one key/value pair of a Record. Value holds raw JSON.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Record is a JSON object that keeps its keys in the order they were first
// seen. Client payloads pass through it unchanged apart from the keys the
// service injects.
type Record struct {
	fields []Field
}

// ParseRecord decodes a JSON object into a Record. A repeated key keeps the
// position of its first occurrence and the value of its last.
func ParseRecord(data []byte) (Record, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return Record{}, ErrNotObject
	}
	var rec Record
	if err := rec.UnmarshalJSON(data); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Len returns the number of keys.
func (r Record) Len() int {
	return len(r.fields)
}

// Fields returns a copy of the record's fields in order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Keys returns the record's keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Raw returns the raw JSON value stored under key.
func (r Record) Raw(key string) (json.RawMessage, bool) {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Get decodes the value stored under key into dst. It reports false when the
// key is absent.
func (r Record) Get(key string, dst any) (bool, error) {
	raw, ok := r.Raw(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// String returns the string stored under key. Missing keys and non-string
// values yield ok == false.
func (r Record) String(key string) (string, bool) {
	raw, ok := r.Raw(key)
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// IsNull reports whether key is present with a JSON null value.
func (r Record) IsNull(key string) bool {
	raw, ok := r.Raw(key)
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Set stores value under key. An existing key is overwritten in place,
// a new key is appended.
func (r *Record) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	r.setRaw(key, raw)
	return nil
}

func (r *Record) setRaw(key string, raw json.RawMessage) {
	for i := range r.fields {
		if r.fields[i].Key == key {
			r.fields[i].Value = raw
			return
		}
	}
	r.fields = append(r.fields, Field{Key: key, Value: raw})
}

// Delete removes key, keeping the order of the remaining fields.
func (r *Record) Delete(key string) bool {
	for i := range r.fields {
		if r.fields[i].Key == key {
			r.fields = append(r.fields[:i], r.fields[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	if r.fields == nil {
		return Record{}
	}
	out := Record{fields: make([]Field, len(r.fields))}
	for i, f := range r.fields {
		out.fields[i] = Field{Key: f.Key, Value: append(json.RawMessage(nil), f.Value...)}
	}
	return out
}

// MarshalJSON writes the fields in order. The zero Record, like a nil map,
// encodes as null. Keys are written without HTML escaping.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	keys := json.NewEncoder(&buf)
	keys.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := keys.Encode(f.Key); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1) // Encode appends a newline
		buf.WriteByte(':')
		if len(f.Value) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(f.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order. null leaves the
// Record unchanged.
func (r *Record) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}

	out := Record{fields: make([]Field, 0)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		out.setRaw(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after JSON object")
	}

	*r = out
	return nil
}
