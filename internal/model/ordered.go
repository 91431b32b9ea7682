package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ordered is a string-keyed map that remembers insertion order. Decoding
// keeps the key order of the JSON document, encoding writes keys back in the
// same order, so products and categories keep their storage order across a
// load/save cycle.
type Ordered[V any] struct {
	keys []string
	m    map[string]V
}

// NewOrdered returns an empty Ordered map.
func NewOrdered[V any]() Ordered[V] {
	return Ordered[V]{m: make(map[string]V)}
}

func (o *Ordered[V]) Len() int { return len(o.keys) }

// Keys returns the keys in insertion order. The slice is a copy.
func (o *Ordered[V]) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Ordered[V]) Get(key string) (V, bool) {
	v, ok := o.m[key]
	return v, ok
}

func (o *Ordered[V]) Has(key string) bool {
	_, ok := o.m[key]
	return ok
}

// Set stores v under key. A new key is appended; an existing key keeps its
// position.
func (o *Ordered[V]) Set(key string, v V) {
	if o.m == nil {
		o.m = make(map[string]V)
	}
	if _, ok := o.m[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.m[key] = v
}

// Each calls fn for every entry in insertion order until fn returns false.
func (o *Ordered[V]) Each(fn func(key string, v V) bool) {
	for _, k := range o.keys {
		if !fn(k, o.m[k]) {
			return
		}
	}
}

// Clone returns a shallow copy; values are copied by assignment.
func (o *Ordered[V]) Clone() Ordered[V] {
	c := Ordered[V]{keys: make([]string, len(o.keys)), m: make(map[string]V, len(o.m))}
	copy(c.keys, o.keys)
	for k, v := range o.m {
		c.m[k] = v
	}
	return c
}

func (o Ordered[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalNoEscape(o.m[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Ordered[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = NewOrdered[V]()
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	out := NewOrdered[V]()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		var v V
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

// marshalNoEscape encodes v without HTML escaping so non-ASCII and markup
// characters in names survive a round trip unchanged.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
