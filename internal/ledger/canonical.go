package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrNotCanonical is returned when a payload contains values that cannot be
// encoded deterministically (NaN/Inf floats, cyclic structures, non-string
// map keys, channels, funcs). Such payloads are rejected outright; nothing
// is appended.
var ErrNotCanonical = errors.New("value cannot be canonically encoded")

// MarshalCanonical encodes v as canonical JSON: object keys sorted in byte
// order, "," and ":" separators with no padding, no HTML escaping, no
// trailing newline. Numbers that originated as JSON text keep their exact
// literal; Go numeric values render through encoding/json's deterministic
// formatting. Two calls with semantically equal inputs always produce
// identical bytes, which is what makes the chain digests reproducible.
func MarshalCanonical(v any) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, norm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalize reduces an arbitrary Go value to the generic JSON tree
// (nil, bool, string, json.Number, []any, map[string]any). Routing through
// encoding/json first means structs, named types and nested maps all collapse
// to their JSON meaning regardless of Go-side declaration order, and every
// non-representable value is caught here.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCanonical, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var norm any
	if err := dec.Decode(&norm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCanonical, err)
	}
	return norm, nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(val.String())
	case string:
		return writeCanonicalString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: unexpected type %T", ErrNotCanonical, v)
	}
	return nil
}

// writeCanonicalString encodes s as a JSON string without HTML escaping.
// UTF-8 stays verbatim; only characters JSON requires escaped are escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("%w: %v", ErrNotCanonical, err)
	}
	// Encoder.Encode writes a trailing newline; canonical output has none.
	buf.Truncate(buf.Len() - 1)
	return nil
}
