package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/gowebpki/jcs"
)

// EventTypeKey is the structured-form key carrying the type tag.
const EventTypeKey = "event_type"

// ToStructured renders e as a key/value mapping: envelope and payload fields
// under their JSON names, timestamps as RFC 3339 strings, numbers as json.Number,
// plus the type tag under EventTypeKey.
func ToStructured(e Event) (map[string]any, error) {
	if e == nil {
		return nil, NewDomainError("event", "ToStructured", ErrInvalidInput, "nil event")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return nil, WrapError("event", "ToStructured", ErrInvalidFormat, "marshal "+e.EventType().String(), err)
	}

	m, err := decodeObject(data)
	if err != nil {
		return nil, WrapError("event", "ToStructured", ErrInvalidFormat, "decode "+e.EventType().String(), err)
	}
	m[EventTypeKey] = e.EventType().String()
	return m, nil
}

// MaxExactInteger is the largest integer magnitude the text form carries
// exactly. RFC 8785 numbers are IEEE 754 doubles.
const MaxExactInteger = 1 << 53

// ToText renders e in its canonical text form (RFC 8785 JSON). Integers whose
// magnitude exceeds MaxExactInteger are rejected with ErrInvalidFormat.
func ToText(e Event) (string, error) {
	m, err := ToStructured(e)
	if err != nil {
		return "", err
	}
	if err := checkExactIntegers(reflect.ValueOf(e), ""); err != nil {
		return "", WrapError("event", "ToText", ErrInvalidFormat, "encode "+e.EventType().String(), err)
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return "", WrapError("event", "ToText", ErrInvalidFormat, "marshal "+e.EventType().String(), err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", WrapError("event", "ToText", ErrInvalidFormat, "canonicalize "+e.EventType().String(), err)
	}
	return string(canonical), nil
}

// FromStructured rebuilds an event of the given kind from its structured form.
// A type tag in m, if present, must match kind. Unknown fields are rejected.
func FromStructured(kind EventType, m map[string]any) (Event, error) {
	decode, ok := lookupDecoder(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, kind)
	}

	payload := make(map[string]any, len(m))
	for k, v := range m {
		if k != EventTypeKey {
			payload[k] = v
			continue
		}
		if tag, _ := v.(string); EventType(tag) != kind {
			return nil, fmt.Errorf("%w: got %v, want %s", ErrEventTypeMismatch, v, kind)
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError("event", "FromStructured", ErrInvalidFormat, "marshal "+kind.String(), err)
	}

	ev, err := decode(data)
	if err != nil {
		return nil, WrapError("event", "FromStructured", ErrInvalidFormat, "decode "+kind.String(), err)
	}
	return ev, nil
}

// FromText parses the text form of an event of the given kind.
func FromText(kind EventType, text string) (Event, error) {
	m, err := decodeObject([]byte(text))
	if err != nil {
		return nil, WrapError("event", "FromText", ErrInvalidFormat, "parse "+kind.String(), err)
	}
	return FromStructured(kind, m)
}

// DecodeText parses an event whose kind is taken from its embedded type tag.
func DecodeText(text string) (Event, error) {
	m, err := decodeObject([]byte(text))
	if err != nil {
		return nil, WrapError("event", "DecodeText", ErrInvalidFormat, "parse event", err)
	}

	tag, ok := m[EventTypeKey].(string)
	if !ok || tag == "" {
		return nil, ErrMissingEventType
	}
	return FromStructured(EventType(tag), m)
}

func decodeObject(data []byte) (map[string]any, error) {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return m, nil
}

// checkExactIntegers walks the exported fields of v and fails on the first
// integer that a double cannot represent.
func checkExactIntegers(v reflect.Value, path string) error {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n := v.Int(); n > MaxExactInteger || n < -MaxExactInteger {
			return fmt.Errorf("%s: %d is outside ±2^53", path, n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n := v.Uint(); n > MaxExactInteger {
			return fmt.Errorf("%s: %d is outside ±2^53", path, n)
		}
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			return checkExactIntegers(v.Elem(), path)
		}
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			fieldPath := path
			if !f.Anonymous {
				fieldPath = joinPath(path, jsonName(f))
			}
			if err := checkExactIntegers(v.Field(i), fieldPath); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			if err := checkExactIntegers(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkExactIntegers(iter.Value(), joinPath(path, fmt.Sprint(iter.Key().Interface()))); err != nil {
				return err
			}
		}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" {
		return name
	}
	return f.Name
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
