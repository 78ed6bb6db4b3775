package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Kind is the variant tag of a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindString
	KindInt
	KindBool
	KindArray
	KindObject
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindNull:    "null",
	KindString:  "string",
	KindInt:     "int",
	KindBool:    "bool",
	KindArray:   "array",
	KindObject:  "object",
}

// String returns the lower-case kind name used in scenario files.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name ("string", "int", ...) back to a Kind.
// "null" and "invalid" are not slot kinds and are rejected.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name && k != KindInvalid && k != KindNull {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown value kind %q", name)
}

// Value is a sealed interface; only the variants in this package implement it.
type Value interface {
	Kind() Kind
	value()
}

// Null is the explicit "no value" payload accepted by nullable keys.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string value.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Int is an integer value. Always int64.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Array is an ordered list of values. Elements may be of mixed kinds.
type Array []Value

func (Array) Kind() Kind { return KindArray }
func (Array) value()     {}

// Object is a string-keyed map of values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) Kind() Kind { return KindObject }
func (Object) value()     {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's string comparison orders by UTF-8 bytes, which differs for
// characters outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// KindOf returns v.Kind(), or KindInvalid for a nil interface.
func KindOf(v Value) Kind {
	if v == nil {
		return KindInvalid
	}
	return v.Kind()
}

// Equal reports whether a and b are the same variant with the same contents.
func Equal(a, b Value) bool {
	if KindOf(a) != KindOf(b) {
		return false
	}
	switch av := a.(type) {
	case nil:
		return true
	case Null:
		return true
	case String:
		return av == b.(String)
	case Int:
		return av == b.(Int)
	case Bool:
		return av == b.(Bool)
	case Array:
		bv := b.(Array)
		return slices.EqualFunc(av, bv, Equal)
	case Object:
		bv := b.(Object)
		if len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, ok := bv[k]
			if !ok || !Equal(ae, be) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FromAny converts decoded YAML or JSON data to a Value.
//
// Accepted inputs: nil, string, bool, int, int64, json.Number (integral),
// []any and map[string]any of the same. Floats are rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return Int(int64(val)), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not supported: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are not supported: %v", val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToAny converts a Value back to plain Go data (the inverse of FromAny).
// Null becomes nil and Int becomes int64.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// Parse decodes JSON into a Value, rejecting floats.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}
