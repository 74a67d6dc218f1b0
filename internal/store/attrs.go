package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind identifies the native type of an attribute value.
type ValueKind string

const (
	KindString  ValueKind = "string"
	KindFloat   ValueKind = "float"
	KindInt     ValueKind = "int"
	KindBool    ValueKind = "bool"
	KindFloats  ValueKind = "floats"
	KindStrings ValueKind = "strings"
)

// Value is a typed attribute value.
type Value struct {
	Kind ValueKind

	Str     string
	Num     float64
	Int     int64
	Bool    bool
	Floats  []float64
	Strings []string
}

// String wraps a string attribute value.
func String(v string) Value { return Value{Kind: KindString, Str: v} }

// Float wraps a float attribute value.
func Float(v float64) Value { return Value{Kind: KindFloat, Num: v} }

// Int wraps an integer attribute value.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Bool wraps a boolean attribute value.
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// Floats wraps a float-list attribute value.
func Floats(v []float64) Value { return Value{Kind: KindFloats, Floats: v} }

// Strings wraps a string-list attribute value.
func Strings(v []string) Value { return Value{Kind: KindStrings, Strings: v} }

// Display renders the value for listings.
func (v Value) Display() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindFloat:
		return fmt.Sprintf("%g", v.Num)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindFloats:
		return fmt.Sprintf("%v", v.Floats)
	case KindStrings:
		return fmt.Sprintf("%v", v.Strings)
	default:
		return "?"
	}
}

// marshal serializes the native value as JSON for the value column.
func (v Value) marshal() (string, error) {
	var native any
	switch v.Kind {
	case KindString:
		native = v.Str
	case KindFloat:
		native = v.Num
	case KindInt:
		native = v.Int
	case KindBool:
		native = v.Bool
	case KindFloats:
		native = v.Floats
	case KindStrings:
		native = v.Strings
	default:
		return "", fmt.Errorf("unknown attribute kind '%s'", v.Kind)
	}

	data, err := json.Marshal(native)
	if err != nil {
		return "", fmt.Errorf("encode attribute: %w", err)
	}
	return string(data), nil
}

// unmarshalValue decodes a value column entry according to its kind.
func unmarshalValue(kind ValueKind, raw string) (Value, error) {
	v := Value{Kind: kind}

	var err error
	switch kind {
	case KindString:
		err = json.Unmarshal([]byte(raw), &v.Str)
	case KindFloat:
		err = json.Unmarshal([]byte(raw), &v.Num)
	case KindInt:
		err = json.Unmarshal([]byte(raw), &v.Int)
	case KindBool:
		err = json.Unmarshal([]byte(raw), &v.Bool)
	case KindFloats:
		err = json.Unmarshal([]byte(raw), &v.Floats)
	case KindStrings:
		err = json.Unmarshal([]byte(raw), &v.Strings)
	default:
		return Value{}, fmt.Errorf("unknown attribute kind '%s'", kind)
	}

	if err != nil {
		return Value{}, fmt.Errorf("decode attribute: %w", err)
	}
	return v, nil
}

// Attrs is the attribute set attached to a dataset.
type Attrs map[string]Value

// Clone returns a copy of the attribute set.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	for name, value := range a {
		out[name] = value
	}
	return out
}

// Names returns the attribute names in sorted order.
func (a Attrs) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetString returns a string attribute, with "" when absent.
func (a Attrs) GetString(name string) string {
	if v, ok := a[name]; ok && v.Kind == KindString {
		return v.Str
	}
	return ""
}

// GetFloat returns a float attribute, with ok reporting presence.
func (a Attrs) GetFloat(name string) (float64, bool) {
	if v, ok := a[name]; ok && v.Kind == KindFloat {
		return v.Num, true
	}
	return 0, false
}

// GetInt returns an integer attribute, with ok reporting presence.
func (a Attrs) GetInt(name string) (int64, bool) {
	if v, ok := a[name]; ok && v.Kind == KindInt {
		return v.Int, true
	}
	return 0, false
}
