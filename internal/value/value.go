// Package value implements the payload tree stored in a cache record: a
// JSON-like structure whose leaves may also be raw binary blobs.
package value

import (
	"bytes"
	"fmt"
	"sort"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindBinary
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is an immutable node of the payload tree. The zero Value is null.
type Value struct {
	kind  Kind
	str   string
	num   float64
	flag  bool
	bin   []byte
	items []Value
	props map[string]Value
}

func Null() Value { return Value{} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Int(n int64) Value { return Value{kind: KindNumber, num: float64(n)} }
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }

// Binary wraps p as a binary leaf. p is not copied.
func Binary(p []byte) Value { return Value{kind: KindBinary, bin: p} }

// Map builds a map node. A nil map yields an empty map node.
func Map(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindMap, props: fields}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) Str() string { return v.str }
func (v Value) Num() float64 { return v.num }
func (v Value) Flag() bool { return v.flag }
func (v Value) Bytes() []byte { return v.bin }
func (v Value) Items() []Value { return v.items }

// Fields returns the map's fields. Callers must not mutate the result.
func (v Value) Fields() map[string]Value { return v.props }

// Field returns the named field of a map node.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	f, ok := v.props[name]
	return f, ok
}

// Keys returns the field names of a map node in sorted order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.props))
	for k := range v.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromAny converts plain Go values into a Value. []byte becomes a binary
// leaf; maps are always maps, whatever their keys.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case []byte:
		return Binary(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = v
		}
		return Map(fields), nil
	}
	return Value{}, fmt.Errorf("value: unsupported type %T", x)
}

// MustFromAny is FromAny for literals known to be valid.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Any converts v back into plain Go values. Binary leaves become []byte.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.flag
	case KindBinary:
		return v.bin
	case KindArray:
		out := make([]any, len(v.items))
		for i, e := range v.items {
			out[i] = e.Any()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.props))
		for k, e := range v.props {
			out[k] = e.Any()
		}
		return out
	}
	return nil
}

// Equal reports whether a and b hold the same tree.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindString:
		return a.str == b.str
	case KindNumber:
		return a.num == b.num
	case KindBool:
		return a.flag == b.flag
	case KindBinary:
		return bytes.Equal(a.bin, b.bin)
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.props) != len(b.props) {
			return false
		}
		for k, av := range a.props {
			bv, ok := b.props[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Merge overlays the top-level fields of patch onto base. Nested maps are
// replaced, not merged. If either side is not a map, patch wins outright.
func Merge(base, patch Value) Value {
	if base.kind != KindMap || patch.kind != KindMap {
		return patch
	}
	out := make(map[string]Value, len(base.props)+len(patch.props))
	for k, v := range base.props {
		out[k] = v
	}
	for k, v := range patch.props {
		out[k] = v
	}
	return Map(out)
}

// Transform returns a copy of v with every binary leaf replaced by fn's
// result. Leaves are visited depth-first; map fields in sorted key order.
func Transform(v Value, fn func(p []byte) ([]byte, error)) (Value, error) {
	switch v.kind {
	case KindBinary:
		p, err := fn(v.bin)
		if err != nil {
			return Value{}, err
		}
		return Binary(p), nil
	case KindArray:
		items := make([]Value, len(v.items))
		for i, e := range v.items {
			t, err := Transform(e, fn)
			if err != nil {
				return Value{}, err
			}
			items[i] = t
		}
		return Array(items...), nil
	case KindMap:
		fields := make(map[string]Value, len(v.props))
		for _, k := range v.Keys() {
			t, err := Transform(v.props[k], fn)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = t
		}
		return Map(fields), nil
	}
	return v, nil
}
