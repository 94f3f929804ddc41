// Package value implements the JSON-like tagged value type that flows
// through a CloudLens pipeline: null, bool, number, string, array, and
// ordered object. It is implemented against the reference
// architecture's own idiom for ad hoc JSON (plain Go types, no schema)
// rather than against a third-party JSON-tree library, since no such
// library appears with an actual call site anywhere in the retrieved
// pack (see DESIGN.md).
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/elliotchance/orderedmap/v3"
)

// Kind identifies which variant a Value currently holds.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the six JSON variants. The zero value is
// Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  *orderedmap.OrderedMap[string, Value]
}

// NewNull returns the null value.
func NewNull() Value { return Value{kind: Null} }

// NewBool wraps a bool.
func NewBool(b bool) Value { return Value{kind: Bool, b: b} }

// NewNumber wraps a float64.
func NewNumber(n float64) Value { return Value{kind: Number, n: n} }

// NewString wraps a string.
func NewString(s string) Value { return Value{kind: String, s: s} }

// NewArray wraps an ordered slice of Values. The slice is copied.
func NewArray(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: Array, arr: cp}
}

// NewObject returns an empty object value.
func NewObject() Value {
	return Value{kind: Object, obj: orderedmap.NewOrderedMap[string, Value]()}
}

// Kind reports the variant currently held.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.kind == Null }

// AsBool returns the bool payload and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

// AsNumber returns the float64 payload and whether v is a Number.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == Number }

// AsString returns the string payload and whether v is a String.
func (v Value) AsString() (string, bool) { return v.s, v.kind == String }

// AsArray returns the backing slice and whether v is an Array. The
// returned slice aliases v's storage; callers must not retain it across
// mutation.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == Array }

// Len returns the number of elements (Array) or fields (Object); zero
// otherwise.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		if v.obj == nil {
			return 0
		}
		return v.obj.Len()
	default:
		return 0
	}
}

// Append appends item to an Array value in place. It is an error to
// call Append on a non-Array.
func (v *Value) Append(item Value) error {
	if v.kind != Array {
		return fmt.Errorf("value: Append on non-array kind %s", v.kind)
	}
	v.arr = append(v.arr, item)
	return nil
}

// Field returns the value stored at name in an Object, and whether the
// field is present. Calling Field on a non-Object always returns
// (Null, false).
func (v Value) Field(name string) (Value, bool) {
	if v.kind != Object || v.obj == nil {
		return Value{}, false
	}
	return v.obj.Get(name)
}

// SetField sets name to val on an Object in place, preserving insertion
// order of existing keys. It is an error to call SetField on a
// non-Object.
func (v *Value) SetField(name string, val Value) error {
	if v.kind != Object {
		return fmt.Errorf("value: SetField on non-object kind %s", v.kind)
	}
	if v.obj == nil {
		v.obj = orderedmap.NewOrderedMap[string, Value]()
	}
	v.obj.Set(name, val)
	return nil
}

// RemoveField deletes name from an Object in place. It reports whether
// the field was present. Calling RemoveField on a non-Object is a no-op
// that reports false.
func (v *Value) RemoveField(name string) bool {
	if v.kind != Object || v.obj == nil {
		return false
	}
	return v.obj.Delete(name)
}

// FieldNames returns the object's field names in insertion order. It
// returns nil for non-Objects.
func (v Value) FieldNames() []string {
	if v.kind != Object || v.obj == nil {
		return nil
	}
	return v.obj.Keys()
}

// Equal reports deep structural equality. Number equality is exact
// float64 comparison. The engine only ever compares records against
// Null for suppression, but full structural equality is provided for
// testing and history round-trip checks.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == other.b
	case Number:
		return v.n == other.n
	case String:
		return v.s == other.s
	case Array:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		names := v.FieldNames()
		otherNames := other.FieldNames()
		if len(names) != len(otherNames) {
			return false
		}
		for _, name := range names {
			a, _ := v.Field(name)
			b, ok := other.Field(name)
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a canonical JSON representation, used for printing
// records in CLI output.
func (v Value) String() string {
	data, err := json.Marshal(v.toPlain())
	if err != nil {
		return fmt.Sprintf("<value: %v>", err)
	}
	return string(data)
}

// toPlain converts to a plain interface{} tree suitable for
// encoding/json, matching the reference architecture's own habit of
// marshaling ad hoc trees built from map[string]interface{}/[]interface{}.
func (v Value) toPlain() interface{} {
	switch v.kind {
	case Null:
		return nil
	case Bool:
		return v.b
	case Number:
		return v.n
	case String:
		return v.s
	case Array:
		out := make([]interface{}, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.toPlain()
		}
		return out
	case Object:
		m := make(map[string]interface{}, v.Len())
		for _, name := range v.FieldNames() {
			f, _ := v.Field(name)
			m[name] = f.toPlain()
		}
		return orderedJSONObject{names: v.FieldNames(), values: m}
	default:
		return nil
	}
}

// orderedJSONObject implements json.Marshaler so that object field
// order survives String()'s rendering, since encoding/json otherwise
// sorts map[string]interface{} keys alphabetically.
type orderedJSONObject struct {
	names  []string
	values map[string]interface{}
}

func (o orderedJSONObject) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, name := range o.names {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		val, err := json.Marshal(o.values[name])
		if err != nil {
			return nil, err
		}
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// FromJSON parses JSON text into a Value. Object fields are stored in
// sorted key order; the order in which they appear in the text is not
// kept.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("value: invalid JSON: %w", err)
	}
	return fromInterface(raw), nil
}

func fromInterface(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return NewNull()
	case bool:
		return NewBool(x)
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return NewNull()
		}
		return NewNumber(f)
	case float64:
		return NewNumber(x)
	case string:
		return NewString(x)
	case []interface{}:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = fromInterface(item)
		}
		return NewArray(items...)
	case map[string]interface{}:
		// encoding/json does not preserve key order for
		// map[string]interface{}; sort for determinism rather than
		// pretending an order we never had.
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			_ = obj.SetField(k, fromInterface(x[k]))
		}
		return obj
	default:
		return NewNull()
	}
}
