package attr

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTree
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTree:
		return "tree"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single dynamic attribute: a scalar, a null or a nested tree.
// Strings may carry arbitrary bytes, which is how binary values are held.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    *Tree
}

// Null returns the null value
func Null() Value { return Value{} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes returns a string value holding a copy of b
func Bytes(b []byte) Value { return Value{kind: KindString, s: string(b)} }

// Int returns an integer value
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// TreeValue wraps a subtree. A nil tree becomes an empty one.
func TreeValue(t *Tree) Value {
	if t == nil {
		t = NewTree()
	}
	return Value{kind: KindTree, t: t}
}

// Kind reports the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar reports whether v is a non-null, non-tree value
func (v Value) IsScalar() bool { return v.kind != KindNull && v.kind != KindTree }

// Str returns the string payload, or "" for other kinds
func (v Value) Str() string { return v.s }

// Bytes returns the string payload as a byte slice
func (v Value) Bytes() []byte {
	if v.kind != KindString {
		return nil
	}
	return []byte(v.s)
}

// Int returns the integer payload
func (v Value) Int() int64 { return v.i }

// Float returns the float payload
func (v Value) Float() float64 { return v.f }

// Bool returns the boolean payload
func (v Value) Bool() bool { return v.b }

// Tree returns the subtree, or nil when v is not a tree
func (v Value) Tree() *Tree { return v.t }

// IsEmptyTree reports whether v is a tree with no entries
func (v Value) IsEmptyTree() bool { return v.kind == KindTree && v.t.Len() == 0 }

// Truthy follows the usual loose truthiness of decoded payloads:
// null, false, 0, 0.0, "" and the empty tree are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		return v.s != ""
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindBool:
		return v.b
	case KindTree:
		return v.t.Len() > 0
	default:
		return false
	}
}

// Equal reports deep equality. Floats compare by value, trees by order and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBool:
		return v.b == o.b
	case KindTree:
		return v.t.Equal(o.t)
	}
	return false
}

// Clone returns a deep copy of v
func (v Value) Clone() Value {
	if v.kind == KindTree {
		return TreeValue(v.t.Clone())
	}
	return v
}

// Interface converts v to plain Go values: nil, string, int64, float64,
// bool or map[string]any for trees.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTree:
		m := make(map[string]any, v.t.Len())
		v.t.Range(func(k string, child Value) bool {
			m[k] = child.Interface()
			return true
		})
		return m
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return strconv.Quote(v.s)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTree:
		return v.t.String()
	}
	return "?"
}

// ValueOf converts a native Go value into a Value
func ValueOf(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case *Tree:
		return TreeValue(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Bytes(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return Null(), fmt.Errorf("integer %d overflows int64", x)
		}
		return Int(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Null(), fmt.Errorf("integer %d overflows int64", x)
		}
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case map[string]any:
		t := NewTree()
		for _, k := range sortedKeys(x) {
			child, err := ValueOf(x[k])
			if err != nil {
				return Null(), fmt.Errorf("key %q: %w", k, err)
			}
			t.Put(k, child)
		}
		return TreeValue(t), nil
	case []any:
		t := NewTree()
		for i, item := range x {
			child, err := ValueOf(item)
			if err != nil {
				return Null(), fmt.Errorf("index %d: %w", i, err)
			}
			t.Put(strconv.Itoa(i), child)
		}
		return TreeValue(t), nil
	default:
		return Null(), fmt.Errorf("unsupported attribute type %T", x)
	}
}

// MustValueOf is ValueOf for literals known to be convertible
func MustValueOf(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}
