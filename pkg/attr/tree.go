package attr

import (
	"sort"
	"strings"
)

// Tree is an insertion-ordered map from key to Value. It is owned by a
// single record and is not safe for concurrent mutation.
type Tree struct {
	keys    []string
	entries map[string]Value
}

// NewTree creates an empty tree
func NewTree() *Tree {
	return &Tree{entries: make(map[string]Value)}
}

// TreeOf builds a tree from a native map. Keys are inserted in sorted
// order since Go maps carry none.
func TreeOf(m map[string]any) (*Tree, error) {
	v, err := ValueOf(m)
	if err != nil {
		return nil, err
	}
	return v.Tree(), nil
}

// Len returns the number of top-level entries
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the top-level keys in insertion order
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Lookup returns the value stored under key
func (t *Tree) Lookup(key string) (Value, bool) {
	if t == nil {
		return Null(), false
	}
	v, ok := t.entries[key]
	return v, ok
}

// Put stores v under key. Existing keys keep their position.
func (t *Tree) Put(key string, v Value) {
	if _, ok := t.entries[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.entries[key] = v
}

// Delete removes key from the tree
func (t *Tree) Delete(key string) {
	if _, ok := t.entries[key]; !ok {
		return
	}
	delete(t.entries, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

// Range calls fn for each entry in order until fn returns false
func (t *Tree) Range(fn func(key string, v Value) bool) {
	if t == nil {
		return
	}
	for _, k := range t.keys {
		if !fn(k, t.entries[k]) {
			return
		}
	}
}

// Clone returns a deep copy
func (t *Tree) Clone() *Tree {
	out := NewTree()
	t.Range(func(k string, v Value) bool {
		out.Put(k, v.Clone())
		return true
	})
	return out
}

// Equal reports whether both trees hold the same entries in the same order
func (t *Tree) Equal(o *Tree) bool {
	if t.Len() != o.Len() {
		return false
	}
	if t.Len() == 0 {
		return true
	}
	for i, k := range t.keys {
		if o.keys[i] != k || !t.entries[k].Equal(o.entries[k]) {
			return false
		}
	}
	return true
}

func (t *Tree) String() string {
	var b strings.Builder
	b.WriteByte('{')
	t.Range(func(k string, v Value) bool {
		if b.Len() > 1 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v.String())
		return true
	})
	b.WriteByte('}')
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
