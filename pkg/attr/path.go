package attr

import (
	"errors"
	"fmt"
	"strings"
)

// Separator splits a dotted attribute name into path segments
const Separator = "."

// ErrInvalidPath is returned for names that do not form a usable path
var ErrInvalidPath = errors.New("invalid attribute path")

// Path is a parsed dotted name. Segments are opaque keys.
type Path []string

// ParsePath splits name on dots. Every segment must be non-empty.
func ParsePath(name string) (Path, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidPath)
	}
	segs := strings.Split(name, Separator)
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, name)
		}
	}
	return Path(segs), nil
}

func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Get resolves p against the tree. Missing segments and scalars in the
// way both report absent.
func (t *Tree) Get(p Path) (Value, bool) {
	if len(p) == 0 {
		return Null(), false
	}
	node := t
	for i, seg := range p {
		v, ok := node.Lookup(seg)
		if !ok {
			return Null(), false
		}
		if i == len(p)-1 {
			return v, true
		}
		if v.Kind() != KindTree {
			return Null(), false
		}
		node = v.Tree()
	}
	return Null(), false
}

// IsSet reports whether every segment of p resolves. A null leaf counts as set.
func (t *Tree) IsSet(p Path) bool {
	_, ok := t.Get(p)
	return ok
}

// Set stores v at p, creating intermediate trees as needed. A scalar
// sitting where the path must descend is replaced by a fresh subtree.
// Empty segments are rejected whether or not p came from ParsePath.
func (t *Tree) Set(p Path, v Value) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range p {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, p.String())
		}
	}
	v = v.Clone()
	node := t
	for i, seg := range p {
		if i == len(p)-1 {
			node.Put(seg, v)
			return nil
		}
		cur, ok := node.Lookup(seg)
		if ok && cur.Kind() == KindTree {
			node = cur.Tree()
			continue
		}
		node.Put(seg, TreeValue(nest(p[i+1:], v)))
		return nil
	}
	return nil
}

// Unset nulls the value at p when it is set. The key itself stays.
func (t *Tree) Unset(p Path) {
	if t.IsSet(p) {
		_ = t.Set(p, Null())
	}
}

// Paths lists every dotted path in the tree, parents before children
func (t *Tree) Paths() []string {
	var out []string
	t.walkPaths("", &out)
	return out
}

func (t *Tree) walkPaths(prefix string, out *[]string) {
	t.Range(func(k string, v Value) bool {
		name := k
		if prefix != "" {
			name = prefix + Separator + k
		}
		*out = append(*out, name)
		if v.Kind() == KindTree {
			v.Tree().walkPaths(name, out)
		}
		return true
	})
}

// nest builds {segs[0]: {segs[1]: ... v}} from the innermost level outward
func nest(segs []string, v Value) *Tree {
	for i := len(segs) - 1; i >= 0; i-- {
		level := NewTree()
		level.Put(segs[i], v)
		v = TreeValue(level)
	}
	return v.Tree()
}
