package attr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPath(t *testing.T, name string) Path {
	t.Helper()
	p, err := ParsePath(name)
	require.NoError(t, err)
	return p
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Path
		wantErr bool
	}{
		{name: "single segment", input: "color", want: Path{"color"}},
		{name: "nested", input: "a.b.c", want: Path{"a", "b", "c"}},
		{name: "opaque segments", input: "a-b.$x.1", want: Path{"a-b", "$x", "1"}},
		{name: "empty", input: "", wantErr: true},
		{name: "leading dot", input: ".a", wantErr: true},
		{name: "double dot", input: "a..b", wantErr: true},
		{name: "trailing dot", input: "a.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestTree_SetThenGet(t *testing.T) {
	nested := NewTree()
	nested.Put("x", Int(1))

	tests := []struct {
		name  string
		path  string
		value Value
	}{
		{name: "top level string", path: "name", value: String("bob")},
		{name: "deep int", path: "a.b.c.d", value: Int(42)},
		{name: "float", path: "m.ratio", value: Float(0.5)},
		{name: "bool", path: "flags.on", value: Bool(true)},
		{name: "null", path: "gone", value: Null()},
		{name: "binary", path: "blob", value: Bytes([]byte{0xff, 0x00, 0xfe})},
		{name: "subtree", path: "p.q", value: TreeValue(nested)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := NewTree()
			p := mustPath(t, tt.path)
			require.NoError(t, tree.Set(p, tt.value))

			got, ok := tree.Get(p)
			require.True(t, ok)
			assert.True(t, tt.value.Equal(got), "got %s, want %s", got, tt.value)
		})
	}
}

func TestTree_SetDescendsIntoExistingContainers(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Set(mustPath(t, "prefs.theme"), String("dark")))
	require.NoError(t, tree.Set(mustPath(t, "prefs.volume"), Int(7)))

	prefs, ok := tree.Get(mustPath(t, "prefs"))
	require.True(t, ok)
	require.Equal(t, KindTree, prefs.Kind())
	assert.Equal(t, []string{"theme", "volume"}, prefs.Tree().Keys())
	assert.Equal(t, 1, tree.Len())
}

func TestTree_SetOverwritesInPlace(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Set(mustPath(t, "a"), Int(1)))
	require.NoError(t, tree.Set(mustPath(t, "b"), Int(2)))
	require.NoError(t, tree.Set(mustPath(t, "a"), Int(3)))

	assert.Equal(t, []string{"a", "b"}, tree.Keys())
	got, _ := tree.Get(mustPath(t, "a"))
	assert.Equal(t, int64(3), got.Int())
}

func TestTree_SetReplacesScalarInTheWay(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Set(mustPath(t, "a"), String("scalar")))
	require.NoError(t, tree.Set(mustPath(t, "a.b.c"), Int(1)))

	got, ok := tree.Get(mustPath(t, "a.b.c"))
	require.True(t, ok)
	assert.Equal(t, int64(1), got.Int())

	a, _ := tree.Get(mustPath(t, "a"))
	assert.Equal(t, KindTree, a.Kind())
}

func TestTree_SetClonesSubtrees(t *testing.T) {
	sub := NewTree()
	sub.Put("k", Int(1))

	tree := NewTree()
	require.NoError(t, tree.Set(mustPath(t, "x"), TreeValue(sub)))
	sub.Put("k", Int(2))

	got, _ := tree.Get(mustPath(t, "x.k"))
	assert.Equal(t, int64(1), got.Int())
}

func TestTree_GetAbsent(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Set(mustPath(t, "a.b"), Int(1)))

	for _, name := range []string{"missing", "a.c", "a.b.c", "a.b.c.d"} {
		t.Run(name, func(t *testing.T) {
			v, ok := tree.Get(mustPath(t, name))
			assert.False(t, ok)
			assert.True(t, v.IsNull())
			assert.False(t, tree.IsSet(mustPath(t, name)))
		})
	}
}

func TestTree_SetRejectsHandBuiltEmptySegments(t *testing.T) {
	tree := NewTree()

	for _, p := range []Path{{}, {"x", "", "y"}, {""}, {"x", ""}} {
		t.Run(p.String(), func(t *testing.T) {
			err := tree.Set(p, Int(1))
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
	assert.Equal(t, 0, tree.Len())
}

func TestTree_UnsetNullsButKeepsKey(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Set(mustPath(t, "a.b"), Int(1)))

	tree.Unset(mustPath(t, "a.b"))

	assert.True(t, tree.IsSet(mustPath(t, "a.b")))
	v, ok := tree.Get(mustPath(t, "a.b"))
	assert.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestTree_UnsetMissingIsNoop(t *testing.T) {
	tree := NewTree()
	tree.Unset(mustPath(t, "a.b"))
	assert.Equal(t, 0, tree.Len())
}

func TestTree_Paths(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Set(mustPath(t, "a.b"), Int(1)))
	require.NoError(t, tree.Set(mustPath(t, "a.c.d"), Int(2)))
	require.NoError(t, tree.Set(mustPath(t, "e"), Null()))

	assert.Equal(t, []string{"a", "a.b", "a.c", "a.c.d", "e"}, tree.Paths())
}

func TestTree_Delete(t *testing.T) {
	tree := NewTree()
	tree.Put("a", Int(1))
	tree.Put("b", Int(2))
	tree.Put("c", Int(3))

	tree.Delete("b")
	tree.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, tree.Keys())
	_, ok := tree.Lookup("b")
	assert.False(t, ok)
}
