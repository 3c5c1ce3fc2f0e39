package record

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dynattr/pkg/attr"
	"github.com/ssargent/dynattr/pkg/dyncol"
	"github.com/ssargent/dynattr/pkg/metrics"
)

func newTestRecord(fixed ...string) *Record {
	codec := dyncol.NewMariaDB(dyncol.WithPlaceholders(&dyncol.Placeholders{}))
	return New(NewMapFields(fixed...), "attrs", WithCodec(codec), WithMetrics(metrics.New(prometheus.NewRegistry())))
}

// brokenFields fails every access with a non-schema error
type brokenFields struct{ err error }

func (b brokenFields) Field(string) (attr.Value, error)  { return attr.Null(), b.err }
func (b brokenFields) SetField(string, attr.Value) error { return b.err }
func (b brokenFields) FieldNames() []string              { return nil }

func TestRecord_FixedFieldsWin(t *testing.T) {
	r := newTestRecord("id", "name")

	require.NoError(t, r.Set("name", attr.String("ada")))
	got, err := r.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Str())

	assert.Equal(t, 0, r.Attributes().Len(), "fixed writes must not reach the dynamic tree")
}

func TestRecord_FallsBackToDynamicTree(t *testing.T) {
	r := newTestRecord("id")

	require.NoError(t, r.Set("prefs.theme", attr.String("dark")))

	got, err := r.Get("prefs.theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Str())

	set, err := r.IsSet("prefs.theme")
	require.NoError(t, err)
	assert.True(t, set)

	got, err = r.Get("prefs.missing")
	require.NoError(t, err)
	assert.True(t, got.IsNull())

	_, ok, err := r.Lookup("prefs.missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecord_SubtreeResultIsACopy(t *testing.T) {
	r := newTestRecord("id")
	require.NoError(t, r.Set("prefs.theme", attr.String("dark")))

	v, ok, err := r.Lookup("prefs")
	require.NoError(t, err)
	require.True(t, ok)
	v.Tree().Put("theme", attr.String("light"))
	v.Tree().Put("extra", attr.Int(1))

	got, err := r.Get("prefs")
	require.NoError(t, err)
	got.Tree().Put("other", attr.Int(2))

	theme, err := r.Get("prefs.theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", theme.Str())
	assert.Equal(t, []string{"prefs", "prefs.theme"}, r.Attributes().Paths())
}

func TestRecord_OtherFixedErrorsPropagate(t *testing.T) {
	boom := errors.New("connection reset")
	r := New(brokenFields{err: boom}, "attrs")

	_, err := r.Get("anything")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, r.Set("anything", attr.Int(1)), boom)
	_, err = r.IsSet("anything")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, r.Unset("anything"), boom)
}

func TestRecord_MissingColumnFailsFast(t *testing.T) {
	r := New(NewMapFields("id"), "")

	_, err := r.Get("dyn")
	assert.ErrorIs(t, err, ErrNoDynamicColumn)
	assert.ErrorIs(t, r.Set("dyn", attr.Int(1)), ErrNoDynamicColumn)
	assert.ErrorIs(t, r.OnLoad(Row{"x": "{}"}), ErrNoDynamicColumn)
	_, err = r.OnBeforeSave()
	assert.ErrorIs(t, err, ErrNoDynamicColumn)
	_, err = r.AllFieldNames()
	assert.ErrorIs(t, err, ErrNoDynamicColumn)

	// fixed fields still work
	require.NoError(t, r.Set("id", attr.Int(1)))
}

func TestRecord_UnsetKeepsNullUntilReload(t *testing.T) {
	r := newTestRecord("id")
	require.NoError(t, r.Set("a.b", attr.Int(1)))
	require.NoError(t, r.Set("a.c", attr.Int(2)))

	require.NoError(t, r.Unset("a.b"))

	set, err := r.IsSet("a.b")
	require.NoError(t, err)
	assert.True(t, set)
	v, err := r.Get("a.b")
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	expr, err := r.OnBeforeSave()
	require.NoError(t, err)
	for _, p := range expr.Params {
		assert.NotEqual(t, "b", p.Value)
	}

	payload, err := dyncol.Evaluate(expr.SQL, expr.Params)
	require.NoError(t, err)
	require.NoError(t, r.OnLoad(Row{"attrs": payload}))

	set, err = r.IsSet("a.b")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestRecord_UnsetFixedField(t *testing.T) {
	r := newTestRecord("name")
	require.NoError(t, r.Set("name", attr.String("x")))
	require.NoError(t, r.Unset("name"))

	set, err := r.IsSet("name")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestRecord_FieldNames(t *testing.T) {
	r := newTestRecord("id", "name")
	require.NoError(t, r.Set("a.b", attr.Int(1)))
	require.NoError(t, r.Set("a.c.d", attr.Int(2)))
	require.NoError(t, r.Set("e", attr.String("x")))

	assert.Equal(t, []string{"id", "name", "a", "e"}, r.FieldNames())

	all, err := r.AllFieldNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "attrs.a", "attrs.a.b", "attrs.a.c", "attrs.a.c.d", "attrs.e"}, all)
}

func TestRecord_OnLoad(t *testing.T) {
	t.Run("control characters", func(t *testing.T) {
		r := newTestRecord("id")
		require.NoError(t, r.OnLoad(Row{"id": int64(1), "attrs": []byte("{\"k\":\"x\x01y\"}")}))

		got, err := r.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "x\u0001y", got.Str())
	})

	t.Run("string payload", func(t *testing.T) {
		r := newTestRecord("id")
		require.NoError(t, r.OnLoad(Row{"attrs": `{"a":{"b":1}}`}))
		got, err := r.Get("a.b")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Int())
	})

	t.Run("raw bytes from a generic scan", func(t *testing.T) {
		r := newTestRecord("id")
		buf := sql.RawBytes(`{"a":{"b":2}}`)
		require.NoError(t, r.OnLoad(Row{"attrs": buf}))

		// drivers reuse the buffer on the next scan
		copy(buf, `{"z":{"z":9}}`)

		got, err := r.Get("a.b")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Int())
	})

	t.Run("null payload clears state", func(t *testing.T) {
		r := newTestRecord("id")
		require.NoError(t, r.Set("a", attr.Int(1)))
		require.NoError(t, r.OnLoad(Row{"attrs": nil}))
		assert.Equal(t, 0, r.Attributes().Len())
	})

	t.Run("row without column", func(t *testing.T) {
		r := newTestRecord("id")
		require.NoError(t, r.Set("a", attr.Int(1)))
		require.NoError(t, r.OnLoad(Row{"id": int64(3)}))
		assert.Equal(t, 1, r.Attributes().Len())
	})

	t.Run("malformed payload", func(t *testing.T) {
		r := newTestRecord("id")
		err := r.OnLoad(Row{"attrs": []byte(`{"a":`)})
		assert.ErrorIs(t, err, dyncol.ErrMalformedPayload)
	})

	t.Run("unexpected type", func(t *testing.T) {
		r := newTestRecord("id")
		assert.Error(t, r.OnLoad(Row{"attrs": 42}))
	})
}

func TestRecord_OnBeforeSave(t *testing.T) {
	r := newTestRecord("id")

	_, ok := r.Pending()
	assert.False(t, ok)

	require.NoError(t, r.Set("prefs.theme", attr.String("dark")))
	require.NoError(t, r.Set("prefs.volume", attr.Int(7)))

	expr, err := r.OnBeforeSave()
	require.NoError(t, err)
	assert.Equal(t, "COLUMN_CREATE(:dyncol1, COLUMN_CREATE(:dyncol2, :dyncol3, :dyncol4, :dyncol5))", expr.SQL)

	pending, ok := r.Pending()
	require.True(t, ok)
	assert.Equal(t, expr, pending)
}

func TestRecord_BinaryRoundTrip(t *testing.T) {
	avatar := []byte{0x00, 0xff, 0x10, 0x80, 'a'}

	r := newTestRecord("id")
	require.NoError(t, r.Set("avatar", attr.Bytes(avatar)))

	expr, err := r.OnBeforeSave()
	require.NoError(t, err)
	payload, err := dyncol.Evaluate(expr.SQL, expr.Params)
	require.NoError(t, err)

	loaded := newTestRecord("id")
	require.NoError(t, loaded.OnLoad(Row{"attrs": payload}))

	got, err := loaded.Get("avatar")
	require.NoError(t, err)
	assert.Equal(t, avatar, got.Bytes())
}
