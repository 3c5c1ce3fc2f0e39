package storage

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dynattr/pkg/attr"
	"github.com/ssargent/dynattr/pkg/metrics"
	"github.com/ssargent/dynattr/pkg/record"
)

func openTestStore(t *testing.T) *RowStore {
	t.Helper()
	s, err := Open(t.TempDir(), Schema{DynamicColumn: "attrs", FixedFields: []string{"name", "age"}},
		WithMetrics(metrics.New(prometheus.NewRegistry())))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RejectsBadSchema(t *testing.T) {
	_, err := Open(t.TempDir(), Schema{})
	assert.ErrorIs(t, err, record.ErrNoDynamicColumn)

	_, err = Open(t.TempDir(), Schema{DynamicColumn: "attrs", FixedFields: []string{"attrs"}})
	assert.Error(t, err)
}

func TestRowStore_CreateAndGet(t *testing.T) {
	s := openTestStore(t)

	r := s.NewRecord()
	require.NoError(t, r.Set("name", attr.String("ada")))
	require.NoError(t, r.Set("age", attr.Int(36)))
	require.NoError(t, r.Set("prefs.theme", attr.String("dark")))
	require.NoError(t, r.Set("prefs.bell", attr.String("ding\x07")))
	require.NoError(t, r.Set("avatar", attr.Bytes([]byte{0xff, 0x00, 0xfe})))

	id, err := s.Create(r)
	require.NoError(t, err)

	loaded, err := s.Get(id)
	require.NoError(t, err)

	name, err := loaded.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "ada", name.Str())

	age, err := loaded.Get("age")
	require.NoError(t, err)
	assert.Equal(t, int64(36), age.Int())

	theme, err := loaded.Get("prefs.theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", theme.Str())

	bell, err := loaded.Get("prefs.bell")
	require.NoError(t, err)
	assert.Equal(t, "ding\x07", bell.Str())

	avatar, err := loaded.Get("avatar")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x00, 0xfe}, avatar.Bytes())

	assert.Equal(t, []string{"prefs", "avatar"}, loaded.Attributes().Keys())
}

func TestRowStore_FixedFieldsKeepBytesAndFloats(t *testing.T) {
	s := openTestStore(t)

	r := s.NewRecord()
	require.NoError(t, r.Set("name", attr.Bytes([]byte{0xff, 0xfe})))
	require.NoError(t, r.Set("age", attr.Float(2)))
	require.NoError(t, r.Set("ratio", attr.Float(3)))

	id, err := s.Create(r)
	require.NoError(t, err)

	loaded, err := s.Get(id)
	require.NoError(t, err)

	name, err := loaded.Get("name")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe}, name.Bytes())

	age, err := loaded.Get("age")
	require.NoError(t, err)
	assert.Equal(t, attr.KindFloat, age.Kind())
	assert.Equal(t, 2.0, age.Float())

	ratio, err := loaded.Get("ratio")
	require.NoError(t, err)
	assert.Equal(t, attr.KindFloat, ratio.Kind())
	assert.Equal(t, 3.0, ratio.Float())

	row, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, string([]byte{0xff, 0xfe}), row["name"])
}

func TestRowStore_LoadRawRow(t *testing.T) {
	s := openTestStore(t)

	r := s.NewRecord()
	require.NoError(t, r.Set("k", attr.String("v")))
	id, err := s.Create(r)
	require.NoError(t, err)

	row, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"k":"v"}`), row["attrs"])
	assert.Nil(t, row["name"])
}

func TestRowStore_EmptyTreeStoresNull(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Create(s.NewRecord())
	require.NoError(t, err)

	row, err := s.Load(id)
	require.NoError(t, err)
	assert.Nil(t, row["attrs"])

	loaded, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Attributes().Len())
}

func TestRowStore_UpdateDropsUnsetAttributes(t *testing.T) {
	s := openTestStore(t)

	r := s.NewRecord()
	require.NoError(t, r.Set("a.b", attr.Int(1)))
	require.NoError(t, r.Set("a.c", attr.Int(2)))
	id, err := s.Create(r)
	require.NoError(t, err)

	_, err = s.Update(id, func(r *record.Record) error {
		return r.Unset("a.b")
	})
	require.NoError(t, err)

	loaded, err := s.Get(id)
	require.NoError(t, err)
	set, err := loaded.IsSet("a.b")
	require.NoError(t, err)
	assert.False(t, set)
	c, err := loaded.Get("a.c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Int())
}

func TestRowStore_NotFound(t *testing.T) {
	s := openTestStore(t)
	id := ksuid.New()

	_, err := s.Get(id)
	assert.ErrorIs(t, err, ErrRowNotFound)
	_, err = s.Update(id, func(*record.Record) error { return nil })
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.ErrorIs(t, s.Delete(id), ErrRowNotFound)
}

func TestRowStore_DeleteAndList(t *testing.T) {
	s := openTestStore(t)

	var ids []ksuid.KSUID
	for i := 0; i < 3; i++ {
		id, err := s.Create(s.NewRecord())
		require.NoError(t, err)
		ids = append(ids, id)
	}

	listed, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, listed)

	require.NoError(t, s.Delete(ids[1]))

	listed, err = s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []ksuid.KSUID{ids[0], ids[2]}, listed)
}

func TestRowStore_ConcurrentUpdates(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Create(s.NewRecord())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(id, func(r *record.Record) error {
				v, err := r.Get("counter")
				if err != nil {
					return err
				}
				return r.Set("counter", attr.Int(v.Int()+1))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := s.Get(id)
	require.NoError(t, err)
	v, err := loaded.Get("counter")
	require.NoError(t, err)
	assert.Equal(t, int64(20), v.Int())
}
