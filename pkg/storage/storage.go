package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/dynattr/pkg/attr"
	"github.com/ssargent/dynattr/pkg/codec"
	"github.com/ssargent/dynattr/pkg/dyncol"
	"github.com/ssargent/dynattr/pkg/metrics"
	"github.com/ssargent/dynattr/pkg/record"
)

// ErrRowNotFound is returned for ids with no stored row
var ErrRowNotFound = errors.New("row not found")

var rowPrefix = []byte("row/")

// Schema describes the rows kept by a RowStore
type Schema struct {
	DynamicColumn string
	FixedFields   []string
}

// storedRow is the on-disk form of one row. Dynamic holds the text the
// database would return for COLUMN_JSON on the dynamic column.
type storedRow struct {
	Fixed   *attr.Tree `json:"fixed"`
	Dynamic []byte     `json:"dynamic,omitempty"`
}

// RowStore is an embedded stand-in for a relational table with one
// dynamic column. Saves evaluate the record's COLUMN_CREATE expression
// the way the server would and keep the resulting payload.
type RowStore struct {
	db      *pebble.DB
	schema  Schema
	codec   dyncol.Codec
	logger  *slog.Logger
	metrics *metrics.Metrics
	mu      sync.Mutex
}

// Option configures a RowStore
type Option func(*RowStore)

// WithLogger sets the store logger
func WithLogger(l *slog.Logger) Option {
	return func(s *RowStore) { s.logger = l }
}

// WithMetrics records store operations
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RowStore) { s.metrics = m }
}

// WithCodec sets the dynamic column codec given to records
func WithCodec(c dyncol.Codec) Option {
	return func(s *RowStore) { s.codec = c }
}

// Open opens or creates a row store at path
func Open(path string, schema Schema, opts ...Option) (*RowStore, error) {
	if schema.DynamicColumn == "" {
		return nil, record.ErrNoDynamicColumn
	}
	for _, f := range schema.FixedFields {
		if f == schema.DynamicColumn {
			return nil, fmt.Errorf("fixed field %q collides with the dynamic column", f)
		}
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open row store: %w", err)
	}

	s := &RowStore{
		db:     db,
		schema: schema,
		codec:  dyncol.NewMariaDB(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Schema returns the store schema
func (s *RowStore) Schema() Schema { return s.schema }

// NewRecord creates an empty record for this store's schema
func (s *RowStore) NewRecord() *record.Record {
	return s.newRecord(record.NewMapFields(s.schema.FixedFields...))
}

func (s *RowStore) newRecord(fields *record.MapFields) *record.Record {
	return record.New(fields, s.schema.DynamicColumn,
		record.WithCodec(s.codec),
		record.WithLogger(s.logger),
		record.WithMetrics(s.metrics))
}

// Create stores a new row built from r and returns its id
func (s *RowStore) Create(r *record.Record) (ksuid.KSUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ksuid.New()
	if err := s.save(id, r); err != nil {
		return ksuid.Nil, err
	}
	return id, nil
}

// Save overwrites the row for id with the record's current state
func (s *RowStore) Save(id ksuid.KSUID, r *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(id, r)
}

func (s *RowStore) save(id ksuid.KSUID, r *record.Record) (err error) {
	start := time.Now()
	defer func() { s.metrics.RecordStoreOperation("save", err == nil, time.Since(start)) }()

	fixed := attr.NewTree()
	for _, name := range r.Fixed().FieldNames() {
		v, err := r.Fixed().Field(name)
		if err != nil {
			return fmt.Errorf("failed to read field %s: %w", name, err)
		}
		fixed.Put(name, v)
	}

	expr, err := r.OnBeforeSave()
	if err != nil {
		return err
	}
	payload, err := dyncol.Evaluate(expr.SQL, expr.Params)
	if err != nil {
		return fmt.Errorf("failed to evaluate %s: %w", s.schema.DynamicColumn, err)
	}

	// fixed columns get the same byte-string armoring as the dynamic payload
	data, err := json.Marshal(storedRow{Fixed: codec.NewBinaryCodec().EncodeTree(fixed), Dynamic: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	if err := s.db.Set(rowKey(id), data, pebble.NoSync); err != nil {
		return err
	}

	s.logger.Debug("saved row", slog.String("id", id.String()), slog.Int("bytes", len(data)))
	return nil
}

// Load returns the raw row for id, with the dynamic column as payload bytes
func (s *RowStore) Load(id ksuid.KSUID) (record.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(id)
}

func (s *RowStore) load(id ksuid.KSUID) (row record.Row, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordStoreOperation("load", err == nil || errors.Is(err, ErrRowNotFound), time.Since(start))
	}()

	data, closer, err := s.db.Get(rowKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRowNotFound, id)
		}
		return nil, err
	}
	var stored storedRow
	err = json.Unmarshal(data, &stored)
	closer.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal row %s: %w", id, err)
	}

	row = record.Row{}
	codec.NewBinaryCodec().DecodeTree(stored.Fixed).Range(func(k string, v attr.Value) bool {
		row[k] = v.Interface()
		return true
	})
	if stored.Dynamic != nil {
		row[s.schema.DynamicColumn] = stored.Dynamic
	} else {
		row[s.schema.DynamicColumn] = nil
	}
	return row, nil
}

// Get loads the row for id into a new record
func (s *RowStore) Get(id ksuid.KSUID) (*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(id)
}

func (s *RowStore) get(id ksuid.KSUID) (*record.Record, error) {
	row, err := s.load(id)
	if err != nil {
		return nil, err
	}

	fields := record.NewMapFields(s.schema.FixedFields...)
	if err := fields.Load(row); err != nil {
		return nil, err
	}
	r := s.newRecord(fields)
	if err := r.OnLoad(row); err != nil {
		return nil, err
	}
	return r, nil
}

// Update loads the record for id, applies fn and saves the result.
// Concurrent updates to the store are serialized.
func (s *RowStore) Update(id ksuid.KSUID, fn func(*record.Record) error) (*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	if err := s.save(id, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes the row for id
func (s *RowStore) Delete(id ksuid.KSUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, closer, err := s.db.Get(rowKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRowNotFound, id)
		}
		return err
	}
	closer.Close()

	start := time.Now()
	err = s.db.Delete(rowKey(id), pebble.NoSync)
	s.metrics.RecordStoreOperation("delete", err == nil, time.Since(start))
	return err
}

// List returns every stored id in ksuid order, which is creation order
func (s *RowStore) List() ([]ksuid.KSUID, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: rowPrefix,
		UpperBound: prefixEnd(rowPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []ksuid.KSUID
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key()[len(rowPrefix):])
		if err != nil {
			return nil, fmt.Errorf("corrupt row key %q: %w", iter.Key(), err)
		}
		ids = append(ids, id)
	}
	return ids, iter.Error()
}

// Close closes the underlying database
func (s *RowStore) Close() error {
	return s.db.Close()
}

func rowKey(id ksuid.KSUID) []byte {
	key := make([]byte, 0, len(rowPrefix)+len(id))
	key = append(key, rowPrefix...)
	return append(key, id.Bytes()...)
}

func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	end[len(end)-1]++
	return end
}
