package record

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ssargent/dynattr/pkg/attr"
	"github.com/ssargent/dynattr/pkg/dyncol"
	"github.com/ssargent/dynattr/pkg/metrics"
)

// ErrNoDynamicColumn means the record type never named its dynamic column
var ErrNoDynamicColumn = errors.New("dynamic column name not configured")

// Row is one database row keyed by column name
type Row map[string]any

// Record overlays a dynamic attribute tree on a set of fixed fields.
// Reads and writes try the fixed fields first and fall back to the tree
// only when the name is not a fixed field.
type Record struct {
	fixed   FixedFields
	column  string
	codec   dyncol.Codec
	tree    *attr.Tree
	pending *dyncol.Expression
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Record
type Option func(*Record)

// WithCodec sets the dynamic column codec (MariaDB by default)
func WithCodec(c dyncol.Codec) Option {
	return func(r *Record) {
		r.codec = c
	}
}

// WithLogger sets the logger used for load and save events
func WithLogger(l *slog.Logger) Option {
	return func(r *Record) {
		r.logger = l
	}
}

// WithMetrics records builds, decodes and access paths
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Record) {
		r.metrics = m
	}
}

// New creates a record whose dynamic attributes live in column
func New(fixed FixedFields, column string, opts ...Option) *Record {
	r := &Record{
		fixed:  fixed,
		column: column,
		codec:  dyncol.NewMariaDB(),
		tree:   attr.NewTree(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Column returns the name of the dynamic column
func (r *Record) Column() string { return r.column }

// Fixed returns the fixed field accessor
func (r *Record) Fixed() FixedFields { return r.fixed }

func (r *Record) checkColumn() error {
	if r.column == "" {
		return ErrNoDynamicColumn
	}
	return nil
}

// Lookup resolves name and reports whether it exists
func (r *Record) Lookup(name string) (attr.Value, bool, error) {
	v, err := r.fixed.Field(name)
	if err == nil {
		r.metrics.RecordAccess("get", false)
		return v, true, nil
	}
	if !errors.Is(err, ErrUnknownField) {
		return attr.Null(), false, err
	}
	if err := r.checkColumn(); err != nil {
		return attr.Null(), false, err
	}

	r.metrics.RecordAccess("get", true)
	p, err := attr.ParsePath(name)
	if err != nil {
		return attr.Null(), false, nil
	}
	v, ok := r.tree.Get(p)
	return v.Clone(), ok, nil
}

// Get returns the value of name. A missing dynamic path is null, not an error.
func (r *Record) Get(name string) (attr.Value, error) {
	v, _, err := r.Lookup(name)
	return v, err
}

// Set assigns name, creating intermediate dynamic containers as needed
func (r *Record) Set(name string, v attr.Value) error {
	err := r.fixed.SetField(name, v)
	if err == nil {
		r.metrics.RecordAccess("set", false)
		return nil
	}
	if !errors.Is(err, ErrUnknownField) {
		return err
	}
	if err := r.checkColumn(); err != nil {
		return err
	}

	r.metrics.RecordAccess("set", true)
	p, err := attr.ParsePath(name)
	if err != nil {
		return err
	}
	return r.tree.Set(p, v)
}

// IsSet reports whether name resolves. A dynamic attribute holding null
// is still set; a fixed field is set when it is not null.
func (r *Record) IsSet(name string) (bool, error) {
	v, err := r.fixed.Field(name)
	if err == nil {
		return !v.IsNull(), nil
	}
	if !errors.Is(err, ErrUnknownField) {
		return false, err
	}
	if err := r.checkColumn(); err != nil {
		return false, err
	}

	p, err := attr.ParsePath(name)
	if err != nil {
		return false, nil
	}
	return r.tree.IsSet(p), nil
}

// Unset nulls name. Dynamic keys stay in the tree with a null value and
// are dropped from the next saved expression.
func (r *Record) Unset(name string) error {
	err := r.fixed.SetField(name, attr.Null())
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUnknownField) {
		return err
	}
	if err := r.checkColumn(); err != nil {
		return err
	}

	p, err := attr.ParsePath(name)
	if err != nil {
		return nil
	}
	r.tree.Unset(p)
	return nil
}

// OnLoad replaces the dynamic state with the payload found in row.
// Rows without the dynamic column leave the state untouched.
func (r *Record) OnLoad(row Row) error {
	if err := r.checkColumn(); err != nil {
		return err
	}
	raw, ok := row[r.column]
	if !ok {
		return nil
	}

	var payload []byte
	switch raw := raw.(type) {
	case nil:
	case []byte:
		payload = raw
	case sql.RawBytes:
		payload = append([]byte(nil), raw...)
	case string:
		payload = []byte(raw)
	default:
		return fmt.Errorf("column %s: unexpected payload type %T", r.column, raw)
	}

	tree, err := r.codec.Decode(payload)
	r.metrics.RecordDecode(err == nil, len(payload))
	if err != nil {
		r.logger.Error("failed to decode dynamic column",
			slog.String("column", r.column), slog.Int("bytes", len(payload)), slog.Any("error", err))
		return fmt.Errorf("column %s: %w", r.column, err)
	}

	r.tree = tree
	r.pending = nil
	r.logger.Debug("loaded dynamic attributes",
		slog.String("column", r.column), slog.Int("keys", tree.Len()))
	return nil
}

// OnBeforeSave builds the expression that writes the current dynamic
// state. The result is kept as the column's outgoing value until the
// next load or save.
func (r *Record) OnBeforeSave() (dyncol.Expression, error) {
	if err := r.checkColumn(); err != nil {
		return dyncol.Expression{}, err
	}

	expr, err := r.codec.Build(r.tree)
	r.metrics.RecordBuild(err == nil, expr.Params.Len())
	if err != nil {
		return dyncol.Expression{}, fmt.Errorf("column %s: %w", r.column, err)
	}

	r.pending = &expr
	r.logger.Debug("built dynamic column expression",
		slog.String("column", r.column), slog.Int("params", expr.Params.Len()))
	return expr, nil
}

// Pending returns the expression from the last OnBeforeSave, if any
func (r *Record) Pending() (dyncol.Expression, bool) {
	if r.pending == nil {
		return dyncol.Expression{}, false
	}
	return *r.pending, true
}

// Attributes returns a copy of the dynamic tree
func (r *Record) Attributes() *attr.Tree {
	return r.tree.Clone()
}

// FieldNames lists fixed fields followed by top-level dynamic keys
func (r *Record) FieldNames() []string {
	names := r.fixed.FieldNames()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, k := range r.tree.Keys() {
		if !seen[k] {
			names = append(names, k)
			seen[k] = true
		}
	}
	return names
}

// AllFieldNames lists fixed fields followed by every dynamic path,
// each prefixed with the dynamic column name.
func (r *Record) AllFieldNames() ([]string, error) {
	if err := r.checkColumn(); err != nil {
		return nil, err
	}
	names := r.fixed.FieldNames()
	for _, p := range r.tree.Paths() {
		names = append(names, r.column+attr.Separator+p)
	}
	return names, nil
}
