package record

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ssargent/dynattr/pkg/attr"
)

// ErrUnknownField is returned (possibly wrapped) by FixedFields for names
// outside the fixed schema. It is the only error that triggers the dynamic
// fallback; anything else reaches the caller unchanged.
var ErrUnknownField = errors.New("unknown field")

// ErrNestedFixedValue is returned when a tree is assigned to a fixed column
var ErrNestedFixedValue = errors.New("fixed columns cannot hold nested values")

// FixedFields gives access to a record's relational columns
type FixedFields interface {
	Field(name string) (attr.Value, error)
	SetField(name string, v attr.Value) error
	FieldNames() []string
}

// MapFields is a FixedFields backed by a map with a declared column set
type MapFields struct {
	names  []string
	values map[string]attr.Value
}

// NewMapFields declares the fixed columns. Every column starts as null.
func NewMapFields(names ...string) *MapFields {
	f := &MapFields{values: make(map[string]attr.Value, len(names))}
	for _, n := range names {
		if _, dup := f.values[n]; dup {
			continue
		}
		f.names = append(f.names, n)
		f.values[n] = attr.Null()
	}
	return f
}

// Field returns a column value
func (f *MapFields) Field(name string) (attr.Value, error) {
	v, ok := f.values[name]
	if !ok {
		return attr.Null(), fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return v, nil
}

// SetField assigns a column value. Fixed columns hold scalars only.
func (f *MapFields) SetField(name string, v attr.Value) error {
	if _, ok := f.values[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if v.Kind() == attr.KindTree {
		return fmt.Errorf("field %s: %w", name, ErrNestedFixedValue)
	}
	f.values[name] = v
	return nil
}

// FieldNames returns the declared columns in declaration order
func (f *MapFields) FieldNames() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Values returns the columns as plain Go values
func (f *MapFields) Values() map[string]any {
	out := make(map[string]any, len(f.values))
	for k, v := range f.values {
		out[k] = v.Interface()
	}
	return out
}

// Load assigns columns from a row, ignoring names that are not declared
func (f *MapFields) Load(row Row) error {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := f.values[k]; !ok {
			continue
		}
		v, err := attr.ValueOf(row[k])
		if err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		if err := f.SetField(k, v); err != nil {
			return err
		}
	}
	return nil
}
