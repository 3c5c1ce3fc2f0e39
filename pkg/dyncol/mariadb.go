package dyncol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ssargent/dynattr/pkg/attr"
	"github.com/ssargent/dynattr/pkg/codec"
)

// NullExpression is emitted for a node with nothing to persist
const NullExpression = "NULL"

var (
	ErrMalformedPayload = errors.New("malformed dynamic column payload")
	ErrPayloadNotObject = errors.New("dynamic column payload is not an object")
)

// Codec converts attribute trees to and from one database's dynamic column form
type Codec interface {
	// Build turns the tree into a construction expression and its parameters
	Build(tree *attr.Tree) (Expression, error)

	// Decode turns a raw payload read from the database back into a tree
	Decode(raw []byte) (*attr.Tree, error)

	// SelectExpression returns the expression that reads column as a payload
	SelectExpression(column string) string
}

// MariaDB implements Codec using COLUMN_CREATE on write and COLUMN_JSON on read
type MariaDB struct {
	binary       *codec.BinaryCodec
	placeholders *Placeholders
}

// MariaDBOption configures a MariaDB codec
type MariaDBOption func(*MariaDB)

// WithPlaceholders makes the codec draw names from p instead of DefaultPlaceholders
func WithPlaceholders(p *Placeholders) MariaDBOption {
	return func(m *MariaDB) {
		m.placeholders = p
	}
}

// NewMariaDB creates a MariaDB dynamic column codec
func NewMariaDB(opts ...MariaDBOption) *MariaDB {
	m := &MariaDB{
		binary:       codec.NewBinaryCodec(),
		placeholders: DefaultPlaceholders,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Build encodes the tree and emits nested COLUMN_CREATE calls. Null values
// and empty trees are skipped; traversal follows the tree's own order.
func (m *MariaDB) Build(tree *attr.Tree) (Expression, error) {
	var params Params
	sql, err := m.build(m.binary.EncodeTree(tree), &params)
	if err != nil {
		return Expression{}, err
	}
	return Expression{SQL: sql, Params: params}, nil
}

func (m *MariaDB) build(node *attr.Tree, params *Params) (string, error) {
	var parts []string
	var err error

	node.Range(func(key string, v attr.Value) bool {
		if v.IsNull() || v.IsEmptyTree() {
			return true
		}

		keyPH := m.placeholders.Next()
		*params = append(*params, Param{Name: keyPH, Value: key})
		parts = append(parts, keyPH)

		if v.Kind() == attr.KindTree {
			var sub string
			sub, err = m.build(v.Tree(), params)
			if err != nil {
				return false
			}
			parts = append(parts, sub)
			return true
		}

		var bound any
		bound, err = bindValue(v)
		if err != nil {
			err = fmt.Errorf("key %q: %w", key, err)
			return false
		}
		valuePH := m.placeholders.Next()
		*params = append(*params, Param{Name: valuePH, Value: bound})
		parts = append(parts, valuePH)
		return true
	})
	if err != nil {
		return "", err
	}

	if len(parts) == 0 {
		return NullExpression, nil
	}
	return "COLUMN_CREATE(" + strings.Join(parts, ", ") + ")", nil
}

// bindValue maps a scalar to the Go type handed to the driver.
// Dynamic columns have no boolean type, so booleans bind as 0 or 1.
func bindValue(v attr.Value) (any, error) {
	switch v.Kind() {
	case attr.KindString:
		return v.Str(), nil
	case attr.KindInt:
		return v.Int(), nil
	case attr.KindFloat:
		return v.Float(), nil
	case attr.KindBool:
		if v.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("cannot bind %s value", v.Kind())
	}
}

// Decode parses a COLUMN_JSON payload. Empty input yields an empty tree;
// input that cannot be parsed is an error.
func (m *MariaDB) Decode(raw []byte) (*attr.Tree, error) {
	if len(raw) == 0 {
		return attr.NewTree(), nil
	}

	v, err := attr.ParseJSON(EscapeControlChars(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !v.Truthy() {
		return attr.NewTree(), nil
	}
	if v.Kind() != attr.KindTree {
		return nil, fmt.Errorf("%w: got %s", ErrPayloadNotObject, v.Kind())
	}

	return m.binary.DecodeTree(v.Tree()), nil
}

// SelectExpression wraps column in COLUMN_JSON
func (m *MariaDB) SelectExpression(column string) string {
	return "COLUMN_JSON(" + QuoteIdentifier(column) + ")"
}

// QuoteIdentifier backtick-quotes a MariaDB identifier
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// EscapeControlChars rewrites raw bytes 0x00-0x1F as \u00XX escapes.
// COLUMN_JSON writes them unescaped inside strings (MDEV-7813), which no
// JSON parser accepts.
func EscapeControlChars(raw []byte) []byte {
	n := 0
	for _, c := range raw {
		if c < 0x20 {
			n++
		}
	}
	if n == 0 {
		return raw
	}

	const hex = "0123456789abcdef"
	out := make([]byte, 0, len(raw)+5*n)
	for _, c := range raw {
		if c < 0x20 {
			out = append(out, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xf])
			continue
		}
		out = append(out, c)
	}
	return out
}
