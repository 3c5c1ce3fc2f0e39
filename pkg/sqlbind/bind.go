// Package sqlbind hands dynamic column expressions to database/sql.
//
// Drivers for MariaDB take positional "?" markers, while the engine binds
// by name. Bind rewrites every :name outside quoted text and comments into
// a "?" and returns the values in the matching order.
package sqlbind

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ssargent/dynattr/pkg/dyncol"
	"github.com/ssargent/dynattr/pkg/record"
)

// ErrUnboundParameter is returned when a :name in the statement has no value
var ErrUnboundParameter = errors.New("unbound parameter")

// Execer is satisfied by *sql.DB, *sql.Tx and *sql.Conn
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Bind rewrites named parameters into positional ones
func Bind(query string, params dyncol.Params) (string, []any, error) {
	values := params.Map()
	args := make([]any, 0, len(params))

	var buf strings.Builder
	buf.Grow(len(query))

	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(query, i)
			buf.WriteString(query[i:end])
			i = end
		case c == '-' && strings.HasPrefix(query[i:], "--"), c == '#':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query) - i
			}
			buf.WriteString(query[i : i+end])
			i += end
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				end = len(query) - i
			} else {
				end += 4
			}
			buf.WriteString(query[i : i+end])
			i += end
		case c == ':' && i+1 < len(query) && isNameStart(query[i+1]) && (i == 0 || query[i-1] != ':'):
			j := i + 1
			for j < len(query) && isNameChar(query[j]) {
				j++
			}
			name := query[i:j]
			v, ok := values[name]
			if !ok {
				return "", nil, fmt.Errorf("%w: %s", ErrUnboundParameter, name)
			}
			args = append(args, v)
			buf.WriteByte('?')
			i = j
		default:
			buf.WriteByte(c)
			i++
		}
	}

	return buf.String(), args, nil
}

// skipQuoted returns the index just past the quoted run starting at i.
// Backslash escapes and doubled quotes are honored.
func skipQuoted(q string, i int) int {
	quote := q[i]
	j := i + 1
	for j < len(q) {
		switch q[j] {
		case '\\':
			if quote != '`' {
				j += 2
				continue
			}
		case quote:
			if j+1 < len(q) && q[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return len(q)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// UpdateStatement writes expr into column of the row whose keyColumn matches :id
func UpdateStatement(table, keyColumn, column string, expr dyncol.Expression) string {
	return fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = :id",
		dyncol.QuoteIdentifier(table),
		dyncol.QuoteIdentifier(column),
		expr.SQL,
		dyncol.QuoteIdentifier(keyColumn))
}

// SelectStatement reads column as a payload from the row whose keyColumn matches :id
func SelectStatement(table, keyColumn, column string, codec dyncol.Codec) string {
	return fmt.Sprintf("SELECT %s AS %s FROM %s WHERE %s = :id",
		codec.SelectExpression(column),
		dyncol.QuoteIdentifier(column),
		dyncol.QuoteIdentifier(table),
		dyncol.QuoteIdentifier(keyColumn))
}

// Save runs the record's before-save hook and writes the expression to the row
func Save(ctx context.Context, db Execer, table, keyColumn string, id any, r *record.Record) error {
	expr, err := r.OnBeforeSave()
	if err != nil {
		return err
	}

	params := append(dyncol.Params{{Name: ":id", Value: id}}, expr.Params...)
	query, args, err := Bind(UpdateStatement(table, keyColumn, r.Column(), expr), params)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save %s: %w", r.Column(), err)
	}
	return nil
}

// Load reads the dynamic column for one row and hands it to the record.
// sql.ErrNoRows is returned unchanged when the row does not exist.
func Load(ctx context.Context, db Querier, table, keyColumn string, id any, r *record.Record, codec dyncol.Codec) error {
	query, args, err := Bind(SelectStatement(table, keyColumn, r.Column(), codec), dyncol.Params{{Name: ":id", Value: id}})
	if err != nil {
		return err
	}

	var payload []byte
	if err := db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		return err
	}

	return r.OnLoad(record.Row{r.Column(): payload})
}
