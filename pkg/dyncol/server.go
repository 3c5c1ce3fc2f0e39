package dyncol

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/ssargent/dynattr/pkg/attr"
)

// Evaluate plays the database's part for a built expression: it resolves
// the placeholders, constructs the dynamic column, and renders it the way
// COLUMN_JSON does. A NULL expression yields a nil payload.
//
// The rendering reproduces MDEV-7813: control characters inside strings
// are written raw, so the output must go through Decode, not a plain JSON
// parser.
func Evaluate(sql string, params Params) ([]byte, error) {
	p := &exprParser{src: sql, params: params.Map()}

	tree, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos:], p.pos)
	}
	if tree == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	renderColumnJSON(&buf, tree)
	return buf.Bytes(), nil
}

type exprParser struct {
	src    string
	pos    int
	params map[string]any
}

// parseExpr returns nil for NULL
func (p *exprParser) parseExpr() (*attr.Tree, error) {
	p.skipSpace()
	word := p.word()
	switch strings.ToUpper(word) {
	case "NULL":
		return nil, nil
	case "COLUMN_CREATE":
	default:
		return nil, fmt.Errorf("expected COLUMN_CREATE or NULL at offset %d", p.pos-len(word))
	}

	if err := p.expect('('); err != nil {
		return nil, err
	}

	tree := attr.NewTree()
	for {
		key, err := p.placeholderValue()
		if err != nil {
			return nil, err
		}
		name, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("dynamic column name must be a string, got %T", key)
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}

		p.skipSpace()
		if p.peek() == ':' {
			raw, err := p.placeholderValue()
			if err != nil {
				return nil, err
			}
			v, err := columnValue(raw)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			if !v.IsNull() {
				tree.Put(name, v)
			}
		} else {
			sub, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if sub != nil {
				tree.Put(name, attr.TreeValue(sub))
			}
		}

		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return tree, nil
	}
}

func (p *exprParser) placeholderValue() (any, error) {
	p.skipSpace()
	if p.peek() != ':' {
		return nil, fmt.Errorf("expected placeholder at offset %d", p.pos)
	}
	p.pos++
	name := ":" + p.word()
	v, ok := p.params[name]
	if !ok {
		return nil, fmt.Errorf("unbound placeholder %s", name)
	}
	return v, nil
}

func (p *exprParser) word() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if c != '_' && !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *exprParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\n' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func columnValue(x any) (attr.Value, error) {
	switch x := x.(type) {
	case bool:
		if x {
			return attr.Int(1), nil
		}
		return attr.Int(0), nil
	default:
		return attr.ValueOf(x)
	}
}

func renderColumnJSON(buf *bytes.Buffer, t *attr.Tree) {
	buf.WriteByte('{')
	first := true
	t.Range(func(k string, v attr.Value) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		renderString(buf, k)
		buf.WriteByte(':')
		switch v.Kind() {
		case attr.KindTree:
			renderColumnJSON(buf, v.Tree())
		case attr.KindString:
			renderString(buf, v.Str())
		case attr.KindInt:
			buf.WriteString(strconv.FormatInt(v.Int(), 10))
		case attr.KindFloat:
			if math.IsNaN(v.Float()) || math.IsInf(v.Float(), 0) {
				buf.WriteString("null")
			} else {
				buf.WriteString(attr.FormatFloat(v.Float()))
			}
		default:
			buf.WriteString("null")
		}
		return true
	})
	buf.WriteByte('}')
}

// renderString escapes only quotes and backslashes, like the server
func renderString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			buf.WriteByte('\\')
		}
		buf.WriteByte(s[i])
	}
	buf.WriteByte('"')
}
