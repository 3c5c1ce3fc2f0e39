package attr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseJSON decodes a JSON document into a Value, keeping object key order.
// Arrays become trees keyed by index. Whole numbers that fit int64 become
// Int, everything else numeric becomes Float.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Null(), err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Null(), errors.New("unexpected data after top-level value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Null(), io.ErrUnexpectedEOF
		}
		return Null(), err
	}

	switch tok := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(tok), nil
	case string:
		return String(tok), nil
	case json.Number:
		return parseNumber(tok)
	case json.Delim:
		switch tok {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		}
	}
	return Null(), fmt.Errorf("unexpected token %v", tok)
}

func parseObject(dec *json.Decoder) (Value, error) {
	t := NewTree()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Null(), err
		}
		key, ok := tok.(string)
		if !ok {
			return Null(), fmt.Errorf("object key is %T, not string", tok)
		}
		v, err := parseValue(dec)
		if err != nil {
			return Null(), fmt.Errorf("key %q: %w", key, err)
		}
		t.Put(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return Null(), err
	}
	return TreeValue(t), nil
}

func parseArray(dec *json.Decoder) (Value, error) {
	t := NewTree()
	for i := 0; dec.More(); i++ {
		v, err := parseValue(dec)
		if err != nil {
			return Null(), fmt.Errorf("index %d: %w", i, err)
		}
		t.Put(strconv.Itoa(i), v)
	}
	if _, err := dec.Token(); err != nil {
		return Null(), err
	}
	return TreeValue(t), nil
}

// FormatFloat renders f so that it parses back as a float. Whole numbers
// keep a trailing ".0".
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func parseNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Null(), fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

// MarshalJSON writes trees as objects in key order. Non-finite floats
// have no JSON form and are written as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON is the inverse of MarshalJSON
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON writes the tree as a JSON object in key order
func (t *Tree) MarshalJSON() ([]byte, error) {
	return TreeValue(t).MarshalJSON()
}

// UnmarshalJSON requires a JSON object
func (t *Tree) UnmarshalJSON(data []byte) error {
	v, err := ParseJSON(data)
	if err != nil {
		return err
	}
	if v.Kind() != KindTree {
		return fmt.Errorf("expected JSON object, got %s", v.Kind())
	}
	*t = *v.Tree()
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		return writeJSONString(buf, v.s)
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(FormatFloat(v.f))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindTree:
		buf.WriteByte('{')
		var err error
		i := 0
		v.t.Range(func(k string, child Value) bool {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			if err = writeJSONString(buf, k); err != nil {
				return false
			}
			buf.WriteByte(':')
			err = child.writeJSON(buf)
			return err == nil
		})
		if err != nil {
			return err
		}
		buf.WriteByte('}')
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
