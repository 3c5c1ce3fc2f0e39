package codec

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/ssargent/dynattr/pkg/attr"
)

// MarkerPrefix tags a base64-armored byte string inside a text payload
const MarkerPrefix = "data:application/octet-stream;base64,"

// BinaryCodec makes arbitrary byte strings survive a JSON round trip
type BinaryCodec struct{}

// NewBinaryCodec creates a new binary codec instance
func NewBinaryCodec() *BinaryCodec {
	return &BinaryCodec{}
}

// EncodeKey armors s when it is not valid UTF-8 or already starts with the marker
func (c *BinaryCodec) EncodeKey(s string) string {
	if !utf8.ValidString(s) || strings.HasPrefix(s, MarkerPrefix) {
		return MarkerPrefix + base64.StdEncoding.EncodeToString([]byte(s))
	}
	return s
}

// DecodeKey reverses EncodeKey. Text that carries the marker but no valid
// base64 is returned as is.
func (c *BinaryCodec) DecodeKey(s string) string {
	if !strings.HasPrefix(s, MarkerPrefix) {
		return s
	}
	raw, err := base64.StdEncoding.DecodeString(s[len(MarkerPrefix):])
	if err != nil {
		return s
	}
	return string(raw)
}

// Encode armors string values; every other kind passes through
func (c *BinaryCodec) Encode(v attr.Value) attr.Value {
	if v.Kind() != attr.KindString {
		return v
	}
	if enc := c.EncodeKey(v.Str()); enc != v.Str() {
		return attr.String(enc)
	}
	return v
}

// Decode reverses Encode
func (c *BinaryCodec) Decode(v attr.Value) attr.Value {
	if v.Kind() != attr.KindString {
		return v
	}
	if dec := c.DecodeKey(v.Str()); dec != v.Str() {
		return attr.String(dec)
	}
	return v
}

// EncodeTree returns a copy of t with every key and leaf encoded
func (c *BinaryCodec) EncodeTree(t *attr.Tree) *attr.Tree {
	return c.walk(t, c.EncodeKey, c.Encode)
}

// DecodeTree returns a copy of t with every key and leaf decoded
func (c *BinaryCodec) DecodeTree(t *attr.Tree) *attr.Tree {
	return c.walk(t, c.DecodeKey, c.Decode)
}

func (c *BinaryCodec) walk(t *attr.Tree, key func(string) string, leaf func(attr.Value) attr.Value) *attr.Tree {
	out := attr.NewTree()
	t.Range(func(k string, v attr.Value) bool {
		if v.Kind() == attr.KindTree {
			v = attr.TreeValue(c.walk(v.Tree(), key, leaf))
		} else {
			v = leaf(v)
		}
		out.Put(key(k), v)
		return true
	})
	return out
}
