// Package codec provides the binary-safe value encoding used by dynattr.
//
// Dynamic attributes are persisted through a text format (the JSON that a
// MariaDB server produces for COLUMN_JSON). JSON can only carry valid
// Unicode text, so any byte string that is not valid UTF-8 is armored
// before it is written and restored after it is read back.
//
// # Encoded Form
//
// An armored value is the fixed marker followed by standard base64:
//
//	data:application/octet-stream;base64,<base64 payload>
//
// A string that is valid UTF-8 but already begins with the marker is
// armored too, otherwise it could not be told apart from an encoded value
// on the way back.
//
// # Keys and Trees
//
// Dynamic keys can hold bytes as well, so the same rule applies to keys.
// EncodeTree and DecodeTree walk a nested attr.Tree depth-first and apply
// the scalar rule to every key and every leaf. Both return a new tree and
// keep entry order, including for rekeyed entries.
//
// # Usage
//
//	c := codec.NewBinaryCodec()
//
//	enc := c.Encode(attr.Bytes([]byte{0xff, 0xfe}))
//	// enc.Str() == "data:application/octet-stream;base64,//4="
//
//	dec := c.Decode(enc)
//	// dec.Bytes() == []byte{0xff, 0xfe}
//
// # Guarantees
//
// Encode and Decode are total. Decode(Encode(x)) == x for every scalar
// and every key. A string that carries the marker but no valid base64 is
// left untouched by Decode.
//
// # Thread Safety
//
// BinaryCodec holds no state and is safe for concurrent use.
package codec
