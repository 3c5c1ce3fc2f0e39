//go:build bench
// +build bench

package codec

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ssargent/dynattr/pkg/attr"
)

func BenchmarkBinaryCodec_Encode(b *testing.B) {
	codec := NewBinaryCodec()

	benchmarks := []struct {
		name  string
		value attr.Value
	}{
		{name: "text", value: attr.String("john@example.com")},
		{name: "binary small", value: attr.Bytes([]byte{0xff, 0xfe, 0xfd})},
		{name: "binary large", value: attr.Bytes(bytes.Repeat([]byte{0xff}, 10000))},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = codec.Encode(bm.value)
			}
		})
	}
}

func BenchmarkBinaryCodec_EncodeTree(b *testing.B) {
	codec := NewBinaryCodec()

	tree := attr.NewTree()
	for i := 0; i < 100; i++ {
		_ = tree.Set(attr.Path{fmt.Sprintf("group%d", i%10), fmt.Sprintf("k%d", i)}, attr.Bytes([]byte{byte(i), 0xff}))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = codec.DecodeTree(codec.EncodeTree(tree))
	}
}
