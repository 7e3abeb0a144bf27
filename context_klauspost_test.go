package zstd

import (
	"testing"

	kzstd "github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// klauspost/compress/zstd is a trusted, independent encoder: these tests
// use it only to produce real compressed fixtures (compressed blocks,
// a real Huffman/FSE-entropy-coded frame, a checksummed frame, an empty
// frame) that this decoder must reproduce byte for byte. It is
// never part of the decode path itself.

func encodeWithKlauspost(t *testing.T, opts ...kzstd.EOption) (enc *kzstd.Encoder) {
	t.Helper()
	enc, err := kzstd.NewWriter(nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { enc.Close() })
	return enc
}

func TestDecodeAllMatchesKlauspostEncodedShortInput(t *testing.T) {
	enc := encodeWithKlauspost(t, kzstd.WithEncoderLevel(kzstd.SpeedFastest))
	payload := []byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps again")
	compressed := enc.EncodeAll(payload, nil)

	c, err := NewContext()
	require.NoError(t, err)
	defer c.Close()

	out, err := c.DecodeAll(compressed, nil)
	require.NoError(t, err)
	require.Equal(t, string(payload), string(out))
}

func TestDecodeAllMatchesKlauspostEncodedRepetitiveInput(t *testing.T) {
	enc := encodeWithKlauspost(t, kzstd.WithEncoderLevel(kzstd.SpeedBestCompression))
	payload := make([]byte, 8192)
	for i := range payload {
		payload[i] = byte(i % 7)
	}
	compressed := enc.EncodeAll(payload, nil)

	c, err := NewContext()
	require.NoError(t, err)
	defer c.Close()

	out, err := c.DecodeAll(compressed, nil)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestDecodeAllMatchesKlauspostEncodedWithChecksum(t *testing.T) {
	enc := encodeWithKlauspost(t, kzstd.WithEncoderLevel(kzstd.SpeedDefault), kzstd.WithEncoderCRC(true))
	payload := []byte("checksummed frame content, repeated repeated repeated repeated")
	compressed := enc.EncodeAll(payload, nil)

	c, err := NewContext()
	require.NoError(t, err)
	defer c.Close()

	out, err := c.DecodeAll(compressed, nil)
	require.NoError(t, err)
	require.Equal(t, string(payload), string(out))
}

func TestDecodeAllMatchesKlauspostEncodedEmptyInput(t *testing.T) {
	enc := encodeWithKlauspost(t)
	compressed := enc.EncodeAll(nil, nil)

	c, err := NewContext()
	require.NoError(t, err)
	defer c.Close()

	out, err := c.DecodeAll(compressed, nil)
	require.NoError(t, err)
	require.Empty(t, out)
}
