package zstd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These exercise DecompressStream's incremental contract directly: no
// hand-verifiable encoder is used here (see context_klauspost_test.go for
// that), but the hand-built frame is fed across many small calls to
// confirm the driver's hint/continuation protocol agrees with the
// one-shot path byte for byte.

func TestDecompressStreamMatchesDecodeAllByteForByte(t *testing.T) {
	c1, err := NewContext()
	require.NoError(t, err)
	defer c1.Close()
	want, err := c1.DecodeAll(rawHiFrame, nil)
	require.NoError(t, err)

	c2, err := NewContext()
	require.NoError(t, err)
	defer c2.Close()

	src := &CursorBuffer{Data: rawHiFrame}
	dst := &CursorBuffer{Data: make([]byte, 64)}
	for {
		hint, err := c2.DecompressStream(dst, src)
		require.NoError(t, err)
		if hint == 0 {
			break
		}
	}
	assert.Equal(t, string(want), string(dst.Data[:dst.Pos]))
}

func TestDecompressStreamFedOneByteAtATime(t *testing.T) {
	c, err := NewContext()
	require.NoError(t, err)
	defer c.Close()

	dst := &CursorBuffer{Data: make([]byte, 64)}
	for i := 0; i < len(rawHiFrame); i++ {
		src := &CursorBuffer{Data: rawHiFrame[i : i+1]}
		_, err := c.DecompressStream(dst, src)
		require.NoErrorf(t, err, "byte %d", i)
	}
	assert.Equal(t, "hi", string(dst.Data[:dst.Pos]))
}

func TestDecompressStreamOutputIsMonotonicAcrossSmallDstBuffers(t *testing.T) {
	c, err := NewContext()
	require.NoError(t, err)
	defer c.Close()

	src := &CursorBuffer{Data: rawHiFrame}
	var got []byte
	for {
		dst := &CursorBuffer{Data: make([]byte, 1)}
		hint, err := c.DecompressStream(dst, src)
		require.NoError(t, err)
		got = append(got, dst.Data[:dst.Pos]...)
		if hint == 0 && src.remaining() == 0 && dst.Pos == 0 {
			break
		}
		if hint == 0 && src.remaining() == 0 && len(got) >= 2 {
			break
		}
	}
	assert.Equal(t, "hi", string(got))
}

func TestDecodeAllHandlesMultipleFramesBackToBack(t *testing.T) {
	c, err := NewContext()
	require.NoError(t, err)
	defer c.Close()

	src := append(append([]byte(nil), rawHiFrame...), rawHiFrame...)
	out, err := c.DecodeAll(src, nil)
	require.NoError(t, err)
	assert.Equal(t, "hihi", string(out))
}

func TestDecodeAllAppendsToProvidedDst(t *testing.T) {
	c, err := NewContext()
	require.NoError(t, err)
	defer c.Close()

	out, err := c.DecodeAll(rawHiFrame, []byte("prefix:"))
	require.NoError(t, err)
	assert.Equal(t, "prefix:hi", string(out))
}
