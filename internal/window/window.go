// Package window implements the decoder's sliding-window / output
// manager: a circular buffer holding the most recently decoded bytes of
// a frame, an optional dictionary content prefix available to matches
// that reach before the frame's own data, and the streaming flush
// bookkeeping described in spec.md §4.9.
package window

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Window is the per-context sliding window. It is reset once per frame
// (size and dictionary may change between frames) and reused across the
// blocks of one frame.
type Window struct {
	size uint64
	buf  []byte

	total   uint64 // bytes decoded so far in this frame
	flushed uint64 // bytes already copied out to the caller

	dict []byte // dictionary content prefix, read-shared

	hasher  *xxhash.Digest
	checked bool
}

// Reset prepares the window for a new frame. size is the frame's
// window_size; dict, if non-nil, is the dictionary content prefix
// (read-shared, not copied). withChecksum enables the running content
// hash used to verify the frame's trailing checksum.
func (w *Window) Reset(size uint64, dict []byte, withChecksum bool) {
	if uint64(cap(w.buf)) < size {
		w.buf = make([]byte, size)
	} else {
		w.buf = w.buf[:size]
	}
	w.size = size
	w.total = 0
	w.flushed = 0
	w.dict = dict
	if withChecksum {
		if w.hasher == nil {
			w.hasher = xxhash.New()
		} else {
			w.hasher.Reset()
		}
	}
	w.checked = withChecksum
}

// Size returns the configured window_size.
func (w *Window) Size() uint64 { return w.size }

// Total returns the number of bytes decoded so far in the current frame.
func (w *Window) Total() uint64 { return w.total }

// Pending returns the number of decoded bytes not yet drained to the
// caller via Flush.
func (w *Window) Pending() uint64 { return w.total - w.flushed }

// ChecksumLow32 returns the low 32 bits of the running xxh64 digest, as
// stored in a frame's trailing Content_Checksum (spec.md §3).
func (w *Window) ChecksumLow32() uint32 {
	if w.hasher == nil {
		return 0
	}
	return uint32(w.hasher.Sum64())
}

// Append writes literal bytes produced by the literals section or a raw
// block directly into the window.
func (w *Window) Append(p []byte) {
	for len(p) > 0 {
		off := w.total % w.size
		n := copy(w.buf[off:], p)
		if w.checked {
			w.hasher.Write(p[:n])
		}
		w.total += uint64(n)
		p = p[n:]
	}
}

// AppendByte writes a single byte, the common case for RLE blocks and
// byte-wise match replication.
func (w *Window) AppendByte(b byte) {
	off := w.total % w.size
	w.buf[off] = b
	if w.checked {
		w.hasher.Write([]byte{b})
	}
	w.total++
}

// CopyMatch copies length bytes from offset bytes before the current
// position into the window, per spec.md §4.8. offset may be smaller than
// length (overlapping replication) and the source range may cross from
// the dictionary prefix into the frame's own output.
func (w *Window) CopyMatch(offset, length uint64) error {
	if offset < 1 {
		return fmt.Errorf("window: zero match offset")
	}
	available := w.total + uint64(len(w.dict))
	if offset > available {
		return fmt.Errorf("window: offset %d reaches before the oldest available byte (available %d)", offset, available)
	}
	if offset <= w.total && offset > w.size {
		return fmt.Errorf("window: offset %d exceeds window size %d", offset, w.size)
	}

	for i := uint64(0); i < length; i++ {
		b, err := w.byteAt(offset)
		if err != nil {
			return err
		}
		w.AppendByte(b)
	}
	return nil
}

// byteAt returns the byte currently `offset` positions behind the write
// cursor, reading from the dictionary prefix if the offset reaches
// before the frame's own data.
func (w *Window) byteAt(offset uint64) (byte, error) {
	if offset <= w.total {
		pos := (w.total - offset) % w.size
		return w.buf[pos], nil
	}
	dictIdx := uint64(len(w.dict)) - (offset - w.total)
	if dictIdx >= uint64(len(w.dict)) {
		return 0, fmt.Errorf("window: offset %d reaches before the dictionary prefix", offset)
	}
	return w.dict[dictIdx], nil
}

// Flush copies as many pending bytes as fit into dst, in production
// order, and reports how many bytes were copied. Bytes already flushed
// are final and are never rewritten (spec.md §5 ordering guarantee).
func (w *Window) Flush(dst []byte) int {
	pending := w.Pending()
	n := uint64(len(dst))
	if n > pending {
		n = pending
	}
	copied := uint64(0)
	for copied < n {
		off := (w.flushed + copied) % w.size
		chunk := n - copied
		if max := w.size - off; chunk > max {
			chunk = max
		}
		copy(dst[copied:copied+chunk], w.buf[off:off+chunk])
		copied += chunk
	}
	w.flushed += copied
	return int(copied)
}
