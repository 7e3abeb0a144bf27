// Package bitstream implements the reverse bit stream reader shared by the
// FSE and Huffman entropy decoders.
//
// A zstd bit stream is written forward but read backward: the encoder
// fills bits starting at the low end of the output buffer and the decoder
// consumes the buffer from its last byte toward its first, taking the most
// significant unread bit of its 64-bit register first. See RFC 8878 §4.1
// and the companion description in spec.md §4.1.
package bitstream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrEmptyInput is returned by Init when given a zero-length buffer.
var ErrEmptyInput = errors.New("bitstream: empty input")

// ErrNoEndMark is returned by Init when the stream's last byte is zero,
// meaning the mandatory end-of-stream marker bit is absent.
var ErrNoEndMark = errors.New("bitstream: missing end mark")

// registerBits is the width, in bits, of the local decode register. zstd's
// reference decoder sizes this to size_t; we fix it at 64 bits so the same
// code path sustains four Huffman symbols or two FSE symbols per reload
// regardless of host architecture.
const registerBits = 64
const registerBytes = registerBits / 8

// Status is the result of a Reload call.
type Status int

const (
	// Unfinished means the register holds at least registerBits-7 valid bits.
	Unfinished Status = iota
	// EndOfBuffer means the start of the buffer was reached and the
	// register was only partially refilled: it holds every bit that is
	// left. Further Reloads keep reporting EndOfBuffer until those bits
	// are consumed.
	EndOfBuffer
	// Completed means the start of the buffer was reached and the
	// register has been fully drained; decoding is done.
	Completed
	// Overflow means more bits were consumed than the stream contained;
	// the input is corrupt.
	Overflow
)

// Reader reads a reverse bit stream out of buf, filling a 64-bit register
// from the tail of the buffer forward to its head.
type Reader struct {
	buf          []byte
	start        int // always 0; kept for readability against the reference algorithm
	ptr          int // index of the first byte backing the current register
	limit        int // ptr >= limit is the "fast reload" regime
	bitContainer uint64
	bitsConsumed uint32
}

// Init positions the reader at the end of buf and loads the initial
// register. buf's last byte must be non-zero: its highest set bit is the
// stream's end mark, and the decoder consumes buf from that mark backward.
func (r *Reader) Init(buf []byte) error {
	*r = Reader{}
	if len(buf) < 1 {
		return ErrEmptyInput
	}
	r.buf = buf
	r.limit = registerBytes
	if r.limit > len(buf) {
		r.limit = len(buf)
	}

	lastByte := buf[len(buf)-1]
	if lastByte == 0 {
		return ErrNoEndMark
	}

	if len(buf) >= registerBytes {
		r.ptr = len(buf) - registerBytes
		r.bitContainer = binary.LittleEndian.Uint64(buf[r.ptr:])
		r.bitsConsumed = 8 - highBit32(uint32(lastByte))
	} else {
		r.ptr = 0
		var container uint64
		for i := 0; i < len(buf); i++ {
			container |= uint64(buf[i]) << (8 * i)
		}
		r.bitContainer = container
		r.bitsConsumed = 8 - highBit32(uint32(lastByte))
		r.bitsConsumed += uint32(registerBytes-len(buf)) * 8
	}
	return nil
}

func highBit32(v uint32) uint32 {
	n := uint32(0)
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// LookBits returns the next nbBits from the register without consuming
// them. 0 <= nbBits <= 57.
func (r *Reader) LookBits(nbBits uint32) uint64 {
	start := uint32(registerBits) - r.bitsConsumed - nbBits
	if nbBits == 0 {
		return 0
	}
	return (r.bitContainer >> start) & mask(nbBits)
}

// LookBitsFast is LookBits without the nbBits==0 guard; the caller must
// ensure nbBits >= 1.
func (r *Reader) LookBitsFast(nbBits uint32) uint64 {
	return (r.bitContainer << r.bitsConsumed) >> (registerBits - nbBits)
}

// SkipBits advances the read cursor by nbBits without reading.
func (r *Reader) SkipBits(nbBits uint32) {
	r.bitsConsumed += nbBits
}

// ReadBits reads and consumes nbBits.
func (r *Reader) ReadBits(nbBits uint32) uint64 {
	v := r.LookBits(nbBits)
	r.SkipBits(nbBits)
	return v
}

// ReadBitsFast is the ReadBits/LookBitsFast pairing; nbBits must be >= 1.
func (r *Reader) ReadBitsFast(nbBits uint32) uint64 {
	v := r.LookBitsFast(nbBits)
	r.SkipBits(nbBits)
	return v
}

func mask(nbBits uint32) uint64 {
	if nbBits >= registerBits {
		return ^uint64(0)
	}
	return (uint64(1) << nbBits) - 1
}

// Reload refills the register from the buffer. Callers must call Reload
// often enough that the register never underflows inside a decode loop;
// it does not happen automatically.
func (r *Reader) Reload() Status {
	if r.bitsConsumed > registerBits {
		return Overflow
	}
	if r.ptr >= r.limit {
		r.ptr -= int(r.bitsConsumed >> 3)
		r.bitsConsumed &= 7
		r.bitContainer = r.readRegister(r.ptr)
		return Unfinished
	}
	if r.ptr == r.start {
		if r.bitsConsumed < registerBits {
			return EndOfBuffer
		}
		return Completed
	}
	nbBytes := int(r.bitsConsumed >> 3)
	status := Unfinished
	if r.ptr-nbBytes < r.start {
		nbBytes = r.ptr - r.start
		status = EndOfBuffer
	}
	r.ptr -= nbBytes
	r.bitsConsumed -= uint32(nbBytes) * 8
	r.bitContainer = r.readRegister(r.ptr)
	return status
}

// readRegister loads up to registerBytes little-endian bytes starting at
// off, zero-extending past the end of the buffer (used only near the tail
// end of buf, mirroring MEM_readLEST's guaranteed in-bounds access when
// off+registerBytes <= len(buf), which Reload's callers maintain).
func (r *Reader) readRegister(off int) uint64 {
	end := off + registerBytes
	if end <= len(r.buf) {
		return binary.LittleEndian.Uint64(r.buf[off:end])
	}
	var v uint64
	for i := 0; off+i < len(r.buf); i++ {
		v |= uint64(r.buf[off+i]) << (8 * i)
	}
	return v
}

// Finished reports whether the stream has been fully consumed, i.e. the
// register has drained back to the start of the buffer with zero bits
// remaining unconsumed.
func (r *Reader) Finished() bool {
	return r.ptr == r.start && r.bitsConsumed >= registerBits
}

// AtExactEnd reports whether the stream ended precisely on the end mark,
// as required after decoding the last FSE sequence (spec.md §4.7).
func (r *Reader) AtExactEnd() bool {
	return r.ptr == r.start && r.bitsConsumed == registerBits
}

func (r *Reader) String() string {
	return fmt.Sprintf("bitstream.Reader{ptr=%d,bitsConsumed=%d,len=%d}", r.ptr, r.bitsConsumed, len(r.buf))
}
