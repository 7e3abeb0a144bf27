// Package zstdframe implements the frame, block, literals-section,
// sequences-section and sequence-execution layers of the zstd format:
// spec.md §4.4 through §4.8. It sits on top of internal/bitstream,
// internal/fse and internal/huff0 and writes decoded output into an
// internal/window.Window.
package zstdframe

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Magic numbers recognized at the start of a frame (spec.md §6).
const (
	ZstdMagic            = 0xFD2FB528
	SkippableMagicLow    = 0x184D2A50
	SkippableMagicHigh   = 0x184D2A5F
	minHeaderSize        = 5 // descriptor + smallest possible window/dictID/fcs combination's prefix we must see to size the rest
	maxFrameHeaderSize   = 18
)

// Header is a parsed zstd frame header (spec.md §3).
type Header struct {
	SingleSegment   bool
	ChecksumFlag    bool
	WindowSize      uint64
	DictionaryID    uint32
	ContentSize     uint64
	HasContentSize  bool
	HeaderSize      int
}

func (h Header) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddBool("singleSegment", h.SingleSegment)
	enc.AddBool("checksum", h.ChecksumFlag)
	enc.AddUint64("windowSize", h.WindowSize)
	enc.AddUint32("dictionaryID", h.DictionaryID)
	enc.AddUint64("contentSize", h.ContentSize)
	enc.AddBool("hasContentSize", h.HasContentSize)
	return nil
}

// IsSkippable reports whether magic identifies a skippable frame
// (spec.md §3: the inclusive range 0x184D2A50..0x184D2A5F).
func IsSkippable(magic uint32) bool {
	return magic >= SkippableMagicLow && magic <= SkippableMagicHigh
}

// SkippableLength reads the 4-byte little-endian length following a
// skippable frame's magic number. src must start right after the magic.
func SkippableLength(src []byte) (uint32, error) {
	if len(src) < 4 {
		return 0, ErrNeedMoreBytes(4 - len(src))
	}
	return binary.LittleEndian.Uint32(src), nil
}

// ErrNeedMoreBytes signals to the streaming driver how many additional
// bytes must be accumulated before parsing can proceed; it is not a
// terminal error.
type ErrNeedMoreBytes int

func (e ErrNeedMoreBytes) Error() string {
	return fmt.Sprintf("zstdframe: need %d more bytes", int(e))
}

// GetFrameHeader parses the frame header at the start of src (spec.md
// §4.4). If src is shorter than the header the descriptor implies, it
// returns ErrNeedMoreBytes(n) so the caller can accumulate n more bytes
// and retry; this never consumes partial input.
func GetFrameHeader(src []byte) (Header, error) {
	if len(src) < 5 {
		return Header{}, ErrNeedMoreBytes(5 - len(src))
	}
	magic := binary.LittleEndian.Uint32(src)
	if magic != ZstdMagic {
		return Header{}, fmt.Errorf("zstdframe: %w", errPrefixUnknownSentinel)
	}

	descriptor := src[4]
	fcsFlag := descriptor >> 6
	singleSegment := descriptor&(1<<5) != 0
	reservedBit := descriptor&(1<<3) != 0
	checksumFlag := descriptor&(1<<2) != 0
	dictIDFlag := descriptor & 0x3

	if reservedBit {
		return Header{}, fmt.Errorf("zstdframe: %w", errReservedBitSetSentinel)
	}

	pos := 5
	var windowDescSize int
	if !singleSegment {
		windowDescSize = 1
	}
	dictIDSize := []int{0, 1, 2, 4}[dictIDFlag]
	fcsSize := []int{0, 2, 4, 8}[fcsFlag]
	if fcsFlag == 0 && singleSegment {
		fcsSize = 1
	}

	need := pos + windowDescSize + dictIDSize + fcsSize
	if len(src) < need {
		return Header{}, ErrNeedMoreBytes(need - len(src))
	}

	h := Header{SingleSegment: singleSegment, ChecksumFlag: checksumFlag}

	if !singleSegment {
		wd := src[pos]
		pos++
		exp := uint(wd >> 3)
		mantissa := uint64(wd & 7)
		windowBase := uint64(1) << (10 + exp)
		h.WindowSize = windowBase + (mantissa << (exp + 7))
	}

	if dictIDSize > 0 {
		var v uint32
		switch dictIDSize {
		case 1:
			v = uint32(src[pos])
		case 2:
			v = uint32(binary.LittleEndian.Uint16(src[pos:]))
		case 4:
			v = binary.LittleEndian.Uint32(src[pos:])
		}
		h.DictionaryID = v
		pos += dictIDSize
	}

	if fcsSize > 0 {
		var v uint64
		switch fcsSize {
		case 1:
			v = uint64(src[pos])
		case 2:
			v = uint64(binary.LittleEndian.Uint16(src[pos:])) + 256
		case 4:
			v = uint64(binary.LittleEndian.Uint32(src[pos:]))
		case 8:
			v = binary.LittleEndian.Uint64(src[pos:])
		}
		h.ContentSize = v
		h.HasContentSize = true
		pos += fcsSize
	}

	if singleSegment {
		h.WindowSize = h.ContentSize
	}

	h.HeaderSize = pos
	return h, nil
}

// sentinels for frame-header failures; the root package's stream.go maps
// them onto its own error kinds. Declared here so this package does not
// import the root package (which imports this one).
var (
	errPrefixUnknownSentinel  = fmt.Errorf("prefix not recognized as a zstd frame")
	errReservedBitSetSentinel = fmt.Errorf("reserved descriptor bit is set")
)

// ErrPrefixUnknown and ErrReservedBitSet let callers recognize these two
// conditions with errors.Is.
var (
	ErrPrefixUnknown  = errPrefixUnknownSentinel
	ErrReservedBitSet = errReservedBitSetSentinel
)
