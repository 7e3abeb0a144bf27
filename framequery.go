package zstd

import (
	"fmt"

	"github.com/facebook/zstd-sub001/internal/zstdframe"
)

// FrameHeader is a parsed zstd frame header, usable without
// constructing a Context (spec.md §4.4, §6).
type FrameHeader = zstdframe.Header

// GetFrameHeader parses the frame header at the start of src without
// allocating a Context, mirroring ZSTD_getFrameHeader.
func GetFrameHeader(src []byte) (FrameHeader, int, error) {
	magic := uint32(0)
	if len(src) >= 4 {
		magic = uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
	}
	if zstdframe.IsSkippable(magic) {
		return FrameHeader{}, 0, fmt.Errorf("zstd: %w: skippable frame has no frame header", ErrPrefixUnknown)
	}
	h, err := zstdframe.GetFrameHeader(src)
	if err != nil {
		if need, ok := err.(zstdframe.ErrNeedMoreBytes); ok {
			return FrameHeader{}, int(need), nil
		}
		return FrameHeader{}, 0, fmt.Errorf("zstd: %w", ErrPrefixUnknown)
	}
	return h, h.HeaderSize, nil
}

// FindFrameCompressedSize scans the block headers of the single frame
// at the start of src and returns its total compressed size (header
// through the trailing checksum, if any), without decompressing any
// block payload.
func FindFrameCompressedSize(src []byte) (int64, error) {
	hdr, err := zstdframe.GetFrameHeader(src)
	if err != nil {
		return 0, fmt.Errorf("zstd: %w", ErrPrefixUnknown)
	}
	pos := hdr.HeaderSize
	for {
		if len(src) < pos+3 {
			return 0, newDecodeError(KindSrcSizeWrong, int64(pos), "truncated block header")
		}
		bh, err := zstdframe.ReadBlockHeader(src[pos:])
		if err != nil {
			return 0, newDecodeError(KindCorruption, int64(pos), err.Error())
		}
		pos += 3 + bh.WireSize()
		if bh.Last {
			break
		}
	}
	if hdr.ChecksumFlag {
		pos += 4
	}
	return int64(pos), nil
}

// GetDecompressedSize reports the frame's regenerated size if the
// header states it, or known=false if the encoder omitted it (spec.md
// §6).
func GetDecompressedSize(src []byte) (size uint64, known bool, err error) {
	hdr, err := zstdframe.GetFrameHeader(src)
	if err != nil {
		return 0, false, fmt.Errorf("zstd: %w", ErrPrefixUnknown)
	}
	return hdr.ContentSize, hdr.HasContentSize, nil
}
