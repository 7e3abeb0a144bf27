package zstdframe

import (
	"fmt"

	"github.com/facebook/zstd-sub001/internal/huff0"
)

// LiteralsBlockType identifies one of the four literals-section encodings
// (spec.md §4.6).
type LiteralsBlockType uint8

const (
	LiteralsRaw LiteralsBlockType = iota
	LiteralsRLE
	LiteralsCompressed
	LiteralsTreeless
)

// Literals is the decoded output of one block's literals section, handed
// to the sequence executor as the source of Literal_Length copies.
type Literals struct {
	Data []byte
}

// DecodeLiterals parses the literals section at the start of src and
// returns the regenerated literal bytes plus the number of bytes of src
// the section occupied (header + payload). huff is the block's running
// Huffman table: Compressed sections rebuild it, Treeless sections reuse
// whatever it currently holds and fail if it was never built.
//
// dst is an accumulation buffer the caller owns across blocks (window
// output reuses the same growth discipline as internal/window.Window);
// passing dst[:0] is the normal case.
func DecodeLiterals(dst []byte, src []byte, huff *huff0.Table) ([]byte, int, error) {
	if len(src) < 1 {
		return nil, 0, ErrNeedMoreBytes(1)
	}
	blockType := LiteralsBlockType(src[0] & 0x3)

	switch blockType {
	case LiteralsRaw, LiteralsRLE:
		sizeFormat := (src[0] >> 2) & 0x3
		var lhSize, regenSize int
		switch sizeFormat {
		case 0, 2:
			lhSize = 1
			regenSize = int(src[0] >> 3)
		case 1:
			if len(src) < 2 {
				return nil, 0, ErrNeedMoreBytes(2 - len(src))
			}
			lhSize = 2
			regenSize = int(uint16(src[0])|uint16(src[1])<<8) >> 4
		case 3:
			if len(src) < 3 {
				return nil, 0, ErrNeedMoreBytes(3 - len(src))
			}
			lhSize = 3
			regenSize = int(uint32(src[0])|uint32(src[1])<<8|uint32(src[2])<<16) >> 4
		}

		if blockType == LiteralsRaw {
			need := lhSize + regenSize
			if len(src) < need {
				return nil, 0, ErrNeedMoreBytes(need - len(src))
			}
			dst = append(dst, src[lhSize:need]...)
			return dst, need, nil
		}
		// RLE: one byte repeated regenSize times.
		if len(src) < lhSize+1 {
			return nil, 0, ErrNeedMoreBytes(lhSize + 1 - len(src))
		}
		b := src[lhSize]
		for i := 0; i < regenSize; i++ {
			dst = append(dst, b)
		}
		return dst, lhSize + 1, nil

	case LiteralsCompressed, LiteralsTreeless:
		if len(src) < 5 {
			return nil, 0, ErrNeedMoreBytes(5 - len(src))
		}
		lhlCode := (src[0] >> 2) & 0x3
		sizeBits := []uint{10, 10, 14, 18}[lhlCode]
		lhSize := []int{3, 3, 4, 5}[lhlCode]
		singleStream := lhlCode == 0

		var val uint64
		for i := 0; i < lhSize; i++ {
			val |= uint64(src[i]) << (8 * i)
		}
		litSize := int((val >> 4) & ((1 << sizeBits) - 1))
		compSize := int((val >> (4 + sizeBits)) & ((1 << sizeBits) - 1))

		need := lhSize + compSize
		if len(src) < need {
			return nil, 0, ErrNeedMoreBytes(need - len(src))
		}
		body := src[lhSize:need]

		if blockType == LiteralsCompressed {
			n, err := huff.ReadTable(body)
			if err != nil {
				return nil, 0, fmt.Errorf("zstdframe: literals Huffman table: %w", err)
			}
			body = body[n:]
		} else if !huff.Valid() {
			return nil, 0, fmt.Errorf("zstdframe: treeless literals with no prior Huffman table")
		}

		var err error
		if singleStream {
			dst, err = huff.Decompress1X(dst, body, litSize)
		} else {
			dst, err = huff.Decompress4X(dst, body, litSize)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("zstdframe: literals payload: %w", err)
		}
		return dst, need, nil

	default:
		return nil, 0, fmt.Errorf("zstdframe: unreachable literals block type")
	}
}
