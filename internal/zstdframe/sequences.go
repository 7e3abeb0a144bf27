package zstdframe

import (
	"fmt"

	"github.com/facebook/zstd-sub001/internal/fse"
)

// SymbolCompressionMode is one of the four ways a sequences-section
// symbol type (literal length, offset, match length) may be entropy
// coded (spec.md §4.7).
type SymbolCompressionMode uint8

const (
	ModePredefined SymbolCompressionMode = iota
	ModeRLE
	ModeFSECompressed
	ModeRepeat
)

// codeEntry maps a decoded FSE symbol ("code") to the base value added
// to its extra-bits read from the bitstream.
type codeEntry struct {
	base uint32
	bits uint8
}

// literalLengthCodes and matchLengthCodes reproduce RFC 8878's Literals
// Length Code and Match Length Code tables verbatim (spec.md §4.7, §6).
var literalLengthCodes = [36]codeEntry{
	{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}, {6, 0}, {7, 0},
	{8, 0}, {9, 0}, {10, 0}, {11, 0}, {12, 0}, {13, 0}, {14, 0}, {15, 0},
	{16, 1}, {18, 1}, {20, 1}, {22, 1}, {24, 2}, {28, 2}, {32, 3}, {40, 3},
	{48, 4}, {64, 6}, {128, 7}, {256, 8}, {512, 9}, {1024, 10}, {2048, 11},
	{4096, 12}, {8192, 13}, {16384, 14}, {32768, 15}, {65536, 16},
}

var matchLengthCodes = [53]codeEntry{
	{3, 0}, {4, 0}, {5, 0}, {6, 0}, {7, 0}, {8, 0}, {9, 0}, {10, 0},
	{11, 0}, {12, 0}, {13, 0}, {14, 0}, {15, 0}, {16, 0}, {17, 0}, {18, 0},
	{19, 0}, {20, 0}, {21, 0}, {22, 0}, {23, 0}, {24, 0}, {25, 0}, {26, 0},
	{27, 0}, {28, 0}, {29, 0}, {30, 0}, {31, 0}, {32, 0}, {33, 0}, {34, 0},
	{35, 1}, {37, 1}, {39, 1}, {41, 1}, {43, 2}, {47, 2}, {51, 3}, {59, 3},
	{67, 4}, {83, 4}, {99, 5}, {131, 7}, {259, 8}, {515, 9}, {1027, 10},
	{2051, 11}, {4099, 12}, {8195, 13}, {16387, 14}, {32771, 15}, {65539, 16},
}

// offsetBaseAndBits returns the base value and extra-bit count for
// an offset code: base = 1<<code, extra bits = code (spec.md §4.7).
func offsetBaseAndBits(code uint8) (uint32, uint8) {
	return uint32(1) << code, code
}

// Tables holds the three FSE decoding tables used by a frame's sequences
// sections, persisted across blocks so Repeat_Mode can reuse whichever
// table a prior block built (spec.md §4.7).
type Tables struct {
	LL fse.Table
	OF fse.Table
	ML fse.Table
}

// Reset marks all three tables as unbuilt, done once per frame.
func (t *Tables) Reset() {
	t.LL.Reset()
	t.OF.Reset()
	t.ML.Reset()
}

// SeqHeader is the parsed prefix of a sequences section: the sequence
// count and each symbol type's compression mode.
type SeqHeader struct {
	NbSequences int
	LLMode      SymbolCompressionMode
	OFMode      SymbolCompressionMode
	MLMode      SymbolCompressionMode
}

// ReadSeqHeader parses the sequence count and, if non-zero, the
// Symbol_Compression_Modes byte (spec.md §4.7).
func ReadSeqHeader(src []byte) (SeqHeader, int, error) {
	if len(src) < 1 {
		return SeqHeader{}, 0, ErrNeedMoreBytes(1)
	}
	var h SeqHeader
	pos := 0
	b0 := src[0]
	switch {
	case b0 == 0:
		return SeqHeader{NbSequences: 0}, 1, nil
	case b0 < 128:
		h.NbSequences = int(b0)
		pos = 1
	case b0 < 255:
		if len(src) < 2 {
			return SeqHeader{}, 0, ErrNeedMoreBytes(1)
		}
		h.NbSequences = (int(b0)-128)<<8 + int(src[1])
		pos = 2
	default:
		if len(src) < 3 {
			return SeqHeader{}, 0, ErrNeedMoreBytes(3 - len(src))
		}
		h.NbSequences = int(src[1]) + int(src[2])<<8 + 0x7F00
		pos = 3
	}

	if len(src) < pos+1 {
		return SeqHeader{}, 0, ErrNeedMoreBytes(pos + 1 - len(src))
	}
	modes := src[pos]
	pos++
	h.LLMode = SymbolCompressionMode((modes >> 6) & 0x3)
	h.OFMode = SymbolCompressionMode((modes >> 4) & 0x3)
	h.MLMode = SymbolCompressionMode((modes >> 2) & 0x3)
	return h, pos, nil
}

// loadTable installs the decoding table for one symbol type per its
// compression mode, consuming header bytes from src as needed.
func loadTable(t *fse.Table, mode SymbolCompressionMode, src []byte, maxSymbol int, buildDefault func(*fse.Table) error) (int, error) {
	switch mode {
	case ModePredefined:
		if err := buildDefault(t); err != nil {
			return 0, err
		}
		return 0, nil
	case ModeRLE:
		if len(src) < 1 {
			return 0, ErrNeedMoreBytes(1)
		}
		t.BuildRLE(src[0])
		return 1, nil
	case ModeFSECompressed:
		norm, tableLog, consumed, err := fse.ReadNCount(src, maxSymbol)
		if err != nil {
			return 0, fmt.Errorf("zstdframe: sequences FSE table: %w", err)
		}
		if err := t.Build(norm, len(norm)-1, tableLog); err != nil {
			return 0, fmt.Errorf("zstdframe: sequences FSE table build: %w", err)
		}
		return consumed, nil
	case ModeRepeat:
		if !t.Valid() {
			return 0, fmt.Errorf("zstdframe: repeat mode requested with no prior table")
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("zstdframe: unreachable symbol compression mode")
	}
}

// LoadTables installs all three sequences tables per h, consuming header
// bytes from the front of src (which must start right after the
// Symbol_Compression_Modes byte). It returns the number of bytes
// consumed; src[consumed:] is the start of the sequences bitstream.
func (t *Tables) LoadTables(h SeqHeader, src []byte) (int, error) {
	pos := 0
	n, err := loadTable(&t.LL, h.LLMode, src[pos:], fse.MaxSymbolLiteralsLength, fse.BuildLiteralsLengthDefault)
	if err != nil {
		return 0, fmt.Errorf("literal-length table: %w", err)
	}
	pos += n

	n, err = loadTable(&t.OF, h.OFMode, src[pos:], fse.MaxSymbolOffsetCode, fse.BuildOffsetCodeDefault)
	if err != nil {
		return 0, fmt.Errorf("offset table: %w", err)
	}
	pos += n

	n, err = loadTable(&t.ML, h.MLMode, src[pos:], fse.MaxSymbolMatchLength, fse.BuildMatchLengthDefault)
	if err != nil {
		return 0, fmt.Errorf("match-length table: %w", err)
	}
	pos += n

	return pos, nil
}
