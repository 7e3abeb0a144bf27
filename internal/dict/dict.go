// Package dict parses a zstd dictionary blob into pre-built entropy
// tables, a repeat-offset triple and a content prefix, per spec.md §4.10.
package dict

import (
	"encoding/binary"
	"fmt"

	"github.com/facebook/zstd-sub001/internal/fse"
	"github.com/facebook/zstd-sub001/internal/huff0"
)

// Magic is the zstd dictionary format's magic number.
const Magic = 0xEC30A437

// Dictionary holds the parsed, ready-to-install state of a zstd
// dictionary: pre-built Huffman/FSE tables, the repeat-offset triple the
// encoder primed the stream with, and the raw content bytes available as
// a match-copy prefix.
type Dictionary struct {
	ID uint32

	Huffman huff0.Table

	OffsetTable      fse.Table
	MatchLengthTable fse.Table
	LitLengthTable   fse.Table

	RepeatOffsets [3]uint32

	Content []byte
}

// Raw constructs a Dictionary that supplies only a content prefix, no
// precomputed entropy tables and no repeat-offset override, as spec.md
// §4.10 allows for dictionaries in the "raw content" form (anything that
// doesn't start with Magic).
func Raw(content []byte) *Dictionary {
	return &Dictionary{Content: content}
}

// Parse interprets buf as a zstd-formatted dictionary: magic, dictID,
// three entropy tables (Huffman literals, then offset, match-length and
// literal-length FSE distributions), three little-endian repeat offsets,
// then content.
//
// Per spec.md §4.10 / §9's second Open Question, a repeat offset that is
// zero or larger than the dictionary's content length does not make the
// dictionary invalid: Parse stores that slot as 0, and a Context seeding
// a frame from this dictionary uses the default repeat offset for that
// slot instead. The slot is not marked unusable (see DESIGN.md).
func Parse(buf []byte) (*Dictionary, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("dict: input too small for a dictionary header")
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != Magic {
		return Raw(buf), nil
	}

	d := &Dictionary{ID: binary.LittleEndian.Uint32(buf[4:8])}
	p := buf[8:]

	n, err := d.Huffman.ReadTable(p)
	if err != nil {
		return nil, fmt.Errorf("dict: corrupted literals Huffman table: %w", err)
	}
	p = p[n:]

	for _, step := range []struct {
		name string
		t    *fse.Table
		max  int
	}{
		{"offset", &d.OffsetTable, fse.MaxSymbolOffsetCode},
		{"match length", &d.MatchLengthTable, fse.MaxSymbolMatchLength},
		{"literal length", &d.LitLengthTable, fse.MaxSymbolLiteralsLength},
	} {
		norm, tableLog, consumed, err := fse.ReadNCount(p, step.max)
		if err != nil {
			return nil, fmt.Errorf("dict: corrupted %s FSE table: %w", step.name, err)
		}
		if err := step.t.Build(norm, len(norm)-1, tableLog); err != nil {
			return nil, fmt.Errorf("dict: %s FSE table build: %w", step.name, err)
		}
		p = p[consumed:]
	}

	if len(p) < 12 {
		return nil, fmt.Errorf("dict: truncated before repeat offsets")
	}
	d.RepeatOffsets[0] = binary.LittleEndian.Uint32(p[0:4])
	d.RepeatOffsets[1] = binary.LittleEndian.Uint32(p[4:8])
	d.RepeatOffsets[2] = binary.LittleEndian.Uint32(p[8:12])
	d.Content = p[12:]

	for i, off := range d.RepeatOffsets {
		if off == 0 || uint64(off) > uint64(len(d.Content)) {
			// Lenient per the Open Question resolution above: zero out
			// so the first sequence that would consult it falls back to
			// treating it as unset rather than corrupting state. A
			// syntactically valid dictionary is never rejected for this.
			d.RepeatOffsets[i] = 0
		}
	}

	return d, nil
}
