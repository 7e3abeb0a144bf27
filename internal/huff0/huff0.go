// Package huff0 implements zstd's canonical Huffman literal decoder: weight
// table parsing (FSE-compressed or direct nibble form), flat single-symbol
// table construction, and single-stream / 4-stream-parallel decode loops.
// Grounded on lib/common/huf.h, lib/decompress/huf_decompress.c and the
// vendored klauspost/compress/huff0 decompress.go found in the example
// pack (see DESIGN.md), adapted to spec.md §4.3.
package huff0

import (
	"fmt"

	"github.com/facebook/zstd-sub001/internal/bitstream"
	"github.com/facebook/zstd-sub001/internal/fse"
)

// MaxTableLog is the format maximum for a Huffman decoding table
// (spec.md §3 invariants).
const MaxTableLog = 11

// entry is one slot of the flat single-symbol ("X2") decoding table: the
// byte it emits and how many bits that costs.
type entry struct {
	sym    byte
	nbBits uint8
}

// Table is a built canonical Huffman decoding table, reusable across
// literal blocks when Treeless literals request the previously built
// table (spec.md §4.6).
type Table struct {
	table    []entry
	tableLog uint8
	valid    bool

	weightFSE fse.Table
	weights   [256]uint8
	symbolLen int
}

// Valid reports whether the table currently holds a usable tree.
func (t *Table) Valid() bool { return t.valid }

// TableLog returns the table's table_log, meaningful only if Valid.
func (t *Table) TableLog() uint8 { return t.tableLog }

// Reset marks the table as requiring a rebuild before reuse.
func (t *Table) Reset() { t.valid = false }

// Clone returns a deep copy whose backing storage is independent of t;
// see fse.Table.Clone for why a dictionary's precomputed table needs
// this before a context can treat it as its own working state.
func (t *Table) Clone() Table {
	c := *t
	c.table = append([]entry(nil), t.table...)
	c.weightFSE = t.weightFSE.Clone()
	return c
}

// ReadTable parses a Huffman weight header from the front of src and
// builds the decoding table from it. It returns the number of header
// bytes consumed; src[consumed:] is the start of the compressed stream(s).
func (t *Table) ReadTable(src []byte) (consumed int, err error) {
	if len(src) < 1 {
		return 0, fmt.Errorf("huff0: empty table header")
	}
	hSize := int(src[0])
	body := src[1:]

	if hSize >= 128 {
		// Direct packed-nibble weights: nb_symbols = hSize-127, two
		// weights per following byte.
		nbSymbols := hSize - 127
		nbBytes := (nbSymbols + 1) / 2
		if len(body) < nbBytes {
			return 0, fmt.Errorf("huff0: direct weight table truncated")
		}
		for n := 0; n < nbSymbols; n += 2 {
			v := body[n/2]
			t.weights[n] = v >> 4
			if n+1 < nbSymbols {
				t.weights[n+1] = v & 0xF
			}
		}
		t.symbolLen = nbSymbols
		consumed = 1 + nbBytes
	} else {
		if len(body) < hSize {
			return 0, fmt.Errorf("huff0: FSE weight table truncated")
		}
		n, err := t.decodeFSEWeights(body[:hSize])
		if err != nil {
			return 0, err
		}
		t.symbolLen = n
		consumed = 1 + hSize
	}

	if err := t.buildFromWeights(); err != nil {
		return 0, err
	}
	return consumed, nil
}

// decodeFSEWeights reads an FSE-compressed weight list (a single FSE
// stream whose alphabet is the weight values 0..MaxTableLog) and returns
// the number of weights decoded into t.weights.
func (t *Table) decodeFSEWeights(src []byte) (int, error) {
	norm, tableLog, hdrLen, err := fse.ReadNCount(src, MaxTableLog)
	if err != nil {
		return 0, fmt.Errorf("huff0: weight NCount: %w", err)
	}
	if err := t.weightFSE.Build(norm, len(norm)-1, tableLog); err != nil {
		return 0, fmt.Errorf("huff0: weight table build: %w", err)
	}

	var br bitstream.Reader
	if err := br.Init(src[hdrLen:]); err != nil {
		return 0, fmt.Errorf("huff0: weight stream: %w", err)
	}

	var s1, s2 fse.State
	s1.Init(&br, &t.weightFSE)
	if br.Reload() == bitstream.Overflow {
		return 0, fmt.Errorf("huff0: weight stream too short")
	}
	s2.Init(&br, &t.weightFSE)

	n := 0
	for {
		if br.Reload() == bitstream.Overflow {
			return 0, fmt.Errorf("huff0: weight stream overflow")
		}
		if n >= len(t.weights) {
			return 0, fmt.Errorf("huff0: too many weights")
		}
		t.weights[n] = s1.DecodeSymbol(&br)
		n++
		if br.Finished() {
			break
		}
		if n >= len(t.weights) {
			return 0, fmt.Errorf("huff0: too many weights")
		}
		t.weights[n] = s2.DecodeSymbol(&br)
		n++
		if br.Finished() {
			break
		}
	}
	return n, nil
}

// buildFromWeights derives the implicit final weight, validates the
// weight sum is an exact power of two, and lays out the flat decode
// table (spec.md §4.3).
func (t *Table) buildFromWeights() error {
	var rankStats [MaxTableLog + 1]uint32
	var weightTotal uint32
	for _, w := range t.weights[:t.symbolLen] {
		if w > MaxTableLog {
			return fmt.Errorf("huff0: weight %d exceeds table log max", w)
		}
		rankStats[w]++
		weightTotal += (uint32(1) << w) >> 1
	}
	if weightTotal == 0 {
		return fmt.Errorf("huff0: all weights zero")
	}

	tableLog := highBit32(weightTotal) + 1
	if tableLog > MaxTableLog {
		return fmt.Errorf("huff0: implied table_log %d exceeds max", tableLog)
	}
	total := uint32(1) << tableLog
	rest := total - weightTotal
	verif := uint32(1) << highBit32(rest)
	lastWeight := highBit32(rest) + 1
	if verif != rest {
		return fmt.Errorf("huff0: implicit last weight is not a clean power of two")
	}
	t.weights[t.symbolLen] = uint8(lastWeight)
	t.symbolLen++
	rankStats[lastWeight]++

	if rankStats[1] < 2 || rankStats[1]&1 != 0 {
		return fmt.Errorf("huff0: rank-1 symbol count must be even and >= 2")
	}

	var nextRankStart uint32
	for n := uint8(1); n < uint8(tableLog)+1; n++ {
		current := nextRankStart
		nextRankStart += rankStats[n] << (n - 1)
		rankStats[n] = current
	}

	tableSize := 1 << tableLog
	if cap(t.table) < tableSize {
		t.table = make([]entry, tableSize)
	}
	t.table = t.table[:tableSize]

	for sym, w := range t.weights[:t.symbolLen] {
		if w == 0 {
			continue
		}
		length := (uint32(1) << w) >> 1
		e := entry{sym: byte(sym), nbBits: uint8(tableLog) + 1 - w}
		for u := rankStats[w]; u < rankStats[w]+length; u++ {
			t.table[u] = e
		}
		rankStats[w] += length
	}

	t.tableLog = uint8(tableLog)
	t.valid = true
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

// Decompress1X decodes a single Huffman-compressed bit stream, appending
// exactly dstLen bytes to dst.
func (t *Table) Decompress1X(dst []byte, src []byte, dstLen int) ([]byte, error) {
	if !t.valid {
		return nil, fmt.Errorf("huff0: no table loaded")
	}
	var br bitstream.Reader
	if err := br.Init(src); err != nil {
		return nil, fmt.Errorf("huff0: 1X stream: %w", err)
	}

	mask := uint32(len(t.table) - 1)
	start := len(dst)
	for len(dst) < start+dstLen {
		if br.Reload() == bitstream.Overflow {
			return nil, fmt.Errorf("huff0: 1X stream overflow")
		}
		idx := uint32(br.LookBitsFast(uint32(t.tableLog))) & mask
		e := t.table[idx]
		br.SkipBits(uint32(e.nbBits))
		dst = append(dst, e.sym)
	}
	if !br.Finished() {
		return nil, fmt.Errorf("huff0: 1X stream did not end exactly at end mark")
	}
	return dst, nil
}

// jumpTableSize is the size, in bytes, of the length header that splits a
// 4-stream literal block into four independently decodable bit streams
// (spec.md §4.3).
const jumpTableSize = 6

// MinSizeFor4Streams is the smallest compressed payload the format allows
// to use the 4-stream layout; below it, encoders fall back to 1-stream.
const MinSizeFor4Streams = 10

// Decompress4X decodes the four-stream-parallel layout, appending exactly
// dstLen bytes to dst as the concatenation (not interleave) of each
// stream's output.
func (t *Table) Decompress4X(dst []byte, src []byte, dstLen int) ([]byte, error) {
	if !t.valid {
		return nil, fmt.Errorf("huff0: no table loaded")
	}
	if len(src) < jumpTableSize+4 {
		return nil, fmt.Errorf("huff0: 4X input too small")
	}
	// zstd's own quarter split rounds the first three quarters up and
	// gives the remainder to the last stream.
	q := (dstLen + 3) / 4

	l1 := int(src[0]) | int(src[1])<<8
	l2 := int(src[2]) | int(src[3])<<8
	l3 := int(src[4]) | int(src[5])<<8
	start := jumpTableSize
	segs := make([][]byte, 4)
	for i, l := range []int{l1, l2, l3} {
		if start+l > len(src) {
			return nil, fmt.Errorf("huff0: 4X segment %d truncated", i)
		}
		segs[i] = src[start : start+l]
		start += l
	}
	segs[3] = src[start:]

	sizes := []int{q, q, q, dstLen - 3*q}

	for i := 0; i < 4; i++ {
		var err error
		dst, err = t.Decompress1X(dst, segs[i], sizes[i])
		if err != nil {
			return nil, fmt.Errorf("huff0: 4X segment %d: %w", i, err)
		}
	}
	return dst, nil
}
