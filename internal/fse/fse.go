// Package fse implements the decode side of zstd's Finite State Entropy
// (tANS) coder: building a decoding table from a normalized count
// distribution and running the single- and dual-state decode loops over a
// bitstream.Reader. Grounded on lib/decompress/fse_decompress.c of the
// reference implementation and spec.md §4.2.
package fse

import (
	"fmt"

	"github.com/facebook/zstd-sub001/internal/bitstream"
)

const (
	// MinTableLog is the smallest accepted table_log.
	MinTableLog = 5
	// MaxTableLogLiteralsLength, MaxTableLogMatchLength and
	// MaxTableLogOffsetCode are the format maxima for each sequence
	// symbol type (spec.md §3 invariants).
	MaxTableLogLiteralsLength = 9
	MaxTableLogMatchLength    = 9
	MaxTableLogOffsetCode     = 8
	// maxTableLogAbsolute bounds the NCount parser itself, independent
	// of which symbol type is being read.
	maxTableLogAbsolute = 9

	MaxSymbolLiteralsLength = 35
	MaxSymbolMatchLength    = 52
	MaxSymbolOffsetCode     = 31
)

// cell is one entry of a decoding table: the symbol it emits, how many
// extra bits to read, and the base state those bits are added to.
type cell struct {
	symbol  uint8
	nbBits  uint8
	newState uint16
}

// Table is a built FSE decoding table, reusable across blocks when the
// sequences section requests Repeat_Mode (spec.md §4.7).
type Table struct {
	cells    []cell
	tableLog uint8
	fastMode bool
	valid    bool
}

// Reset marks the table as requiring a rebuild before reuse.
func (t *Table) Reset() { t.valid = false }

// Clone returns a deep copy whose backing storage is independent of t,
// safe to hand to a consumer that may later rebuild its own copy
// in place (spec.md §9: a dictionary's precomputed tables are
// read-shared for the context's lifetime).
func (t *Table) Clone() Table {
	c := *t
	c.cells = append([]cell(nil), t.cells...)
	return c
}

// Valid reports whether the table currently holds usable decode state.
func (t *Table) Valid() bool { return t.valid }

// TableLog returns the table's table_log, meaningful only if Valid.
func (t *Table) TableLog() uint8 { return t.tableLog }

// Build constructs the decoding table from a normalized distribution.
// norm must hold maxSymbol+1 entries summing to 1<<tableLog, with -1
// marking "low probability" symbols per the spec's step 1.
func (t *Table) Build(norm []int16, maxSymbol int, tableLog uint8) error {
	if tableLog < MinTableLog || int(tableLog) > maxTableLogAbsolute {
		return fmt.Errorf("fse: table_log %d out of range", tableLog)
	}
	tableSize := 1 << tableLog
	if cap(t.cells) < tableSize {
		t.cells = make([]cell, tableSize)
	}
	t.cells = t.cells[:tableSize]

	highThreshold := tableSize - 1
	symbolNext := make([]uint16, maxSymbol+1)
	noLarge := true
	largeLimit := int16(1) << (tableLog - 1)

	symbols := make([]uint8, tableSize)
	for s := 0; s <= maxSymbol; s++ {
		if norm[s] == -1 {
			symbols[highThreshold] = uint8(s)
			highThreshold--
			symbolNext[s] = 1
		} else {
			if norm[s] >= largeLimit {
				noLarge = false
			}
			symbolNext[s] = uint16(norm[s])
		}
	}

	tableMask := tableSize - 1
	step := tableStep(tableSize)
	position := 0
	for s := 0; s <= maxSymbol; s++ {
		for i := int16(0); i < norm[s]; i++ {
			symbols[position] = uint8(s)
			position = (position + step) & tableMask
			for position > highThreshold {
				position = (position + step) & tableMask
			}
		}
	}
	if position != 0 {
		return fmt.Errorf("fse: normalized counter does not cover the table exactly")
	}

	for u := 0; u < tableSize; u++ {
		symbol := symbols[u]
		nextState := symbolNext[symbol]
		symbolNext[symbol]++
		nbBits := tableLog - highBit16(nextState)
		t.cells[u] = cell{
			symbol:   symbol,
			nbBits:   nbBits,
			newState: (nextState << nbBits) - uint16(tableSize),
		}
	}

	t.tableLog = tableLog
	t.fastMode = noLarge
	t.valid = true
	return nil
}

// BuildRLE installs a one-state table that always emits symbol, used for
// RLE_Mode symbol compression (spec.md §4.7).
func (t *Table) BuildRLE(symbol uint8) {
	if cap(t.cells) < 1 {
		t.cells = make([]cell, 1)
	}
	t.cells = t.cells[:1]
	t.cells[0] = cell{symbol: symbol, nbBits: 0, newState: 0}
	t.tableLog = 0
	t.fastMode = true
	t.valid = true
}

// BuildRaw installs a table that decodes nbBits raw bits as the symbol
// value itself, used by callers that want an FSE-shaped uniform code.
func (t *Table) BuildRaw(nbBits uint8) error {
	if nbBits < 1 {
		return fmt.Errorf("fse: raw table needs at least 1 bit")
	}
	tableSize := 1 << nbBits
	if cap(t.cells) < tableSize {
		t.cells = make([]cell, tableSize)
	}
	t.cells = t.cells[:tableSize]
	for s := 0; s < tableSize; s++ {
		t.cells[s] = cell{symbol: uint8(s), nbBits: nbBits, newState: 0}
	}
	t.tableLog = nbBits
	t.fastMode = true
	t.valid = true
	return nil
}

func tableStep(tableSize int) int {
	return (tableSize >> 1) + (tableSize >> 3) + 3
}

func highBit16(v uint16) uint8 {
	n := uint8(0)
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// State is one of the (up to three) interleaved FSE decode cursors used
// by the sequences section.
type State struct {
	table *Table
	value uint16
}

// Init reads table_log bits from br to seed the initial state, per
// spec.md §4.7 (literal-length state loaded first, then offset, then
// match length).
func (s *State) Init(br *bitstream.Reader, t *Table) {
	s.table = t
	s.value = uint16(br.ReadBitsFast(uint32(t.tableLog)))
}

// Peek returns the symbol the current state decodes to without advancing.
func (s *State) Peek() uint8 {
	return s.table.cells[s.value].symbol
}

// Advance reads the current cell's extra bits from br and transitions to
// the next state.
func (s *State) Advance(br *bitstream.Reader) {
	c := s.table.cells[s.value]
	var bits uint64
	if c.nbBits > 0 {
		if s.table.fastMode {
			bits = br.ReadBitsFast(uint32(c.nbBits))
		} else {
			bits = br.ReadBits(uint32(c.nbBits))
		}
	}
	s.value = c.newState + uint16(bits)
}

// DecodeSymbol is Peek followed by Advance, the common case when the
// caller has no use for the symbol before transitioning.
func (s *State) DecodeSymbol(br *bitstream.Reader) uint8 {
	sym := s.Peek()
	s.Advance(br)
	return sym
}
