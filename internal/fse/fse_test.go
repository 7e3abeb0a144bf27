package fse

import (
	"testing"

	"github.com/facebook/zstd-sub001/internal/bitstream"
)

func TestBuildRejectsTableLogOutOfRange(t *testing.T) {
	var table Table
	if err := table.Build([]int16{1}, 0, MinTableLog-1); err == nil {
		t.Fatalf("Build with table_log below MinTableLog should fail")
	}
	if err := table.Build([]int16{1}, 0, maxTableLogAbsolute+1); err == nil {
		t.Fatalf("Build with table_log above the format maximum should fail")
	}
}

func TestBuildRejectsCounterThatDoesNotCoverTheTable(t *testing.T) {
	var table Table
	// tableLog 5 requires counts summing to 32; this sums to 4.
	if err := table.Build([]int16{2, 2}, 1, MinTableLog); err == nil {
		t.Fatalf("Build should reject a normalized counter that underfills the table")
	}
}

func TestBuildAndDecodeTwoSymbolTable(t *testing.T) {
	var table Table
	if err := table.Build([]int16{24, 8}, 1, 5); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !table.Valid() {
		t.Fatalf("table not marked valid after Build")
	}
	if table.TableLog() != 5 {
		t.Fatalf("TableLog() = %d, want 5", table.TableLog())
	}
	if table.fastMode {
		t.Fatalf("fastMode = true, want false: count 24 meets the large-probability threshold (16) at table_log 5")
	}

	var br bitstream.Reader
	// Payload bits (MSB-first after the mark): 1,1,1,1,1,0,1 - the first
	// five select initial state 31 (a symbol-1 cell whose next-state base
	// is 28), the last two are state 31's 2 extra bits.
	if err := br.Init([]byte{0xFD}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var st State
	st.Init(&br, &table)
	if st.value != 31 {
		t.Fatalf("initial state = %d, want 31", st.value)
	}
	if sym := st.Peek(); sym != 1 {
		t.Fatalf("Peek() = %d, want 1", sym)
	}
	st.Advance(&br)
	if st.value != 29 {
		t.Fatalf("state after Advance = %d, want 29", st.value)
	}
	if !br.AtExactEnd() {
		t.Fatalf("AtExactEnd() = false after consuming every payload bit")
	}
}

func TestBuildRLEAlwaysEmitsTheSameSymbol(t *testing.T) {
	var table Table
	table.BuildRLE(7)
	if !table.Valid() || table.TableLog() != 0 {
		t.Fatalf("BuildRLE left table in unexpected state: valid=%v log=%d", table.Valid(), table.TableLog())
	}

	var br bitstream.Reader
	if err := br.Init([]byte{0x01}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var st State
	st.Init(&br, &table)
	sym := st.DecodeSymbol(&br)
	if sym != 7 {
		t.Fatalf("DecodeSymbol() = %d, want 7", sym)
	}
	if !br.AtExactEnd() {
		t.Fatalf("AtExactEnd() = false: RLE_Mode consumes zero bitstream bits")
	}
}

func TestBuildRawDecodesLiteralBits(t *testing.T) {
	var table Table
	if err := table.BuildRaw(3); err != nil {
		t.Fatalf("BuildRaw: %v", err)
	}
	if len(table.cells) != 8 {
		t.Fatalf("BuildRaw(3) produced %d cells, want 8", len(table.cells))
	}
	for s := 0; s < 8; s++ {
		if table.cells[s].symbol != uint8(s) || table.cells[s].nbBits != 3 {
			t.Fatalf("cell %d = %+v, want symbol %d nbBits 3", s, table.cells[s], s)
		}
	}
}

func TestCloneIsIndependentOfSource(t *testing.T) {
	var table Table
	if err := table.Build([]int16{24, 8}, 1, 5); err != nil {
		t.Fatalf("Build: %v", err)
	}
	clone := table.Clone()
	clone.cells[0].symbol = 99
	if table.cells[0].symbol == 99 {
		t.Fatalf("mutating the clone's cells mutated the source table's backing array")
	}
}

func TestPredefinedTablesBuildSuccessfully(t *testing.T) {
	var ll, ml, of Table
	if err := BuildLiteralsLengthDefault(&ll); err != nil {
		t.Fatalf("BuildLiteralsLengthDefault: %v", err)
	}
	if ll.TableLog() != LiteralsLengthDefaultNormLog {
		t.Fatalf("literals length table_log = %d, want %d", ll.TableLog(), LiteralsLengthDefaultNormLog)
	}
	if err := BuildMatchLengthDefault(&ml); err != nil {
		t.Fatalf("BuildMatchLengthDefault: %v", err)
	}
	if ml.TableLog() != MatchLengthDefaultNormLog {
		t.Fatalf("match length table_log = %d, want %d", ml.TableLog(), MatchLengthDefaultNormLog)
	}
	if err := BuildOffsetCodeDefault(&of); err != nil {
		t.Fatalf("BuildOffsetCodeDefault: %v", err)
	}
	if of.TableLog() != OffsetCodeDefaultNormLog {
		t.Fatalf("offset code table_log = %d, want %d", of.TableLog(), OffsetCodeDefaultNormLog)
	}
}

func TestReadNCountRejectsShortInput(t *testing.T) {
	if _, _, _, err := ReadNCount([]byte{0, 0, 0}, 35); err == nil {
		t.Fatalf("ReadNCount with fewer than 4 bytes should fail")
	}
}

func TestReadNCountRejectsTableLogTooLarge(t *testing.T) {
	// Low nibble of the leading little-endian uint32 is the table_log-5
	// field; 0xF gives table_log 20, past the format's absolute maximum.
	if _, _, _, err := ReadNCount([]byte{0x0F, 0, 0, 0}, 35); err == nil {
		t.Fatalf("ReadNCount with an oversized table_log should fail")
	}
}
