package zstdframe

import "testing"

func TestReadBlockHeaderRaw(t *testing.T) {
	// word = Last(1) | Type(0)<<1 | BlockSize(5)<<3 = 41.
	h, err := ReadBlockHeader([]byte{0x29, 0x00, 0x00})
	if err != nil {
		t.Fatalf("ReadBlockHeader: %v", err)
	}
	if !h.Last || h.Type != BlockRaw || h.BlockSize != 5 {
		t.Fatalf("h = %+v, want Last=true Type=raw BlockSize=5", h)
	}
	if h.WireSize() != 5 {
		t.Fatalf("WireSize() = %d, want 5", h.WireSize())
	}
}

func TestReadBlockHeaderRLEWireSizeIsAlwaysOne(t *testing.T) {
	// word = Last(0) | Type(1)<<1 | BlockSize(100)<<3 = 802.
	h, err := ReadBlockHeader([]byte{0x22, 0x03, 0x00})
	if err != nil {
		t.Fatalf("ReadBlockHeader: %v", err)
	}
	if h.Last || h.Type != BlockRLE || h.BlockSize != 100 {
		t.Fatalf("h = %+v, want Last=false Type=rle BlockSize=100", h)
	}
	if h.WireSize() != 1 {
		t.Fatalf("WireSize() = %d, want 1: an RLE block is always a single byte on the wire", h.WireSize())
	}
}

func TestReadBlockHeaderRejectsReservedType(t *testing.T) {
	if _, err := ReadBlockHeader([]byte{0x06, 0x00, 0x00}); err == nil {
		t.Fatalf("ReadBlockHeader should reject block type 3")
	}
}

func TestReadBlockHeaderRejectsOversizedBlock(t *testing.T) {
	// word = Last(0) | Type(2)<<1 | BlockSize(200000)<<3 = 1600004 = 0x186A04.
	if _, err := ReadBlockHeader([]byte{0x04, 0x6A, 0x18}); err == nil {
		t.Fatalf("ReadBlockHeader should reject a block size over MaxBlockSize")
	}
}

func TestReadBlockHeaderRequestsMoreBytes(t *testing.T) {
	if _, err := ReadBlockHeader([]byte{0x01, 0x00}); err == nil {
		t.Fatalf("ReadBlockHeader with fewer than 3 bytes should fail")
	}
}
