package zstd

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/facebook/zstd-sub001/internal/zstdframe"
)

// CursorBuffer pairs a byte slice with a read/write cursor, the shape
// DecompressStream's lower-level callers use to track partially
// consumed input and partially filled output across calls (spec.md
// §4.11). Pos is always <= len(Data).
type CursorBuffer struct {
	Data []byte
	Pos  int
}

func (b *CursorBuffer) remaining() int { return len(b.Data) - b.Pos }

type driverStage int

const (
	dsExpectFrameHeader driverStage = iota
	dsSkipFrame
	dsExpectBlockHeader
	dsExpectBlock
	dsFlushOutput
	dsExpectChecksum
)

// streamState is the streaming driver's state machine bookkeeping,
// reset per Context.Reset and reinitialized lazily on first use
// (spec.md §4.11).
type streamState struct {
	stage driverStage

	staged []byte

	skipRemaining int

	curHeader      zstdframe.Header
	curBlockHeader zstdframe.BlockHeader
	blockNeed      int
	lastBlock      bool

	litBuf []byte
}

func (s *streamState) pull(src *CursorBuffer, need int) {
	if len(s.staged) >= need {
		return
	}
	avail := src.remaining()
	if avail <= 0 {
		return
	}
	take := need - len(s.staged)
	if take > avail {
		take = avail
	}
	s.staged = append(s.staged, src.Data[src.Pos:src.Pos+take]...)
	src.Pos += take
}

func (s *streamState) fill(src *CursorBuffer, need int) bool {
	s.pull(src, need)
	return len(s.staged) >= need
}

func (s *streamState) consume(n int) {
	s.staged = s.staged[n:]
}

// DecompressStream advances the streaming state machine as far as it
// can using bytes available in src, writing decoded output into dst,
// and returns a hint for how many more input bytes would let it make
// further progress (0 if either a frame just completed or dst is full;
// spec.md §4.11).
func (c *Context) DecompressStream(dst, src *CursorBuffer) (int, error) {
	if c.closed.Load() {
		return 0, newDecodeError(KindStageWrong, -1, "use of closed context")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if stage(c.stage.Load()) == stageError {
		return 0, newDecodeError(KindStageWrong, -1, "context is in an error state, call Reset")
	}
	c.stage.Store(int32(stageStreaming))

	s := &c.stream
	for {
		switch s.stage {
		case dsExpectFrameHeader:
			if !s.fill(src, 4) {
				return 4 - len(s.staged), nil
			}
			magic := binary.LittleEndian.Uint32(s.staged)
			if zstdframe.IsSkippable(magic) {
				if !s.fill(src, 8) {
					return 8 - len(s.staged), nil
				}
				length, _ := zstdframe.SkippableLength(s.staged[4:8])
				s.skipRemaining = int(length)
				s.consume(8)
				s.stage = dsSkipFrame
				continue
			}

			hdr, err := zstdframe.GetFrameHeader(s.staged)
			if err != nil {
				if need, ok := err.(zstdframe.ErrNeedMoreBytes); ok {
					if !s.fill(src, len(s.staged)+int(need)) {
						return int(need), nil
					}
					continue
				}
				c.stage.Store(int32(stageError))
				return 0, c.classifyFrameHeaderErr(err)
			}

			if hdr.WindowSize > uint64(1)<<uint(c.p.windowLogMax) {
				c.stage.Store(int32(stageError))
				return 0, newDecodeError(KindWindowTooLarge, 0,
					fmt.Sprintf("window size %d exceeds cap 1<<%d", hdr.WindowSize, c.p.windowLogMax))
			}

			d, derr := c.dictForID(hdr.DictionaryID)
			if derr != nil && hdr.DictionaryID != 0 {
				c.stage.Store(int32(stageError))
				return 0, derr
			}

			var dictContent []byte
			c.tables.Reset()
			c.huff.Reset()
			c.reps = zstdframe.DefaultRepeatOffsets
			if d != nil {
				dictContent = d.Content
				for i, v := range d.RepeatOffsets {
					if v != 0 {
						c.reps[i] = v
					}
				}
				if d.Huffman.Valid() {
					c.huff = d.Huffman.Clone()
				}
				if d.OffsetTable.Valid() {
					c.tables.OF = d.OffsetTable.Clone()
				}
				if d.MatchLengthTable.Valid() {
					c.tables.ML = d.MatchLengthTable.Clone()
				}
				if d.LitLengthTable.Valid() {
					c.tables.LL = d.LitLengthTable.Clone()
				}
			}

			withChecksum := hdr.ChecksumFlag && !c.p.forceIgnoreChecksum
			c.win.Reset(hdr.WindowSize, dictContent, withChecksum)
			c.logger.Debug("frame header parsed", zap.Object("header", hdr))

			s.curHeader = hdr
			s.consume(hdr.HeaderSize)
			s.stage = dsExpectBlockHeader

		case dsSkipFrame:
			avail := src.remaining()
			take := s.skipRemaining
			if take > avail {
				take = avail
			}
			src.Pos += take
			s.skipRemaining -= take
			if s.skipRemaining > 0 {
				return s.skipRemaining, nil
			}
			s.stage = dsExpectFrameHeader

		case dsExpectBlockHeader:
			if !s.fill(src, 3) {
				return 3 - len(s.staged), nil
			}
			bh, err := zstdframe.ReadBlockHeader(s.staged)
			if err != nil {
				c.stage.Store(int32(stageError))
				return 0, newDecodeError(KindCorruption, 0, err.Error())
			}
			s.curBlockHeader = bh
			s.blockNeed = bh.WireSize()
			s.consume(3)
			s.stage = dsExpectBlock

		case dsExpectBlock:
			if !s.fill(src, s.blockNeed) {
				return s.blockNeed - len(s.staged), nil
			}
			payload := s.staged[:s.blockNeed]
			if err := c.decodeBlock(s.curBlockHeader, payload); err != nil {
				c.stage.Store(int32(stageError))
				return 0, err
			}
			s.consume(s.blockNeed)
			s.lastBlock = s.curBlockHeader.Last
			s.stage = dsFlushOutput

		case dsFlushOutput:
			n := c.win.Flush(dst.Data[dst.Pos:])
			dst.Pos += n
			if c.win.Pending() > 0 {
				return 0, nil
			}
			if !s.lastBlock {
				s.stage = dsExpectBlockHeader
				continue
			}
			if s.curHeader.ChecksumFlag && !c.p.forceIgnoreChecksum {
				s.stage = dsExpectChecksum
				continue
			}
			s.stage = dsExpectFrameHeader
			c.stage.Store(int32(stageIdle))
			return 0, nil

		case dsExpectChecksum:
			if !s.fill(src, 4) {
				return 4 - len(s.staged), nil
			}
			want := binary.LittleEndian.Uint32(s.staged[:4])
			got := c.win.ChecksumLow32()
			s.consume(4)
			if want != got {
				c.stage.Store(int32(stageError))
				return 0, newDecodeError(KindChecksumWrong, 0,
					fmt.Sprintf("frame checksum mismatch: want %08x, got %08x", want, got))
			}
			s.stage = dsExpectFrameHeader
			c.stage.Store(int32(stageIdle))
			return 0, nil
		}
	}
}

func (c *Context) classifyFrameHeaderErr(err error) error {
	if errors.Is(err, zstdframe.ErrReservedBitSet) {
		return newDecodeError(KindFrameParameterUnsupported, 0, err.Error())
	}
	return newDecodeError(KindPrefixUnknown, 0, err.Error())
}

// decodeBlock regenerates one block's bytes into the window.
func (c *Context) decodeBlock(bh zstdframe.BlockHeader, payload []byte) error {
	switch bh.Type {
	case zstdframe.BlockRaw:
		c.win.Append(payload)
		return nil
	case zstdframe.BlockRLE:
		for i := uint32(0); i < bh.BlockSize; i++ {
			c.win.AppendByte(payload[0])
		}
		return nil
	case zstdframe.BlockCompressed:
		return c.decodeCompressedBlock(payload)
	default:
		return newDecodeError(KindCorruption, 0, "reserved block type")
	}
}

func (c *Context) decodeCompressedBlock(payload []byte) error {
	c.stream.litBuf = c.stream.litBuf[:0]
	lits, consumed, err := zstdframe.DecodeLiterals(c.stream.litBuf, payload, &c.huff)
	if err != nil {
		return newDecodeError(KindCorruption, 0, fmt.Sprintf("literals: %v", err))
	}
	c.stream.litBuf = lits
	rest := payload[consumed:]

	seqHeader, n, err := zstdframe.ReadSeqHeader(rest)
	if err != nil {
		return newDecodeError(KindCorruption, 0, fmt.Sprintf("sequences header: %v", err))
	}
	rest = rest[n:]

	if seqHeader.NbSequences > 0 {
		n, err = c.tables.LoadTables(seqHeader, rest)
		if err != nil {
			return newDecodeError(KindCorruption, 0, fmt.Sprintf("sequences tables: %v", err))
		}
		rest = rest[n:]
	}

	if err := zstdframe.Execute(&c.win, lits, rest, seqHeader.NbSequences, &c.tables, &c.reps); err != nil {
		return newDecodeError(KindCorruption, 0, err.Error())
	}
	return nil
}
