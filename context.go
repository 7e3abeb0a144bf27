package zstd

import (
	"fmt"
	"sync"

	"github.com/google/btree"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/facebook/zstd-sub001/internal/dict"
	"github.com/facebook/zstd-sub001/internal/huff0"
	"github.com/facebook/zstd-sub001/internal/window"
	"github.com/facebook/zstd-sub001/internal/zstdframe"
)

// ResetMode selects how much of a Context's state Reset discards
// (spec.md §3).
type ResetMode int

const (
	// ResetSessionOnly drops transient per-frame/per-block state but
	// keeps the attached dictionary and configured parameters.
	ResetSessionOnly ResetMode = iota
	// ResetSessionAndParameters additionally wipes the dictionary and
	// restores parameters to their defaults.
	ResetSessionAndParameters
)

// stage tracks where a Context sits in the streaming state machine, so
// out-of-order API calls fail with ErrStageWrong instead of corrupting
// state (spec.md §7).
type stage int32

const (
	stageIdle stage = iota
	stageStreaming
	stageError
)

// ddictEntry is one row of the dictID-indexed dictionary table backing
// WithRefMultipleDDicts.
type ddictEntry struct {
	id uint32
	d  *dict.Dictionary
}

func lessDDict(a, b *ddictEntry) bool { return a.id < b.id }

// Context is a reusable decompression context: configured parameters,
// an optional attached dictionary (or table of dictionaries), and the
// working state for one frame at a time (spec.md §3, §5).
type Context struct {
	mu sync.Mutex

	p params

	activeDict *dict.Dictionary
	ddicts     *btree.BTreeG[*ddictEntry]

	win    window.Window
	tables zstdframe.Tables
	reps   zstdframe.RepeatOffsets
	huff   huff0.Table

	stage  atomic.Int32
	closed atomic.Bool

	logger *zap.Logger

	stream streamState
}

// NewContext allocates a decompression context. A freshly created
// Context has no dictionary and default parameters.
func NewContext(opts ...Option) (*Context, error) {
	c := &Context{}
	c.p.setDefault()
	for _, o := range opts {
		if err := o(&c.p); err != nil {
			return nil, fmt.Errorf("zstd: option: %w", err)
		}
	}
	c.logger = c.p.logger
	c.reps = zstdframe.DefaultRepeatOffsets
	return c, nil
}

// Close releases the Context. It is idempotent; calling it more than
// once is a no-op.
//
// If the caller closes mid-frame with the trailing checksum already
// fully staged but not yet compared (stage dsExpectChecksum with its 4
// bytes in hand), Close verifies it rather than silently discarding the
// result; that failure and any error from tearing down the multi-dict
// table are combined with multierr instead of one masking the other.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	checksumErr := c.verifyPendingChecksumLocked()
	ddictErr := c.teardownDDictsLocked()

	c.stream = streamState{}
	c.activeDict = nil
	return multierr.Append(checksumErr, ddictErr)
}

func (c *Context) verifyPendingChecksumLocked() error {
	if c.stream.stage != dsExpectChecksum || len(c.stream.staged) < 4 {
		return nil
	}
	want := uint32(c.stream.staged[0]) | uint32(c.stream.staged[1])<<8 |
		uint32(c.stream.staged[2])<<16 | uint32(c.stream.staged[3])<<24
	if got := c.win.ChecksumLow32(); want != got {
		return newDecodeError(KindChecksumWrong, -1,
			fmt.Sprintf("checksum mismatch detected on close: want %08x, got %08x", want, got))
	}
	return nil
}

func (c *Context) teardownDDictsLocked() error {
	c.ddicts = nil
	return nil
}

// Reset returns the Context to a known state per mode (spec.md §3).
// It is safe to call on an errored Context to recover it for reuse.
func (c *Context) Reset(mode ResetMode) error {
	if c.closed.Load() {
		return newDecodeError(KindStageWrong, -1, "reset on closed context")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stage.Store(int32(stageIdle))
	c.stream = streamState{}
	c.tables.Reset()
	c.huff.Reset()

	if mode == ResetSessionAndParameters {
		c.p.setDefault()
		c.activeDict = nil
		c.ddicts = nil
		c.reps = zstdframe.DefaultRepeatOffsets
		return nil
	}

	if c.activeDict != nil {
		c.loadDictStateLocked(c.activeDict)
	} else {
		c.reps = zstdframe.DefaultRepeatOffsets
	}
	return nil
}

// LoadDictionary attaches a dictionary to the context. By default the
// dictionary is copied; pass WithDictByReference(true) to keep a
// reference to the caller's slice instead.
func (c *Context) LoadDictionary(b []byte, opts ...DictOption) error {
	var dp dictParams
	dp.setDefault()
	for _, o := range opts {
		o(&dp)
	}

	buf := b
	if !dp.byReference {
		buf = append([]byte(nil), b...)
	}

	var d *dict.Dictionary
	var err error
	switch dp.contentType {
	case DictContentRaw:
		d = dict.Raw(buf)
	case DictContentZstd:
		if len(buf) < 4 || uint32(buf[0])|uint32(buf[1])<<8|uint32(buf[2])<<16|uint32(buf[3])<<24 != dict.Magic {
			err = fmt.Errorf("dict: zstd content type requested but the dictionary magic is missing")
		} else {
			d, err = dict.Parse(buf)
		}
	default:
		d, err = dict.Parse(buf)
	}
	if err != nil {
		return fmt.Errorf("zstd: %w", &DecodeError{Kind: KindDictionaryCorrupted, Offset: -1, Detail: err.Error(), cause: ErrDictionaryCorrupted})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeDict = d
	if c.p.refMultipleDDicts {
		if c.ddicts == nil {
			c.ddicts = btree.NewG(8, lessDDict)
		}
		c.ddicts.ReplaceOrInsert(&ddictEntry{id: d.ID, d: d})
	}
	c.loadDictStateLocked(d)
	return nil
}

// loadDictStateLocked seeds the repeat offsets from d; the dictionary's
// entropy tables are installed per frame by DecompressStream.
// Callers must hold c.mu.
func (c *Context) loadDictStateLocked(d *dict.Dictionary) {
	for i, v := range d.RepeatOffsets {
		if v != 0 {
			c.reps[i] = v
		} else {
			c.reps[i] = zstdframe.DefaultRepeatOffsets[i]
		}
	}
}

// dictForID resolves which dictionary governs a frame whose header
// requests dictID, honoring WithRefMultipleDDicts (spec.md §6).
func (c *Context) dictForID(dictID uint32) (*dict.Dictionary, error) {
	if dictID == 0 {
		return c.activeDict, nil
	}
	if c.ddicts != nil {
		if e, ok := c.ddicts.Get(&ddictEntry{id: dictID}); ok {
			return e.d, nil
		}
	}
	if c.activeDict != nil && c.activeDict.ID == dictID {
		return c.activeDict, nil
	}
	return nil, newDecodeError(KindDictionaryWrong, -1,
		fmt.Sprintf("frame requests dictID %d, no matching dictionary attached", dictID))
}

// EstimateDContextSize reports the approximate byte footprint of a
// Context decoding a frame with the given window log (spec.md §6).
func EstimateDContextSize(windowLog int) int64 {
	return int64(1) << uint(windowLog)
}

// EstimateDStreamSize reports the approximate footprint of a streaming
// Context: the window plus staging for one maximum-size block.
func EstimateDStreamSize(windowLog int) int64 {
	return EstimateDContextSize(windowLog) + zstdframe.MaxBlockSize
}
