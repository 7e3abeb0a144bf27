package zstdframe

import (
	"fmt"

	"github.com/facebook/zstd-sub001/internal/bitstream"
	"github.com/facebook/zstd-sub001/internal/fse"
	"github.com/facebook/zstd-sub001/internal/window"
)

// RepeatOffsets is the three-entry history of previously used match
// offsets, threaded through a frame's sequences sections and seeded from
// an attached dictionary (spec.md §4.7, §4.10).
type RepeatOffsets [3]uint32

// DefaultRepeatOffsets is the triple every frame starts from absent a
// dictionary override.
var DefaultRepeatOffsets = RepeatOffsets{1, 4, 8}

// Execute decodes nbSeq sequences from payload using tables and reps,
// emitting litLen literal bytes (drawn from literals) and matchLen
// back-reference bytes (drawn from w) for each, then appends any
// trailing literals once the last sequence has run (spec.md §4.7, §4.8).
// reps is updated in place so the caller can carry it into the next
// block.
func Execute(w *window.Window, literals []byte, payload []byte, nbSeq int, tables *Tables, reps *RepeatOffsets) error {
	if nbSeq == 0 {
		w.Append(literals)
		return nil
	}

	var br bitstream.Reader
	if err := br.Init(payload); err != nil {
		return fmt.Errorf("zstdframe: sequences bitstream: %w", err)
	}

	// Initialization order mirrors encoder write order: literal-length
	// state loaded first (into the high bits), then offset, then match
	// length.
	var llState, ofState, mlState fse.State
	llState.Init(&br, &tables.LL)
	ofState.Init(&br, &tables.OF)
	mlState.Init(&br, &tables.ML)

	litPos := 0
	for i := 0; i < nbSeq; i++ {
		llCode := llState.Peek()
		ofCode := ofState.Peek()
		mlCode := mlState.Peek()

		ofBase, ofBits := offsetBaseAndBits(ofCode)
		if int(mlCode) >= len(matchLengthCodes) {
			return fmt.Errorf("zstdframe: match-length code %d out of range", mlCode)
		}
		mlEntry := matchLengthCodes[mlCode]
		if int(llCode) >= len(literalLengthCodes) {
			return fmt.Errorf("zstdframe: literal-length code %d out of range", llCode)
		}
		llEntry := literalLengthCodes[llCode]

		// Extra bits are read offset, then match-length, then
		// literal-length, with a reload between the offset group and
		// the match-length/literal-length group (spec.md §4.7 step 1).
		if br.Reload() == bitstream.Overflow {
			return fmt.Errorf("zstdframe: sequence %d: bitstream overflow", i)
		}
		var ofExtra uint64
		if ofBits > 0 {
			ofExtra = br.ReadBitsFast(uint32(ofBits))
		}
		if br.Reload() == bitstream.Overflow {
			return fmt.Errorf("zstdframe: sequence %d: bitstream overflow", i)
		}
		var mlExtra, llExtra uint64
		if mlEntry.bits > 0 {
			mlExtra = br.ReadBitsFast(uint32(mlEntry.bits))
		}
		if llEntry.bits > 0 {
			llExtra = br.ReadBitsFast(uint32(llEntry.bits))
		}

		litLen := uint64(llEntry.base) + llExtra
		matchLen := uint64(mlEntry.base) + mlExtra
		offsetValue := uint64(ofBase) + ofExtra

		actualOffset, err := resolveOffset(offsetValue, litLen, reps)
		if err != nil {
			return fmt.Errorf("zstdframe: sequence %d: %w", i, err)
		}

		// States advance match-length first, offset second,
		// literal-length last (spec.md §4.7 step 4), except on the
		// final sequence where no further state is needed.
		if i != nbSeq-1 {
			mlState.Advance(&br)
			ofState.Advance(&br)
			llState.Advance(&br)
		}

		if litPos+int(litLen) > len(literals) {
			return fmt.Errorf("zstdframe: sequence %d: literal length %d exceeds remaining literals", i, litLen)
		}
		w.Append(literals[litPos : litPos+int(litLen)])
		litPos += int(litLen)

		if err := w.CopyMatch(actualOffset, matchLen); err != nil {
			return fmt.Errorf("zstdframe: sequence %d: %w", i, err)
		}
	}

	if !br.AtExactEnd() {
		return fmt.Errorf("zstdframe: sequences bitstream did not end at its end mark")
	}

	w.Append(literals[litPos:])
	return nil
}

// resolveOffset applies the repeat-offset rules of spec.md §4.7 step 3
// and returns the offset to use for this sequence's match copy, updating
// reps in place.
func resolveOffset(offsetValue, litLen uint64, reps *RepeatOffsets) (uint64, error) {
	if offsetValue > 3 {
		actual := offsetValue - 3
		reps[2] = reps[1]
		reps[1] = reps[0]
		reps[0] = uint32(actual)
		return actual, nil
	}

	if offsetValue == 0 {
		return 0, fmt.Errorf("corruption_detected: offset value 0")
	}

	// repCode folds offset_value and the litLen==0 adjustment into one
	// selector, matching ZSTD_updateRep: 0 means rep1 is reused verbatim
	// (no rotation at all), 3 is the rep1-1 special case, and the old rep2
	// only moves into rep3's slot when repCode >= 2.
	old := *reps
	ll0 := uint64(0)
	if litLen == 0 {
		ll0 = 1
	}
	repCode := offsetValue - 1 + ll0

	if repCode == 0 {
		if old[0] == 0 {
			return 0, fmt.Errorf("corruption_detected: repeat offset resolved to 0")
		}
		return uint64(old[0]), nil
	}

	var newRep1 uint32
	if repCode == 3 {
		if old[0] == 1 {
			return 0, fmt.Errorf("corruption_detected: repeat offset 3 with rep1 == 1")
		}
		newRep1 = old[0] - 1
	} else {
		newRep1 = old[repCode]
	}
	if newRep1 == 0 {
		return 0, fmt.Errorf("corruption_detected: repeat offset resolved to 0")
	}

	if repCode >= 2 {
		reps[2] = old[1]
	}
	reps[1] = old[0]
	reps[0] = newRep1
	return uint64(newRep1), nil
}
