package zstdframe

import (
	"testing"

	"github.com/facebook/zstd-sub001/internal/window"
)

func TestResolveOffsetLargeValueShiftsHistory(t *testing.T) {
	reps := RepeatOffsets{1, 4, 8}
	actual, err := resolveOffset(10, 5, &reps)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 7 {
		t.Fatalf("actual = %d, want 7", actual)
	}
	if reps != (RepeatOffsets{7, 1, 4}) {
		t.Fatalf("reps = %v, want {7 1 4}", reps)
	}
}

func TestResolveOffsetRepeat1WithLiterals(t *testing.T) {
	reps := RepeatOffsets{1, 4, 8}
	actual, err := resolveOffset(1, 5, &reps)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 1 {
		t.Fatalf("actual = %d, want 1", actual)
	}
	if reps != (RepeatOffsets{1, 4, 8}) {
		t.Fatalf("reps = %v, want unchanged {1 4 8}", reps)
	}
}

func TestResolveOffsetRepeat1WithoutLiteralsSubstitutesRep2(t *testing.T) {
	reps := RepeatOffsets{1, 4, 8}
	actual, err := resolveOffset(1, 0, &reps)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 4 {
		t.Fatalf("actual = %d, want 4", actual)
	}
	if reps != (RepeatOffsets{4, 1, 8}) {
		t.Fatalf("reps = %v, want {4 1 8}", reps)
	}
}

func TestResolveOffsetRepeat2(t *testing.T) {
	reps := RepeatOffsets{1, 4, 8}
	actual, err := resolveOffset(2, 5, &reps)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 4 || reps != (RepeatOffsets{4, 1, 8}) {
		t.Fatalf("actual=%d reps=%v, want 4 {4 1 8}", actual, reps)
	}
}

func TestResolveOffsetRepeat2WithoutLiteralsSubstitutesRep3(t *testing.T) {
	reps := RepeatOffsets{1, 4, 8}
	actual, err := resolveOffset(2, 0, &reps)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 8 || reps != (RepeatOffsets{8, 1, 4}) {
		t.Fatalf("actual=%d reps=%v, want 8 {8 1 4}", actual, reps)
	}
}

func TestResolveOffsetRepeat3(t *testing.T) {
	reps := RepeatOffsets{1, 4, 8}
	actual, err := resolveOffset(3, 5, &reps)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 8 || reps != (RepeatOffsets{8, 1, 4}) {
		t.Fatalf("actual=%d reps=%v, want 8 {8 1 4}", actual, reps)
	}
}

func TestResolveOffsetRepeat3WithoutLiteralsSubtractsOne(t *testing.T) {
	reps := RepeatOffsets{5, 4, 8}
	actual, err := resolveOffset(3, 0, &reps)
	if err != nil {
		t.Fatalf("resolveOffset: %v", err)
	}
	if actual != 4 || reps != (RepeatOffsets{4, 5, 4}) {
		t.Fatalf("actual=%d reps=%v, want 4 {4 5 4}", actual, reps)
	}
}

func TestResolveOffsetRepeat3WithoutLiteralsRejectsRep1OfOne(t *testing.T) {
	reps := RepeatOffsets{1, 4, 8}
	if _, err := resolveOffset(3, 0, &reps); err == nil {
		t.Fatalf("repeat offset 3 with no literals and rep1 == 1 should be corruption_detected")
	}
}

func TestResolveOffsetZeroIsCorruption(t *testing.T) {
	reps := RepeatOffsets{1, 4, 8}
	if _, err := resolveOffset(0, 5, &reps); err == nil {
		t.Fatalf("offset value 0 should be corruption_detected")
	}
}

func TestResolveOffsetResolvingToZeroIsCorruption(t *testing.T) {
	reps := RepeatOffsets{1, 0, 8}
	if _, err := resolveOffset(1, 0, &reps); err == nil {
		t.Fatalf("a repeat offset that resolves to 0 should be corruption_detected")
	}
}

func TestExecuteZeroSequencesJustAppendsLiterals(t *testing.T) {
	var w window.Window
	w.Reset(64, nil, false)
	var tables Tables
	reps := DefaultRepeatOffsets
	if err := Execute(&w, []byte("trailing"), nil, 0, &tables, &reps); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	dst := make([]byte, 16)
	n := w.Flush(dst)
	if string(dst[:n]) != "trailing" {
		t.Fatalf("Flush = %q, want \"trailing\"", dst[:n])
	}
}

func TestExecuteSingleSequenceWithAllRLETables(t *testing.T) {
	var w window.Window
	w.Reset(64, nil, false)
	w.Append([]byte("abcd"))

	var tables Tables
	tables.LL.BuildRLE(0) // literalLengthCodes[0] = {0, 0}: litLen 0
	tables.ML.BuildRLE(0) // matchLengthCodes[0] = {3, 0}: matchLen 3
	tables.OF.BuildRLE(0) // offset code 0: base 1, 0 extra bits -> offsetValue 1

	reps := DefaultRepeatOffsets // {1, 4, 8}
	// table_log 0 on every table means State.Init and Advance consume no
	// bitstream bits at all; a single end-mark byte is a complete stream.
	payload := []byte{0x01}

	if err := Execute(&w, nil, payload, 1, &tables, &reps); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// offsetValue 1 with litLen 0 resolves to the old rep2 (4), copying the
	// 3 bytes starting 4 back from the 4 bytes already in the window.
	want := RepeatOffsets{4, 1, 8}
	if reps != want {
		t.Fatalf("reps = %v, want %v", reps, want)
	}

	dst := make([]byte, 16)
	n := w.Flush(dst)
	if string(dst[:n]) != "abcdabc" {
		t.Fatalf("Flush = %q, want \"abcdabc\"", dst[:n])
	}
}
