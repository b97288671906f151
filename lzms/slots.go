package lzms

import "sync"

// positionSlotDeltaRunLens and lengthSlotDeltaRunLens encode the position
// and length slot-base tables as run-length-delta pairs: run i contributes
// deltaRunLens[i] successive slots whose spacing is 2^i. There is no closed
// form for these tables; they were reverse engineered from real LZMS
// streams and are reproduced here as fixed data.
var (
	positionSlotDeltaRunLens = []uint8{
		9, 0, 9, 7, 10, 15, 15, 20,
		20, 30, 33, 40, 42, 45, 60, 73,
		80, 85, 95, 105, 6,
	}
	lengthSlotDeltaRunLens = []uint8{
		27, 4, 6, 4, 5, 2, 1, 1,
		1, 1, 1, 0, 0, 0, 0, 0,
		1,
	}
)

// Sentinel base values appended past the end of each table so that
// GetSlot's "< slot_bases[s+1]" check has an upper bound to compare
// against for the last real slot. These are fixed points from the LZMS
// format, not derived from the run-length tables.
const (
	positionSlotBasesSentinel uint32 = 0x7fffffff
	lengthSlotBasesSentinel   uint32 = 0x400108ab
)

var (
	slotBasesOnce      sync.Once
	positionSlotBases_ []uint32
	lengthSlotBases_   []uint32
)

// decodeDeltaRLESlotBases expands a run-length-delta table into slot base
// values: run i (of length runLens[i]) contributes runLens[i] consecutive
// slots each delta apart, where delta starts at 1 and doubles after every
// run, including runs of length 0.
func decodeDeltaRLESlotBases(runLens []uint8) []uint32 {
	var bases []uint32
	delta := uint32(1)
	base := uint32(0)
	for _, runLen := range runLens {
		for n := uint8(0); n < runLen; n++ {
			base += delta
			bases = append(bases, base)
		}
		delta <<= 1
	}
	return bases
}

func computeSlotBases() {
	positionSlotBases_ = append(decodeDeltaRLESlotBases(positionSlotDeltaRunLens), positionSlotBasesSentinel)
	lengthSlotBases_ = append(decodeDeltaRLESlotBases(lengthSlotDeltaRunLens), lengthSlotBasesSentinel)
}

// InitSlotBases computes the global position and length slot-base tables
// if they have not been computed yet. It is safe to call from any number
// of goroutines concurrently; only the first caller does the work, and
// every caller (first or not) observes the fully published tables when it
// returns.
func InitSlotBases() {
	slotBasesOnce.Do(computeSlotBases)
}

// PositionSlotBases returns the process-wide position slot-base table,
// initialising it first if necessary. The returned slice must not be
// modified.
func PositionSlotBases() []uint32 {
	InitSlotBases()
	return positionSlotBases_
}

// LengthSlotBases returns the process-wide length slot-base table,
// initialising it first if necessary. The returned slice must not be
// modified.
func LengthSlotBases() []uint32 {
	InitSlotBases()
	return lengthSlotBases_
}

// GetSlot returns the largest slot index s such that
// slotBases[s] <= value < slotBases[s+1]. slotBases must be a table
// returned by PositionSlotBases or LengthSlotBases (or one shaped like
// them: monotonically increasing, with a final sentinel greater than any
// value that will be looked up).
//
// A linear scan is specified; the tables are short enough (at most a few
// hundred entries) that a linear scan is not a meaningful cost next to the
// surrounding entropy coding, and it keeps this function trivially correct
// against the reference behavior.
func GetSlot(value uint32, slotBases []uint32) int {
	slot := 0
	for slotBases[slot+1] <= value {
		slot++
	}
	return slot
}
