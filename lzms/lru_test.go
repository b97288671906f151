package lzms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLZOffsetQueueInitialState(t *testing.T) {
	q := NewLZOffsetQueue()
	for i, v := range q.Recent {
		assert.Equal(t, uint32(i+1), v)
	}
	assert.Zero(t, q.Prev)
	assert.Zero(t, q.Upcoming)
}

func TestLZOffsetQueueShiftsRecentOnNonZeroPrev(t *testing.T) {
	q := NewLZOffsetQueue()
	q.Upcoming = 7
	q.Update() // Prev==0 initially: no shift; Prev becomes 7
	assert.Equal(t, uint32(7), q.Prev)
	assert.Equal(t, [NumRecentOffsets + 1]uint32{1, 2, 3, 4}, q.Recent)

	q.Upcoming = 9
	q.Update() // Prev==7: shifts 7 into Recent[0]
	assert.Equal(t, uint32(9), q.Prev)
	assert.Equal(t, [NumRecentOffsets + 1]uint32{7, 1, 2, 3}, q.Recent)
}

func TestDeltaOffsetQueueShiftsOffsetAndPowerTogether(t *testing.T) {
	q := NewDeltaOffsetQueue()
	q.UpcomingOffset, q.UpcomingPower = 5, 2
	q.Update()
	assert.Equal(t, uint32(5), q.PrevOffset)
	assert.Equal(t, uint32(2), q.PrevPower)

	q.UpcomingOffset, q.UpcomingPower = 6, 3
	q.Update()
	assert.Equal(t, uint32(5), q.RecentOffsets[0])
	assert.Equal(t, uint32(2), q.RecentPowers[0])
	assert.Equal(t, uint32(6), q.PrevOffset)
	assert.Equal(t, uint32(3), q.PrevPower)
}

func TestLRUQueuesUpdateAdvancesBoth(t *testing.T) {
	q := NewLRUQueues()
	q.LZ.Upcoming = 42
	q.Delta.UpcomingOffset = 11
	q.Delta.UpcomingPower = 1
	q.Update()
	assert.Equal(t, uint32(42), q.LZ.Prev)
	assert.Equal(t, uint32(11), q.Delta.PrevOffset)
	assert.Equal(t, uint32(1), q.Delta.PrevPower)
}
