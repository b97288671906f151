package lzms

// NumRecentOffsets is the number of previously used match offsets (or,
// for delta matches, offset/power pairs) that each LRU queue remembers in
// its "recent" ring, not counting the staged prev/upcoming slots.
const NumRecentOffsets = 3

// LZOffsetQueue tracks recently used LZ match offsets. Updates are staged
// through Prev/Upcoming rather than applied immediately: the encoder or
// decoder writes the offset it is about to use into Upcoming, and only
// once that step is fully committed does Update() shift it into the
// recent ring, one step behind.
type LZOffsetQueue struct {
	Recent   [NumRecentOffsets + 1]uint32
	Prev     uint32
	Upcoming uint32
}

// NewLZOffsetQueue returns a queue in its initial state: Recent[i] = i+1,
// Prev and Upcoming zero.
func NewLZOffsetQueue() LZOffsetQueue {
	var q LZOffsetQueue
	for i := range q.Recent {
		q.Recent[i] = uint32(i + 1)
	}
	return q
}

// Update advances the queue by one step: if Prev is nonzero (meaning a
// real offset was staged, not the initial zero state), it is pushed onto
// the front of Recent, and Upcoming becomes the new Prev.
func (q *LZOffsetQueue) Update() {
	if q.Prev != 0 {
		copy(q.Recent[1:], q.Recent[:len(q.Recent)-1])
		q.Recent[0] = q.Prev
	}
	q.Prev = q.Upcoming
}

// DeltaOffsetQueue tracks recently used delta-match (offset, power) pairs
// with the same staged prev/upcoming update semantics as LZOffsetQueue.
type DeltaOffsetQueue struct {
	RecentOffsets  [NumRecentOffsets + 1]uint32
	RecentPowers   [NumRecentOffsets + 1]uint32
	PrevOffset     uint32
	PrevPower      uint32
	UpcomingOffset uint32
	UpcomingPower  uint32
}

// NewDeltaOffsetQueue returns a queue in its initial state:
// RecentOffsets[i] = i+1, RecentPowers[i] = 0, all staged fields zero.
func NewDeltaOffsetQueue() DeltaOffsetQueue {
	var q DeltaOffsetQueue
	for i := range q.RecentOffsets {
		q.RecentOffsets[i] = uint32(i + 1)
	}
	return q
}

// Update advances the queue by one step, mirroring LZOffsetQueue.Update
// but carrying the power alongside each offset.
func (q *DeltaOffsetQueue) Update() {
	if q.PrevOffset != 0 {
		copy(q.RecentOffsets[1:], q.RecentOffsets[:len(q.RecentOffsets)-1])
		copy(q.RecentPowers[1:], q.RecentPowers[:len(q.RecentPowers)-1])
		q.RecentOffsets[0] = q.PrevOffset
		q.RecentPowers[0] = q.PrevPower
	}
	q.PrevOffset = q.UpcomingOffset
	q.PrevPower = q.UpcomingPower
}

// LRUQueues bundles the LZ and delta offset queues an LZMS encoder or
// decoder needs for one chunk of adaptive match-offset coding.
type LRUQueues struct {
	LZ    LZOffsetQueue
	Delta DeltaOffsetQueue
}

// NewLRUQueues returns both queues in their initial state.
func NewLRUQueues() LRUQueues {
	return LRUQueues{LZ: NewLZOffsetQueue(), Delta: NewDeltaOffsetQueue()}
}

// Update advances both queues by one step.
func (q *LRUQueues) Update() {
	q.LZ.Update()
	q.Delta.Update()
}
