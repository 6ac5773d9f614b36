package world

import (
	"sync"
)

// BlockEdit is a single pending block mutation: a global position and the new
// runtime state ID.
type BlockEdit struct {
	Pos   BlockPos
	State uint32
}

type updateKind uint8

const (
	loadUpdate updateKind = iota
	unloadUpdate
)

// chunkUpdate is one request on the store's update queue: a load (optionally
// carrying a pending block edit to apply after materialisation) or an unload.
type chunkUpdate struct {
	kind updateKind
	pos  ChunkPos
	edit *BlockEdit
}

// updateQueue is the multi-producer, single-consumer queue in front of the
// store. Pushes always succeed immediately: the queue is unbounded and the
// critical section is a single append, so producers never wait for the
// consumer. Drains swap the backlog out wholesale so the consumer iterates
// without holding the lock.
type updateQueue struct {
	mu      sync.Mutex
	updates []chunkUpdate
}

func (q *updateQueue) push(u chunkUpdate) {
	q.mu.Lock()
	q.updates = append(q.updates, u)
	q.mu.Unlock()
}

func (q *updateQueue) drain() []chunkUpdate {
	q.mu.Lock()
	updates := q.updates
	q.updates = nil
	q.mu.Unlock()
	return updates
}

func (q *updateQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.updates)
}
