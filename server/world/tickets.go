package world

import (
	"iter"
	"sync"

	"github.com/google/uuid"
)

// TicketTable tracks which viewers hold an interest in which chunks. Tickets
// are the sole retention signal of the store: a chunk whose interest set is
// empty may be unloaded during the next maintenance pass, and a ticketed
// chunk is never evicted, regardless of memory pressure.
type TicketTable struct {
	mu       sync.Mutex
	byChunk  map[ChunkPos]map[uuid.UUID]struct{}
	byViewer map[uuid.UUID]map[ChunkPos]struct{}
}

// NewTicketTable creates an empty ticket table.
func NewTicketTable() *TicketTable {
	return &TicketTable{
		byChunk:  make(map[ChunkPos]map[uuid.UUID]struct{}),
		byViewer: make(map[uuid.UUID]map[ChunkPos]struct{}),
	}
}

// AddTicket records the interest of a viewer in a chunk position.
func (t *TicketTable) AddTicket(viewer uuid.UUID, pos ChunkPos) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.byChunk[pos]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		t.byChunk[pos] = set
	}
	set[viewer] = struct{}{}

	chunks, ok := t.byViewer[viewer]
	if !ok {
		chunks = make(map[ChunkPos]struct{})
		t.byViewer[viewer] = chunks
	}
	chunks[pos] = struct{}{}
}

// RemoveTicket removes the interest of a viewer in a chunk position. The
// chunk stays tracked with an empty interest set until the store drops it, so
// that it shows up in Unloadable.
func (t *TicketTable) RemoveTicket(viewer uuid.UUID, pos ChunkPos) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if set, ok := t.byChunk[pos]; ok {
		delete(set, viewer)
	}
	if chunks, ok := t.byViewer[viewer]; ok {
		delete(chunks, pos)
		if len(chunks) == 0 {
			delete(t.byViewer, viewer)
		}
	}
}

// RemoveViewer removes every ticket held by a viewer, typically after a
// disconnect.
func (t *TicketTable) RemoveViewer(viewer uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for pos := range t.byViewer[viewer] {
		delete(t.byChunk[pos], viewer)
	}
	delete(t.byViewer, viewer)
}

// Holders returns the viewers currently interested in a chunk position.
func (t *TicketTable) Holders(pos ChunkPos) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.byChunk[pos]
	if len(set) == 0 {
		return nil
	}
	holders := make([]uuid.UUID, 0, len(set))
	for id := range set {
		holders = append(holders, id)
	}
	return holders
}

// HasTickets checks if any viewer holds an interest in a chunk position.
func (t *TicketTable) HasTickets(pos ChunkPos) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byChunk[pos]) > 0
}

// track makes sure a chunk position is known to the table so that it is
// yielded by Unloadable once its interest set is empty. Called by the store
// when a chunk becomes resident.
func (t *TicketTable) track(pos ChunkPos) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byChunk[pos]; !ok {
		t.byChunk[pos] = make(map[uuid.UUID]struct{})
	}
}

// forget drops a chunk position from the table entirely. Called by the store
// after the chunk's residency was dropped.
func (t *TicketTable) forget(pos ChunkPos) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.byChunk[pos]) == 0 {
		delete(t.byChunk, pos)
	}
}

// Unloadable returns a restartable sequence of the chunk positions whose
// interest set is currently empty. The store drains it once per maintenance
// pass to queue unloads. The sequence iterates over a snapshot, so tickets
// may be added or removed while it is consumed.
func (t *TicketTable) Unloadable() iter.Seq[ChunkPos] {
	return func(yield func(ChunkPos) bool) {
		t.mu.Lock()
		unloadable := make([]ChunkPos, 0, 8)
		for pos, set := range t.byChunk {
			if len(set) == 0 {
				unloadable = append(unloadable, pos)
			}
		}
		t.mu.Unlock()
		for _, pos := range unloadable {
			if !yield(pos) {
				return
			}
		}
	}
}
