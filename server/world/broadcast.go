package world

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// SectionKey packs the position of a vertical section into a single int64.
// The chunk X and Z take 22 bits each and the block Y takes the low 20 bits,
// with all three fields stored in two's complement. Batches group edits by
// the key of their section's base Y.
func SectionKey(pos ChunkPos, y int) int64 {
	return int64(uint64(pos.X())&0x3FFFFF)<<42 |
		int64(uint64(pos.Z())&0x3FFFFF)<<20 |
		int64(uint64(y)&0xFFFFF)
}

// PackRecord packs one block mutation within a section into an int64: the
// state ID shifted left by 12, then 4 bits each of section-local x, z and y.
func PackRecord(state uint32, x, y, z int) int64 {
	return int64(state)<<12 | int64(x&15)<<8 | int64(z&15)<<4 | int64(y&15)
}

// Broadcaster fans block mutations out to the viewers that hold a ticket on
// the mutated chunk. Sends happen outside any column lock; a failed send is
// logged and the viewer skipped for that update.
type Broadcaster struct {
	log     *slog.Logger
	tickets *TicketTable

	mu      sync.RWMutex
	viewers map[uuid.UUID]Viewer
}

// NewBroadcaster creates a Broadcaster resolving recipients through t.
func NewBroadcaster(log *slog.Logger, t *TicketTable) *Broadcaster {
	return &Broadcaster{log: log, tickets: t, viewers: map[uuid.UUID]Viewer{}}
}

// AddViewer registers a viewer so that it can receive updates for the chunks
// it holds tickets on.
func (b *Broadcaster) AddViewer(v Viewer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewers[v.UUID()] = v
}

// RemoveViewer unregisters a viewer. Updates already handed to the viewer are
// unaffected.
func (b *Broadcaster) RemoveViewer(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.viewers, id)
}

// BlockUpdate sends a single block mutation to every viewer holding a ticket
// on the chunk containing pos.
func (b *Broadcaster) BlockUpdate(pos BlockPos, state uint32) {
	u := BlockUpdate{Pos: pos, State: state}
	for _, v := range b.recipients(chunkPosFromBlockPos(pos)) {
		if err := v.ViewBlockUpdate(u); err != nil {
			b.log.Debug("broadcast block update", "viewer", v.UUID(), "error", err)
		}
	}
}

// SectionUpdates groups a batch of mutations within one chunk by section,
// packs them into records and sends the result to every viewer holding a
// ticket on the chunk. Record order within a section follows edit order.
func (b *Broadcaster) SectionUpdates(pos ChunkPos, edits []BlockEdit) {
	if len(edits) == 0 {
		return
	}
	grouped := map[int64][]int64{}
	var keys []int64
	for _, e := range edits {
		key := SectionKey(pos, e.Pos.Y()&^15)
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], PackRecord(e.State, e.Pos.X(), e.Pos.Y(), e.Pos.Z()))
	}
	updates := make([]SectionUpdate, 0, len(keys))
	for _, key := range keys {
		updates = append(updates, SectionUpdate{Key: key, Records: grouped[key]})
	}
	for _, v := range b.recipients(pos) {
		if err := v.ViewSectionUpdate(updates); err != nil {
			b.log.Debug("broadcast section updates", "viewer", v.UUID(), "error", err)
		}
	}
}

// recipients resolves the viewers holding tickets on pos. The viewer map lock
// is released before any send happens.
func (b *Broadcaster) recipients(pos ChunkPos) []Viewer {
	holders := b.tickets.Holders(pos)
	if len(holders) == 0 {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Viewer, 0, len(holders))
	for _, id := range holders {
		if v, ok := b.viewers[id]; ok {
			out = append(out, v)
		}
	}
	return out
}
