package world

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/axolotl-mc/axolotl/server/world/chunk"
)

// Generator fills freshly created chunks with terrain. Implementations must
// be deterministic: generating the same position twice, in any process,
// yields identical chunk data.
type Generator interface {
	GenerateChunk(pos ChunkPos, c *chunk.Chunk)
}

// NopGenerator is a Generator that generates completely empty chunks.
type NopGenerator struct{}

func (NopGenerator) GenerateChunk(ChunkPos, *chunk.Chunk) {}

// ChunkMap is the concurrent chunk store of a world. Reads and writes against
// resident chunks take a short per-column lock; residency changes go through
// the update queue and are applied exclusively by HandleUpdates, so at most
// one goroutine ever materialises or evicts a chunk at a time.
type ChunkMap struct {
	log     *slog.Logger
	r       chunk.Range
	prov    Provider
	gen     Generator
	tickets *TicketTable
	bc      *Broadcaster

	chunks sync.Map // ChunkPos -> *Column
	queue  updateQueue

	// drainMu serialises HandleUpdates: the queue has exactly one consumer
	// even if multiple goroutines call it.
	drainMu sync.Mutex
}

// newChunkMap creates an empty store. All residency I/O goes through prov and
// missing columns are filled by gen.
func newChunkMap(log *slog.Logger, r chunk.Range, prov Provider, gen Generator, tickets *TicketTable, bc *Broadcaster) *ChunkMap {
	return &ChunkMap{log: log, r: r, prov: prov, gen: gen, tickets: tickets, bc: bc}
}

// Chunk returns the resident column at a position, or false if the chunk is
// not loaded. Callers read through the column's own methods; the store map is
// never locked for data access.
func (m *ChunkMap) Chunk(pos ChunkPos) (*Column, bool) {
	col, ok := m.chunks.Load(pos)
	if !ok {
		return nil, false
	}
	return col.(*Column), true
}

// Block reads the block state at a global position. The second return value
// is false if the containing chunk is not resident.
func (m *ChunkMap) Block(pos BlockPos) (uint32, bool) {
	col, ok := m.Chunk(chunkPosFromBlockPos(pos))
	if !ok {
		return 0, false
	}
	rid, err := col.Block(pos.X()&15, pos.Y(), pos.Z()&15)
	if err != nil {
		return 0, false
	}
	return rid, true
}

// QueueLoad requests residency for a chunk position. The request is queued
// and applied during the next HandleUpdates call; queueing never blocks on
// I/O or on the consumer.
func (m *ChunkMap) QueueLoad(pos ChunkPos) {
	m.queue.push(chunkUpdate{kind: loadUpdate, pos: pos})
}

// QueueUnload requests eviction of a chunk position. Whether the chunk is
// actually dropped is decided when the request is handled: a chunk that holds
// tickets by then stays resident.
func (m *ChunkMap) QueueUnload(pos ChunkPos) {
	m.queue.push(chunkUpdate{kind: unloadUpdate, pos: pos})
}

// SetBlock writes a block state at a global position and broadcasts the
// mutation to interested viewers. If the containing chunk is not resident and
// requireLoaded is true, the write is dropped and false returned. With
// requireLoaded false, a load is queued instead, carrying the edit to be
// applied right after the chunk materialises.
func (m *ChunkMap) SetBlock(pos BlockPos, state uint32, requireLoaded bool) bool {
	if col, ok := m.Chunk(chunkPosFromBlockPos(pos)); ok {
		if err := col.setBlock(pos.X()&15, pos.Y(), pos.Z()&15, state); err != nil {
			m.log.Error("set block", "pos", pos, "error", err)
			return false
		}
		m.bc.BlockUpdate(pos, state)
		return true
	}
	if requireLoaded {
		return false
	}
	m.queue.push(chunkUpdate{
		kind: loadUpdate,
		pos:  chunkPosFromBlockPos(pos),
		edit: &BlockEdit{Pos: pos, State: state},
	})
	return true
}

// SetBlocks applies a batch of edits to a single resident chunk under one
// lock hold, then broadcasts the batch grouped by section. If the chunk is
// not resident the whole batch is dropped with a warning: batched writes
// never trigger loads.
func (m *ChunkMap) SetBlocks(pos ChunkPos, edits []BlockEdit) bool {
	if len(edits) == 0 {
		return true
	}
	col, ok := m.Chunk(pos)
	if !ok {
		m.log.Warn("dropped block batch for non-resident chunk", "pos", pos, "edits", len(edits))
		return false
	}
	if err := col.setBlocks(edits); err != nil {
		m.log.Error("set blocks", "pos", pos, "error", err)
		return false
	}
	m.bc.SectionUpdates(pos, edits)
	return true
}

// HandleUpdates drains the update queue and applies every request in order.
// It is the single consumer of the queue: concurrent callers serialise behind
// each other. The number of handled requests is returned.
func (m *ChunkMap) HandleUpdates() int {
	m.drainMu.Lock()
	defer m.drainMu.Unlock()

	updates := m.queue.drain()
	for _, u := range updates {
		switch u.kind {
		case loadUpdate:
			m.handleLoad(u.pos, u.edit)
		case unloadUpdate:
			m.handleUnload(u.pos)
		}
	}
	return len(updates)
}

// handleLoad makes the chunk at a position resident, loading it from the
// provider or generating it, and applies the carried edit, if any. A chunk
// already resident is left alone apart from the edit; queueing the same
// position twice never materialises it twice.
func (m *ChunkMap) handleLoad(pos ChunkPos, edit *BlockEdit) {
	if col, ok := m.Chunk(pos); ok {
		m.applyEdit(col, pos, edit)
		return
	}
	c, err := m.prov.LoadColumn(pos, m.r)
	generated := false
	switch {
	case err == nil:
	case err == ErrColumnNotFound:
		c = chunk.New(m.r)
		m.gen.GenerateChunk(pos, c)
		generated = true
	default:
		m.log.Error("load chunk", "pos", pos, "error", err)
		return
	}
	col := newColumn(c)
	// Generated content exists only in memory, so it counts as modified until
	// a save writes it out.
	col.modified = generated
	m.applyEdit(col, pos, edit)
	m.chunks.Store(pos, col)
	m.tickets.track(pos)
}

func (m *ChunkMap) applyEdit(col *Column, pos ChunkPos, edit *BlockEdit) {
	if edit == nil {
		return
	}
	if err := col.setBlock(edit.Pos.X()&15, edit.Pos.Y(), edit.Pos.Z()&15, edit.State); err != nil {
		m.log.Error("apply queued edit", "pos", edit.Pos, "error", err)
		return
	}
	m.bc.BlockUpdate(edit.Pos, edit.State)
}

// handleUnload evicts the chunk at a position, persisting it first if it was
// modified. Chunks that regained tickets since the unload was queued stay
// resident.
func (m *ChunkMap) handleUnload(pos ChunkPos) {
	col, ok := m.Chunk(pos)
	if !ok {
		return
	}
	if m.tickets.HasTickets(pos) {
		m.log.Debug("skipped unload of ticketed chunk", "pos", pos)
		return
	}
	c, modified := col.snapshot()
	if modified {
		if err := m.prov.StoreColumn(pos, c); err != nil {
			m.log.Error("save chunk", "pos", pos, "error", err)
			// The snapshot already cleared the modified flag; put the data
			// back into the dirty state so that a later save retries.
			col.mu.Lock()
			col.modified = true
			col.mu.Unlock()
			return
		}
	}
	m.chunks.Delete(pos)
	m.tickets.forget(pos)
}

// SaveAll snapshots every modified resident chunk and writes the snapshots to
// the provider. Column locks are only held while snapshotting, never during
// the writes.
func (m *ChunkMap) SaveAll() error {
	type pending struct {
		pos ChunkPos
		c   *chunk.Chunk
	}
	var work []pending
	m.chunks.Range(func(key, value any) bool {
		pos, col := key.(ChunkPos), value.(*Column)
		if c, modified := col.snapshot(); modified {
			work = append(work, pending{pos: pos, c: c})
		}
		return true
	})
	for i, w := range work {
		if err := m.prov.StoreColumn(w.pos, w.c); err != nil {
			// The snapshots already cleared the modified flags; re-mark every
			// column not yet persisted so that a later save retries them.
			for _, p := range work[i:] {
				if col, ok := m.Chunk(p.pos); ok {
					col.mu.Lock()
					col.modified = true
					col.mu.Unlock()
				}
			}
			return fmt.Errorf("save chunk %v: %w", w.pos, err)
		}
	}
	return nil
}

// ForceCloseAll drops every resident chunk regardless of tickets, persisting
// modified ones. Used during world shutdown.
func (m *ChunkMap) ForceCloseAll() error {
	if err := m.SaveAll(); err != nil {
		return err
	}
	m.chunks.Range(func(key, _ any) bool {
		pos := key.(ChunkPos)
		m.chunks.Delete(pos)
		m.tickets.forget(pos)
		return true
	})
	return nil
}

// Len returns the number of resident chunks.
func (m *ChunkMap) Len() int {
	n := 0
	m.chunks.Range(func(any, any) bool { n++; return true })
	return n
}

// QueueLen returns the number of pending updates on the queue, for backlog
// reporting by the maintenance loop.
func (m *ChunkMap) QueueLen() int {
	return m.queue.len()
}
