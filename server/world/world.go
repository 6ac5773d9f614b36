package world

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// World ties the chunk store, ticket table and broadcaster of one world
// together and runs its maintenance loop. All methods may be called from any
// goroutine.
type World struct {
	conf Config
	log  *slog.Logger
	set  *Settings

	tickets *TicketTable
	bc      *Broadcaster
	chunks  *ChunkMap

	closing chan struct{}
	closed  chan struct{}
	once    sync.Once
}

// Name returns the display name of the world.
func (w *World) Name() string {
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.Name
}

// Seed returns the generation seed of the world.
func (w *World) Seed() int64 {
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.Seed
}

// States returns the block state registry of the world.
func (w *World) States() *StateRegistry { return w.conf.States }

// Tickets returns the ticket table of the world. Tickets added here keep
// chunks resident; QueueLoad must still be called to make them resident in
// the first place.
func (w *World) Tickets() *TicketTable { return w.tickets }

// Chunks returns the chunk store of the world.
func (w *World) Chunks() *ChunkMap { return w.chunks }

// AddViewer registers a viewer with the broadcaster. The viewer receives
// updates for the chunks it holds tickets on from this point onward.
func (w *World) AddViewer(v Viewer) { w.bc.AddViewer(v) }

// RemoveViewer unregisters a viewer and releases every ticket it holds. The
// chunks it abandoned become unloadable during the next maintenance pass.
func (w *World) RemoveViewer(id uuid.UUID) {
	w.bc.RemoveViewer(id)
	w.tickets.RemoveViewer(id)
}

// Block reads the block state at a global position. The second return value
// is false if the containing chunk is not resident.
func (w *World) Block(pos BlockPos) (uint32, bool) { return w.chunks.Block(pos) }

// SetBlock writes a block state at a global position. See ChunkMap.SetBlock.
func (w *World) SetBlock(pos BlockPos, state uint32, requireLoaded bool) bool {
	return w.chunks.SetBlock(pos, state, requireLoaded)
}

// Save persists the world settings and every modified resident chunk without
// evicting anything.
func (w *World) Save() error {
	w.set.Lock()
	err := w.conf.Provider.SaveSettings(w.set)
	w.set.Unlock()
	if err != nil {
		w.log.Error("save world settings", "error", err)
	}
	return w.chunks.SaveAll()
}

// Close stops the maintenance loop, persists all remaining data and closes
// the provider. Calling Close more than once is a no-op.
func (w *World) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closing)
		<-w.closed

		w.chunks.HandleUpdates()

		w.set.Lock()
		if serr := w.conf.Provider.SaveSettings(w.set); serr != nil {
			w.log.Error("save world settings", "error", serr)
		}
		w.set.Unlock()

		if cerr := w.chunks.ForceCloseAll(); cerr != nil {
			err = cerr
			// The provider still has to release its resources; the save
			// error stays the one reported.
			if perr := w.conf.Provider.Close(); perr != nil {
				w.log.Error("close provider", "error", perr)
			}
			return
		}
		err = w.conf.Provider.Close()
	})
	return err
}
