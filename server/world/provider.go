package world

import (
	"sync"

	"github.com/axolotl-mc/axolotl/server/world/chunk"
	"github.com/google/uuid"
)

// Settings holds the persistent metadata of a world. It is passed around the
// provider and the maintenance loop by pointer and protected by its embedded
// mutex.
type Settings struct {
	sync.Mutex
	// Name is the display name of the world.
	Name string
	// Seed is the generation seed every density tree derives from.
	Seed int64
	// UUID is a stable identifier used to distinguish save data of different
	// worlds that share a name.
	UUID uuid.UUID
}

// Provider loads and stores columns of a world. Implementations are called
// from the single update-handling consumer and from Save, never while a
// column lock is held, so they may block on I/O freely.
type Provider interface {
	// Settings loads the stored world settings, filling in defaults for
	// fields missing from the save data.
	Settings(defaults *Settings) error
	// SaveSettings persists the world settings.
	SaveSettings(s *Settings) error
	// LoadColumn reads the column at a position. It returns ErrColumnNotFound
	// if the save has no data for the position, in which case the caller
	// generates the column instead.
	LoadColumn(pos ChunkPos, r chunk.Range) (*chunk.Chunk, error)
	// StoreColumn writes a column snapshot to the save.
	StoreColumn(pos ChunkPos, c *chunk.Chunk) error
	// Close releases resources held by the provider.
	Close() error
}

// NopProvider is a Provider that stores nothing and loads nothing. Every
// LoadColumn returns ErrColumnNotFound, so all columns are generated fresh.
type NopProvider struct{}

func (NopProvider) Settings(*Settings) error                        { return nil }
func (NopProvider) SaveSettings(*Settings) error                    { return nil }
func (NopProvider) LoadColumn(ChunkPos, chunk.Range) (*chunk.Chunk, error) {
	return nil, ErrColumnNotFound
}
func (NopProvider) StoreColumn(ChunkPos, *chunk.Chunk) error { return nil }
func (NopProvider) Close() error                             { return nil }
