package world

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Loader implements the loading of the world around a moving position, on
// behalf of one viewer. It keeps tickets on a square of chunks around the
// position and queues loads for chunks entering the square as the position
// moves, so the store keeps them resident ahead of use.
type Loader struct {
	w      *World
	viewer uuid.UUID
	radius int32

	mu     sync.Mutex
	pos    ChunkPos
	placed map[ChunkPos]struct{}
	closed bool
}

// NewLoader creates a Loader holding tickets for the viewer passed on a
// (2*radius+1)² square of chunks. The square is empty until the first Move.
func NewLoader(w *World, viewer uuid.UUID, radius int32) *Loader {
	return &Loader{w: w, viewer: viewer, radius: radius, placed: map[ChunkPos]struct{}{}}
}

// Move recentres the loaded square on a world position. Tickets are added for
// chunks entering the square and removed for chunks leaving it; loads are
// queued only for the entering chunks.
func (l *Loader) Move(pos mgl64.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	centre := chunkPosFromVec3(pos)
	want := make(map[ChunkPos]struct{}, (2*l.radius+1)*(2*l.radius+1))
	for x := centre.X() - l.radius; x <= centre.X()+l.radius; x++ {
		for z := centre.Z() - l.radius; z <= centre.Z()+l.radius; z++ {
			want[ChunkPos{x, z}] = struct{}{}
		}
	}
	for p := range l.placed {
		if _, ok := want[p]; !ok {
			l.w.Tickets().RemoveTicket(l.viewer, p)
			delete(l.placed, p)
		}
	}
	for p := range want {
		if _, ok := l.placed[p]; !ok {
			l.w.Tickets().AddTicket(l.viewer, p)
			l.w.Chunks().QueueLoad(p)
			l.placed[p] = struct{}{}
		}
	}
	l.pos = centre
}

// Close releases every ticket the loader holds. The abandoned chunks become
// unloadable during the next maintenance pass.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	for p := range l.placed {
		l.w.Tickets().RemoveTicket(l.viewer, p)
	}
	l.placed = nil
	l.closed = true
}
