package world

import (
	"sync"

	"github.com/google/uuid"
)

// BlockUpdate notifies a viewer of a single block mutation: the global
// position and the new runtime state ID.
type BlockUpdate struct {
	Pos   BlockPos
	State uint32
}

// SectionUpdate notifies a viewer of a batch of block mutations within one
// vertical section, packed into the compact record layout of the broadcaster.
type SectionUpdate struct {
	Key     int64
	Records []int64
}

// Viewer is a connected observer interested in a set of chunks. Both View
// methods must be non-blocking; after a disconnect they return an error,
// which the broadcaster logs and otherwise ignores. A disconnecting viewer
// may still receive updates queued before its removal.
type Viewer interface {
	// UUID returns the stable identity under which the viewer holds tickets.
	UUID() uuid.UUID
	ViewBlockUpdate(u BlockUpdate) error
	ViewSectionUpdate(u []SectionUpdate) error
}

// ChannelViewer is the default Viewer implementation: an unbounded
// asynchronous update queue. Sends append to the queue and never block the
// broadcaster; a consumer drains the queue through Next.
type ChannelViewer struct {
	id uuid.UUID

	mu      sync.Mutex
	queue   []any
	closed  bool
	pending chan struct{}
}

// NewChannelViewer creates an open viewer with a fresh identity.
func NewChannelViewer() *ChannelViewer {
	return &ChannelViewer{id: uuid.New(), pending: make(chan struct{}, 1)}
}

// UUID returns the viewer's identity.
func (v *ChannelViewer) UUID() uuid.UUID { return v.id }

// ViewBlockUpdate queues a single block update.
func (v *ChannelViewer) ViewBlockUpdate(u BlockUpdate) error { return v.send(u) }

// ViewSectionUpdate queues a batch of section updates.
func (v *ChannelViewer) ViewSectionUpdate(u []SectionUpdate) error { return v.send(u) }

func (v *ChannelViewer) send(u any) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewerClosed
	}
	v.queue = append(v.queue, u)
	v.mu.Unlock()
	select {
	case v.pending <- struct{}{}:
	default:
	}
	return nil
}

// Next pops the oldest queued update. The second return value is false if the
// queue is currently empty.
func (v *ChannelViewer) Next() (any, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.queue) == 0 {
		return nil, false
	}
	u := v.queue[0]
	v.queue = v.queue[1:]
	return u, true
}

// Pending returns a channel that receives a signal when updates are queued.
func (v *ChannelViewer) Pending() <-chan struct{} { return v.pending }

// Close marks the viewer as disconnected. Later sends fail with
// ErrViewerClosed; updates queued before the close stay readable.
func (v *ChannelViewer) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}
