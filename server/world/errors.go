package world

import (
	"errors"
	"fmt"
)

// ErrColumnNotFound is returned by Provider implementations when no content
// exists for a chunk position. The store reacts by generating the chunk
// instead of treating the load as failed.
var ErrColumnNotFound = errors.New("world: column not found")

// ErrViewerClosed is returned by viewer sends after the viewer disconnected.
// The broadcaster treats it as non-fatal and only logs it.
var ErrViewerClosed = errors.New("world: viewer closed")

// InvalidBlockDataError is returned when a block state ID cannot be resolved
// against the state registry.
type InvalidBlockDataError struct {
	ID uint32
}

func (e InvalidBlockDataError) Error() string {
	return fmt.Sprintf("world: invalid block data %v", e.ID)
}
