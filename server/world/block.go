package world

import (
	"fmt"
	"sync"
)

// AirKey is the namespaced key of the air block state, registered as runtime
// state 0 in every StateRegistry.
const AirKey = "axolotl:air"

// StateRegistry resolves namespaced block state keys to the runtime state IDs
// stored in chunks. Registration order decides the IDs, so the same set of
// registrations in the same order yields the same IDs across processes; the
// generator's determinism depends on that.
type StateRegistry struct {
	mu    sync.RWMutex
	byKey map[string]uint32
	keys  []string
}

// NewStateRegistry creates a registry holding only the air state.
func NewStateRegistry() *StateRegistry {
	r := &StateRegistry{byKey: make(map[string]uint32)}
	_ = r.Register(AirKey)
	return r
}

// Register adds a block state under the key passed and returns its runtime
// ID. Registering an already present key returns the existing ID.
func (r *StateRegistry) Register(key string) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rid, ok := r.byKey[key]; ok {
		return rid
	}
	rid := uint32(len(r.keys))
	r.byKey[key] = rid
	r.keys = append(r.keys, key)
	return rid
}

// StateByKey resolves a namespaced key to its runtime state ID.
func (r *StateRegistry) StateByKey(key string) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rid, ok := r.byKey[key]
	return rid, ok
}

// KeyByState resolves a runtime state ID back to its namespaced key. An
// InvalidBlockDataError is returned for IDs that were never registered.
func (r *StateRegistry) KeyByState(rid uint32) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(rid) >= len(r.keys) {
		return "", InvalidBlockDataError{ID: rid}
	}
	return r.keys[rid], nil
}

// ValidState checks if a runtime state ID has been registered.
func (r *StateRegistry) ValidState(rid uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int(rid) < len(r.keys)
}

// MustState resolves a namespaced key and panics if it is absent. It is used
// during setup for states that must exist for the component to function.
func (r *StateRegistry) MustState(key string) uint32 {
	rid, ok := r.StateByKey(key)
	if !ok {
		panic(fmt.Sprintf("world: block state %q not registered", key))
	}
	return rid
}
