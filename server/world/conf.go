package world

import (
	"log/slog"
	"time"

	"github.com/axolotl-mc/axolotl/server/world/chunk"
)

// Config holds the settings a World is created with. Zero values fall back to
// sensible defaults, so Config{}.New() yields a working in-memory world.
type Config struct {
	// Log is the logger the world and its components write to. Defaults to
	// slog.Default().
	Log *slog.Logger
	// Range is the inclusive vertical block range of the world's chunks.
	// Defaults to [-64, 319].
	Range chunk.Range
	// Provider loads and stores the world's columns and settings. Defaults to
	// NopProvider, which persists nothing.
	Provider Provider
	// Generator fills chunks the provider has no data for. Defaults to
	// NopGenerator, which generates empty chunks.
	Generator Generator
	// States is the block state registry chunks of the world are expressed
	// in. Defaults to a fresh registry holding only air.
	States *StateRegistry
	// MaintenanceInterval is the period of the maintenance loop that queues
	// unloads for abandoned chunks and drains the update queue. Defaults to
	// one second.
	MaintenanceInterval time.Duration
}

func (conf Config) withDefaults() Config {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Range == (chunk.Range{}) {
		conf.Range = chunk.Range{-64, 319}
	}
	if conf.Provider == nil {
		conf.Provider = NopProvider{}
	}
	if conf.Generator == nil {
		conf.Generator = NopGenerator{}
	}
	if conf.States == nil {
		conf.States = NewStateRegistry()
	}
	if conf.MaintenanceInterval <= 0 {
		conf.MaintenanceInterval = time.Second
	}
	return conf
}

// New creates a World with the settings of conf and starts its maintenance
// loop.
func (conf Config) New() *World {
	conf = conf.withDefaults()

	set := &Settings{Name: "World"}
	if err := conf.Provider.Settings(set); err != nil {
		conf.Log.Error("load world settings", "error", err)
	}

	tickets := NewTicketTable()
	bc := NewBroadcaster(conf.Log, tickets)
	w := &World{
		conf:    conf,
		log:     conf.Log,
		set:     set,
		tickets: tickets,
		bc:      bc,
		chunks:  newChunkMap(conf.Log, conf.Range, conf.Provider, conf.Generator, tickets, bc),
		closing: make(chan struct{}),
		closed:  make(chan struct{}),
	}
	go w.maintain(conf.MaintenanceInterval)
	return w
}
