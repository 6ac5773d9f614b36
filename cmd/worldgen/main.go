// Command worldgen pre-generates a square area of a world and writes it to a
// region database, so a server starting on the same save never generates
// those chunks at runtime.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/axolotl-mc/axolotl/server/world"
	"github.com/axolotl-mc/axolotl/server/world/generator"
	"github.com/axolotl-mc/axolotl/server/world/regiondb"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
)

type config struct {
	Name       string `toml:"name"`
	Seed       int64  `toml:"seed"`
	WaterLevel int    `toml:"water_level"`
}

func defaultConfig() config {
	return config{Name: "World", WaterLevel: 62}
}

// readConfig loads the config at path, writing the default config there first
// if no file exists yet.
func readConfig(path string) (config, error) {
	c := defaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return c, fmt.Errorf("encode default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return c, fmt.Errorf("create default config: %w", err)
		}
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

func main() {
	app := &cli.App{
		Name:  "worldgen",
		Usage: "pre-generate terrain into a region database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "worldgen.toml", Usage: "path to the config file"},
			&cli.StringFlag{Name: "dir", Value: "world", Usage: "directory of the region database"},
			&cli.IntFlag{Name: "radius", Value: 8, Usage: "chunk radius around the origin to generate"},
			&cli.Int64Flag{Name: "seed", Usage: "world seed, overriding the config"},
			&cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		slog.Error("worldgen failed", "error", err)
		os.Exit(1)
	}
}

func run(cctx *cli.Context) error {
	level := slog.LevelInfo
	if cctx.Bool("verbose") {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	conf, err := readConfig(cctx.String("config"))
	if err != nil {
		return err
	}
	if cctx.IsSet("seed") {
		conf.Seed = cctx.Int64("seed")
	}

	db, err := regiondb.Config{Log: log}.Open(cctx.String("dir"))
	if err != nil {
		return err
	}

	states := world.NewStateRegistry()
	gen, err := generator.Config{
		Log:        log,
		Seed:       conf.Seed,
		States:     states,
		WaterLevel: conf.WaterLevel,
	}.New()
	if err != nil {
		_ = db.Close()
		return err
	}

	w := world.Config{
		Log:       log,
		Provider:  db,
		Generator: gen,
		States:    states,
		// The maintenance loop is idle work here; generation is driven
		// explicitly below.
		MaintenanceInterval: time.Minute,
	}.New()

	radius := int32(cctx.Int("radius"))
	start := time.Now()
	log.Info("generating", "world", conf.Name, "seed", conf.Seed, "radius", radius)

	total := 0
	for x := -radius; x <= radius; x++ {
		// Materialise row by row, then evict the row again so residency stays
		// bounded regardless of the radius. The unloads persist the chunks.
		for z := -radius; z <= radius; z++ {
			w.Chunks().QueueLoad(world.ChunkPos{x, z})
			total++
		}
		w.Chunks().HandleUpdates()
		for z := -radius; z <= radius; z++ {
			w.Chunks().QueueUnload(world.ChunkPos{x, z})
		}
		w.Chunks().HandleUpdates()
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.Info("done", "chunks", total, "took", time.Since(start).Round(time.Millisecond))
	return nil
}
