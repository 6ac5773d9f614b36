// Package generator implements terrain generation driven by density function
// trees. A position is solid where the configured final density evaluates
// positive; everything else is air, or water up to the configured level.
package generator

import (
	"fmt"
	"log/slog"

	"github.com/axolotl-mc/axolotl/server/world"
	"github.com/axolotl-mc/axolotl/server/world/chunk"
	"github.com/axolotl-mc/axolotl/server/world/generator/density"
	"github.com/segmentio/fasthash/fnv1a"
)

// Block state keys the generator resolves against the world's state registry.
const (
	StoneKey = "axolotl:stone"
	GrassKey = "axolotl:grass"
	WaterKey = "axolotl:water"
)

// Config holds the settings a Noise generator is created with.
type Config struct {
	// Log is the logger of the generator. Defaults to slog.Default().
	Log *slog.Logger
	// Seed is the world seed. All noise in the density tree derives from it,
	// so equal seeds produce equal terrain.
	Seed int64
	// States is the registry the produced block states are registered in.
	States *world.StateRegistry
	// Registry holds the density function definitions of the generator. If
	// nil, DefaultRegistry(Seed) is used.
	Registry *density.Registry
	// FinalDensity is the key of the density function deciding solidity.
	// Defaults to "axolotl:final_density".
	FinalDensity string
	// WaterLevel is the Y up to which non-solid blocks become water.
	// Defaults to 62.
	WaterLevel int
	// Biomes are the biome IDs terrain cells are assigned from. Defaults to
	// a single zero biome.
	Biomes []uint32
}

func (conf Config) withDefaults() Config {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.States == nil {
		conf.States = world.NewStateRegistry()
	}
	if conf.Registry == nil {
		conf.Registry = DefaultRegistry(conf.Seed)
	}
	if conf.FinalDensity == "" {
		conf.FinalDensity = "axolotl:final_density"
	}
	if conf.WaterLevel == 0 {
		conf.WaterLevel = 62
	}
	if len(conf.Biomes) == 0 {
		conf.Biomes = []uint32{0}
	}
	return conf
}

// New creates a Noise generator from conf, resolving the final density
// function and the block states it places. An error is returned if the
// registry has unresolved references or lacks the final density key.
func (conf Config) New() (*Noise, error) {
	conf = conf.withDefaults()
	if err := conf.Registry.Finish(); err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	fn, err := conf.Registry.Function(conf.FinalDensity)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	return &Noise{
		log:        conf.Log,
		seed:       conf.Seed,
		fn:         fn,
		waterLevel: conf.WaterLevel,
		biomes:     conf.Biomes,
		stone:      conf.States.Register(StoneKey),
		grass:      conf.States.Register(GrassKey),
		water:      conf.States.Register(WaterKey),
		air:        conf.States.MustState(world.AirKey),
	}, nil
}

// Noise generates terrain by sampling a density function tree at every block
// position of a chunk. Generation is deterministic: two generators with the
// same seed and definitions produce identical chunks for the same position,
// in any order, in any process.
type Noise struct {
	log        *slog.Logger
	seed       int64
	fn         *density.Function
	waterLevel int
	biomes     []uint32

	stone, grass, water, air uint32
}

// GenerateChunk fills a chunk with terrain. Each call evaluates a private
// clone of the density tree under a fresh pass number, so no memoised value
// leaks between chunks and equal positions always yield equal terrain.
func (g *Noise) GenerateChunk(pos world.ChunkPos, c *chunk.Chunk) {
	fn := g.fn.Clone()
	ctx := density.NewContext(g.seed, density.NextPass())
	r := c.Range()

	// Static bounds clip the per-sample work: a tree that can never go
	// positive produces no terrain at all.
	alwaysSolid, neverSolid := fn.Min() > 0, fn.Max() <= 0

	baseX, baseZ := int(pos.X())<<4, int(pos.Z())<<4
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			ctx.X, ctx.Z = baseX+x, baseZ+z
			for y := r.Min(); y <= r.Max(); y++ {
				var solid bool
				switch {
				case neverSolid:
				case alwaysSolid:
					solid = true
				default:
					ctx.Y = y
					solid = fn.Compute(ctx) > 0
				}
				switch {
				case solid:
					g.set(c, x, y, z, g.stone)
				case y <= g.waterLevel:
					g.set(c, x, y, z, g.water)
				}
			}
			// Only dry stone tops turn into grass; water surfaces stay water.
			if top := c.HighestBlock(uint8(x), uint8(z)); top >= g.waterLevel {
				if rid, err := c.Block(uint8(x), top, uint8(z)); err == nil && rid == g.stone {
					g.set(c, x, top, z, g.grass)
				}
			}
		}
	}
	g.fillBiomes(pos, c)
}

func (g *Noise) set(c *chunk.Chunk, x, y, z int, rid uint32) {
	if err := c.SetBlock(uint8(x), y, uint8(z), rid); err != nil {
		g.log.Error("generate block", "x", x, "y", y, "z", z, "error", err)
	}
}

// fillBiomes assigns one biome per 4×4×4 cell, picked by hashing the global
// cell coordinate together with the seed. Hashing keeps the choice
// deterministic and position-stable without any neighbour lookups.
func (g *Noise) fillBiomes(pos world.ChunkPos, c *chunk.Chunk) {
	r := c.Range()
	baseX, baseZ := int(pos.X())<<4, int(pos.Z())<<4
	for x := 0; x < 16; x += 4 {
		for z := 0; z < 16; z += 4 {
			for y := r.Min(); y <= r.Max(); y += 4 {
				h := fnv1a.Init64
				h = fnv1a.AddUint64(h, uint64(g.seed))
				h = fnv1a.AddUint64(h, uint64(int64((baseX+x)>>2)))
				h = fnv1a.AddUint64(h, uint64(int64(y>>2)))
				h = fnv1a.AddUint64(h, uint64(int64((baseZ+z)>>2)))
				biome := g.biomes[h%uint64(len(g.biomes))]
				if err := c.SetBiome(uint8(x), y, uint8(z), biome); err != nil {
					g.log.Error("generate biome", "x", x, "y", y, "z", z, "error", err)
				}
			}
		}
	}
}

// DefaultRegistry creates a density registry with the stock overworld
// definitions: an interpolated three-dimensional terrain noise with a
// negative bias, clamped to its analytic range.
func DefaultRegistry(seed int64) *density.Registry {
	r := density.NewRegistry(seed)
	must := func(err error) {
		if err != nil {
			panic(fmt.Sprintf("generator: default registry: %v", err))
		}
	}
	must(r.RegisterNoise("axolotl:terrain", density.NoiseParameters{
		Octaves:   4,
		Frequency: 1.0 / 64,
	}))
	must(r.Register("axolotl:base", map[string]any{
		"type":     "noise",
		"noise":    "axolotl:terrain",
		"xz_scale": 1.0,
		"y_scale":  1.0,
	}))
	// The bias keeps the solid fraction below half so the terrain reads as
	// caves and overhangs rather than a nearly filled volume.
	must(r.Register("axolotl:final_density", map[string]any{
		"type": "interpolated",
		"argument": map[string]any{
			"type": "clamp",
			"min":  -1.0,
			"max":  1.0,
			"input": map[string]any{
				"type":      "add",
				"argument1": "axolotl:base",
				"argument2": map[string]any{"type": "constant", "argument": -0.2},
			},
		},
	}))
	return r
}
