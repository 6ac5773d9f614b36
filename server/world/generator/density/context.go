package density

import (
	"math/rand/v2"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Context carries the state of one evaluation invocation: the sample position,
// seed-derived randomness and the identity of the generation pass the
// invocation belongs to. A Context is created fresh per generation pass and
// discarded afterwards; cache memo slots guard themselves with the pass number
// so that no memoised value survives into an independent pass.
type Context struct {
	// X, Y and Z are the global block coordinates of the current sample. The
	// evaluating caller advances them between samples.
	X, Y, Z int

	seed int64
	pass uint64
	r    *rand.Rand
}

var passCounter atomic.Uint64

// NextPass returns a process-unique generation pass number. Every evaluating
// caller must take its pass numbers from here: memo slots of cache wrappers
// are guarded only by the pass number, and resolved references may share
// cache-wrapped targets between trees, so a pass number minted per caller
// would let memo state leak between independent passes.
func NextPass() uint64 {
	return passCounter.Add(1)
}

// NewContext creates an evaluation context for the world seed and generation
// pass number passed. Pass numbers must be unique per pass within the
// process (use NextPass); their only use is memo invalidation, so their
// values never influence computed densities.
func NewContext(seed int64, pass uint64) *Context {
	h := xxhash.New()
	var b [8]byte
	putInt64(b[:], seed)
	_, _ = h.Write(b[:])
	s1 := h.Sum64()
	return &Context{
		seed: seed,
		pass: pass,
		r:    rand.New(rand.NewPCG(s1, s1^0x9e3779b97f4a7c15)),
	}
}

// Seed returns the world seed the context derives randomness from.
func (ctx *Context) Seed() int64 { return ctx.seed }

// Pass returns the generation pass number of the context.
func (ctx *Context) Pass() uint64 { return ctx.pass }

// Rand returns the seed-derived random source of the context. The source is
// deterministic for a given seed.
func (ctx *Context) Rand() *rand.Rand { return ctx.r }

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}
