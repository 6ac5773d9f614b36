package density

import (
	"math"

	"github.com/axolotl-mc/axolotl/server/internal/mathutil"
	"github.com/brentp/intintmap"
)

// Interpolation cell dimensions, matching the sample grid the generator
// evaluates chunks on.
const (
	defaultCellWidth  = 4
	defaultCellHeight = 8
)

// FlatCache wraps a child so that it is computed at most once per (x,z)
// column within one generation pass, regardless of how many Y values the
// column is sampled at. The child is evaluated at Y=0 so the memoised value
// does not depend on which Y the column is first sampled at.
func FlatCache(arg *Function) *Function {
	return &Function{k: kindFlatCache, arg: arg}
}

// TwoDCache wraps a child in a single-slot memo keyed by (x,z). As chunk
// generation samples column by column, the child is computed once per column
// of a region's generation.
func TwoDCache(arg *Function) *Function {
	return &Function{k: kindTwoDCache, arg: arg}
}

// AllInCellCache wraps a child so that all samples inside one 16x16x16 cell
// reuse the value computed at the first sample in that cell.
func AllInCellCache(arg *Function) *Function {
	return &Function{k: kindAllInCellCache, arg: arg}
}

// OnceCache wraps a child that is computed at most once per generation pass;
// every later call during the pass reuses the memoised value.
func OnceCache(arg *Function) *Function {
	return &Function{k: kindOnceCache, arg: arg}
}

// cacheState holds the memo slots of the cache wrapper variants. A memo is
// valid only while pass matches the current context's pass number; it is
// invalidated by a context or seed change, never by a value change.
type cacheState struct {
	pass uint64

	// flat maps a packed (x,z) column key to the Float64bits of the memoised
	// value.
	flat *intintmap.Map

	lastKey   int64 // twoD single-slot memo
	lastValue float64
	hasLast   bool

	cellKey   int64 // all-in-cell single-slot memo
	cellValue float64
	hasCell   bool

	onceValue float64
	hasOnce   bool

	cornerKey int64 // interpolated per-cell corner memo
	corners   [8]float64
	hasCorner bool
}

// reset drops every memo slot. Called whenever a wrapper observes a pass
// number different from the one its memo was created under.
func (c *cacheState) reset(pass uint64) {
	c.pass = pass
	c.flat = nil
	c.hasLast = false
	c.hasCell = false
	c.hasOnce = false
	c.hasCorner = false
}

func (f *Function) computeFlatCached(ctx *Context) float64 {
	if f.cache.pass != ctx.pass {
		f.cache.reset(ctx.pass)
	}
	if f.cache.flat == nil {
		f.cache.flat = intintmap.New(64, 0.6)
	}
	key := packColumn(ctx.X, ctx.Z)
	if bits, ok := f.cache.flat.Get(key); ok {
		return math.Float64frombits(uint64(bits))
	}
	y := ctx.Y
	ctx.Y = 0
	v := f.arg.Compute(ctx)
	ctx.Y = y
	f.cache.flat.Put(key, int64(math.Float64bits(v)))
	return v
}

func (f *Function) computeTwoDCached(ctx *Context) float64 {
	if f.cache.pass != ctx.pass {
		f.cache.reset(ctx.pass)
	}
	key := packColumn(ctx.X, ctx.Z)
	if f.cache.hasLast && f.cache.lastKey == key {
		return f.cache.lastValue
	}
	v := f.arg.Compute(ctx)
	f.cache.lastKey, f.cache.lastValue, f.cache.hasLast = key, v, true
	return v
}

func (f *Function) computeCellCached(ctx *Context) float64 {
	if f.cache.pass != ctx.pass {
		f.cache.reset(ctx.pass)
	}
	key := packCell(ctx.X>>4, ctx.Y>>4, ctx.Z>>4)
	if f.cache.hasCell && f.cache.cellKey == key {
		return f.cache.cellValue
	}
	v := f.arg.Compute(ctx)
	f.cache.cellKey, f.cache.cellValue, f.cache.hasCell = key, v, true
	return v
}

func (f *Function) computeOnceCached(ctx *Context) float64 {
	if f.cache.pass != ctx.pass {
		f.cache.reset(ctx.pass)
	}
	if f.cache.hasOnce {
		return f.cache.onceValue
	}
	v := f.arg.Compute(ctx)
	f.cache.onceValue, f.cache.hasOnce = v, true
	return v
}

// computeInterpolated evaluates the child at the eight corners of the cell
// containing the sample position and interpolates trilinearly between them.
// Corner values are memoised per cell within a pass.
func (f *Function) computeInterpolated(ctx *Context) float64 {
	if f.cache.pass != ctx.pass {
		f.cache.reset(ctx.pass)
	}
	cx, cy, cz := floorDiv(ctx.X, f.xzCell), floorDiv(ctx.Y, f.yCell), floorDiv(ctx.Z, f.xzCell)
	key := packCell(cx, cy, cz)
	if !f.cache.hasCorner || f.cache.cornerKey != key {
		x, y, z := ctx.X, ctx.Y, ctx.Z
		i := 0
		for _, dy := range [2]int{0, 1} {
			for _, dz := range [2]int{0, 1} {
				for _, dx := range [2]int{0, 1} {
					ctx.X, ctx.Y, ctx.Z = (cx+dx)*f.xzCell, (cy+dy)*f.yCell, (cz+dz)*f.xzCell
					f.cache.corners[i] = f.arg.Compute(ctx)
					i++
				}
			}
		}
		ctx.X, ctx.Y, ctx.Z = x, y, z
		f.cache.cornerKey, f.cache.hasCorner = key, true
	}
	tx := float64(ctx.X-cx*f.xzCell) / float64(f.xzCell)
	ty := float64(ctx.Y-cy*f.yCell) / float64(f.yCell)
	tz := float64(ctx.Z-cz*f.xzCell) / float64(f.xzCell)
	c := f.cache.corners
	x00 := mathutil.Lerp(c[0], c[1], tx)
	x01 := mathutil.Lerp(c[2], c[3], tx)
	x10 := mathutil.Lerp(c[4], c[5], tx)
	x11 := mathutil.Lerp(c[6], c[7], tx)
	z0 := mathutil.Lerp(x00, x01, tz)
	z1 := mathutil.Lerp(x10, x11, tz)
	return mathutil.Lerp(z0, z1, ty)
}

func packColumn(x, z int) int64 {
	return int64(x)<<32 | int64(uint32(z))
}

func packCell(x, y, z int) int64 {
	const mask = 1<<21 - 1
	return int64(x&mask)<<42 | int64(y&mask)<<21 | int64(z&mask)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
