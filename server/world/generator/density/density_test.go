package density

import (
	"math"
	"testing"
)

func testNoise(t *testing.T) *Noise {
	t.Helper()
	return NewNoise(42, "test:noise", NoiseParameters{})
}

func TestStaticBounds(t *testing.T) {
	n := testNoise(t)
	f := Clamp(Binary(OpAdd, NoiseFunc(n, 1, 1), Constant(0.5)), -1, 1)
	if f.Min() != -0.5 {
		t.Fatalf("min = %v, want -0.5", f.Min())
	}
	if f.Max() != 1 {
		t.Fatalf("max = %v, want 1", f.Max())
	}

	sq := Unary(OpSquare, Constant(-3))
	if sq.Min() != 9 || sq.Max() != 9 {
		t.Fatalf("square bounds = [%v,%v], want [9,9]", sq.Min(), sq.Max())
	}

	abs := Unary(OpAbs, Binary(OpMul, Constant(2), NoiseFunc(n, 1, 1)))
	if abs.Min() != 0 || abs.Max() != 2 {
		t.Fatalf("abs bounds = [%v,%v], want [0,2]", abs.Min(), abs.Max())
	}
}

func TestComputeBuiltins(t *testing.T) {
	ctx := NewContext(1, 1)
	if v := Unary(OpHalfNegative, Constant(-4)).Compute(ctx); v != -2 {
		t.Fatalf("half_negative(-4) = %v, want -2", v)
	}
	if v := Unary(OpHalfNegative, Constant(4)).Compute(ctx); v != 4 {
		t.Fatalf("half_negative(4) = %v, want 4", v)
	}
	if v := Binary(OpMax, Constant(1), Constant(3)).Compute(ctx); v != 3 {
		t.Fatalf("max(1,3) = %v, want 3", v)
	}
	if v := Unary(OpSqueeze, Constant(10)).Compute(ctx); v != 0.5-1.0/24 {
		t.Fatalf("squeeze(10) = %v, want %v", v, 0.5-1.0/24)
	}
}

func TestFlatCacheOncePerColumn(t *testing.T) {
	f := FlatCache(NoiseFunc(testNoise(t), 0.13, 0.17))
	ctx := NewContext(42, 1)

	ctx.X, ctx.Y, ctx.Z = 0, 0, 0
	first := f.Compute(ctx)
	if size := f.cache.flat.Size(); size != 1 {
		t.Fatalf("flat memo holds %v entries after 1 column, want 1", size)
	}

	// Overwrite the column's memo with a sentinel. Every later sample of the
	// column must return the sentinel: returning anything else would mean the
	// child was re-evaluated instead of the memo being hit.
	const sentinel = 12.5
	if first == sentinel {
		t.Fatalf("sentinel collides with computed value")
	}
	f.cache.flat.Put(packColumn(0, 0), int64(math.Float64bits(sentinel)))
	for y := 1; y < 16; y++ {
		ctx.Y = y
		if got := f.Compute(ctx); got != sentinel {
			t.Fatalf("column (0,0) y=%v: %v, want memoised sentinel %v", y, got, sentinel)
		}
	}

	// A second column computes its own entry and leaves the first alone.
	ctx.X, ctx.Y, ctx.Z = 5, 0, -3
	_ = f.Compute(ctx)
	if size := f.cache.flat.Size(); size != 2 {
		t.Fatalf("flat memo holds %v entries after 2 columns, want 2", size)
	}
	ctx.X, ctx.Y, ctx.Z = 0, 3, 0
	if got := f.Compute(ctx); got != sentinel {
		t.Fatalf("first column's memo lost after second column: %v", got)
	}
}

func TestOnceCachePerPass(t *testing.T) {
	f := OnceCache(NoiseFunc(testNoise(t), 0.13, 0.17))
	ctx := NewContext(42, 7)

	ctx.X, ctx.Y, ctx.Z = 1, 2, 3
	first := f.Compute(ctx)
	ctx.X, ctx.Y, ctx.Z = -50, 90, 12
	if got := f.Compute(ctx); got != first {
		t.Fatalf("once cache recomputed within pass: %v != %v", got, first)
	}

	// A new pass must invalidate the memo.
	next := NewContext(42, 8)
	next.X, next.Y, next.Z = -50, 90, 12
	fresh := f.Compute(next)
	if f.cache.pass != 8 {
		t.Fatalf("memo pass = %v after pass change, want 8", f.cache.pass)
	}
	if fresh == first {
		t.Fatalf("value after pass change still equals the stale memo position value")
	}
}

func TestAllInCellCacheScope(t *testing.T) {
	f := AllInCellCache(NoiseFunc(testNoise(t), 0.13, 0.17))
	ctx := NewContext(42, 1)

	ctx.X, ctx.Y, ctx.Z = 0, 0, 0
	v := f.Compute(ctx)
	ctx.X, ctx.Y, ctx.Z = 15, 15, 15
	if got := f.Compute(ctx); got != v {
		t.Fatalf("samples within one cell differ: %v != %v", got, v)
	}
	ctx.X, ctx.Y, ctx.Z = 16, 0, 0
	if got := f.Compute(ctx); got == v {
		t.Fatalf("sample in the next cell reused the previous cell's memo")
	}
}

func TestInterpolatedMatchesChildAtCorners(t *testing.T) {
	child := NoiseFunc(testNoise(t), 0.13, 0.17)
	f := Interpolated(child)
	ctx := NewContext(42, 1)

	ctx.X, ctx.Y, ctx.Z = 4, 8, 4
	got := f.Compute(ctx)
	want := child.Compute(ctx)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("interpolated at corner = %v, want child value %v", got, want)
	}

	ctx.X, ctx.Y, ctx.Z = 6, 11, 5
	inside := f.Compute(ctx)
	if inside < f.Min() || inside > f.Max() {
		t.Fatalf("interpolated value %v outside static bounds [%v,%v]", inside, f.Min(), f.Max())
	}
}

func TestCloneResetsMemo(t *testing.T) {
	f := OnceCache(Constant(3))
	ctx := NewContext(42, 1)
	_ = f.Compute(ctx)
	cl := f.Clone()
	if cl.cache.hasOnce {
		t.Fatalf("clone inherited memo state")
	}
	if cl.Compute(ctx) != 3 {
		t.Fatalf("clone computes wrong value")
	}
}
