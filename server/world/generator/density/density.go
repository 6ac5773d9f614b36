// Package density implements the density function evaluation engine used to
// derive terrain content for newly generated chunks. A density function is a
// tree of composable numeric functions over a 3D sample position; wrapper
// variants add memoisation at several scopes so that expensive subtrees are
// evaluated as rarely as the sampling pattern allows.
package density

import (
	"math"

	"github.com/axolotl-mc/axolotl/server/internal/mathutil"
)

// kind enumerates the closed set of function variants. Dispatch happens over
// this tag in Compute, Min and Max; adding a variant means extending each of
// those switches.
type kind uint8

const (
	kindConstant kind = iota
	kindClamp
	kindUnary
	kindBinary
	kindNoise
	kindInterpolated
	kindFlatCache
	kindTwoDCache
	kindAllInCellCache
	kindOnceCache
	kindReference
)

// UnaryOp is a built-in single-argument operation.
type UnaryOp uint8

const (
	OpAbs UnaryOp = iota
	OpSquare
	OpCube
	OpHalfNegative
	OpQuarterNegative
	OpSqueeze
)

// BinaryOp is a built-in two-argument operation.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpMul
	OpMin
	OpMax
)

// Function is one node of a density function tree. Nodes are immutable after
// construction apart from the internal memo slots of the cache variants;
// children are exclusively owned by their parent. A Function must not be
// shared between concurrent evaluations: the cache memo slots are not
// synchronised.
type Function struct {
	k kind

	arg, arg2 *Function

	value  float64 // constant
	lo, hi float64 // clamp bounds

	uop UnaryOp
	bop BinaryOp

	noise            *Noise
	xzScale, yScale  float64
	xzCell, yCell    int // interpolation cell sizes

	key string    // reference target, kindReference
	ref *Function // resolved reference target

	cache cacheState
}

// Constant returns a node that always computes v.
func Constant(v float64) *Function {
	return &Function{k: kindConstant, value: v}
}

// Clamp returns a node limiting the child's value to [lo, hi].
func Clamp(arg *Function, lo, hi float64) *Function {
	return &Function{k: kindClamp, arg: arg, lo: lo, hi: hi}
}

// Unary returns a node applying a single-argument built-in to the child.
func Unary(op UnaryOp, arg *Function) *Function {
	return &Function{k: kindUnary, uop: op, arg: arg}
}

// Binary returns a node combining two children with a built-in operation.
func Binary(op BinaryOp, a, b *Function) *Function {
	return &Function{k: kindBinary, bop: op, arg: a, arg2: b}
}

// NoiseFunc returns a node sampling the noise passed at the context position
// scaled by xzScale horizontally and yScale vertically.
func NoiseFunc(n *Noise, xzScale, yScale float64) *Function {
	return &Function{k: kindNoise, noise: n, xzScale: xzScale, yScale: yScale}
}

// Interpolated returns a node that evaluates its child only at the corners of
// the cell grid and trilinearly interpolates between the corner values for
// positions inside a cell.
func Interpolated(arg *Function) *Function {
	return &Function{k: kindInterpolated, arg: arg, xzCell: defaultCellWidth, yCell: defaultCellHeight}
}

// Compute evaluates the node at the sample position held by ctx. It is pure
// apart from the memo slots of the cache variants.
func (f *Function) Compute(ctx *Context) float64 {
	switch f.k {
	case kindConstant:
		return f.value
	case kindClamp:
		return mathutil.Clamp(f.arg.Compute(ctx), f.lo, f.hi)
	case kindUnary:
		return applyUnary(f.uop, f.arg.Compute(ctx))
	case kindBinary:
		return applyBinary(f.bop, f.arg.Compute(ctx), f.arg2.Compute(ctx))
	case kindNoise:
		return f.noise.Sample(float64(ctx.X)*f.xzScale, float64(ctx.Y)*f.yScale, float64(ctx.Z)*f.xzScale)
	case kindInterpolated:
		return f.computeInterpolated(ctx)
	case kindFlatCache:
		return f.computeFlatCached(ctx)
	case kindTwoDCache:
		return f.computeTwoDCached(ctx)
	case kindAllInCellCache:
		return f.computeCellCached(ctx)
	case kindOnceCache:
		return f.computeOnceCached(ctx)
	case kindReference:
		return f.ref.Compute(ctx)
	}
	panic("density: unknown function kind")
}

// Min reports the static analytic lower bound of the node. The bound is
// derived from the tree shape, not measured, and may be loose; callers use it
// to clip ranges cheaply.
func (f *Function) Min() float64 {
	switch f.k {
	case kindConstant:
		return f.value
	case kindClamp:
		return mathutil.Clamp(f.arg.Min(), f.lo, f.hi)
	case kindUnary:
		lo, _ := unaryBounds(f.uop, f.arg.Min(), f.arg.Max())
		return lo
	case kindBinary:
		lo, _ := binaryBounds(f.bop, f.arg.Min(), f.arg.Max(), f.arg2.Min(), f.arg2.Max())
		return lo
	case kindNoise:
		return -f.noise.MaxValue()
	case kindInterpolated, kindFlatCache, kindTwoDCache, kindAllInCellCache, kindOnceCache:
		return f.arg.Min()
	case kindReference:
		return f.ref.Min()
	}
	panic("density: unknown function kind")
}

// Max reports the static analytic upper bound of the node.
func (f *Function) Max() float64 {
	switch f.k {
	case kindConstant:
		return f.value
	case kindClamp:
		return mathutil.Clamp(f.arg.Max(), f.lo, f.hi)
	case kindUnary:
		_, hi := unaryBounds(f.uop, f.arg.Min(), f.arg.Max())
		return hi
	case kindBinary:
		_, hi := binaryBounds(f.bop, f.arg.Min(), f.arg.Max(), f.arg2.Min(), f.arg2.Max())
		return hi
	case kindNoise:
		return f.noise.MaxValue()
	case kindInterpolated, kindFlatCache, kindTwoDCache, kindAllInCellCache, kindOnceCache:
		return f.arg.Max()
	case kindReference:
		return f.ref.Max()
	}
	panic("density: unknown function kind")
}

// Clone returns a deep copy of the tree with all memo state reset. Reference
// nodes keep pointing at their resolved target rather than cloning it, so a
// shared namespace stays shared.
func (f *Function) Clone() *Function {
	if f == nil {
		return nil
	}
	cl := &Function{
		k: f.k, value: f.value, lo: f.lo, hi: f.hi,
		uop: f.uop, bop: f.bop,
		noise: f.noise, xzScale: f.xzScale, yScale: f.yScale,
		xzCell: f.xzCell, yCell: f.yCell,
		key: f.key, ref: f.ref,
	}
	cl.arg = f.arg.Clone()
	cl.arg2 = f.arg2.Clone()
	return cl
}

func applyUnary(op UnaryOp, v float64) float64 {
	switch op {
	case OpAbs:
		return math.Abs(v)
	case OpSquare:
		return v * v
	case OpCube:
		return v * v * v
	case OpHalfNegative:
		if v < 0 {
			return v / 2
		}
		return v
	case OpQuarterNegative:
		if v < 0 {
			return v / 4
		}
		return v
	case OpSqueeze:
		c := mathutil.Clamp(v, -1, 1)
		return c/2 - c*c*c/24
	}
	panic("density: unknown unary op")
}

func applyBinary(op BinaryOp, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpMul:
		return a * b
	case OpMin:
		return math.Min(a, b)
	case OpMax:
		return math.Max(a, b)
	}
	panic("density: unknown binary op")
}

func unaryBounds(op UnaryOp, lo, hi float64) (float64, float64) {
	switch op {
	case OpAbs:
		if lo >= 0 {
			return lo, hi
		}
		if hi <= 0 {
			return -hi, -lo
		}
		return 0, math.Max(-lo, hi)
	case OpSquare:
		a, b := lo*lo, hi*hi
		if lo <= 0 && hi >= 0 {
			return 0, math.Max(a, b)
		}
		return math.Min(a, b), math.Max(a, b)
	case OpCube:
		return lo * lo * lo, hi * hi * hi
	case OpHalfNegative, OpQuarterNegative, OpSqueeze:
		// All three are monotonically non-decreasing.
		return applyUnary(op, lo), applyUnary(op, hi)
	}
	panic("density: unknown unary op")
}

func binaryBounds(op BinaryOp, alo, ahi, blo, bhi float64) (float64, float64) {
	switch op {
	case OpAdd:
		return alo + blo, ahi + bhi
	case OpMul:
		p := [4]float64{alo * blo, alo * bhi, ahi * blo, ahi * bhi}
		lo, hi := p[0], p[0]
		for _, v := range p[1:] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		return lo, hi
	case OpMin:
		return math.Min(alo, blo), math.Min(ahi, bhi)
	case OpMax:
		return math.Max(alo, blo), math.Max(ahi, bhi)
	}
	panic("density: unknown binary op")
}
