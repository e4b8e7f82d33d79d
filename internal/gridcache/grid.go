// Package gridcache compiles an expensive scalar black-box function into a
// fast interpolated lookup: it evaluates the function over every point of a
// regular n-dimensional grid (in parallel), assembles a dense value array,
// wraps it in a multilinear interpolant with extrapolation, and memoizes the
// result on disk keyed by a configuration fingerprint.
package gridcache

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Grid is an ordered tuple of per-dimension coordinate sequences, each
// strictly increasing. It defines the Cartesian product of sample points.
// Immutable once built.
type Grid struct {
	axes    [][]float64
	strides []int // row-major, last dimension contiguous
	size    int
}

// NewGrid builds a grid from per-dimension coordinate slices. Every axis
// must have at least two strictly increasing coordinates.
func NewGrid(axes ...[]float64) (*Grid, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("gridcache: grid needs at least one dimension")
	}
	for d, axis := range axes {
		if len(axis) < 2 {
			return nil, fmt.Errorf("gridcache: axis %d needs at least two coordinates, got %d", d, len(axis))
		}
		for i := 1; i < len(axis); i++ {
			if axis[i] <= axis[i-1] {
				return nil, fmt.Errorf("gridcache: axis %d not strictly increasing at index %d", d, i)
			}
		}
	}

	strides := make([]int, len(axes))
	size := 1
	for d := len(axes) - 1; d >= 0; d-- {
		strides[d] = size
		size *= len(axes[d])
	}
	return &Grid{axes: axes, strides: strides, size: size}, nil
}

// Linspace returns n evenly spaced coordinates over [min, max].
func Linspace(min, max float64, n int) []float64 {
	return floats.Span(make([]float64, n), min, max)
}

// Dims returns the number of dimensions.
func (g *Grid) Dims() int { return len(g.axes) }

// Size returns the total number of grid points.
func (g *Grid) Size() int { return g.size }

// Axis returns the coordinate slice of dimension d. Callers must not
// modify it.
func (g *Grid) Axis(d int) []float64 { return g.axes[d] }

// Point returns the coordinate tuple for the flat row-major index. The flat
// index is the GridPoint identity used to place computed values into the
// dense value array regardless of computation order.
func (g *Grid) Point(flat int) []float64 {
	out := make([]float64, len(g.axes))
	for d := range g.axes {
		out[d] = g.axes[d][(flat/g.strides[d])%len(g.axes[d])]
	}
	return out
}

// Points enumerates every grid point in flat row-major order. The result is
// the fixed task set for one build; no tasks are generated dynamically.
func (g *Grid) Points() [][]float64 {
	out := make([][]float64, g.size)
	for i := range out {
		out[i] = g.Point(i)
	}
	return out
}
