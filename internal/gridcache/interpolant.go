package gridcache

import (
	"fmt"
	"sort"
)

// Interpolant is a multilinear interpolant over a grid and its dense value
// array. Queries outside the grid bounds never fail: the boundary cell is
// extended linearly, which tolerates floating-point boundary misses from
// downstream arithmetic.
type Interpolant struct {
	grid   *Grid
	values []float64 // row-major, indexed by flat grid point
}

// NewInterpolant wraps a grid and its value array.
func NewInterpolant(grid *Grid, values []float64) (*Interpolant, error) {
	if len(values) != grid.Size() {
		return nil, fmt.Errorf("gridcache: value array length %d does not match grid size %d", len(values), grid.Size())
	}
	return &Interpolant{grid: grid, values: values}, nil
}

// Grid returns the underlying grid.
func (it *Interpolant) Grid() *Grid { return it.grid }

// Eval interpolates the value at point. The point must have one coordinate
// per grid dimension; a mismatch panics, matching gonum's convention for
// dimension errors. Out-of-range coordinates extrapolate linearly from the
// boundary cell.
func (it *Interpolant) Eval(point []float64) float64 {
	g := it.grid
	dims := g.Dims()
	if len(point) != dims {
		panic(fmt.Sprintf("gridcache: point has %d coordinates, grid has %d dimensions", len(point), dims))
	}

	// Per dimension: locate the cell and the local coordinate. The cell
	// index is clamped to the boundary cell while the local coordinate is
	// left unclamped, which yields linear extrapolation outside the grid.
	idx := make([]int, dims)
	t := make([]float64, dims)
	for d := 0; d < dims; d++ {
		axis := g.axes[d]
		x := point[d]

		j := sort.SearchFloat64s(axis, x) // first index with axis[j] >= x
		i := j - 1
		if i < 0 {
			i = 0
		}
		if i > len(axis)-2 {
			i = len(axis) - 2
		}
		idx[d] = i
		t[d] = (x - axis[i]) / (axis[i+1] - axis[i])
	}

	// Weighted sum over the 2^dims cell corners.
	var acc float64
	for corner := 0; corner < 1<<dims; corner++ {
		w := 1.0
		flat := 0
		for d := 0; d < dims; d++ {
			if corner>>d&1 == 1 {
				w *= t[d]
				flat += (idx[d] + 1) * g.strides[d]
			} else {
				w *= 1 - t[d]
				flat += idx[d] * g.strides[d]
			}
		}
		if w != 0 {
			acc += w * it.values[flat]
		}
	}
	return acc
}

// EvalBatch interpolates every point of the batch.
func (it *Interpolant) EvalBatch(points [][]float64) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = it.Eval(p)
	}
	return out
}
