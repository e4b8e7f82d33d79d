package gridcache

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
)

// persistedInterpolant is the on-disk form of an Interpolant: the grid
// definition plus the dense value array. The interpolation policy is fixed
// (multilinear with extrapolation) and therefore not stored.
type persistedInterpolant struct {
	Axes   [][]float64
	Values []float64
}

// serializeInterpolant encodes the interpolant with gob and compresses it
// with gzip.
func serializeInterpolant(it *Interpolant) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	state := persistedInterpolant{
		Axes:   it.grid.axes,
		Values: it.values,
	}
	if err := enc.Encode(state); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeInterpolant decodes a gob+gzip blob back into an Interpolant.
func deserializeInterpolant(blob []byte) (*Interpolant, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty interpolant blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var state persistedInterpolant
	if err := gob.NewDecoder(gz).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode interpolant: %w", err)
	}

	grid, err := NewGrid(state.Axes...)
	if err != nil {
		return nil, fmt.Errorf("invalid persisted grid: %w", err)
	}
	return NewInterpolant(grid, state.Values)
}
