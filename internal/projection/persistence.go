package projection

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
)

// persistedState is the on-disk form of a Distribution. Identity is carried
// by the artifact filename (the fingerprint); the struct only holds the
// values.
type persistedState struct {
	Samples  int
	Bins     int
	Edges    []float64
	Survival []float64
}

// serialize encodes the distribution with gob and compresses it with gzip.
func (d *Distribution) serialize() ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	state := persistedState{
		Samples:  d.samples,
		Bins:     d.bins,
		Edges:    d.edges,
		Survival: d.survival,
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

// deserialize decodes a gob+gzip blob back into a Distribution.
func deserialize(blob []byte) (*Distribution, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty distribution blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var state persistedState
	if err := gob.NewDecoder(gz).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode distribution: %w", err)
	}
	if len(state.Edges) != state.Bins+1 || len(state.Survival) != state.Bins+1 {
		return nil, fmt.Errorf("inconsistent distribution blob: bins=%d edges=%d survival=%d",
			state.Bins, len(state.Edges), len(state.Survival))
	}
	return &Distribution{
		samples:  state.Samples,
		bins:     state.Bins,
		edges:    state.Edges,
		survival: state.Survival,
	}, nil
}
