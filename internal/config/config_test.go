package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwpop/gwdet/internal/detect"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gwdet.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadPartialConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `{"grid_1d": 50, "snr_threshold": 12, "parallel": false}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	applied, err := cfg.Apply(detect.DefaultConfig())
	require.NoError(t, err)

	// Overridden fields.
	assert.Equal(t, 50, applied.Grid1D)
	assert.Equal(t, 12.0, applied.SNRThreshold)
	assert.False(t, applied.Parallel)
	// Untouched fields keep defaults.
	assert.Equal(t, "IMRPhenomD", applied.Approximant)
	assert.Equal(t, 100.0, applied.MassMax)
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "gwdet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `{"grid_1d": `)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyValidates(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `{"mass_min": 50, "mass_max": 10}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Apply(detect.DefaultConfig())
	assert.Error(t, err, "inverted mass bounds must fail validation")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
