package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRecordAndListBuilds(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)

	base := time.Now()
	records := []BuildRecord{
		{SessionID: "s1", Kind: "projection", Fingerprint: "pdet_samples_1000_bins_10", Points: 1000, Workers: 1, BuiltAt: base, Duration: 20 * time.Millisecond, Artifact: "cache/pdet.gob.gz"},
		{SessionID: "s1", Kind: "snr_grid", Fingerprint: "snr_grid1d_8", Points: 64, Workers: 4, BuiltAt: base.Add(time.Second), Duration: time.Second, Artifact: "cache/snr.gob.gz"},
		{SessionID: "s1", Kind: "detection_grid", Fingerprint: "Pw_grid1d_8", Points: 512, Workers: 4, BuiltAt: base.Add(2 * time.Second), Duration: 3 * time.Second, Artifact: "cache/pw.gob.gz"},
	}
	for _, r := range records {
		require.NoError(t, c.RecordBuild(r))
	}

	all, err := c.ListBuilds("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, "detection_grid", all[0].Kind)
	assert.Equal(t, "projection", all[2].Kind)

	grids, err := c.ListBuilds("snr_grid")
	require.NoError(t, err)
	require.Len(t, grids, 1)
	got := grids[0]
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, 64, got.Points)
	assert.Equal(t, 4, got.Workers)
	assert.Equal(t, time.Second, got.Duration)
	assert.Equal(t, records[1].BuiltAt.UnixNano(), got.BuiltAt.UnixNano())
	assert.Equal(t, "cache/snr.gob.gz", got.Artifact)
}

func TestListBuildsEmpty(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)

	out, err := c.ListBuilds("projection")
	require.NoError(t, err)
	assert.Empty(t, out)
}
