package detect

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwpop/gwdet/internal/catalog"
	"github.com/gwpop/gwdet/internal/fsutil"
	"github.com/gwpop/gwdet/internal/waveform"
)

// testConfig keeps the grids and the Monte Carlo integration small enough to
// build in milliseconds while preserving the full pipeline shape.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Grid1D = 8
	cfg.DeltaF = 0.25
	cfg.MCSamples = 20_000
	cfg.MCBins = 200
	cfg.Seed = 1
	cfg.CacheDir = "cache"
	cfg.Parallel = false
	return cfg
}

// countingProvider counts SNR evaluations so tests can assert that cached
// artifacts are reused instead of recomputed.
type countingProvider struct {
	inner waveform.Provider
	calls atomic.Int64
}

func (c *countingProvider) SNR(approximant string, m1, m2, d, deltaF, fLow float64, psd string) (float64, error) {
	c.calls.Add(1)
	return c.inner.SNR(approximant, m1, m2, d, deltaF, fLow, psd)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MassMax = cfg.MassMin // empty mass range
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.CacheDir = ""
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestEvalPhysicalLimits(t *testing.T) {
	t.Parallel()
	p, err := New(testConfig(), WithFileSystem(fsutil.NewMemoryFileSystem()))
	require.NoError(t, err)

	ctx := context.Background()

	// A heavy nearby binary is seen at essentially any orientation.
	near, err := p.Eval(ctx, 80, 80, 1e-3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, near, 0.05, "80+80 Msun at z=1e-3 must be near-certain")

	// A light binary at the far redshift edge is essentially invisible.
	far, err := p.Eval(ctx, 1.5, 1.5, 2.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, far, 0.05, "1.5+1.5 Msun at z=2 must be near-impossible")

	// Probability decreases with distance for a fixed source.
	mid, err := p.Eval(ctx, 30, 30, 0.05)
	require.NoError(t, err)
	farMid, err := p.Eval(ctx, 30, 30, 1.0)
	require.NoError(t, err)
	assert.Greater(t, mid, farMid)
}

func TestBuildIsLazyAndCached(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	cfg := testConfig()
	ctx := context.Background()

	first := &countingProvider{inner: waveform.Newtonian{}}
	p1, err := New(cfg, WithFileSystem(fsys), WithProvider(first))
	require.NoError(t, err)

	// Construction alone never touches the provider.
	assert.Zero(t, first.calls.Load())

	require.NoError(t, p1.Build(ctx))
	built := first.calls.Load()
	assert.Equal(t, int64(cfg.Grid1D*cfg.Grid1D), built, "one provider call per SNR grid point")

	// Repeated queries reuse the in-memory interpolants.
	_, err = p1.Eval(ctx, 30, 30, 0.1)
	require.NoError(t, err)
	assert.Equal(t, built, first.calls.Load())

	// A fresh pipeline over the same filesystem loads the artifacts instead
	// of rebuilding.
	second := &countingProvider{inner: waveform.Newtonian{}}
	p2, err := New(cfg, WithFileSystem(fsys), WithProvider(second))
	require.NoError(t, err)
	require.NoError(t, p2.Build(ctx))
	assert.Zero(t, second.calls.Load(), "cached artifacts must not trigger provider calls")

	// And the loaded surfaces agree with the freshly built ones.
	v1, err := p1.Eval(ctx, 25, 35, 0.2)
	require.NoError(t, err)
	v2, err := p2.Eval(ctx, 25, 35, 0.2)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestEvalBatchMatchesEval(t *testing.T) {
	t.Parallel()
	p, err := New(testConfig(), WithFileSystem(fsutil.NewMemoryFileSystem()))
	require.NoError(t, err)

	ctx := context.Background()
	m1s := []float64{10, 30, 80, 1.5}
	m2s := []float64{10, 25, 60, 1.5}
	zs := []float64{0.01, 0.1, 0.5, 2.0}

	batch, err := p.EvalBatch(ctx, m1s, m2s, zs)
	require.NoError(t, err)
	require.Len(t, batch, len(m1s))

	for i := range m1s {
		single, err := p.Eval(ctx, m1s[i], m2s[i], zs[i])
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestEvalBatchRejectsMismatchedLengths(t *testing.T) {
	t.Parallel()
	p, err := New(testConfig(), WithFileSystem(fsutil.NewMemoryFileSystem()))
	require.NoError(t, err)

	_, err = p.EvalBatch(context.Background(), []float64{1, 2}, []float64{1}, []float64{0.1, 0.2})
	assert.Error(t, err)
}

func TestComputeAgreesWithEvalInSaturatedRegions(t *testing.T) {
	t.Parallel()
	p, err := New(testConfig(), WithFileSystem(fsutil.NewMemoryFileSystem()))
	require.NoError(t, err)

	ctx := context.Background()
	cases := []struct {
		m1, m2, z float64
	}{
		{80, 80, 1e-3},  // saturated at 1
		{1.5, 1.5, 2.0}, // saturated at 0
	}
	for _, tc := range cases {
		exact, err := p.Compute(ctx, tc.m1, tc.m2, tc.z)
		require.NoError(t, err)
		interp, err := p.Eval(ctx, tc.m1, tc.m2, tc.z)
		require.NoError(t, err)
		assert.InDelta(t, exact, interp, 0.05, "m1=%g m2=%g z=%g", tc.m1, tc.m2, tc.z)
	}
}

func TestSNRDecreasesWithRedshift(t *testing.T) {
	t.Parallel()
	p, err := New(testConfig(), WithFileSystem(fsutil.NewMemoryFileSystem()))
	require.NoError(t, err)

	near, err := p.SNR(30, 30, 0.01)
	require.NoError(t, err)
	far, err := p.SNR(30, 30, 0.5)
	require.NoError(t, err)
	assert.Greater(t, near, far)
	assert.Positive(t, far)
}

func TestAbsentProviderFailsFast(t *testing.T) {
	t.Parallel()
	p, err := New(testConfig(),
		WithFileSystem(fsutil.NewMemoryFileSystem()),
		WithProvider(waveform.Unavailable{}))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.Eval(ctx, 30, 30, 0.1)
	require.ErrorIs(t, err, waveform.ErrProviderRequired)

	_, err = p.SNR(30, 30, 0.1)
	require.ErrorIs(t, err, waveform.ErrProviderRequired)

	// The orientation distribution does not need a waveform stack.
	d, err := p.ProjectionDistribution()
	require.NoError(t, err)
	assert.Equal(t, 1.0, d.Eval(0))
}

func TestCatalogRecordsBuilds(t *testing.T) {
	t.Parallel()
	c, err := catalog.Open(t.TempDir() + "/catalog.db")
	require.NoError(t, err)
	defer c.Close()

	p, err := New(testConfig(),
		WithFileSystem(fsutil.NewMemoryFileSystem()),
		WithCatalog(c))
	require.NoError(t, err)
	require.NoError(t, p.Build(context.Background()))

	builds, err := c.ListBuilds("")
	require.NoError(t, err)
	require.Len(t, builds, 3)

	kinds := map[string]bool{}
	for _, b := range builds {
		kinds[b.Kind] = true
		assert.Equal(t, builds[0].SessionID, b.SessionID)
		assert.Positive(t, b.Points)
		assert.NotEmpty(t, b.Artifact)
	}
	assert.Equal(t, map[string]bool{"projection": true, "snr_grid": true, "detection_grid": true}, kinds)

	// Cache hits on a second build session record nothing new.
	require.NoError(t, p.Build(context.Background()))
	again, err := c.ListBuilds("")
	require.NoError(t, err)
	assert.Len(t, again, 3)
}

func TestFingerprintsSeparateSurfaces(t *testing.T) {
	t.Parallel()
	cfg := testConfig()

	base := cfg.detectionFingerprint()

	cfg.SNRThreshold = 10
	assert.NotEqual(t, base, cfg.detectionFingerprint(), "threshold must change the detection fingerprint")
	assert.Equal(t, testConfig().snrFingerprint(), cfg.snrFingerprint(), "threshold must not change the SNR fingerprint")

	cfg = testConfig()
	cfg.Grid1D = 16
	assert.NotEqual(t, base, cfg.detectionFingerprint())
	assert.NotEqual(t, testConfig().snrFingerprint(), cfg.snrFingerprint())
}
