// Package detect estimates the probability that a gravitational-wave source
// of given component masses and redshift is detected by a ground-based
// interferometer under random source/detector orientation. It chains two
// memoized grid interpolants: a distance-normalized SNR surface over
// redshifted masses, and a detection-probability volume over (m1, m2, z)
// that folds in the luminosity distance and the orientation-projection
// survival function.
package detect

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gwpop/gwdet/internal/catalog"
	"github.com/gwpop/gwdet/internal/cosmo"
	"github.com/gwpop/gwdet/internal/fsutil"
	"github.com/gwpop/gwdet/internal/gridcache"
	"github.com/gwpop/gwdet/internal/parallel"
	"github.com/gwpop/gwdet/internal/projection"
	"github.com/gwpop/gwdet/internal/waveform"
)

// Config holds every parameter that affects the cached surfaces. All of
// them feed the cache fingerprints except Workers, Parallel and Seed, which
// change how values are computed but never what they are.
type Config struct {
	Approximant  string
	PSD          string
	FLow         float64
	DeltaF       float64
	SNRThreshold float64

	MassMin float64
	MassMax float64
	ZMin    float64
	ZMax    float64
	Grid1D  int // per-axis grid resolution

	MCSamples int // projection Monte Carlo sample count
	MCBins    int // projection histogram bin count
	Seed      int64

	CacheDir string
	Workers  int // 0 = all available processing units
	Parallel bool
}

// DefaultConfig mirrors the conventional analysis setup: an IMRPhenomD-class
// source against the aLIGO zero-detuning high-power design curve, masses
// 1-100 Msun and redshifts 1e-4-2.2 on a 200-point-per-axis grid.
func DefaultConfig() Config {
	return Config{
		Approximant:  "IMRPhenomD",
		PSD:          "aLIGOZeroDetHighPower",
		FLow:         10,
		DeltaF:       1.0 / 40.0,
		SNRThreshold: 8,
		MassMin:      1,
		MassMax:      100,
		ZMin:         1e-4,
		ZMax:         2.2,
		Grid1D:       200,
		MCSamples:    projection.DefaultSamples,
		MCBins:       projection.DefaultBins,
		CacheDir:     "gwdet_data",
		Parallel:     true,
	}
}

// Validate reports the first configuration error.
func (c Config) Validate() error {
	switch {
	case c.MassMin <= 0 || c.MassMax <= c.MassMin:
		return fmt.Errorf("detect: invalid mass bounds [%g, %g]", c.MassMin, c.MassMax)
	case c.ZMin <= 0 || c.ZMax <= c.ZMin:
		return fmt.Errorf("detect: invalid redshift bounds [%g, %g]", c.ZMin, c.ZMax)
	case c.Grid1D < 2:
		return fmt.Errorf("detect: grid resolution %d too small", c.Grid1D)
	case c.SNRThreshold <= 0:
		return fmt.Errorf("detect: non-positive SNR threshold %g", c.SNRThreshold)
	case c.FLow <= 0 || c.DeltaF <= 0:
		return fmt.Errorf("detect: invalid frequency parameters flow=%g deltaf=%g", c.FLow, c.DeltaF)
	case c.CacheDir == "":
		return fmt.Errorf("detect: cache directory not set")
	}
	return nil
}

// snrFingerprint covers every parameter affecting the SNR surface.
func (c Config) snrFingerprint() string {
	return gridcache.Fingerprint("snr",
		gridcache.Param{Name: "approximant", Value: c.Approximant},
		gridcache.Param{Name: "psd", Value: c.PSD},
		gridcache.Param{Name: "flow", Value: c.FLow},
		gridcache.Param{Name: "deltaf", Value: c.DeltaF},
		gridcache.Param{Name: "massmin", Value: c.MassMin},
		gridcache.Param{Name: "massmax", Value: c.MassMax},
		gridcache.Param{Name: "zmin", Value: c.ZMin},
		gridcache.Param{Name: "zmax", Value: c.ZMax},
		gridcache.Param{Name: "grid1d", Value: c.Grid1D},
	)
}

// detectionFingerprint additionally covers the threshold and the projection
// distribution parameters the detection volume consumes.
func (c Config) detectionFingerprint() string {
	return gridcache.Fingerprint("Pw",
		gridcache.Param{Name: "approximant", Value: c.Approximant},
		gridcache.Param{Name: "psd", Value: c.PSD},
		gridcache.Param{Name: "flow", Value: c.FLow},
		gridcache.Param{Name: "deltaf", Value: c.DeltaF},
		gridcache.Param{Name: "snrthreshold", Value: c.SNRThreshold},
		gridcache.Param{Name: "massmin", Value: c.MassMin},
		gridcache.Param{Name: "massmax", Value: c.MassMax},
		gridcache.Param{Name: "zmin", Value: c.ZMin},
		gridcache.Param{Name: "zmax", Value: c.ZMax},
		gridcache.Param{Name: "grid1d", Value: c.Grid1D},
		gridcache.Param{Name: "mcsamples", Value: c.MCSamples},
		gridcache.Param{Name: "mcbins", Value: c.MCBins},
	)
}

// Pipeline is the lazily-built detection-probability estimator. Construction
// is cheap; the first query triggers cache-hit-or-build of the projection
// distribution, the SNR surface and the detection volume, in that order.
// Once built, the wrapped interpolants are immutable and reused for the
// pipeline's lifetime.
type Pipeline struct {
	cfg      Config
	provider waveform.Provider
	distance cosmo.Provider
	fsys     fsutil.FileSystem
	cache    *gridcache.Cache
	catalog  *catalog.Catalog
	session  string

	mu      sync.Mutex
	ev      *parallel.Evaluator
	proj    *projection.Distribution
	snrGrid *gridcache.Interpolant
	detGrid *gridcache.Interpolant
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithProvider sets the waveform/SNR provider. Pass waveform.Unavailable{}
// to model an absent waveform stack.
func WithProvider(p waveform.Provider) Option {
	return func(pl *Pipeline) { pl.provider = p }
}

// WithDistance replaces the luminosity-distance provider.
func WithDistance(d cosmo.Provider) Option {
	return func(pl *Pipeline) { pl.distance = d }
}

// WithFileSystem replaces the cache filesystem (tests use the in-memory
// implementation).
func WithFileSystem(fsys fsutil.FileSystem) Option {
	return func(pl *Pipeline) { pl.fsys = fsys }
}

// WithCatalog attaches a build catalog; every completed build is recorded.
func WithCatalog(c *catalog.Catalog) Option {
	return func(pl *Pipeline) { pl.catalog = c }
}

// New creates a Pipeline. The waveform provider defaults to the built-in
// Newtonian model; the distance provider to the Planck15 cosmology.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:      cfg,
		provider: waveform.Newtonian{},
		distance: cosmo.LuminosityDistance,
		fsys:     fsutil.OSFileSystem{},
		session:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.provider == nil {
		p.provider = waveform.Unavailable{}
	}
	p.cache = gridcache.New(cfg.CacheDir, p.fsys)
	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// evaluator returns the batch evaluator for this build session, creating it
// on first use. It is shared between the SNR-grid and detection-grid builds.
func (p *Pipeline) evaluator() *parallel.Evaluator {
	if p.ev == nil {
		workers := 1
		if p.cfg.Parallel {
			workers = p.cfg.Workers
			if workers <= 0 {
				workers = runtime.NumCPU()
			}
		}
		p.ev = parallel.NewEvaluator(workers)
	}
	return p.ev
}

// record inserts a catalog row for a completed build. Catalog failures are
// reported to the caller: the artifact exists either way, but silent
// bookkeeping loss would defeat the catalog's purpose.
func (p *Pipeline) record(kind, fingerprint string, points int, start time.Time) error {
	if p.catalog == nil {
		return nil
	}
	return p.catalog.RecordBuild(catalog.BuildRecord{
		SessionID:   p.session,
		Kind:        kind,
		Fingerprint: fingerprint,
		Points:      points,
		Workers:     p.evaluator().Workers,
		BuiltAt:     start,
		Duration:    time.Since(start),
		Artifact:    p.cache.Path(fingerprint),
	})
}

// ProjectionDistribution returns the orientation-projection survival
// function, building or loading it on first use. It is usable even when the
// waveform provider is absent.
func (p *Pipeline) ProjectionDistribution() (*projection.Distribution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.projectionLocked()
}

func (p *Pipeline) projectionLocked() (*projection.Distribution, error) {
	if p.proj != nil {
		return p.proj, nil
	}
	cfg := projection.Config{Samples: p.cfg.MCSamples, Bins: p.cfg.MCBins, Seed: p.cfg.Seed}
	start := time.Now()
	d, built, err := projection.Open(cfg, p.cfg.CacheDir, p.fsys)
	if err != nil {
		return nil, err
	}
	if built {
		if err := p.record("projection", cfg.Filename(), cfg.Samples, start); err != nil {
			return nil, err
		}
	}
	p.proj = d
	return d, nil
}

// snrInterpolant returns the distance-normalized SNR surface over redshifted
// masses, building or loading it on first use. Every grid point is the
// provider's SNR at a reference distance of 1 Mpc, so a lookup can later be
// rescaled by any true luminosity distance without recomputation.
func (p *Pipeline) snrInterpolant(ctx context.Context) (*gridcache.Interpolant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snrInterpolantLocked(ctx)
}

func (p *Pipeline) snrInterpolantLocked(ctx context.Context) (*gridcache.Interpolant, error) {
	if p.snrGrid != nil {
		return p.snrGrid, nil
	}

	lo := p.cfg.MassMin * (1 + p.cfg.ZMin)
	hi := p.cfg.MassMax * (1 + p.cfg.ZMax)
	axis := gridcache.Linspace(lo, hi, p.cfg.Grid1D)
	grid, err := gridcache.NewGrid(axis, axis)
	if err != nil {
		return nil, err
	}

	fn := func(in []float64) (float64, error) {
		return p.provider.SNR(p.cfg.Approximant, in[0], in[1], 1, p.cfg.DeltaF, p.cfg.FLow, p.cfg.PSD)
	}

	fingerprint := p.cfg.snrFingerprint()
	start := time.Now()
	it, built, err := p.cache.Build(ctx, fingerprint, grid, fn, p.evaluator())
	if err != nil {
		return nil, err
	}
	if built {
		if err := p.record("snr_grid", fingerprint, grid.Size(), start); err != nil {
			return nil, err
		}
	}
	p.snrGrid = it
	return it, nil
}

// detectionInterpolant returns the detection-probability volume over
// (m1, m2, z), building or loading it on first use.
func (p *Pipeline) detectionInterpolant(ctx context.Context) (*gridcache.Interpolant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.detGrid != nil {
		return p.detGrid, nil
	}

	snrGrid, err := p.snrInterpolantLocked(ctx)
	if err != nil {
		return nil, err
	}
	proj, err := p.projectionLocked()
	if err != nil {
		return nil, err
	}

	grid, err := gridcache.NewGrid(
		gridcache.Linspace(p.cfg.MassMin, p.cfg.MassMax, p.cfg.Grid1D),
		gridcache.Linspace(p.cfg.MassMin, p.cfg.MassMax, p.cfg.Grid1D),
		gridcache.Linspace(p.cfg.ZMin, p.cfg.ZMax, p.cfg.Grid1D),
	)
	if err != nil {
		return nil, err
	}

	threshold := p.cfg.SNRThreshold
	fn := func(in []float64) (float64, error) {
		m1, m2, z := in[0], in[1], in[2]
		ld := p.distance(z)
		snr := snrGrid.Eval([]float64{m1 * (1 + z), m2 * (1 + z)}) / ld
		if snr <= 0 {
			// Boundary extrapolation can dip below zero; physically the
			// signal is undetectable there.
			return 0, nil
		}
		return proj.Eval(threshold / snr), nil
	}

	fingerprint := p.cfg.detectionFingerprint()
	start := time.Now()
	it, built, err := p.cache.Build(ctx, fingerprint, grid, fn, p.evaluator())
	if err != nil {
		return nil, err
	}
	if built {
		if err := p.record("detection_grid", fingerprint, grid.Size(), start); err != nil {
			return nil, err
		}
	}
	p.detGrid = it
	return it, nil
}

// Build forces construction (or cache load) of all three artifacts.
func (p *Pipeline) Build(ctx context.Context) error {
	_, err := p.detectionInterpolant(ctx)
	return err
}

// Eval returns the detection probability for one source via trilinear lookup
// in the cached volume. Unphysical inputs are not validated; they yield
// extrapolated values per the interpolant's non-raising policy.
func (p *Pipeline) Eval(ctx context.Context, m1, m2, z float64) (float64, error) {
	it, err := p.detectionInterpolant(ctx)
	if err != nil {
		return 0, err
	}
	return it.Eval([]float64{m1, m2, z}), nil
}

// EvalBatch evaluates the detection probability for aligned slices of
// sources.
func (p *Pipeline) EvalBatch(ctx context.Context, m1s, m2s, zs []float64) ([]float64, error) {
	if len(m1s) != len(m2s) || len(m1s) != len(zs) {
		return nil, fmt.Errorf("detect: mismatched batch lengths %d, %d, %d", len(m1s), len(m2s), len(zs))
	}
	it, err := p.detectionInterpolant(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(m1s))
	for i := range m1s {
		out[i] = it.Eval([]float64{m1s[i], m2s[i], zs[i]})
	}
	return out, nil
}

// SNR returns the provider's optimally-oriented SNR for a source at its true
// luminosity distance, bypassing the grids. As expensive as one waveform
// evaluation.
func (p *Pipeline) SNR(m1, m2, z float64) (float64, error) {
	ld := p.distance(z)
	return p.provider.SNR(p.cfg.Approximant, m1*(1+z), m2*(1+z), ld, p.cfg.DeltaF, p.cfg.FLow, p.cfg.PSD)
}

// Compute is the exact, non-interpolated oracle: a direct waveform
// evaluation at the true distance followed by the survival-function lookup.
// Intended for accuracy validation of Eval, never for bulk queries.
func (p *Pipeline) Compute(ctx context.Context, m1, m2, z float64) (float64, error) {
	snr, err := p.SNR(m1, m2, z)
	if err != nil {
		return 0, err
	}
	proj, err := p.ProjectionDistribution()
	if err != nil {
		return 0, err
	}
	if snr <= 0 {
		return 0, nil
	}
	return proj.Eval(p.cfg.SNRThreshold / snr), nil
}
