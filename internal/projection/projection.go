// Package projection models the geometric projection factor w relating an
// optimally oriented source's SNR to the SNR observed for a random
// source/detector orientation. The factor is estimated by Monte Carlo
// integration over the orientation angles and exposed as an empirical
// survival function S(w) = P(projection >= w).
package projection

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gwpop/gwdet/internal/fsutil"
	"github.com/gwpop/gwdet/internal/monitoring"
)

// Defaults for the Monte Carlo integration.
const (
	DefaultSamples = 100_000_000
	DefaultBins    = 100_000
)

// Config controls the Monte Carlo integration. Samples and Bins are part of
// the cache fingerprint; Seed is not (it only matters for reproducible
// tests and never changes the distribution the samples are drawn from).
type Config struct {
	Samples int
	Bins    int
	Seed    int64
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Samples <= 0 {
		c.Samples = DefaultSamples
	}
	if c.Bins <= 0 {
		c.Bins = DefaultBins
	}
	return c
}

// Filename returns the deterministic cache artifact name for this
// configuration. Any parameter that affects the persisted values must appear
// here.
func (c Config) Filename() string {
	c = c.withDefaults()
	return fmt.Sprintf("pdet_samples_%d_bins_%d.gob.gz", c.Samples, c.Bins)
}

// Sample draws n i.i.d. orientation tuples and returns the projection factor
// for each. Polar angles are drawn as arccos of a uniform variate on [-1,1],
// azimuthal angles uniformly on [-pi,pi]. Every returned value lies in
// [0, 1].
func Sample(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		theta := math.Acos(2*rng.Float64() - 1)
		phi := math.Pi * (2*rng.Float64() - 1)
		psi := math.Pi * (2*rng.Float64() - 1)
		iota := math.Acos(2*rng.Float64() - 1)

		out[i] = projectionFactor(theta, phi, psi, iota)
	}
	return out
}

// projectionFactor combines the interferometer antenna patterns at the given
// angles into the projection factor
// w = sqrt( F+^2 (1+cos^2 i)^2 / 4 + Fx^2 cos^2 i ).
func projectionFactor(theta, phi, psi, iota float64) float64 {
	cosTheta := math.Cos(theta)
	cos2Phi, sin2Phi := math.Cos(2*phi), math.Sin(2*phi)
	cos2Psi, sin2Psi := math.Cos(2*psi), math.Sin(2*psi)

	fPlus := 0.5*(1+cosTheta*cosTheta)*cos2Phi*cos2Psi - cosTheta*sin2Phi*sin2Psi
	fCross := 0.5*(1+cosTheta*cosTheta)*cos2Phi*sin2Psi + cosTheta*sin2Phi*cos2Psi

	cosIota := math.Cos(iota)
	plusTerm := 1 + cosIota*cosIota
	return math.Sqrt(fPlus*fPlus*plusTerm*plusTerm/4 + fCross*fCross*cosIota*cosIota)
}

// Distribution is the empirical survival function of the projection factor.
// Immutable once built or loaded.
type Distribution struct {
	samples  int
	bins     int
	edges    []float64 // bin edges, strictly increasing, len bins+1
	survival []float64 // S at each edge, non-increasing, len bins+1
}

// New builds the distribution in memory: draws cfg.Samples projection
// factors, bins them into cfg.Bins equal-width bins over the observed range,
// and derives the survival function at the bin edges.
func New(cfg Config) (*Distribution, error) {
	cfg = cfg.withDefaults()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	samples := Sample(rng, cfg.Samples)
	sort.Float64s(samples)

	min, max := samples[0], samples[len(samples)-1]
	if !(max > min) {
		return nil, fmt.Errorf("projection: degenerate sample range [%g, %g]", min, max)
	}

	edges := floats.Span(make([]float64, cfg.Bins+1), min, max)
	// The top sample sits exactly on the last divider; nudge it open so the
	// histogram accepts it.
	edges[len(edges)-1] = math.Nextafter(max, math.Inf(1))

	counts := stat.Histogram(nil, edges, samples, nil)

	survival := make([]float64, cfg.Bins+1)
	total := float64(len(samples))
	cum := 0.0
	survival[0] = 1
	for i, c := range counts {
		cum += c
		survival[i+1] = 1 - cum/total
	}
	// Exact endpoints regardless of floating error in the cumulative sum.
	survival[cfg.Bins] = 0

	return &Distribution{
		samples:  cfg.Samples,
		bins:     cfg.Bins,
		edges:    edges,
		survival: survival,
	}, nil
}

// Open returns the distribution for cfg, loading the cache artifact from dir
// when present and otherwise building it in full and persisting it. The
// returned flag reports whether a Monte Carlo build was performed.
func Open(cfg Config, dir string, fsys fsutil.FileSystem) (*Distribution, bool, error) {
	cfg = cfg.withDefaults()
	path := dir + "/" + cfg.Filename()

	if fsys.Exists(path) {
		blob, err := fsys.ReadFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("projection: read cache: %w", err)
		}
		d, err := deserialize(blob)
		if err != nil {
			return nil, false, fmt.Errorf("projection: load %s: %w", path, err)
		}
		return d, false, nil
	}

	monitoring.Logf("[projection] interpolating P(w) with %d samples, %d bins", cfg.Samples, cfg.Bins)
	d, err := New(cfg)
	if err != nil {
		return nil, false, err
	}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("projection: create cache dir: %w", err)
	}
	blob, err := d.serialize()
	if err != nil {
		return nil, false, fmt.Errorf("projection: serialize: %w", err)
	}
	if err := fsys.WriteFile(path, blob, 0o644); err != nil {
		return nil, false, fmt.Errorf("projection: write cache: %w", err)
	}
	monitoring.Logf("[projection] stored %s", path)
	return d, true, nil
}

// Eval returns S(w). Out-of-range queries saturate: S(w) = 1 at or below the
// minimum observed sample and 0 at or above the maximum. NaN and +Inf
// (e.g. threshold divided by a vanishing SNR) map to 0.
func (d *Distribution) Eval(w float64) float64 {
	if math.IsNaN(w) {
		return 0
	}
	if w <= d.edges[0] {
		return 1
	}
	last := len(d.edges) - 1
	if w >= d.edges[last] {
		return 0
	}

	// Index of the first edge > w; w lies in [edges[j-1], edges[j]).
	j := sort.SearchFloat64s(d.edges, w)
	if d.edges[j] == w {
		return d.survival[j]
	}
	lo, hi := d.edges[j-1], d.edges[j]
	t := (w - lo) / (hi - lo)
	return d.survival[j-1] + t*(d.survival[j]-d.survival[j-1])
}

// EvalBatch evaluates S at every point of ws.
func (d *Distribution) EvalBatch(ws []float64) []float64 {
	out := make([]float64, len(ws))
	for i, w := range ws {
		out[i] = d.Eval(w)
	}
	return out
}

// Samples reports the Monte Carlo sample count the distribution was built
// with.
func (d *Distribution) Samples() int { return d.samples }

// Bins reports the histogram bin count the distribution was built with.
func (d *Distribution) Bins() int { return d.bins }
