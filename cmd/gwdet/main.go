// Command gwdet builds and queries the detection-probability surfaces.
//
// Modes:
//
//	build   build (or cache-load) all artifacts and exit
//	eval    interpolated detection probability for the given sources
//	exact   non-interpolated probability, one waveform evaluation per source
//	snr     optimally-oriented SNR at the true luminosity distance
//	pdet    orientation-projection survival function at the given w values
//	builds  list recorded cache builds from the catalog
//
// Sources are given as comma-separated lists of equal length, e.g.
//
//	gwdet -mode eval -m1 30,10 -m2 25,10 -z 0.1,0.05
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gwpop/gwdet/internal/catalog"
	"github.com/gwpop/gwdet/internal/config"
	"github.com/gwpop/gwdet/internal/detect"
)

// parseCSVFloatSlice parses a comma-separated list of floats
func parseCSVFloatSlice(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func main() {
	mode := flag.String("mode", "eval", "Mode: 'build', 'eval', 'exact', 'snr', 'pdet' or 'builds'")
	configPath := flag.String("config", "", "Optional JSON config file (flags override it)")
	catalogPath := flag.String("catalog", "", "Optional SQLite build-catalog path")
	output := flag.String("output", "", "Output CSV filename (defaults to stdout)")

	// Source parameters
	m1List := flag.String("m1", "", "Comma-separated primary masses in Msun")
	m2List := flag.String("m2", "", "Comma-separated secondary masses in Msun")
	zList := flag.String("z", "", "Comma-separated redshifts")
	wList := flag.String("w", "", "Comma-separated projection factors (pdet mode)")

	// Pipeline overrides
	cacheDir := flag.String("cache", "", "Cache directory")
	grid1D := flag.Int("grid", 0, "Per-axis grid resolution")
	threshold := flag.Float64("threshold", 0, "Detection SNR threshold")
	massMin := flag.Float64("mass-min", 0, "Lower mass bound in Msun")
	massMax := flag.Float64("mass-max", 0, "Upper mass bound in Msun")
	zMin := flag.Float64("z-min", 0, "Lower redshift bound")
	zMax := flag.Float64("z-max", 0, "Upper redshift bound")
	mcSamples := flag.Int("mc-samples", 0, "Monte Carlo samples for the projection distribution")
	mcBins := flag.Int("mc-bins", 0, "Histogram bins for the projection distribution")
	seed := flag.Int64("seed", 0, "Monte Carlo seed (0 = time-based)")
	workers := flag.Int("workers", 0, "Worker count for grid builds (0 = all CPUs)")
	sequential := flag.Bool("sequential", false, "Disable parallel grid builds")

	flag.Parse()

	cfg := detect.DefaultConfig()
	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Could not load config: %v", err)
		}
		cfg, err = fileCfg.Apply(cfg)
		if err != nil {
			log.Fatalf("Invalid config: %v", err)
		}
	}

	// Flags set on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cache":
			cfg.CacheDir = *cacheDir
		case "grid":
			cfg.Grid1D = *grid1D
		case "threshold":
			cfg.SNRThreshold = *threshold
		case "mass-min":
			cfg.MassMin = *massMin
		case "mass-max":
			cfg.MassMax = *massMax
		case "z-min":
			cfg.ZMin = *zMin
		case "z-max":
			cfg.ZMax = *zMax
		case "mc-samples":
			cfg.MCSamples = *mcSamples
		case "mc-bins":
			cfg.MCBins = *mcBins
		case "seed":
			cfg.Seed = *seed
		case "workers":
			cfg.Workers = *workers
		case "sequential":
			cfg.Parallel = !*sequential
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var opts []detect.Option
	var cat *catalog.Catalog
	if *catalogPath != "" {
		var err error
		cat, err = catalog.Open(*catalogPath)
		if err != nil {
			log.Fatalf("Could not open catalog %s: %v", *catalogPath, err)
		}
		defer cat.Close()
		opts = append(opts, detect.WithCatalog(cat))
	}

	if *mode == "builds" {
		if cat == nil {
			log.Fatalf("Mode 'builds' requires -catalog")
		}
		listBuilds(cat, *output)
		return
	}

	pipeline, err := detect.New(cfg, opts...)
	if err != nil {
		log.Fatalf("Could not create pipeline: %v", err)
	}
	ctx := context.Background()

	switch *mode {
	case "build":
		if err := pipeline.Build(ctx); err != nil {
			log.Fatalf("Build failed: %v", err)
		}
		log.Printf("Artifacts ready in %s", cfg.CacheDir)

	case "eval", "exact", "snr":
		m1s, m2s, zs := parseSources(*m1List, *m2List, *zList)
		w := openOutput(*output)
		defer w.Flush()
		evalSources(ctx, pipeline, *mode, m1s, m2s, zs, w)

	case "pdet":
		ws, err := parseCSVFloatSlice(*wList)
		if err != nil || len(ws) == 0 {
			log.Fatalf("Mode 'pdet' requires -w with at least one value")
		}
		d, err := pipeline.ProjectionDistribution()
		if err != nil {
			log.Fatalf("Could not build projection distribution: %v", err)
		}
		w := openOutput(*output)
		defer w.Flush()
		w.Write([]string{"w", "survival"})
		for i, s := range d.EvalBatch(ws) {
			w.Write([]string{
				strconv.FormatFloat(ws[i], 'g', -1, 64),
				strconv.FormatFloat(s, 'g', -1, 64),
			})
		}

	default:
		log.Fatalf("Invalid mode: %s (must be build, eval, exact, snr, pdet or builds)", *mode)
	}
}

func parseSources(m1List, m2List, zList string) (m1s, m2s, zs []float64) {
	m1s, err := parseCSVFloatSlice(m1List)
	if err != nil {
		log.Fatalf("Invalid -m1: %v", err)
	}
	m2s, err = parseCSVFloatSlice(m2List)
	if err != nil {
		log.Fatalf("Invalid -m2: %v", err)
	}
	zs, err = parseCSVFloatSlice(zList)
	if err != nil {
		log.Fatalf("Invalid -z: %v", err)
	}
	if len(m1s) == 0 || len(m1s) != len(m2s) || len(m1s) != len(zs) {
		log.Fatalf("-m1, -m2 and -z must be non-empty lists of equal length (got %d, %d, %d)",
			len(m1s), len(m2s), len(zs))
	}
	return m1s, m2s, zs
}

func evalSources(ctx context.Context, p *detect.Pipeline, mode string, m1s, m2s, zs []float64, w *csv.Writer) {
	column := map[string]string{"eval": "pdet", "exact": "pdet_exact", "snr": "snr"}[mode]
	w.Write([]string{"m1", "m2", "z", column})

	var values []float64
	switch mode {
	case "eval":
		batch, err := p.EvalBatch(ctx, m1s, m2s, zs)
		if err != nil {
			log.Fatalf("Evaluation failed: %v", err)
		}
		values = batch
	case "exact":
		for i := range m1s {
			v, err := p.Compute(ctx, m1s[i], m2s[i], zs[i])
			if err != nil {
				log.Fatalf("Exact evaluation failed for source %d: %v", i, err)
			}
			values = append(values, v)
		}
	case "snr":
		for i := range m1s {
			v, err := p.SNR(m1s[i], m2s[i], zs[i])
			if err != nil {
				log.Fatalf("SNR evaluation failed for source %d: %v", i, err)
			}
			values = append(values, v)
		}
	}

	for i, v := range values {
		w.Write([]string{
			strconv.FormatFloat(m1s[i], 'g', -1, 64),
			strconv.FormatFloat(m2s[i], 'g', -1, 64),
			strconv.FormatFloat(zs[i], 'g', -1, 64),
			strconv.FormatFloat(v, 'g', -1, 64),
		})
	}
}

func listBuilds(cat *catalog.Catalog, output string) {
	builds, err := cat.ListBuilds("")
	if err != nil {
		log.Fatalf("Could not list builds: %v", err)
	}
	w := openOutput(output)
	defer w.Flush()
	w.Write([]string{"build_id", "session_id", "kind", "fingerprint", "points", "workers", "built_at", "duration", "artifact"})
	for _, b := range builds {
		w.Write([]string{
			strconv.FormatInt(b.ID, 10),
			b.SessionID,
			b.Kind,
			b.Fingerprint,
			strconv.Itoa(b.Points),
			strconv.Itoa(b.Workers),
			b.BuiltAt.Format("2006-01-02T15:04:05"),
			b.Duration.String(),
			b.Artifact,
		})
	}
}

func openOutput(filename string) *csv.Writer {
	if filename == "" {
		return csv.NewWriter(os.Stdout)
	}
	f, err := os.Create(filename)
	if err != nil {
		log.Fatalf("Could not create output file %s: %v", filename, err)
	}
	return csv.NewWriter(f)
}
