// Command gwdet-compare produces accuracy plots for the cached surfaces.
//
// Modes:
//
//	pdet  plot the orientation-projection survival function, optionally
//	      against a two-column (w, survival) reference CSV
//	grid  scatter the interpolated detection probability against the exact
//	      per-source computation for randomly drawn sources, plus a
//	      residual histogram
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gwpop/gwdet/internal/detect"
)

func main() {
	mode := flag.String("mode", "pdet", "Mode: 'pdet' or 'grid'")
	output := flag.String("output", "", "Output PNG filename (defaults to <mode>-compare.png)")
	reference := flag.String("reference", "", "Two-column (w, survival) reference CSV for pdet mode")

	cacheDir := flag.String("cache", "gwdet_data", "Cache directory")
	grid1D := flag.Int("grid", 0, "Per-axis grid resolution (0 = default)")
	mcSamples := flag.Int("mc-samples", 0, "Monte Carlo samples (0 = default)")
	mcBins := flag.Int("mc-bins", 0, "Histogram bins (0 = default)")
	sources := flag.Int("sources", 200, "Number of random sources for grid mode")
	seed := flag.Int64("seed", 42, "Seed for the random source draw")

	flag.Parse()

	cfg := detect.DefaultConfig()
	cfg.CacheDir = *cacheDir
	if *grid1D > 0 {
		cfg.Grid1D = *grid1D
	}
	if *mcSamples > 0 {
		cfg.MCSamples = *mcSamples
	}
	if *mcBins > 0 {
		cfg.MCBins = *mcBins
	}

	pipeline, err := detect.New(cfg)
	if err != nil {
		log.Fatalf("Could not create pipeline: %v", err)
	}

	filename := *output
	if filename == "" {
		filename = *mode + "-compare.png"
	}

	switch *mode {
	case "pdet":
		comparePdet(pipeline, *reference, filename)
	case "grid":
		compareGrid(pipeline, cfg, *sources, *seed, filename)
	default:
		log.Fatalf("Invalid mode: %s (must be pdet or grid)", *mode)
	}
	log.Printf("Wrote %s", filename)
}

// comparePdet plots the survival function on a dense w grid and overlays a
// reference curve when one is given.
func comparePdet(pipeline *detect.Pipeline, reference, filename string) {
	d, err := pipeline.ProjectionDistribution()
	if err != nil {
		log.Fatalf("Could not build projection distribution: %v", err)
	}

	const n = 1000
	pts := make(plotter.XYs, n+1)
	for i := 0; i <= n; i++ {
		w := float64(i) / n
		pts[i].X = w
		pts[i].Y = d.Eval(w)
	}

	p := plot.New()
	p.Title.Text = "Projection-factor survival function"
	p.X.Label.Text = "w"
	p.Y.Label.Text = "P(projection > w)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		log.Fatalf("Could not build line plot: %v", err)
	}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("MC, %d samples", d.Samples()), line)

	if reference != "" {
		ref, err := readReference(reference)
		if err != nil {
			log.Fatalf("Could not read reference %s: %v", reference, err)
		}
		refLine, err := plotter.NewLine(ref)
		if err != nil {
			log.Fatalf("Could not build reference plot: %v", err)
		}
		refLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(refLine)
		p.Legend.Add("reference", refLine)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		log.Fatalf("Could not save plot: %v", err)
	}
}

// compareGrid draws random sources across the configured parameter space and
// plots interpolated against exact probabilities, with a residual histogram
// alongside.
func compareGrid(pipeline *detect.Pipeline, cfg detect.Config, sources int, seed int64, filename string) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(seed))

	pts := make(plotter.XYs, 0, sources)
	residuals := make(plotter.Values, 0, sources)
	for i := 0; i < sources; i++ {
		m1 := cfg.MassMin + rng.Float64()*(cfg.MassMax-cfg.MassMin)
		m2 := cfg.MassMin + rng.Float64()*(m1-cfg.MassMin)
		z := cfg.ZMin + rng.Float64()*(cfg.ZMax-cfg.ZMin)

		interp, err := pipeline.Eval(ctx, m1, m2, z)
		if err != nil {
			log.Fatalf("Interpolated evaluation failed: %v", err)
		}
		exact, err := pipeline.Compute(ctx, m1, m2, z)
		if err != nil {
			log.Fatalf("Exact evaluation failed: %v", err)
		}
		pts = append(pts, plotter.XY{X: exact, Y: interp})
		residuals = append(residuals, interp-exact)
	}

	scatterPlot := plot.New()
	scatterPlot.Title.Text = "Interpolated vs exact detection probability"
	scatterPlot.X.Label.Text = "exact"
	scatterPlot.Y.Label.Text = "interpolated"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		log.Fatalf("Could not build scatter plot: %v", err)
	}
	scatterPlot.Add(scatter)

	diagonal, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		log.Fatalf("Could not build diagonal: %v", err)
	}
	scatterPlot.Add(diagonal)

	if err := scatterPlot.Save(6*vg.Inch, 6*vg.Inch, filename); err != nil {
		log.Fatalf("Could not save plot: %v", err)
	}

	histPlot := plot.New()
	histPlot.Title.Text = "Interpolation residuals"
	histPlot.X.Label.Text = "interpolated - exact"

	hist, err := plotter.NewHist(residuals, 40)
	if err != nil {
		log.Fatalf("Could not build histogram: %v", err)
	}
	histPlot.Add(hist)

	histFile := histFilename(filename)
	if err := histPlot.Save(6*vg.Inch, 4*vg.Inch, histFile); err != nil {
		log.Fatalf("Could not save histogram: %v", err)
	}
	log.Printf("Wrote %s", histFile)
}

func histFilename(filename string) string {
	ext := ".png"
	base := filename
	if n := len(filename) - len(ext); n > 0 && filename[n:] == ext {
		base = filename[:n]
	}
	return base + "-residuals" + ext
}

// readReference reads a two-column (w, survival) CSV, skipping a header row
// if present.
func readReference(filename string) (plotter.XYs, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	out := make(plotter.XYs, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: expected 2 columns, got %d", i+1, len(row))
		}
		x, errX := strconv.ParseFloat(row[0], 64)
		y, errY := strconv.ParseFloat(row[1], 64)
		if errX != nil || errY != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("row %d: non-numeric values", i+1)
		}
		out = append(out, plotter.XY{X: x, Y: y})
	}
	return out, nil
}
