package gridcache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gwpop/gwdet/internal/fsutil"
	"github.com/gwpop/gwdet/internal/monitoring"
	"github.com/gwpop/gwdet/internal/parallel"
)

// Param is one named configuration value contributing to a fingerprint.
type Param struct {
	Name  string
	Value interface{}
}

// Fingerprint deterministically encodes every parameter that affects a
// cached artifact's content. Two configurations produce the same fingerprint
// iff every parameter matches; any change to a computation-affecting
// parameter must be included here by the caller.
func Fingerprint(prefix string, params ...Param) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		b.WriteByte('_')
		b.WriteString(p.Name)
		b.WriteByte('_')
		b.WriteString(formatParam(p.Value))
	}
	return b.String()
}

func formatParam(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Cache builds grid interpolants with disk memoization. Artifacts are
// write-once/read-many files under Dir, named by fingerprint. Concurrent
// processes racing to build the same missing artifact are not protected
// against; the cache is safe only once an artifact exists.
type Cache struct {
	dir  string
	fsys fsutil.FileSystem
}

// New creates a cache rooted at dir. The directory is created on demand at
// first store.
func New(dir string, fsys fsutil.FileSystem) *Cache {
	return &Cache{dir: dir, fsys: fsys}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Path returns the artifact path for a fingerprint.
func (c *Cache) Path(fingerprint string) string {
	return c.dir + "/" + fingerprint + ".gob.gz"
}

// Build returns the interpolant for fingerprint. On a cache hit the artifact
// is loaded and the evaluation function is never called. On a miss every
// grid point is evaluated through ev, the interpolant is persisted, and the
// returned flag is true. A failed or interrupted build leaves no artifact;
// the next call restarts the full batch.
func (c *Cache) Build(ctx context.Context, fingerprint string, grid *Grid, fn parallel.Func, ev *parallel.Evaluator) (*Interpolant, bool, error) {
	path := c.Path(fingerprint)

	if c.fsys.Exists(path) {
		blob, err := c.fsys.ReadFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("gridcache: read %s: %w", path, err)
		}
		it, err := deserializeInterpolant(blob)
		if err != nil {
			return nil, false, fmt.Errorf("gridcache: load %s: %w", path, err)
		}
		return it, false, nil
	}

	monitoring.Logf("[gridcache] building %s: %d points over %d dimensions", fingerprint, grid.Size(), grid.Dims())
	start := time.Now()

	values, err := ev.Evaluate(ctx, fn, grid.Points())
	if err != nil {
		return nil, false, fmt.Errorf("gridcache: build %s: %w", fingerprint, err)
	}

	it, err := NewInterpolant(grid, values)
	if err != nil {
		return nil, false, err
	}

	if err := c.fsys.MkdirAll(c.dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("gridcache: create cache dir: %w", err)
	}
	blob, err := serializeInterpolant(it)
	if err != nil {
		return nil, false, fmt.Errorf("gridcache: serialize %s: %w", fingerprint, err)
	}
	if err := c.fsys.WriteFile(path, blob, 0o644); err != nil {
		return nil, false, fmt.Errorf("gridcache: write %s: %w", path, err)
	}

	monitoring.Logf("[gridcache] stored %s (%d points in %s)", path, grid.Size(), time.Since(start).Round(time.Millisecond))
	return it, true, nil
}
