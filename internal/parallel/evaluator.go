// Package parallel executes a pure scalar-valued function over a fixed batch
// of independent inputs, returning outputs aligned to input order regardless
// of dispatch order. It backs the grid builds, where per-point evaluations
// are embarrassingly parallel but wildly uneven in cost.
package parallel

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gwpop/gwdet/internal/monitoring"
)

// Func is a pure scalar-valued function of one input point.
type Func func(in []float64) (float64, error)

// Task pairs an input point with its position in the original batch so the
// result can be written back to the right slot no matter which worker
// completes it.
type Task struct {
	Index int
	Input []float64
}

// DefaultPollInterval is how often a running batch reports its remaining
// task count.
const DefaultPollInterval = time.Second

// Evaluator dispatches batches to a bounded worker pool. Workers <= 1 runs
// the batch sequentially in-process. One Evaluator is created per build
// session and reused across consecutive batches.
type Evaluator struct {
	Workers      int
	PollInterval time.Duration
}

// NewEvaluator returns an Evaluator with the given worker count and the
// default progress poll interval.
func NewEvaluator(workers int) *Evaluator {
	return &Evaluator{Workers: workers, PollInterval: DefaultPollInterval}
}

// Evaluate applies fn to every input and returns outputs aligned to input
// order: outputs[i] == fn(inputs[i]). Any single task failure aborts the
// whole batch; there is no partial-result checkpoint.
func (e *Evaluator) Evaluate(ctx context.Context, fn Func, inputs [][]float64) ([]float64, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if e.Workers <= 1 {
		return e.evaluateSequential(ctx, fn, inputs)
	}
	return e.evaluateParallel(ctx, fn, inputs)
}

func (e *Evaluator) evaluateSequential(ctx context.Context, fn Func, inputs [][]float64) ([]float64, error) {
	out := make([]float64, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := fn(in)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (e *Evaluator) evaluateParallel(ctx context.Context, fn Func, inputs [][]float64) ([]float64, error) {
	out := make([]float64, len(inputs))
	total := len(inputs)

	// Shuffle the dispatch order so computationally skewed inputs spread
	// across workers. The index tag keeps results aligned.
	perm := rand.Perm(total)

	var completed atomic.Int64
	tasks := make(chan Task)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < e.Workers; w++ {
		g.Go(func() error {
			for t := range tasks {
				v, err := fn(t.Input)
				if err != nil {
					return fmt.Errorf("task %d: %w", t.Index, err)
				}
				out[t.Index] = v
				completed.Add(1)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(tasks)
		for _, i := range perm {
			select {
			case tasks <- Task{Index: i, Input: inputs[i]}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	// Progress poller: informational only, never alters results.
	pollDone := make(chan struct{})
	pollStopped := make(chan struct{})
	go func() {
		defer close(pollStopped)
		interval := e.PollInterval
		if interval <= 0 {
			interval = DefaultPollInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-pollDone:
				return
			case <-ticker.C:
				done := completed.Load()
				monitoring.Logf("[parallel] waiting for %d/%d tasks", int64(total)-done, total)
			}
		}
	}()

	err := g.Wait()
	close(pollDone)
	<-pollStopped
	if err != nil {
		return nil, err
	}
	return out, nil
}
