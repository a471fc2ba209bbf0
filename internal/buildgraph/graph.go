// Package buildgraph implements the orchestrator: the step types
// ExtractOverloads, DeviceObject, and OffloadLibrary, their ordering,
// option propagation, and cache-directory derivation (spec §2, §5,
// §6). Scheduling is grounded on google-kati's DepGraph/Executor split
// (depgraph.go, worker.go, exec.go) — a DAG of nodes visited so that a
// node's dependencies always finish first — generalized here from
// kati's hand-rolled job/worker/jobQueue goroutine pool to
// golang.org/x/sync/errgroup, which is a better fit for this driver's
// small, statically-known step graph (at most a few dozen steps per
// build, versus kati's potentially enormous rule graphs).
package buildgraph

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// Step is one node in the build graph. Make must be idempotent and
// re-entrancy-safe: per spec §5, the only shared mutable state between
// steps is whatever a step publishes in its own result fields after
// Make returns, read by dependents only afterward.
type Step interface {
	// ID uniquely identifies this step for memoization and logging.
	ID() string
	// Deps lists the steps that must complete before Make runs.
	Deps() []Step
	// Make executes the step. It must happen-before any dependent
	// step's Make call (spec §5's ordering guarantee) and must respect
	// ctx cancellation at subprocess/file-write boundaries.
	Make(ctx context.Context) error
}

// Graph runs a set of steps to completion, respecting dependency order
// and running independent branches concurrently.
type Graph struct {
	mu     sync.Mutex
	result map[string]*stepResult
}

type stepResult struct {
	done chan struct{}
	err  error
}

// NewGraph returns an empty, reusable build graph. A single Graph may
// be Run multiple times; completed steps are memoized for the Graph's
// lifetime so a step already built by an earlier Run call is not
// re-made.
func NewGraph() *Graph {
	return &Graph{result: make(map[string]*stepResult)}
}

// Run executes every step in steps, and transitively every step they
// depend on, then waits for all of them to finish. It returns the
// first error encountered, if any; sibling branches that were already
// in flight are allowed to finish (or observe ctx cancellation) before
// Run returns, matching errgroup.WithContext's cancellation contract.
func (g *Graph) Run(ctx context.Context, steps ...Step) error {
	eg, egCtx := errgroup.WithContext(ctx)
	for _, s := range steps {
		s := s
		eg.Go(func() error {
			return g.make(egCtx, s)
		})
	}
	return eg.Wait()
}

func (g *Graph) make(ctx context.Context, s Step) error {
	g.mu.Lock()
	if existing, ok := g.result[s.ID()]; ok {
		g.mu.Unlock()
		<-existing.done
		return existing.err
	}
	res := &stepResult{done: make(chan struct{})}
	g.result[s.ID()] = res
	g.mu.Unlock()

	err := g.runDepsThenMake(ctx, s)

	res.err = err
	close(res.done)
	return err
}

func (g *Graph) runDepsThenMake(ctx context.Context, s Step) error {
	deps := s.Deps()
	if len(deps) > 0 {
		eg, egCtx := errgroup.WithContext(ctx)
		for _, d := range deps {
			d := d
			eg.Go(func() error {
				return g.make(egCtx, d)
			})
		}
		if err := eg.Wait(); err != nil {
			return fmt.Errorf("step %s: dependency failed: %w", s.ID(), err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	glog.V(1).Infof("buildgraph: running step %s", s.ID())
	if err := s.Make(ctx); err != nil {
		glog.V(1).Infof("buildgraph: step %s failed: %v", s.ID(), err)
		return err
	}
	glog.V(1).Infof("buildgraph: step %s done", s.ID())
	return nil
}
