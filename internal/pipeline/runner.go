package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/haruki/slidegen/internal/store"
)

// Runner executes stages in dependency order. Stages with no data
// dependency on each other run concurrently; a downstream join waits for
// all of its inputs' store writes.
type Runner struct {
	store      *store.Store
	stages     []Stage
	producers  map[string]string // output key -> stage name
	onProgress ProgressCallback
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithProgress registers a progress callback.
func WithProgress(cb ProgressCallback) RunnerOption {
	return func(r *Runner) { r.onProgress = cb }
}

// NewRunner validates the stage wiring and returns a runner. Wiring errors
// (duplicate key writers, undeclared inputs, dependency cycles) are caller
// bugs and surface here rather than at run time.
func NewRunner(st *store.Store, stages []Stage, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{store: st, stages: stages, producers: make(map[string]string)}
	for _, opt := range opts {
		opt(r)
	}

	names := make(map[string]bool)
	for _, stage := range stages {
		spec := stage.Spec()
		if spec.Name == "" || spec.Output == "" {
			return nil, fmt.Errorf("pipeline: stage %q must declare a name and an output key", spec.Name)
		}
		if names[spec.Name] {
			return nil, fmt.Errorf("pipeline: duplicate stage name %q", spec.Name)
		}
		names[spec.Name] = true
		if owner, taken := r.producers[spec.Output]; taken {
			return nil, fmt.Errorf("pipeline: key %q written by both %q and %q", spec.Output, owner, spec.Name)
		}
		r.producers[spec.Output] = spec.Name
	}

	for _, stage := range stages {
		spec := stage.Spec()
		for _, input := range spec.Inputs {
			if _, produced := r.producers[input]; !produced && !st.Has(input) {
				return nil, fmt.Errorf("pipeline: stage %q requires input %q which no stage produces and the store does not hold", spec.Name, input)
			}
		}
	}

	if err := r.checkAcyclic(); err != nil {
		return nil, err
	}
	return r, nil
}

// checkAcyclic runs Kahn's algorithm over the stage dependency graph.
func (r *Runner) checkAcyclic() error {
	indegree := make(map[string]int, len(r.stages))
	dependents := make(map[string][]string)
	for _, stage := range r.stages {
		spec := stage.Spec()
		for _, input := range spec.Inputs {
			if producer, ok := r.producers[input]; ok {
				indegree[spec.Name]++
				dependents[producer] = append(dependents[producer], spec.Name)
			}
		}
	}

	var ready []string
	for _, stage := range r.stages {
		if indegree[stage.Spec().Name] == 0 {
			ready = append(ready, stage.Spec().Name)
		}
	}
	visited := 0
	for len(ready) > 0 {
		name := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		visited++
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	if visited != len(r.stages) {
		return fmt.Errorf("pipeline: dependency cycle detected among stages")
	}
	return nil
}

func (r *Runner) emit(stage, status, message string) {
	if r.onProgress != nil {
		r.onProgress(ProgressEvent{Stage: stage, Status: status, Message: message})
	}
}

// Run executes all stages. It returns one Result per stage. A non-optional
// stage failure aborts the run with an error; optional failures are
// absorbed by substituting the stage's fallback output.
func (r *Runner) Run(ctx context.Context, opts Options) ([]Result, error) {
	done := make(map[string]chan struct{}, len(r.stages))
	for _, stage := range r.stages {
		done[stage.Spec().Name] = make(chan struct{})
	}

	var mu sync.Mutex
	results := make([]Result, 0, len(r.stages))

	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range r.stages {
		g.Go(func() error {
			spec := stage.Spec()

			// Wait for every producing stage's store write.
			for _, input := range spec.Inputs {
				producer, ok := r.producers[input]
				if !ok {
					continue // pre-seeded key
				}
				select {
				case <-done[producer]:
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			result, err := r.runStage(gctx, stage, opts)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			if err != nil {
				return err
			}
			close(done[spec.Name])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		mu.Lock()
		defer mu.Unlock()
		return results, err
	}
	return results, nil
}

func (r *Runner) runStage(ctx context.Context, stage Stage, opts Options) (Result, error) {
	spec := stage.Spec()
	result := Result{Stage: spec.Name, OutputKey: spec.Output}

	inputs := make(Inputs, len(spec.Inputs))
	for _, key := range spec.Inputs {
		raw, _, err := r.store.GetRaw(key)
		if err != nil {
			result.Status = StatusFailed
			result.Error = err.Error()
			return result, fmt.Errorf("stage %s: missing input %q: %w", spec.Name, key, err)
		}
		inputs[key] = raw
	}

	r.emit(spec.Name, "start", "")
	output, err := stage.Run(ctx, inputs, opts)
	if err == nil {
		if setErr := r.store.Set(spec.Output, output.Value, spec.Name); setErr != nil {
			result.Status = StatusFailed
			result.Error = setErr.Error()
			return result, setErr
		}
		if output.Degraded {
			result.Status = StatusDegraded
			result.Reason = output.Reason
			r.emit(spec.Name, "degraded", output.Reason)
		} else {
			result.Status = StatusOK
			r.emit(spec.Name, "complete", "")
		}
		return result, nil
	}

	if spec.NonOptional {
		result.Status = StatusFailed
		result.Error = err.Error()
		r.emit(spec.Name, "failed", err.Error())
		return result, fmt.Errorf("non-optional stage %s failed: %w", spec.Name, err)
	}

	// Optional stage failed: substitute a schema-valid placeholder so
	// downstream stages never see a missing dependency.
	placeholder, fbErr := stage.Fallback(inputs, opts)
	if fbErr != nil {
		result.Status = StatusFailed
		result.Error = fbErr.Error()
		r.emit(spec.Name, "failed", fbErr.Error())
		return result, fmt.Errorf("stage %s failed (%v) and its fallback also failed: %w", spec.Name, err, fbErr)
	}
	if setErr := r.store.Set(spec.Output, placeholder, spec.Name); setErr != nil {
		result.Status = StatusFailed
		result.Error = setErr.Error()
		return result, setErr
	}
	result.Status = StatusDegraded
	result.Error = err.Error()
	result.Reason = "fallback output substituted"
	result.Substituted = true
	r.emit(spec.Name, "degraded", err.Error())
	return result, nil
}

// AnyDegraded reports whether any stage result is degraded.
func AnyDegraded(results []Result) bool {
	for _, res := range results {
		if res.Status == StatusDegraded {
			return true
		}
	}
	return false
}
