// Package pipeline provides the stage contract and the dependency-ordered
// runner that sequences concrete stages, handing intermediate results
// between them through the shared store.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haruki/slidegen/internal/deck"
)

// Spec declares a stage's identity and input/output key contract.
type Spec struct {
	// Name is the stage ID, also recorded as the writer of its output key.
	Name string
	// Inputs are the store keys the stage requires. Each must be produced
	// by exactly one other stage or pre-seeded in the store.
	Inputs []string
	// Output is the single store key the stage owns and writes.
	Output string
	// NonOptional stages fail the whole run on error instead of being
	// substituted with fallback output.
	NonOptional bool
}

// Options is the caller-supplied parameter set handed to every stage.
type Options struct {
	Request deck.Request
	// Offline forces tier-2 degradation: stages must not reach external
	// services and synthesize content locally instead.
	Offline bool
	Verbose bool
	// TemplateBias weights template selection; supplied by the
	// orchestrator tier when active.
	TemplateBias map[string]float64
}

// Inputs maps declared input keys to their serialized store values.
type Inputs map[string]json.RawMessage

// Decode unmarshals the value stored under key into out.
func (in Inputs) Decode(key string, out any) error {
	raw, ok := in[key]
	if !ok {
		return fmt.Errorf("pipeline: input key %q not provided", key)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("pipeline: failed to decode input %q: %w", key, err)
	}
	return nil
}

// Output is what a stage run produces.
type Output struct {
	// Value is written to the stage's output key.
	Value any
	// Degraded marks output produced through an offline or cached path
	// rather than the primary external collaborator.
	Degraded bool
	// Reason explains the degradation.
	Reason string
}

// Stage is a uniform unit of work with a declared input/output contract.
type Stage interface {
	Spec() Spec
	// Run executes the stage. Returning an error triggers fallback
	// substitution (or run failure for non-optional stages).
	Run(ctx context.Context, in Inputs, opts Options) (*Output, error)
	// Fallback produces a minimal, structurally valid placeholder output
	// so downstream stages never receive a missing dependency.
	Fallback(in Inputs, opts Options) (any, error)
}

// Status classifies a stage's result.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Result records the outcome of one stage execution.
type Result struct {
	Stage     string `json:"stage"`
	Status    Status `json:"status"`
	OutputKey string `json:"output_key"`
	Error     string `json:"error,omitempty"`
	Reason    string `json:"reason,omitempty"`
	// Substituted is true when the stage's primary run failed and its
	// fallback output was written in place of the real result.
	Substituted bool `json:"substituted,omitempty"`
}

// ProgressEvent reports a stage lifecycle change to the caller.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ProgressCallback is invoked as stages start and finish.
type ProgressCallback func(event ProgressEvent)
