package control

import (
	"context"
	"fmt"
	"time"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/quality"
	"github.com/haruki/slidegen/internal/refine"
	"github.com/haruki/slidegen/internal/store"
)

// FinalDeckKey is the store key holding the assembled deck the quality and
// refinement phases operate on.
const FinalDeckKey = "assembled.deck"

// RefinedDeckKey is the store key the coordinator writes the post-refinement
// deck to.
const RefinedDeckKey = "refined.deck"

// coordinatorWriter is the writer ID recorded for coordinator store writes.
const coordinatorWriter = "coordinator"

// RunParams is the full parameter set for one generation run. The monitored
// strategy uses it verbatim; the orchestrated strategy derives a dynamic
// variant first.
type RunParams struct {
	Request      deck.Request
	QualityCheck bool
	Quality      quality.Config
	Refine       refine.Options
	// Timeout bounds the whole run; zero means no limit.
	Timeout time.Duration
	Offline bool
	Verbose bool
	// TemplateBias weights theme selection (orchestrated tier only).
	TemplateBias map[string]float64
}

// RunReport is the final result of a run: the artifact, the quality report
// (when requested), per-stage results, refinement outcomes, and the tier the
// run ended on.
type RunReport struct {
	Deck         *deck.Deck        `json:"deck"`
	Quality      *quality.Report   `json:"quality,omitempty"`
	StageResults []pipeline.Result `json:"stage_results"`
	Outcomes     []refine.Outcome  `json:"refinement,omitempty"`
	Tier         Tier              `json:"-"`
	TierName     string            `json:"tier"`
	Transitions  []Transition      `json:"transitions,omitempty"`
}

// Degraded reports whether the run ended below its starting tier.
func (r *RunReport) Degraded() bool {
	return len(r.Transitions) > 0
}

// Coordinator is the baseline, always-available control path: given a fixed
// parameter set it drives the pipeline runner, the quality evaluator, and
// the refinement controller.
type Coordinator struct {
	store      *store.Store
	stages     []pipeline.Stage
	producer   refine.Producer
	onProgress pipeline.ProgressCallback
}

// NewCoordinator creates a monitoring coordinator over the given stage
// wiring. producer is the collaborator re-invoked for flagged slides.
func NewCoordinator(st *store.Store, stages []pipeline.Stage, producer refine.Producer, onProgress pipeline.ProgressCallback) *Coordinator {
	return &Coordinator{store: st, stages: stages, producer: producer, onProgress: onProgress}
}

// Run executes the pipeline and, when requested, the quality/refinement
// loop, recording tier downgrades in state.
func (c *Coordinator) Run(ctx context.Context, params RunParams, state *FallbackState) (*RunReport, error) {
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	runner, err := pipeline.NewRunner(c.store, c.stages, pipeline.WithProgress(c.onProgress))
	if err != nil {
		return nil, fmt.Errorf("pipeline wiring invalid: %w", err)
	}

	results, err := runner.Run(ctx, pipeline.Options{
		Request:      params.Request,
		Offline:      params.Offline,
		Verbose:      params.Verbose,
		TemplateBias: params.TemplateBias,
	})
	if err != nil {
		return nil, err
	}
	c.recordDegradations(results, state)

	var d deck.Deck
	if err := c.store.Get(FinalDeckKey, &d); err != nil {
		return nil, fmt.Errorf("pipeline completed without producing %q: %w", FinalDeckKey, err)
	}

	report := &RunReport{
		Deck:         &d,
		StageResults: results,
	}

	if params.QualityCheck {
		evaluator := quality.NewEvaluator(params.Quality)
		qreport := evaluator.Evaluate(&d)

		if len(qreport.Flagged) > 0 {
			controller := refine.NewController(evaluator, c.producer, params.Refine)
			refined, finalReport, outcomes, err := controller.Refine(ctx, &d, qreport)
			if err != nil {
				return nil, fmt.Errorf("refinement failed: %w", err)
			}
			report.Deck = refined
			report.Outcomes = outcomes
			qreport = finalReport
			if err := c.store.Set(RefinedDeckKey, refined, coordinatorWriter); err != nil {
				return nil, err
			}
		}
		report.Quality = qreport
	}

	report.Tier = state.Tier()
	report.TierName = report.Tier.String()
	report.Transitions = state.Transitions()
	return report, nil
}

// recordDegradations maps degraded stage results onto fallback tiers:
// offline-synthesized output is tier 2, placeholder substitution after a
// stage failure is tier 3.
func (c *Coordinator) recordDegradations(results []pipeline.Result, state *FallbackState) {
	for _, res := range results {
		if res.Status != pipeline.StatusDegraded {
			continue
		}
		if res.Substituted {
			state.Downgrade(TierDegradedStage, fmt.Sprintf("stage %s: %s", res.Stage, res.Error))
		} else {
			state.Downgrade(TierOffline, fmt.Sprintf("stage %s: %s", res.Stage, res.Reason))
		}
	}
}

// Monitored is the baseline control strategy: static caller-supplied
// parameters, no analysis pass.
type Monitored struct {
	coordinator *Coordinator
}

// NewMonitored wraps a coordinator in the baseline strategy.
func NewMonitored(c *Coordinator) *Monitored {
	return &Monitored{coordinator: c}
}

// Run executes the request at the monitored tier.
func (m *Monitored) Run(ctx context.Context, params RunParams) (*RunReport, error) {
	state := NewFallbackState(TierMonitored)
	return m.coordinator.Run(ctx, params, state)
}
