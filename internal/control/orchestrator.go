package control

import (
	"context"
	"fmt"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/quality"
	"github.com/haruki/slidegen/internal/refine"
)

// Analysis is the orchestrator's up-front assessment of a request, used to
// derive dynamic run parameters. Scales are 1-10.
type Analysis struct {
	Complexity       int        `json:"complexity"`
	Expertise        int        `json:"expertise"`
	VisualImportance int        `json:"visual_importance"`
	RecommendedDepth deck.Depth `json:"recommended_depth,omitempty"`
	RecommendedCount int        `json:"recommended_count,omitempty"`
	Considerations   []string   `json:"considerations,omitempty"`
}

// valid rejects indeterminate analyses (scales out of range or all zero).
func (a *Analysis) valid() bool {
	inRange := func(v int) bool { return v >= 1 && v <= 10 }
	return a != nil && inRange(a.Complexity) && inRange(a.Expertise) && inRange(a.VisualImportance)
}

// Analyzer estimates topical complexity, required expertise, and visual
// weight for a request. The production implementation asks the LLM; tests
// use a stub.
type Analyzer interface {
	Analyze(ctx context.Context, req deck.Request) (*Analysis, error)
}

// Orchestrated is the upgraded control strategy: an analysis pass derives
// dynamic parameters before delegating to the monitoring coordinator. If
// the analysis fails, control falls back to the monitored tier with the
// caller's static parameters; the run is never aborted for that reason.
type Orchestrated struct {
	analyzer    Analyzer
	coordinator *Coordinator
	verbose     bool
}

// NewOrchestrated builds the orchestrated strategy.
func NewOrchestrated(analyzer Analyzer, c *Coordinator, verbose bool) *Orchestrated {
	return &Orchestrated{analyzer: analyzer, coordinator: c, verbose: verbose}
}

// Run analyzes the request, derives dynamic parameters, and delegates to
// the coordinator; on analysis failure it records a tier-1 fallback and
// proceeds with the original static parameters.
func (o *Orchestrated) Run(ctx context.Context, params RunParams) (*RunReport, error) {
	state := NewFallbackState(TierOrchestrated)

	analysis, err := o.analyzer.Analyze(ctx, params.Request)
	switch {
	case err != nil:
		state.Downgrade(TierMonitored, fmt.Sprintf("orchestrator analysis failed: %v", err))
	case !analysis.valid():
		state.Downgrade(TierMonitored, "orchestrator analysis returned an indeterminate result")
	default:
		params = deriveParams(params, analysis)
		if o.verbose {
			fmt.Printf("[VERBOSE] Orchestrator analysis: complexity=%d expertise=%d visual=%d\n",
				analysis.Complexity, analysis.Expertise, analysis.VisualImportance)
		}
	}

	return o.coordinator.Run(ctx, params, state)
}

// deriveParams derives the dynamic parameter set the orchestrator injects
// as the coordinator's option set.
func deriveParams(params RunParams, a *Analysis) RunParams {
	// Complex or specialist topics earn an extra refinement iteration.
	if a.Complexity > 7 || a.Expertise > 7 {
		if params.Refine.MaxIterations <= 0 {
			params.Refine.MaxIterations = refine.DefaultMaxIterations
		}
		params.Refine.MaxIterations++
	}

	// Visually-led topics weight visual balance and accessibility higher
	// and bias template selection toward image-forward themes.
	if a.VisualImportance > 7 {
		if params.Quality.Weights == nil {
			params.Quality.Weights = make(map[quality.Metric]float64)
		}
		params.Quality.Weights[quality.MetricVisualBalance] = 2
		if params.TemplateBias == nil {
			params.TemplateBias = make(map[string]float64)
		}
		params.TemplateBias["modern"] += 2
	}

	// Adjust research depth toward the recommendation when the request's
	// depth is clearly mismatched to the topic's complexity.
	if a.RecommendedDepth != "" && a.RecommendedDepth != params.Request.Depth {
		switch {
		case a.Complexity > 7 && params.Request.Depth == deck.DepthLow:
			params.Request.Depth = deck.DepthMedium
		case a.Complexity < 4 && params.Request.Depth == deck.DepthHigh:
			params.Request.Depth = deck.DepthMedium
		}
	}

	// Small slide-count corrections only; never rewrite the request wholesale.
	if a.RecommendedCount > 0 {
		diff := a.RecommendedCount - params.Request.SlideCount
		if diff >= -2 && diff <= 2 {
			params.Request.SlideCount = a.RecommendedCount
		}
	}

	return params
}
