// Package quality scores generated decks against a fixed, extensible set of
// metrics and classifies the result as pass, conditional pass, or fail.
package quality

import "github.com/haruki/slidegen/internal/deck"

// Metric names the quality dimensions evaluated per slide.
type Metric string

const (
	MetricRichness      Metric = "content_richness"
	MetricConsistency   Metric = "consistency"
	MetricAccuracy      Metric = "accuracy"
	MetricVisualBalance Metric = "visual_balance"
	MetricAccessibility Metric = "accessibility"
)

// AllMetrics is the full metric set in evaluation order.
var AllMetrics = []Metric{
	MetricRichness,
	MetricConsistency,
	MetricAccuracy,
	MetricVisualBalance,
	MetricAccessibility,
}

// Classification is the outcome of evaluating a deck.
type Classification string

const (
	ClassPass        Classification = "pass"
	ClassConditional Classification = "conditional_pass"
	ClassFail        Classification = "fail"
)

// Default evaluation parameters.
const (
	DefaultThreshold      = 70.0
	DefaultFailFraction   = 0.5
	DefaultFarBelowMargin = 15.0
	minBulletCount        = 3
	maxBulletCount        = 7
)

// Config tunes the evaluator. The zero value is usable; NewEvaluator fills
// in defaults.
type Config struct {
	// Threshold is the minimum acceptable slide score (0-100).
	Threshold float64
	// Density sets the expected content volume band for richness scoring.
	Density deck.Density
	// FocusMetrics narrows scoring to a subset; empty means all metrics.
	FocusMetrics []Metric
	// Weights optionally weights metrics in the per-slide mean. Metrics
	// absent from the map get weight 1. Ignored metrics (outside
	// FocusMetrics) are never averaged in.
	Weights map[Metric]float64
	// FailFraction: if more than this fraction of slides scores below
	// Threshold-FarBelowMargin, the deck fails outright even when the
	// aggregate clears the threshold.
	FailFraction float64
	// FarBelowMargin defines how far below Threshold a slide must score to
	// count toward FailFraction.
	FarBelowMargin float64
}

func (c Config) withDefaults() Config {
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Density == "" {
		c.Density = deck.DensityBalanced
	}
	if c.FailFraction == 0 {
		c.FailFraction = DefaultFailFraction
	}
	if c.FarBelowMargin == 0 {
		c.FarBelowMargin = DefaultFarBelowMargin
	}
	return c
}

// activeMetrics returns the metrics included in scoring.
func (c Config) activeMetrics() []Metric {
	if len(c.FocusMetrics) == 0 {
		return AllMetrics
	}
	return c.FocusMetrics
}
