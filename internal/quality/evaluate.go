package quality

import (
	"fmt"
	"sort"
	"strings"

	"github.com/haruki/slidegen/internal/deck"
)

// SlideScore holds the per-metric and combined scores for one slide.
type SlideScore struct {
	SlideID  string             `json:"slide_id"`
	Title    string             `json:"title"`
	Metrics  map[Metric]float64 `json:"metrics"`
	Score    float64            `json:"score"`
	Feedback []string           `json:"feedback,omitempty"`
}

// BelowThreshold reports whether the slide score falls below threshold.
func (s SlideScore) BelowThreshold(threshold float64) bool {
	return s.Score < threshold
}

// ViolatedMetrics returns the metrics scoring below threshold, worst first.
func (s SlideScore) ViolatedMetrics(threshold float64) []Metric {
	var out []Metric
	for m, v := range s.Metrics {
		if v < threshold {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if s.Metrics[out[i]] != s.Metrics[out[j]] {
			return s.Metrics[out[i]] < s.Metrics[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Report is the structured result of evaluating a deck.
type Report struct {
	Aggregate      float64        `json:"aggregate"`
	Classification Classification `json:"classification"`
	Threshold      float64        `json:"threshold"`
	Slides         []SlideScore   `json:"slides"`
	// Flagged lists the IDs of slides scoring below threshold.
	Flagged []string `json:"flagged,omitempty"`
	// Remediations records refinement actions taken after the initial
	// evaluation; the refinement controller appends to it.
	Remediations []string `json:"remediations,omitempty"`
	// Unresolved lists slides still below threshold after refinement.
	Unresolved []string `json:"unresolved,omitempty"`
}

// SlideScoreByID returns the score entry for a slide, or nil.
func (r *Report) SlideScoreByID(id string) *SlideScore {
	for i := range r.Slides {
		if r.Slides[i].SlideID == id {
			return &r.Slides[i]
		}
	}
	return nil
}

// Evaluator scores decks. Scoring functions are replaceable per metric.
type Evaluator struct {
	cfg     Config
	scorers map[Metric]ScoreFunc
}

// NewEvaluator creates an evaluator with default metric implementations.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg.withDefaults(), scorers: defaultScorers()}
}

// Config returns the evaluator's effective (default-filled) configuration.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// SetScorer replaces the scoring function for one metric.
func (e *Evaluator) SetScorer(m Metric, fn ScoreFunc) {
	e.scorers[m] = fn
}

// ScoreSlide computes the metric and combined scores for one slide.
func (e *Evaluator) ScoreSlide(d *deck.Deck, idx int) SlideScore {
	slide := &d.Slides[idx]
	result := SlideScore{
		SlideID: slide.ID,
		Title:   slide.Title,
		Metrics: make(map[Metric]float64),
	}

	weightTotal := 0.0
	weighted := 0.0
	for _, metric := range e.cfg.activeMetrics() {
		fn, ok := e.scorers[metric]
		if !ok {
			continue
		}
		score, feedback := fn(d, idx, e.cfg)
		result.Metrics[metric] = score
		if feedback != "" {
			result.Feedback = append(result.Feedback, fmt.Sprintf("%s: %s", metric, feedback))
		}

		weight := 1.0
		if w, ok := e.cfg.Weights[metric]; ok && w > 0 {
			weight = w
		}
		weighted += score * weight
		weightTotal += weight
	}

	if weightTotal > 0 {
		result.Score = weighted / weightTotal
	}
	return result
}

// Evaluate scores every slide and classifies the deck. The aggregate is the
// exact mean of the per-slide scores; classification follows the
// PASS / CONDITIONAL-PASS / FAIL rules from the configuration.
func (e *Evaluator) Evaluate(d *deck.Deck) *Report {
	report := &Report{
		Threshold: e.cfg.Threshold,
		Slides:    make([]SlideScore, 0, len(d.Slides)),
	}

	sum := 0.0
	farBelow := 0
	for i := range d.Slides {
		score := e.ScoreSlide(d, i)
		report.Slides = append(report.Slides, score)
		sum += score.Score
		if score.BelowThreshold(e.cfg.Threshold) {
			report.Flagged = append(report.Flagged, score.SlideID)
		}
		if score.Score < e.cfg.Threshold-e.cfg.FarBelowMargin {
			farBelow++
		}
	}

	if len(report.Slides) > 0 {
		report.Aggregate = sum / float64(len(report.Slides))
	}
	report.Classification = e.classify(report, farBelow)
	return report
}

func (e *Evaluator) classify(report *Report, farBelow int) Classification {
	n := len(report.Slides)
	if n == 0 {
		return ClassFail
	}
	if float64(farBelow)/float64(n) > e.cfg.FailFraction {
		return ClassFail
	}
	if report.Aggregate < e.cfg.Threshold {
		return ClassFail
	}
	if len(report.Flagged) > 0 {
		return ClassConditional
	}
	return ClassPass
}

// Summary returns a one-line human-readable verdict.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "aggregate %.1f/%0.0f: %s", r.Aggregate, r.Threshold, r.Classification)
	if len(r.Flagged) > 0 {
		fmt.Fprintf(&b, " (%d slide(s) below threshold)", len(r.Flagged))
	}
	return b.String()
}
