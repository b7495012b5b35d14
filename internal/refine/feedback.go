// Package refine drives the per-slide quality refinement loop: it turns a
// quality report into structured feedback, re-invokes the producing
// collaborator for flagged slides, and bounds the number of attempts.
package refine

import (
	"fmt"
	"strings"

	"github.com/haruki/slidegen/internal/quality"
)

// Feedback is the structured corrective input handed back to the producing
// stage when a slide scores below threshold.
type Feedback struct {
	SlideID string `json:"slide_id"`
	Attempt int    `json:"attempt"`
	// Metrics lists the violated metrics, worst first.
	Metrics []quality.Metric `json:"metrics"`
	// Directives are corrective instructions derived from the metrics.
	Directives []string `json:"directives"`
	// Notes carries the evaluator's free-text findings verbatim.
	Notes []string `json:"notes,omitempty"`
}

// Prompt renders the feedback as text suitable for a generation prompt.
func (f Feedback) Prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "The previous version of this slide scored below the quality threshold (attempt %d).\n", f.Attempt)
	b.WriteString("Address the following:\n")
	for _, d := range f.Directives {
		fmt.Fprintf(&b, "- %s\n", d)
	}
	for _, n := range f.Notes {
		fmt.Fprintf(&b, "- finding: %s\n", n)
	}
	return b.String()
}

// directives maps each violated metric to a corrective instruction.
var directives = map[quality.Metric]string{
	quality.MetricRichness:      "increase item count to 3-7 bullets and bring the content volume into the requested density band",
	quality.MetricConsistency:   "match the structure and punctuation style of the other slides in the deck",
	quality.MetricAccuracy:      "add traceable citations: every claim must reference one of the research sources by its id",
	quality.MetricVisualBalance: "rebalance text against visuals: trim text on image slides or supply the suggested image",
	quality.MetricAccessibility: "keep text plain and structured; visual theme issues are resolved deck-wide",
}

// BuildFeedback derives structured feedback from a slide's score entry.
func BuildFeedback(score quality.SlideScore, threshold float64, attempt int) Feedback {
	violated := score.ViolatedMetrics(threshold)
	fb := Feedback{
		SlideID: score.SlideID,
		Attempt: attempt,
		Metrics: violated,
		Notes:   score.Feedback,
	}
	for _, m := range violated {
		if d, ok := directives[m]; ok {
			fb.Directives = append(fb.Directives, d)
		}
	}
	if len(fb.Directives) == 0 {
		fb.Directives = append(fb.Directives, "improve the overall quality of this slide")
	}
	return fb
}
