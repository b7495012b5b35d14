package refine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/quality"
)

// Producer regenerates a single slide given corrective feedback. The draft
// stage implements this; tests use a scripted fake.
type Producer interface {
	Redraft(ctx context.Context, d *deck.Deck, slideID string, feedback Feedback) (deck.Slide, error)
}

// State is the tagged refinement state of one slide.
type State string

const (
	StatePending   State = "pending"
	StateScored    State = "scored"
	StateRefining  State = "refining"
	StateAccepted  State = "accepted"
	StateExhausted State = "exhausted"
)

// Attempt records one refinement attempt for a slide.
type Attempt struct {
	SlideID  string   `json:"slide_id"`
	Number   int      `json:"number"`
	Feedback Feedback `json:"feedback"`
	Score    float64  `json:"score"`
}

// Outcome is the terminal result of one slide's refinement loop.
type Outcome struct {
	SlideID    string    `json:"slide_id"`
	State      State     `json:"state"`
	Attempts   []Attempt `json:"attempts,omitempty"`
	FinalScore float64   `json:"final_score"`
	// Resolved is true when the slide reached the threshold.
	Resolved bool `json:"resolved"`
	// ProducerFailed is true when the producing stage raised a hard error
	// and the best-scoring version seen was kept instead.
	ProducerFailed bool `json:"producer_failed,omitempty"`
}

// DefaultMaxIterations bounds refinement attempts per slide.
const DefaultMaxIterations = 3

// DefaultConcurrency caps simultaneous calls to the external generator.
const DefaultConcurrency = 3

// Options configures the controller.
type Options struct {
	MaxIterations int
	Concurrency   int64
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// Controller runs bounded, per-slide refinement loops. Attempts within one
// slide are strictly sequential; slides refine concurrently under a shared
// semaphore that caps producer calls.
type Controller struct {
	evaluator *quality.Evaluator
	producer  Producer
	opts      Options
}

// NewController creates a refinement controller.
func NewController(evaluator *quality.Evaluator, producer Producer, opts Options) *Controller {
	return &Controller{
		evaluator: evaluator,
		producer:  producer,
		opts:      opts.withDefaults(),
	}
}

// candidate guards the working deck shared by concurrent slide loops.
type candidate struct {
	mu   sync.Mutex
	deck *deck.Deck
}

// setSlide swaps in a new slide version and rescores it in deck context.
func (c *candidate) setSlide(e *quality.Evaluator, idx int, s deck.Slide) quality.SlideScore {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deck.Slides[idx] = s
	return e.ScoreSlide(c.deck, idx)
}

// restoreSlide puts a previous slide version back without scoring.
func (c *candidate) restoreSlide(idx int, s deck.Slide) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deck.Slides[idx] = s
}

// slideAt looks up a slide by ID and returns its index and a copy.
func (c *candidate) slideAt(id string) (int, deck.Slide, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.deck.Slides {
		if c.deck.Slides[i].ID == id {
			return i, c.deck.Slides[i], true
		}
	}
	return -1, deck.Slide{}, false
}

// snapshot deep-copies the working deck. Producers scan the whole deck for
// context, so they get a private copy instead of the slides sibling loops
// are swapping under the lock.
func (c *candidate) snapshot() *deck.Deck {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deck.Clone()
}

// Refine runs the refinement loop for every flagged slide in the report and
// returns the refined deck, its re-evaluation, and per-slide outcomes.
// A context cancellation (overall timeout) downgrades in-flight slides to
// their best attempt so far rather than failing the request.
func (c *Controller) Refine(ctx context.Context, d *deck.Deck, report *quality.Report) (*deck.Deck, *quality.Report, []Outcome, error) {
	if len(report.Flagged) == 0 {
		return d, report, nil, nil
	}

	working := &candidate{deck: d.Clone()}
	sem := semaphore.NewWeighted(c.opts.Concurrency)

	outcomes := make([]Outcome, len(report.Flagged))
	var wg sync.WaitGroup
	for i, slideID := range report.Flagged {
		wg.Add(1)
		go func(i int, slideID string) {
			defer wg.Done()
			outcomes[i] = c.refineSlide(ctx, working, sem, report, slideID)
		}(i, slideID)
	}
	wg.Wait()

	final := c.evaluator.Evaluate(working.deck)
	final.Remediations = report.Remediations
	for _, o := range outcomes {
		for _, a := range o.Attempts {
			final.Remediations = append(final.Remediations,
				fmt.Sprintf("slide %s attempt %d: %v -> %.1f", a.SlideID, a.Number, a.Feedback.Metrics, a.Score))
		}
		if !o.Resolved {
			final.Unresolved = append(final.Unresolved, o.SlideID)
		}
	}
	return working.deck, final, outcomes, nil
}

// refineSlide runs one slide's loop: attempts are strictly sequential, and
// attempt n+1 starts only after attempt n's score is known.
func (c *Controller) refineSlide(ctx context.Context, working *candidate, sem *semaphore.Weighted, report *quality.Report, slideID string) Outcome {
	outcome := Outcome{SlideID: slideID, State: StateScored}

	idx, bestSlide, ok := working.slideAt(slideID)
	initial := report.SlideScoreByID(slideID)
	if !ok || initial == nil {
		outcome.State = StateExhausted
		return outcome
	}

	threshold := c.evaluator.Config().Threshold
	current := *initial
	bestScore := current.Score
	outcome.FinalScore = bestScore

	for attempt := 1; attempt <= c.opts.MaxIterations; attempt++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Overall timeout: keep the best attempt so far.
			break
		}
		outcome.State = StateRefining

		fb := BuildFeedback(current, threshold, attempt)
		redrafted, err := c.producer.Redraft(ctx, working.snapshot(), slideID, fb)
		sem.Release(1)
		if err != nil {
			// Producer hard failure: keep the last best-scoring version.
			working.restoreSlide(idx, bestSlide)
			outcome.ProducerFailed = true
			break
		}

		redrafted.ID = slideID
		score := working.setSlide(c.evaluator, idx, redrafted)
		outcome.Attempts = append(outcome.Attempts, Attempt{
			SlideID:  slideID,
			Number:   attempt,
			Feedback: fb,
			Score:    score.Score,
		})

		if score.Score > bestScore {
			bestScore = score.Score
			bestSlide = redrafted
		}
		current = score
		outcome.FinalScore = bestScore

		if score.Score >= threshold {
			outcome.State = StateAccepted
			outcome.Resolved = true
			return outcome
		}
		if ctx.Err() != nil {
			break
		}
	}

	// Budget exhausted, timed out, or producer failed: the slide is kept at
	// its best-scoring version and flagged unresolved.
	working.restoreSlide(idx, bestSlide)
	outcome.State = StateExhausted
	outcome.FinalScore = bestScore
	return outcome
}
