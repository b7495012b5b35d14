package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/llm"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/prompts"
	"github.com/haruki/slidegen/internal/refine"
	"github.com/haruki/slidegen/internal/schemas"
)

// draftConcurrency caps simultaneous per-slide generation calls.
const draftConcurrency = 3

// DraftStage expands each outline slide into final slide content. Slides
// draft concurrently; a slide whose generation or validation fails is kept
// at outline fidelity and the stage output is marked degraded. The stage
// also implements refine.Producer so the refinement controller can re-invoke
// it per flagged slide with corrective feedback.
type DraftStage struct {
	client  llm.Client
	verbose bool
}

// NewDraftStage creates the drafting stage. client may be nil; the stage
// then passes outline slides through unchanged.
func NewDraftStage(client llm.Client, verbose bool) *DraftStage {
	return &DraftStage{client: client, verbose: verbose}
}

func (s *DraftStage) Spec() pipeline.Spec {
	return pipeline.Spec{Name: StageDraft, Inputs: []string{KeyOutline, KeyTheme}, Output: KeyDraft}
}

func (s *DraftStage) Run(ctx context.Context, in pipeline.Inputs, opts pipeline.Options) (*pipeline.Output, error) {
	var outline deck.Deck
	if err := in.Decode(KeyOutline, &outline); err != nil {
		return nil, err
	}
	var theme deck.Theme
	if err := in.Decode(KeyTheme, &theme); err != nil {
		return nil, err
	}

	out := outline.Clone()
	out.Theme = theme
	out.Density = opts.Request.Density

	if opts.Offline || s.client == nil {
		return &pipeline.Output{
			Value:    out,
			Degraded: true,
			Reason:   "draft kept at outline fidelity (no generator)",
		}, nil
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(draftConcurrency)
	for i := range out.Slides {
		g.Go(func() error {
			drafted, err := s.draftSlide(gctx, &outline, out.Slides[i], opts.Request)
			if err != nil {
				// Keep the outline version of this slide.
				failed.Add(1)
				if s.verbose {
					fmt.Printf("[VERBOSE] Draft failed for %s: %v\n", out.Slides[i].ID, err)
				}
				return nil
			}
			out.Slides[i] = drafted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if n := failed.Load(); n > 0 {
		if int(n) == len(out.Slides) {
			return nil, fmt.Errorf("drafting failed for all %d slides", len(out.Slides))
		}
		return &pipeline.Output{
			Value:    out,
			Degraded: true,
			Reason:   fmt.Sprintf("%d of %d slides kept at outline fidelity", n, len(out.Slides)),
		}, nil
	}
	return &pipeline.Output{Value: out}, nil
}

// Fallback publishes the outline slides unchanged under the draft key.
func (s *DraftStage) Fallback(in pipeline.Inputs, opts pipeline.Options) (any, error) {
	var outline deck.Deck
	if err := in.Decode(KeyOutline, &outline); err != nil {
		return nil, err
	}
	out := outline.Clone()
	out.Density = opts.Request.Density
	if err := in.Decode(KeyTheme, &out.Theme); err != nil {
		// Theme input missing means template selection also failed; the
		// assembly stage applies the default theme in that case.
		out.Theme = deck.Theme{}
	}
	return out, nil
}

// draftSlide generates one slide's final content from its outline entry.
func (s *DraftStage) draftSlide(ctx context.Context, outline *deck.Deck, slide deck.Slide, req deck.Request) (deck.Slide, error) {
	slideJSON, err := json.Marshal(slide)
	if err != nil {
		return deck.Slide{}, err
	}
	minBullets, maxBullets := bulletBand(req.Density, slide.Type)

	prompt := prompts.Format(prompts.MustGet("draft.json", "draft-slide"), map[string]string{
		"Topic":      outline.Topic,
		"Density":    string(req.Density),
		"Slide":      string(slideJSON),
		"Material":   sourceMaterial(outline.Sources, slide.SourceIDs),
		"MinBullets": strconv.Itoa(minBullets),
		"MaxBullets": strconv.Itoa(maxBullets),
		"SlideID":    slide.ID,
	})

	raw, err := s.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return deck.Slide{}, fmt.Errorf("slide %s: %w", slide.ID, err)
	}
	return decodeSlide(raw, slide)
}

// Redraft regenerates a single slide with corrective feedback. It satisfies
// refine.Producer for the refinement controller.
func (s *DraftStage) Redraft(ctx context.Context, d *deck.Deck, slideID string, fb refine.Feedback) (deck.Slide, error) {
	if s.client == nil {
		return deck.Slide{}, fmt.Errorf("slide %s: no generator available for refinement", slideID)
	}
	slide := d.SlideByID(slideID)
	if slide == nil {
		return deck.Slide{}, fmt.Errorf("slide %s not found in deck", slideID)
	}
	slideJSON, err := json.Marshal(slide)
	if err != nil {
		return deck.Slide{}, err
	}

	prompt := prompts.Format(prompts.MustGet("draft.json", "redraft-slide"), map[string]string{
		"Topic":    d.Topic,
		"Density":  string(d.Density),
		"Attempt":  strconv.Itoa(fb.Attempt),
		"Slide":    string(slideJSON),
		"Feedback": fb.Prompt(),
		"Material": sourceMaterial(d.Sources, slide.SourceIDs),
	})

	raw, err := s.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return deck.Slide{}, fmt.Errorf("slide %s: %w", slideID, err)
	}
	return decodeSlide(raw, *slide)
}

// decodeSlide validates and decodes a generated slide, pinning the fields
// the generator must not change back to the original.
func decodeSlide(raw string, original deck.Slide) (deck.Slide, error) {
	clean := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateSlide(clean); err != nil {
		return deck.Slide{}, fmt.Errorf("slide %s: %w", original.ID, err)
	}
	var drafted deck.Slide
	if err := json.Unmarshal([]byte(clean), &drafted); err != nil {
		return deck.Slide{}, fmt.Errorf("slide %s: %w", original.ID, err)
	}

	drafted.ID = original.ID
	drafted.Type = original.Type
	if len(drafted.SourceIDs) == 0 {
		drafted.SourceIDs = original.SourceIDs
	}
	if drafted.ImageSuggestion == "" {
		drafted.ImageSuggestion = original.ImageSuggestion
	}
	drafted.Image = original.Image
	return drafted, nil
}

// bulletBand maps density to the bullet count the prompt asks for. Title and
// conclusion slides stay short regardless of density.
func bulletBand(density deck.Density, slideType deck.SlideType) (min, max int) {
	switch density {
	case deck.DensityMinimal:
		min, max = 3, 4
	case deck.DensityDetailed:
		min, max = 4, 7
	default:
		min, max = 3, 6
	}
	if slideType != deck.SlideTypeContent {
		min, max = 1, 3
	}
	return min, max
}
