package stages

import (
	"context"
	"fmt"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/templates"
)

// TemplateStage selects the deck theme. Selection weighs the request's topic
// and style keywords, the orchestrator-provided bias, and the outline's
// visual weight (how many slides asked for an image).
type TemplateStage struct {
	verbose bool
}

// NewTemplateStage creates the template selection stage.
func NewTemplateStage(verbose bool) *TemplateStage {
	return &TemplateStage{verbose: verbose}
}

func (s *TemplateStage) Spec() pipeline.Spec {
	return pipeline.Spec{Name: StageTemplateSelect, Inputs: []string{KeyOutline}, Output: KeyTheme}
}

func (s *TemplateStage) Run(_ context.Context, in pipeline.Inputs, opts pipeline.Options) (*pipeline.Output, error) {
	var outline deck.Deck
	if err := in.Decode(KeyOutline, &outline); err != nil {
		return nil, err
	}

	bias := make(map[string]float64, len(opts.TemplateBias)+1)
	for name, w := range opts.TemplateBias {
		bias[name] = w
	}
	// Visually heavy outlines tip selection toward the image-forward theme.
	if suggestions := countImageSuggestions(outline.Slides); suggestions*2 > len(outline.Slides) {
		bias["modern"]++
	}

	selection := templates.Select(opts.Request, bias)
	if s.verbose {
		fmt.Printf("[VERBOSE] Template selected: %s (score %.1f)\n", selection.Template.Theme.Name, selection.Score)
	}
	return &pipeline.Output{Value: selection.Template.Theme}, nil
}

func (s *TemplateStage) Fallback(_ pipeline.Inputs, _ pipeline.Options) (any, error) {
	return templates.Default().Theme, nil
}

func countImageSuggestions(slides []deck.Slide) int {
	n := 0
	for _, slide := range slides {
		if slide.ImageSuggestion != "" {
			n++
		}
	}
	return n
}
