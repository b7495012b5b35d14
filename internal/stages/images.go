package stages

import (
	"context"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/images"
	"github.com/haruki/slidegen/internal/pipeline"
)

// ImageStage resolves the outline's image suggestions into image references.
// Offline, or when no searcher is wired, every suggestion becomes a
// placeholder reference so assembly and rendering always have something to
// point at.
type ImageStage struct {
	resolver *images.Resolver
	verbose  bool
}

// NewImageStage creates the image fetch stage. resolver may be nil; the
// stage then always produces placeholders.
func NewImageStage(resolver *images.Resolver, verbose bool) *ImageStage {
	return &ImageStage{resolver: resolver, verbose: verbose}
}

func (s *ImageStage) Spec() pipeline.Spec {
	return pipeline.Spec{Name: StageImageFetch, Inputs: []string{KeyOutline}, Output: KeyImages}
}

func (s *ImageStage) Run(ctx context.Context, in pipeline.Inputs, opts pipeline.Options) (*pipeline.Output, error) {
	var outline deck.Deck
	if err := in.Decode(KeyOutline, &outline); err != nil {
		return nil, err
	}

	suggestions := countImageSuggestions(outline.Slides)
	if opts.Offline || s.resolver == nil {
		set := placeholderSet(ctx, outline.Slides, s.verbose)
		reason := ""
		if suggestions > 0 {
			reason = "image references replaced with placeholders"
		}
		return &pipeline.Output{Value: set, Degraded: suggestions > 0, Reason: reason}, nil
	}

	set := s.resolver.Resolve(ctx, outline.Slides)
	if suggestions > 0 && set.Resolved == 0 {
		return &pipeline.Output{
			Value:    set,
			Degraded: true,
			Reason:   "no image lookup succeeded; placeholders substituted",
		}, nil
	}
	return &pipeline.Output{Value: set}, nil
}

func (s *ImageStage) Fallback(in pipeline.Inputs, _ pipeline.Options) (any, error) {
	var outline deck.Deck
	if err := in.Decode(KeyOutline, &outline); err != nil {
		return nil, err
	}
	return placeholderSet(context.Background(), outline.Slides, s.verbose), nil
}

// placeholderSet builds an image set of placeholders for every suggestion.
func placeholderSet(ctx context.Context, slides []deck.Slide, verbose bool) *images.ImageSet {
	return images.NewResolver(nil, verbose).Resolve(ctx, slides)
}
