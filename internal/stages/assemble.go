package stages

import (
	"context"
	"fmt"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/images"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/templates"
)

// AssembleStage joins the drafted deck with the resolved image set into the
// final artifact the quality and refinement phases operate on. It is the
// only non-optional stage: without an assembled deck the run has nothing
// to deliver.
type AssembleStage struct{}

// NewAssembleStage creates the assembly stage.
func NewAssembleStage() *AssembleStage {
	return &AssembleStage{}
}

func (s *AssembleStage) Spec() pipeline.Spec {
	return pipeline.Spec{
		Name:        StageAssemble,
		Inputs:      []string{KeyDraft, KeyImages},
		Output:      KeyAssembled,
		NonOptional: true,
	}
}

func (s *AssembleStage) Run(_ context.Context, in pipeline.Inputs, opts pipeline.Options) (*pipeline.Output, error) {
	var d deck.Deck
	if err := in.Decode(KeyDraft, &d); err != nil {
		return nil, err
	}
	var set images.ImageSet
	if err := in.Decode(KeyImages, &set); err != nil {
		return nil, err
	}
	if len(d.Slides) == 0 {
		return nil, fmt.Errorf("assembly received a draft with no slides")
	}

	set.Apply(&d)
	if d.Title == "" {
		d.Title = opts.Request.Topic
	}
	// An upstream fallback can leave the theme unset.
	if d.Theme.Name == "" {
		d.Theme = templates.Default().Theme
	}
	return &pipeline.Output{Value: &d}, nil
}

// Fallback exists to satisfy the stage contract; assembly is non-optional
// so the runner never invokes it.
func (s *AssembleStage) Fallback(in pipeline.Inputs, opts pipeline.Options) (any, error) {
	var d deck.Deck
	if err := in.Decode(KeyDraft, &d); err != nil {
		return nil, err
	}
	if d.Title == "" {
		d.Title = opts.Request.Topic
	}
	if d.Theme.Name == "" {
		d.Theme = templates.Default().Theme
	}
	return &d, nil
}
