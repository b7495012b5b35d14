package stages

import (
	"context"
	"fmt"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/research"
)

// Researcher gathers sources and a summary for a topic. The production
// implementation is research.Engine.
type Researcher interface {
	Research(ctx context.Context, topic string, depth deck.Depth) (*deck.ResearchResult, error)
}

// ResearchStage produces the research result the outline stage consumes.
// With no engine wired, or in offline mode, it synthesizes sources locally.
type ResearchStage struct {
	engine Researcher
}

// NewResearchStage creates the research stage. engine may be nil; the stage
// then always runs its offline synthesis path.
func NewResearchStage(engine Researcher) *ResearchStage {
	return &ResearchStage{engine: engine}
}

func (s *ResearchStage) Spec() pipeline.Spec {
	return pipeline.Spec{Name: StageResearch, Output: KeyResearch}
}

func (s *ResearchStage) Run(ctx context.Context, _ pipeline.Inputs, opts pipeline.Options) (*pipeline.Output, error) {
	if opts.Offline || s.engine == nil {
		return &pipeline.Output{
			Value:    research.Synthesize(opts.Request.Topic, opts.Request.Depth),
			Degraded: true,
			Reason:   "research synthesized offline",
		}, nil
	}

	result, err := s.engine.Research(ctx, opts.Request.Topic, opts.Request.Depth)
	if err != nil {
		return nil, fmt.Errorf("research failed for %q: %w", opts.Request.Topic, err)
	}
	return &pipeline.Output{Value: result}, nil
}

func (s *ResearchStage) Fallback(_ pipeline.Inputs, opts pipeline.Options) (any, error) {
	return research.Synthesize(opts.Request.Topic, opts.Request.Depth), nil
}
