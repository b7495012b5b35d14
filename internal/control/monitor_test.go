package control

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/quality"
	"github.com/haruki/slidegen/internal/refine"
	"github.com/haruki/slidegen/internal/store"
)

// fakeStage is a scriptable pipeline stage.
type fakeStage struct {
	name        string
	inputs      []string
	output      string
	nonOptional bool
	run         func(ctx context.Context, in pipeline.Inputs, opts pipeline.Options) (*pipeline.Output, error)
	fallback    func(in pipeline.Inputs, opts pipeline.Options) (any, error)
}

func (s *fakeStage) Spec() pipeline.Spec {
	return pipeline.Spec{Name: s.name, Inputs: s.inputs, Output: s.output, NonOptional: s.nonOptional}
}

func (s *fakeStage) Run(ctx context.Context, in pipeline.Inputs, opts pipeline.Options) (*pipeline.Output, error) {
	return s.run(ctx, in, opts)
}

func (s *fakeStage) Fallback(in pipeline.Inputs, opts pipeline.Options) (any, error) {
	if s.fallback != nil {
		return s.fallback(in, opts)
	}
	return nil, errors.New("no fallback")
}

// MockProducer scripts slide regeneration for the refinement loop.
type MockProducer struct {
	RedraftFunc func(ctx context.Context, d *deck.Deck, slideID string, fb refine.Feedback) (deck.Slide, error)
}

func (m *MockProducer) Redraft(ctx context.Context, d *deck.Deck, slideID string, fb refine.Feedback) (deck.Slide, error) {
	return m.RedraftFunc(ctx, d, slideID, fb)
}

func goodTheme() deck.Theme {
	return deck.Theme{
		Name:            "modern",
		BackgroundColor: "#FFFFFF",
		TextColor:       "#1A1A2E",
		AccentColor:     "#0F4C81",
		BaseFontSizePx:  18,
		HeadingFontPx:   32,
	}
}

// healthyDeck scores above threshold on every metric.
func healthyDeck() *deck.Deck {
	bullets := []string{
		"Surface codes arrange qubits on a two dimensional lattice",
		"Stabilizer measurements reveal errors without collapsing data",
		"Logical error rates fall exponentially with code distance",
		"Thresholds near one percent make hardware targets realistic",
	}
	return &deck.Deck{
		Topic:   "Quantum error correction",
		Title:   "Quantum Error Correction",
		Density: deck.DensityBalanced,
		Theme:   goodTheme(),
		Sources: []deck.Source{{ID: "src_001", Title: "QEC", URL: "https://example.com"}},
		Slides: []deck.Slide{
			{ID: "slide_001", Type: deck.SlideTypeTitle, Title: "Quantum Error Correction", Bullets: []string{
				"How error correcting codes protect fragile quantum information from decoherence and noise in real hardware",
			}},
			{ID: "slide_002", Type: deck.SlideTypeContent, Title: "Surface codes in practice", Bullets: bullets, SourceIDs: []string{"src_001"}},
			{ID: "slide_003", Type: deck.SlideTypeConclusion, Title: "Takeaways", Bullets: []string{
				"Quantum error correction is the path from noisy devices to fault tolerant machines",
				"Surface codes are the leading practical approach today",
			}, SourceIDs: []string{"src_001"}},
		},
	}
}

// deckStage writes the given deck under the final deck key.
func deckStage(d *deck.Deck) *fakeStage {
	return &fakeStage{
		name:   "assemble",
		output: FinalDeckKey,
		run: func(context.Context, pipeline.Inputs, pipeline.Options) (*pipeline.Output, error) {
			return &pipeline.Output{Value: d}, nil
		},
	}
}

func testParams() RunParams {
	return RunParams{
		Request: deck.Request{Topic: "Quantum error correction", SlideCount: 3, Density: deck.DensityBalanced},
	}
}

func TestMonitored_RunProducesReport(t *testing.T) {
	coordinator := NewCoordinator(store.New(), []pipeline.Stage{deckStage(healthyDeck())}, nil, nil)

	report, err := NewMonitored(coordinator).Run(context.Background(), testParams())
	require.NoError(t, err)

	assert.Equal(t, TierMonitored, report.Tier)
	assert.Equal(t, "monitored", report.TierName)
	assert.False(t, report.Degraded())
	assert.Nil(t, report.Quality)
	require.NotNil(t, report.Deck)
	assert.Len(t, report.Deck.Slides, 3)
	require.Len(t, report.StageResults, 1)
	assert.Equal(t, pipeline.StatusOK, report.StageResults[0].Status)
}

func TestCoordinator_QualityPassSkipsRefinement(t *testing.T) {
	producer := &MockProducer{
		RedraftFunc: func(context.Context, *deck.Deck, string, refine.Feedback) (deck.Slide, error) {
			t.Fatal("refinement must not run on a passing deck")
			return deck.Slide{}, nil
		},
	}
	coordinator := NewCoordinator(store.New(), []pipeline.Stage{deckStage(healthyDeck())}, producer, nil)

	params := testParams()
	params.QualityCheck = true
	report, err := NewMonitored(coordinator).Run(context.Background(), params)
	require.NoError(t, err)

	require.NotNil(t, report.Quality)
	assert.Equal(t, quality.ClassPass, report.Quality.Classification)
	assert.Empty(t, report.Quality.Flagged)
	assert.Empty(t, report.Outcomes)
}

func TestCoordinator_RefinesFlaggedSlides(t *testing.T) {
	d := healthyDeck()
	// Starve one content slide so richness flags it.
	d.Slides[1].Bullets = []string{"thin"}

	producer := &MockProducer{
		RedraftFunc: func(_ context.Context, _ *deck.Deck, slideID string, fb refine.Feedback) (deck.Slide, error) {
			assert.Equal(t, "slide_002", slideID)
			assert.NotEmpty(t, fb.Directives)
			redrafted := healthyDeck().Slides[1]
			redrafted.Title = "Surface codes, refined"
			return redrafted, nil
		},
	}
	st := store.New()
	coordinator := NewCoordinator(st, []pipeline.Stage{deckStage(d)}, producer, nil)

	params := testParams()
	params.QualityCheck = true
	params.Quality = quality.Config{FocusMetrics: []quality.Metric{quality.MetricRichness}}
	report, err := NewMonitored(coordinator).Run(context.Background(), params)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Resolved)
	assert.Equal(t, "Surface codes, refined", report.Deck.Slides[1].Title)
	assert.NotEmpty(t, report.Quality.Remediations)

	// The refined deck lands in the store under the coordinator's key.
	var refined deck.Deck
	require.NoError(t, st.Get(RefinedDeckKey, &refined))
	assert.Equal(t, "Surface codes, refined", refined.Slides[1].Title)
	assert.Equal(t, coordinatorWriter, st.Writer(RefinedDeckKey))
}

func TestCoordinator_OfflineOutputDowngradesToOffline(t *testing.T) {
	offlineStage := &fakeStage{
		name:   "assemble",
		output: FinalDeckKey,
		run: func(context.Context, pipeline.Inputs, pipeline.Options) (*pipeline.Output, error) {
			return &pipeline.Output{Value: healthyDeck(), Degraded: true, Reason: "content synthesized offline"}, nil
		},
	}
	coordinator := NewCoordinator(store.New(), []pipeline.Stage{offlineStage}, nil, nil)

	report, err := NewMonitored(coordinator).Run(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, TierOffline, report.Tier)
	assert.True(t, report.Degraded())
}

func TestCoordinator_FallbackSubstitutionDowngradesToDegradedStage(t *testing.T) {
	failing := &fakeStage{
		name:   "draft",
		output: "draft.deck",
		run: func(context.Context, pipeline.Inputs, pipeline.Options) (*pipeline.Output, error) {
			return nil, errors.New("generator unavailable")
		},
		fallback: func(pipeline.Inputs, pipeline.Options) (any, error) {
			return healthyDeck(), nil
		},
	}
	join := &fakeStage{
		name:   "assemble",
		inputs: []string{"draft.deck"},
		output: FinalDeckKey,
		run: func(_ context.Context, in pipeline.Inputs, _ pipeline.Options) (*pipeline.Output, error) {
			var d deck.Deck
			if err := in.Decode("draft.deck", &d); err != nil {
				return nil, err
			}
			return &pipeline.Output{Value: &d}, nil
		},
	}
	coordinator := NewCoordinator(store.New(), []pipeline.Stage{failing, join}, nil, nil)

	report, err := NewMonitored(coordinator).Run(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, TierDegradedStage, report.Tier)
	require.NotEmpty(t, report.Transitions)
	assert.Contains(t, report.Transitions[len(report.Transitions)-1].Reason, "draft")
}

func TestCoordinator_NonOptionalFailureFailsRun(t *testing.T) {
	failing := &fakeStage{
		name:        "assemble",
		output:      FinalDeckKey,
		nonOptional: true,
		run: func(context.Context, pipeline.Inputs, pipeline.Options) (*pipeline.Output, error) {
			return nil, errors.New("draft missing")
		},
	}
	coordinator := NewCoordinator(store.New(), []pipeline.Stage{failing}, nil, nil)

	_, err := NewMonitored(coordinator).Run(context.Background(), testParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-optional stage assemble")
}

func TestCoordinator_MissingFinalDeckFails(t *testing.T) {
	stray := &fakeStage{
		name:   "research",
		output: "research.result",
		run: func(context.Context, pipeline.Inputs, pipeline.Options) (*pipeline.Output, error) {
			return &pipeline.Output{Value: "notes"}, nil
		},
	}
	coordinator := NewCoordinator(store.New(), []pipeline.Stage{stray}, nil, nil)

	_, err := NewMonitored(coordinator).Run(context.Background(), testParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), FinalDeckKey)
}
