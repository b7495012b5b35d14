package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/pipeline"
)

func templateInputs(t *testing.T, slides []deck.Slide) pipeline.Inputs {
	t.Helper()
	return stageInputs(t, map[string]any{
		KeyOutline: &deck.Deck{Topic: "test", Title: "test", Slides: slides},
	})
}

func TestTemplateStage_SelectsByStyle(t *testing.T) {
	req := testRequest()
	req.Style = "minimal"
	stage := NewTemplateStage(false)

	out, err := stage.Run(context.Background(), templateInputs(t, nil), pipeline.Options{Request: req})
	require.NoError(t, err)
	assert.False(t, out.Degraded)

	theme, ok := out.Value.(deck.Theme)
	require.True(t, ok)
	assert.Equal(t, "minimal", theme.Name)
}

func TestTemplateStage_BiasApplies(t *testing.T) {
	stage := NewTemplateStage(false)

	out, err := stage.Run(context.Background(), templateInputs(t, nil), pipeline.Options{
		Request:      testRequest(),
		TemplateBias: map[string]float64{"dark": 10},
	})
	require.NoError(t, err)

	theme := out.Value.(deck.Theme)
	assert.Equal(t, "dark", theme.Name)
}

func TestTemplateStage_ImageHeavyOutlineBiasesVisualTheme(t *testing.T) {
	slides := []deck.Slide{
		{ID: "slide_001", Type: deck.SlideTypeTitle, Title: "T", ImageSuggestion: "hero shot"},
		{ID: "slide_002", Type: deck.SlideTypeContent, Title: "C", ImageSuggestion: "diagram"},
		{ID: "slide_003", Type: deck.SlideTypeConclusion, Title: "E"},
	}
	req := deck.Request{Topic: "travel photography", SlideCount: 3, Density: deck.DensityBalanced}
	stage := NewTemplateStage(false)

	out, err := stage.Run(context.Background(), templateInputs(t, slides), pipeline.Options{Request: req})
	require.NoError(t, err)

	theme := out.Value.(deck.Theme)
	assert.Equal(t, "modern", theme.Name)
}

func TestTemplateStage_DoesNotMutateSharedBias(t *testing.T) {
	slides := []deck.Slide{
		{ID: "slide_001", Type: deck.SlideTypeTitle, Title: "T", ImageSuggestion: "a"},
		{ID: "slide_002", Type: deck.SlideTypeConclusion, Title: "E", ImageSuggestion: "b"},
	}
	bias := map[string]float64{"classic": 1}
	stage := NewTemplateStage(false)

	_, err := stage.Run(context.Background(), templateInputs(t, slides), pipeline.Options{
		Request:      testRequest(),
		TemplateBias: bias,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"classic": 1}, bias)
}

func TestTemplateStage_FallbackDefaultTheme(t *testing.T) {
	stage := NewTemplateStage(false)

	value, err := stage.Fallback(nil, pipeline.Options{Request: testRequest()})
	require.NoError(t, err)

	theme, ok := value.(deck.Theme)
	require.True(t, ok)
	assert.Equal(t, "modern", theme.Name)
}
