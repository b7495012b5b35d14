package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/images"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/store"
	"github.com/haruki/slidegen/internal/templates"
)

func TestAssembleStage_JoinsDraftAndImages(t *testing.T) {
	draft := testOutline()
	draft.Theme = templates.Default().Theme
	set := &images.ImageSet{
		Images: map[string]*deck.Image{
			"slide_002": {URL: "https://img.example.com/lattice.png", AltText: "lattice"},
		},
		Resolved: 1,
	}
	in := stageInputs(t, map[string]any{KeyDraft: draft, KeyImages: set})
	stage := NewAssembleStage()

	out, err := stage.Run(context.Background(), in, pipeline.Options{Request: testRequest()})
	require.NoError(t, err)
	assert.False(t, out.Degraded)

	d, ok := out.Value.(*deck.Deck)
	require.True(t, ok)
	assert.True(t, d.Slides[1].HasImage())
	assert.False(t, d.Slides[0].HasImage())
	assert.Equal(t, "modern", d.Theme.Name)
}

func TestAssembleStage_DefaultsMissingTitleAndTheme(t *testing.T) {
	draft := testOutline()
	draft.Title = ""
	draft.Theme = deck.Theme{}
	in := stageInputs(t, map[string]any{KeyDraft: draft, KeyImages: &images.ImageSet{}})
	stage := NewAssembleStage()

	out, err := stage.Run(context.Background(), in, pipeline.Options{Request: testRequest()})
	require.NoError(t, err)

	d := out.Value.(*deck.Deck)
	assert.Equal(t, "Quantum error correction", d.Title)
	assert.Equal(t, "modern", d.Theme.Name)
}

func TestAssembleStage_EmptyDraftFails(t *testing.T) {
	in := stageInputs(t, map[string]any{
		KeyDraft:  &deck.Deck{Topic: "empty"},
		KeyImages: &images.ImageSet{},
	})
	stage := NewAssembleStage()

	_, err := stage.Run(context.Background(), in, pipeline.Options{Request: testRequest()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no slides")
}

// TestStages_OfflinePipeline wires all six stages with no external clients
// and runs them through the real runner: every stage degrades gracefully and
// the assembled deck still lands in the store.
func TestStages_OfflinePipeline(t *testing.T) {
	st := store.New()
	wired := []pipeline.Stage{
		NewResearchStage(nil),
		NewOutlineStage(nil),
		NewTemplateStage(false),
		NewDraftStage(nil, false),
		NewImageStage(nil, false),
		NewAssembleStage(),
	}
	runner, err := pipeline.NewRunner(st, wired)
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), pipeline.Options{
		Request: testRequest(),
		Offline: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 6)
	assert.True(t, pipeline.AnyDegraded(results))

	var d deck.Deck
	require.NoError(t, st.Get(KeyAssembled, &d))
	require.Len(t, d.Slides, 4)
	assert.Equal(t, deck.SlideTypeTitle, d.Slides[0].Type)
	assert.Equal(t, deck.SlideTypeConclusion, d.Slides[3].Type)
	assert.NotEmpty(t, d.Theme.Name)
	assert.Equal(t, StageAssemble, st.Writer(KeyAssembled))
}
