package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/quality"
)

func TestGet_Known(t *testing.T) {
	tpl, err := Get("dark")
	require.NoError(t, err)
	assert.Equal(t, "dark", tpl.Theme.Name)
}

func TestGet_Unknown(t *testing.T) {
	_, err := Get("neon")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template")
}

func TestSelect_TopicKeywords(t *testing.T) {
	req := deck.Request{Topic: "Research methods in education science"}

	sel := Select(req, nil)
	assert.Equal(t, "academic", sel.Template.Theme.Name)
}

func TestSelect_StyleNamesTemplateDirectly(t *testing.T) {
	req := deck.Request{Topic: "Anything at all", Style: "minimal"}

	sel := Select(req, nil)
	assert.Equal(t, "minimal", sel.Template.Theme.Name)
}

func TestSelect_DefaultWhenNoSignal(t *testing.T) {
	req := deck.Request{Topic: "Baking sourdough bread"}

	sel := Select(req, nil)
	assert.Equal(t, "modern", sel.Template.Theme.Name)
}

func TestSelect_BiasTipsTheScale(t *testing.T) {
	req := deck.Request{Topic: "Baking sourdough bread"}

	sel := Select(req, map[string]float64{"dark": 2})
	assert.Equal(t, "dark", sel.Template.Theme.Name)
}

func TestSelect_Deterministic(t *testing.T) {
	req := deck.Request{Topic: "Baking sourdough bread"}

	first := Select(req, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Template.Theme.Name, Select(req, nil).Template.Theme.Name)
	}
}

func TestRanked_OrderedByScore(t *testing.T) {
	req := deck.Request{Topic: "Developer tooling for gaming"}

	ranked := Ranked(req, nil)
	require.Len(t, ranked, len(Names()))
	assert.Equal(t, "dark", ranked[0].Template.Theme.Name)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestAllTemplatesMeetContrastMinimum(t *testing.T) {
	for _, name := range Names() {
		tpl, err := Get(name)
		require.NoError(t, err)

		ratio, err := quality.ContrastRatio(tpl.Theme.BackgroundColor, tpl.Theme.TextColor)
		require.NoError(t, err, "template %s", name)
		assert.GreaterOrEqual(t, ratio, 4.5, "template %s text contrast", name)
	}
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "modern", Default().Theme.Name)
}
