package templates

import (
	"sort"
	"strings"

	"github.com/haruki/slidegen/internal/deck"
)

// Selection is the result of scoring templates against a request.
type Selection struct {
	Template Template           `json:"template"`
	Score    float64            `json:"score"`
	Scores   map[string]float64 `json:"scores"`
}

// Select scores every registered template against the request and
// returns the best match. bias adds per-template score offsets, letting
// the orchestrated strategy push visual-heavy topics toward richer
// templates. Ties resolve in Names() order so selection is deterministic.
func Select(req deck.Request, bias map[string]float64) Selection {
	tokens := tokenize(req.Topic + " " + req.Style)

	scores := make(map[string]float64, len(registry))
	for _, name := range Names() {
		tpl := registry[name]
		score := 0.0
		for _, tag := range tpl.Tags {
			if tokens[tag] {
				score += 1.0
			}
		}
		// Style naming a template directly is the strongest signal.
		if strings.EqualFold(req.Style, name) {
			score += 5.0
		}
		// Detailed decks read better on denser templates.
		if req.Density == deck.DensityDetailed && containsTag(tpl.Tags, "detailed") {
			score += 0.5
		}
		score += bias[name]
		scores[name] = score
	}

	best := defaultTemplate
	bestScore := scores[defaultTemplate]
	for _, name := range Names() {
		if scores[name] > bestScore {
			best = name
			bestScore = scores[name]
		}
	}

	return Selection{
		Template: registry[best],
		Score:    bestScore,
		Scores:   scores,
	}
}

// Ranked returns all templates ordered by their score for the request.
func Ranked(req deck.Request, bias map[string]float64) []Selection {
	sel := Select(req, bias)

	ranked := make([]Selection, 0, len(sel.Scores))
	for _, name := range Names() {
		ranked = append(ranked, Selection{
			Template: registry[name],
			Score:    sel.Scores[name],
			Scores:   sel.Scores,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?()[]\"'")
		if tok != "" {
			tokens[tok] = true
		}
	}
	return tokens
}

func containsTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
