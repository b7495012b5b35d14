package quality

import (
	"fmt"
	"math"
	"strings"

	"github.com/haruki/slidegen/internal/deck"
)

// ScoreFunc scores one slide of a deck on a 0-100 scale and returns
// free-text feedback when the slide falls short. Scoring functions are
// pluggable so individual metrics can be tested and replaced independently.
type ScoreFunc func(d *deck.Deck, idx int, cfg Config) (score float64, feedback string)

// defaultScorers wires the built-in metric implementations.
func defaultScorers() map[Metric]ScoreFunc {
	return map[Metric]ScoreFunc{
		MetricRichness:      scoreRichness,
		MetricConsistency:   scoreConsistency,
		MetricAccuracy:      scoreAccuracy,
		MetricVisualBalance: scoreVisualBalance,
		MetricAccessibility: scoreAccessibility,
	}
}

// volumeBand returns the accepted word-count range for a content slide at
// the given density. Title and conclusion slides use half the band.
func volumeBand(density deck.Density, slideType deck.SlideType) (min, max int) {
	switch density {
	case deck.DensityMinimal:
		min, max = 15, 60
	case deck.DensityDetailed:
		min, max = 70, 200
	default:
		min, max = 35, 120
	}
	if slideType != deck.SlideTypeContent {
		min /= 2
		max /= 2
	}
	return min, max
}

// scoreRichness penalizes slides whose content volume falls outside the
// density band and whose bullet count falls outside [3,7].
func scoreRichness(d *deck.Deck, idx int, cfg Config) (float64, string) {
	slide := &d.Slides[idx]
	score := 100.0
	var problems []string

	min, max := volumeBand(cfg.Density, slide.Type)
	wc := slide.WordCount()
	switch {
	case wc < min:
		// Linear falloff: an empty slide loses the full volume penalty.
		score -= 60 * float64(min-wc) / float64(min)
		problems = append(problems, fmt.Sprintf("content volume %d words is below the %s band [%d,%d]", wc, cfg.Density, min, max))
	case wc > max:
		over := float64(wc-max) / float64(max)
		score -= math.Min(60, 60*over)
		problems = append(problems, fmt.Sprintf("content volume %d words exceeds the %s band [%d,%d]", wc, cfg.Density, min, max))
	}

	if slide.Type == deck.SlideTypeContent {
		n := len(slide.Bullets)
		if n < minBulletCount {
			score -= float64(minBulletCount-n) * 15
			problems = append(problems, fmt.Sprintf("only %d bullet items; at least %d expected", n, minBulletCount))
		} else if n > maxBulletCount {
			score -= float64(n-maxBulletCount) * 15
			problems = append(problems, fmt.Sprintf("%d bullet items; at most %d expected", n, maxBulletCount))
		}
	}

	return clamp(score), strings.Join(problems, "; ")
}

// scoreConsistency penalizes deviation from the structural patterns of the
// majority of sibling slides: bullet count spread and terminal punctuation.
func scoreConsistency(d *deck.Deck, idx int, _ Config) (float64, string) {
	slide := &d.Slides[idx]
	if len(d.Slides) < 2 || slide.Type != deck.SlideTypeContent {
		return 100, ""
	}

	score := 100.0
	var problems []string

	median := medianBulletCount(d)
	if median > 0 {
		diff := math.Abs(float64(len(slide.Bullets)) - median)
		if diff > 2 {
			score -= math.Min(30, (diff-2)*10)
			problems = append(problems, fmt.Sprintf("bullet count %d deviates from the deck median of %.0f", len(slide.Bullets), median))
		}
	}

	majorityPeriod := majorityEndsWithPeriod(d)
	mismatched := 0
	for _, b := range slide.Bullets {
		if endsWithPeriod(b) != majorityPeriod {
			mismatched++
		}
	}
	if len(slide.Bullets) > 0 && mismatched > 0 {
		score -= math.Min(30, 30*float64(mismatched)/float64(len(slide.Bullets)))
		problems = append(problems, fmt.Sprintf("%d bullet(s) break the deck's punctuation pattern", mismatched))
	}

	return clamp(score), strings.Join(problems, "; ")
}

// scoreAccuracy penalizes claims not traceable to a cited source reference.
func scoreAccuracy(d *deck.Deck, idx int, _ Config) (float64, string) {
	slide := &d.Slides[idx]
	if slide.Type == deck.SlideTypeTitle {
		return 100, ""
	}

	if len(slide.SourceIDs) == 0 {
		return 40, "no cited sources back this slide's claims"
	}

	traceable := 0
	for _, id := range slide.SourceIDs {
		if d.SourceByID(id) != nil {
			traceable++
		}
	}
	score := 100 * float64(traceable) / float64(len(slide.SourceIDs))
	if traceable < len(slide.SourceIDs) {
		return clamp(score), fmt.Sprintf("%d of %d citations do not resolve to a research source", len(slide.SourceIDs)-traceable, len(slide.SourceIDs))
	}
	return clamp(score), ""
}

// Visual balance bands: accepted word counts with and without an image.
const (
	maxWordsWithImage    = 100
	maxWordsWithoutImage = 90
	minWordsWithImage    = 8
)

// scoreVisualBalance penalizes slides whose text-to-media ratio deviates
// from the target range.
func scoreVisualBalance(d *deck.Deck, idx int, _ Config) (float64, string) {
	slide := &d.Slides[idx]
	score := 100.0
	var problems []string
	wc := slide.WordCount()

	if slide.HasImage() {
		if wc > maxWordsWithImage {
			score -= math.Min(50, 50*float64(wc-maxWordsWithImage)/maxWordsWithImage)
			problems = append(problems, "text volume crowds the slide image")
		} else if wc < minWordsWithImage {
			score -= 20
			problems = append(problems, "image-led slide carries almost no supporting text")
		}
		if slide.Image.Placeholder {
			score -= 15
			problems = append(problems, "image is a degraded placeholder")
		}
	} else {
		if wc > maxWordsWithoutImage {
			score -= math.Min(50, 50*float64(wc-maxWordsWithoutImage)/maxWordsWithoutImage)
			problems = append(problems, "text-heavy slide has no visual element")
		}
		if slide.ImageSuggestion != "" {
			score -= 25
			problems = append(problems, "suggested image was never resolved")
		}
	}

	return clamp(score), strings.Join(problems, "; ")
}

// Accessibility thresholds per WCAG 2.1 AA.
const (
	minContrastNormal = 4.5
	minContrastLarge  = 3.0
	largeTextPx       = 24.0
	minBaseFontPx     = 14.0
)

// scoreAccessibility penalizes color-contrast and font-size values outside
// accepted thresholds. Theme attributes apply deck-wide, so every slide in
// an inaccessible theme is flagged.
func scoreAccessibility(d *deck.Deck, _ int, _ Config) (float64, string) {
	score := 100.0
	var problems []string

	bodyRatio, err := ContrastRatio(d.Theme.BackgroundColor, d.Theme.TextColor)
	if err == nil && bodyRatio < minContrastNormal {
		score -= math.Min(50, 50*(minContrastNormal-bodyRatio)/minContrastNormal)
		problems = append(problems, fmt.Sprintf("body text contrast %.2f:1 is below the required %.1f:1", bodyRatio, minContrastNormal))
	}

	headingRequired := minContrastNormal
	if d.Theme.HeadingFontPx >= largeTextPx {
		headingRequired = minContrastLarge
	}
	headingRatio, err := ContrastRatio(d.Theme.BackgroundColor, d.Theme.AccentColor)
	if err == nil && headingRatio < headingRequired {
		score -= math.Min(30, 30*(headingRequired-headingRatio)/headingRequired)
		problems = append(problems, fmt.Sprintf("heading contrast %.2f:1 is below the required %.1f:1", headingRatio, headingRequired))
	}

	if d.Theme.BaseFontSizePx > 0 && d.Theme.BaseFontSizePx < minBaseFontPx {
		score -= 20
		problems = append(problems, fmt.Sprintf("base font size %.0fpx is below the %.0fpx minimum", d.Theme.BaseFontSizePx, minBaseFontPx))
	}

	return clamp(score), strings.Join(problems, "; ")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func medianBulletCount(d *deck.Deck) float64 {
	var counts []int
	for i := range d.Slides {
		if d.Slides[i].Type == deck.SlideTypeContent {
			counts = append(counts, len(d.Slides[i].Bullets))
		}
	}
	if len(counts) == 0 {
		return 0
	}
	// Insertion sort; decks are small.
	for i := 1; i < len(counts); i++ {
		for j := i; j > 0 && counts[j] < counts[j-1]; j-- {
			counts[j], counts[j-1] = counts[j-1], counts[j]
		}
	}
	mid := len(counts) / 2
	if len(counts)%2 == 0 {
		return float64(counts[mid-1]+counts[mid]) / 2
	}
	return float64(counts[mid])
}

func majorityEndsWithPeriod(d *deck.Deck) bool {
	with, without := 0, 0
	for i := range d.Slides {
		for _, b := range d.Slides[i].Bullets {
			if endsWithPeriod(b) {
				with++
			} else {
				without++
			}
		}
	}
	return with > without
}

func endsWithPeriod(s string) bool {
	return strings.HasSuffix(strings.TrimSpace(s), ".")
}
