package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/llm"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/prompts"
	"github.com/haruki/slidegen/internal/schemas"
)

// OutlineStage turns the research result into a structured slide outline.
// The generated outline is structurally repaired (slide IDs, title and
// conclusion slides, requested count) and schema-validated before it is
// published; an outline that survives neither generation nor repair fails
// the stage and a skeleton fallback takes its place.
type OutlineStage struct {
	client llm.Client
}

// NewOutlineStage creates the outline stage. client may be nil; the stage
// then builds skeleton outlines from the research result alone.
func NewOutlineStage(client llm.Client) *OutlineStage {
	return &OutlineStage{client: client}
}

func (s *OutlineStage) Spec() pipeline.Spec {
	return pipeline.Spec{Name: StageOutline, Inputs: []string{KeyResearch}, Output: KeyOutline}
}

// outlinePayload is the subset of the generator's response the stage trusts.
type outlinePayload struct {
	Title  string       `json:"title"`
	Slides []deck.Slide `json:"slides"`
}

func (s *OutlineStage) Run(ctx context.Context, in pipeline.Inputs, opts pipeline.Options) (*pipeline.Output, error) {
	var res deck.ResearchResult
	if err := in.Decode(KeyResearch, &res); err != nil {
		return nil, err
	}

	if opts.Offline || s.client == nil {
		return &pipeline.Output{
			Value:    skeletonOutline(opts.Request, &res),
			Degraded: true,
			Reason:   "outline synthesized without generator",
		}, nil
	}

	sourceIDs := make([]string, 0, len(res.Sources))
	for _, src := range res.Sources {
		sourceIDs = append(sourceIDs, src.ID)
	}
	prompt := prompts.Format(prompts.MustGet("outline.json", "generate-outline"), map[string]string{
		"Topic":      opts.Request.Topic,
		"SlideCount": strconv.Itoa(opts.Request.SlideCount),
		"Depth":      string(opts.Request.Depth),
		"Density":    string(opts.Request.Density),
		"Research":   res.Summary,
		"SourceIDs":  strings.Join(sourceIDs, ", "),
	})

	raw, err := s.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}

	var payload outlinePayload
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &payload); err != nil {
		return nil, fmt.Errorf("outline response is not valid JSON: %w", err)
	}
	if payload.Title == "" {
		payload.Title = opts.Request.Topic
	}
	payload.Slides = repairSlides(payload.Slides, opts.Request, &res)

	repaired, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err := schemas.ValidateOutline(string(repaired)); err != nil {
		return nil, fmt.Errorf("outline failed schema validation after repair: %w", err)
	}

	return &pipeline.Output{Value: outlineDeck(opts.Request, payload.Title, payload.Slides, &res)}, nil
}

func (s *OutlineStage) Fallback(in pipeline.Inputs, opts pipeline.Options) (any, error) {
	var res deck.ResearchResult
	if err := in.Decode(KeyResearch, &res); err != nil {
		return nil, err
	}
	return skeletonOutline(opts.Request, &res), nil
}

// outlineDeck packages repaired slides with the research sources so the
// drafting stage can resolve citations without re-reading the store.
func outlineDeck(req deck.Request, title string, slides []deck.Slide, res *deck.ResearchResult) *deck.Deck {
	return &deck.Deck{
		Topic:   req.Topic,
		Title:   title,
		Slides:  slides,
		Sources: res.Sources,
		Density: req.Density,
	}
}

// repairSlides enforces the structural invariants the schema and downstream
// stages rely on: sequential IDs, a leading title slide, a trailing
// conclusion, content slides in between, non-nil bullets, and the requested
// slide count.
func repairSlides(slides []deck.Slide, req deck.Request, res *deck.ResearchResult) []deck.Slide {
	want := req.SlideCount
	if want < 2 {
		want = 2
	}

	if len(slides) == 0 {
		return skeletonSlides(req, res, want)
	}

	// Trim surplus content slides, keeping the final slide for the
	// conclusion position.
	if len(slides) > want {
		trimmed := append([]deck.Slide(nil), slides[:want-1]...)
		slides = append(trimmed, slides[len(slides)-1])
	}

	// Expand toward the requested count with filler content slides placed
	// before the conclusion.
	for len(slides) < want {
		filler := fillerSlide(req.Topic, res, len(slides))
		slides = append(slides[:len(slides)-1], filler, slides[len(slides)-1])
	}

	for i := range slides {
		slides[i].ID = slideIDFor(i + 1)
		switch i {
		case 0:
			slides[i].Type = deck.SlideTypeTitle
		case len(slides) - 1:
			slides[i].Type = deck.SlideTypeConclusion
		default:
			slides[i].Type = deck.SlideTypeContent
		}
		if slides[i].Title == "" {
			slides[i].Title = req.Topic
		}
		if slides[i].Bullets == nil {
			slides[i].Bullets = []string{}
		}
	}
	return slides
}

// fillerSlide builds an expansion slide from the next unused source, or a
// generic continuation slide when sources are exhausted.
func fillerSlide(topic string, res *deck.ResearchResult, position int) deck.Slide {
	slide := deck.Slide{
		Type:    deck.SlideTypeContent,
		Title:   fmt.Sprintf("%s: further detail", topic),
		Bullets: []string{"Expand with additional findings"},
	}
	if res != nil && len(res.Sources) > 0 {
		src := res.Sources[(position-1)%len(res.Sources)]
		slide.Title = src.Title
		slide.SourceIDs = []string{src.ID}
		if src.Snippet != "" {
			slide.Bullets = splitSentences(src.Snippet, 3)
		}
	}
	return slide
}

// skeletonOutline builds a full outline deck from the research result with
// no generator involved.
func skeletonOutline(req deck.Request, res *deck.ResearchResult) *deck.Deck {
	want := req.SlideCount
	if want < 2 {
		want = 2
	}
	return outlineDeck(req, req.Topic, skeletonSlides(req, res, want), res)
}

func skeletonSlides(req deck.Request, res *deck.ResearchResult, want int) []deck.Slide {
	slides := make([]deck.Slide, 0, want)

	titleBullet := "An overview of " + req.Topic
	if res != nil && res.Summary != "" {
		if first := splitSentences(res.Summary, 1); len(first) > 0 {
			titleBullet = first[0]
		}
	}
	slides = append(slides, deck.Slide{
		ID:      slideIDFor(1),
		Type:    deck.SlideTypeTitle,
		Title:   req.Topic,
		Bullets: []string{titleBullet},
	})

	for i := 1; i < want-1; i++ {
		slide := deck.Slide{
			ID:      slideIDFor(i + 1),
			Type:    deck.SlideTypeContent,
			Title:   fmt.Sprintf("%s: part %d", req.Topic, i),
			Bullets: []string{"Key points on " + req.Topic},
		}
		if res != nil && len(res.Sources) > 0 {
			src := res.Sources[(i-1)%len(res.Sources)]
			slide.Title = src.Title
			slide.SourceIDs = []string{src.ID}
			if src.Snippet != "" {
				slide.Bullets = splitSentences(src.Snippet, 3)
			}
		}
		slides = append(slides, slide)
	}

	slides = append(slides, deck.Slide{
		ID:      slideIDFor(want),
		Type:    deck.SlideTypeConclusion,
		Title:   "Conclusion",
		Bullets: []string{"Key takeaways on " + req.Topic},
	})
	return slides
}

// splitSentences returns up to max sentences from the text, trimmed.
func splitSentences(text string, max int) []string {
	var out []string
	for _, part := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
		if len(out) == max {
			break
		}
	}
	if len(out) == 0 {
		out = []string{strings.TrimSpace(text)}
	}
	return out
}
