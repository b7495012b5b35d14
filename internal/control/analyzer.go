package control

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/llm"
)

// LLMAnalyzer asks the model to rate a topic's complexity, audience
// expertise, and visual weight before the run starts. It uses the lite tier:
// the analysis is advisory and a wrong answer only costs a derived
// parameter, never the run.
type LLMAnalyzer struct {
	client llm.Client
}

// NewLLMAnalyzer creates an analyzer backed by the given client.
func NewLLMAnalyzer(client llm.Client) *LLMAnalyzer {
	return &LLMAnalyzer{client: client}
}

// Analyze rates the request's topic. Invalid depth recommendations are
// cleared rather than failing the analysis.
func (a *LLMAnalyzer) Analyze(ctx context.Context, req deck.Request) (*Analysis, error) {
	if a.client == nil {
		return nil, fmt.Errorf("no analysis client configured")
	}

	input := fmt.Sprintf("Topic: %s\nRequested slides: %d\nRequested depth: %s\nDensity: %s",
		req.Topic, req.SlideCount, req.Depth, req.Density)
	prompt := llm.BuildExtractionPrompt(llm.TopicAnalysisSchema(), input)

	raw, err := a.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, fmt.Errorf("topic analysis failed: %w", err)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &analysis); err != nil {
		return nil, fmt.Errorf("topic analysis returned invalid JSON: %w", err)
	}

	switch analysis.RecommendedDepth {
	case deck.DepthLow, deck.DepthMedium, deck.DepthHigh, "":
	default:
		analysis.RecommendedDepth = ""
	}
	return &analysis, nil
}
