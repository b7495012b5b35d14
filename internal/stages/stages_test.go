package stages

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/llm"
	"github.com/haruki/slidegen/internal/pipeline"
)

// MockLLMClient implements llm.Client with scriptable behavior.
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "{}", nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string { return "mock-" + string(tier) }

func (m *MockLLMClient) Close() error { return nil }

// testRequest is the baseline request used across stage tests.
func testRequest() deck.Request {
	return deck.Request{
		Topic:      "Quantum error correction",
		SlideCount: 4,
		Depth:      deck.DepthMedium,
		Density:    deck.DensityBalanced,
	}
}

// testResearch is a two-source research result.
func testResearch() *deck.ResearchResult {
	return &deck.ResearchResult{
		Topic: "Quantum error correction",
		Sources: []deck.Source{
			{
				ID:          "src_001",
				URL:         "https://en.wikipedia.org/wiki/Quantum_error_correction",
				Title:       "Quantum error correction",
				Snippet:     "Quantum error correction protects quantum information. Surface codes are the leading approach.",
				Content:     "Quantum error correction protects quantum information from decoherence and other quantum noise.",
				SourceType:  "encyclopedia",
				Credibility: 0.9,
			},
			{
				ID:          "src_002",
				URL:         "https://arxiv.org/abs/1234.5678",
				Title:       "Surface code thresholds",
				Snippet:     "Surface codes tolerate error rates near one percent.",
				Content:     "We analyze threshold behavior of surface codes under realistic noise models.",
				SourceType:  "academic",
				Credibility: 0.95,
			},
		},
		Summary: "Quantum error correction protects quantum information [src_001]. Surface codes lead the field [src_002].",
	}
}

// stageInputs marshals values into the raw input map a stage receives.
func stageInputs(t *testing.T, values map[string]any) pipeline.Inputs {
	t.Helper()
	in := make(pipeline.Inputs, len(values))
	for key, value := range values {
		raw, err := json.Marshal(value)
		require.NoError(t, err)
		in[key] = raw
	}
	return in
}
