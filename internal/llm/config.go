// Package llm wraps the Gemini API behind a small client interface so
// stages can be tested against mocks and model choices live in one place.
package llm

// ModelTier names a capability level rather than a concrete model, so
// callers say what kind of work they need done and the mapping to real
// model names stays configurable.
type ModelTier string

const (
	// TierLite handles cheap structured tasks: query planning, topic analysis.
	TierLite ModelTier = "lite"
	// TierStandard handles outline and slide drafting.
	TierStandard ModelTier = "standard"
	// TierAdvanced handles refinement redrafts, where feedback must be followed precisely.
	TierAdvanced ModelTier = "advanced"
)

// Config maps tiers to Gemini model names.
type Config struct {
	Models map[ModelTier]string
}

// DefaultConfig returns the standard tier mapping.
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel resolves a tier to a model name, degrading through standard
// and lite when the requested tier is not configured.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model, ok := c.Models[t]; ok {
			return model
		}
	}
	return ""
}
