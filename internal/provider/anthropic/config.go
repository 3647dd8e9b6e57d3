package anthropic

// defaultModel is the model used when none is specified.
// Pinned to a dated release for reproducibility; update when a newer
// stable version is validated.
const defaultModel = "claude-sonnet-4-5-20250929"

// defaultContextWindow covers all Claude 3.x and 4.x models (200k tokens).
const defaultContextWindow = 200_000

// Config holds the settings for the Anthropic provider.
type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	MaxTokens     int
	ContextWindow int
}

// defaults fills in zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
}

// contextWindowForModel returns the context window size for the configured
// model. An explicit override wins.
func (c *Config) contextWindowForModel() int {
	if c.ContextWindow > 0 {
		return c.ContextWindow
	}
	return defaultContextWindow
}
