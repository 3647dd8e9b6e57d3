// Package anthropic implements provider.Provider against the Anthropic
// Messages API, covering both synchronous completions and streaming.
package anthropic

import (
	"log/slog"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yengalvez/a-movies/internal/provider"
)

// Compile-time interface guard.
var _ provider.Provider = (*Anthropic)(nil)

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	config        Config
	client        *sdkanthropic.Client
	logger        *slog.Logger
	contextWindow int
}

// New builds a ready-to-use Anthropic provider. The API key falls back to
// the ANTHROPIC_API_KEY environment variable when the config leaves it empty.
func New(cfg Config, logger *slog.Logger) *Anthropic {
	cfg.defaults()

	apiKey := cfg.APIKey
	if apiKey == "" {
		if envKey, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			apiKey = envKey
		}
	}

	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	// The agent loop decides retry policy; keep the SDK out of it.
	opts = append(opts, option.WithMaxRetries(0))

	client := sdkanthropic.NewClient(opts...)

	return &Anthropic{
		config:        cfg,
		client:        &client,
		logger:        logger,
		contextWindow: cfg.contextWindowForModel(),
	}
}

// ContextWindowSize implements provider.Provider.
func (a *Anthropic) ContextWindowSize() int {
	return a.contextWindow
}

// ModelName implements provider.Provider.
func (a *Anthropic) ModelName() string {
	return a.config.Model
}
