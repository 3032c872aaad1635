package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/common"
	"github.com/fieldrun/fieldrun/internal/interfaces"
)

// NewService creates the configured extraction provider. The default
// provider comes from [llm].default_provider; claude wins when unset.
func NewService(config *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	provider := config.LLM.DefaultProvider
	if provider == "" {
		provider = "claude"
	}

	switch provider {
	case "claude":
		return NewClaudeService(&config.Claude, logger)
	case "gemini":
		return NewGeminiService(&config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
