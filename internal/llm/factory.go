package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nurpath/nurpath/internal/model"
)

// NewDrafter creates the drafter named by cfg.Provider. An empty provider
// selects the template drafter.
func NewDrafter(cfg model.LLMConfig, httpCfg model.HTTPConfig, logger *slog.Logger) (Drafter, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "template":
		return NewTemplateDrafter(), nil
	case "openai":
		return NewOpenAIDrafter(cfg, logger)
	case "ollama":
		return NewOllamaDrafter(cfg, httpCfg, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: template, openai, ollama)", cfg.Provider)
	}
}
