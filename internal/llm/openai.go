package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nurpath/nurpath/internal/model"
	"github.com/sashabaranov/go-openai"
)

// OpenAIDrafter drafts answers with the OpenAI Chat Completions API
type OpenAIDrafter struct {
	client *openai.Client
	config model.LLMConfig
	logger *slog.Logger
}

// NewOpenAIDrafter creates an OpenAI drafter
func NewOpenAIDrafter(config model.LLMConfig, logger *slog.Logger) (*OpenAIDrafter, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIDrafter{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

// Name returns the drafter name
func (d *OpenAIDrafter) Name() string {
	return "openai"
}

// IsAvailable lists models as a lightweight reachability check
func (d *OpenAIDrafter) IsAvailable(ctx context.Context) bool {
	if _, err := d.client.ListModels(ctx); err != nil {
		d.logger.Warn("OpenAI availability check failed", "error", err)
		return false
	}
	return true
}

// Draft generates an answer and rejects it if it cites passages outside
// the request's cards
func (d *OpenAIDrafter) Draft(ctx context.Context, req DraftRequest) (*DraftResponse, error) {
	modelName := d.config.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	maxTokens := d.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 600
	}
	timeout := d.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(req.Language)},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		MaxTokens:   maxTokens,
		Temperature: d.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	ids, err := CheckCitations(text, req.Cards)
	if err != nil {
		return nil, err
	}

	return &DraftResponse{
		Text:       text,
		CitedIDs:   ids,
		Model:      modelName,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

var _ Drafter = (*OpenAIDrafter)(nil)
