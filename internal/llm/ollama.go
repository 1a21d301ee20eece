package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/util"
)

// OllamaDrafter drafts answers with a local Ollama model
type OllamaDrafter struct {
	baseURL    string
	httpClient *http.Client
	config     model.LLMConfig
	logger     *slog.Logger
}

// Ollama API structures
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaDrafter creates an Ollama drafter. Proxies come from httpCfg.
func NewOllamaDrafter(config model.LLMConfig, httpCfg model.HTTPConfig, logger *slog.Logger) (*OllamaDrafter, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, qwen2.5)")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OllamaDrafter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
		},
		config: config,
		logger: logger,
	}, nil
}

// Name returns the drafter name
func (d *OllamaDrafter) Name() string {
	return "ollama"
}

// IsAvailable checks that Ollama answers its model listing
func (d *OllamaDrafter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/api/tags", nil)
	if err != nil {
		d.logger.Warn("Ollama availability check failed", "error", err)
		return false
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Warn("Ollama availability check failed", "url", d.baseURL, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		d.logger.Warn("Ollama availability check failed", "url", d.baseURL, "status", resp.StatusCode)
		return false
	}
	return true
}

// Draft generates an answer and rejects it if it cites passages outside
// the request's cards
func (d *OllamaDrafter) Draft(ctx context.Context, req DraftRequest) (*DraftResponse, error) {
	maxTokens := d.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 600
	}

	resp, err := d.generate(ctx, ollamaRequest{
		Model:  d.config.Model,
		Prompt: BuildPrompt(req),
		System: SystemPrompt(req.Language),
		Options: ollamaOptions{
			Temperature: d.config.Temperature,
			NumPredict:  maxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	text := strings.TrimSpace(resp.Response)
	ids, err := CheckCitations(text, req.Cards)
	if err != nil {
		return nil, err
	}

	return &DraftResponse{
		Text:       text,
		CitedIDs:   ids,
		Model:      resp.Model,
		TokensUsed: resp.PromptEvalCount + resp.EvalCount,
	}, nil
}

func (d *OllamaDrafter) generate(ctx context.Context, apiReq ollamaRequest) (*ollamaResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

var _ Drafter = (*OllamaDrafter)(nil)
