package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/nurpath/nurpath/internal/worker"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider embeds text through an OpenAI-compatible embeddings API
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	dim       int
	baseURL   string
	timeout   time.Duration
	batchSize int
	limiter   *worker.Limiter
}

// OpenAIConfig configures an OpenAIProvider
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
	BatchSize int
	Limiter   *worker.Limiter // Optional
}

// NewOpenAIProvider creates a new OpenAI embedding provider
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("OpenAI embedding model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		dim:       cfg.Dimension,
		baseURL:   clientConfig.BaseURL,
		timeout:   cfg.Timeout,
		batchSize: cfg.BatchSize,
		limiter:   cfg.Limiter,
	}, nil
}

func (p *OpenAIProvider) Name() string   { return "openai" }
func (p *OpenAIProvider) Model() string  { return p.model }
func (p *OpenAIProvider) Dimension() int { return p.dim }

// Embed sends texts in batches and checks the returned dimension
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	prefix := Prefix(p.model, mode)

	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		batch := make([]string, 0, end-start)
		for _, t := range texts[start:end] {
			batch = append(batch, prefix+t)
		}

		vecs, err := p.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (p *OpenAIProvider) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, p.baseURL); err != nil {
			return nil, err
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input: batch,
		Model: openai.EmbeddingModel(p.model),
	}
	if p.dim > 0 {
		req.Dimensions = p.dim
	}

	resp, err := p.client.CreateEmbeddings(ctxWithTimeout, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI embeddings error: %w", err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), len(batch))
	}

	vecs := make([][]float32, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(batch) {
			return nil, fmt.Errorf("OpenAI returned out-of-range embedding index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	if err := checkDimensions(vecs, p.dim); err != nil {
		return nil, err
	}
	return vecs, nil
}
