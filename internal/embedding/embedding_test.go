package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nurpath/nurpath/internal/cache"
	"github.com/nurpath/nurpath/internal/model"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashProvider_DeterministicAndNormalized(t *testing.T) {
	p := NewHashProvider(64)
	ctx := context.Background()

	a, err := EmbedOne(ctx, p, "Wash your faces for wudu", ModePassage)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := EmbedOne(ctx, p, "wash YOUR faces, for wudu!", ModeQuery)
	if len(a) != 64 {
		t.Fatalf("Expected 64 dimensions, got %d", len(a))
	}
	if sim := cosine(a, b); sim < 0.999 {
		t.Errorf("Expected normalized variants to match, similarity %.3f", sim)
	}

	var norm float64
	for _, f := range a {
		norm += float64(f) * float64(f)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("Expected unit vector, norm² = %f", norm)
	}

	related, _ := EmbedOne(ctx, p, "wudu before prayer", ModeQuery)
	unrelated, _ := EmbedOne(ctx, p, "history of Andalusia", ModeQuery)
	if cosine(a, related) <= cosine(a, unrelated) {
		t.Error("Expected shared tokens to raise similarity")
	}
}

func TestHashProvider_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashProvider(8).Embed(ctx, []string{"x"}, ModeQuery); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPrefix(t *testing.T) {
	if Prefix("intfloat/multilingual-e5-small", ModeQuery) != "query: " {
		t.Error("Expected query prefix for e5 model")
	}
	if Prefix("intfloat/multilingual-e5-small", ModePassage) != "passage: " {
		t.Error("Expected passage prefix for e5 model")
	}
	if Prefix("text-embedding-3-small", ModeQuery) != "" {
		t.Error("Expected no prefix for non-e5 model")
	}
}

type countingProvider struct {
	dim   int
	calls atomic.Int32
	texts atomic.Int32
}

func (p *countingProvider) Name() string   { return "counting" }
func (p *countingProvider) Model() string  { return "m" }
func (p *countingProvider) Dimension() int { return p.dim }
func (p *countingProvider) Embed(_ context.Context, texts []string, _ Mode) ([][]float32, error) {
	p.calls.Add(1)
	p.texts.Add(int32(len(texts)))
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, p.dim)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func TestCachedProvider_OnlyEmbedsMisses(t *testing.T) {
	inner := &countingProvider{dim: 4}
	p := NewCachedProvider(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0, nil)
	ctx := context.Background()

	if _, err := p.Embed(ctx, []string{"a", "bb"}, ModePassage); err != nil {
		t.Fatal(err)
	}
	vecs, err := p.Embed(ctx, []string{"bb", "ccc", "a"}, ModePassage)
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls.Load() != 2 || inner.texts.Load() != 3 {
		t.Errorf("Expected 2 calls embedding 3 texts, got %d calls %d texts", inner.calls.Load(), inner.texts.Load())
	}
	if vecs[0][0] != 2 || vecs[1][0] != 3 || vecs[2][0] != 1 {
		t.Errorf("Vectors out of order: %v", vecs)
	}

	// Query mode is a different key
	_, _ = p.Embed(ctx, []string{"a"}, ModeQuery)
	if inner.calls.Load() != 3 {
		t.Error("Expected query mode to miss the passage cache")
	}
}

func TestOpenAIProvider_Embed(t *testing.T) {
	var gotInputs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("Expected path /v1/embeddings, got %s", r.URL.Path)
		}
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotInputs = append(gotInputs, req.Input...)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[len(req.Input)-1-i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(i), 0, 0}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "e5"})
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/v1", Model: "multilingual-e5-base", Dimension: 3, BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := p.Embed(context.Background(), []string{"a", "b", "c"}, ModePassage)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vecs) != 3 || vecs[1][0] != 1 || vecs[2][0] != 0 {
		t.Errorf("Unexpected vectors %v", vecs)
	}
	if len(gotInputs) != 3 || gotInputs[0] != "passage: a" {
		t.Errorf("Expected prefixed inputs, got %v", gotInputs)
	}
}

func TestOpenAIProvider_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{{"index": 0, "embedding": []float32{1, 2}}}})
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/v1", Model: "m", Dimension: 3})
	_, err := p.Embed(context.Background(), []string{"a"}, ModeQuery)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}
}

func TestOllamaProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("Expected path /api/embed, got %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := ollamaEmbedResponse{Model: req.Model}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.1, 0.2})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewOllamaProvider(OllamaConfig{BaseURL: server.URL, Model: "nomic-embed-text", Dimension: 2, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := p.Embed(context.Background(), []string{"x", "y"}, ModeQuery)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("Expected 2 vectors, got %d", len(vecs))
	}
}

func TestOllamaProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(OllamaConfig{BaseURL: server.URL, Model: "missing", Dimension: 2})
	if _, err := p.Embed(context.Background(), []string{"x"}, ModeQuery); err == nil {
		t.Error("Expected error from API")
	}
}

func TestNewProvider_FallsBackToHash(t *testing.T) {
	p, err := NewProvider(model.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimension: 128}, Options{})
	if err != nil {
		t.Fatalf("Expected fallback, got error %v", err)
	}
	if p.Name() != "hash" || p.Dimension() != 128 {
		t.Errorf("Expected hash fallback with 128 dims, got %s/%d", p.Name(), p.Dimension())
	}

	p, _ = NewProvider(model.EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text", Dimension: 768},
		Options{Cache: cache.NewMemoryCache(time.Minute, time.Minute)})
	if _, ok := p.(*CachedProvider); !ok {
		t.Errorf("Expected cached ollama provider, got %T", p)
	}
}
