package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/embedding"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/observability"
	"github.com/nurpath/nurpath/internal/pipeline"
	"github.com/nurpath/nurpath/internal/retrieval"
	"github.com/nurpath/nurpath/internal/vectorindex"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// askBody decodes the parts of an ask response the tests inspect.
// Reference is an interface and does not round-trip through JSON.
type askBody struct {
	RequestID     string `json:"request_id"`
	SessionID     string `json:"session_id"`
	Abstained     bool   `json:"abstained"`
	SafetyNotice  string `json:"safety_notice"`
	EvidenceCards []struct {
		PassageID string `json:"passage_id"`
	} `json:"evidence_cards"`
	OpinionComparison []model.OpinionStance  `json:"opinion_comparison"`
	Validation        model.ValidationResult `json:"validation"`
	Stages            []string               `json:"stages"`
}

type sourceBody struct {
	Source   model.SourceDocument `json:"source"`
	Passages []struct {
		ID       string `json:"id"`
		SourceID string `json:"source_id"`
	} `json:"passages"`
}

func newTestServer(t *testing.T) (*Server, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.LoadFile("../../data/catalog.yaml")
	require.NoError(t, err)

	embedder := embedding.NewHashProvider(64)
	index := vectorindex.NewMemoryIndex()
	_, err = retrieval.NewIndexer(embedder, index, 8, 2, nil).Index(context.Background(), cat, false)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	store := catalog.NewStore(cat)
	cfg := model.DefaultConfig()
	p := pipeline.New(pipeline.Deps{
		Store:    store,
		Embedder: embedder,
		Index:    index,
		Metrics:  observability.NewMetrics(reg),
	}, cfg.Retrieval, cfg.Thresholds)

	return New(p, store, cfg.Server, Options{Gatherer: reg}), cat
}

func do(t *testing.T, s *Server, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", nil, map[string]string{"X-Request-ID": "req-42"})

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestAsk_Answer(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/ask", model.AskRequest{
		Question:  "What are wudu evidences from Quran and Sunnah?",
		Language:  "en",
		SessionID: "abc",
	}, map[string]string{"X-Request-ID": "req-ask"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp askBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-ask", resp.RequestID)
	assert.Equal(t, "abc", resp.SessionID)
	assert.False(t, resp.Abstained)
	assert.NotEmpty(t, resp.EvidenceCards)
	assert.Equal(t, model.ReasonPassed, resp.Validation.Reason)
	assert.Len(t, resp.Stages, 6)
}

func TestAsk_SafetyAbstentionIsNotAnError(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/ask", model.AskRequest{Question: "Give me a specific fatwa about my divorce"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp askBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Abstained)
	assert.Equal(t, model.ReasonAbstainedBySafety, resp.Validation.Reason)
	assert.NotEmpty(t, resp.SafetyNotice)
	assert.Empty(t, resp.OpinionComparison)
}

func TestAsk_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		wantErr string
	}{
		{"malformed json", `{"question":`, "invalid request body"},
		{"missing question", model.AskRequest{}, "question fails required"},
		{"blank question", model.AskRequest{Question: "   "}, "question fails required"},
		{"unsupported language", model.AskRequest{Question: "What is wudu?", Language: "fr"}, "language fails oneof"},
		{"unknown madhhab", model.AskRequest{Question: "What is wudu?", Madhhab: "other"}, "madhhab fails oneof"},
		{"top k too large", model.AskRequest{Question: "What is wudu?", TopK: 99}, "topk fails max=20"},
	}

	s, _ := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/v1/ask", tt.body, map[string]string{"X-Request-ID": "bad-1"})

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body.Error, tt.wantErr)
			assert.Equal(t, "bad-1", body.RequestID)
		})
	}
}

func TestSources(t *testing.T) {
	s, cat := newTestServer(t)

	w := do(t, s, http.MethodGet, "/v1/sources", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all SourcesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, len(cat.Sources()), all.Count)

	w = do(t, s, http.MethodGet, "/v1/sources?source_type=hadith", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hadith SourcesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hadith))
	assert.Equal(t, 3, hadith.Count)
	for _, src := range hadith.Sources {
		assert.Equal(t, model.SourceHadith, src.SourceType)
	}

	w = do(t, s, http.MethodGet, "/v1/sources?authenticity_level=unknown", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSourceByID(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/v1/sources/quran?ui_language=ar", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp sourceBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "القرآن الكريم", resp.Source.Title)
	assert.Len(t, resp.Passages, 4)
	for _, p := range resp.Passages {
		assert.Equal(t, "quran", p.SourceID)
	}

	w = do(t, s, http.MethodGet, "/v1/sources/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestRetrievalHealthAndDiagnostics(t *testing.T) {
	s, cat := newTestServer(t)

	w := do(t, s, http.MethodGet, "/v1/health/retrieval", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var h model.RetrievalHealth
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.True(t, h.OK)
	assert.True(t, h.IndexConnected)
	assert.True(t, h.StoreConnected)
	assert.Equal(t, cat.Len(), h.IndexedPassages)
	assert.False(t, h.ReindexRequired)

	w = do(t, s, http.MethodGet, "/v1/diagnostics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Contains(t, d, "thresholds")
	assert.Contains(t, d, "health")
	assert.Equal(t, "template", d["drafter"])
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/ask", model.AskRequest{Question: "What is wudu?"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nurpath_ask_total")
	assert.Contains(t, w.Body.String(), "nurpath_stage_duration_seconds")
}
