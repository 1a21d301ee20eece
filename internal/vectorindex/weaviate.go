package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// passageNamespace seeds deterministic object ids so re-indexing a passage
// overwrites its previous vector
var passageNamespace = uuid.MustParse("6f1c9a52-4d0e-4b8a-9a57-3c2d8e1f0b44")

// WeaviateIndex stores passage vectors in a Weaviate class with no
// vectorizer; vectors always come from the embedding provider
type WeaviateIndex struct {
	client *weaviate.Client
	class  string
	logger *slog.Logger
}

// NewWeaviateIndex connects to Weaviate and ensures the class exists
func NewWeaviateIndex(ctx context.Context, cfg model.IndexConfig, logger *slog.Logger) (*WeaviateIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid weaviate url %q", cfg.URL)
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsed.Host,
		Scheme: parsed.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	idx := &WeaviateIndex{client: client, class: cfg.Class, logger: logger}
	if err := idx.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// PassageClass returns the schema of the passage class
func PassageClass(name string) *models.Class {
	return &models.Class{
		Class:       name,
		Description: "Citable passages with externally computed embeddings",
		Vectorizer:  "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: "passage_id", DataType: []string{"text"}, Tokenization: "field", Description: "Catalog passage id"},
			{Name: "source_id", DataType: []string{"text"}, Tokenization: "field", Description: "Catalog source id"},
			{Name: "source_type", DataType: []string{"text"}, Tokenization: "field", Description: "quran, hadith or fiqh"},
		},
	}
}

// ObjectID derives the Weaviate object id of a passage
func ObjectID(passageID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(passageNamespace, []byte(passageID)).String())
}

func (w *WeaviateIndex) ensureSchema(ctx context.Context) error {
	if _, err := w.client.Schema().ClassGetter().WithClassName(w.class).Do(ctx); err == nil {
		return nil
	}
	w.logger.Info("creating weaviate class", "class", w.class)
	if err := w.client.Schema().ClassCreator().WithClass(PassageClass(w.class)).Do(ctx); err != nil {
		return fmt.Errorf("failed to create weaviate class %s: %w", w.class, err)
	}
	return nil
}

func (w *WeaviateIndex) Name() string { return "weaviate" }

// Upsert writes records in one batch; existing ids are replaced
func (w *WeaviateIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	objects := make([]*models.Object, len(records))
	for i, r := range records {
		objects[i] = &models.Object{
			Class:  w.class,
			ID:     ObjectID(r.ID),
			Vector: r.Vector,
			Properties: map[string]interface{}{
				"passage_id":  r.ID,
				"source_id":   r.SourceID,
				"source_type": string(r.SourceType),
			},
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to save objects to weaviate: %w", err)
	}

	var failures []string
	for _, item := range resp {
		if item.Result != nil && item.Result.Errors != nil {
			for _, e := range item.Result.Errors.Error {
				failures = append(failures, e.Message)
			}
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("weaviate rejected %d objects: %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

type searchResponse struct {
	Get map[string][]struct {
		PassageID  string `json:"passage_id"`
		Additional struct {
			Distance *float64  `json:"distance"`
			Vector   []float32 `json:"vector"`
		} `json:"_additional"`
	} `json:"Get"`
}

// Search runs a nearVector query; score is 1 - cosine distance
func (w *WeaviateIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	fields := []graphql.Field{
		{Name: "passage_id"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	resp, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	parsed, err := parseGraphQL[searchResponse](resp)
	if err != nil {
		return nil, err
	}
	return hitsFromResponse(parsed, w.class), nil
}

func hitsFromResponse(parsed *searchResponse, class string) []Hit {
	rows := parsed.Get[class]
	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		if row.PassageID == "" || row.Additional.Distance == nil {
			continue
		}
		hits = append(hits, Hit{ID: row.PassageID, Score: 1 - *row.Additional.Distance})
	}
	return hits
}

// Dimension reads the vector of one stored object
func (w *WeaviateIndex) Dimension(ctx context.Context) (int, error) {
	resp, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(graphql.Field{Name: "passage_id"}, graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "vector"}}}).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate dimension probe failed: %w", err)
	}
	parsed, err := parseGraphQL[searchResponse](resp)
	if err != nil {
		return 0, err
	}
	rows := parsed.Get[w.class]
	if len(rows) == 0 {
		return 0, nil
	}
	return len(rows[0].Additional.Vector), nil
}

type aggregateResponse struct {
	Aggregate map[string][]struct {
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	} `json:"Aggregate"`
}

// Count aggregates the object count of the class
func (w *WeaviateIndex) Count(ctx context.Context) (int, error) {
	resp, err := w.client.GraphQL().Aggregate().
		WithClassName(w.class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate count failed: %w", err)
	}
	parsed, err := parseGraphQL[aggregateResponse](resp)
	if err != nil {
		return 0, err
	}
	rows := parsed.Aggregate[w.class]
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Meta.Count, nil
}

// Ping uses the readiness endpoint
func (w *WeaviateIndex) Ping(ctx context.Context) error {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate readiness check failed: %w", err)
	}
	if !ready {
		return errors.New("weaviate is not ready")
	}
	return nil
}

// Reset drops and recreates the class
func (w *WeaviateIndex) Reset(ctx context.Context) error {
	if err := w.client.Schema().ClassDeleter().WithClassName(w.class).Do(ctx); err != nil {
		w.logger.Warn("weaviate class delete failed", "class", w.class, "error", err)
	}
	return w.ensureSchema(ctx)
}

// parseGraphQL decodes a GraphQL response into T, surfacing query errors
func parseGraphQL[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, errors.New("nil GraphQL response")
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			if e != nil {
				msgs = append(msgs, e.Message)
			}
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal GraphQL response: %w", err)
	}
	return &out, nil
}
