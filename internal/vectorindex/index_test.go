package vectorindex

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestMemoryIndex_SearchOrdersByScoreThenID(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Upsert(ctx, []Record{
		{ID: "b", Vector: []float32{1, 0}},
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "c", Vector: []float32{0, 1}},
		{ID: "d", Vector: []float32{-1, 0}},
	}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
	assert.Equal(t, "c", hits[2].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)

	dim, _ := idx.Dimension(ctx)
	assert.Equal(t, 2, dim)
	n, _ := idx.Count(ctx)
	assert.Equal(t, 4, n)
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 0, 0}}}))

	err := idx.Upsert(ctx, []Record{{ID: "b", Vector: []float32{1, 0}}})
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	n, _ := idx.Count(ctx)
	assert.Equal(t, 1, n, "failed upsert must not publish partial state")
}

func TestMemoryIndex_ConcurrentUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Upsert(ctx, []Record{{ID: "seed", Vector: []float32{1, 1}}}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = idx.Upsert(ctx, []Record{{ID: string(rune('a' + i)), Vector: []float32{float32(i), 1}}})
		}(i)
		go func() {
			defer wg.Done()
			hits, err := idx.Search(ctx, []float32{1, 1}, 10)
			assert.NoError(t, err)
			assert.NotEmpty(t, hits)
		}()
	}
	wg.Wait()

	n, _ := idx.Count(ctx)
	assert.Equal(t, 5, n)
	require.NoError(t, idx.Reset(ctx))
	n, _ = idx.Count(ctx)
	assert.Zero(t, n)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-2, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
}

func TestObjectIDIsDeterministic(t *testing.T) {
	assert.Equal(t, ObjectID("q-5-6"), ObjectID("q-5-6"))
	assert.NotEqual(t, ObjectID("q-5-6"), ObjectID("q-5-7"))
}

func TestPassageClass(t *testing.T) {
	class := PassageClass("NurpathPassage")
	assert.Equal(t, "none", class.Vectorizer)
	names := make([]string, 0, len(class.Properties))
	for _, p := range class.Properties {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"passage_id", "source_id", "source_type"}, names)
}

func TestParseSearchResponse(t *testing.T) {
	resp := &models.GraphQLResponse{Data: map[string]models.JSONObject{
		"Get": map[string]interface{}{
			"NurpathPassage": []interface{}{
				map[string]interface{}{"passage_id": "q-5-6", "_additional": map[string]interface{}{"distance": 0.25}},
				map[string]interface{}{"passage_id": "b-135", "_additional": map[string]interface{}{"distance": 0.5}},
				map[string]interface{}{"passage_id": "", "_additional": map[string]interface{}{"distance": 0.1}},
			},
		},
	}}

	parsed, err := parseGraphQL[searchResponse](resp)
	require.NoError(t, err)
	hits := hitsFromResponse(parsed, "NurpathPassage")
	require.Len(t, hits, 2)
	assert.Equal(t, "q-5-6", hits[0].ID)
	assert.InDelta(t, 0.75, hits[0].Score, 1e-9)

	_, err = parseGraphQL[searchResponse](&models.GraphQLResponse{Errors: []*models.GraphQLError{{Message: "class not found"}}})
	assert.ErrorContains(t, err, "class not found")
}
