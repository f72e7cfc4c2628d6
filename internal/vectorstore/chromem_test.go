package vectorstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docvector/internal/logging"
	"github.com/fyrsmithlabs/docvector/internal/vectorstore"
)

func newTestChromemStore(t *testing.T) (*vectorstore.ChromemStore, string) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "docvector_chromem_test_*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store := openChromemStoreAt(t, tmpDir)
	return store, tmpDir
}

func openChromemStoreAt(t *testing.T, dir string) *vectorstore.ChromemStore {
	t.Helper()

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{Path: dir}, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { store.Close() })
	return store
}

// seedDocsCollection creates a 3-dimensional cosine collection with two
// orthogonal records.
func seedDocsCollection(t *testing.T, store *vectorstore.ChromemStore) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, "docs", 3, vectorstore.MetricCosine))
	count, err := store.Upsert(ctx, "docs", []vectorstore.VectorRecord{
		{ID: "v1", Vector: []float32{1, 0, 0}, Payload: map[string]any{"content": "vector databases store embeddings", "category": "A"}},
		{ID: "v2", Vector: []float32{0, 1, 0}, Payload: map[string]any{"content": "entirely unrelated text", "category": "B"}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestChromemConfig_ApplyDefaults(t *testing.T) {
	cfg := vectorstore.ChromemConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, "~/.config/docvector/vectorstore", cfg.Path)
	assert.False(t, cfg.Compress)
}

func TestChromemStore_UninitializedOperationsFail(t *testing.T) {
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{Path: "/tmp/unused"}, logging.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	createErr := store.CreateCollection(ctx, "docs", 3, vectorstore.MetricCosine)
	assert.ErrorIs(t, createErr, vectorstore.ErrBackendUnavailable)

	_, searchErr := store.Search(ctx, "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 1})
	assert.ErrorIs(t, searchErr, vectorstore.ErrBackendUnavailable)

	assert.False(t, store.CollectionExists(ctx, "docs"))
	assert.ErrorIs(t, store.HealthCheck(ctx), vectorstore.ErrBackendUnavailable)
}

func TestChromemStore_Initialize_Idempotent(t *testing.T) {
	store, _ := newTestChromemStore(t)

	require.NoError(t, store.Initialize(context.Background()))
	require.NoError(t, store.Initialize(context.Background()))
	assert.NoError(t, store.HealthCheck(context.Background()))
}

func TestChromemStore_CloseThenReinitialize(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "docs", 3, vectorstore.MetricCosine))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err := store.Count(ctx, "docs")
	assert.ErrorIs(t, err, vectorstore.ErrBackendUnavailable)

	require.NoError(t, store.Initialize(ctx))
	assert.True(t, store.CollectionExists(ctx, "docs"))
}

func TestChromemStore_CreateCollection(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "docs", 384, vectorstore.MetricCosine))
	assert.True(t, store.CollectionExists(ctx, "docs"))

	info, err := store.GetCollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, "docs", info.Name)
	assert.Equal(t, 384, info.Dimension)
	assert.Equal(t, vectorstore.MetricCosine, info.Metric)
	assert.Equal(t, 0, info.VectorCount)
}

func TestChromemStore_CreateCollection_Duplicate(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "docs", 3, vectorstore.MetricCosine))
	err := store.CreateCollection(ctx, "docs", 3, vectorstore.MetricCosine)
	assert.ErrorIs(t, err, vectorstore.ErrCollectionExists)
}

func TestChromemStore_CreateCollection_Invalid(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		coll      string
		dimension int
		metric    vectorstore.DistanceMetric
		wantErr   error
	}{
		{"zero dimension", "docs", 0, vectorstore.MetricCosine, vectorstore.ErrInvalidArgument},
		{"negative dimension", "docs", -1, vectorstore.MetricCosine, vectorstore.ErrInvalidArgument},
		{"unknown metric", "docs", 3, "manhattan", vectorstore.ErrInvalidMetric},
		{"empty name", "", 3, vectorstore.MetricCosine, vectorstore.ErrInvalidCollectionName},
		{"uppercase name", "Docs", 3, vectorstore.MetricCosine, vectorstore.ErrInvalidCollectionName},
		{"path-like name", "a/b", 3, vectorstore.MetricCosine, vectorstore.ErrInvalidCollectionName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CreateCollection(ctx, tt.coll, tt.dimension, tt.metric)
			assert.ErrorIs(t, err, tt.wantErr)
			// Every validation failure classifies as an invalid argument.
			assert.ErrorIs(t, err, vectorstore.ErrInvalidArgument)
		})
	}
}

func TestChromemStore_CreateCollection_EmptyMetricDefaultsToCosine(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "docs", 3, ""))
	info, err := store.GetCollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, vectorstore.MetricCosine, info.Metric)
}

func TestChromemStore_DeleteCollection(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "docs", 3, vectorstore.MetricCosine))
	require.NoError(t, store.DeleteCollection(ctx, "docs"))
	assert.False(t, store.CollectionExists(ctx, "docs"))

	err := store.DeleteCollection(ctx, "docs")
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)
	assert.ErrorIs(t, err, vectorstore.ErrNotFound)
}

func TestChromemStore_MissingCollection_NeverSilent(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	_, err := store.GetCollectionInfo(ctx, "ghost")
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)

	_, err = store.Upsert(ctx, "ghost", []vectorstore.VectorRecord{{ID: "a", Vector: []float32{1}}})
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)

	_, err = store.Search(ctx, "ghost", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 1})
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)

	_, err = store.Delete(ctx, "ghost", vectorstore.DeleteSelector{IDs: []string{"a"}})
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)

	_, err = store.Count(ctx, "ghost")
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)
}

func TestChromemStore_Upsert_CountReflectsWrites(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	count, err := store.Count(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	info, err := store.GetCollectionInfo(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, info.VectorCount)
}

func TestChromemStore_Upsert_SameIDReplaces(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)
	ctx := context.Background()

	count, err := store.Upsert(ctx, "docs", []vectorstore.VectorRecord{
		{ID: "v1", Vector: []float32{1, 0, 0}, Payload: map[string]any{"content": "updated", "category": "C"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	total, err := store.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, total, "re-upserting an existing ID must replace, not append")

	results, err := store.Search(ctx, "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
	assert.Equal(t, "updated", results[0].Payload["content"])
	assert.Equal(t, "C", results[0].Payload["category"])
}

func TestChromemStore_Upsert_BadDimensionFailsWholeBatch(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "docs", []vectorstore.VectorRecord{
		{ID: "good", Vector: []float32{0, 0, 1}},
		{ID: "bad", Vector: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
	assert.ErrorIs(t, err, vectorstore.ErrInvalidArgument)

	count, err := store.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "failed batch must not write anything")
}

func TestChromemStore_Upsert_InvalidRecords(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "docs", []vectorstore.VectorRecord{{ID: "", Vector: []float32{1, 0, 0}}})
	assert.ErrorIs(t, err, vectorstore.ErrInvalidArgument)

	_, err = store.Upsert(ctx, "docs", []vectorstore.VectorRecord{{ID: "x"}})
	assert.ErrorIs(t, err, vectorstore.ErrInvalidArgument)
}

func TestChromemStore_Upsert_EmptyBatch(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	count, err := store.Upsert(context.Background(), "docs", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestChromemStore_Search_OrdersByScoreDescending(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	results, err := store.Search(context.Background(), "docs", []float32{0.9, 0.1, 0}, vectorstore.SearchOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "v1", results[0].ID)
	assert.Equal(t, "v2", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[0].Score, float32(0.9))
}

func TestChromemStore_Search_LimitOne(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	results, err := store.Search(context.Background(), "docs", []float32{0.9, 0.1, 0}, vectorstore.SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
}

func TestChromemStore_Search_IdenticalVectorScoresOne(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	results, err := store.Search(context.Background(), "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, float64(results[0].Score), 0.01)
}

func TestChromemStore_Search_ScoreThresholdExcludes(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	threshold := float32(0.9)
	results, err := store.Search(context.Background(), "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{
		Limit:          10,
		ScoreThreshold: &threshold,
	})
	require.NoError(t, err)
	require.Len(t, results, 1, "orthogonal vector scores ~0.5 and must fall below the threshold")
	assert.Equal(t, "v1", results[0].ID)
}

func TestChromemStore_Search_EqualityFilter(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	results, err := store.Search(context.Background(), "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{
		Limit:   10,
		Filters: map[string]any{"category": "B"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v2", results[0].ID)
}

func TestChromemStore_Search_OperatorFilterRejected(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	_, err := store.Search(context.Background(), "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{
		Limit:   10,
		Filters: map[string]any{"category": map[string]any{"$in": []any{"A", "B"}}},
	})
	assert.ErrorIs(t, err, vectorstore.ErrInvalidFilter)
}

func TestChromemStore_Search_DimensionMismatch(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	_, err := store.Search(context.Background(), "docs", []float32{1, 0}, vectorstore.SearchOptions{Limit: 1})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestChromemStore_Search_InvalidOptions(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)
	ctx := context.Background()

	_, err := store.Search(ctx, "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 0})
	assert.ErrorIs(t, err, vectorstore.ErrInvalidArgument)

	bad := float32(1.5)
	_, err = store.Search(ctx, "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 1, ScoreThreshold: &bad})
	assert.ErrorIs(t, err, vectorstore.ErrInvalidArgument)
}

func TestChromemStore_Search_LimitAboveCountIsCapped(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	results, err := store.Search(context.Background(), "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestChromemStore_Search_EmptyCollection(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "empty", 3, vectorstore.MetricCosine))
	results, err := store.Search(ctx, "empty", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_Search_WithVectors(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)
	ctx := context.Background()

	results, err := store.Search(ctx, "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 1, WithVectors: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, results[0].Vector, 0.001)

	results, err = store.Search(ctx, "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Vector)
}

func TestChromemStore_Search_EuclideanScores(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "euclid", 2, vectorstore.MetricEuclidean))
	_, err := store.Upsert(ctx, "euclid", []vectorstore.VectorRecord{
		{ID: "same", Vector: []float32{1, 0}},
		{ID: "far", Vector: []float32{0, 1}},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, "euclid", []float32{1, 0}, vectorstore.SearchOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "same", results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 0.01)
	// Unit vectors at 90 degrees sit sqrt(2) apart: 1/(1+sqrt2) ~ 0.414.
	assert.Equal(t, "far", results[1].ID)
	assert.InDelta(t, 0.414, float64(results[1].Score), 0.02)
}

func TestChromemStore_PayloadRoundTrip(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "docs", 2, vectorstore.MetricCosine))
	payload := map[string]any{
		"content":  "chunk text",
		"title":    "Guide",
		"stars":    float64(42),
		"archived": false,
		"tags":     []any{"go", "vectors"},
		"source":   map[string]any{"url": "https://example.com", "depth": float64(2)},
	}
	_, err := store.Upsert(ctx, "docs", []vectorstore.VectorRecord{{ID: "a", Vector: []float32{1, 0}, Payload: payload}})
	require.NoError(t, err)

	results, err := store.Search(ctx, "docs", []float32{1, 0}, vectorstore.SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, payload, results[0].Payload)
}

func TestChromemStore_Delete_ByFilter(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "docs", 2, vectorstore.MetricCosine))
	_, err := store.Upsert(ctx, "docs", []vectorstore.VectorRecord{
		{ID: "a1", Vector: []float32{1, 0}, Payload: map[string]any{"category": "A"}},
		{ID: "a2", Vector: []float32{0, 1}, Payload: map[string]any{"category": "A"}},
		{ID: "a3", Vector: []float32{1, 1}, Payload: map[string]any{"category": "A"}},
		{ID: "b1", Vector: []float32{0.5, 0.5}, Payload: map[string]any{"category": "B"}},
	})
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, "docs", vectorstore.DeleteSelector{
		Filters: map[string]any{"category": "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	count, err := store.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := store.Search(ctx, "docs", []float32{0.5, 0.5}, vectorstore.SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b1", results[0].ID)
}

func TestChromemStore_Delete_ByIDs(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)
	ctx := context.Background()

	deleted, err := store.Delete(ctx, "docs", vectorstore.DeleteSelector{IDs: []string{"v1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = store.Delete(ctx, "docs", vectorstore.DeleteSelector{IDs: []string{"ghost"}})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted, "deleting an unknown ID is a no-op, not an error")

	count, err := store.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChromemStore_Delete_IDsAndFiltersIntersect(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)
	ctx := context.Background()

	// v1 is category A, v2 is category B; the selector names both IDs
	// but only the A record matches the filter.
	deleted, err := store.Delete(ctx, "docs", vectorstore.DeleteSelector{
		IDs:     []string{"v1", "v2"},
		Filters: map[string]any{"category": "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	count, err := store.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, store.CollectionExists(ctx, "docs"))
}

func TestChromemStore_Delete_RequiresSelector(t *testing.T) {
	store, _ := newTestChromemStore(t)
	seedDocsCollection(t, store)

	_, err := store.Delete(context.Background(), "docs", vectorstore.DeleteSelector{})
	assert.ErrorIs(t, err, vectorstore.ErrInvalidArgument)
}

func TestChromemStore_PersistenceAcrossReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "docvector_chromem_reopen_*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	ctx := context.Background()

	first := openChromemStoreAt(t, tmpDir)
	require.NoError(t, first.CreateCollection(ctx, "docs", 3, vectorstore.MetricEuclidean))
	_, err = first.Upsert(ctx, "docs", []vectorstore.VectorRecord{
		{ID: "v1", Vector: []float32{1, 0, 0}, Payload: map[string]any{"content": "persisted"}},
	})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := openChromemStoreAt(t, tmpDir)
	assert.True(t, second.CollectionExists(ctx, "docs"))

	info, err := second.GetCollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Dimension)
	assert.Equal(t, vectorstore.MetricEuclidean, info.Metric)
	assert.Equal(t, 1, info.VectorCount)

	results, err := second.Search(ctx, "docs", []float32{1, 0, 0}, vectorstore.SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
	assert.Equal(t, "persisted", results[0].Payload["content"])
}

func TestChromemStore_ListCollections_Sorted(t *testing.T) {
	store, _ := newTestChromemStore(t)
	ctx := context.Background()

	for _, name := range []string{"zebra", "alpha", "mid"} {
		require.NoError(t, store.CreateCollection(ctx, name, 2, vectorstore.MetricCosine))
	}

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zebra"}, names)
}
