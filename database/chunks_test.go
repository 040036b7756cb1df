package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/medrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunksNewChunksDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewChunksDBHandler", func(t *testing.T) {
		chunksDbHandler, err := NewChunksDBHandler(database, 8, true)
		assert.NoError(t, err, "Expected NewChunksDBHandler to not return an error")
		require.NotNil(t, chunksDbHandler, "Expected NewChunksDBHandler to return a non-nil instance")
		require.NotNil(t, chunksDbHandler.db, "Expected NewChunksDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewChunksDBHandler with nil database", func(t *testing.T) {
		_, err := NewChunksDBHandler(nil, 8, false)
		assert.Error(t, err, "Expected error when creating ChunksDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})

	t.Run("Invalid call NewChunksDBHandler with zero dimension", func(t *testing.T) {
		_, err := NewChunksDBHandler(database, 0, false)
		assert.Error(t, err, "Expected error for non positive dimension")
	})
}

func TestChunksEnsureCollection(t *testing.T) {
	database := initDB(t)
	chunksDbHandler, err := NewChunksDBHandler(database, 8, true)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Create collection", func(t *testing.T) {
		name := "collection_" + uuid.NewString()
		collection, err := chunksDbHandler.EnsureCollection(ctx, name, "cosine")
		require.NoError(t, err)
		assert.Equal(t, name, collection.Name)
		assert.Equal(t, 8, collection.Dimension)
		assert.Equal(t, "cosine", collection.Metric)
		assert.False(t, collection.CreatedAt.IsZero())
	})

	t.Run("Ensure collection twice keeps data", func(t *testing.T) {
		name := "collection_" + uuid.NewString()
		first, err := chunksDbHandler.EnsureCollection(ctx, name, "cosine")
		require.NoError(t, err)

		inserted, err := chunksDbHandler.InsertChunk(ctx, name, model.NewChunk("Fever is a common symptom of infection.", unitVector(8, 0)))
		require.NoError(t, err)
		require.True(t, inserted)

		second, err := chunksDbHandler.EnsureCollection(ctx, name, "cosine")
		require.NoError(t, err)
		assert.Equal(t, first.CreatedAt, second.CreatedAt, "Expected the existing collection to be returned")

		count, err := chunksDbHandler.CountChunks(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "Expected existing chunks to survive")
	})

	t.Run("Metric mismatch is rejected", func(t *testing.T) {
		name := "collection_" + uuid.NewString()
		_, err := chunksDbHandler.EnsureCollection(ctx, name, "cosine")
		require.NoError(t, err)

		_, err = chunksDbHandler.EnsureCollection(ctx, name, "l2")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "uses metric")
	})
}

func TestChunksInsert(t *testing.T) {
	database := initDB(t)
	chunksDbHandler, err := NewChunksDBHandler(database, 8, true)
	require.NoError(t, err)
	ctx := context.Background()

	name := "collection_" + uuid.NewString()
	_, err = chunksDbHandler.EnsureCollection(ctx, name, "cosine")
	require.NoError(t, err)

	t.Run("Insert new chunk", func(t *testing.T) {
		inserted, err := chunksDbHandler.InsertChunk(ctx, name, &model.Chunk{ID: "doc_0", Content: "Fever is a common symptom of infection.", Embedding: unitVector(8, 0)})
		assert.NoError(t, err, "Expected InsertChunk to not return an error")
		assert.True(t, inserted, "Expected chunk to be inserted")
	})

	t.Run("Insert existing id is a no-op", func(t *testing.T) {
		inserted, err := chunksDbHandler.InsertChunk(ctx, name, &model.Chunk{ID: "doc_0", Content: "Changed text", Embedding: unitVector(8, 1)})
		assert.NoError(t, err)
		assert.False(t, inserted, "Expected duplicate id to be skipped")

		chunks, err := chunksDbHandler.SelectChunksBySimilarity(ctx, name, unitVector(8, 0), 1, "cosine")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Fever is a common symptom of infection.", chunks[0].Content, "Expected original content to be kept")
	})

	t.Run("Insert with wrong dimension fails", func(t *testing.T) {
		_, err := chunksDbHandler.InsertChunk(ctx, name, &model.Chunk{ID: "doc_x", Content: "x", Embedding: []float32{1, 2}})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "dimension mismatch")
	})

	t.Run("Select ids returns inserted ids", func(t *testing.T) {
		_, err := chunksDbHandler.InsertChunk(ctx, name, &model.Chunk{ID: "doc_1", Content: "Hydration helps recovery.", Embedding: unitVector(8, 1)})
		require.NoError(t, err)

		ids, err := chunksDbHandler.SelectChunkIDs(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []string{"doc_0", "doc_1"}, ids)
	})
}

func TestChunksSelectBySimilarity(t *testing.T) {
	database := initDB(t)
	chunksDbHandler, err := NewChunksDBHandler(database, 8, true)
	require.NoError(t, err)
	ctx := context.Background()

	name := "collection_" + uuid.NewString()
	_, err = chunksDbHandler.EnsureCollection(ctx, name, "cosine")
	require.NoError(t, err)

	t.Run("Empty collection returns empty result", func(t *testing.T) {
		chunks, err := chunksDbHandler.SelectChunksBySimilarity(ctx, name, unitVector(8, 0), 3, "cosine")
		assert.NoError(t, err)
		assert.Empty(t, chunks)
	})

	texts := []string{"Fever is a common symptom of infection.", "Hydration helps recovery.", "Rest supports the immune system."}
	for i, text := range texts {
		_, err := chunksDbHandler.InsertChunk(ctx, name, &model.Chunk{ID: "doc_" + string(rune('0'+i)), Content: text, Embedding: unitVector(8, i)})
		require.NoError(t, err)
	}

	t.Run("Nearest chunk is returned first", func(t *testing.T) {
		chunks, err := chunksDbHandler.SelectChunksBySimilarity(ctx, name, unitVector(8, 0), 1, "cosine")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Fever is a common symptom of infection.", chunks[0].Content)
		assert.InDelta(t, 0.0, chunks[0].Distance, 0.0001)
	})

	t.Run("Fewer results than limit when collection is small", func(t *testing.T) {
		chunks, err := chunksDbHandler.SelectChunksBySimilarity(ctx, name, unitVector(8, 0), 10, "cosine")
		require.NoError(t, err)
		assert.Len(t, chunks, 3)
		for i := 1; i < len(chunks); i++ {
			assert.LessOrEqual(t, chunks[i-1].Distance, chunks[i].Distance, "Expected ascending distance")
		}
	})

	t.Run("Non positive limit is rejected", func(t *testing.T) {
		_, err := chunksDbHandler.SelectChunksBySimilarity(ctx, name, unitVector(8, 0), 0, "cosine")
		assert.Error(t, err)
	})
}
