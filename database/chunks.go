package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
	loadSql "github.com/siherrmann/medrag/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	EnsureCollection(ctx context.Context, name string, metric string) (*Collection, error)
	InsertChunk(ctx context.Context, collection string, chunk *model.Chunk) (bool, error)
	SelectChunkIDs(ctx context.Context, collection string) ([]string, error)
	CountChunks(ctx context.Context, collection string) (int, error)
	SelectChunksBySimilarity(ctx context.Context, collection string, embedding []float32, limit int, metric string) ([]*model.Chunk, error)
}

// Collection is a named set of chunks as stored in the collections table.
type Collection struct {
	Name      string
	Dimension int
	Metric    string
	CreatedAt time.Time
}

// ChunksDBHandler handles collection and chunk related database operations
type ChunksDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewChunksDBHandler creates a new chunks database handler.
// It loads the chunk related SQL functions and creates the tables.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	chunksDbHandler := &ChunksDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler", slog.Int("embedding_dim", embeddingDim))

	return chunksDbHandler, nil
}

// CreateTable creates the 'collections' and 'chunks' tables in the database.
// Existing tables are left untouched.
func (h *ChunksDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, h.embeddingDim)
	if err != nil {
		return helper.NewError("init chunks", err)
	}

	h.db.Logger.Info("Checked/created tables collections and chunks")

	return nil
}

// EnsureCollection creates the collection if it doesn't exist and returns it.
// An existing collection with a different dimension or metric is an error.
func (h *ChunksDBHandler) EnsureCollection(ctx context.Context, name string, metric string) (*Collection, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM ensure_collection($1, $2, $3)`,
		name,
		h.embeddingDim,
		metric,
	)

	collection := &Collection{}
	err := row.Scan(
		&collection.Name,
		&collection.Dimension,
		&collection.Metric,
		&collection.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	if collection.Dimension != h.embeddingDim {
		return nil, helper.NewError("ensure collection", fmt.Errorf("collection %q has dimension %d, encoder produces %d", name, collection.Dimension, h.embeddingDim))
	}
	if collection.Metric != metric {
		return nil, helper.NewError("ensure collection", fmt.Errorf("collection %q uses metric %q, requested %q", name, collection.Metric, metric))
	}

	return collection, nil
}

// InsertChunk inserts a chunk into the collection.
// It returns false without error when a chunk with the same id already exists.
func (h *ChunksDBHandler) InsertChunk(ctx context.Context, collection string, chunk *model.Chunk) (bool, error) {
	if len(chunk.Embedding) != h.embeddingDim {
		return false, helper.NewError("insert chunk", fmt.Errorf("chunk %q dimension mismatch (got %d want %d)", chunk.ID, len(chunk.Embedding), h.embeddingDim))
	}

	var inserted bool
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT insert_chunk($1, $2, $3, $4)`,
		collection,
		chunk.ID,
		chunk.Content,
		pgvector.NewVector(chunk.Embedding),
	).Scan(&inserted)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return inserted, nil
}

// SelectChunkIDs returns the ids of all chunks in the collection, sorted.
func (h *ChunksDBHandler) SelectChunkIDs(ctx context.Context, collection string) ([]string, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chunk_ids($1)`,
		collection,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, helper.NewError("scan", err)
		}
		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return ids, nil
}

// CountChunks returns the number of chunks in the collection.
func (h *ChunksDBHandler) CountChunks(ctx context.Context, collection string) (int, error) {
	var count sql.NullInt64
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT count_chunks($1)`,
		collection,
	).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return int(count.Int64), nil
}

// SelectChunksBySimilarity returns up to limit chunks ordered by ascending distance to the embedding.
// metric is either "cosine" or "l2" and must match the collection.
func (h *ChunksDBHandler) SelectChunksBySimilarity(ctx context.Context, collection string, embedding []float32, limit int, metric string) ([]*model.Chunk, error) {
	if limit <= 0 {
		return nil, helper.NewError("select chunks by similarity", errors.New("limit must be positive"))
	}
	if len(embedding) != h.embeddingDim {
		return nil, helper.NewError("select chunks by similarity", fmt.Errorf("query dimension mismatch (got %d want %d)", len(embedding), h.embeddingDim))
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3, $4)`,
		collection,
		pgvector.NewVector(embedding),
		limit,
		metric,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	chunks := []*model.Chunk{}
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.Content,
			&chunk.CreatedAt,
			&chunk.Distance,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}
