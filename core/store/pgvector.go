package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/siherrmann/medrag/database"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
	loadSql "github.com/siherrmann/medrag/sql"
)

// pgClient stores collections in postgres with the pgvector extension.
type pgClient struct {
	mu          sync.Mutex
	db          *helper.Database
	handler     database.ChunksDBHandlerFunctions
	dimension   int
	metric      string
	collections map[string]*pgCollection
}

func newPGVectorClient(ctx context.Context, config *Config) (*pgClient, error) {
	dbConfig := config.Database
	if dbConfig == nil {
		var err error
		dbConfig, err = helper.NewDatabaseConfiguration()
		if err != nil {
			return nil, fmt.Errorf("pgvector: %w", err)
		}
	}

	db, err := helper.NewDatabase("medrag", dbConfig, config.Logger)
	if err != nil {
		return nil, fmt.Errorf("pgvector: %w", err)
	}

	if err := loadSql.Init(db.Instance); err != nil {
		return nil, errors.Join(fmt.Errorf("pgvector: %w", err), db.Close())
	}

	handler, err := database.NewChunksDBHandler(db, config.Dimension, false)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("pgvector: %w", err), db.Close())
	}

	if config.Index != "" || config.Metric != MetricCosine {
		indexType := config.Index
		if indexType == "" {
			indexType = "hnsw"
		}
		err = handler.ChangeIndexType(ctx, indexType, config.Metric, nil)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("pgvector: %w", err), db.Close())
		}
	}

	return &pgClient{
		db:          db,
		handler:     handler,
		dimension:   config.Dimension,
		metric:      config.Metric,
		collections: map[string]*pgCollection{},
	}, nil
}

func (c *pgClient) EnsureCollection(ctx context.Context, name string) (Collection, error) {
	if err := validateCollectionName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStoreInit, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if collection, ok := c.collections[name]; ok {
		return collection, nil
	}

	if _, err := c.handler.EnsureCollection(ctx, name, c.metric); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStoreInit, err)
	}

	collection := &pgCollection{
		name:      name,
		handler:   c.handler,
		dimension: c.dimension,
		metric:    c.metric,
	}
	c.collections[name] = collection

	return collection, nil
}

func (c *pgClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections = map[string]*pgCollection{}
	return c.db.Close()
}

type pgCollection struct {
	name      string
	handler   database.ChunksDBHandlerFunctions
	dimension int
	metric    string
}

func (s *pgCollection) Name() string {
	return s.name
}

func (s *pgCollection) Upsert(ctx context.Context, chunks []*model.Chunk) (int, error) {
	for _, chunk := range chunks {
		if err := validateChunk(chunk, s.dimension); err != nil {
			return 0, fmt.Errorf("pgvector: %w", err)
		}
	}

	inserted := 0
	for _, chunk := range chunks {
		ok, err := s.handler.InsertChunk(ctx, s.name, chunk)
		if err != nil {
			return inserted, fmt.Errorf("pgvector: %w", err)
		}
		if ok {
			inserted++
		}
	}

	return inserted, nil
}

func (s *pgCollection) IDs(ctx context.Context) ([]string, error) {
	return s.handler.SelectChunkIDs(ctx, s.name)
}

func (s *pgCollection) Count(ctx context.Context) (int, error) {
	return s.handler.CountChunks(ctx, s.name)
}

func (s *pgCollection) Query(ctx context.Context, embedding []float32, k int) (*model.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("pgvector: k must be positive, got %d", k)
	}
	chunks, err := s.handler.SelectChunksBySimilarity(ctx, s.name, embedding, k, s.metric)
	if err != nil {
		return nil, fmt.Errorf("pgvector: %w", err)
	}
	return &model.RetrievalResult{Chunks: chunks}, nil
}
