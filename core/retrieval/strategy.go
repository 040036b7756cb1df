package retrieval

import (
	"context"

	"github.com/siherrmann/medrag/model"
)

// Strategy defines a retrieval strategy
type Strategy interface {
	Retrieve(ctx context.Context, embedding []float32, config *model.QueryConfig) (*model.RetrievalResult, error)
}

// VectorOnlyStrategy performs pure vector similarity search
type VectorOnlyStrategy struct {
	engine *Engine
}

// NewVectorOnlyStrategy creates a new vector-only strategy
func NewVectorOnlyStrategy(engine *Engine) *VectorOnlyStrategy {
	return &VectorOnlyStrategy{engine: engine}
}

// Retrieve performs vector-only retrieval
func (s *VectorOnlyStrategy) Retrieve(ctx context.Context, embedding []float32, config *model.QueryConfig) (*model.RetrievalResult, error) {
	return s.engine.VectorRetrieve(ctx, embedding, config)
}

// DistanceThresholdStrategy drops vector results further away than config.MaxDistance.
// A MaxDistance of 0 keeps everything.
type DistanceThresholdStrategy struct {
	engine *Engine
}

// NewDistanceThresholdStrategy creates a new distance threshold strategy
func NewDistanceThresholdStrategy(engine *Engine) *DistanceThresholdStrategy {
	return &DistanceThresholdStrategy{engine: engine}
}

// Retrieve performs vector retrieval and filters by distance
func (s *DistanceThresholdStrategy) Retrieve(ctx context.Context, embedding []float32, config *model.QueryConfig) (*model.RetrievalResult, error) {
	result, err := s.engine.VectorRetrieve(ctx, embedding, config)
	if err != nil {
		return nil, err
	}
	if config.MaxDistance <= 0 {
		return result, nil
	}

	filtered := make([]*model.Chunk, 0, len(result.Chunks))
	for _, chunk := range result.Chunks {
		if chunk.Distance <= config.MaxDistance {
			filtered = append(filtered, chunk)
		}
	}

	return &model.RetrievalResult{Chunks: filtered}, nil
}
