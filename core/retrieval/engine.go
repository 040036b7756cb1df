package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/core/store"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// CollectionFunc returns the collection to search. It may open the store lazily.
type CollectionFunc func(ctx context.Context) (store.Collection, error)

// Engine embeds query text and runs similarity search against a collection
type Engine struct {
	encoder    pipeline.Encoder
	collection CollectionFunc
	strategy   Strategy
}

// NewEngine creates a new retrieval engine using the vector only strategy
func NewEngine(encoder pipeline.Encoder, collection CollectionFunc) *Engine {
	e := &Engine{
		encoder:    encoder,
		collection: collection,
	}
	e.strategy = NewVectorOnlyStrategy(e)
	return e
}

// UseStrategy replaces the retrieval strategy.
func (e *Engine) UseStrategy(strategy Strategy) {
	e.strategy = strategy
}

// Retrieve returns up to config.TopK chunks nearest to the query text.
//
// Store and encoder initialization errors are returned unchanged so callers can
// tell them apart; every other failure wraps model.ErrRetrieval.
func (e *Engine) Retrieve(ctx context.Context, text string, config *model.QueryConfig) (*model.RetrievalResult, error) {
	if config == nil {
		defaultConfig := model.DefaultQueryConfig()
		config = &defaultConfig
	}
	if config.TopK <= 0 {
		return nil, helper.NewError("retrieve", fmt.Errorf("%w: top k must be positive, got %d", model.ErrRetrieval, config.TopK))
	}

	embeddings, err := e.encoder.Encode(ctx, []string{text})
	if err != nil {
		if errors.Is(err, model.ErrEncoderInit) {
			return nil, err
		}
		return nil, helper.NewError("encode query", fmt.Errorf("%w: %w", model.ErrRetrieval, err))
	}
	if len(embeddings) != 1 {
		return nil, helper.NewError("encode query", fmt.Errorf("%w: got %d embeddings", model.ErrRetrieval, len(embeddings)))
	}

	result, err := e.strategy.Retrieve(ctx, embeddings[0], config)
	if err != nil {
		if errors.Is(err, model.ErrStoreInit) || errors.Is(err, model.ErrRetrieval) {
			return nil, err
		}
		return nil, helper.NewError("retrieve", fmt.Errorf("%w: %w", model.ErrRetrieval, err))
	}

	return result, nil
}

// VectorRetrieve performs pure vector similarity search
func (e *Engine) VectorRetrieve(ctx context.Context, embedding []float32, config *model.QueryConfig) (*model.RetrievalResult, error) {
	collection, err := e.collection(ctx)
	if err != nil {
		return nil, err
	}

	result, err := collection.Query(ctx, embedding, config.TopK)
	if err != nil {
		return nil, helper.NewError("query collection", fmt.Errorf("%w: %w", model.ErrRetrieval, err))
	}

	return result, nil
}
