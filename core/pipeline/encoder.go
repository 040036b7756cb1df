package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// DefaultCacheSize is the number of text embeddings kept in memory.
const DefaultCacheSize = 1024

// LazyEncoder loads its model on the first Encode call.
// Concurrent first callers wait for a single load. A failed load leaves the
// encoder uninitialized so the next call tries again.
type LazyEncoder struct {
	load      LoadFunc
	dimension int
	cache     *lru.Cache[string, []float32]
	log       *slog.Logger

	// inUse is held for reading while an embed call runs; Close takes it
	// for writing so the model is never released mid-call.
	inUse sync.RWMutex
	mu    sync.Mutex
	embed BatchEmbedFunc
	close func() error
	loads int
}

// NewEncoder creates a lazy encoder producing vectors of the given dimension.
func NewEncoder(load LoadFunc, dimension int, cacheSize int, logger *slog.Logger) (*LazyEncoder, error) {
	if load == nil {
		return nil, helper.NewError("new encoder", fmt.Errorf("load function is nil"))
	}
	if dimension <= 0 {
		return nil, helper.NewError("new encoder", fmt.Errorf("dimension must be positive, got %d", dimension))
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, helper.NewError("create embedding cache", err)
	}

	return &LazyEncoder{
		load:      load,
		dimension: dimension,
		cache:     cache,
		log:       logger,
	}, nil
}

// DefaultEncoder creates a lazy all-MiniLM-L6-v2 encoder.
func DefaultEncoder(modelDir string, logger *slog.Logger) (*LazyEncoder, error) {
	return NewEncoder(
		HugotLoader(modelDir, helper.DefaultEmbeddingModel, helper.DefaultEmbeddingOnnx),
		helper.DefaultEmbeddingDim,
		DefaultCacheSize,
		logger,
	)
}

// Dimension returns the length of every produced vector.
func (e *LazyEncoder) Dimension() int {
	return e.dimension
}

// Encode returns one vector per text, in input order.
func (e *LazyEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	e.inUse.RLock()
	defer e.inUse.RUnlock()

	embed, err := e.ensureLoaded()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vector, ok := e.cache.Get(text); ok {
			out[i] = slices.Clone(vector)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, helper.NewError("encode", err)
	}

	vectors, err := embed(missing)
	if err != nil {
		return nil, helper.NewError("encode", err)
	}
	if len(vectors) != len(missing) {
		return nil, helper.NewError("encode", fmt.Errorf("got %d vectors for %d texts", len(vectors), len(missing)))
	}

	for j, vector := range vectors {
		if len(vector) != e.dimension {
			return nil, helper.NewError("encode", fmt.Errorf("vector dimension mismatch (got %d want %d)", len(vector), e.dimension))
		}
		e.cache.Add(missing[j], slices.Clone(vector))
		out[missingIdx[j]] = vector
	}

	return out, nil
}

// Loaded reports whether the model has been loaded successfully.
func (e *LazyEncoder) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.embed != nil
}

// Close releases the model. The encoder loads it again on the next Encode.
func (e *LazyEncoder) Close() error {
	e.inUse.Lock()
	defer e.inUse.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.close == nil {
		e.embed = nil
		return nil
	}
	err := e.close()
	e.embed = nil
	e.close = nil
	e.cache.Purge()
	return err
}

func (e *LazyEncoder) ensureLoaded() (BatchEmbedFunc, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.embed != nil {
		return e.embed, nil
	}

	e.loads++
	embed, closeFn, err := e.load()
	if err != nil {
		e.log.Error("Failed to load embedding model", slog.Int("attempt", e.loads), slog.String("error", err.Error()))
		return nil, helper.NewError("load encoder", fmt.Errorf("%w: %w", model.ErrEncoderInit, err))
	}
	if embed == nil {
		return nil, helper.NewError("load encoder", fmt.Errorf("%w: loader returned no embed function", model.ErrEncoderInit))
	}

	e.embed = embed
	e.close = closeFn
	e.log.Info("Loaded embedding model", slog.Int("dimension", e.dimension), slog.Int("attempt", e.loads))

	return e.embed, nil
}
