package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// Provider enumerates the supported vector store backends.
type Provider string

const (
	// ProviderFilesystem keeps one JSON snapshot per collection on local disk.
	ProviderFilesystem Provider = "filesystem"
	ProviderPGVector   Provider = "pgvector"
)

// Distance metrics understood by every provider.
const (
	MetricCosine = "cosine"
	MetricL2     = "l2"
)

// Client opens collections of a vector store.
type Client interface {
	// EnsureCollection creates or opens the named collection.
	// Calling it twice with the same name returns the same handle and never drops data.
	EnsureCollection(ctx context.Context, name string) (Collection, error)
	Close() error
}

// Collection is a named set of chunks with embeddings of one fixed dimension.
type Collection interface {
	Name() string
	// Upsert stores chunks with unseen ids and returns how many were inserted.
	// Chunks with an existing id are left unchanged.
	Upsert(ctx context.Context, chunks []*model.Chunk) (int, error)
	IDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	// Query returns up to k chunks ordered by ascending distance, ties broken by id.
	Query(ctx context.Context, embedding []float32, k int) (*model.RetrievalResult, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider  Provider
	Path      string
	Dimension int
	Metric    string
	// Index is the pgvector index type, "hnsw" or "ivfflat". Empty keeps the
	// default hnsw index, rebuilt for the metric when it is not cosine.
	Index string
	// Database is only used by the pgvector provider.
	Database *helper.DatabaseConfiguration
	Logger   *slog.Logger
}

// NewConfig builds a store config from the application configuration.
func NewConfig(config *helper.Configuration, logger *slog.Logger) *Config {
	return &Config{
		Provider:  Provider(config.StoreProvider),
		Path:      config.StorePath,
		Dimension: config.EmbeddingDim,
		Metric:    config.Metric,
		Index:     config.Index,
		Logger:    logger,
	}
}

// New opens the configured vector store.
// Every failure is wrapped with model.ErrStoreInit.
func New(ctx context.Context, config *Config) (Client, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is required", model.ErrStoreInit)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStoreInit, err)
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", model.ErrStoreInit, config.Dimension)
	}
	if config.Metric == "" {
		config.Metric = MetricCosine
	}
	if config.Metric != MetricCosine && config.Metric != MetricL2 {
		return nil, fmt.Errorf("%w: unsupported metric %q", model.ErrStoreInit, config.Metric)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	var client Client
	var err error
	switch Provider(strings.ToLower(string(config.Provider))) {
	case "", ProviderFilesystem:
		client, err = newFileClient(config)
	case ProviderPGVector:
		client, err = newPGVectorClient(ctx, config)
	default:
		err = fmt.Errorf("unsupported provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStoreInit, err)
	}

	config.Logger.Info("Opened vector store", slog.String("provider", string(config.Provider)), slog.String("metric", config.Metric), slog.Int("dimension", config.Dimension))

	return client, nil
}

func validateCollectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("collection name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

func validateChunk(chunk *model.Chunk, dimension int) error {
	if chunk == nil {
		return fmt.Errorf("chunk is nil")
	}
	if chunk.ID == "" {
		return fmt.Errorf("chunk id is required")
	}
	if strings.TrimSpace(chunk.Content) == "" {
		return fmt.Errorf("chunk %q has empty content", chunk.ID)
	}
	if len(chunk.Embedding) != dimension {
		return fmt.Errorf("chunk %q dimension mismatch (got %d want %d)", chunk.ID, len(chunk.Embedding), dimension)
	}
	return nil
}
