package medrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/siherrmann/medrag/core/gateway"
	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/core/rag"
	"github.com/siherrmann/medrag/core/store"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
	"github.com/siherrmann/medrag/server"
)

// MedRag provides a unified interface to the medical assistant
type MedRag struct {
	Config       *helper.Configuration
	Services     *rag.Services
	Pipeline     *pipeline.Pipeline
	Orchestrator *rag.Orchestrator
	Metrics      *rag.Metrics
	// Logging
	log *slog.Logger
}

// IngestResult reports what an ingestion run did.
type IngestResult struct {
	Source   string `json:"source"`
	Chunks   int    `json:"chunks"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Total    int    `json:"total"`
}

// New creates a MedRag instance with the hugot encoder, the configured vector
// store and the Gemini gateway. Nothing is loaded or opened until first use.
func New(config *helper.Configuration, logger *slog.Logger) (*MedRag, error) {
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, helper.ParseLogLevel(config.LogLevel))
	}

	encoder, err := pipeline.NewEncoder(
		pipeline.HugotLoader(config.EmbeddingModelDir, config.EmbeddingModel, config.EmbeddingOnnxPath),
		config.EmbeddingDim,
		pipeline.DefaultCacheSize,
		logger,
	)
	if err != nil {
		return nil, helper.NewError("create encoder", err)
	}

	gemini := gateway.NewGemini(gateway.NewConfig(config), logger)

	return NewWithComponents(config, encoder, gemini, logger)
}

// NewWithComponents creates a MedRag instance with the given encoder and gateway.
func NewWithComponents(config *helper.Configuration, encoder pipeline.Encoder, gw gateway.Gateway, logger *slog.Logger) (*MedRag, error) {
	if config == nil {
		return nil, helper.NewError("new medrag", fmt.Errorf("%w: configuration is required", model.ErrConfiguration))
	}
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, helper.ParseLogLevel(config.LogLevel))
	}
	if encoder.Dimension() != config.EmbeddingDim {
		return nil, helper.NewError("new medrag", fmt.Errorf("%w: encoder dimension %d does not match EMBEDDING_DIM %d", model.ErrConfiguration, encoder.Dimension(), config.EmbeddingDim))
	}

	storeConfig := store.NewConfig(config, logger)
	openStore := func(ctx context.Context) (store.Client, error) {
		return store.New(ctx, storeConfig)
	}

	services, err := rag.NewServices(encoder, openStore, config.Collection, gw, logger)
	if err != nil {
		return nil, helper.NewError("create services", err)
	}

	queryConfig := model.QueryConfig{
		TopK:             config.NResults,
		MinContextLength: config.MinContextLength,
	}
	policy, err := rag.NewPolicy(rag.PolicyName(config.Policy), services, queryConfig, logger)
	if err != nil {
		return nil, helper.NewError("create policy", err)
	}

	metrics := rag.NewMetrics()

	logger.Info("Created medrag", slog.String("policy", string(policy.Name())), slog.String("store", config.StoreProvider), slog.String("collection", config.Collection))

	return &MedRag{
		Config:       config,
		Services:     services,
		Pipeline:     pipeline.NewPipeline(pipeline.ParagraphChunker(), encoder),
		Orchestrator: rag.NewOrchestrator(policy, metrics, logger),
		Metrics:      metrics,
		log:          logger,
	}, nil
}

// Ask answers a single question. The answer is never empty.
func (m *MedRag) Ask(ctx context.Context, question string) string {
	return m.Orchestrator.GetResponse(ctx, question)
}

// Server creates the HTTP server answering with this instance.
func (m *MedRag) Server() *server.Server {
	return server.New(m.Config.HTTPAddr, m.Orchestrator, m.Metrics.Handler(), m.log)
}

// Ingest loads a knowledge file into the collection.
// Paragraphs become chunks; chunks whose id is already stored are skipped
// and not embedded again.
func (m *MedRag) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	doc, err := model.NewDocumentFromFile(path)
	if err != nil {
		return nil, helper.NewError("read knowledge file", err)
	}

	return m.IngestDocument(ctx, doc)
}

// IngestDocument loads the content of a document into the collection.
func (m *MedRag) IngestDocument(ctx context.Context, doc *model.Document) (*IngestResult, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, helper.NewError("ingest document", fmt.Errorf("%w: document %q is empty", model.ErrInput, doc.Source))
	}

	collection, err := m.Services.Collection(ctx)
	if err != nil {
		return nil, helper.NewError("open collection", err)
	}

	chunks, err := m.Pipeline.Chunks(doc.Content)
	if err != nil {
		return nil, helper.NewError("chunk document", err)
	}

	existingIDs, err := collection.IDs(ctx)
	if err != nil {
		return nil, helper.NewError("list existing chunks", err)
	}
	existing := make(map[string]bool, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = true
	}

	newChunks := make([]*model.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if !existing[chunk.ID] {
			newChunks = append(newChunks, chunk)
		}
	}

	result := &IngestResult{
		Source:  doc.Source,
		Chunks:  len(chunks),
		Skipped: len(chunks) - len(newChunks),
	}

	if len(newChunks) > 0 {
		err = m.Pipeline.Embed(ctx, newChunks)
		if err != nil {
			return nil, helper.NewError("embed chunks", err)
		}

		result.Inserted, err = collection.Upsert(ctx, newChunks)
		if err != nil {
			return nil, helper.NewError("upsert chunks", err)
		}
	}

	result.Total, err = collection.Count(ctx)
	if err != nil {
		return nil, helper.NewError("count chunks", err)
	}

	m.log.Info("Ingested document", slog.String("source", doc.Source), slog.Int("chunks", result.Chunks), slog.Int("inserted", result.Inserted), slog.Int("skipped", result.Skipped), slog.Int("total", result.Total))

	return result, nil
}

// Close releases the store and the embedding model
func (m *MedRag) Close() error {
	return m.Services.Close()
}
