package pipeline

import (
	"context"
	"fmt"

	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// ChunkFunc is a function that splits source text into chunk texts
type ChunkFunc func(text string) ([]string, error)

// BatchEmbedFunc is a function that generates one embedding per input text
type BatchEmbedFunc func(texts []string) ([][]float32, error)

// LoadFunc loads an embedding model and returns its embed and close functions.
// It is called lazily on first use and may be called again after a failure.
type LoadFunc func() (BatchEmbedFunc, func() error, error)

// Encoder maps texts to fixed length vectors.
// Encoding is deterministic for a fixed model version and Dimension never changes.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Pipeline combines chunking and embedding
type Pipeline struct {
	Chunker ChunkFunc
	Encoder Encoder
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, encoder Encoder) *Pipeline {
	return &Pipeline{
		Chunker: chunker,
		Encoder: encoder,
	}
}

// Process splits the text into chunks and embeds them in one batch.
// Chunks with identical normalized text are only returned once.
func (p *Pipeline) Process(ctx context.Context, text string) ([]*model.Chunk, error) {
	chunks, err := p.Chunks(text)
	if err != nil {
		return nil, err
	}

	err = p.Embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

// Chunks splits the text into chunks with content derived ids but no embeddings.
// Chunks with identical normalized text are only returned once.
func (p *Pipeline) Chunks(text string) ([]*model.Chunk, error) {
	texts, err := p.Chunker(text)
	if err != nil {
		return nil, helper.NewError("chunk text", err)
	}

	seen := make(map[string]bool, len(texts))
	chunks := make([]*model.Chunk, 0, len(texts))
	for _, content := range texts {
		chunk := model.NewChunk(content, nil)
		if seen[chunk.ID] {
			continue
		}
		seen[chunk.ID] = true
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// Embed sets the embedding of every chunk with a single batch call.
func (p *Pipeline) Embed(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	contents := make([]string, len(chunks))
	for i, chunk := range chunks {
		contents[i] = chunk.Content
	}

	embeddings, err := p.Encoder.Encode(ctx, contents)
	if err != nil {
		return helper.NewError("embed chunks", err)
	}
	if len(embeddings) != len(chunks) {
		return helper.NewError("embed chunks", fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(chunks)))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	return nil
}
