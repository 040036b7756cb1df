package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// chunkNamespace scopes the content derived chunk ids.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("medrag/knowledge-chunk"))

// Chunk is a unit of knowledge text stored with its embedding.
// Chunks are immutable once stored; the vector store owns them.
type Chunk struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	// Results
	Distance float64 `json:"distance,omitempty"`
}

// NewChunk creates a chunk with a content derived id.
func NewChunk(content string, embedding []float32) *Chunk {
	return &Chunk{
		ID:        ChunkID(content),
		Content:   content,
		Embedding: embedding,
	}
}

// ChunkID derives a stable id from the normalized chunk text, so ingesting
// the same paragraph twice always yields the same id regardless of its position.
func ChunkID(content string) string {
	return "chunk_" + uuid.NewSHA1(chunkNamespace, []byte(NormalizeText(content))).String()
}

// NormalizeText trims the text and collapses all whitespace runs into single spaces.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
