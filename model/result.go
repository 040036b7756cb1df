package model

import "strings"

// RetrievalResult holds the chunks retrieved for a query, ordered by ascending distance.
type RetrievalResult struct {
	Chunks []*Chunk `json:"chunks"`
}

// Texts returns the chunk contents in rank order.
func (r *RetrievalResult) Texts() []string {
	if r == nil {
		return []string{}
	}
	texts := make([]string, 0, len(r.Chunks))
	for _, chunk := range r.Chunks {
		texts = append(texts, chunk.Content)
	}
	return texts
}

// Context joins the retrieved texts with newlines. Empty when nothing was retrieved.
func (r *RetrievalResult) Context() string {
	return strings.Join(r.Texts(), "\n")
}

// Len returns the number of retrieved chunks.
func (r *RetrievalResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Chunks)
}

// IsEmpty reports whether nothing was retrieved.
func (r *RetrievalResult) IsEmpty() bool {
	return r.Len() == 0
}
