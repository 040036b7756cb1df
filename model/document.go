package model

import (
	"os"
	"path/filepath"
	"time"
)

// Document represents a knowledge base source file.
// Content is only held during ingestion; only its chunks are stored.
type Document struct {
	Title    string    `json:"title"`
	Source   string    `json:"source,omitempty"`
	Content  string    `json:"content,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// NewDocumentFromFile reads a file and creates a Document with the file content
// The title defaults to the filename, and source to the file path
func NewDocumentFromFile(filePath string) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	return &Document{
		Title:    title,
		Source:   filePath,
		Content:  string(content),
		LoadedAt: time.Now(),
	}, nil
}
