package pipeline

import (
	"strings"
)

// ParagraphChunker creates a chunker that splits by paragraphs.
// Paragraphs are separated by blank lines and used verbatim apart from trimming.
func ParagraphChunker() ChunkFunc {
	return func(text string) ([]string, error) {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		paragraphs := strings.Split(text, "\n\n")

		chunks := make([]string, 0, len(paragraphs))
		for _, para := range paragraphs {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			chunks = append(chunks, para)
		}

		return chunks, nil
	}
}
