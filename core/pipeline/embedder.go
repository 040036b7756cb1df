package pipeline

import (
	"fmt"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/medrag/helper"
)

// HugotLoader loads a sentence transformer model with hugot's Go backend.
// The model is downloaded into modelDir on first use.
// all-MiniLM-L6-v2 produces 384-dimensional embeddings.
func HugotLoader(modelDir string, modelName string, onnxFilePath string) LoadFunc {
	return func() (BatchEmbedFunc, func() error, error) {
		modelPath, err := helper.PrepareModel(modelDir, modelName, onnxFilePath)
		if err != nil {
			return nil, nil, err
		}

		session, err := hugot.NewGoSession()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create hugot session: %w", err)
		}

		config := hugot.FeatureExtractionConfig{
			ModelPath: modelPath,
			Name:      "medrag-encoder",
		}
		sentencePipeline, err := hugot.NewPipeline(session, config)
		if err != nil {
			if destroyErr := session.Destroy(); destroyErr != nil {
				return nil, nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
			}
			return nil, nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
		}

		// RunPipeline calls are serialized.
		var mu sync.Mutex
		embed := func(texts []string) ([][]float32, error) {
			mu.Lock()
			defer mu.Unlock()

			result, err := sentencePipeline.RunPipeline(texts)
			if err != nil {
				return nil, fmt.Errorf("failed to generate embedding: %w", err)
			}
			if len(result.Embeddings) != len(texts) {
				return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
			}
			return result.Embeddings, nil
		}

		return embed, session.Destroy, nil
	}
}
