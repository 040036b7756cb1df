package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareModel(t *testing.T) {
	t.Run("Return existing model path when model exists", func(t *testing.T) {
		modelDir := t.TempDir()
		modelPath := filepath.Join(modelDir, "test_mock-model")
		require.NoError(t, os.MkdirAll(modelPath, 0750), "Expected directory creation to succeed")

		path, err := PrepareModel(modelDir, "test/mock-model", "")
		assert.NoError(t, err, "Expected PrepareModel to not return an error for existing model")
		assert.Equal(t, modelPath, path, "Expected returned path to match existing model path")
	})

	t.Run("Handle model name without slash", func(t *testing.T) {
		modelDir := t.TempDir()
		expectedPath := filepath.Join(modelDir, "simple-model")
		require.NoError(t, os.MkdirAll(expectedPath, 0750), "Expected directory creation to succeed")

		path, err := PrepareModel(modelDir, "simple-model", "onnx/model.onnx")
		assert.NoError(t, err, "Expected PrepareModel to not return an error")
		assert.Equal(t, expectedPath, path, "Expected path to use model name directly")
	})

	t.Run("Download model when it doesn't exist", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping model download in short mode")
		}

		path, err := PrepareModel(t.TempDir(), "sentence-transformers/all-MiniLM-L6-v2", "onnx/model.onnx")

		// Depends on network access, so only the shape of the outcome is checked
		if err != nil {
			assert.Contains(t, err.Error(), "failed to", "Expected error to be about download failure")
		} else {
			assert.DirExists(t, path, "Expected model directory to exist")
		}
	})
}
