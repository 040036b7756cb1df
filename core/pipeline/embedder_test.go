package pipeline

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/siherrmann/medrag/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHugotLoader(t *testing.T) {
	// HugotLoader downloads the model on first use.
	if testing.Short() {
		t.Skip("Skipping hugot test in short mode (requires model download)")
	}

	logger := helper.NewLogger(os.Stdout, slog.LevelWarn)
	encoder, err := DefaultEncoder(t.TempDir(), logger)
	require.NoError(t, err)
	defer encoder.Close()

	t.Run("Generate embedding for text", func(t *testing.T) {
		vectors, err := encoder.Encode(context.Background(), []string{"This is a test sentence."})

		require.NoError(t, err)
		require.Len(t, vectors, 1)
		assert.Len(t, vectors[0], 384, "all-MiniLM-L6-v2 produces 384-dimensional embeddings")

		hasNonZero := false
		for _, val := range vectors[0] {
			if val != 0 {
				hasNonZero = true
				break
			}
		}
		assert.True(t, hasNonZero, "Embedding should contain non-zero values")
	})

	t.Run("Same text produces same embedding", func(t *testing.T) {
		first, err := encoder.Encode(context.Background(), []string{"Deterministic embedding test"})
		require.NoError(t, err)
		encoder.cache.Purge()
		second, err := encoder.Encode(context.Background(), []string{"Deterministic embedding test"})
		require.NoError(t, err)

		assert.InDeltaSlice(t, first[0], second[0], 1e-6)
	})

	t.Run("Batch keeps input order", func(t *testing.T) {
		batch, err := encoder.Encode(context.Background(), []string{"fever", "headache"})
		require.NoError(t, err)
		single, err := encoder.Encode(context.Background(), []string{"headache"})
		require.NoError(t, err)

		require.Len(t, batch, 2)
		assert.InDeltaSlice(t, single[0], batch[1], 1e-5)
	})
}
