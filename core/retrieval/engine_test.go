package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/siherrmann/medrag/core/store"
	"github.com/siherrmann/medrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEncoder struct {
	err error
}

func (f *fakeEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeEncoder) Dimension() int {
	return 2
}

type fakeCollection struct {
	chunks []*model.Chunk
	err    error
	lastK  int
}

func (f *fakeCollection) Name() string { return "fake" }

func (f *fakeCollection) Upsert(context.Context, []*model.Chunk) (int, error) { return 0, nil }

func (f *fakeCollection) IDs(context.Context) ([]string, error) { return nil, nil }

func (f *fakeCollection) Count(context.Context) (int, error) { return len(f.chunks), nil }

func (f *fakeCollection) Query(_ context.Context, _ []float32, k int) (*model.RetrievalResult, error) {
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if len(f.chunks) > k {
		return &model.RetrievalResult{Chunks: f.chunks[:k]}, nil
	}
	return &model.RetrievalResult{Chunks: f.chunks}, nil
}

func staticCollection(c store.Collection) CollectionFunc {
	return func(context.Context) (store.Collection, error) { return c, nil }
}

func testChunks() []*model.Chunk {
	return []*model.Chunk{
		{ID: "a", Content: "Fever is a common symptom of infection.", Distance: 0.1},
		{ID: "b", Content: "Hypertension is high blood pressure.", Distance: 0.4},
		{ID: "c", Content: "ICD-10 classifies diseases.", Distance: 0.9},
		{ID: "d", Content: "Unrelated.", Distance: 1.2},
	}
}

func TestEngineRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns top k chunks", func(t *testing.T) {
		collection := &fakeCollection{chunks: testChunks()}
		engine := NewEngine(&fakeEncoder{}, staticCollection(collection))

		result, err := engine.Retrieve(ctx, "fever", &model.QueryConfig{TopK: 3})

		require.NoError(t, err)
		assert.Equal(t, 3, result.Len())
		assert.Equal(t, 3, collection.lastK)
	})

	t.Run("Nil config uses defaults", func(t *testing.T) {
		collection := &fakeCollection{chunks: testChunks()}
		engine := NewEngine(&fakeEncoder{}, staticCollection(collection))

		result, err := engine.Retrieve(ctx, "fever", nil)

		require.NoError(t, err)
		assert.Equal(t, model.DefaultQueryConfig().TopK, result.Len())
	})

	t.Run("Empty collection gives empty result", func(t *testing.T) {
		engine := NewEngine(&fakeEncoder{}, staticCollection(&fakeCollection{}))

		result, err := engine.Retrieve(ctx, "fever", nil)

		require.NoError(t, err)
		assert.True(t, result.IsEmpty())
	})

	t.Run("Non positive top k is a retrieval error", func(t *testing.T) {
		engine := NewEngine(&fakeEncoder{}, staticCollection(&fakeCollection{}))

		_, err := engine.Retrieve(ctx, "fever", &model.QueryConfig{TopK: 0})

		assert.ErrorIs(t, err, model.ErrRetrieval)
	})

	t.Run("Encoder init error passes through", func(t *testing.T) {
		encoder := &fakeEncoder{err: fmt.Errorf("%w: no model", model.ErrEncoderInit)}
		engine := NewEngine(encoder, staticCollection(&fakeCollection{}))

		_, err := engine.Retrieve(ctx, "fever", nil)

		assert.ErrorIs(t, err, model.ErrEncoderInit)
		assert.NotErrorIs(t, err, model.ErrRetrieval)
	})

	t.Run("Other encoder errors are retrieval errors", func(t *testing.T) {
		engine := NewEngine(&fakeEncoder{err: errors.New("boom")}, staticCollection(&fakeCollection{}))

		_, err := engine.Retrieve(ctx, "fever", nil)

		assert.ErrorIs(t, err, model.ErrRetrieval)
	})

	t.Run("Store init error passes through", func(t *testing.T) {
		engine := NewEngine(&fakeEncoder{}, func(context.Context) (store.Collection, error) {
			return nil, fmt.Errorf("%w: unreachable", model.ErrStoreInit)
		})

		_, err := engine.Retrieve(ctx, "fever", nil)

		assert.ErrorIs(t, err, model.ErrStoreInit)
	})

	t.Run("Query failure is a retrieval error", func(t *testing.T) {
		engine := NewEngine(&fakeEncoder{}, staticCollection(&fakeCollection{err: errors.New("disk gone")}))

		_, err := engine.Retrieve(ctx, "fever", nil)

		assert.ErrorIs(t, err, model.ErrRetrieval)
	})
}

func TestDistanceThresholdStrategy(t *testing.T) {
	ctx := context.Background()
	collection := &fakeCollection{chunks: testChunks()}
	engine := NewEngine(&fakeEncoder{}, staticCollection(collection))
	engine.UseStrategy(NewDistanceThresholdStrategy(engine))

	t.Run("Drops chunks beyond max distance", func(t *testing.T) {
		result, err := engine.Retrieve(ctx, "fever", &model.QueryConfig{TopK: 4, MaxDistance: 0.5})

		require.NoError(t, err)
		assert.Equal(t, []string{
			"Fever is a common symptom of infection.",
			"Hypertension is high blood pressure.",
		}, result.Texts())
	})

	t.Run("Zero max distance keeps everything", func(t *testing.T) {
		result, err := engine.Retrieve(ctx, "fever", &model.QueryConfig{TopK: 4})

		require.NoError(t, err)
		assert.Equal(t, 4, result.Len())
	})
}
