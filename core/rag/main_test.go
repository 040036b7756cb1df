package rag

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/siherrmann/medrag/core/store"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
	"github.com/stretchr/testify/require"
)

const testDim = 4

func testLogger() *slog.Logger {
	return helper.NewLogger(os.Stdout, slog.LevelWarn)
}

// fakeGateway records prompts and answers with respond.
type fakeGateway struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (f *fakeGateway) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeGateway) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// followRules mimics a model obeying the single prompt rules.
func followRules(prompt string) (string, error) {
	message := prompt[strings.LastIndex(prompt, "User message:\n")+len("User message:\n"):]
	switch {
	case strings.EqualFold(message, "hello"):
		return "Hello! I'm happy to help. What health question can I answer for you today?", nil
	case strings.Contains(strings.ToLower(message), "lasagna"):
		return model.MsgOffTopic, nil
	default:
		return "The ICD-10 code for type 2 diabetes mellitus without complications is E11.9.\n\n" + model.MsgDisclaimer, nil
	}
}

type fakeEncoder struct {
	calls atomic.Int32
	err   error
}

func (f *fakeEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func (f *fakeEncoder) Dimension() int {
	return testDim
}

// filesystemOpener opens a filesystem store in a temp dir and counts calls.
// The first failures calls fail.
func filesystemOpener(t *testing.T, failures int32) (StoreOpener, *atomic.Int32) {
	dir := t.TempDir()
	var calls atomic.Int32
	return func(ctx context.Context) (store.Client, error) {
		if calls.Add(1) <= failures {
			return nil, errors.New("store directory not reachable")
		}
		return store.New(ctx, &store.Config{
			Provider:  store.ProviderFilesystem,
			Path:      dir,
			Dimension: testDim,
			Logger:    testLogger(),
		})
	}, &calls
}

func newTestServices(t *testing.T, gw *fakeGateway, encoder *fakeEncoder, opener StoreOpener) *Services {
	if opener == nil {
		opener, _ = filesystemOpener(t, 0)
	}
	services, err := NewServices(encoder, opener, "medical_knowledge", gw, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = services.Close() })
	return services
}

func seed(t *testing.T, services *Services, chunks ...*model.Chunk) {
	collection, err := services.Collection(context.Background())
	require.NoError(t, err)
	_, err = collection.Upsert(context.Background(), chunks)
	require.NoError(t, err)
}
