package rag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/siherrmann/medrag/core/gateway"
	"github.com/siherrmann/medrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T, gw *fakeGateway, encoder *fakeEncoder, opener StoreOpener) (*Orchestrator, *Services, *Metrics) {
	services := newTestServices(t, gw, encoder, opener)
	metrics := NewMetrics()
	return NewOrchestrator(NewSinglePromptPolicy(services, model.DefaultQueryConfig()), metrics, testLogger()), services, metrics
}

func TestGetResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("Greeting gets a warm reply without disclaimer", func(t *testing.T) {
		gw := &fakeGateway{respond: followRules}
		orchestrator, _, _ := newTestOrchestrator(t, gw, &fakeEncoder{}, nil)

		response := orchestrator.GetResponse(ctx, "hello")

		assert.Contains(t, response, "health question")
		assert.NotContains(t, response, model.MsgDisclaimer)
		assert.NotEqual(t, model.MsgOffTopic, response)
		assert.Equal(t, 1, gw.calls())
	})

	t.Run("Off topic query is declined", func(t *testing.T) {
		gw := &fakeGateway{respond: followRules}
		orchestrator, _, _ := newTestOrchestrator(t, gw, &fakeEncoder{}, nil)

		response := orchestrator.GetResponse(ctx, "How do I bake a lasagna?")

		assert.Equal(t, model.MsgOffTopic, response)
	})

	t.Run("Medical question with empty store ends with disclaimer", func(t *testing.T) {
		gw := &fakeGateway{respond: followRules}
		orchestrator, _, _ := newTestOrchestrator(t, gw, &fakeEncoder{}, nil)

		response := orchestrator.GetResponse(ctx, "What is the ICD-10 code for type 2 diabetes without complications?")

		assert.NotEmpty(t, response)
		assert.True(t, len(response) > len(model.MsgDisclaimer))
		assert.Equal(t, model.MsgDisclaimer, response[len(response)-len(model.MsgDisclaimer):])
		assert.NotContains(t, response, "not found in database")
		assert.Contains(t, gw.lastPrompt(), "Medical information:\n\n\nUser message:\n")
	})

	t.Run("Retrieved context is placed in the prompt", func(t *testing.T) {
		gw := &fakeGateway{respond: followRules}
		orchestrator, services, _ := newTestOrchestrator(t, gw, &fakeEncoder{}, nil)
		seed(t, services, &model.Chunk{ID: "doc_0", Content: "Fever is a common symptom of infection.", Embedding: []float32{1, 0, 0, 0}})

		orchestrator.GetResponse(ctx, "What causes fever?")

		assert.Contains(t, gw.lastPrompt(), "Medical information:\nFever is a common symptom of infection.\n")
		assert.Contains(t, gw.lastPrompt(), "User message:\nWhat causes fever?")
	})

	t.Run("Empty input makes no calls", func(t *testing.T) {
		gw := &fakeGateway{respond: followRules}
		encoder := &fakeEncoder{}
		orchestrator, _, _ := newTestOrchestrator(t, gw, encoder, nil)

		assert.Equal(t, model.MsgEmptyMessage, orchestrator.GetResponse(ctx, "   "))
		assert.Equal(t, 0, gw.calls())
		assert.Equal(t, int32(0), encoder.calls.Load())
	})

	t.Run("Missing credential makes no network call", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
		}))
		defer server.Close()

		opener, _ := filesystemOpener(t, 0)
		gemini := gateway.NewGemini(&gateway.Config{URL: server.URL}, testLogger())
		services, err := NewServices(&fakeEncoder{}, opener, "medical_knowledge", gemini, testLogger())
		require.NoError(t, err)
		defer services.Close()
		orchestrator := NewOrchestrator(NewSinglePromptPolicy(services, model.DefaultQueryConfig()), nil, testLogger())

		response := orchestrator.GetResponse(ctx, "What is hypertension?")

		assert.Equal(t, model.MsgMissingCredential, response)
		assert.Equal(t, int32(0), requests.Load())
	})

	t.Run("Transport failure gives the apology", func(t *testing.T) {
		gw := &fakeGateway{respond: func(string) (string, error) {
			return "", fmt.Errorf("%w: context deadline exceeded", model.ErrGatewayTransport)
		}}
		orchestrator, _, _ := newTestOrchestrator(t, gw, &fakeEncoder{}, nil)

		assert.Equal(t, model.MsgTransportError, orchestrator.GetResponse(ctx, "What is hypertension?"))
	})

	t.Run("Unexpected response shape gives the unclear message", func(t *testing.T) {
		gw := &fakeGateway{respond: func(string) (string, error) {
			return "", fmt.Errorf("%w: no candidates", model.ErrGatewayShape)
		}}
		orchestrator, _, _ := newTestOrchestrator(t, gw, &fakeEncoder{}, nil)

		assert.Equal(t, model.MsgUnclearResponse, orchestrator.GetResponse(ctx, "What is hypertension?"))
	})

	t.Run("Blank model output gives the unclear message", func(t *testing.T) {
		gw := &fakeGateway{respond: func(string) (string, error) { return "  ", nil }}
		orchestrator, _, _ := newTestOrchestrator(t, gw, &fakeEncoder{}, nil)

		assert.Equal(t, model.MsgUnclearResponse, orchestrator.GetResponse(ctx, "What is hypertension?"))
	})

	t.Run("Unknown error gives the internal error message", func(t *testing.T) {
		gw := &fakeGateway{respond: func(string) (string, error) { return "", errors.New("boom") }}
		orchestrator, _, _ := newTestOrchestrator(t, gw, &fakeEncoder{}, nil)

		assert.Equal(t, model.MsgInternalError, orchestrator.GetResponse(ctx, "What is hypertension?"))
	})

	t.Run("Panic is recovered", func(t *testing.T) {
		gw := &fakeGateway{respond: func(string) (string, error) { panic("unexpected") }}
		orchestrator, _, _ := newTestOrchestrator(t, gw, &fakeEncoder{}, nil)

		assert.Equal(t, model.MsgInternalError, orchestrator.GetResponse(ctx, "What is hypertension?"))
	})

	t.Run("Store failure is retried on the next request", func(t *testing.T) {
		gw := &fakeGateway{respond: followRules}
		opener, openCalls := filesystemOpener(t, 1)
		orchestrator, _, _ := newTestOrchestrator(t, gw, &fakeEncoder{}, opener)

		assert.Equal(t, model.MsgServiceUnavailable, orchestrator.GetResponse(ctx, "What is hypertension?"))
		assert.Equal(t, 0, gw.calls())

		response := orchestrator.GetResponse(ctx, "What is hypertension?")
		assert.Contains(t, response, model.MsgDisclaimer)
		assert.Equal(t, int32(2), openCalls.Load())

		orchestrator.GetResponse(ctx, "What is hypertension?")
		assert.Equal(t, int32(2), openCalls.Load(), "store should only be opened once after success")
	})

	t.Run("Encoder failure gives the unavailable message", func(t *testing.T) {
		gw := &fakeGateway{respond: followRules}
		encoder := &fakeEncoder{err: fmt.Errorf("%w: download failed", model.ErrEncoderInit)}
		orchestrator, _, _ := newTestOrchestrator(t, gw, encoder, nil)

		assert.Equal(t, model.MsgServiceUnavailable, orchestrator.GetResponse(ctx, "What is hypertension?"))
	})

	t.Run("Metrics count outcomes", func(t *testing.T) {
		gw := &fakeGateway{respond: followRules}
		orchestrator, _, metrics := newTestOrchestrator(t, gw, &fakeEncoder{}, nil)

		orchestrator.GetResponse(ctx, "hello")
		orchestrator.GetResponse(ctx, "")

		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(string(PolicySinglePrompt), OutcomeResponded)))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(string(PolicySinglePrompt), OutcomeEmptyInput)))
	})
}

func TestSinglePromptPolicyTrace(t *testing.T) {
	t.Run("Walks the states in order", func(t *testing.T) {
		gw := &fakeGateway{respond: followRules}
		services := newTestServices(t, gw, &fakeEncoder{}, nil)
		policy := NewSinglePromptPolicy(services, model.DefaultQueryConfig())
		trace := NewTrace()

		_, err := policy.Respond(context.Background(), model.NewQuery("hello"), trace)
		require.NoError(t, err)
		trace.To(model.StateResponded)

		assert.Equal(t, []model.RequestState{
			model.StateReceived,
			model.StateRetrieving,
			model.StatePromptBuilt,
			model.StateAwaitingLLM,
			model.StateResponded,
		}, trace.History)
		assert.Equal(t, 0, trace.RetrievedChunks)
	})

	t.Run("Terminal state is final", func(t *testing.T) {
		trace := NewTrace()
		trace.To(model.StateError)
		trace.To(model.StateResponded)

		assert.Equal(t, model.StateError, trace.State)
	})
}
