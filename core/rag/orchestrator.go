package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/siherrmann/medrag/model"
)

// Request outcomes used as metric label.
const (
	OutcomeResponded          = "responded"
	OutcomeEmptyInput         = "empty_input"
	OutcomeConfiguration      = "configuration"
	OutcomeServiceUnavailable = "service_unavailable"
	OutcomeTransport          = "transport"
	OutcomeUnclear            = "unclear"
	OutcomeInternal           = "internal"
)

// Orchestrator answers one query per call. It never fails: every error or
// panic is turned into one of the fixed user facing messages.
type Orchestrator struct {
	policy  Policy
	metrics *Metrics
	log     *slog.Logger
}

// NewOrchestrator creates an orchestrator. metrics may be nil.
func NewOrchestrator(policy Policy, metrics *Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		policy:  policy,
		metrics: metrics,
		log:     logger,
	}
}

// Policy returns the active response policy.
func (o *Orchestrator) Policy() Policy {
	return o.policy
}

// GetResponse returns the answer to the user text. The result is never empty.
func (o *Orchestrator) GetResponse(ctx context.Context, text string) (response string) {
	trace := NewTrace()
	outcome := OutcomeResponded

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Recovered from panic while answering", slog.String("request_id", trace.RequestID), slog.String("state", string(trace.State)), slog.String("panic", fmt.Sprint(r)))
			trace.To(model.StateError)
			response = model.MsgInternalError
			outcome = OutcomeInternal
		}
		o.metrics.observe(o.policy.Name(), outcome, trace)
	}()

	query := model.NewQuery(text)
	if query.IsEmpty() {
		outcome = OutcomeEmptyInput
		trace.To(model.StateError)
		return model.MsgEmptyMessage
	}

	o.log.Debug("Answering query", slog.String("request_id", trace.RequestID), slog.String("policy", string(o.policy.Name())))

	answer, err := o.policy.Respond(ctx, query, trace)
	if err != nil {
		failedIn := trace.State
		trace.To(model.StateError)
		response, outcome = responseForError(err)
		o.log.Error("Failed to answer query", slog.String("request_id", trace.RequestID), slog.String("state", string(failedIn)), slog.String("outcome", outcome), slog.String("error", err.Error()))
		return response
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		trace.To(model.StateError)
		outcome = OutcomeUnclear
		return model.MsgUnclearResponse
	}

	trace.To(model.StateResponded)
	o.log.Info("Answered query", slog.String("request_id", trace.RequestID), slog.Int("retrieved", trace.RetrievedChunks), slog.Duration("took", time.Since(trace.Started)))

	return answer
}

func responseForError(err error) (string, string) {
	switch {
	case errors.Is(err, model.ErrConfiguration):
		return model.MsgMissingCredential, OutcomeConfiguration
	case errors.Is(err, model.ErrStoreInit), errors.Is(err, model.ErrEncoderInit):
		return model.MsgServiceUnavailable, OutcomeServiceUnavailable
	case errors.Is(err, model.ErrGatewayTransport):
		return model.MsgTransportError, OutcomeTransport
	case errors.Is(err, model.ErrGatewayShape):
		return model.MsgUnclearResponse, OutcomeUnclear
	default:
		return model.MsgInternalError, OutcomeInternal
	}
}
