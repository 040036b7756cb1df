package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// PolicyName identifies a response policy.
type PolicyName string

const (
	PolicySinglePrompt PolicyName = "single_prompt"
	PolicyTwoPhase     PolicyName = "two_phase"
)

// Policy turns a query into the final response text.
type Policy interface {
	Name() PolicyName
	Respond(ctx context.Context, query model.Query, trace *Trace) (string, error)
}

// NewPolicy creates the named policy.
func NewPolicy(name PolicyName, services *Services, config model.QueryConfig, logger *slog.Logger) (Policy, error) {
	switch name {
	case "", PolicySinglePrompt:
		return NewSinglePromptPolicy(services, config), nil
	case PolicyTwoPhase:
		return NewTwoPhasePolicy(services, config, logger), nil
	default:
		return nil, helper.NewError("new policy", fmt.Errorf("%w: unknown policy %q", model.ErrConfiguration, name))
	}
}

// SinglePromptPolicy always retrieves and lets the model route the query
// inside one prompt.
type SinglePromptPolicy struct {
	services *Services
	config   model.QueryConfig
}

// NewSinglePromptPolicy creates a single prompt policy
func NewSinglePromptPolicy(services *Services, config model.QueryConfig) *SinglePromptPolicy {
	return &SinglePromptPolicy{services: services, config: config}
}

func (p *SinglePromptPolicy) Name() PolicyName {
	return PolicySinglePrompt
}

// Respond retrieves context, builds the prompt and returns the model output verbatim.
func (p *SinglePromptPolicy) Respond(ctx context.Context, query model.Query, trace *Trace) (string, error) {
	trace.To(model.StateRetrieving)
	result, err := p.services.Engine.Retrieve(ctx, query.Text, &p.config)
	if err != nil {
		return "", err
	}
	trace.Retrieved(result.Len())

	prompt := SinglePrompt(result.Context(), query.Text)
	trace.To(model.StatePromptBuilt)

	trace.To(model.StateAwaitingLLM)
	return p.services.Gateway.Generate(ctx, prompt)
}

// TwoPhasePolicy classifies the query first and only retrieves for health topics.
// A failed classification counts as UNKNOWN and is treated like MEDICAL.
type TwoPhasePolicy struct {
	services *Services
	config   model.QueryConfig
	log      *slog.Logger
}

// NewTwoPhasePolicy creates a two phase policy
func NewTwoPhasePolicy(services *Services, config model.QueryConfig, logger *slog.Logger) *TwoPhasePolicy {
	return &TwoPhasePolicy{services: services, config: config, log: logger}
}

func (p *TwoPhasePolicy) Name() PolicyName {
	return PolicyTwoPhase
}

// Classify asks the model whether the query is about a health topic.
func (p *TwoPhasePolicy) Classify(ctx context.Context, query model.Query) (model.ClassificationLabel, error) {
	reply, err := p.services.Gateway.Generate(ctx, ClassificationPrompt(query.Text))
	if err != nil {
		if errors.Is(err, model.ErrConfiguration) {
			return model.LabelUnknown, err
		}
		p.log.Warn("Failed to classify query, assuming it is medical", slog.String("error", err.Error()))
		return model.LabelUnknown, nil
	}
	return model.ParseClassificationLabel(reply), nil
}

// Respond declines non medical queries and otherwise picks the strict context
// or the general knowledge prompt by context length.
func (p *TwoPhasePolicy) Respond(ctx context.Context, query model.Query, trace *Trace) (string, error) {
	trace.To(model.StateAwaitingLLM)
	label, err := p.Classify(ctx, query)
	if err != nil {
		return "", err
	}
	trace.Label = label
	if label == model.LabelNonMedical {
		return model.MsgOffTopic, nil
	}

	trace.To(model.StateRetrieving)
	result, err := p.services.Engine.Retrieve(ctx, query.Text, &p.config)
	if err != nil {
		return "", err
	}
	trace.Retrieved(result.Len())

	var prompt string
	retrieved := result.Context()
	if result.IsEmpty() || utf8.RuneCountInString(retrieved) < p.config.MinContextLength {
		prompt = GeneralKnowledgePrompt(query.Text)
	} else {
		prompt = StrictContextPrompt(retrieved, query.Text)
	}
	trace.To(model.StatePromptBuilt)

	trace.To(model.StateAwaitingLLM)
	return p.services.Gateway.Generate(ctx, prompt)
}
