package rag

import (
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/medrag/model"
)

// Trace follows one request through the state machine.
type Trace struct {
	RequestID string
	Started   time.Time
	State     model.RequestState
	History   []model.RequestState
	Label     model.ClassificationLabel
	// RetrievedChunks is -1 until retrieval ran.
	RetrievedChunks int
}

// NewTrace starts a trace in RECEIVED with a fresh request id.
func NewTrace() *Trace {
	return &Trace{
		RequestID:       uuid.NewString(),
		Started:         time.Now(),
		State:           model.StateReceived,
		History:         []model.RequestState{model.StateReceived},
		RetrievedChunks: -1,
	}
}

// To moves the trace to the next state. Terminal states are final.
func (t *Trace) To(state model.RequestState) {
	if t == nil || t.State.IsTerminal() {
		return
	}
	t.State = state
	t.History = append(t.History, state)
}

// Retrieved records the number of retrieved chunks.
func (t *Trace) Retrieved(n int) {
	if t == nil {
		return
	}
	t.RetrievedChunks = n
}
