package model

// RequestState is a step of the request state machine.
type RequestState string

const (
	StateReceived    RequestState = "RECEIVED"
	StateRetrieving  RequestState = "RETRIEVING"
	StatePromptBuilt RequestState = "PROMPT_BUILT"
	StateAwaitingLLM RequestState = "AWAITING_LLM"
	StateResponded   RequestState = "RESPONDED"
	StateError       RequestState = "ERROR"
)

// IsTerminal reports whether no further transitions happen from this state.
func (s RequestState) IsTerminal() bool {
	return s == StateResponded || s == StateError
}
