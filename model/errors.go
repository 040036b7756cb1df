package model

import "errors"

// Error taxonomy. Components wrap these so the orchestrator can map them with errors.Is.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrStoreInit        = errors.New("vector store initialization failed")
	ErrEncoderInit      = errors.New("embedding encoder initialization failed")
	ErrRetrieval        = errors.New("retrieval failed")
	ErrGatewayTransport = errors.New("llm transport error")
	ErrGatewayShape     = errors.New("unexpected llm response")
	ErrInput            = errors.New("invalid input")
)
