package model

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	// Number of chunks to retrieve (N_RESULTS)
	TopK int `json:"top_k"`
	// Chunks further away than this distance are dropped, 0 disables the filter
	MaxDistance float64 `json:"max_distance,omitempty"`
	// Minimum context length in characters for the two phase policy to answer from context
	MinContextLength int `json:"min_context_length"`
}

// DefaultQueryConfig returns the default retrieval configuration
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:             3,
		MaxDistance:      0,
		MinContextLength: 50,
	}
}
