package model

import "strings"

// Query is the user text of a single request. It is never persisted.
type Query struct {
	Text string `json:"text"`
}

// NewQuery creates a query from raw user input.
func NewQuery(text string) Query {
	return Query{Text: strings.TrimSpace(text)}
}

// IsEmpty reports whether the query has no usable text.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == ""
}
