package llm

import (
	"context"
	"encoding/json"
)

// Schema is a named JSON schema the provider must conform to.
type Schema struct {
	Name string
	Raw  json.RawMessage
}

// MarshalJSON lets the raw schema document pass through SDK marshalling
// untouched.
func (s Schema) MarshalJSON() ([]byte, error) {
	return s.Raw, nil
}

// ImageInput is a vision payload attached to a request.
type ImageInput struct {
	MIMEType string
	Data     []byte
}

// Request is a single structured completion request. Temperature is fixed
// at 0 by the adapter; there is no field for it.
type Request struct {
	System    string
	User      string
	Images    []ImageInput
	Schema    Schema
	MaxTokens int
}

// Status is the provider completion state checked strictly by the adapter.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
	StatusRefused    Status = "refused"
	StatusUnknown    Status = "unknown"
)

// Response is the raw provider outcome before strict-state handling.
type Response struct {
	Status Status
	JSON   []byte
	Detail string // finish reason / refusal detail for diagnostics
	Tokens int
}

// Provider is the minimal surface a structured-response backend implements.
// Test doubles implement this to exercise the strict three-state handling.
type Provider interface {
	Name() string
	GenerateStructured(ctx context.Context, req Request) (*Response, error)
	Close() error
}
