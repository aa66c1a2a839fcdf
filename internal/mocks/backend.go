package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/phrazzld/scry-cards/internal/generation"
)

// MockBackend implements generation.Backend for testing
type MockBackend struct {
	// StructuredGenerateFn allows test cases to mock the StructuredGenerate behavior
	StructuredGenerateFn func(ctx context.Context, req generation.StructuredRequest) (json.RawMessage, error)

	// Default response values
	Response json.RawMessage
	Err      error

	// Call tracking for verification
	Calls struct {
		mu       sync.Mutex
		Count    int
		Requests []generation.StructuredRequest
	}
}

var _ generation.Backend = (*MockBackend)(nil)

// Name implements the generation.Backend interface
func (m *MockBackend) Name() string {
	return "mock"
}

// StructuredGenerate implements the generation.Backend interface
func (m *MockBackend) StructuredGenerate(
	ctx context.Context,
	req generation.StructuredRequest,
) (json.RawMessage, error) {
	m.Calls.mu.Lock()
	m.Calls.Count++
	m.Calls.Requests = append(m.Calls.Requests, req)
	m.Calls.mu.Unlock()

	if m.StructuredGenerateFn != nil {
		return m.StructuredGenerateFn(ctx, req)
	}

	return m.Response, m.Err
}

// CallCount returns the number of StructuredGenerate calls so far.
func (m *MockBackend) CallCount() int {
	m.Calls.mu.Lock()
	defer m.Calls.mu.Unlock()
	return m.Calls.Count
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockBackend) LastRequest() generation.StructuredRequest {
	m.Calls.mu.Lock()
	defer m.Calls.mu.Unlock()
	if len(m.Calls.Requests) == 0 {
		return generation.StructuredRequest{}
	}
	return m.Calls.Requests[len(m.Calls.Requests)-1]
}

// NewMockBackendWithJSON creates a MockBackend that always returns raw
func NewMockBackendWithJSON(raw string) *MockBackend {
	return &MockBackend{
		Response: json.RawMessage(raw),
	}
}

// NewMockBackendWithError creates a MockBackend that always returns err
func NewMockBackendWithError(err error) *MockBackend {
	return &MockBackend{
		Err: err,
	}
}
