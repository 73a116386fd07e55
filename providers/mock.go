package providers

import (
	"context"
	"sync"
)

// MockProvider is a scriptable Provider for tests. Responses are returned in
// registration order; once exhausted the last response repeats.
type MockProvider struct {
	id        string
	mu        sync.Mutex
	responses []string
	err       error
	requests  []TextRequest
}

// NewMockProvider creates a mock provider with the given canned responses.
func NewMockProvider(id string, responses ...string) *MockProvider {
	return &MockProvider{id: id, responses: responses}
}

// FailWith makes every GenerateText call return err.
func (m *MockProvider) FailWith(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// ID returns the provider identifier.
func (m *MockProvider) ID() string {
	return m.id
}

// GenerateText returns the next canned response.
func (m *MockProvider) GenerateText(_ context.Context, req TextRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}

	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

// Requests returns a copy of every request seen so far.
func (m *MockProvider) Requests() []TextRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TextRequest(nil), m.requests...)
}

// Close is a no-op.
func (m *MockProvider) Close() error {
	return nil
}
