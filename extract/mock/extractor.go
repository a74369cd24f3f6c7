// Package mock provides a test double for the extract package.
package mock

import (
	"context"
	"sync"

	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/extract"
)

// MockExtractor is a test double for extract.Extractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, returns the source reference itself as the text.
	ExtractFunc func(ctx context.Context, sourceType core.SourceType, sourceRef string) (*extract.Result, error)

	mu        sync.Mutex
	callCount int
	calls     []string
}

var _ extract.Extractor = (*MockExtractor)(nil)

// NewMockExtractor creates a mock extractor with default behavior.
// Note: Returns concrete type to allow test assertions via CallCount.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// Extract records the call and delegates to ExtractFunc, or echoes the
// source reference as extracted text.
func (m *MockExtractor) Extract(ctx context.Context, sourceType core.SourceType, sourceRef string) (*extract.Result, error) {
	m.mu.Lock()
	m.callCount++
	m.calls = append(m.calls, sourceRef)
	fn := m.ExtractFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, sourceType, sourceRef)
	}
	return &extract.Result{
		Text:             sourceRef,
		Title:            sourceRef,
		ExtractionMethod: "mock",
	}, nil
}

// CallCount returns the number of times Extract was called.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls returns the source references passed to Extract, in order.
func (m *MockExtractor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls and the custom function.
func (m *MockExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.calls = nil
	m.ExtractFunc = nil
}
