package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/distillery/ai"
)

// MockDistiller is a test double for ai.Distiller.
// It allows custom behavior injection via function fields.
type MockDistiller struct {
	// DistillFunc is called by Distill if set.
	// If nil, uses a default uppercase-first-words condensation.
	DistillFunc func(ctx context.Context, rawText string, cfg *ai.Config) (string, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.Distiller = (*MockDistiller)(nil)

// NewMockDistiller creates a mock distiller with default behavior.
// Note: Returns concrete type to allow test assertions via CallCount.
func NewMockDistiller() *MockDistiller {
	return &MockDistiller{}
}

// Distill condenses text with a trivially checkable transformation.
// Default behavior: uppercases the first five words.
func (m *MockDistiller) Distill(ctx context.Context, rawText string, cfg *ai.Config) (string, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.DistillFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, rawText, cfg)
	}

	words := strings.Fields(rawText)
	if len(words) == 0 {
		return "", ai.ErrEmptyInput
	}
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.ToUpper(strings.Join(words, " ")), nil
}

// CallCount returns the number of times Distill was called.
func (m *MockDistiller) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom function.
func (m *MockDistiller) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.DistillFunc = nil
}
