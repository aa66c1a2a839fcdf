package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(
		ctx context.Context,
		content string,
		opts domain.GenerationOptions,
		chunkContext string,
	) ([]domain.GeneratedFlashcard, error)

	// Default response values
	Cards []domain.GeneratedFlashcard
	Err   error

	// Call tracking for verification
	GenerateCalls struct {
		// mu protects the call tracking state for concurrent callers
		mu sync.Mutex

		// Count tracks how many times Generate was called
		Count int

		// Contents contains all chunk contents passed to Generate calls
		Contents []string

		// ChunkContexts contains all chunk context labels passed to Generate calls
		ChunkContexts []string
	}
}

var _ generation.Generator = (*MockGenerator)(nil)

// Generate implements the generation.Generator interface
func (m *MockGenerator) Generate(
	ctx context.Context,
	content string,
	opts domain.GenerationOptions,
	chunkContext string,
) ([]domain.GeneratedFlashcard, error) {
	m.GenerateCalls.mu.Lock()
	m.GenerateCalls.Count++
	m.GenerateCalls.Contents = append(m.GenerateCalls.Contents, content)
	m.GenerateCalls.ChunkContexts = append(m.GenerateCalls.ChunkContexts, chunkContext)
	m.GenerateCalls.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, content, opts, chunkContext)
	}

	return m.Cards, m.Err
}

// CallCount returns the number of Generate calls so far.
func (m *MockGenerator) CallCount() int {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	return m.GenerateCalls.Count
}

// NewMockGeneratorWithCards creates a MockGenerator that returns the specified cards
func NewMockGeneratorWithCards(cards []domain.GeneratedFlashcard) *MockGenerator {
	return &MockGenerator{
		Cards: cards,
	}
}

// NewMockGeneratorWithError creates a MockGenerator that returns the specified error
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{
		Err: err,
	}
}

// NewMockGeneratorWithDefaultCards creates a MockGenerator with sample cards
func NewMockGeneratorWithDefaultCards() *MockGenerator {
	return &MockGenerator{
		Cards: []domain.GeneratedFlashcard{
			{
				Question: "What is hexagonal architecture?",
				Answer:   "An architectural pattern that isolates the domain from external concerns.",
				CardType: domain.CardTypeQA,
				Subtopic: "Architecture",
			},
			{
				Question: "Dependency {{c1::inversion}} makes both layers depend on abstractions.",
				Answer:   "inversion",
				CardType: domain.CardTypeCloze,
				Subtopic: "Design",
			},
		},
	}
}

// MockGeneratorThatFails creates a MockGenerator that simulates a generation failure
func MockGeneratorThatFails() *MockGenerator {
	return &MockGenerator{
		Err: generation.ErrGenerationFailed,
	}
}

// MockGeneratorWithTransientFailure creates a MockGenerator that simulates a transient failure
func MockGeneratorWithTransientFailure() *MockGenerator {
	return &MockGenerator{
		Err: generation.ErrTransientFailure,
	}
}

// MockGeneratorWithContentBlocked creates a MockGenerator that simulates content being blocked
func MockGeneratorWithContentBlocked() *MockGenerator {
	return &MockGenerator{
		Err: generation.ErrContentBlocked,
	}
}

// Reset resets the call tracking state
func (m *MockGenerator) Reset() {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()

	m.GenerateCalls.Count = 0
	m.GenerateCalls.Contents = nil
	m.GenerateCalls.ChunkContexts = nil
}
