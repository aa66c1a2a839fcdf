// Package mocks provides shared test doubles for the generation boundary.
//
// MockBackend stands in for a structured LLM provider and MockGenerator for
// the per-chunk flashcard generator. Both record every call and let a test
// replace behaviour through a function field:
//
//	backend := &mocks.MockBackend{
//	    StructuredGenerateFn: func(ctx context.Context, req generation.StructuredRequest) (json.RawMessage, error) {
//	        return json.RawMessage(`{"cards":[]}`), nil
//	    },
//	}
//
// Mocks are safe for concurrent use so they can back the chunk processor.
package mocks
