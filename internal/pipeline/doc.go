// Package pipeline turns a document into flashcards.
//
// Short documents are sent to the generator in a single call. Longer ones
// are outlined, split into topic-aligned chunks, and processed in bounded
// concurrent groups whose size depends on the provider tier. Chunk failures
// are isolated: a run fails only when every chunk fails.
package pipeline
