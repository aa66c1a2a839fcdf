// Package domain contains the entities that flow through the flashcard
// generation pipeline: generation options, topic outlines, semantic chunks,
// generated flashcards and sub-deck groups.
//
// Every entity here is transient. It is built for a single generation request
// and handed back to the caller, which decides what (if anything) to persist.
package domain
