package events

import (
	"context"
)

// Stage identifies a phase of a generation run.
type Stage string

// Pipeline stages in the order they occur. StageError may replace any stage.
const (
	StageExtracting Stage = "extracting"
	StageAnalyzing  Stage = "analyzing"
	StageChunking   Stage = "chunking"
	StageGenerating Stage = "generating"
	StageSaving     Stage = "saving"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// Progress percentages reported at fixed points of a run. Generation is
// reported proportionally between GeneratingStartPercent and
// GeneratingEndPercent.
const (
	AnalyzingPercent       = 10
	OutlineDonePercent     = 20
	ChunkingPercent        = 25
	GeneratingStartPercent = 25
	GeneratingEndPercent   = 95
	CompletePercent        = 100
	ErrorPercent           = 0
)

// Progress is a single progress update.
type Progress struct {
	Stage    Stage  `json:"stage"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`

	// Optional counters, nil when not applicable to the stage.
	CurrentStep    *int `json:"currentStep,omitempty"`
	TotalSteps     *int `json:"totalSteps,omitempty"`
	CardsGenerated *int `json:"cardsGenerated,omitempty"`
}

// ProgressFunc receives progress updates. It must not block for long.
type ProgressFunc func(ctx context.Context, p Progress)

// Report calls f with p when f is non-nil.
func (f ProgressFunc) Report(ctx context.Context, p Progress) {
	if f != nil {
		f(ctx, p)
	}
}

// ProgressHandler is a component that consumes progress updates.
type ProgressHandler interface {
	// HandleProgress processes one update. Errors are logged by the
	// emitter and never interrupt the run.
	HandleProgress(ctx context.Context, p Progress) error
}

// GeneratingPercent maps processed/total chunks onto the generating range.
func GeneratingPercent(processed, total int) int {
	if total <= 0 {
		return GeneratingEndPercent
	}
	if processed > total {
		processed = total
	}
	span := GeneratingEndPercent - GeneratingStartPercent
	return GeneratingStartPercent + span*processed/total
}

// Int returns a pointer to n, for the optional Progress counters.
func Int(n int) *int {
	return &n
}
