package events

import (
	"context"
	"log/slog"
)

// LogHandler writes progress updates to a structured logger. Error stage
// updates are logged at ERROR, everything else at INFO.
type LogHandler struct {
	logger *slog.Logger
}

var _ ProgressHandler = (*LogHandler)(nil)

// NewLogHandler creates a LogHandler.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	return &LogHandler{logger: logger.With("component", "progress")}
}

// HandleProgress implements ProgressHandler.
func (h *LogHandler) HandleProgress(ctx context.Context, p Progress) error {
	attrs := []any{
		"stage", p.Stage,
		"progress", p.Progress,
	}
	if p.CurrentStep != nil {
		attrs = append(attrs, "current_step", *p.CurrentStep)
	}
	if p.TotalSteps != nil {
		attrs = append(attrs, "total_steps", *p.TotalSteps)
	}
	if p.CardsGenerated != nil {
		attrs = append(attrs, "cards_generated", *p.CardsGenerated)
	}

	level := slog.LevelInfo
	if p.Stage == StageError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, p.Message, attrs...)
	return nil
}
