package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Emitter dispatches progress updates to registered handlers. A failing or
// panicking handler is logged and does not affect the others.
type Emitter struct {
	handlers []ProgressHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewEmitter creates an Emitter with the given handlers.
func NewEmitter(logger *slog.Logger, handlers ...ProgressHandler) *Emitter {
	e := &Emitter{
		handlers: make([]ProgressHandler, 0, len(handlers)),
		logger:   logger.With("component", "progress_emitter"),
	}
	for _, h := range handlers {
		e.RegisterHandler(h)
	}
	return e
}

// RegisterHandler adds a handler that will receive subsequent updates.
func (e *Emitter) RegisterHandler(handler ProgressHandler) {
	if handler == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered progress handler", "handler_count", len(e.handlers))
}

// Emit publishes p to every registered handler. Its signature matches
// ProgressFunc.
func (e *Emitter) Emit(ctx context.Context, p Progress) {
	e.mu.RLock()
	handlers := make([]ProgressHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for i, handler := range handlers {
		if err := e.dispatch(ctx, handler, p); err != nil {
			e.logger.ErrorContext(ctx, "progress handler failed",
				"error", err,
				"handler_index", i,
				"stage", p.Stage)
		}
	}
}

// Func returns Emit as a ProgressFunc.
func (e *Emitter) Func() ProgressFunc {
	return e.Emit
}

func (e *Emitter) dispatch(ctx context.Context, handler ProgressHandler, p Progress) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.HandleProgress(ctx, p)
}
