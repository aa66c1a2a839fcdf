package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProgressHandler records the updates it receives.
type MockProgressHandler struct {
	mu           sync.Mutex
	Received     []Progress
	HandlerError error
	Panic        bool
}

func (m *MockProgressHandler) HandleProgress(ctx context.Context, p Progress) error {
	m.mu.Lock()
	m.Received = append(m.Received, p)
	m.mu.Unlock()
	if m.Panic {
		panic("boom")
	}
	return m.HandlerError
}

func TestEmitter(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	update := Progress{Stage: StageAnalyzing, Message: "Analyzing document", Progress: AnalyzingPercent}

	t.Run("emit with no handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewEmitter(logger)
		assert.NotPanics(t, func() { emitter.Emit(context.Background(), update) })
	})

	t.Run("fans out to every handler", func(t *testing.T) {
		t.Parallel()

		h1, h2 := &MockProgressHandler{}, &MockProgressHandler{}
		emitter := NewEmitter(logger, h1)
		emitter.RegisterHandler(h2)
		emitter.RegisterHandler(nil)

		emitter.Func().Report(context.Background(), update)

		assert.Equal(t, []Progress{update}, h1.Received)
		assert.Equal(t, []Progress{update}, h2.Received)
	})

	t.Run("failing and panicking handlers are isolated", func(t *testing.T) {
		t.Parallel()

		failing := &MockProgressHandler{HandlerError: errors.New("handler error")}
		panicking := &MockProgressHandler{Panic: true}
		healthy := &MockProgressHandler{}
		emitter := NewEmitter(logger, failing, panicking, healthy)

		assert.NotPanics(t, func() { emitter.Emit(context.Background(), update) })
		assert.Len(t, failing.Received, 1)
		assert.Len(t, panicking.Received, 1)
		assert.Len(t, healthy.Received, 1)
	})
}

func TestProgressFunc_NilIsNoop(t *testing.T) {
	t.Parallel()

	var f ProgressFunc
	assert.NotPanics(t, func() { f.Report(context.Background(), Progress{}) })
}

func TestGeneratingPercent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, GeneratingStartPercent, GeneratingPercent(0, 10))
	assert.Equal(t, 60, GeneratingPercent(5, 10))
	assert.Equal(t, GeneratingEndPercent, GeneratingPercent(10, 10))
	assert.Equal(t, GeneratingEndPercent, GeneratingPercent(12, 10))
	assert.Equal(t, GeneratingEndPercent, GeneratingPercent(0, 0))

	prev := 0
	for i := 0; i <= 7; i++ {
		p := GeneratingPercent(i, 7)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestLogHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := NewLogHandler(logger)

	require.NoError(t, h.HandleProgress(context.Background(), Progress{
		Stage:          StageGenerating,
		Message:        "Processed 2 of 4 chunks",
		Progress:       GeneratingPercent(2, 4),
		CurrentStep:    Int(2),
		TotalSteps:     Int(4),
		CardsGenerated: Int(17),
	}))
	require.NoError(t, h.HandleProgress(context.Background(), Progress{Stage: StageError, Message: "failed"}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "generating", first["stage"])
	assert.Equal(t, float64(17), first["cards_generated"])
	assert.Equal(t, "progress", first["component"])

	var second map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "ERROR", second["level"])
	assert.NotContains(t, second, "current_step")
}
