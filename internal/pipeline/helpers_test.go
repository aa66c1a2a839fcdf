package pipeline_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/scry-cards/internal/config"
	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/events"
	"github.com/phrazzld/scry-cards/internal/tokenizer"
	"github.com/stretchr/testify/require"
)

var wordCounter = tokenizer.CounterFunc(func(text string) int {
	return len(strings.Fields(text))
})

func testProfile(t *testing.T, maxConcurrency int) config.TierProfile {
	t.Helper()
	p, err := config.ProfileFor(config.TierPro)
	require.NoError(t, err)
	p.MaxConcurrency = maxConcurrency
	p.RetryDelay = time.Millisecond
	p.JitterPercent = 0
	return p
}

func qaOptions(content string) domain.GenerationOptions {
	return domain.GenerationOptions{
		Content:     content,
		CardTypes:   []domain.CardType{domain.CardTypeQA},
		Granularity: 4,
	}
}

// progressRecorder collects progress updates.
type progressRecorder struct {
	mu      sync.Mutex
	updates []events.Progress
}

func (r *progressRecorder) record(ctx context.Context, p events.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, p)
}

func (r *progressRecorder) all() []events.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Progress(nil), r.updates...)
}

func (r *progressRecorder) stages() []events.Stage {
	var out []events.Stage
	for _, u := range r.all() {
		out = append(out, u.Stage)
	}
	return out
}

// fakeOutliner returns a fixed outline and counts calls.
type fakeOutliner struct {
	mu      sync.Mutex
	outline domain.TopicOutline
	calls   int
}

func (f *fakeOutliner) Extract(ctx context.Context, content string) domain.TopicOutline {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.outline
}

func (f *fakeOutliner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func cardFor(content string) domain.GeneratedFlashcard {
	return domain.GeneratedFlashcard{Question: "Q " + content, Answer: "A " + content, CardType: domain.CardTypeQA}
}
