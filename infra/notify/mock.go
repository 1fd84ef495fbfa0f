package notify

import (
	"context"
	"sync"

	corenotify "github.com/cleanbear/dispatch/core/notify"
)

// MockPublisher records summaries for tests.
type MockPublisher struct {
	mu        sync.Mutex
	Summaries []corenotify.RunSummary
	Err       error
}

// PublishRunSummary records the summary or returns the configured error.
func (m *MockPublisher) PublishRunSummary(_ context.Context, summary corenotify.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Summaries = append(m.Summaries, summary)
	return nil
}

// Published returns a copy of the recorded summaries.
func (m *MockPublisher) Published() []corenotify.RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]corenotify.RunSummary(nil), m.Summaries...)
}
