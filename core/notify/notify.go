// Package notify defines the outbound notification contract for finished
// assignment runs. Implementations live under infra/notify.
package notify

import (
	"context"
	"time"
)

// RunSummary is the payload published to operations channels after a run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Total      int       `json:"total"`
	Assigned   int       `json:"assigned"`
	Failed     int       `json:"failed"`
	Deferred   int       `json:"deferred"`
	Skipped    int       `json:"skipped_technicians"`
	Message    string    `json:"message"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher delivers run summaries. Publish failures must not fail the run
// itself; callers log and continue.
type Publisher interface {
	PublishRunSummary(ctx context.Context, summary RunSummary) error
}

// NopPublisher discards all notifications.
type NopPublisher struct{}

// PublishRunSummary implements Publisher.
func (NopPublisher) PublishRunSummary(context.Context, RunSummary) error { return nil }
