// Package notify publishes job completion events to downstream systems
// (portal cache refresh, operator monitoring).
//
// Publishing is best-effort: a failed publish is logged by the caller and
// never fails the job itself, and events carry the job id so receivers can
// deduplicate redelivered ones.
package notify

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// JobEvent is the payload published when a job run closes.
type JobEvent struct {
	EventType string         `json:"event_type"` // always "job_completed"
	JobID     string         `json:"job_id"`
	Component string         `json:"component"`
	SourceID  string         `json:"source_id"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	// Timestamp is the job finish instant, ISO 8601.
	Timestamp string `json:"timestamp"`
}

// NewJobEvent builds the completion event for a closed job run. The job id
// doubles as the receiver-side idempotency key, so the same shape is used
// for every publisher.
func NewJobEvent(jobID, component, sourceID string, status types.JobStatus, detail map[string]any, errText string) *JobEvent {
	return &JobEvent{
		EventType: "job_completed",
		JobID:     jobID,
		Component: component,
		SourceID:  sourceID,
		Status:    string(status),
		Error:     errText,
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Notifier publishes job completion events to a downstream system.
type Notifier interface {
	// Publish sends a job completion event. Must respect context
	// cancellation and deadlines.
	Publish(ctx context.Context, event *JobEvent) error

	// Close releases notifier resources.
	Close() error
}

// DefaultRetries is the per-event retry budget shared by the publishers.
const DefaultRetries = 3

// retryPolicy is the shared publish retry schedule: quick exponential
// probes bounded by the per-event retry budget, not by elapsed time — a
// job event is tiny and either the receiver comes back within a few
// probes or the event is dropped and logged.
func retryPolicy(ctx context.Context, retries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Multi fans one event out to several notifiers, returning the first error
// after attempting all of them.
type Multi []Notifier

// Publish sends the event to every notifier.
func (m Multi) Publish(ctx context.Context, event *JobEvent) error {
	var first error
	for _, n := range m {
		if err := n.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every notifier.
func (m Multi) Close() error {
	var first error
	for _, n := range m {
		if err := n.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
