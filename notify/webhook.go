package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Receiver-side headers. The job id header lets a webhook endpoint
// deduplicate redeliveries without parsing the body.
const (
	headerEvent = "X-Estado-Event"
	headerJobID = "X-Estado-Job-Id"
)

// DefaultWebhookTimeout bounds one POST attempt.
const DefaultWebhookTimeout = 10 * time.Second

// WebhookConfig configures the webhook notifier.
type WebhookConfig struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are custom HTTP headers added to each request
	// (e.g. an Authorization token for the receiving service).
	Headers map[string]string
	// Timeout bounds one POST attempt (default 10s).
	Timeout time.Duration
	// Retries is the per-event retry budget (default DefaultRetries).
	Retries int
}

// Webhook publishes job events as JSON POSTs. Receiver 5xx responses and
// transport failures are retried on the shared schedule; a 4xx means the
// receiver understood and refused, which no retry will change.
type Webhook struct {
	config WebhookConfig
	client *http.Client
}

// NewWebhook creates a webhook notifier from the given config.
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook notifier requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWebhookTimeout
	}
	if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Webhook{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Publish posts the event, retrying transient receiver failures.
func (w *Webhook) Publish(ctx context.Context, event *JobEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	op := func() error { return w.post(ctx, event.JobID, body) }
	if err := backoff.Retry(op, retryPolicy(ctx, w.config.Retries)); err != nil {
		return fmt.Errorf("webhook: publish job %s: %w", event.JobID, err)
	}
	return nil
}

// post performs one POST attempt. Returns a permanent error for 4xx
// responses so the retry loop stops immediately.
func (w *Webhook) post(ctx context.Context, jobID string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEvent, "job_completed")
	req.Header.Set(headerJobID, jobID)
	for k, v := range w.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("receiver returned %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("receiver rejected event with %d", resp.StatusCode))
	}
}

// Close releases notifier resources.
func (w *Webhook) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

// Verify Webhook implements Notifier.
var _ Notifier = (*Webhook)(nil)
