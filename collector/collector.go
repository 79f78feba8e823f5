// Package collector implements the ingest operation: fetch a source
// artifact, content-hash it, store the raw bytes and register the artifact.
//
// Ingestion is idempotent on the content hash: refetching identical bytes
// reuses the existing artifact row and writes nothing new.
package collector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/IANewCool/estado-transparente-portal/blob"
	"github.com/IANewCool/estado-transparente-portal/log"
	"github.com/IANewCool/estado-transparente-portal/metrics"
	"github.com/IANewCool/estado-transparente-portal/notify"
	"github.com/IANewCool/estado-transparente-portal/registry"
	"github.com/IANewCool/estado-transparente-portal/types"
)

// Store is the canonical-store capability the collector consumes.
type Store interface {
	OpenJob(ctx context.Context, component, sourceID string) (string, error)
	CloseJob(ctx context.Context, jobID string, status types.JobStatus, detail map[string]any, errText string) error
	ArtifactByHash(ctx context.Context, contentHash string) (*types.Artifact, error)
	InsertArtifact(ctx context.Context, a *types.Artifact) error
}

// Collector fetches and registers source artifacts. Safe for concurrent
// use across distinct source ids; the per-source rate limiter serializes
// requests to one upstream.
type Collector struct {
	store    Store
	blobs    blob.Store
	registry *registry.Registry
	fetcher  *Fetcher
	logger   *log.Logger
	notifier notify.Notifier
}

// Option configures a Collector.
type Option func(*Collector)

// WithNotifier wires an optional job-event publisher.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Collector) { c.notifier = n }
}

// WithFetcher replaces the default fetcher (tests).
func WithFetcher(f *Fetcher) Option {
	return func(c *Collector) { c.fetcher = f }
}

// New creates a collector.
func New(store Store, blobs blob.Store, reg *registry.Registry, logger *log.Logger, opts ...Option) *Collector {
	c := &Collector{
		store:    store,
		blobs:    blobs,
		registry: reg,
		fetcher:  NewFetcher(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest fetches rawURL for sourceID and returns the artifact id holding
// its bytes. The source must be registered and the URL absolute with an
// http, https or file scheme.
//
// On any failure after the job row opens, the row closes as failed with the
// error captured and no other state is visible.
func (c *Collector) Ingest(ctx context.Context, sourceID, rawURL string) (string, error) {
	src, err := c.registry.Lookup(sourceID)
	if err != nil {
		return "", types.NewPipelineError(types.KindFetch, "ingest", err)
	}
	if err := validateURL(rawURL); err != nil {
		return "", types.NewPipelineError(types.KindFetch, "ingest", err)
	}

	counters := metrics.NewCollector(types.ComponentCollector, sourceID)

	jobID, err := c.store.OpenJob(ctx, types.ComponentCollector, sourceID)
	if err != nil {
		return "", types.NewPipelineError(types.KindPersist, "ingest", err)
	}
	logger := c.logger.WithJob(jobID)

	artifactID, reused, err := c.ingest(ctx, logger, src, rawURL, counters)
	detail := counters.Snapshot().Detail()
	if err != nil {
		c.closeJob(ctx, logger, jobID, sourceID, types.JobFailed, detail, err.Error())
		return "", err
	}

	detail["artifact_id"] = artifactID
	if reused {
		detail["reused"] = true
	}
	c.closeJob(ctx, logger, jobID, sourceID, types.JobOK, detail, "")
	return artifactID, nil
}

// ingest runs the fetch-hash-store sequence and reports whether an
// existing artifact was reused.
func (c *Collector) ingest(ctx context.Context, logger *log.Logger, src *registry.Source, rawURL string, counters *metrics.Collector) (string, bool, error) {
	body, mimeType, err := c.fetcher.Fetch(ctx, src.ID, rawURL, counters)
	if err != nil {
		return "", false, types.NewPipelineError(types.KindFetch, "ingest", err)
	}
	if mimeType == "" {
		mimeType = src.MimeType
	}
	counters.AddBytesFetched(int64(len(body)))

	contentHash := types.HashBytes(body)
	logger.Info("fetched source body", map[string]any{
		"url":          rawURL,
		"size_bytes":   len(body),
		"content_hash": contentHash,
	})

	if existing, err := c.store.ArtifactByHash(ctx, contentHash); err == nil {
		counters.IncArtifactsReused()
		logger.Info("artifact reused by content hash", map[string]any{"artifact_id": existing.ID})
		return existing.ID, true, nil
	}

	artifactID := uuid.NewString()
	kind, path, err := c.blobs.Put(ctx, artifactID, body)
	if err != nil {
		counters.IncBlobWriteFailure()
		return "", false, types.NewPipelineError(types.KindStorage, "ingest", err)
	}
	counters.IncBlobWriteSuccess()

	artifact := &types.Artifact{
		ID:           artifactID,
		SourceID:     src.ID,
		URL:          rawURL,
		CapturedAt:   time.Now().UTC(),
		ContentHash:  contentHash,
		MimeType:     mimeType,
		SizeBytes:    int64(len(body)),
		StorageKind:  kind,
		StoragePath:  path,
		ParsedStatus: types.ParsedPending,
	}
	if err := c.store.InsertArtifact(ctx, artifact); err != nil {
		// A concurrent collector won the unique-hash race; reuse its row.
		if existing, lookupErr := c.store.ArtifactByHash(ctx, contentHash); lookupErr == nil {
			counters.IncArtifactsReused()
			logger.Info("artifact reused after insert race", map[string]any{"artifact_id": existing.ID})
			return existing.ID, true, nil
		}
		return "", false, types.NewPipelineError(types.KindPersist, "ingest", err)
	}
	counters.IncArtifactsStored()

	return artifactID, false, nil
}

// closeJob finishes the job row and publishes the completion event.
// Close failures are logged, not propagated; the primary error wins.
func (c *Collector) closeJob(ctx context.Context, logger *log.Logger, jobID, sourceID string, status types.JobStatus, detail map[string]any, errText string) {
	if err := c.store.CloseJob(ctx, jobID, status, detail, errText); err != nil {
		logger.Error("failed to close job run", map[string]any{"error": err.Error()})
	}
	if c.notifier == nil {
		return
	}
	event := notify.NewJobEvent(jobID, types.ComponentCollector, sourceID, status, detail, errText)
	if err := c.notifier.Publish(ctx, event); err != nil {
		logger.Warn("job event publish failed", map[string]any{"error": err.Error()})
	}
}

// validateURL enforces the precondition: absolute http, https or file URL.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("url %q is not absolute", rawURL)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	default:
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
}
