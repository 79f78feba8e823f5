// Package metrics provides per-job counters for the pipeline.
//
// The Collector accumulates counters during a single collector or parser
// job. It is a leaf package with no internal dependencies; the snapshot is
// folded into the closing job_runs detail rather than exported live.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the job counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Collector side
	FetchAttempts   int64
	BytesFetched    int64
	ArtifactsStored int64
	ArtifactsReused int64

	// Parser side
	RowsRead     int64
	RowsRejected int64
	FactsWritten int64

	// Blob store
	BlobWriteSuccess int64
	BlobWriteFailure int64

	// Dimensions (informational, set at construction)
	Component string
	SourceID  string
}

// Collector accumulates counters during a single job.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe
// so call sites need no guards when metrics are not wired.
type Collector struct {
	mu sync.Mutex

	fetchAttempts   int64
	bytesFetched    int64
	artifactsStored int64
	artifactsReused int64

	rowsRead     int64
	rowsRejected int64
	factsWritten int64

	blobWriteSuccess int64
	blobWriteFailure int64

	component string
	sourceID  string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(component, sourceID string) *Collector {
	return &Collector{component: component, sourceID: sourceID}
}

func (c *Collector) add(field *int64, n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// IncFetchAttempts records one fetch attempt (including retries).
func (c *Collector) IncFetchAttempts() {
	if c == nil {
		return
	}
	c.add(&c.fetchAttempts, 1)
}

// AddBytesFetched records the size of a fetched body.
func (c *Collector) AddBytesFetched(n int64) {
	if c == nil {
		return
	}
	c.add(&c.bytesFetched, n)
}

// IncArtifactsStored records a new artifact row plus blob.
func (c *Collector) IncArtifactsStored() {
	if c == nil {
		return
	}
	c.add(&c.artifactsStored, 1)
}

// IncArtifactsReused records a content-hash dedup hit.
func (c *Collector) IncArtifactsReused() {
	if c == nil {
		return
	}
	c.add(&c.artifactsReused, 1)
}

// AddRowsRead records data rows consumed from an artifact.
func (c *Collector) AddRowsRead(n int64) {
	if c == nil {
		return
	}
	c.add(&c.rowsRead, n)
}

// IncRowsRejected records one row that failed strict validation.
func (c *Collector) IncRowsRejected() {
	if c == nil {
		return
	}
	c.add(&c.rowsRejected, 1)
}

// AddFactsWritten records facts persisted in a snapshot.
func (c *Collector) AddFactsWritten(n int64) {
	if c == nil {
		return
	}
	c.add(&c.factsWritten, n)
}

// IncBlobWriteSuccess records a successful blob write.
func (c *Collector) IncBlobWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.blobWriteSuccess, 1)
}

// IncBlobWriteFailure records a failed blob write.
func (c *Collector) IncBlobWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.blobWriteFailure, 1)
}

// Snapshot returns an immutable copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		FetchAttempts:    c.fetchAttempts,
		BytesFetched:     c.bytesFetched,
		ArtifactsStored:  c.artifactsStored,
		ArtifactsReused:  c.artifactsReused,
		RowsRead:         c.rowsRead,
		RowsRejected:     c.rowsRejected,
		FactsWritten:     c.factsWritten,
		BlobWriteSuccess: c.blobWriteSuccess,
		BlobWriteFailure: c.blobWriteFailure,
		Component:        c.component,
		SourceID:         c.sourceID,
	}
}

// Detail renders the non-zero counters as a job detail fragment.
func (s Snapshot) Detail() map[string]any {
	out := map[string]any{}
	put := func(key string, v int64) {
		if v != 0 {
			out[key] = v
		}
	}
	put("fetch_attempts", s.FetchAttempts)
	put("bytes_fetched", s.BytesFetched)
	put("artifacts_stored", s.ArtifactsStored)
	put("artifacts_reused", s.ArtifactsReused)
	put("rows_read", s.RowsRead)
	put("rows_rejected", s.RowsRejected)
	put("facts_written", s.FactsWritten)
	put("blob_write_success", s.BlobWriteSuccess)
	put("blob_write_failure", s.BlobWriteFailure)
	return out
}
