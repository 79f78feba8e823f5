// Package types defines the canonical fact model for the Estado
// Transparente pipeline: artifacts, entities, metrics, facts, provenance,
// snapshots and job runs.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
	"time"
)

// ParsedStatus tracks the parse lifecycle of an artifact.
type ParsedStatus string

const (
	// ParsedPending means no parse attempt has completed yet.
	ParsedPending ParsedStatus = "pending"
	// ParsedOK means a parse completed and its snapshot was written; a
	// header-only artifact is ok with zero facts.
	ParsedOK ParsedStatus = "ok"
	// ParsedFailed means the last parse attempt aborted.
	ParsedFailed ParsedStatus = "failed"
)

// StorageKind identifies the blob store backend holding an artifact's bytes.
type StorageKind string

const (
	// StorageFS is the local filesystem backend.
	StorageFS StorageKind = "fs"
	// StorageS3 is the S3-compatible object store backend.
	StorageS3 StorageKind = "s3"
)

// JobStatus is the lifecycle state of a job run.
type JobStatus string

const (
	// JobRunning means the job row is open.
	JobRunning JobStatus = "running"
	// JobOK means the job finished successfully.
	JobOK JobStatus = "ok"
	// JobFailed means the job finished with an error.
	JobFailed JobStatus = "failed"
)

// Snapshot groups the facts produced by one parser run.
// Snapshots are immutable after creation; deleting one cascades to its facts.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Note      string
}

// Artifact is one fetched source file plus its capture metadata.
// The content hash is the sole identity for deduplication: two fetches
// yielding identical bytes share one artifact row.
type Artifact struct {
	ID string
	// SourceID names the registered source this artifact was fetched for.
	SourceID string
	// URL is the original absolute URL the bytes were fetched from.
	URL string
	// CapturedAt is the UTC instant of the fetch.
	CapturedAt time.Time
	// ContentHash is the SHA-256 of the full body, "sha256:"-prefixed hex.
	ContentHash string
	MimeType    string
	SizeBytes   int64
	StorageKind StorageKind
	StoragePath string
	ParsedStatus ParsedStatus
	// ParseError holds the last parse failure text, if any.
	ParseError string
}

// Validate checks artifact field invariants before persistence.
func (a *Artifact) Validate() error {
	if a.SourceID == "" {
		return errors.New("artifact source_id must be non-empty")
	}
	if a.URL == "" {
		return errors.New("artifact url must be non-empty")
	}
	if err := ValidateContentHash(a.ContentHash); err != nil {
		return err
	}
	if a.SizeBytes < 0 {
		return fmt.Errorf("artifact size_bytes must be >= 0, got %d", a.SizeBytes)
	}
	switch a.StorageKind {
	case StorageFS, StorageS3:
	default:
		return fmt.Errorf("artifact storage_kind must be %q or %q, got %q", StorageFS, StorageS3, a.StorageKind)
	}
	return nil
}

// Entity is a real-world organization: a ministry, a service, a budget
// partida. NaturalKey is the stable external code and is unique.
type Entity struct {
	ID          string
	NaturalKey  string
	DisplayName string
	// Type is a free-form classification, default "org".
	Type string
}

// Metric is a measurement kind, e.g. presupuesto_ley. Metrics form a
// closed, manually curated set; the parser never invents one.
type Metric struct {
	ID          string
	NaturalKey  string
	DisplayName string
	// Unit is the declared unit for all facts of this metric, default CLP.
	Unit        string
	Description string
}

// Fact is a numeric value of one metric for one entity over one closed
// period. Every fact carries at least one provenance row.
type Fact struct {
	ID         string
	SnapshotID string
	EntityID   string
	MetricID   string
	PeriodStart time.Time
	PeriodEnd   time.Time
	ValueNum    float64
	Unit        string
	// Dims carries free-form dimensions, e.g. partida_code, aggregated_rows.
	Dims map[string]any
}

// Validate checks the period ordering invariant.
func (f *Fact) Validate() error {
	if f.PeriodEnd.Before(f.PeriodStart) {
		return fmt.Errorf("fact period_start %s after period_end %s",
			f.PeriodStart.Format("2006-01-02"), f.PeriodEnd.Format("2006-01-02"))
	}
	if f.Unit == "" {
		return errors.New("fact unit must be non-empty")
	}
	return nil
}

// Provenance binds a fact to the artifact it came from and the in-file
// location that produced it. Orphan provenance is forbidden.
type Provenance struct {
	ID         string
	FactID     string
	ArtifactID string
	// Location is a human-readable pointer such as "csv:line=42" or
	// "csv:group=50".
	Location string
	// Method records how the fact was derived, default "parse".
	Method    string
	CreatedAt time.Time
}

// JobRun is the audit record for one collector or parser invocation.
type JobRun struct {
	ID        string
	Component string
	SourceID  string
	StartedAt time.Time
	// FinishedAt is zero while the job is running.
	FinishedAt time.Time
	Status     JobStatus
	// Detail carries free-form structured context (counters, reuse flags,
	// schema diffs).
	Detail map[string]any
	Error  string
}

// Component tags for job runs.
const (
	ComponentCollector = "collector"
	ComponentParser    = "parser"
)
