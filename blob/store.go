// Package blob provides content-addressed storage for raw artifact bytes.
//
// Two backends share identical semantics: a local filesystem layout and an
// S3-compatible object store (MinIO). Objects are immutable once written;
// the storage path is derived from the artifact, never reused for different
// bytes, and writes are atomic.
package blob

import (
	"context"
	"time"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// PresignValidity is the minimum lifetime of a presigned download URL.
const PresignValidity = 15 * time.Minute

// Store is the narrow capability consumed by the collector and the query
// service. Implementations must never let one storage path resolve to two
// different byte sequences.
type Store interface {
	// Put writes data under a path derived from the artifact id and returns
	// the backend tag plus the storage path to persist on the artifact row.
	Put(ctx context.Context, artifactID string, data []byte) (types.StorageKind, string, error)

	// Get streams back the exact bytes previously written to path.
	Get(ctx context.Context, path string) ([]byte, error)

	// PresignGet returns a time-limited download URL for path, or "" when
	// the backend has no presigning (the query service then serves the
	// bytes through its own download route).
	PresignGet(ctx context.Context, path string, validity time.Duration) (string, error)

	// Kind returns the backend tag stored on artifact rows.
	Kind() types.StorageKind
}
