package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"

	"github.com/aws/smithy-go"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// Callers of a content-addressed store act on exactly four situations:
// the object is missing, the backend refused us, the backend is out of
// space, or the backend is worth retrying. Anything finer-grained (DNS vs
// connection refused, 500 vs 503) changes nothing about what the pipeline
// does next, so it stays inside the wrapped error.
var (
	// ErrNotFound means no object exists at the storage path. For a
	// registered artifact this is serious: the raw bytes backing its
	// content hash are gone.
	ErrNotFound = errors.New("object not found")

	// ErrDenied means the backend rejected our credentials or permissions.
	// Retrying without operator intervention is pointless.
	ErrDenied = errors.New("storage access denied")

	// ErrExhausted means the backend is out of space or quota.
	ErrExhausted = errors.New("storage capacity exhausted")

	// ErrUnavailable means a transient backend failure (timeout,
	// throttling, network). Collector and parser jobs are safe to retry.
	ErrUnavailable = errors.New("storage temporarily unavailable")
)

// errUnclassified tags failures no rule recognizes. They are surfaced
// as-is rather than guessed at.
var errUnclassified = errors.New("storage failure")

// StorageError wraps a backend failure with its classification and the
// operation context. The original error stays in the chain for
// errors.Is/errors.As traversal.
type StorageError struct {
	// Kind is one of the package sentinels (or errUnclassified).
	Kind error
	// Backend tags which store implementation failed.
	Backend types.StorageKind
	// Op is the operation that failed: "init", "put", "get", "presign".
	Op string
	// Path is the storage path involved (derived from the artifact id), if any.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s %s: %v: %v", e.Backend, e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Backend, e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// wrapFS classifies a filesystem-backend failure. Returns nil if err is nil.
func wrapFS(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classifyFS(err), Backend: types.StorageFS, Op: op, Path: path, Err: err}
}

// wrapS3 classifies an object-store failure. Returns nil if err is nil.
func wrapS3(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classifyS3(err), Backend: types.StorageS3, Op: op, Path: path, Err: err}
}

// classifyFS maps POSIX failures onto the sentinels. The os package wraps
// syscall errors, so errors.Is sees through to the errno.
func classifyFS(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrDenied
	case errors.Is(err, syscall.ENOSPC):
		return ErrExhausted
	default:
		return classifyCommon(err)
	}
}

// s3Codes maps S3 API error codes onto the sentinels. MinIO speaks the
// same codes as AWS for everything the blob store touches.
var s3Codes = map[string]error{
	"NoSuchKey":              ErrNotFound,
	"NoSuchBucket":           ErrNotFound,
	"NotFound":               ErrNotFound,
	"AccessDenied":           ErrDenied,
	"InvalidAccessKeyId":     ErrDenied,
	"SignatureDoesNotMatch":  ErrDenied,
	"ExpiredToken":           ErrDenied,
	"QuotaExceeded":          ErrExhausted,
	"SlowDown":               ErrUnavailable,
	"RequestTimeout":         ErrUnavailable,
	"ServiceUnavailable":     ErrUnavailable,
	"InternalError":          ErrUnavailable,
}

// classifyS3 maps object-store failures onto the sentinels via the typed
// API error the AWS SDK carries, falling back to transport-level checks.
func classifyS3(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := s3Codes[apiErr.ErrorCode()]; ok {
			return kind
		}
	}
	return classifyCommon(err)
}

// classifyCommon handles the failures both backends share: deadlines and
// the network between us and an object store.
func classifyCommon(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrUnavailable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrUnavailable
	}
	return errUnclassified
}
