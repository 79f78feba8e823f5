package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures for policy decisions: input-shape
// errors demand operator intervention, infrastructure errors are retryable,
// integrity errors quarantine the artifact.
type ErrorKind int

const (
	// KindFetch is a network or HTTP failure while fetching a source.
	KindFetch ErrorKind = iota
	// KindStorage is a blob store read or write failure.
	KindStorage
	// KindPersist is a canonical store write failure.
	KindPersist
	// KindIntegrity means blob bytes no longer match the stored content hash.
	KindIntegrity
	// KindSchemaAmbiguity means the source header deviates from its
	// registered schema. Never recovered by inference.
	KindSchemaAmbiguity
	// KindRowValidation means a data row failed strict validation.
	KindRowValidation
	// KindUnknownMetric means the source maps to an unregistered metric.
	KindUnknownMetric
	// KindDuplicateParse means the artifact is already parsed ok.
	KindDuplicateParse
)

// String returns the snake_case tag used in job detail and error envelopes.
func (k ErrorKind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindStorage:
		return "storage"
	case KindPersist:
		return "persist"
	case KindIntegrity:
		return "integrity"
	case KindSchemaAmbiguity:
		return "schema_ambiguity"
	case KindRowValidation:
		return "row_validation"
	case KindUnknownMetric:
		return "unknown_metric"
	case KindDuplicateParse:
		return "duplicate_parse"
	default:
		return "unknown"
	}
}

// InputShape reports whether the kind is an input-shape error: the source
// changed under us and an operator must update the registry before retry.
func (k ErrorKind) InputShape() bool {
	switch k {
	case KindSchemaAmbiguity, KindRowValidation, KindUnknownMetric, KindDuplicateParse:
		return true
	default:
		return false
	}
}

// PipelineError wraps an underlying error with pipeline classification.
// The original error stays in the chain for errors.Is/errors.As traversal.
type PipelineError struct {
	// Kind is the failure classification.
	Kind ErrorKind
	// Op is the operation that failed, e.g. "ingest", "parse".
	Op string
	// Err is the underlying error.
	Err error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a classified pipeline error.
func NewPipelineError(kind ErrorKind, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// Errorf creates a classified pipeline error from a format string.
func Errorf(kind ErrorKind, op, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the classification from err. The second return is false
// when err carries no PipelineError in its chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

func isKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsFetch reports whether err is a fetch failure.
func IsFetch(err error) bool { return isKind(err, KindFetch) }

// IsStorage reports whether err is a blob store failure.
func IsStorage(err error) bool { return isKind(err, KindStorage) }

// IsPersist reports whether err is a canonical store failure.
func IsPersist(err error) bool { return isKind(err, KindPersist) }

// IsIntegrity reports whether err is a content hash mismatch.
func IsIntegrity(err error) bool { return isKind(err, KindIntegrity) }

// IsSchemaAmbiguity reports whether err is a schema deviation.
func IsSchemaAmbiguity(err error) bool { return isKind(err, KindSchemaAmbiguity) }

// IsRowValidation reports whether err is a row validation failure.
func IsRowValidation(err error) bool { return isKind(err, KindRowValidation) }

// IsUnknownMetric reports whether err is an unregistered metric reference.
func IsUnknownMetric(err error) bool { return isKind(err, KindUnknownMetric) }

// IsDuplicateParse reports whether err is an idempotent parse refusal.
func IsDuplicateParse(err error) bool { return isKind(err, KindDuplicateParse) }

// IsInputShape reports whether err is any input-shape error.
func IsInputShape(err error) bool {
	k, ok := KindOf(err)
	return ok && k.InputShape()
}
