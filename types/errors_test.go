package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestPipelineErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		kind  ErrorKind
		check func(error) bool
		tag   string
		shape bool
	}{
		{"fetch", KindFetch, IsFetch, "fetch", false},
		{"storage", KindStorage, IsStorage, "storage", false},
		{"persist", KindPersist, IsPersist, "persist", false},
		{"integrity", KindIntegrity, IsIntegrity, "integrity", false},
		{"schema", KindSchemaAmbiguity, IsSchemaAmbiguity, "schema_ambiguity", true},
		{"row", KindRowValidation, IsRowValidation, "row_validation", true},
		{"metric", KindUnknownMetric, IsUnknownMetric, "unknown_metric", true},
		{"duplicate", KindDuplicateParse, IsDuplicateParse, "duplicate_parse", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Errorf(tt.kind, "parse", "boom")
			if !tt.check(err) {
				t.Errorf("classifier rejected its own kind")
			}
			if got := tt.kind.String(); got != tt.tag {
				t.Errorf("String() = %q, want %q", got, tt.tag)
			}
			if got := IsInputShape(err); got != tt.shape {
				t.Errorf("IsInputShape() = %v, want %v", got, tt.shape)
			}
		})
	}
}

func TestPipelineErrorChain(t *testing.T) {
	root := errors.New("connection refused")
	wrapped := fmt.Errorf("fetching body: %w", root)
	pe := NewPipelineError(KindFetch, "ingest", wrapped)
	outer := fmt.Errorf("collector: %w", pe)

	if !errors.Is(outer, root) {
		t.Error("root error lost from chain")
	}
	if !IsFetch(outer) {
		t.Error("kind lost through outer wrapping")
	}
	if IsIntegrity(outer) {
		t.Error("wrong kind matched")
	}

	kind, ok := KindOf(outer)
	if !ok || kind != KindFetch {
		t.Errorf("KindOf = (%v, %v), want (KindFetch, true)", kind, ok)
	}

	if _, ok := KindOf(root); ok {
		t.Error("KindOf matched an unclassified error")
	}
}
