package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/IANewCool/estado-transparente-portal/types"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitInternal},
		{"fetch", types.Errorf(types.KindFetch, "ingest", "connection refused"), ExitInternal},
		{"storage", types.Errorf(types.KindStorage, "ingest", "disk full"), ExitInternal},
		{"persist", types.Errorf(types.KindPersist, "parse", "db down"), ExitInternal},
		{"schema ambiguity", types.Errorf(types.KindSchemaAmbiguity, "parse", "header drift"), ExitInputShape},
		{"row validation", types.Errorf(types.KindRowValidation, "parse", "bad amount"), ExitInputShape},
		{"unknown metric", types.Errorf(types.KindUnknownMetric, "parse", "no such metric"), ExitInputShape},
		{"duplicate parse", types.Errorf(types.KindDuplicateParse, "parse", "already ok"), ExitInputShape},
		{"integrity", types.Errorf(types.KindIntegrity, "parse", "hash mismatch"), ExitIntegrity},
		{"wrapped integrity", fmt.Errorf("parse: %w", types.Errorf(types.KindIntegrity, "parse", "hash mismatch")), ExitIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("ExitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
