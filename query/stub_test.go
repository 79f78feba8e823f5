package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/IANewCool/estado-transparente-portal/store"
	"github.com/IANewCool/estado-transparente-portal/types"
)

// stubStore serves canned canonical data for handler tests.
type stubStore struct {
	metrics   []types.Metric
	entities  []types.Entity
	facts     []types.FactView
	evidence  map[string]*types.Evidence
	artifacts map[string]*types.Artifact
	snapshots []types.SnapshotInfo
	jobs      []types.JobRun

	lastFilter  types.FactFilter
	entityLimit int
}

func newStubStore() *stubStore {
	return &stubStore{
		evidence:  make(map[string]*types.Evidence),
		artifacts: make(map[string]*types.Artifact),
	}
}

func (s *stubStore) ListMetrics(context.Context) ([]types.Metric, error) {
	ms := make([]types.Metric, len(s.metrics))
	copy(ms, s.metrics)
	sort.Slice(ms, func(i, j int) bool { return ms[i].NaturalKey < ms[j].NaturalKey })
	return ms, nil
}

func (s *stubStore) MetricByID(_ context.Context, id string) (*types.Metric, error) {
	for i := range s.metrics {
		if s.metrics[i].ID == id {
			return &s.metrics[i], nil
		}
	}
	return nil, fmt.Errorf("metric by id: %w", store.ErrNotFound)
}

func (s *stubStore) MetricByKey(_ context.Context, key string) (*types.Metric, error) {
	for i := range s.metrics {
		if s.metrics[i].NaturalKey == key {
			return &s.metrics[i], nil
		}
	}
	return nil, fmt.Errorf("metric by key: %w", store.ErrNotFound)
}

func (s *stubStore) SearchEntities(_ context.Context, query string, limit int) ([]types.Entity, error) {
	s.entityLimit = limit
	var out []types.Entity
	for _, e := range s.entities {
		if query == "" ||
			strings.Contains(strings.ToLower(e.DisplayName), strings.ToLower(query)) ||
			strings.Contains(strings.ToLower(e.NaturalKey), strings.ToLower(query)) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) QueryFacts(_ context.Context, f types.FactFilter) ([]types.FactView, error) {
	s.lastFilter = f
	var out []types.FactView
	for _, v := range s.facts {
		if f.MetricID != "" && v.MetricID != f.MetricID {
			continue
		}
		if f.EntityID != "" && v.EntityID != f.EntityID {
			continue
		}
		if !f.From.IsZero() && v.PeriodStart.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && v.PeriodEnd.After(f.To) {
			continue
		}
		if f.SnapshotID != "" && v.SnapshotID != f.SnapshotID {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntityName != out[j].EntityName {
			return out[i].EntityName < out[j].EntityName
		}
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})
	return out, nil
}

func (s *stubStore) GetEvidence(_ context.Context, factID string) (*types.Evidence, error) {
	ev, ok := s.evidence[factID]
	if !ok {
		return nil, fmt.Errorf("evidence for fact %s: %w", factID, store.ErrNotFound)
	}
	return ev, nil
}

func (s *stubStore) ArtifactByID(_ context.Context, id string) (*types.Artifact, error) {
	a, ok := s.artifacts[id]
	if !ok {
		return nil, fmt.Errorf("artifact by id: %w", store.ErrNotFound)
	}
	return a, nil
}

func (s *stubStore) ListSnapshots(_ context.Context, limit int) ([]types.SnapshotInfo, error) {
	out := s.snapshots
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) ListJobRuns(_ context.Context, component string, limit int) ([]types.JobRun, error) {
	var out []types.JobRun
	for _, jr := range s.jobs {
		if component == "" || jr.Component == component {
			out = append(out, jr)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Verify the stub satisfies the consumer interface.
var _ Store = (*stubStore)(nil)
