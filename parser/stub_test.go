package parser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// stubStore is an in-memory Store for parser tests.
type stubStore struct {
	mu sync.Mutex

	jobs      map[string]*types.JobRun
	artifacts map[string]*types.Artifact // by id
	metrics   map[string]*types.Metric   // by natural key
	entities  map[string]*types.Entity   // by natural key
	snapshots map[string][]types.FactInput
	jobSeq    int
}

func newStubStore() *stubStore {
	s := &stubStore{
		jobs:      make(map[string]*types.JobRun),
		artifacts: make(map[string]*types.Artifact),
		metrics:   make(map[string]*types.Metric),
		entities:  make(map[string]*types.Entity),
		snapshots: make(map[string][]types.FactInput),
	}
	s.metrics["presupuesto_ley"] = &types.Metric{
		ID:          "metric-ley",
		NaturalKey:  "presupuesto_ley",
		DisplayName: "Presupuesto Ley",
		Unit:        "CLP",
	}
	return s
}

func (s *stubStore) OpenJob(_ context.Context, component, sourceID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobSeq++
	id := fmt.Sprintf("job-%d", s.jobSeq)
	s.jobs[id] = &types.JobRun{ID: id, Component: component, SourceID: sourceID, Status: types.JobRunning}
	return id, nil
}

func (s *stubStore) CloseJob(_ context.Context, jobID string, status types.JobStatus, detail map[string]any, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	jr, ok := s.jobs[jobID]
	if !ok {
		return errors.New("no such job")
	}
	jr.Status = status
	jr.Detail = detail
	jr.Error = errText
	return nil
}

func (s *stubStore) ArtifactByID(_ context.Context, id string) (*types.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok {
		return nil, errors.New("artifact by id: row not found")
	}
	return a, nil
}

func (s *stubStore) SetArtifactStatus(_ context.Context, id string, status types.ParsedStatus, parseError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok {
		return errors.New("no such artifact")
	}
	a.ParsedStatus = status
	a.ParseError = parseError
	return nil
}

func (s *stubStore) MetricByKey(_ context.Context, naturalKey string) (*types.Metric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[naturalKey]
	if !ok {
		return nil, errors.New("metric by key: row not found")
	}
	return m, nil
}

func (s *stubStore) EnsureEntity(_ context.Context, naturalKey, displayName, entityType string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[naturalKey]; ok {
		return e.ID, e.DisplayName, nil
	}
	e := &types.Entity{
		ID:          uuid.NewString(),
		NaturalKey:  naturalKey,
		DisplayName: displayName,
		Type:        entityType,
	}
	s.entities[naturalKey] = e
	return e.ID, e.DisplayName, nil
}

func (s *stubStore) WriteSnapshot(_ context.Context, artifactID, note string, facts []types.FactInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[artifactID]
	if !ok {
		return "", errors.New("no such artifact")
	}
	id := uuid.NewString()
	s.snapshots[id] = facts
	a.ParsedStatus = types.ParsedOK
	a.ParseError = ""
	return id, nil
}

func (s *stubStore) job(id string) *types.JobRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *stubStore) snapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// Verify the stub satisfies the consumer interface.
var _ Store = (*stubStore)(nil)
