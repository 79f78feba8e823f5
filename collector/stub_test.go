package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// stubStore is an in-memory Store for collector tests.
type stubStore struct {
	mu sync.Mutex

	jobs      map[string]*types.JobRun
	artifacts map[string]*types.Artifact // by content hash
	jobSeq    int

	failInsert error
	failOpen   error
}

func newStubStore() *stubStore {
	return &stubStore{
		jobs:      make(map[string]*types.JobRun),
		artifacts: make(map[string]*types.Artifact),
	}
}

func (s *stubStore) OpenJob(_ context.Context, component, sourceID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOpen != nil {
		return "", s.failOpen
	}
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

func (s *stubStore) ArtifactByHash(_ context.Context, contentHash string) (*types.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[contentHash]
	if !ok {
		return nil, errors.New("artifact by hash: row not found")
	}
	return a, nil
}

func (s *stubStore) InsertArtifact(_ context.Context, a *types.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return s.failInsert
	}
	if _, exists := s.artifacts[a.ContentHash]; exists {
		return errors.New("insert artifact: artifact content hash already registered")
	}
	s.artifacts[a.ContentHash] = a
	return nil
}

func (s *stubStore) job(id string) *types.JobRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *stubStore) artifactCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artifacts)
}

// Verify the stub satisfies the consumer interface.
var _ Store = (*stubStore)(nil)
