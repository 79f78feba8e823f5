package metrics

import (
	"sync"
	"testing"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector("parser", "dipres_ley_2026")

	c.AddRowsRead(4500)
	c.IncRowsRejected()
	c.AddFactsWritten(30)

	s := c.Snapshot()
	if s.RowsRead != 4500 {
		t.Errorf("RowsRead = %d", s.RowsRead)
	}
	if s.RowsRejected != 1 {
		t.Errorf("RowsRejected = %d", s.RowsRejected)
	}
	if s.FactsWritten != 30 {
		t.Errorf("FactsWritten = %d", s.FactsWritten)
	}
	if s.Component != "parser" || s.SourceID != "dipres_ley_2026" {
		t.Errorf("dimensions = %q/%q", s.Component, s.SourceID)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector

	c.IncFetchAttempts()
	c.AddBytesFetched(10)
	c.IncArtifactsStored()
	c.IncArtifactsReused()
	c.AddRowsRead(1)
	c.IncRowsRejected()
	c.AddFactsWritten(1)
	c.IncBlobWriteSuccess()
	c.IncBlobWriteFailure()

	if s := c.Snapshot(); s != (Snapshot{}) {
		t.Errorf("nil collector snapshot = %+v", s)
	}
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector("collector", "src")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncFetchAttempts()
			c.AddBytesFetched(2)
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.FetchAttempts != 50 {
		t.Errorf("FetchAttempts = %d, want 50", s.FetchAttempts)
	}
	if s.BytesFetched != 100 {
		t.Errorf("BytesFetched = %d, want 100", s.BytesFetched)
	}
}

func TestSnapshotDetailOmitsZeroes(t *testing.T) {
	c := NewCollector("collector", "src")
	c.IncArtifactsReused()

	detail := c.Snapshot().Detail()
	if detail["artifacts_reused"] != int64(1) {
		t.Errorf("artifacts_reused = %v", detail["artifacts_reused"])
	}
	if _, ok := detail["rows_read"]; ok {
		t.Error("zero counter present in detail")
	}
}
