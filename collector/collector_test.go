package collector

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/IANewCool/estado-transparente-portal/blob"
	"github.com/IANewCool/estado-transparente-portal/log"
	"github.com/IANewCool/estado-transparente-portal/registry"
	"github.com/IANewCool/estado-transparente-portal/types"
)

const csvBody = "Partida;Capitulo;Programa;Subtitulo;Ítem;Asignacion;Denominacion;Monto Pesos;Monto Dolar\n" +
	"50;01;01;21;;;TESORO PUBLICO;1000;0\n"

func testLogger() *log.Logger {
	return log.NewLogger("collector", "dipres_ley_2026").WithOutput(io.Discard)
}

func newTestCollector(t *testing.T, store Store) (*Collector, blob.Store) {
	t.Helper()
	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return New(store, blobs, registry.New(), testLogger()), blobs
}

func serveCSV(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIngestHappyPath(t *testing.T) {
	store := newStubStore()
	c, blobs := newTestCollector(t, store)
	srv := serveCSV(t, csvBody, http.StatusOK)

	artifactID, err := c.Ingest(t.Context(), "dipres_ley_2026", srv.URL+"/ley.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	a, err := store.ArtifactByHash(t.Context(), types.HashBytes([]byte(csvBody)))
	if err != nil {
		t.Fatalf("artifact not registered: %v", err)
	}
	if a.ID != artifactID {
		t.Errorf("artifact id = %q, want %q", a.ID, artifactID)
	}
	if a.MimeType != "text/csv" {
		t.Errorf("mime type = %q", a.MimeType)
	}
	if a.ParsedStatus != types.ParsedPending {
		t.Errorf("parsed status = %q", a.ParsedStatus)
	}
	if a.SizeBytes != int64(len(csvBody)) {
		t.Errorf("size = %d, want %d", a.SizeBytes, len(csvBody))
	}

	// The stored blob must be byte-identical to the fetched body.
	got, err := blobs.Get(t.Context(), a.StoragePath)
	if err != nil {
		t.Fatalf("blob Get: %v", err)
	}
	if !types.HashMatches(a.ContentHash, got) {
		t.Error("stored blob does not match artifact content hash")
	}

	job := store.job("job-1")
	if job.Status != types.JobOK {
		t.Errorf("job status = %q, want ok", job.Status)
	}
	if job.Detail["artifact_id"] != artifactID {
		t.Errorf("job detail artifact_id = %v", job.Detail["artifact_id"])
	}
}

func TestIngestIdempotentOnContentHash(t *testing.T) {
	store := newStubStore()
	c, _ := newTestCollector(t, store)
	srv := serveCSV(t, csvBody, http.StatusOK)

	first, err := c.Ingest(t.Context(), "dipres_ley_2026", srv.URL+"/ley.csv")
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	second, err := c.Ingest(t.Context(), "dipres_ley_2026", srv.URL+"/ley.csv")
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}

	if first != second {
		t.Errorf("second ingest returned %q, want reuse of %q", second, first)
	}
	if n := store.artifactCount(); n != 1 {
		t.Errorf("artifact count = %d, want 1", n)
	}

	job := store.job("job-2")
	if job.Status != types.JobOK {
		t.Errorf("second job status = %q", job.Status)
	}
	if job.Detail["reused"] != true {
		t.Errorf("second job detail = %v, want reused=true", job.Detail)
	}
}

func TestIngestHTTPFailure(t *testing.T) {
	store := newStubStore()
	c, _ := newTestCollector(t, store)
	srv := serveCSV(t, "gone", http.StatusNotFound)

	_, err := c.Ingest(t.Context(), "dipres_ley_2026", srv.URL+"/ley.csv")
	if err == nil {
		t.Fatal("Ingest succeeded on 404")
	}
	if !types.IsFetch(err) {
		t.Errorf("error kind = %v, want fetch", err)
	}

	job := store.job("job-1")
	if job.Status != types.JobFailed {
		t.Errorf("job status = %q, want failed", job.Status)
	}
	if job.Error == "" {
		t.Error("job error text empty")
	}
	if n := store.artifactCount(); n != 0 {
		t.Errorf("artifact count = %d, want 0 after failure", n)
	}
}

func TestIngestRetriesOn5xx(t *testing.T) {
	store := newStubStore()
	c, _ := newTestCollector(t, store)

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, csvBody)
	}))
	t.Cleanup(srv.Close)

	if _, err := c.Ingest(t.Context(), "dipres_ley_2026", srv.URL+"/ley.csv"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("upstream calls = %d, want 2", calls.Load())
	}
}

func TestIngestRespectsRobots(t *testing.T) {
	store := newStubStore()
	c, _ := newTestCollector(t, store)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = io.WriteString(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		_, _ = io.WriteString(w, csvBody)
	}))
	t.Cleanup(srv.Close)

	_, err := c.Ingest(t.Context(), "dipres_ley_2026", srv.URL+"/private/ley.csv")
	if err == nil {
		t.Fatal("Ingest fetched a robots-disallowed path")
	}
	if !types.IsFetch(err) {
		t.Errorf("error kind = %v, want fetch", err)
	}

	// Allowed paths on the same host still work.
	if _, err := c.Ingest(t.Context(), "dipres_ley_2026", srv.URL+"/open/ley.csv"); err != nil {
		t.Fatalf("Ingest on allowed path: %v", err)
	}
}

func TestIngestUnknownSource(t *testing.T) {
	store := newStubStore()
	c, _ := newTestCollector(t, store)

	_, err := c.Ingest(t.Context(), "never_registered", "https://example.org/x.csv")
	if err == nil {
		t.Fatal("Ingest accepted unregistered source")
	}
	if len(store.jobs) != 0 {
		t.Error("precondition failure opened a job row")
	}
}

func TestIngestRejectsBadURLs(t *testing.T) {
	store := newStubStore()
	c, _ := newTestCollector(t, store)

	for _, rawURL := range []string{"ftp://example.org/x.csv", "relative/path.csv", ""} {
		if _, err := c.Ingest(t.Context(), "dipres_ley_2026", rawURL); err == nil {
			t.Errorf("Ingest accepted %q", rawURL)
		}
	}
}

func TestIngestFileURL(t *testing.T) {
	store := newStubStore()
	c, _ := newTestCollector(t, store)

	dir := t.TempDir()
	path := dir + "/ley.csv"
	if err := writeFile(path, csvBody); err != nil {
		t.Fatal(err)
	}

	artifactID, err := c.Ingest(t.Context(), "dipres_ley_2026", "file://"+path)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	a, err := store.ArtifactByHash(t.Context(), types.HashBytes([]byte(csvBody)))
	if err != nil {
		t.Fatalf("artifact not registered: %v", err)
	}
	if a.ID != artifactID {
		t.Errorf("artifact id mismatch")
	}
	// file fetches carry no server MIME type; the source's declared one wins.
	if a.MimeType != "text/csv" {
		t.Errorf("mime type = %q", a.MimeType)
	}
}
