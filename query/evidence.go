package query

import (
	"net/http"
	"time"

	"github.com/IANewCool/estado-transparente-portal/blob"
)

// artifactJSON is the evidence view of a source artifact: everything a
// citizen needs to reproduce the fact from the original source.
type artifactJSON struct {
	ArtifactID  string `json:"artifact_id"`
	SourceID    string `json:"source_id"`
	URL         string `json:"url"`
	CapturedAt  string `json:"captured_at"`
	ContentHash string `json:"content_hash"`
	SizeBytes   int64  `json:"size_bytes"`
	MimeType    string `json:"mime_type"`
}

func (s *Server) handleEvidence(w http.ResponseWriter, r *http.Request) {
	factID := r.URL.Query().Get("fact_id")
	if factID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "fact_id is required")
		return
	}

	ev, err := s.store.GetEvidence(r.Context(), factID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// Object-store backends presign; the fs backend falls back to the
	// service's own download route.
	downloadURL, err := s.blobs.PresignGet(r.Context(), ev.Artifact.StoragePath, blob.PresignValidity)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if downloadURL == "" {
		downloadURL = "/evidence/download?artifact_id=" + ev.Artifact.ID
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fact": factToJSON(ev.Fact),
		"artifact": artifactJSON{
			ArtifactID:  ev.Artifact.ID,
			SourceID:    ev.Artifact.SourceID,
			URL:         ev.Artifact.URL,
			CapturedAt:  ev.Artifact.CapturedAt.UTC().Format(time.RFC3339),
			ContentHash: ev.Artifact.ContentHash,
			SizeBytes:   ev.Artifact.SizeBytes,
			MimeType:    ev.Artifact.MimeType,
		},
		"location":     ev.Provenance.Location,
		"method":       ev.Provenance.Method,
		"download_url": downloadURL,
	})
}

// handleEvidenceDownload streams raw artifact bytes. The response is
// byte-identical to what was fetched from the source: re-hashing the
// download must reproduce the stored content hash.
func (s *Server) handleEvidenceDownload(w http.ResponseWriter, r *http.Request) {
	artifactID := r.URL.Query().Get("artifact_id")
	if artifactID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "artifact_id is required")
		return
	}

	artifact, err := s.store.ArtifactByID(r.Context(), artifactID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body, err := s.blobs.Get(r.Context(), artifact.StoragePath)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", artifact.MimeType)
	w.Header().Set("ETag", `"`+artifact.ContentHash+`"`)
	w.Header().Set("Content-Disposition", `attachment; filename="`+artifact.ID+`.raw"`)
	_, _ = w.Write(body)
}
