package query

import (
	"net/http"
	"time"

	"github.com/IANewCool/estado-transparente-portal/types"
)

const dateFormat = "2006-01-02"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type metricJSON struct {
	MetricID    string `json:"metric_id"`
	MetricKey   string `json:"metric_key"`
	DisplayName string `json:"display_name"`
	Unit        string `json:"unit"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ms, err := s.store.ListMetrics(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]metricJSON, 0, len(ms))
	for _, m := range ms {
		out = append(out, metricJSON{
			MetricID:    m.ID,
			MetricKey:   m.NaturalKey,
			DisplayName: m.DisplayName,
			Unit:        m.Unit,
			Description: m.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": out})
}

type entityJSON struct {
	EntityID    string `json:"entity_id"`
	NaturalKey  string `json:"natural_key"`
	DisplayName string `json:"display_name"`
	EntityType  string `json:"entity_type"`
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	es, err := s.store.SearchEntities(r.Context(), r.URL.Query().Get("query"), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]entityJSON, 0, len(es))
	for _, e := range es {
		out = append(out, entityJSON{
			EntityID:    e.ID,
			NaturalKey:  e.NaturalKey,
			DisplayName: e.DisplayName,
			EntityType:  e.Type,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": out})
}

type factJSON struct {
	FactID      string         `json:"fact_id"`
	SnapshotID  string         `json:"snapshot_id"`
	EntityID    string         `json:"entity_id"`
	EntityName  string         `json:"entity_name"`
	MetricID    string         `json:"metric_id"`
	MetricKey   string         `json:"metric_key"`
	PeriodStart string         `json:"period_start"`
	PeriodEnd   string         `json:"period_end"`
	ValueNum    float64        `json:"value_num"`
	Unit        string         `json:"unit"`
	Dims        map[string]any `json:"dims"`
}

func factToJSON(v types.FactView) factJSON {
	return factJSON{
		FactID:      v.ID,
		SnapshotID:  v.SnapshotID,
		EntityID:    v.EntityID,
		EntityName:  v.EntityName,
		MetricID:    v.MetricID,
		MetricKey:   v.MetricKey,
		PeriodStart: v.PeriodStart.Format(dateFormat),
		PeriodEnd:   v.PeriodEnd.Format(dateFormat),
		ValueNum:    v.ValueNum,
		Unit:        v.Unit,
		Dims:        v.Dims,
	}
}

func (s *Server) handleFacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := types.FactFilter{
		MetricID:   q.Get("metric_id"),
		EntityID:   q.Get("entity_id"),
		SnapshotID: q.Get("snapshot_id"),
	}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request",
				p.name+" must be a YYYY-MM-DD date")
			return
		}
		*p.dst = t
	}

	facts, err := s.store.QueryFacts(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]factJSON, 0, len(facts))
	for _, v := range facts {
		out = append(out, factToJSON(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"facts": out})
}

type snapshotJSON struct {
	SnapshotID string `json:"snapshot_id"`
	CreatedAt  string `json:"created_at"`
	Note       string `json:"note,omitempty"`
	FactCount  int64  `json:"fact_count"`
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	infos, err := s.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]snapshotJSON, 0, len(infos))
	for _, si := range infos {
		out = append(out, snapshotJSON{
			SnapshotID: si.ID,
			CreatedAt:  si.CreatedAt.UTC().Format(time.RFC3339),
			Note:       si.Note,
			FactCount:  si.FactCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": out})
}

type jobJSON struct {
	JobID      string         `json:"job_id"`
	Component  string         `json:"component"`
	SourceID   string         `json:"source_id,omitempty"`
	StartedAt  string         `json:"started_at"`
	FinishedAt string         `json:"finished_at,omitempty"`
	Status     string         `json:"status"`
	Detail     map[string]any `json:"detail,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	runs, err := s.store.ListJobRuns(r.Context(), r.URL.Query().Get("component"), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]jobJSON, 0, len(runs))
	for _, jr := range runs {
		j := jobJSON{
			JobID:     jr.ID,
			Component: jr.Component,
			SourceID:  jr.SourceID,
			StartedAt: jr.StartedAt.UTC().Format(time.RFC3339),
			Status:    string(jr.Status),
			Detail:    jr.Detail,
			Error:     jr.Error,
		}
		if !jr.FinishedAt.IsZero() {
			j.FinishedAt = jr.FinishedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, j)
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}
