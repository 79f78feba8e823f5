package query

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/IANewCool/estado-transparente-portal/store"
	"github.com/IANewCool/estado-transparente-portal/types"
)

// dashboardEntity is one ranked entity on the year dashboard.
type dashboardEntity struct {
	EntityID   string   `json:"entity_id"`
	EntityName string   `json:"entity_name"`
	Value      float64  `json:"value"`
	PctOfTotal *float64 `json:"pct_of_total"`
	FactID     string   `json:"fact_id"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "year must be an integer")
		return
	}

	metric, err := s.store.MetricByKey(r.Context(), s.headlineMetric)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "unknown_metric",
				"headline metric "+s.headlineMetric+" is not registered")
			return
		}
		writeStoreError(w, err)
		return
	}

	facts, err := s.factsForYear(r, metric.ID, year)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	prevFacts, err := s.factsForYear(r, metric.ID, year-1)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var total float64
	for _, v := range facts {
		total += v.ValueNum
	}

	// Year-over-year delta is null when the previous year has no facts.
	var yoyDelta *float64
	if len(prevFacts) > 0 {
		var prevTotal float64
		for _, v := range prevFacts {
			prevTotal += v.ValueNum
		}
		yoyDelta = ptr(total - prevTotal)
	}

	entities := make([]dashboardEntity, 0, len(facts))
	for _, v := range facts {
		e := dashboardEntity{
			EntityID:   v.EntityID,
			EntityName: v.EntityName,
			Value:      v.ValueNum,
			FactID:     v.ID,
		}
		if total != 0 {
			e.PctOfTotal = ptr(100 * v.ValueNum / total)
		}
		entities = append(entities, e)
	}
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Value != entities[j].Value {
			return entities[i].Value > entities[j].Value
		}
		return entities[i].EntityName < entities[j].EntityName
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"year":       year,
		"metric_key": metric.NaturalKey,
		"unit":       metric.Unit,
		"total":      total,
		"yoy_delta":  yoyDelta,
		"entities":   entities,
	})
}

func (s *Server) factsForYear(r *http.Request, metricID string, year int) ([]types.FactView, error) {
	return s.store.QueryFacts(r.Context(), types.FactFilter{
		MetricID: metricID,
		From:     time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
}
