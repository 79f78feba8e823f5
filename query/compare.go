package query

import (
	"errors"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/IANewCool/estado-transparente-portal/store"
	"github.com/IANewCool/estado-transparente-portal/types"
)

// compareRow is one entity's year-over-year comparison. Missing sides and
// undefined percentages are null, never zero or infinity.
type compareRow struct {
	EntityID   string   `json:"entity_id"`
	EntityName string   `json:"entity_name"`
	ValueA     *float64 `json:"value_a"`
	ValueB     *float64 `json:"value_b"`
	Delta      *float64 `json:"delta"`
	PctChange  *float64 `json:"pct_change"`
	FactIDA    *string  `json:"fact_id_a"`
	FactIDB    *string  `json:"fact_id_b"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	metricID := q.Get("metric_id")
	if metricID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "metric_id is required")
		return
	}
	yearA, errA := strconv.Atoi(q.Get("year_a"))
	yearB, errB := strconv.Atoi(q.Get("year_b"))
	if errA != nil || errB != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "year_a and year_b must be integers")
		return
	}
	entityID := q.Get("entity_id")

	if _, err := s.store.MetricByID(r.Context(), metricID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "unknown_metric",
				"metric "+metricID+" is not registered")
			return
		}
		writeStoreError(w, err)
		return
	}

	factsA, err := s.yearFacts(r, metricID, entityID, yearA)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	factsB, err := s.yearFacts(r, metricID, entityID, yearB)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	rows := compareRows(factsA, factsB)
	writeJSON(w, http.StatusOK, map[string]any{
		"metric_id": metricID,
		"year_a":    yearA,
		"year_b":    yearB,
		"rows":      rows,
	})
}

// yearFacts loads the latest facts covering the calendar year.
func (s *Server) yearFacts(r *http.Request, metricID, entityID string, year int) ([]types.FactView, error) {
	return s.store.QueryFacts(r.Context(), types.FactFilter{
		MetricID: metricID,
		EntityID: entityID,
		From:     time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
}

// compareRows joins the two years by entity. Rows are ordered by absolute
// delta descending; rows without a delta sort after all rows with one,
// ties broken by entity name ascending.
func compareRows(factsA, factsB []types.FactView) []compareRow {
	type side struct {
		a *types.FactView
		b *types.FactView
	}
	byEntity := make(map[string]*side)
	names := make(map[string]string)
	var order []string

	track := func(v types.FactView, setA bool) {
		sd, ok := byEntity[v.EntityID]
		if !ok {
			sd = &side{}
			byEntity[v.EntityID] = sd
			names[v.EntityID] = v.EntityName
			order = append(order, v.EntityID)
		}
		if setA {
			sd.a = &v
		} else {
			sd.b = &v
		}
	}
	for _, v := range factsA {
		track(v, true)
	}
	for _, v := range factsB {
		track(v, false)
	}

	rows := make([]compareRow, 0, len(order))
	for _, entityID := range order {
		sd := byEntity[entityID]
		row := compareRow{EntityID: entityID, EntityName: names[entityID]}

		if sd.a != nil {
			row.ValueA = ptr(sd.a.ValueNum)
			row.FactIDA = ptr(sd.a.ID)
		}
		if sd.b != nil {
			row.ValueB = ptr(sd.b.ValueNum)
			row.FactIDB = ptr(sd.b.ID)
		}
		if sd.a != nil && sd.b != nil {
			row.Delta = ptr(sd.b.ValueNum - sd.a.ValueNum)
			if sd.a.ValueNum != 0 {
				row.PctChange = ptr(100 * (sd.b.ValueNum - sd.a.ValueNum) / sd.a.ValueNum)
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := rows[i].Delta, rows[j].Delta
		switch {
		case di != nil && dj != nil:
			ai, aj := math.Abs(*di), math.Abs(*dj)
			if ai != aj {
				return ai > aj
			}
		case di != nil:
			return true
		case dj != nil:
			return false
		}
		return rows[i].EntityName < rows[j].EntityName
	})
	return rows
}

func ptr[T any](v T) *T { return &v }
