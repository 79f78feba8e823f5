package parser

import (
	"strings"
	"testing"
	"time"
)

func sampleTuples() []factTuple {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	return []factTuple{
		{
			EntityKey:   "50",
			MetricKey:   "presupuesto_ley",
			PeriodStart: start,
			PeriodEnd:   end,
			Value:       500,
			Unit:        "CLP",
			Dims:        map[string]any{"partida_code": "50", "aggregated_rows": 1},
		},
		{
			EntityKey:   "09",
			MetricKey:   "presupuesto_ley",
			PeriodStart: start,
			PeriodEnd:   end,
			Value:       3000,
			Unit:        "CLP",
			Dims:        map[string]any{"partida_code": "09", "aggregated_rows": 2},
		},
	}
}

func TestCanonicalHashStable(t *testing.T) {
	a := canonicalHash(sampleTuples())
	b := canonicalHash(sampleTuples())
	if a != b {
		t.Errorf("hash differs across calls: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "sha256:") {
		t.Errorf("hash %q not prefixed", a)
	}
}

func TestCanonicalHashOrderIndependent(t *testing.T) {
	tuples := sampleTuples()
	reversed := []factTuple{tuples[1], tuples[0]}

	if canonicalHash(tuples) != canonicalHash(reversed) {
		t.Error("hash depends on tuple order")
	}
}

func TestCanonicalHashSensitiveToValues(t *testing.T) {
	base := canonicalHash(sampleTuples())

	changed := sampleTuples()
	changed[0].Value += 1
	if canonicalHash(changed) == base {
		t.Error("hash insensitive to value change")
	}

	changed = sampleTuples()
	changed[0].Dims["aggregated_rows"] = 99
	if canonicalHash(changed) == base {
		t.Error("hash insensitive to dims change")
	}

	changed = sampleTuples()
	changed[0].PeriodEnd = changed[0].PeriodEnd.AddDate(1, 0, 0)
	if canonicalHash(changed) == base {
		t.Error("hash insensitive to period change")
	}
}

func TestCanonicalHashDoesNotDependOnInputSlice(t *testing.T) {
	tuples := sampleTuples()
	_ = canonicalHash(tuples)
	// The hash must not have reordered the caller's slice.
	if tuples[0].EntityKey != "50" || tuples[1].EntityKey != "09" {
		t.Error("canonicalHash mutated its input")
	}
}
