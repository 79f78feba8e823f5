package parser

import (
	"fmt"
	"strings"

	"github.com/IANewCool/estado-transparente-portal/registry"
	"github.com/IANewCool/estado-transparente-portal/types"
)

func errUnknownStrategy(tag string) error {
	return fmt.Errorf("no strategy implementation for tag %q", tag)
}

// dipresLeyStrategy parses the DIPRES budget-law CSV: one row per
// asignacion, aggregated to partida level by summing Monto Pesos.
// Monto Dolar is present in the schema but unmapped until a USD metric is
// registered.
type dipresLeyStrategy struct {
	src *registry.Source

	// column indexes resolved from the registered header
	keyIdx       int
	nameIdx      int
	valueIdx     int
	breakdownIdx int
	requiredIdx  []int
}

func newDipresLeyStrategy(src *registry.Source) *dipresLeyStrategy {
	s := &dipresLeyStrategy{src: src, breakdownIdx: -1}

	idx := make(map[string]int, len(src.Header))
	for i, col := range src.Header {
		idx[col] = i
	}
	s.keyIdx = idx[src.Mapping.EntityKeyColumn]
	s.nameIdx = idx[src.Mapping.EntityNameColumn]
	s.valueIdx = idx[src.Mapping.ValueColumn]
	if b := src.Mapping.BreakdownColumn; b != "" {
		s.breakdownIdx = idx[b]
	}
	for _, col := range src.Mapping.RequiredColumns {
		s.requiredIdx = append(s.requiredIdx, idx[col])
	}
	return s
}

// ValidateHeader demands byte equality with the registered schema after
// whitespace trimming. The returned error carries a positional diff; no
// column is ever inferred.
func (s *dipresLeyStrategy) ValidateHeader(header []string) error {
	expected := s.src.Header

	var diffs []string
	if len(header) != len(expected) {
		diffs = append(diffs, fmt.Sprintf("column count %d, expected %d", len(header), len(expected)))
	}
	for i := 0; i < len(header) && i < len(expected); i++ {
		got := strings.TrimSpace(header[i])
		if got != expected[i] {
			diffs = append(diffs, fmt.Sprintf("column %d: got %q, expected %q", i+1, got, expected[i]))
		}
	}
	if len(header) > len(expected) {
		for i := len(expected); i < len(header); i++ {
			diffs = append(diffs, fmt.Sprintf("column %d: unexpected %q", i+1, strings.TrimSpace(header[i])))
		}
	}

	if len(diffs) > 0 {
		return types.Errorf(types.KindSchemaAmbiguity, "parse",
			"header deviates from registered schema for %s: %s",
			s.src.ID, strings.Join(diffs, "; "))
	}
	return nil
}

// Normalize validates every row and aggregates by partida code. Groups are
// keyed by entity natural key in first-seen order so sums accumulate in the
// same sequence on every run.
func (s *dipresLeyStrategy) Normalize(records [][]string, firstLine int) (*Batch, error) {
	groups := make(map[string]*Group)
	var order []string

	for i, rec := range records {
		line := firstLine + i

		for _, reqIdx := range s.requiredIdx {
			if strings.TrimSpace(rec[reqIdx]) == "" {
				return nil, types.Errorf(types.KindRowValidation, "parse",
					"line %d: required column %q is empty", line, s.src.Header[reqIdx])
			}
		}

		key := strings.TrimSpace(rec[s.keyIdx])
		name := strings.TrimSpace(rec[s.nameIdx])
		value, err := parseMonto(rec[s.valueIdx])
		if err != nil {
			return nil, types.Errorf(types.KindRowValidation, "parse",
				"line %d: column %q: %v", line, s.src.Mapping.ValueColumn, err)
		}

		g, ok := groups[key]
		if !ok {
			g = &Group{
				EntityKey:  key,
				EntityName: name,
				FirstLine:  line,
				Breakdown:  make(map[string]float64),
			}
			groups[key] = g
			order = append(order, key)
		}
		g.Value += value
		g.Rows++
		g.LastLine = line
		if s.breakdownIdx >= 0 {
			if sub := strings.TrimSpace(rec[s.breakdownIdx]); sub != "" {
				g.Breakdown[sub] += value
			}
		}
	}

	batch := &Batch{RowsRead: len(records)}
	for _, key := range order {
		batch.Groups = append(batch.Groups, *groups[key])
	}
	return batch, nil
}

// Verify dipresLeyStrategy implements Strategy.
var _ Strategy = (*dipresLeyStrategy)(nil)
