// Package parser implements the deterministic normalization kernel: it
// reads a registered artifact, validates its shape under strict rules,
// aggregates rows into canonical facts and attaches provenance.
//
// The kernel refuses to guess. Any deviation of the source from its
// registered schema aborts the parse; recovery is an operator updating the
// source registry, never a runtime heuristic.
package parser

import (
	"github.com/IANewCool/estado-transparente-portal/registry"
)

// Group is one aggregated fact-to-be: all source rows sharing an entity
// natural key, summed.
type Group struct {
	// EntityKey is the natural key (the partida code).
	EntityKey string
	// EntityName is the first display name encountered for the key.
	EntityName string
	// Value is the sum over the group's value column.
	Value float64
	// Rows is the number of source rows aggregated.
	Rows int
	// FirstLine and LastLine are 1-based line numbers bounding the group.
	FirstLine int
	LastLine  int
	// Breakdown sums the value column per breakdown key (the subtitulo),
	// empty when the source maps no breakdown column.
	Breakdown map[string]float64
}

// Batch is the output of one strategy run over an artifact's rows.
// Groups preserve first-seen order; the kernel sorts facts at insertion.
type Batch struct {
	Groups   []Group
	RowsRead int
}

// Strategy is one source format variant. Strategies are pure: same records
// in, same batch out, no clock, no randomness, no environment.
type Strategy interface {
	// ValidateHeader checks the header row against the registered schema.
	// Cells are whitespace-trimmed before the byte comparison; any other
	// deviation is ambiguity, reported with a diff.
	ValidateHeader(header []string) error

	// Normalize validates and aggregates the data rows. records excludes
	// the header; firstLine is the 1-based file line of the first record.
	Normalize(records [][]string, firstLine int) (*Batch, error)
}

// strategyFor returns the Strategy implementation for a source contract.
func strategyFor(src *registry.Source) (Strategy, error) {
	switch src.Strategy {
	case registry.StrategyDipresLeyCSV:
		return newDipresLeyStrategy(src), nil
	default:
		// Registration validates strategy tags; reaching this is a
		// programming error.
		return nil, errUnknownStrategy(src.Strategy)
	}
}
