// Package registry maps source ids to their parsing contracts: expected
// MIME type, exact header schema, delimiter, encoding, strategy tag and
// column-to-concept mapping.
//
// The registry is the single place an operator touches when a source
// changes shape. The parser never infers any of this at runtime.
package registry

import (
	"fmt"
	"sort"
	"time"
)

// Strategy tags. Adding a source format is adding a variant here plus its
// implementation in the parser, not subclassing.
const (
	// StrategyDipresLeyCSV is the DIPRES budget-law CSV format, one row per
	// asignacion, aggregated to partida level.
	StrategyDipresLeyCSV = "dipres_ley_csv_v1"
)

// knownStrategies guards registration against typos.
var knownStrategies = map[string]bool{
	StrategyDipresLeyCSV: true,
}

// Mapping binds source columns to canonical concepts.
type Mapping struct {
	// EntityKeyColumn holds the entity natural key (the partida code).
	EntityKeyColumn string `yaml:"entity_key_column"`
	// EntityNameColumn holds the display name text.
	EntityNameColumn string `yaml:"entity_name_column"`
	// ValueColumn holds the monetary amount to aggregate.
	ValueColumn string `yaml:"value_column"`
	// BreakdownColumn, when set, produces the per-group breakdown carried
	// in fact dims.
	BreakdownColumn string `yaml:"breakdown_column,omitempty"`
	// RequiredColumns must be non-empty on every data row.
	RequiredColumns []string `yaml:"required_columns"`
}

// Source is one registered source contract.
type Source struct {
	// ID is the source identifier used by the collector and parser.
	ID string `yaml:"-"`
	// MimeType is the expected artifact MIME type.
	MimeType string `yaml:"mime_type"`
	// Delimiter is the CSV field delimiter (single character).
	Delimiter string `yaml:"delimiter"`
	// Encoding is the declared text encoding. Only utf-8 is supported;
	// a leading BOM is tolerated and stripped.
	Encoding string `yaml:"encoding"`
	// Strategy selects the parser variant.
	Strategy string `yaml:"strategy"`
	// Header is the exact ordered column list. Any deviation aborts the
	// parse; columns are never inferred.
	Header []string `yaml:"header"`
	// Mapping binds columns to concepts.
	Mapping Mapping `yaml:"mapping"`
	// MetricKey names the already-registered metric facts are written
	// under. The parser refuses to invent metrics.
	MetricKey string `yaml:"metric_key"`
	// Year is the budget year; every fact of this source covers the
	// closed period Jan 1 through Dec 31 of it.
	Year int `yaml:"year"`
	// EntityType tags entities introduced by this source.
	EntityType string `yaml:"entity_type,omitempty"`
}

// Validate checks a source contract for internal consistency.
func (s *Source) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("source id must be non-empty")
	}
	if s.MimeType == "" {
		return fmt.Errorf("source %s: mime_type is required", s.ID)
	}
	if len([]rune(s.Delimiter)) != 1 {
		return fmt.Errorf("source %s: delimiter must be a single character, got %q", s.ID, s.Delimiter)
	}
	if s.Encoding != "utf-8" {
		return fmt.Errorf("source %s: unsupported encoding %q (only utf-8)", s.ID, s.Encoding)
	}
	if !knownStrategies[s.Strategy] {
		return fmt.Errorf("source %s: unknown strategy %q", s.ID, s.Strategy)
	}
	if len(s.Header) == 0 {
		return fmt.Errorf("source %s: header schema is required", s.ID)
	}
	if s.MetricKey == "" {
		return fmt.Errorf("source %s: metric_key is required", s.ID)
	}
	if s.Year < 1990 || s.Year > 2100 {
		return fmt.Errorf("source %s: implausible year %d", s.ID, s.Year)
	}

	cols := make(map[string]bool, len(s.Header))
	for _, h := range s.Header {
		cols[h] = true
	}
	for _, c := range []string{s.Mapping.EntityKeyColumn, s.Mapping.EntityNameColumn, s.Mapping.ValueColumn} {
		if c == "" {
			return fmt.Errorf("source %s: mapping must name entity key, entity name and value columns", s.ID)
		}
		if !cols[c] {
			return fmt.Errorf("source %s: mapped column %q not in header", s.ID, c)
		}
	}
	if b := s.Mapping.BreakdownColumn; b != "" && !cols[b] {
		return fmt.Errorf("source %s: breakdown column %q not in header", s.ID, b)
	}
	for _, c := range s.Mapping.RequiredColumns {
		if !cols[c] {
			return fmt.Errorf("source %s: required column %q not in header", s.ID, c)
		}
	}
	return nil
}

// Period returns the closed fact period for this source's budget year.
func (s *Source) Period() (start, end time.Time) {
	start = time.Date(s.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(s.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return start, end
}

// DelimiterRune returns the delimiter as a rune for csv.Reader.
func (s *Source) DelimiterRune() rune {
	return []rune(s.Delimiter)[0]
}

// Registry holds the registered sources.
type Registry struct {
	sources map[string]*Source
}

// New creates a registry preloaded with the built-in sources.
func New() *Registry {
	r := &Registry{sources: make(map[string]*Source)}
	for _, s := range builtinSources() {
		// Built-ins are validated by their tests; a broken one is a
		// programming error.
		r.sources[s.ID] = s
	}
	return r
}

// Register adds or replaces a source contract.
func (r *Registry) Register(s *Source) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.sources[s.ID] = s
	return nil
}

// Lookup returns the source contract for id.
func (r *Registry) Lookup(id string) (*Source, error) {
	s, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("source %q is not registered", id)
	}
	return s, nil
}

// IDs returns all registered source ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
