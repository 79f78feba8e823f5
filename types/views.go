package types

import "time"

// FactInput is one fact as produced by a parser strategy, before ids exist.
// Location and Method seed the provenance row written alongside the fact.
type FactInput struct {
	EntityID    string
	MetricID    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	ValueNum    float64
	Unit        string
	Dims        map[string]any
	// Location is the in-file pointer for the provenance row,
	// e.g. "csv:group=50".
	Location string
	Method   string
}

// FactFilter selects facts for the query surface. Zero values mean
// "no constraint". When SnapshotID is empty the latest snapshot per
// (entity, metric, period) wins.
type FactFilter struct {
	MetricID   string
	EntityID   string
	From       time.Time
	To         time.Time
	SnapshotID string
}

// FactView is a fact joined with its entity and metric for read responses.
type FactView struct {
	Fact
	EntityKey   string
	EntityName  string
	MetricKey   string
	MetricName  string
	SnapshotCreatedAt time.Time
}

// SnapshotInfo is a snapshot with its fact count for the read surface.
type SnapshotInfo struct {
	Snapshot
	FactCount int64
}

// Evidence bundles everything needed to reproduce one fact from source.
type Evidence struct {
	Fact       FactView
	Artifact   Artifact
	Provenance Provenance
}
