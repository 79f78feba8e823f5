package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// WriteSnapshot persists one parser run atomically: the snapshot row, all
// facts in the given order, one provenance row per fact, and the artifact's
// parsed_status flip to ok. Any failure rolls the whole batch back so a
// partial snapshot can never become visible.
func (s *Store) WriteSnapshot(ctx context.Context, artifactID, note string, facts []types.FactInput) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin snapshot write: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	snapshotID := uuid.NewString()

	if _, err := tx.Exec(ctx, `
		INSERT INTO snapshots (id, created_at, note) VALUES ($1, $2, $3)`,
		snapshotID, now, note); err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	for i := range facts {
		f := &facts[i]
		factID := uuid.NewString()
		dims := f.Dims
		if dims == nil {
			dims = map[string]any{}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO facts (id, snapshot_id, entity_id, metric_id,
				period_start, period_end, value_num, unit, dims)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			factID, snapshotID, f.EntityID, f.MetricID,
			f.PeriodStart, f.PeriodEnd, f.ValueNum, f.Unit, dims); err != nil {
			return "", fmt.Errorf("insert fact: %w", err)
		}

		method := f.Method
		if method == "" {
			method = "parse"
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO provenance (id, fact_id, artifact_id, location, method, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), factID, artifactID, f.Location, method, now); err != nil {
			return "", fmt.Errorf("insert provenance: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE artifacts SET parsed_status = $2, parse_error = '' WHERE id = $1`,
		artifactID, types.ParsedOK); err != nil {
		return "", fmt.Errorf("mark artifact parsed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit snapshot write: %w", err)
	}
	return snapshotID, nil
}

// factsWhere builds the WHERE clause and arguments for a fact filter.
// Kept as a pure function so the predicate logic is testable without a
// database.
func factsWhere(f types.FactFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.MetricID != "" {
		add("f.metric_id = $%d", f.MetricID)
	}
	if f.EntityID != "" {
		add("f.entity_id = $%d", f.EntityID)
	}
	if !f.From.IsZero() {
		add("f.period_start >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("f.period_end <= $%d", f.To)
	}
	if f.SnapshotID != "" {
		add("f.snapshot_id = $%d", f.SnapshotID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// QueryFacts returns facts matching the filter, joined with their entity
// and metric. When the filter names no snapshot, the fact from the latest
// snapshot wins per (entity, metric, period). Results are ordered by
// entity display name, then period start.
func (s *Store) QueryFacts(ctx context.Context, f types.FactFilter) ([]types.FactView, error) {
	where, args := factsWhere(f)

	// DISTINCT ON picks the newest snapshot's fact within each
	// (entity, metric, period) group; a named snapshot disables the dedup.
	distinct := ""
	innerOrder := ""
	if f.SnapshotID == "" {
		distinct = "DISTINCT ON (f.entity_id, f.metric_id, f.period_start, f.period_end)"
		innerOrder = "ORDER BY f.entity_id, f.metric_id, f.period_start, f.period_end, s.created_at DESC"
	}

	q := fmt.Sprintf(`
		SELECT %s
			f.id, f.snapshot_id, f.entity_id, f.metric_id,
			f.period_start, f.period_end, f.value_num, f.unit, f.dims,
			e.natural_key, e.display_name, m.natural_key, m.display_name,
			s.created_at
		FROM facts f
		JOIN snapshots s ON s.id = f.snapshot_id
		JOIN entities e ON e.id = f.entity_id
		JOIN metrics m ON m.id = f.metric_id
		%s
		%s`, distinct, where, innerOrder)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var out []types.FactView
	for rows.Next() {
		var v types.FactView
		if err := rows.Scan(&v.ID, &v.SnapshotID, &v.EntityID, &v.MetricID,
			&v.PeriodStart, &v.PeriodEnd, &v.ValueNum, &v.Unit, &v.Dims,
			&v.EntityKey, &v.EntityName, &v.MetricKey, &v.MetricName,
			&v.SnapshotCreatedAt); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntityName != out[j].EntityName {
			return out[i].EntityName < out[j].EntityName
		}
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})
	return out, nil
}

// FactByID returns one fact view, or ErrNotFound.
func (s *Store) FactByID(ctx context.Context, id string) (*types.FactView, error) {
	var v types.FactView
	err := s.pool.QueryRow(ctx, `
		SELECT f.id, f.snapshot_id, f.entity_id, f.metric_id,
			f.period_start, f.period_end, f.value_num, f.unit, f.dims,
			e.natural_key, e.display_name, m.natural_key, m.display_name,
			s.created_at
		FROM facts f
		JOIN snapshots s ON s.id = f.snapshot_id
		JOIN entities e ON e.id = f.entity_id
		JOIN metrics m ON m.id = f.metric_id
		WHERE f.id = $1`, id).
		Scan(&v.ID, &v.SnapshotID, &v.EntityID, &v.MetricID,
			&v.PeriodStart, &v.PeriodEnd, &v.ValueNum, &v.Unit, &v.Dims,
			&v.EntityKey, &v.EntityName, &v.MetricKey, &v.MetricName,
			&v.SnapshotCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("fact by id: %w", noRows(err))
	}
	return &v, nil
}

// GetEvidence returns the fact together with its provenance row and the
// source artifact. Facts carry at least one provenance row; the earliest
// one is the canonical pointer.
func (s *Store) GetEvidence(ctx context.Context, factID string) (*types.Evidence, error) {
	fact, err := s.FactByID(ctx, factID)
	if err != nil {
		return nil, err
	}

	var ev types.Evidence
	ev.Fact = *fact
	err = s.pool.QueryRow(ctx, `
		SELECT p.id, p.fact_id, p.artifact_id, p.location, p.method, p.created_at,
			a.id, a.source_id, a.url, a.captured_at, a.content_hash,
			a.mime_type, a.size_bytes, a.storage_kind, a.storage_path,
			a.parsed_status, a.parse_error
		FROM provenance p
		JOIN artifacts a ON a.id = p.artifact_id
		WHERE p.fact_id = $1
		ORDER BY p.created_at, p.id
		LIMIT 1`, factID).
		Scan(&ev.Provenance.ID, &ev.Provenance.FactID, &ev.Provenance.ArtifactID,
			&ev.Provenance.Location, &ev.Provenance.Method, &ev.Provenance.CreatedAt,
			&ev.Artifact.ID, &ev.Artifact.SourceID, &ev.Artifact.URL,
			&ev.Artifact.CapturedAt, &ev.Artifact.ContentHash,
			&ev.Artifact.MimeType, &ev.Artifact.SizeBytes, &ev.Artifact.StorageKind,
			&ev.Artifact.StoragePath, &ev.Artifact.ParsedStatus, &ev.Artifact.ParseError)
	if err != nil {
		return nil, fmt.Errorf("evidence for fact %s: %w", factID, noRows(err))
	}
	return &ev, nil
}

// ListSnapshots returns snapshots with their fact counts, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]types.SnapshotInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.created_at, s.note, COUNT(f.id)
		FROM snapshots s
		LEFT JOIN facts f ON f.snapshot_id = s.id
		GROUP BY s.id, s.created_at, s.note
		ORDER BY s.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []types.SnapshotInfo
	for rows.Next() {
		var si types.SnapshotInfo
		if err := rows.Scan(&si.ID, &si.CreatedAt, &si.Note, &si.FactCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, si)
	}
	return out, rows.Err()
}
