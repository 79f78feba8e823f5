package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// ListMetrics returns all registered metrics ordered by natural key.
// The metric set is closed and manually curated; nothing here creates one.
func (s *Store) ListMetrics(ctx context.Context) ([]types.Metric, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, natural_key, display_name, unit, description
		FROM metrics
		ORDER BY natural_key`)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	var out []types.Metric
	for rows.Next() {
		var m types.Metric
		if err := rows.Scan(&m.ID, &m.NaturalKey, &m.DisplayName, &m.Unit, &m.Description); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MetricByKey returns one metric by natural key, or ErrNotFound. The parser
// refuses to invent metrics, so a miss here aborts the parse.
func (s *Store) MetricByKey(ctx context.Context, naturalKey string) (*types.Metric, error) {
	var m types.Metric
	err := s.pool.QueryRow(ctx, `
		SELECT id, natural_key, display_name, unit, description
		FROM metrics WHERE natural_key = $1`, naturalKey).
		Scan(&m.ID, &m.NaturalKey, &m.DisplayName, &m.Unit, &m.Description)
	if err != nil {
		return nil, fmt.Errorf("metric by key: %w", noRows(err))
	}
	return &m, nil
}

// MetricByID returns one metric by id, or ErrNotFound.
func (s *Store) MetricByID(ctx context.Context, id string) (*types.Metric, error) {
	var m types.Metric
	err := s.pool.QueryRow(ctx, `
		SELECT id, natural_key, display_name, unit, description
		FROM metrics WHERE id = $1`, id).
		Scan(&m.ID, &m.NaturalKey, &m.DisplayName, &m.Unit, &m.Description)
	if err != nil {
		return nil, fmt.Errorf("metric by id: %w", noRows(err))
	}
	return &m, nil
}

// SeedMetric registers a metric if its natural key is not yet present.
// Used by operator tooling; the parser never calls this.
func (s *Store) SeedMetric(ctx context.Context, m *types.Metric) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO metrics (id, natural_key, display_name, unit, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (natural_key) DO NOTHING`,
		m.ID, m.NaturalKey, m.DisplayName, m.Unit, m.Description)
	if err != nil {
		return fmt.Errorf("seed metric: %w", err)
	}
	return nil
}

// EnsureEntity upserts an entity by natural key with first-seen-wins
// naming: an existing row keeps its display name, and the stored name comes
// back so the caller can report divergence. The no-op DO UPDATE makes the
// RETURNING clause yield the surviving row in both branches.
func (s *Store) EnsureEntity(ctx context.Context, naturalKey, displayName, entityType string) (id, storedName string, err error) {
	if entityType == "" {
		entityType = "org"
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO entities (id, natural_key, display_name, entity_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (natural_key) DO UPDATE SET natural_key = excluded.natural_key
		RETURNING id, display_name`,
		uuid.NewString(), naturalKey, displayName, entityType).
		Scan(&id, &storedName)
	if err != nil {
		return "", "", fmt.Errorf("ensure entity %q: %w", naturalKey, err)
	}
	return id, storedName, nil
}

// SearchEntities returns entities whose display name or natural key
// contains the case-insensitive query, ordered by display name. limit is
// applied as given; callers cap it.
func (s *Store) SearchEntities(ctx context.Context, query string, limit int) ([]types.Entity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, natural_key, display_name, entity_type
		FROM entities
		WHERE $1 = '' OR display_name ILIKE '%' || $1 || '%' OR natural_key ILIKE '%' || $1 || '%'
		ORDER BY display_name
		LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	defer rows.Close()

	var out []types.Entity
	for rows.Next() {
		var e types.Entity
		if err := rows.Scan(&e.ID, &e.NaturalKey, &e.DisplayName, &e.Type); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
