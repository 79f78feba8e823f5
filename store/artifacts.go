package store

import (
	"context"
	"fmt"

	"github.com/IANewCool/estado-transparente-portal/types"
)

const artifactColumns = `id, source_id, url, captured_at, content_hash,
	mime_type, size_bytes, storage_kind, storage_path, parsed_status, parse_error`

func scanArtifact(row interface{ Scan(...any) error }) (*types.Artifact, error) {
	var a types.Artifact
	err := row.Scan(&a.ID, &a.SourceID, &a.URL, &a.CapturedAt, &a.ContentHash,
		&a.MimeType, &a.SizeBytes, &a.StorageKind, &a.StoragePath,
		&a.ParsedStatus, &a.ParseError)
	if err != nil {
		return nil, noRows(err)
	}
	return &a, nil
}

// InsertArtifact persists a new artifact row. Returns ErrDuplicateHash when
// another artifact already holds the same content hash; the caller reuses
// that row instead. The uniqueness constraint is the serialization point
// for concurrent collectors fetching the same URL.
func (s *Store) InsertArtifact(ctx context.Context, a *types.Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO artifacts (`+artifactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.SourceID, a.URL, a.CapturedAt, a.ContentHash,
		a.MimeType, a.SizeBytes, a.StorageKind, a.StoragePath,
		a.ParsedStatus, a.ParseError)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert artifact: %w", ErrDuplicateHash)
		}
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// ArtifactByHash returns the artifact holding the given content hash, or
// ErrNotFound.
func (s *Store) ArtifactByHash(ctx context.Context, contentHash string) (*types.Artifact, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE content_hash = $1`, contentHash)
	a, err := scanArtifact(row)
	if err != nil {
		return nil, fmt.Errorf("artifact by hash: %w", err)
	}
	return a, nil
}

// ArtifactByID returns one artifact row, or ErrNotFound.
func (s *Store) ArtifactByID(ctx context.Context, id string) (*types.Artifact, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE id = $1`, id)
	a, err := scanArtifact(row)
	if err != nil {
		return nil, fmt.Errorf("artifact by id: %w", err)
	}
	return a, nil
}

// SetArtifactStatus records the outcome of one parse attempt.
func (s *Store) SetArtifactStatus(ctx context.Context, id string, status types.ParsedStatus, parseError string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE artifacts SET parsed_status = $2, parse_error = $3 WHERE id = $1`,
		id, status, parseError)
	if err != nil {
		return fmt.Errorf("set artifact status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set artifact status %s: %w", id, ErrNotFound)
	}
	return nil
}
