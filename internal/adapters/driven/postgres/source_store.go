package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/knowara/kbsync/internal/core/domain"
	"github.com/knowara/kbsync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore implements driven.SourceStore using PostgreSQL
type SourceStore struct {
	db *DB
}

// NewSourceStore creates a new SourceStore
func NewSourceStore(db *DB) *SourceStore {
	return &SourceStore{db: db}
}

const sourceColumns = `id, kind, url, tags, titulo, descripcion, contenido_extraido,
       hash_contenido, last_synced_at, active, mensaje_error, created_at, updated_at`

// Save creates or updates a source
func (s *SourceStore) Save(ctx context.Context, source *domain.Source) error {
	query := `
		INSERT INTO sources (id, kind, url, tags, titulo, descripcion, contenido_extraido,
		                     hash_contenido, last_synced_at, active, mensaje_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			url = EXCLUDED.url,
			tags = EXCLUDED.tags,
			titulo = EXCLUDED.titulo,
			descripcion = EXCLUDED.descripcion,
			contenido_extraido = EXCLUDED.contenido_extraido,
			hash_contenido = EXCLUDED.hash_contenido,
			last_synced_at = EXCLUDED.last_synced_at,
			active = EXCLUDED.active,
			mensaje_error = EXCLUDED.mensaje_error,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		source.ID,
		string(source.Kind),
		source.URL,
		pq.Array(source.Tags),
		nullIfEmpty(source.Title),
		nullIfEmpty(source.Description),
		nullIfEmpty(source.Snapshot),
		nullIfEmpty(source.LastContentDigest),
		NullTime(source.LastSyncedAt),
		source.Active,
		nullIfEmpty(source.ErrorMessage),
		source.CreatedAt,
		source.UpdatedAt,
	)
	return err
}

// Get retrieves a source by ID
func (s *SourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

// List retrieves all sources
func (s *SourceStore) List(ctx context.Context) ([]*domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources ORDER BY created_at DESC`
	return s.querySources(ctx, query)
}

// ListStale retrieves active sources that have never synced or whose last
// sync is older than staleAfter, oldest first so the longest-neglected
// sources go first when a run is cut short.
func (s *SourceStore) ListStale(ctx context.Context, now time.Time, staleAfter time.Duration) ([]*domain.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE active = true
		  AND (last_synced_at IS NULL OR last_synced_at < $1)
		ORDER BY last_synced_at NULLS FIRST
	`
	return s.querySources(ctx, query, now.Add(-staleAfter))
}

// RecordSyncSuccess persists the outcome of a successful sync and clears
// any previous error message
func (s *SourceStore) RecordSyncSuccess(ctx context.Context, id string, update driven.SyncUpdate) error {
	query := `
		UPDATE sources SET
			titulo = $1,
			descripcion = $2,
			contenido_extraido = $3,
			hash_contenido = $4,
			last_synced_at = $5,
			mensaje_error = NULL,
			updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		nullIfEmpty(update.Title),
		nullIfEmpty(update.Description),
		nullIfEmpty(update.Snapshot),
		nullIfEmpty(update.ContentDigest),
		update.SyncedAt,
		id,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// TouchSynced refreshes only the last-synced timestamp
func (s *SourceStore) TouchSynced(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE sources SET last_synced_at = $1, mensaje_error = NULL, updated_at = $1 WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// RecordSyncError stores the error message for a failed sync
func (s *SourceStore) RecordSyncError(ctx context.Context, id string, message string) error {
	query := `UPDATE sources SET mensaje_error = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, message, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetActive updates the active flag
func (s *SourceStore) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE sources SET active = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *SourceStore) querySources(ctx context.Context, query string, args ...interface{}) ([]*domain.Source, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sources, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var source domain.Source
	var kind string
	var titulo, descripcion, contenido, hash, mensajeError sql.NullString
	var lastSyncedAt sql.NullTime

	err := row.Scan(
		&source.ID,
		&kind,
		&source.URL,
		pq.Array(&source.Tags),
		&titulo,
		&descripcion,
		&contenido,
		&hash,
		&lastSyncedAt,
		&source.Active,
		&mensajeError,
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	source.Kind = domain.SourceKind(kind)
	source.Title = titulo.String
	source.Description = descripcion.String
	source.Snapshot = contenido.String
	source.LastContentDigest = hash.String
	source.ErrorMessage = mensajeError.String
	source.LastSyncedAt = TimePtr(lastSyncedAt)

	return &source, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
