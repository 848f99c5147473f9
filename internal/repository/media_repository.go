// Package repository holds the flat, query-per-method data access layer for
// every persisted entity, following the teacher's repository-per-aggregate
// split (internal/repository in the reference repo) adapted to int64 ids and
// SQLite's ? placeholders.
package repository

import (
	"database/sql"

	"streamvault/internal/apperr"
	"streamvault/internal/models"
)

type MediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

const mediaColumns = `id, kind, title, year, duration_seconds, file_path, file_size,
	source_kind, source_id, external_id, poster_url, backdrop_url, overview, rating,
	genres, cast_members, quality_label, added_at, updated_at`

func scanMedia(row interface{ Scan(...interface{}) error }) (*models.MediaItem, error) {
	m := &models.MediaItem{}
	err := row.Scan(&m.ID, &m.Kind, &m.Title, &m.Year, &m.DurationSeconds, &m.FilePath,
		&m.FileSize, &m.SourceKind, &m.SourceID, &m.ExternalID, &m.PosterURL, &m.BackdropURL,
		&m.Overview, &m.Rating, &m.Genres, &m.Cast, &m.QualityLabel, &m.AddedAt, &m.UpdatedAt)
	return m, err
}

func (r *MediaRepository) Create(m *models.MediaItem) error {
	res, err := r.db.Exec(`INSERT INTO media_items
		(kind, title, year, duration_seconds, file_path, file_size, source_kind, source_id,
		 external_id, poster_url, backdrop_url, overview, rating, genres, cast_members, quality_label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Kind, m.Title, m.Year, m.DurationSeconds, m.FilePath, m.FileSize, m.SourceKind,
		m.SourceID, m.ExternalID, m.PosterURL, m.BackdropURL, m.Overview, m.Rating, m.Genres,
		m.Cast, m.QualityLabel)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create media item", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "read inserted media item id", err)
	}
	m.ID = id
	return nil
}

func (r *MediaRepository) GetByID(id int64) (*models.MediaItem, error) {
	row := r.db.QueryRow(`SELECT `+mediaColumns+` FROM media_items WHERE id = ?`, id)
	m, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "media item not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get media item", err)
	}
	return m, nil
}

// FindBySourceFile looks up an existing row by the unique (source_kind,
// source_id, file_path) triple the Indexer uses to dedupe rescans.
func (r *MediaRepository) FindBySourceFile(sourceKind models.SourceKind, sourceID *int64, filePath string) (*models.MediaItem, error) {
	row := r.db.QueryRow(`SELECT `+mediaColumns+` FROM media_items
		WHERE source_kind = ? AND source_id IS ? AND file_path = ?`, sourceKind, sourceID, filePath)
	m, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find media item by source file", err)
	}
	return m, nil
}

func (r *MediaRepository) UpdateProbeResult(id int64, durationSeconds float64, fileSize int64, qualityLabel string) error {
	_, err := r.db.Exec(`UPDATE media_items SET duration_seconds = ?, file_size = ?,
		quality_label = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		durationSeconds, fileSize, qualityLabel, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update media item probe result", err)
	}
	return nil
}

func (r *MediaRepository) UpdateMetadata(id int64, m *models.MediaItem) error {
	_, err := r.db.Exec(`UPDATE media_items SET external_id = ?, poster_url = ?, backdrop_url = ?,
		overview = ?, rating = ?, genres = ?, cast_members = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, m.ExternalID, m.PosterURL, m.BackdropURL, m.Overview, m.Rating, m.Genres, m.Cast, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update media item metadata", err)
	}
	return nil
}

func (r *MediaRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM media_items WHERE id = ?`, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delete media item", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.New(apperr.NotFound, "media item not found")
	}
	return nil
}

// ListMovies returns every movie-kind MediaItem, newest first.
func (r *MediaRepository) ListMovies() ([]*models.MediaItem, error) {
	return r.listByKind(models.MediaMovie)
}

// ListTvShows returns every TvShow-kind MediaItem (the container record,
// not its episodes), newest first.
func (r *MediaRepository) ListTvShows() ([]*models.MediaItem, error) {
	return r.listByKind(models.MediaTvShow)
}

func (r *MediaRepository) listByKind(kind models.MediaKind) ([]*models.MediaItem, error) {
	rows, err := r.db.Query(`SELECT `+mediaColumns+` FROM media_items WHERE kind = ? ORDER BY added_at DESC`, kind)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list media items", err)
	}
	defer rows.Close()

	var items []*models.MediaItem
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan media item", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// ListAll returns every MediaItem regardless of kind, newest first, for the
// admin media list.
func (r *MediaRepository) ListAll() ([]*models.MediaItem, error) {
	rows, err := r.db.Query(`SELECT ` + mediaColumns + ` FROM media_items ORDER BY added_at DESC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list all media items", err)
	}
	defer rows.Close()

	var items []*models.MediaItem
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan media item", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// CountByKind returns the number of MediaItems of kind, used by the admin
// library-stats summary.
func (r *MediaRepository) CountByKind(kind models.MediaKind) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM media_items WHERE kind = ?`, kind).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "count media items by kind", err)
	}
	return n, nil
}

// Search matches title (case-insensitive substring) across every kind.
func (r *MediaRepository) Search(query string) ([]*models.MediaItem, error) {
	rows, err := r.db.Query(`SELECT `+mediaColumns+` FROM media_items
		WHERE title LIKE '%' || ? || '%' COLLATE NOCASE ORDER BY title LIMIT 100`, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "search media items", err)
	}
	defer rows.Close()

	var items []*models.MediaItem
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan media item", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *MediaRepository) CountBySource(sourceID int64) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM media_items WHERE source_id = ?`, sourceID).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "count media items by source", err)
	}
	return n, nil
}

func (r *MediaRepository) DeleteBySource(sourceID int64) error {
	_, err := r.db.Exec(`DELETE FROM media_items WHERE source_id = ?`, sourceID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delete media items by source", err)
	}
	return nil
}
