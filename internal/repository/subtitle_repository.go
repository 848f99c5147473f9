package repository

import (
	"database/sql"

	"streamvault/internal/apperr"
	"streamvault/internal/models"
)

type SubtitleRepository struct {
	db *sql.DB
}

func NewSubtitleRepository(db *sql.DB) *SubtitleRepository {
	return &SubtitleRepository{db: db}
}

const subtitleColumns = `id, media_item_id, language, label, file_path, format, is_default`

func scanSubtitle(row interface{ Scan(...interface{}) error }) (*models.Subtitle, error) {
	s := &models.Subtitle{}
	err := row.Scan(&s.ID, &s.MediaItemID, &s.Language, &s.Label, &s.FilePath, &s.Format, &s.IsDefault)
	return s, err
}

func (r *SubtitleRepository) Create(s *models.Subtitle) error {
	res, err := r.db.Exec(`INSERT INTO subtitles (media_item_id, language, label, file_path, format, is_default)
		VALUES (?, ?, ?, ?, ?, ?)`, s.MediaItemID, s.Language, s.Label, s.FilePath, s.Format, s.IsDefault)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create subtitle", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "read inserted subtitle id", err)
	}
	s.ID = id
	return nil
}

func (r *SubtitleRepository) GetByID(id int64) (*models.Subtitle, error) {
	row := r.db.QueryRow(`SELECT `+subtitleColumns+` FROM subtitles WHERE id = ?`, id)
	s, err := scanSubtitle(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "subtitle not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get subtitle", err)
	}
	return s, nil
}

func (r *SubtitleRepository) ListByMediaItem(mediaItemID int64) ([]*models.Subtitle, error) {
	rows, err := r.db.Query(`SELECT `+subtitleColumns+` FROM subtitles
		WHERE media_item_id = ? ORDER BY is_default DESC, language`, mediaItemID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list subtitles", err)
	}
	defer rows.Close()

	var subs []*models.Subtitle
	for rows.Next() {
		s, err := scanSubtitle(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan subtitle", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SubtitleRepository) FindByFilePath(mediaItemID int64, filePath string) (*models.Subtitle, error) {
	row := r.db.QueryRow(`SELECT `+subtitleColumns+` FROM subtitles
		WHERE media_item_id = ? AND file_path = ?`, mediaItemID, filePath)
	s, err := scanSubtitle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find subtitle by file path", err)
	}
	return s, nil
}

func (r *SubtitleRepository) DeleteByMediaItem(mediaItemID int64) error {
	_, err := r.db.Exec(`DELETE FROM subtitles WHERE media_item_id = ?`, mediaItemID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delete subtitles by media item", err)
	}
	return nil
}
