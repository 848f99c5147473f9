package repository

import (
	"database/sql"

	"streamvault/internal/apperr"
	"streamvault/internal/models"
)

type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

const sourceColumns = `id, name, protocol, host, port, username, encrypted_credential,
	base_path, domain, enabled, created_at`

func scanSource(row interface{ Scan(...interface{}) error }) (*models.Source, error) {
	s := &models.Source{}
	err := row.Scan(&s.ID, &s.Name, &s.Protocol, &s.Host, &s.Port, &s.Username,
		&s.EncryptedCredential, &s.BasePath, &s.Domain, &s.Enabled, &s.CreatedAt)
	return s, err
}

func (r *SourceRepository) Create(s *models.Source) error {
	res, err := r.db.Exec(`INSERT INTO sources
		(name, protocol, host, port, username, encrypted_credential, base_path, domain, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Name, s.Protocol, s.Host, s.Port, s.Username, s.EncryptedCredential, s.BasePath, s.Domain, s.Enabled)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create source", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "read inserted source id", err)
	}
	s.ID = id
	return nil
}

func (r *SourceRepository) GetByID(id int64) (*models.Source, error) {
	row := r.db.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	s, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "source not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get source", err)
	}
	return s, nil
}

func (r *SourceRepository) List() ([]*models.Source, error) {
	rows, err := r.db.Query(`SELECT ` + sourceColumns + ` FROM sources ORDER BY name`)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list sources", err)
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan source", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *SourceRepository) ListEnabled() ([]*models.Source, error) {
	rows, err := r.db.Query(`SELECT ` + sourceColumns + ` FROM sources WHERE enabled = 1 ORDER BY name`)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list enabled sources", err)
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan source", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *SourceRepository) Update(s *models.Source) error {
	_, err := r.db.Exec(`UPDATE sources SET name = ?, host = ?, port = ?, username = ?,
		encrypted_credential = ?, base_path = ?, domain = ?, enabled = ? WHERE id = ?`,
		s.Name, s.Host, s.Port, s.Username, s.EncryptedCredential, s.BasePath, s.Domain, s.Enabled, s.ID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update source", err)
	}
	return nil
}

func (r *SourceRepository) SetEnabled(id int64, enabled bool) error {
	_, err := r.db.Exec(`UPDATE sources SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "set source enabled", err)
	}
	return nil
}

func (r *SourceRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delete source", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.New(apperr.NotFound, "source not found")
	}
	return nil
}
